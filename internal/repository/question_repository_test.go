package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborfin/onboarding-api/internal/models"
)

func newQuestionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestQuestionRepositoryCreateBackfillsID(t *testing.T) {
	db, mock, cleanup := newQuestionMock(t)
	defer cleanup()
	repo := NewQuestionRepository(db)

	mock.ExpectQuery("INSERT INTO questions").
		WithArgs("KEY1", "Proof of identity?", sqlmock.AnyArg(), 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	question := &models.Question{LoginKey: "KEY1", Text: "Proof of identity?"}
	require.NoError(t, repo.Create(context.Background(), question))
	assert.Equal(t, int64(42), question.ID)
	assert.NotNil(t, question.Templates, "templates default to an empty list, not NULL")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionRepositoryListByLoginKeyOrdersBySortOrder(t *testing.T) {
	db, mock, cleanup := newQuestionMock(t)
	defer cleanup()
	repo := NewQuestionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "login_key", "question", "templates", "sort_order", "created_at", "updated_at"}).
		AddRow(1, "KEY1", "First", []byte(`[]`), 0, time.Now(), time.Now()).
		AddRow(2, "KEY1", "Second", []byte(`[{"file_name":"a.pdf","file_id":"f1"}]`), 1, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, login_key, question, templates, sort_order, created_at, updated_at\nFROM questions WHERE login_key = $1 ORDER BY sort_order ASC, id ASC")).
		WithArgs("KEY1").
		WillReturnRows(rows)

	questions, err := repo.ListByLoginKey(context.Background(), "KEY1")
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Empty(t, questions[0].Templates)
	require.Len(t, questions[1].Templates, 1)
	assert.Equal(t, "a.pdf", questions[1].Templates[0].FileName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionRepositoryUpdateTemplates(t *testing.T) {
	db, mock, cleanup := newQuestionMock(t)
	defer cleanup()
	repo := NewQuestionRepository(db)

	mock.ExpectExec("UPDATE questions SET templates").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateTemplates(context.Background(), 7, models.TemplateList{{FileName: "a.pdf", FileID: "f1"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionRepositoryUpdateTextMissingRow(t *testing.T) {
	db, mock, cleanup := newQuestionMock(t)
	defer cleanup()
	repo := NewQuestionRepository(db)

	mock.ExpectExec("UPDATE questions SET question").
		WithArgs("New text", sqlmock.AnyArg(), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateText(context.Background(), 99, "New text")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newQuestionMock(t)
	defer cleanup()
	repo := NewQuestionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM questions WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}
