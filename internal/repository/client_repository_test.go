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

func newClientMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestClientRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newClientMock(t)
	defer cleanup()
	repo := NewClientRepository(db)

	mock.ExpectExec("INSERT INTO clients").
		WithArgs("KEY1", "Acme", "ops@acme.test", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.Client{
		LoginKey:     "KEY1",
		ClientName:   "Acme",
		ContactEmail: "ops@acme.test",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepositoryFindByLoginKey(t *testing.T) {
	db, mock, cleanup := newClientMock(t)
	defer cleanup()
	repo := NewClientRepository(db)

	rows := sqlmock.NewRows([]string{"login_key", "client_name", "contact_email", "folder_id", "created_at", "updated_at"}).
		AddRow("KEY1", "Acme", "ops@acme.test", "f-1", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT login_key, client_name, contact_email, folder_id, created_at, updated_at\nFROM clients WHERE login_key = $1")).
		WithArgs("KEY1").
		WillReturnRows(rows)

	client, err := repo.FindByLoginKey(context.Background(), "KEY1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", client.ClientName)
	assert.Equal(t, "f-1", client.FolderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newClientMock(t)
	defer cleanup()
	repo := NewClientRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM clients WHERE client_name ILIKE $1")).
		WithArgs("%acme%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	rows := sqlmock.NewRows([]string{"login_key", "client_name", "contact_email", "folder_id", "created_at", "updated_at"}).
		AddRow("KEY1", "Acme", "ops@acme.test", "f-1", time.Now(), time.Now())
	mock.ExpectQuery("SELECT login_key, client_name, contact_email, folder_id, created_at, updated_at").
		WithArgs("%acme%").
		WillReturnRows(rows)

	clients, total, err := repo.List(context.Background(), models.ClientFilter{Search: "acme", Page: 1, PageSize: 50})
	require.NoError(t, err)
	assert.Len(t, clients, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newClientMock(t)
	defer cleanup()
	repo := NewClientRepository(db)

	mock.ExpectExec("UPDATE clients SET").
		WithArgs("Acme", "ops@acme.test", "f-1", sqlmock.AnyArg(), "GONE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Client{
		LoginKey:     "GONE",
		ClientName:   "Acme",
		ContactEmail: "ops@acme.test",
		FolderID:     "f-1",
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newClientMock(t)
	defer cleanup()
	repo := NewClientRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM clients WHERE login_key = $1")).
		WithArgs("KEY1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "KEY1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
