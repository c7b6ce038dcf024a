package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harborfin/onboarding-api/internal/drive"
	"github.com/harborfin/onboarding-api/internal/dto"
	"github.com/harborfin/onboarding-api/internal/models"
)

type fakeQuestionStore struct {
	nextID    int64
	questions map[int64]*models.Question
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{questions: map[int64]*models.Question{}}
}

func (f *fakeQuestionStore) Create(_ context.Context, q *models.Question) error {
	f.nextID++
	q.ID = f.nextID
	copied := *q
	f.questions[q.ID] = &copied
	return nil
}

func (f *fakeQuestionStore) FindByID(_ context.Context, id int64) (*models.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *q
	return &copied, nil
}

func (f *fakeQuestionStore) ListByLoginKey(_ context.Context, loginKey string) ([]models.Question, error) {
	var out []models.Question
	for id := int64(1); id <= f.nextID; id++ {
		if q, ok := f.questions[id]; ok && q.LoginKey == loginKey {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeQuestionStore) UpdateText(_ context.Context, id int64, text string) error {
	f.questions[id].Text = text
	return nil
}

func (f *fakeQuestionStore) UpdateTemplates(_ context.Context, id int64, templates models.TemplateList) error {
	f.questions[id].Templates = templates
	return nil
}

func (f *fakeQuestionStore) Delete(_ context.Context, id int64) error {
	delete(f.questions, id)
	return nil
}

type fakeClientStore struct {
	clients map[string]*models.Client
}

func (f *fakeClientStore) FindByLoginKey(_ context.Context, loginKey string) (*models.Client, error) {
	c, ok := f.clients[loginKey]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func newQuestionFixture(preserve bool) (*QuestionService, *fakeQuestionStore, *fakeDrive) {
	d := newFakeDrive()
	folders := NewFolderService(d, zap.NewNop(), FolderServiceConfig{PreserveAnswersOnRename: preserve})
	store := newFakeQuestionStore()
	clients := &fakeClientStore{clients: map[string]*models.Client{
		"KEY1": {LoginKey: "KEY1", ClientName: "Acme"},
	}}
	return NewQuestionService(store, clients, folders, nil, zap.NewNop()), store, d
}

func TestAddQuestionCreatesFolders(t *testing.T) {
	svc, _, d := newQuestionFixture(true)

	q, err := svc.Add(context.Background(), "KEY1", dto.CreateQuestionRequest{Question: "Proof of identity?"})
	require.NoError(t, err)
	assert.NotZero(t, q.ID)
	assert.Contains(t, d.ensured, "CLIENTS/Acme_KEY1/Proof_of_identity/answer")
}

func TestAddQuestionUnknownClient(t *testing.T) {
	svc, _, _ := newQuestionFixture(true)
	_, err := svc.Add(context.Background(), "NOPE", dto.CreateQuestionRequest{Question: "Anything"})
	require.Error(t, err)
}

func TestUpdateQuestionSegmentChangeMigratesFolder(t *testing.T) {
	svc, _, d := newQuestionFixture(true)
	q, err := svc.Add(context.Background(), "KEY1", dto.CreateQuestionRequest{Question: "Old Question"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), "KEY1", q.ID, dto.UpdateQuestionRequest{Question: "New Question"})
	require.NoError(t, err)
	assert.Equal(t, "New Question", updated.Text)

	require.Len(t, d.renames, 1)
	for _, name := range d.renames {
		assert.Equal(t, "New_Question", name)
	}
}

func TestUpdateQuestionSameSegmentSkipsFolderWork(t *testing.T) {
	svc, _, d := newQuestionFixture(true)
	q, err := svc.Add(context.Background(), "KEY1", dto.CreateQuestionRequest{Question: "W-2 Form (2024)?"})
	require.NoError(t, err)
	ensuredBefore := len(d.ensured)

	updated, err := svc.Update(context.Background(), "KEY1", q.ID, dto.UpdateQuestionRequest{Question: "W-2 Form (2024)"})
	require.NoError(t, err)
	assert.Equal(t, "W-2 Form (2024)", updated.Text)
	assert.Empty(t, d.renames)
	assert.Len(t, d.ensured, ensuredBefore, "matching segments must not touch the remote store")
}

func TestUpdateQuestionLegacyRenameClearsTemplates(t *testing.T) {
	svc, store, d := newQuestionFixture(false)
	q, err := svc.Add(context.Background(), "KEY1", dto.CreateQuestionRequest{Question: "Old Question"})
	require.NoError(t, err)
	store.questions[q.ID].Templates = models.TemplateList{{FileName: "a.pdf", FileID: "f1"}}

	updated, err := svc.Update(context.Background(), "KEY1", q.ID, dto.UpdateQuestionRequest{Question: "New Question"})
	require.NoError(t, err)
	assert.Empty(t, updated.Templates, "destructive rename invalidates stored references")
	assert.Empty(t, store.questions[q.ID].Templates)
	assert.Contains(t, d.deleted, "CLIENTS/Acme_KEY1/Old_Question")
}

func TestReplaceQuestionsMatchesByIDAndPosition(t *testing.T) {
	svc, store, d := newQuestionFixture(true)
	first, err := svc.Add(context.Background(), "KEY1", dto.CreateQuestionRequest{Question: "Question One"})
	require.NoError(t, err)
	second, err := svc.Add(context.Background(), "KEY1", dto.CreateQuestionRequest{Question: "Question Two"})
	require.NoError(t, err)
	third, err := svc.Add(context.Background(), "KEY1", dto.CreateQuestionRequest{Question: "Question Three"})
	require.NoError(t, err)

	result, err := svc.Replace(context.Background(), "KEY1", dto.ReplaceQuestionsRequest{
		Questions: []dto.QuestionEdit{
			{ID: &second.ID, Question: "Question Two Edited"},
			{Question: "Positional Replacement"}, // consumes first unclaimed: question one
			{Question: "Brand New Question"},     // consumes third
			{Question: "Appended Question"},      // no existing left, created
		},
	})
	require.NoError(t, err)
	require.Len(t, result, 4)

	assert.Equal(t, second.ID, result[0].ID)
	assert.Equal(t, "Question Two Edited", result[0].Text)
	assert.Equal(t, first.ID, result[1].ID)
	assert.Equal(t, "Positional Replacement", result[1].Text)
	assert.Equal(t, third.ID, result[2].ID)
	assert.Greater(t, result[3].ID, third.ID, "surplus entries become new questions")

	// Nothing was orphaned, so no subtree deletions.
	assert.Empty(t, d.deleted)
	assert.Len(t, store.questions, 4)
}

func TestReplaceQuestionsRemovesOrphans(t *testing.T) {
	svc, store, d := newQuestionFixture(true)
	keep, err := svc.Add(context.Background(), "KEY1", dto.CreateQuestionRequest{Question: "Keep Me"})
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), "KEY1", dto.CreateQuestionRequest{Question: "Drop Me"})
	require.NoError(t, err)

	result, err := svc.Replace(context.Background(), "KEY1", dto.ReplaceQuestionsRequest{
		Questions: []dto.QuestionEdit{{ID: &keep.ID, Question: "Keep Me"}},
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Contains(t, d.deleted, "CLIENTS/Acme_KEY1/Drop_Me")
	assert.Len(t, store.questions, 1)
}

func TestReplaceQuestionsUnknownIDFails(t *testing.T) {
	svc, _, _ := newQuestionFixture(true)
	missing := int64(99)
	_, err := svc.Replace(context.Background(), "KEY1", dto.ReplaceQuestionsRequest{
		Questions: []dto.QuestionEdit{{ID: &missing, Question: "Ghost"}},
	})
	require.Error(t, err)
}

func TestRemoveQuestionDeletesSubtree(t *testing.T) {
	svc, store, d := newQuestionFixture(true)
	q, err := svc.Add(context.Background(), "KEY1", dto.CreateQuestionRequest{Question: "Temporary"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), "KEY1", q.ID))
	assert.Contains(t, d.deleted, "CLIENTS/Acme_KEY1/Temporary")
	assert.Empty(t, store.questions)
}

func TestRemoveQuestionScopedToClient(t *testing.T) {
	svc, store, _ := newQuestionFixture(true)
	q, err := svc.Add(context.Background(), "KEY1", dto.CreateQuestionRequest{Question: "Mine"})
	require.NoError(t, err)
	store.questions[q.ID].LoginKey = "OTHER"

	err = svc.Remove(context.Background(), "KEY1", q.ID)
	require.Error(t, err, "another client's question must look like a 404")
}

func TestListWithStatus(t *testing.T) {
	svc, _, d := newQuestionFixture(true)
	_, err := svc.Add(context.Background(), "KEY1", dto.CreateQuestionRequest{Question: "Answered One"})
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), "KEY1", dto.CreateQuestionRequest{Question: "Pending One"})
	require.NoError(t, err)

	d.children["CLIENTS/Acme_KEY1/Answered_One/answer"] = []drive.Item{{ID: "a1", Name: "scan.pdf"}}

	statuses, err := svc.ListWithStatus(context.Background(), "KEY1")
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Complete)
	assert.False(t, statuses[1].Complete)
}
