package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harborfin/onboarding-api/internal/drive"
	"github.com/harborfin/onboarding-api/internal/dto"
	"github.com/harborfin/onboarding-api/internal/models"
)

type fakeTemplateStore struct {
	saved map[int64]models.TemplateList
}

func (f *fakeTemplateStore) UpdateTemplates(_ context.Context, id int64, templates models.TemplateList) error {
	if f.saved == nil {
		f.saved = map[int64]models.TemplateList{}
	}
	f.saved[id] = templates
	return nil
}

func newUploadFixture() (*UploadService, *fakeDrive, *fakeTemplateStore) {
	d := newFakeDrive()
	folders := NewFolderService(d, zap.NewNop(), FolderServiceConfig{PreserveAnswersOnRename: true})
	store := &fakeTemplateStore{}
	return NewUploadService(d, folders, store, zap.NewNop()), d, store
}

func TestUploadTemplatesBatchOutcomes(t *testing.T) {
	svc, d, store := newUploadFixture()
	question := &models.Question{ID: 7, LoginKey: "KEY1", Text: "Proof of identity?"}

	d.uploadErr["CLIENTS/Acme_KEY1/Proof_of_identity/template/bad.pdf"] =
		&drive.RemoteError{Message: "boom", StatusCode: http.StatusBadGateway}

	results, err := svc.UploadTemplates(context.Background(), question, "Acme", []dto.TemplateUpload{
		{FileName: "good.pdf", Content: []byte("ok")},
		{FileName: "bad.pdf", Content: []byte("ko")},
		{FileName: "also-good.pdf", Content: []byte("ok2")},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, dto.UploadStatusSuccess, results[0].Status)
	assert.NotEmpty(t, results[0].FileID)
	assert.Equal(t, dto.UploadStatusFailed, results[1].Status)
	assert.Empty(t, results[1].FileID)
	assert.Equal(t, dto.UploadStatusSuccess, results[2].Status, "one failure must not abort the batch")

	// Only complete references are persisted.
	saved := store.saved[7]
	require.Len(t, saved, 2)
	for _, ref := range saved {
		assert.True(t, ref.Valid())
		assert.NotEqual(t, "bad.pdf", ref.FileName)
	}
}

func TestUploadTemplatesCopyFromLibrary(t *testing.T) {
	svc, d, store := newUploadFixture()
	question := &models.Question{ID: 3, LoginKey: "KEY1", Text: "Signed agreement"}

	results, err := svc.UploadTemplates(context.Background(), question, "Acme", []dto.TemplateUpload{
		{FileName: "master.docx", ExistingFileID: "lib-1"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, dto.UploadStatusSuccess, results[0].Status)
	assert.Equal(t, "CLIENTS/Acme_KEY1/Signed_agreement/template/master.docx", d.copies["lib-1"])
	assert.Equal(t, "copied-lib-1", results[0].FileID, "copy must resolve the new item identity")
	require.Len(t, store.saved[3], 1)
}

func TestUploadTemplatesStaleLibraryReferenceKept(t *testing.T) {
	svc, d, store := newUploadFixture()
	question := &models.Question{ID: 4, LoginKey: "KEY1", Text: "Signed agreement"}

	d.copyErr["gone-1"] = &drive.RemoteError{Message: "missing", StatusCode: http.StatusNotFound}

	results, err := svc.UploadTemplates(context.Background(), question, "Acme", []dto.TemplateUpload{
		{FileName: "master.docx", ExistingFileID: "gone-1"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, dto.UploadStatusNotFound, results[0].Status)
	assert.Equal(t, "gone-1", results[0].FileID, "the stale pointer survives for manual repair")

	saved := store.saved[4]
	require.Len(t, saved, 1)
	assert.Equal(t, "gone-1", saved[0].FileID)
}

func TestUploadAnswerTimestampsFileName(t *testing.T) {
	svc, d, _ := newUploadFixture()

	res, err := svc.UploadAnswer(context.Background(), "KEY1", "Acme", "Proof of identity?", "my scan (final).PDF", []byte("data"))
	require.NoError(t, err)
	assert.Regexp(t, `^my_scan_final_\d{8}T\d{6}\.pdf$`, res.FileName)
	assert.NotEmpty(t, res.FileID)

	dest := "CLIENTS/Acme_KEY1/Proof_of_identity/answer/" + res.FileName
	assert.Equal(t, []byte("data"), d.uploads[dest])
}

func TestUploadFileValidation(t *testing.T) {
	svc, _, _ := newUploadFixture()

	_, err := svc.UploadFile(context.Background(), "", "Acme", "a/b.txt", []byte("x"))
	assert.Error(t, err)
	_, err = svc.UploadFile(context.Background(), "KEY1", "Acme", "", []byte("x"))
	assert.Error(t, err)
	_, err = svc.UploadFile(context.Background(), "KEY1", "Acme", "a/b.txt", nil)
	assert.Error(t, err)
}

func TestAnswerFileNameFormat(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	assert.Equal(t, "report_20260314T092653.pdf", answerFileName("report.pdf", now))
	assert.Equal(t, "unnamed_20260314T092653", answerFileName("???", now))
}
