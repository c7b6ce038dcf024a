package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harborfin/onboarding-api/internal/drive"
	"github.com/harborfin/onboarding-api/internal/dto"
	"github.com/harborfin/onboarding-api/internal/models"
	appErrors "github.com/harborfin/onboarding-api/pkg/errors"
)

type uploadDrive interface {
	RootFolder() string
	Upload(ctx context.Context, path string, content []byte) (string, error)
	Copy(ctx context.Context, itemID, destFolderPath, name string) error
	GetItem(ctx context.Context, path string) (*drive.Item, error)
	Download(ctx context.Context, itemID string) (io.ReadCloser, error)
}

type uploadFolderManager interface {
	EnsureQuestionFolders(ctx context.Context, loginKey, clientName string, questions []string) error
	QuestionPath(loginKey, clientName, questionText string) string
}

type uploadTemplateStore interface {
	UpdateTemplates(ctx context.Context, id int64, templates models.TemplateList) error
}

// UploadService places files into the remote tree. Small payloads go up as
// a single PUT, large ones through a chunked session — the split lives in
// the drive client; this layer owns batch semantics and persistence of
// template references.
type UploadService struct {
	drive     uploadDrive
	folders   uploadFolderManager
	questions uploadTemplateStore
	logger    *zap.Logger
}

// NewUploadService constructs the service.
func NewUploadService(d uploadDrive, folders uploadFolderManager, questions uploadTemplateStore, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{drive: d, folders: folders, questions: questions, logger: logger}
}

// UploadFile places content at CLIENTS/<clientFolder>/<relativePath> and
// returns the created item id.
func (s *UploadService) UploadFile(ctx context.Context, loginKey, clientName, relativePath string, content []byte) (string, error) {
	if err := validateIdentity(loginKey, clientName); err != nil {
		return "", err
	}
	if strings.TrimSpace(relativePath) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "relativePath is required")
	}
	if len(content) == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file content is required")
	}

	dest := s.drive.RootFolder() + "/" + ClientFolderName(loginKey, clientName) + "/" + strings.Trim(relativePath, "/")
	id, err := s.drive.Upload(ctx, dest, content)
	if err != nil {
		return "", wrapRemoteErr(err, "failed to upload file")
	}
	return id, nil
}

// UploadTemplates uploads a batch of template files for a question. One
// file failing never aborts the batch: each file gets its own outcome and
// the remaining set proceeds. Only references with both a file name and a
// remote id survive the valid-templates filter that gets persisted.
func (s *UploadService) UploadTemplates(ctx context.Context, question *models.Question, clientName string, files []dto.TemplateUpload) ([]dto.TemplateUploadResult, error) {
	if question == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "question is required")
	}
	if err := validateIdentity(question.LoginKey, clientName); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "files must not be empty")
	}

	if err := s.folders.EnsureQuestionFolders(ctx, question.LoginKey, clientName, []string{question.Text}); err != nil {
		return nil, err
	}

	destFolder := s.folders.QuestionPath(question.LoginKey, clientName, question.Text) + "/" + templateSubfolder
	results := make([]dto.TemplateUploadResult, 0, len(files))
	refs := make(models.TemplateList, 0, len(files))
	now := time.Now().UTC()

	for _, file := range files {
		result, ref := s.placeTemplate(ctx, destFolder, file, now)
		results = append(results, result)
		refs = append(refs, ref)
	}

	if err := s.questions.UpdateTemplates(ctx, question.ID, refs.Valid()); err != nil {
		return results, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist template references")
	}
	return results, nil
}

// placeTemplate handles one file of a batch: upload fresh content, or copy
// an already-stored remote item when the reference came from a template
// library and no new file was supplied.
func (s *UploadService) placeTemplate(ctx context.Context, destFolder string, file dto.TemplateUpload, now time.Time) (dto.TemplateUploadResult, models.TemplateReference) {
	if len(file.Content) > 0 {
		id, err := s.drive.Upload(ctx, destFolder+"/"+file.FileName, file.Content)
		if err != nil {
			s.logger.Warn("template upload failed",
				zap.String("file_name", file.FileName),
				zap.Error(err),
			)
			return dto.TemplateUploadResult{
				FileName: file.FileName,
				Status:   dto.UploadStatusFailed,
				Error:    drive.Classify(err).Message,
			}, models.TemplateReference{FileName: file.FileName}
		}
		return dto.TemplateUploadResult{
			FileName: file.FileName,
			Status:   dto.UploadStatusSuccess,
			FileID:   id,
		}, models.TemplateReference{FileName: file.FileName, FileID: id, UploadedAt: &now}
	}

	if file.ExistingFileID == "" {
		return dto.TemplateUploadResult{
			FileName: file.FileName,
			Status:   dto.UploadStatusFailed,
			Error:    "no content and no existing file reference",
		}, models.TemplateReference{FileName: file.FileName}
	}

	// Duplicated from a template library: server-side copy preserves
	// content under a new identity.
	if err := s.drive.Copy(ctx, file.ExistingFileID, destFolder, file.FileName); err != nil {
		status := dto.UploadStatusFailed
		if drive.IsNotFound(err) {
			status = dto.UploadStatusNotFound
		}
		s.logger.Warn("template copy failed, keeping stale reference",
			zap.String("file_name", file.FileName),
			zap.String("file_id", file.ExistingFileID),
			zap.Error(err),
		)
		// Keep the stale pointer rather than losing it.
		return dto.TemplateUploadResult{
			FileName: file.FileName,
			Status:   status,
			FileID:   file.ExistingFileID,
			Error:    drive.Classify(err).Message,
		}, models.TemplateReference{FileName: file.FileName, FileID: file.ExistingFileID, UploadedAt: &now}
	}

	fileID := file.ExistingFileID
	if copied, err := s.drive.GetItem(ctx, destFolder+"/"+file.FileName); err == nil {
		fileID = copied.ID
	}
	return dto.TemplateUploadResult{
		FileName: file.FileName,
		Status:   dto.UploadStatusSuccess,
		FileID:   fileID,
	}, models.TemplateReference{FileName: file.FileName, FileID: fileID, UploadedAt: &now}
}

// UploadAnswer stores one client submission. Answer files are never
// overwritten; every submission gets a timestamp-disambiguated name.
func (s *UploadService) UploadAnswer(ctx context.Context, loginKey, clientName, questionText, fileName string, content []byte) (*dto.AnswerUploadResponse, error) {
	if err := validateIdentity(loginKey, clientName); err != nil {
		return nil, err
	}
	if strings.TrimSpace(questionText) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "question is required")
	}
	if len(content) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file content is required")
	}

	if err := s.folders.EnsureQuestionFolders(ctx, loginKey, clientName, []string{questionText}); err != nil {
		return nil, err
	}

	storedName := answerFileName(fileName, time.Now().UTC())
	dest := s.folders.QuestionPath(loginKey, clientName, questionText) + "/" + answerSubfolder + "/" + storedName
	id, err := s.drive.Upload(ctx, dest, content)
	if err != nil {
		return nil, wrapRemoteErr(err, "failed to upload answer file")
	}
	return &dto.AnswerUploadResponse{FileName: storedName, FileID: id}, nil
}

// Download streams a stored file by its remote id.
func (s *UploadService) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fileId is required")
	}
	rc, err := s.drive.Download(ctx, fileID)
	if err != nil {
		return nil, wrapRemoteErr(err, "failed to download file")
	}
	return rc, nil
}

func answerFileName(original string, now time.Time) string {
	ext := path.Ext(original)
	base := strings.TrimSuffix(path.Base(original), ext)
	safeBase := drive.Sanitize(base)
	return fmt.Sprintf("%s_%s%s", safeBase, now.Format("20060102T150405"), strings.ToLower(ext))
}
