package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harborfin/onboarding-api/internal/dto"
	"github.com/harborfin/onboarding-api/internal/models"
	appErrors "github.com/harborfin/onboarding-api/pkg/errors"
	"github.com/harborfin/onboarding-api/pkg/jobs"
)

type clientStore interface {
	Create(ctx context.Context, client *models.Client) error
	FindByLoginKey(ctx context.Context, loginKey string) (*models.Client, error)
	List(ctx context.Context, filter models.ClientFilter) ([]models.Client, int, error)
	Update(ctx context.Context, client *models.Client) error
	Delete(ctx context.Context, loginKey string) error
}

type clientQuestionStore interface {
	Create(ctx context.Context, question *models.Question) error
	ListByLoginKey(ctx context.Context, loginKey string) ([]models.Question, error)
}

type clientFolderManager interface {
	EnsureClientFolder(ctx context.Context, loginKey, clientName string) (string, error)
	EnsureQuestionFolders(ctx context.Context, loginKey, clientName string, questions []string) error
	DeleteClientTree(ctx context.Context, loginKey, clientName string) error
}

type cleanupEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// TreeCleanupJobType marks background jobs that remove a client's remote
// folder subtree after the relational row is gone.
const TreeCleanupJobType = "tree_cleanup"

// TreeCleanupPayload identifies the subtree a cleanup job removes.
type TreeCleanupPayload struct {
	LoginKey   string
	ClientName string
}

// ClientService manages client lifecycle: row first, then the remote folder
// tree. There is no transaction spanning both stores; creation compensates
// by deleting the row when the folder cannot be established.
type ClientService struct {
	clients   clientStore
	questions clientQuestionStore
	folders   clientFolderManager
	cleanup   cleanupEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClientService constructs the service.
func NewClientService(clients clientStore, questions clientQuestionStore, folders clientFolderManager, cleanup cleanupEnqueuer, validate *validator.Validate, logger *zap.Logger) *ClientService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{
		clients:   clients,
		questions: questions,
		folders:   folders,
		cleanup:   cleanup,
		validator: validate,
		logger:    logger,
	}
}

// Create registers a client, generates its loginKey and builds the remote
// folder structure for the initial question set.
func (s *ClientService) Create(ctx context.Context, req dto.CreateClientRequest) (*models.Client, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid client payload")
	}

	client := &models.Client{
		LoginKey:     newLoginKey(),
		ClientName:   strings.TrimSpace(req.ClientName),
		ContactEmail: strings.TrimSpace(req.ContactEmail),
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create client")
	}

	folderID, err := s.folders.EnsureClientFolder(ctx, client.LoginKey, client.ClientName)
	if err != nil {
		// No cross-store transaction exists; compensate by removing the row.
		if derr := s.clients.Delete(ctx, client.LoginKey); derr != nil {
			s.logger.Error("failed to roll back client row after folder error",
				zap.String("login_key", client.LoginKey), zap.Error(derr))
		}
		return nil, err
	}
	client.FolderID = folderID
	if err := s.clients.Update(ctx, client); err != nil {
		s.logger.Warn("failed to persist client folder id", zap.String("login_key", client.LoginKey), zap.Error(err))
	}

	questionTexts := make([]string, 0, len(req.Questions))
	for i, text := range req.Questions {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		question := &models.Question{LoginKey: client.LoginKey, Text: text, SortOrder: i}
		if err := s.questions.Create(ctx, question); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create question")
		}
		questionTexts = append(questionTexts, text)
	}
	if len(questionTexts) > 0 {
		if err := s.folders.EnsureQuestionFolders(ctx, client.LoginKey, client.ClientName, questionTexts); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// Get fetches a client by loginKey.
func (s *ClientService) Get(ctx context.Context, loginKey string) (*models.Client, error) {
	client, err := s.clients.FindByLoginKey(ctx, loginKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}
	return client, nil
}

// List returns clients with pagination metadata.
func (s *ClientService) List(ctx context.Context, filter models.ClientFilter) ([]models.Client, *models.Pagination, error) {
	clients, total, err := s.clients.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clients")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	return clients, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Update edits client master data. The folder tree is keyed by loginKey, so
// a display-name change leaves the remote path untouched.
func (s *ClientService) Update(ctx context.Context, loginKey string, req dto.UpdateClientRequest) (*models.Client, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid client payload")
	}
	client, err := s.Get(ctx, loginKey)
	if err != nil {
		return nil, err
	}
	client.ClientName = strings.TrimSpace(req.ClientName)
	client.ContactEmail = strings.TrimSpace(req.ContactEmail)
	if err := s.clients.Update(ctx, client); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update client")
	}
	return client, nil
}

// Delete removes the client row and schedules the remote subtree for
// background removal. Without a queue the tree is deleted inline.
func (s *ClientService) Delete(ctx context.Context, loginKey string) error {
	client, err := s.Get(ctx, loginKey)
	if err != nil {
		return err
	}
	if err := s.clients.Delete(ctx, loginKey); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete client")
	}

	if s.cleanup != nil {
		job := jobs.Job{
			ID:      uuid.NewString(),
			Type:    TreeCleanupJobType,
			Payload: TreeCleanupPayload{LoginKey: client.LoginKey, ClientName: client.ClientName},
		}
		if err := s.cleanup.Enqueue(job); err == nil {
			return nil
		}
		s.logger.Warn("cleanup enqueue failed, deleting tree inline", zap.String("login_key", loginKey), zap.Error(err))
	}
	if err := s.folders.DeleteClientTree(ctx, client.LoginKey, client.ClientName); err != nil {
		s.logger.Error("failed to delete client folder tree", zap.String("login_key", loginKey), zap.Error(err))
		return err
	}
	return nil
}

func newLoginKey() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
}
