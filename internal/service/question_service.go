package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harborfin/onboarding-api/internal/drive"
	"github.com/harborfin/onboarding-api/internal/dto"
	"github.com/harborfin/onboarding-api/internal/models"
	appErrors "github.com/harborfin/onboarding-api/pkg/errors"
)

type questionStore interface {
	Create(ctx context.Context, question *models.Question) error
	FindByID(ctx context.Context, id int64) (*models.Question, error)
	ListByLoginKey(ctx context.Context, loginKey string) ([]models.Question, error)
	UpdateText(ctx context.Context, id int64, text string) error
	UpdateTemplates(ctx context.Context, id int64, templates models.TemplateList) error
	Delete(ctx context.Context, id int64) error
}

type questionFolderManager interface {
	EnsureQuestionFolders(ctx context.Context, loginKey, clientName string, questions []string) error
	ReconcileRename(ctx context.Context, loginKey, clientName, oldText, newText string) error
	DeleteQuestionTree(ctx context.Context, loginKey, clientName, questionText string) error
	IsComplete(ctx context.Context, loginKey, clientName, questionText string) bool
	PreservesAnswersOnRename() bool
}

type questionClientStore interface {
	FindByLoginKey(ctx context.Context, loginKey string) (*models.Client, error)
}

// QuestionService manages a client's question set and keeps the remote
// folder hierarchy aligned with every text edit.
type QuestionService struct {
	questions questionStore
	clients   questionClientStore
	folders   questionFolderManager
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQuestionService constructs the service.
func NewQuestionService(questions questionStore, clients questionClientStore, folders questionFolderManager, validate *validator.Validate, logger *zap.Logger) *QuestionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionService{
		questions: questions,
		clients:   clients,
		folders:   folders,
		validator: validate,
		logger:    logger,
	}
}

func (s *QuestionService) client(ctx context.Context, loginKey string) (*models.Client, error) {
	client, err := s.clients.FindByLoginKey(ctx, loginKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}
	return client, nil
}

// Add appends a question and creates its folder structure.
func (s *QuestionService) Add(ctx context.Context, loginKey string, req dto.CreateQuestionRequest) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
	}
	client, err := s.client(ctx, loginKey)
	if err != nil {
		return nil, err
	}

	question := &models.Question{
		LoginKey:  loginKey,
		Text:      strings.TrimSpace(req.Question),
		SortOrder: req.SortOrder,
	}
	if err := s.questions.Create(ctx, question); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create question")
	}
	if err := s.folders.EnsureQuestionFolders(ctx, loginKey, client.ClientName, []string{question.Text}); err != nil {
		return nil, err
	}
	return question, nil
}

// Update edits a question's text. When the sanitized folder segment
// changes, the remote folder is reconciled; in the destructive legacy
// rename mode the stored template references are cleared alongside, since
// the files they pointed at are gone.
func (s *QuestionService) Update(ctx context.Context, loginKey string, id int64, req dto.UpdateQuestionRequest) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
	}
	client, err := s.client(ctx, loginKey)
	if err != nil {
		return nil, err
	}
	question, err := s.find(ctx, loginKey, id)
	if err != nil {
		return nil, err
	}

	newText := strings.TrimSpace(req.Question)
	if newText == question.Text {
		return question, nil
	}

	segmentChanged := drive.Sanitize(question.Text) != drive.Sanitize(newText)
	if segmentChanged {
		if err := s.folders.ReconcileRename(ctx, loginKey, client.ClientName, question.Text, newText); err != nil {
			return nil, err
		}
	}
	if err := s.questions.UpdateText(ctx, id, newText); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update question")
	}
	question.Text = newText

	if segmentChanged && !s.folders.PreservesAnswersOnRename() && len(question.Templates) > 0 {
		// Destructive rename removed the template files with the folder.
		if err := s.questions.UpdateTemplates(ctx, id, models.TemplateList{}); err != nil {
			s.logger.Warn("failed to clear stale template references",
				zap.Int64("question_id", id), zap.Error(err))
		} else {
			question.Templates = models.TemplateList{}
		}
	}
	return question, nil
}

// Replace swaps the client's full question set. Entries carrying an id edit
// that question in place; entries without an id are matched positionally to
// the remaining existing questions, and any surplus becomes new questions.
// Existing questions absent from the new set are removed with their folders.
func (s *QuestionService) Replace(ctx context.Context, loginKey string, req dto.ReplaceQuestionsRequest) ([]models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
	}
	client, err := s.client(ctx, loginKey)
	if err != nil {
		return nil, err
	}
	existing, err := s.questions.ListByLoginKey(ctx, loginKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}

	byID := make(map[int64]*models.Question, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
	}

	claimed := make(map[int64]bool, len(existing))
	type pairing struct {
		edit     dto.QuestionEdit
		existing *models.Question
	}
	pairings := make([]pairing, 0, len(req.Questions))

	for _, edit := range req.Questions {
		p := pairing{edit: edit}
		if edit.ID != nil {
			match, ok := byID[*edit.ID]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
			}
			p.existing = match
			claimed[match.ID] = true
		}
		pairings = append(pairings, p)
	}
	// Positional fallback: id-less edits consume unclaimed questions in order.
	cursor := 0
	for i := range pairings {
		if pairings[i].existing != nil {
			continue
		}
		for cursor < len(existing) && claimed[existing[cursor].ID] {
			cursor++
		}
		if cursor < len(existing) {
			pairings[i].existing = &existing[cursor]
			claimed[existing[cursor].ID] = true
			cursor++
		}
	}

	result := make([]models.Question, 0, len(pairings))
	for i, p := range pairings {
		text := strings.TrimSpace(p.edit.Question)
		if p.existing == nil {
			question := &models.Question{LoginKey: loginKey, Text: text, SortOrder: i}
			if err := s.questions.Create(ctx, question); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create question")
			}
			if err := s.folders.EnsureQuestionFolders(ctx, loginKey, client.ClientName, []string{text}); err != nil {
				return nil, err
			}
			result = append(result, *question)
			continue
		}

		updated, err := s.Update(ctx, loginKey, p.existing.ID, dto.UpdateQuestionRequest{Question: text})
		if err != nil {
			return nil, err
		}
		result = append(result, *updated)
	}

	for i := range existing {
		if claimed[existing[i].ID] {
			continue
		}
		if err := s.remove(ctx, client, &existing[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Remove deletes a question and its remote folder subtree.
func (s *QuestionService) Remove(ctx context.Context, loginKey string, id int64) error {
	client, err := s.client(ctx, loginKey)
	if err != nil {
		return err
	}
	question, err := s.find(ctx, loginKey, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, client, question)
}

func (s *QuestionService) remove(ctx context.Context, client *models.Client, question *models.Question) error {
	if err := s.folders.DeleteQuestionTree(ctx, client.LoginKey, client.ClientName, question.Text); err != nil {
		return err
	}
	if err := s.questions.Delete(ctx, question.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete question")
	}
	return nil
}

// Get fetches one question, scoped to the client.
func (s *QuestionService) Get(ctx context.Context, loginKey string, id int64) (*models.Question, error) {
	return s.find(ctx, loginKey, id)
}

// ListWithStatus returns the client's questions with per-question
// completion derived from the remote answer folders.
func (s *QuestionService) ListWithStatus(ctx context.Context, loginKey string) ([]dto.QuestionStatus, error) {
	client, err := s.client(ctx, loginKey)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByLoginKey(ctx, loginKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}

	statuses := make([]dto.QuestionStatus, 0, len(questions))
	for _, question := range questions {
		statuses = append(statuses, dto.QuestionStatus{
			ID:        question.ID,
			Question:  question.Text,
			Templates: question.Templates,
			Complete:  s.folders.IsComplete(ctx, loginKey, client.ClientName, question.Text),
		})
	}
	return statuses, nil
}

func (s *QuestionService) find(ctx context.Context, loginKey string, id int64) (*models.Question, error) {
	question, err := s.questions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	if question.LoginKey != loginKey {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
	}
	return question, nil
}
