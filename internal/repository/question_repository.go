package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/harborfin/onboarding-api/internal/models"
)

// QuestionRepository persists onboarding questions and their template
// reference arrays (serialized JSON in the templates text column).
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository constructs the repository.
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create inserts a question and backfills the generated id.
func (r *QuestionRepository) Create(ctx context.Context, question *models.Question) error {
	const query = `INSERT INTO questions (login_key, question, templates, sort_order, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	now := time.Now().UTC()
	question.CreatedAt = now
	question.UpdatedAt = now
	if question.Templates == nil {
		question.Templates = models.TemplateList{}
	}
	if err := r.db.QueryRowxContext(ctx, query,
		question.LoginKey, question.Text, question.Templates, question.SortOrder, now, now,
	).Scan(&question.ID); err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// FindByID fetches one question.
func (r *QuestionRepository) FindByID(ctx context.Context, id int64) (*models.Question, error) {
	const query = `SELECT id, login_key, question, templates, sort_order, created_at, updated_at
FROM questions WHERE id = $1`
	var question models.Question
	if err := r.db.GetContext(ctx, &question, query, id); err != nil {
		return nil, err
	}
	return &question, nil
}

// ListByLoginKey returns a client's questions in display order.
func (r *QuestionRepository) ListByLoginKey(ctx context.Context, loginKey string) ([]models.Question, error) {
	const query = `SELECT id, login_key, question, templates, sort_order, created_at, updated_at
FROM questions WHERE login_key = $1 ORDER BY sort_order ASC, id ASC`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, loginKey); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// UpdateText changes a question's text.
func (r *QuestionRepository) UpdateText(ctx context.Context, id int64, text string) error {
	const query = `UPDATE questions SET question = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, text, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update question text: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update question %d: no rows affected", id)
	}
	return nil
}

// UpdateTemplates replaces the question's template reference array.
func (r *QuestionRepository) UpdateTemplates(ctx context.Context, id int64, templates models.TemplateList) error {
	const query = `UPDATE questions SET templates = $1, updated_at = $2 WHERE id = $3`
	if templates == nil {
		templates = models.TemplateList{}
	}
	if _, err := r.db.ExecContext(ctx, query, templates, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update question templates: %w", err)
	}
	return nil
}

// Delete removes a question row.
func (r *QuestionRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM questions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}
