package dto

import "github.com/harborfin/onboarding-api/internal/models"

// CreateQuestionRequest adds one question to a client.
type CreateQuestionRequest struct {
	Question  string `json:"question" binding:"required" validate:"required,min=1"`
	SortOrder int    `json:"sort_order"`
}

// UpdateQuestionRequest edits a question's text. A text change whose
// sanitized folder segment differs triggers folder reconciliation.
type UpdateQuestionRequest struct {
	Question string `json:"question" binding:"required" validate:"required,min=1"`
}

// QuestionEdit is one entry of a bulk question replacement. An entry with
// an ID edits the matching existing question; entries without an ID are
// matched to remaining questions by position, and leftovers become new rows.
type QuestionEdit struct {
	ID       *int64 `json:"id"`
	Question string `json:"question" binding:"required" validate:"required,min=1"`
}

// ReplaceQuestionsRequest swaps a client's full question set.
type ReplaceQuestionsRequest struct {
	Questions []QuestionEdit `json:"questions" binding:"required" validate:"required,min=1,dive"`
}

// QuestionStatus is a question plus its derived completion state.
type QuestionStatus struct {
	ID        int64               `json:"id"`
	Question  string              `json:"question"`
	Templates models.TemplateList `json:"templates"`
	Complete  bool                `json:"complete"`
}
