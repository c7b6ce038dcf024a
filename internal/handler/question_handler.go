package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harborfin/onboarding-api/internal/dto"
	"github.com/harborfin/onboarding-api/internal/service"
	appErrors "github.com/harborfin/onboarding-api/pkg/errors"
	"github.com/harborfin/onboarding-api/pkg/response"
)

// QuestionHandler exposes question management endpoints.
type QuestionHandler struct {
	questions *service.QuestionService
}

// NewQuestionHandler constructs QuestionHandler.
func NewQuestionHandler(questions *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

func questionID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid question id")
	}
	return id, nil
}

// List godoc
// @Summary List questions with completion status
// @Tags Questions
// @Produce json
// @Param loginKey path string true "Client login key"
// @Success 200 {object} response.Envelope
// @Router /clients/{loginKey}/questions [get]
func (h *QuestionHandler) List(c *gin.Context) {
	statuses, err := h.questions.ListWithStatus(c.Request.Context(), c.Param("loginKey"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statuses, nil)
}

// Create godoc
// @Summary Add question
// @Tags Questions
// @Accept json
// @Produce json
// @Param loginKey path string true "Client login key"
// @Param payload body dto.CreateQuestionRequest true "Question payload"
// @Success 201 {object} response.Envelope
// @Router /clients/{loginKey}/questions [post]
func (h *QuestionHandler) Create(c *gin.Context) {
	var req dto.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	question, err := h.questions.Add(c.Request.Context(), c.Param("loginKey"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, question)
}

// Update godoc
// @Summary Edit question text
// @Description Edits a question; a folder-segment change migrates the remote folder
// @Tags Questions
// @Accept json
// @Produce json
// @Param loginKey path string true "Client login key"
// @Param id path int true "Question ID"
// @Param payload body dto.UpdateQuestionRequest true "Question payload"
// @Success 200 {object} response.Envelope
// @Router /clients/{loginKey}/questions/{id} [put]
func (h *QuestionHandler) Update(c *gin.Context) {
	id, err := questionID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	question, err := h.questions.Update(c.Request.Context(), c.Param("loginKey"), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, question, nil)
}

// Replace godoc
// @Summary Replace question set
// @Description Swaps the client's full question list; omitted questions are removed with their folders
// @Tags Questions
// @Accept json
// @Produce json
// @Param loginKey path string true "Client login key"
// @Param payload body dto.ReplaceQuestionsRequest true "Question set"
// @Success 200 {object} response.Envelope
// @Router /clients/{loginKey}/questions [put]
func (h *QuestionHandler) Replace(c *gin.Context) {
	var req dto.ReplaceQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	questions, err := h.questions.Replace(c.Request.Context(), c.Param("loginKey"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, questions, nil)
}

// Delete godoc
// @Summary Remove question
// @Description Removes the question and its remote folder subtree
// @Tags Questions
// @Produce json
// @Param loginKey path string true "Client login key"
// @Param id path int true "Question ID"
// @Success 204
// @Router /clients/{loginKey}/questions/{id} [delete]
func (h *QuestionHandler) Delete(c *gin.Context) {
	id, err := questionID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.questions.Remove(c.Request.Context(), c.Param("loginKey"), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
