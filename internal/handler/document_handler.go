package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborfin/onboarding-api/internal/dto"
	"github.com/harborfin/onboarding-api/internal/service"
	appErrors "github.com/harborfin/onboarding-api/pkg/errors"
	"github.com/harborfin/onboarding-api/pkg/response"
)

// DocumentHandler exposes template and answer file endpoints.
type DocumentHandler struct {
	uploads   *service.UploadService
	clients   *service.ClientService
	questions *service.QuestionService
}

// NewDocumentHandler constructs DocumentHandler.
func NewDocumentHandler(uploads *service.UploadService, clients *service.ClientService, questions *service.QuestionService) *DocumentHandler {
	return &DocumentHandler{uploads: uploads, clients: clients, questions: questions}
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// UploadTemplates godoc
// @Summary Upload template files for a question
// @Description Accepts a multipart batch; each file gets its own outcome and one failure never aborts the rest. The "existing" form field may carry a JSON array of {file_name, existing_file_id} entries to copy already-stored files instead of uploading new content.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param loginKey path string true "Client login key"
// @Param id path int true "Question ID"
// @Param files formData file false "Template files"
// @Param existing formData string false "JSON array of existing file references"
// @Success 200 {object} response.Envelope
// @Router /clients/{loginKey}/questions/{id}/templates [post]
func (h *DocumentHandler) UploadTemplates(c *gin.Context) {
	loginKey := c.Param("loginKey")
	id, err := questionID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	client, err := h.clients.Get(c.Request.Context(), loginKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	question, err := h.questions.Get(c.Request.Context(), loginKey, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart payload"))
		return
	}

	var files []dto.TemplateUpload
	for _, header := range form.File["files"] {
		content, err := readMultipartFile(header)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read uploaded file"))
			return
		}
		files = append(files, dto.TemplateUpload{FileName: header.Filename, Content: content})
	}
	if raw := c.PostForm("existing"); raw != "" {
		var refs []struct {
			FileName       string `json:"file_name"`
			ExistingFileID string `json:"existing_file_id"`
		}
		if err := json.Unmarshal([]byte(raw), &refs); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid existing file references"))
			return
		}
		for _, ref := range refs {
			files = append(files, dto.TemplateUpload{FileName: ref.FileName, ExistingFileID: ref.ExistingFileID})
		}
	}

	results, err := h.uploads.UploadTemplates(c.Request.Context(), question, client.ClientName, files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// UploadAnswer godoc
// @Summary Submit an answer file
// @Description Stores one client submission under the question's answer folder with a timestamped name
// @Tags Portal
// @Accept multipart/form-data
// @Produce json
// @Param loginKey path string true "Client login key"
// @Param id path int true "Question ID"
// @Param file formData file true "Answer file"
// @Success 201 {object} response.Envelope
// @Router /portal/{loginKey}/questions/{id}/answers [post]
func (h *DocumentHandler) UploadAnswer(c *gin.Context) {
	loginKey := c.Param("loginKey")
	id, err := questionID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	client, err := h.clients.Get(c.Request.Context(), loginKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	question, err := h.questions.Get(c.Request.Context(), loginKey, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	content, err := readMultipartFile(header)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read uploaded file"))
		return
	}

	res, err := h.uploads.UploadAnswer(c.Request.Context(), loginKey, client.ClientName, question.Text, header.Filename, content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// PortalQuestions godoc
// @Summary Portal question list
// @Description Lists the client's questions with completion state for the self-service portal
// @Tags Portal
// @Produce json
// @Param loginKey path string true "Client login key"
// @Success 200 {object} response.Envelope
// @Router /portal/{loginKey}/questions [get]
func (h *DocumentHandler) PortalQuestions(c *gin.Context) {
	statuses, err := h.questions.ListWithStatus(c.Request.Context(), c.Param("loginKey"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statuses, nil)
}

// Download godoc
// @Summary Download a stored file
// @Tags Documents
// @Produce octet-stream
// @Param fileId path string true "Remote file ID"
// @Success 200 {file} binary
// @Router /files/{fileId} [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	rc, err := h.uploads.Download(c.Request.Context(), c.Param("fileId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		// Headers are already written; nothing left to do but log via gin.
		_ = c.Error(err)
	}
}
