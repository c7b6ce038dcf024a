package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborfin/onboarding-api/internal/dto"
	"github.com/harborfin/onboarding-api/internal/service"
	appErrors "github.com/harborfin/onboarding-api/pkg/errors"
	"github.com/harborfin/onboarding-api/pkg/response"
)

// ReportHandler exposes completion report endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Generate godoc
// @Summary Generate a completion report
// @Description Renders the client's onboarding status as CSV or PDF and returns a signed download URL
// @Tags Reports
// @Accept json
// @Produce json
// @Param loginKey path string true "Client login key"
// @Param payload body dto.GenerateReportRequest true "Report options"
// @Success 201 {object} response.Envelope
// @Router /clients/{loginKey}/reports [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.reports.Generate(c.Request.Context(), c.Param("loginKey"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// Download godoc
// @Summary Download a generated report
// @Tags Reports
// @Produce octet-stream
// @Param id path string true "Report ID"
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /reports/{id}/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	download, err := h.reports.ResolveDownload(c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	contentType := "application/octet-stream"
	switch download.Format {
	case "csv":
		contentType = "text/csv"
	case "pdf":
		contentType = "application/pdf"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, download.File); err != nil {
		_ = c.Error(err)
	}
}
