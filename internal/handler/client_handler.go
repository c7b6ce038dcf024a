package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harborfin/onboarding-api/internal/dto"
	"github.com/harborfin/onboarding-api/internal/models"
	"github.com/harborfin/onboarding-api/internal/service"
	appErrors "github.com/harborfin/onboarding-api/pkg/errors"
	"github.com/harborfin/onboarding-api/pkg/response"
)

// ClientHandler exposes client management endpoints.
type ClientHandler struct {
	clients *service.ClientService
}

// NewClientHandler constructs ClientHandler.
func NewClientHandler(clients *service.ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

// List godoc
// @Summary List clients
// @Tags Clients
// @Produce json
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /clients [get]
func (h *ClientHandler) List(c *gin.Context) {
	var filter models.ClientFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	clients, pagination, err := h.clients.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, clients, pagination)
}

// Get godoc
// @Summary Get client detail
// @Tags Clients
// @Produce json
// @Param loginKey path string true "Client login key"
// @Success 200 {object} response.Envelope
// @Router /clients/{loginKey} [get]
func (h *ClientHandler) Get(c *gin.Context) {
	client, err := h.clients.Get(c.Request.Context(), c.Param("loginKey"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, client, nil)
}

// Create godoc
// @Summary Create client
// @Description Creates the client record, generates its login key and builds the remote folder tree
// @Tags Clients
// @Accept json
// @Produce json
// @Param payload body dto.CreateClientRequest true "Client payload"
// @Success 201 {object} response.Envelope
// @Router /clients [post]
func (h *ClientHandler) Create(c *gin.Context) {
	var req dto.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	client, err := h.clients.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, client)
}

// Update godoc
// @Summary Update client
// @Tags Clients
// @Accept json
// @Produce json
// @Param loginKey path string true "Client login key"
// @Param payload body dto.UpdateClientRequest true "Client payload"
// @Success 200 {object} response.Envelope
// @Router /clients/{loginKey} [put]
func (h *ClientHandler) Update(c *gin.Context) {
	var req dto.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	client, err := h.clients.Update(c.Request.Context(), c.Param("loginKey"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, client, nil)
}

// Delete godoc
// @Summary Delete client
// @Description Removes the client and schedules its remote folder tree for cleanup
// @Tags Clients
// @Produce json
// @Param loginKey path string true "Client login key"
// @Success 204
// @Router /clients/{loginKey} [delete]
func (h *ClientHandler) Delete(c *gin.Context) {
	if err := h.clients.Delete(c.Request.Context(), c.Param("loginKey")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
