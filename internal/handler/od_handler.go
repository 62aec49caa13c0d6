package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/citport/od-portal-api/internal/models"
	"github.com/citport/od-portal-api/internal/service"
	appErrors "github.com/citport/od-portal-api/pkg/errors"
	"github.com/citport/od-portal-api/pkg/response"
)

// ODHandler exposes the on-duty request endpoints.
type ODHandler struct {
	requests *service.RequestService
}

// NewODHandler constructs an ODHandler.
func NewODHandler(requests *service.RequestService) *ODHandler {
	return &ODHandler{requests: requests}
}

// Apply godoc
// @Summary Submit an OD request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body models.RequestDraft true "Request draft"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /od/apply [post]
func (h *ODHandler) Apply(c *gin.Context) {
	var draft models.RequestDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}
	req, err := h.requests.Submit(c.Request.Context(), draft)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, req)
}

// All godoc
// @Summary List every OD request
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /od/all [get]
func (h *ODHandler) All(c *gin.Context) {
	requests, cacheHit, err := h.requests.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, map[string]interface{}{"cache_hit": cacheHit})
}

// ByRollNo godoc
// @Summary List a student's OD requests by roll number
// @Tags Requests
// @Produce json
// @Param rollNo path string true "Roll number"
// @Success 200 {object} response.Envelope
// @Router /od/student/{rollNo} [get]
func (h *ODHandler) ByRollNo(c *gin.Context) {
	entries, err := h.requests.HistoryByRollNo(c.Request.Context(), strings.TrimSpace(c.Param("rollNo")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

// ByEmail godoc
// @Summary List a student's OD requests by email
// @Tags Requests
// @Produce json
// @Param email path string true "Student email"
// @Success 200 {object} response.Envelope
// @Router /od/student/email/{email} [get]
func (h *ODHandler) ByEmail(c *gin.Context) {
	entries, err := h.requests.HistoryByEmail(c.Request.Context(), strings.TrimSpace(c.Param("email")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

// UpdateStatus godoc
// @Summary Approve or reject an OD request
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param payload body models.StatusUpdate true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /od/status/{id} [patch]
func (h *ODHandler) UpdateStatus(c *gin.Context) {
	var update models.StatusUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	req, err := h.requests.UpdateStatus(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req)
}

// Stats godoc
// @Summary Aggregate request counters
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /od/stats [get]
func (h *ODHandler) Stats(c *gin.Context) {
	stats, err := h.requests.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Export godoc
// @Summary Export the request register
// @Tags Requests
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Router /od/export [get]
func (h *ODHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.requests.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("od-register.%s", format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
