package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citport/od-portal-api/internal/models"
	"github.com/citport/od-portal-api/internal/service"
	appErrors "github.com/citport/od-portal-api/pkg/errors"
	"github.com/citport/od-portal-api/pkg/response"
)

// AuthHandler wires the login endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// StudentLogin godoc
// @Summary Student login
// @Description Validates a college email and returns the derived profile
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.StudentLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /od/auth/login [post]
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req models.StudentLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	profile, err := h.service.StudentLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile)
}

// FacultyLogin godoc
// @Summary Faculty login
// @Description Authenticates a reviewer and issues an access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.FacultyLoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /od/auth/faculty-login [post]
func (h *AuthHandler) FacultyLogin(c *gin.Context) {
	var req models.FacultyLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.FacultyLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res)
}
