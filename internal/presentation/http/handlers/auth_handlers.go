package handlers

import (
	"net/http"

	"github.com/ecowell/eco-engine-go/internal/application/services"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"github.com/ecowell/eco-engine-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandlers exposes registration and login for converting guests.
type AuthHandlers struct {
	auth   *services.AuthService
	logger *logging.ChanneledLogger
	perf   *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies.
func NewAuthHandlers(auth *services.AuthService, logger *logging.ChanneledLogger, perf *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{auth: auth, logger: logger, perf: perf}
}

type registerRequest struct {
	Firstname string `json:"firstname" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// PostRegister converts the calling guest into a lead.
func (h *AuthHandlers) PostRegister(c *gin.Context) {
	marker := h.perf.StartOperation("handler_auth_register")
	defer marker.Complete()

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "firstname, email, and password are required"})
		return
	}

	result, err := h.auth.Register(req.Firstname, req.Email, req.Password, middleware.GuestID(c))
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusCreated, result)
}

// PostLogin authenticates a returning lead and links the current guest id.
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	marker := h.perf.StartOperation("handler_auth_login")
	defer marker.Complete()

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	result, err := h.auth.Login(req.Email, req.Password, middleware.GuestID(c))
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, result)
}

// GetStatus reports whether the caller is authenticated and as whom.
func (h *AuthHandlers) GetStatus(c *gin.Context) {
	profile := middleware.Profile(c)
	if profile == nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false, "guestId": middleware.GuestID(c)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "profile": profile})
}
