// Package handlers provides HTTP handlers for the engagement engine API.
package handlers

import (
	"net/http"

	"github.com/ecowell/eco-engine-go/internal/application/services"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"github.com/ecowell/eco-engine-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// IdentityHandlers exposes the identifier-pair endpoints.
type IdentityHandlers struct {
	identity *services.IdentityService
	logger   *logging.ChanneledLogger
	perf     *performance.Tracker
}

// NewIdentityHandlers creates identity handlers with injected dependencies.
func NewIdentityHandlers(identity *services.IdentityService, logger *logging.ChanneledLogger, perf *performance.Tracker) *IdentityHandlers {
	return &IdentityHandlers{identity: identity, logger: logger, perf: perf}
}

// PostEnsure returns the resolved identifier pair for the caller. The
// identity middleware has already done the resolution; this endpoint just
// reports it, so first-visit clients can learn their pair explicitly.
func (h *IdentityHandlers) PostEnsure(c *gin.Context) {
	marker := h.perf.StartOperation("handler_identity_ensure")
	defer marker.Complete()

	resolved := middleware.Identity(c)
	if resolved == nil {
		marker.SetError(nil)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not resolved"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, resolved)
}

// PostReset discards the caller's stored identity. The next request mints a
// fresh pseudonymous pair.
func (h *IdentityHandlers) PostReset(c *gin.Context) {
	marker := h.perf.StartOperation("handler_identity_reset")
	defer marker.Complete()

	resolved := middleware.Identity(c)
	if resolved == nil {
		marker.SetError(nil)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not resolved"})
		return
	}

	if err := h.identity.Reset(resolved.GuestID, resolved.SessionID); err != nil {
		marker.SetError(err)
		h.logger.Engine().Error("Identity reset failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"reset": true})
}
