package handlers

import (
	"net/http"

	"github.com/ecowell/eco-engine-go/internal/application/services"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/caching/stores"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// HealthHandlers exposes liveness and engine health.
type HealthHandlers struct {
	identity  *services.IdentityService
	analytics *services.AnalyticsService
	sessions  *stores.SessionsStore
	perf      *performance.Tracker
}

// NewHealthHandlers creates health handlers with injected dependencies.
func NewHealthHandlers(identity *services.IdentityService, analytics *services.AnalyticsService, sessions *stores.SessionsStore, perf *performance.Tracker) *HealthHandlers {
	return &HealthHandlers{identity: identity, analytics: analytics, sessions: sessions, perf: perf}
}

// GetHealth reports overall engine health including durable tier
// availability and analytics backpressure.
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	durableUp := h.identity.DurableAvailable()

	status := http.StatusOK
	state := "healthy"
	if !durableUp {
		// The engine still serves requests with a session-scoped identity.
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":        state,
		"durableTier":   durableUp,
		"liveSessions":  h.sessions.Count(),
		"droppedEvents": h.analytics.Dropped(),
		"performance":   h.perf.CalculateHealth(),
	})
}
