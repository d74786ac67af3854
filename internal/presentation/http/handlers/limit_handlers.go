package handlers

import (
	"net/http"

	"github.com/ecowell/eco-engine-go/internal/application/services"
	"github.com/ecowell/eco-engine-go/internal/domain/entities/engagement"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"github.com/ecowell/eco-engine-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// LimitHandlers exposes the daily usage limit endpoints.
type LimitHandlers struct {
	limits *services.LimitService
	logger *logging.ChanneledLogger
	perf   *performance.Tracker
}

// NewLimitHandlers creates limit handlers with injected dependencies.
func NewLimitHandlers(limits *services.LimitService, logger *logging.ChanneledLogger, perf *performance.Tracker) *LimitHandlers {
	return &LimitHandlers{limits: limits, logger: logger, perf: perf}
}

// subject resolves whose counter applies and at what tier. An authenticated
// profile takes precedence: its lead id keys the counter and its tier sets
// the cap. Guests use the guest id at the free tier.
func subject(c *gin.Context) (string, engagement.Tier) {
	if profile := middleware.Profile(c); profile != nil {
		return profile.LeadID, engagement.Tier(profile.Tier)
	}
	return middleware.GuestID(c), engagement.TierFree
}

// GetLimit reports the current gate decision without consuming usage.
func (h *LimitHandlers) GetLimit(c *gin.Context) {
	marker := h.perf.StartOperation("handler_limits_read")
	defer marker.Complete()

	feature, err := services.FeatureFromString(c.Param("feature"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, tier := subject(c)
	status, err := h.limits.Read(userID, feature, tier)
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "limit read failed"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, status)
}

// PostIncrement consumes one unit of usage and reports the post-increment
// decision. Returns 429 when the cap was already reached.
func (h *LimitHandlers) PostIncrement(c *gin.Context) {
	marker := h.perf.StartOperation("handler_limits_increment")
	defer marker.Complete()

	feature, err := services.FeatureFromString(c.Param("feature"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, tier := subject(c)
	before, err := h.limits.Read(userID, feature, tier)
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "limit read failed"})
		return
	}
	if before.ReachedLimit {
		marker.SetSuccess(true)
		c.JSON(http.StatusTooManyRequests, before)
		return
	}

	status, err := h.limits.Increment(userID, middleware.SessionID(c), feature, tier)
	if err != nil {
		marker.SetError(err)
		h.logger.Engine().Error("Limit increment failed", "feature", string(feature), "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "limit increment failed"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, status)
}
