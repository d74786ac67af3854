package handlers

import (
	"net/http"

	"github.com/ecowell/eco-engine-go/internal/application/services"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// StreakHandlers exposes the daily streak endpoints.
type StreakHandlers struct {
	streaks *services.StreakService
	logger  *logging.ChanneledLogger
	perf    *performance.Tracker
}

// NewStreakHandlers creates streak handlers with injected dependencies.
func NewStreakHandlers(streaks *services.StreakService, logger *logging.ChanneledLogger, perf *performance.Tracker) *StreakHandlers {
	return &StreakHandlers{streaks: streaks, logger: logger, perf: perf}
}

// GetStreak reports the caller's current streak.
func (h *StreakHandlers) GetStreak(c *gin.Context) {
	marker := h.perf.StartOperation("handler_streak_read")
	defer marker.Complete()

	userID, _ := subject(c)
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, h.streaks.Read(userID))
}

// PostComplete records today's qualifying activity. Idempotent within a day.
func (h *StreakHandlers) PostComplete(c *gin.Context) {
	marker := h.perf.StartOperation("handler_streak_complete")
	defer marker.Complete()

	userID, _ := subject(c)
	state, err := h.streaks.Update(userID)
	if err != nil {
		marker.SetError(err)
		h.logger.Engine().Error("Streak update failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streak update failed"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, state)
}

// PostReset clears the caller's streak.
func (h *StreakHandlers) PostReset(c *gin.Context) {
	marker := h.perf.StartOperation("handler_streak_reset")
	defer marker.Complete()

	userID, _ := subject(c)
	if err := h.streaks.Reset(userID); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streak reset failed"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"reset": true})
}
