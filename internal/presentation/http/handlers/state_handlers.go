package handlers

import (
	"net/http"
	"time"

	"github.com/ecowell/eco-engine-go/internal/application/services"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/scheduler"
	"github.com/ecowell/eco-engine-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// ActivityCounter reports recent persisted interaction volume for a guest.
type ActivityCounter interface {
	CountByGuestSince(guestID string, since time.Time) (int, error)
}

// StateHandlers exposes event ingestion and the aggregate state snapshot.
type StateHandlers struct {
	state    *services.StateService
	limits   *services.LimitService
	streaks  *services.StreakService
	trigger  *services.TriggerService
	identity *services.IdentityService
	activity ActivityCounter
	clock    scheduler.Clock
	logger   *logging.ChanneledLogger
	perf     *performance.Tracker
}

// NewStateHandlers creates state handlers with injected dependencies.
func NewStateHandlers(
	state *services.StateService,
	limits *services.LimitService,
	streaks *services.StreakService,
	trigger *services.TriggerService,
	identity *services.IdentityService,
	activity ActivityCounter,
	clock scheduler.Clock,
	logger *logging.ChanneledLogger,
	perf *performance.Tracker,
) *StateHandlers {
	return &StateHandlers{
		state:    state,
		limits:   limits,
		streaks:  streaks,
		trigger:  trigger,
		identity: identity,
		activity: activity,
		clock:    clock,
		logger:   logger,
		perf:     perf,
	}
}

type stateRequest struct {
	Events []services.RawEvent `json:"events" binding:"required"`
}

// PostState ingests a batch of interaction events for the caller's session.
func (h *StateHandlers) PostState(c *gin.Context) {
	marker := h.perf.StartOperation("handler_state_post")
	defer marker.Complete()

	var req stateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Events) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty event batch"})
		return
	}

	result := h.state.Ingest(middleware.GuestID(c), middleware.SessionID(c), req.Events)
	h.identity.TouchSession(middleware.SessionID(c))

	status := http.StatusOK
	if result.Accepted == 0 {
		status = http.StatusUnprocessableEntity
	}

	marker.SetSuccess(true)
	c.JSON(status, result)
}

// GetState returns the aggregate engagement snapshot for the caller:
// identity, both daily limits, streak, and trigger status in one response.
func (h *StateHandlers) GetState(c *gin.Context) {
	marker := h.perf.StartOperation("handler_state_get")
	defer marker.Complete()

	userID, tier := subject(c)

	messages, err := h.limits.Read(userID, "messages", tier)
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "state read failed"})
		return
	}
	voice, err := h.limits.Read(userID, "voice", tier)
	if err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "state read failed"})
		return
	}

	triggerStatus, err := h.trigger.Status(middleware.SessionID(c))
	if err != nil {
		// A session can expire between requests; report trigger as absent.
		triggerStatus = nil
	}

	// Recent activity is best-effort: a failed count never fails the snapshot.
	var recent int
	if h.activity != nil {
		if n, err := h.activity.CountByGuestSince(middleware.GuestID(c), h.clock.Now().Add(-24*time.Hour)); err == nil {
			recent = n
		} else {
			h.logger.Engine().Warn("Activity count failed", "guestId", middleware.GuestID(c), "error", err.Error())
		}
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{
		"identity": middleware.Identity(c),
		"tier":     tier,
		"limits": gin.H{
			"messages": messages,
			"voice":    voice,
		},
		"streak":  h.streaks.Read(userID),
		"trigger": triggerStatus,
		"activity": gin.H{
			"eventsLast24h": recent,
		},
	})
}
