package services

import (
	"encoding/json"
	"fmt"

	"github.com/ecowell/eco-engine-go/internal/domain/entities/engagement"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/scheduler"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/storage"
)

const streakPrefix = "eco:streak:"

// StreakService maintains the consecutive-day activity streak per user.
type StreakService struct {
	durable storage.Adapter
	clock   scheduler.Clock
	logger  *logging.ChanneledLogger
	perf    *performance.Tracker
}

// NewStreakService creates the streak service.
func NewStreakService(
	durable storage.Adapter,
	clock scheduler.Clock,
	logger *logging.ChanneledLogger,
	perf *performance.Tracker,
) *StreakService {
	return &StreakService{
		durable: durable,
		clock:   clock,
		logger:  logger,
		perf:    perf,
	}
}

// Read returns the stored streak. A malformed record reads as an empty
// streak rather than an error.
func (s *StreakService) Read(userID string) engagement.StreakState {
	raw, found, err := s.durable.Get(streakPrefix + userID)
	if err != nil {
		s.logger.Engine().Warn("Streak read failed, treating as empty", "userId", userID, "error", err.Error())
		return engagement.StreakState{}
	}
	if !found {
		return engagement.StreakState{}
	}

	var state engagement.StreakState
	if err := json.Unmarshal([]byte(raw), &state); err != nil || state.CurrentStreak < 0 {
		s.logger.Engine().Warn("Discarding malformed streak record", "userId", userID)
		return engagement.StreakState{}
	}
	return state
}

// Update folds a completed-today activity into the streak and persists the
// result as one atomic write. Same-day calls are idempotent.
func (s *StreakService) Update(userID string) (engagement.StreakState, error) {
	marker := s.perf.StartOperation("streak_update")
	defer marker.Complete()

	today := engagement.FormatDate(s.clock.Now())
	state := s.Read(userID).Apply(today)

	raw, err := json.Marshal(state)
	if err != nil {
		marker.SetError(err)
		return engagement.StreakState{}, err
	}
	if err := s.durable.Set(streakPrefix+userID, string(raw)); err != nil {
		marker.SetError(err)
		return engagement.StreakState{}, fmt.Errorf("failed to store streak: %w", err)
	}

	s.logger.Engine().Debug("Streak updated", "userId", userID, "current", state.CurrentStreak, "longest", state.LongestStreak)
	marker.SetSuccess(true)
	return state, nil
}

// Reset clears the stored streak for a user.
func (s *StreakService) Reset(userID string) error {
	if err := s.durable.Remove(streakPrefix + userID); err != nil {
		return fmt.Errorf("failed to reset streak: %w", err)
	}
	s.logger.Engine().Info("Streak reset", "userId", userID)
	return nil
}
