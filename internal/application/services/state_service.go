package services

import (
	"fmt"

	"github.com/ecowell/eco-engine-go/internal/domain/events"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/scheduler"
)

// RawEvent is the wire shape of one reported interaction.
type RawEvent struct {
	Type string         `json:"type"`
	Page string         `json:"page,omitempty"`
	Meta map[string]any `json:"meta,omitempty"`
}

// StateService ingests interaction event batches from the front end,
// validates them against the known-type allow-list, and fans them out to the
// trigger machine, the streak tracker, and the analytics sink.
type StateService struct {
	trigger   *TriggerService
	streaks   *StreakService
	analytics *AnalyticsService
	clock     scheduler.Clock
	logger    *logging.ChanneledLogger
	perf      *performance.Tracker
}

// NewStateService creates the event ingestion service.
func NewStateService(
	trigger *TriggerService,
	streaks *StreakService,
	analytics *AnalyticsService,
	clock scheduler.Clock,
	logger *logging.ChanneledLogger,
	perf *performance.Tracker,
) *StateService {
	return &StateService{
		trigger:   trigger,
		streaks:   streaks,
		analytics: analytics,
		clock:     clock,
		logger:    logger,
		perf:      perf,
	}
}

// IngestResult summarizes one processed batch.
type IngestResult struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// Ingest processes a batch of reported interactions for one session. Unknown
// types are rejected individually; the rest of the batch still applies.
func (s *StateService) Ingest(guestID, sessionID string, batch []RawEvent) *IngestResult {
	marker := s.perf.StartOperation("state_ingest")
	defer marker.Complete()

	result := &IngestResult{}
	now := s.clock.Now()

	for i, raw := range batch {
		interaction := events.InteractionType(raw.Type)
		if !interaction.Known() {
			result.Rejected++
			result.Errors = append(result.Errors, fmt.Sprintf("event %d: unknown type %q", i, raw.Type))
			continue
		}

		meta, err := events.ParseMetadata(interaction, raw.Meta)
		if err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, fmt.Sprintf("event %d: %v", i, err))
			continue
		}

		event := &events.Event{
			SessionID:  sessionID,
			GuestID:    guestID,
			Type:       interaction,
			Page:       raw.Page,
			OccurredAt: now,
			Meta:       meta,
		}

		if err := s.trigger.RecordInteraction(sessionID, interaction); err != nil {
			s.logger.Engine().Warn("Trigger update failed during ingest", "sessionId", sessionID, "error", err.Error())
		}

		// A completed meditation is the streak-qualifying activity.
		if interaction == events.MeditationCompleted {
			if _, err := s.streaks.Update(guestID); err != nil {
				s.logger.Engine().Warn("Streak update failed during ingest", "guestId", guestID, "error", err.Error())
			}
		}

		s.analytics.Enqueue(event)
		result.Accepted++
	}

	s.logger.Engine().Debug("Event batch ingested",
		"sessionId", sessionID,
		"accepted", result.Accepted,
		"rejected", result.Rejected)
	marker.SetSuccess(true)
	return result
}
