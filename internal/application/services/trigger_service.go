package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ecowell/eco-engine-go/internal/domain/entities/engagement"
	"github.com/ecowell/eco-engine-go/internal/domain/entities/session"
	"github.com/ecowell/eco-engine-go/internal/domain/events"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/caching/stores"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/messaging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/scheduler"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/storage"
	"github.com/ecowell/eco-engine-go/pkg/config"
)

const triggerPrefix = "eco:trigger:"

// triggerSnapshot is the durable cross-session residue of the state machine.
// Only the cooldown needs to outlive the session: accumulators are
// per-session by design, but a dismissal must suppress prompts on every
// later session within the window.
type triggerSnapshot struct {
	CooldownUntil time.Time `json:"cooldownUntil"`
	PromptedAt    time.Time `json:"promptedAt,omitempty"`
}

// TriggerStatus is the externally visible view of a session's trigger state.
type TriggerStatus struct {
	Phase            engagement.TriggerPhase `json:"phase"`
	ForegroundTime   int64                   `json:"foregroundTimeSeconds"`
	InteractionCount int                     `json:"interactionCount"`
	CooldownUntil    *time.Time              `json:"cooldownUntil,omitempty"`
	Authenticated    bool                    `json:"authenticated"`
}

// TriggerService runs the conversion-trigger state machine for every live
// session: accruing foreground time from heartbeats, counting significant
// interactions, and surfacing the prompt over SSE when a threshold crosses.
type TriggerService struct {
	sessions    *stores.SessionsStore
	durable     storage.Adapter
	broadcaster *messaging.PromptBroadcaster
	cfg         engagement.TriggerConfig
	clock       scheduler.Clock
	logger      *logging.ChanneledLogger
	perf        *performance.Tracker
}

// NewTriggerService creates the trigger service.
func NewTriggerService(
	sessions *stores.SessionsStore,
	durable storage.Adapter,
	broadcaster *messaging.PromptBroadcaster,
	cfg engagement.TriggerConfig,
	clock scheduler.Clock,
	logger *logging.ChanneledLogger,
	perf *performance.Tracker,
) *TriggerService {
	return &TriggerService{
		sessions:    sessions,
		durable:     durable,
		broadcaster: broadcaster,
		cfg:         cfg,
		clock:       clock,
		logger:      logger,
		perf:        perf,
	}
}

// state returns the session's trigger state, hydrating the durable cooldown
// into a fresh session the first time it is touched.
func (s *TriggerService) state(sessionID string) (*session.Data, *engagement.TriggerState, error) {
	data, found := s.sessions.GetSession(sessionID)
	if !found {
		return nil, nil, fmt.Errorf("unknown session %q", sessionID)
	}
	if data.Trigger == nil {
		data.Trigger = engagement.NewTriggerState(s.clock.Now())
	}
	s.hydrateOnce(data)
	return data, data.Trigger, nil
}

// hydrateOnce applies the guest's durable cooldown snapshot to a fresh
// trigger machine, so a dismissal in a previous session keeps suppressing
/// prompts. The mark lives on the machine itself: a purged session id that is
// rebound gets a new machine and hydrates again.
func (s *TriggerService) hydrateOnce(data *session.Data) {
	if data.Trigger.Hydrated {
		return
	}
	data.Trigger.Hydrated = true

	raw, found, err := s.durable.Get(triggerPrefix + data.GuestID)
	if err != nil || !found {
		return
	}
	var snap triggerSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.logger.Engine().Warn("Discarding malformed trigger snapshot", "guestId", data.GuestID)
		return
	}
	now := s.clock.Now()
	if now.Before(snap.CooldownUntil) {
		data.Trigger.Phase = engagement.PhaseCooldown
		data.Trigger.CooldownUntil = snap.CooldownUntil
		data.Trigger.PromptedAt = snap.PromptedAt
		data.Trigger.UpdatedAt = now
		s.logger.Engine().Debug("Hydrated cooldown from durable tier", "sessionId", data.SessionID, "until", snap.CooldownUntil)
	}
}

// RecordInteraction counts one interaction toward the threshold. Passive
// interaction types are accepted but do not advance the machine.
func (s *TriggerService) RecordInteraction(sessionID string, interaction events.InteractionType) error {
	marker := s.perf.StartOperation("trigger_record_interaction")
	defer marker.Complete()

	_, state, err := s.state(sessionID)
	if err != nil {
		marker.SetError(err)
		return err
	}
	if !interaction.Significant() {
		marker.SetSuccess(true)
		return nil
	}

	state.RecordInteraction(s.clock.Now(), s.cfg)
	marker.SetSuccess(true)
	return nil
}

// Heartbeat accrues foregrounded time reported by a connected client. Only
// foreground time counts; a backgrounded tab sends no heartbeats.
func (s *TriggerService) Heartbeat(sessionID string, delta time.Duration) error {
	marker := s.perf.StartOperation("trigger_heartbeat")
	defer marker.Complete()

	if delta <= 0 || delta > 5*time.Minute {
		marker.SetSuccess(true)
		return nil // implausible delta, ignore
	}

	data, state, err := s.state(sessionID)
	if err != nil {
		marker.SetError(err)
		return err
	}

	state.AccrueForeground(delta, s.clock.Now(), s.cfg)
	data.Touch(s.clock.Now(), config.SessionTTL)
	marker.SetSuccess(true)
	return nil
}

// Evaluate is the periodic check over every live session. Any session whose
// threshold has crossed gets the prompt pushed over SSE and moves to the
// Prompted phase, so the prompt fires at most once per crossing. Runs from
// the scheduler.
func (s *TriggerService) Evaluate(now time.Time) {
	marker := s.perf.StartOperation("trigger_evaluate")
	defer marker.Complete()

	var prompted int
	for _, data := range s.sessions.AllSessions() {
		if data.Trigger == nil || data.Expired(now) {
			continue
		}
		s.hydrateOnce(data)
		if !data.Trigger.ShouldPrompt(now) {
			continue
		}

		reason := "time_threshold"
		if data.Trigger.InteractionCount >= s.cfg.InteractionLimit {
			reason = "interaction_threshold"
		}
		data.Trigger.MarkPrompted(now)
		s.broadcaster.BroadcastPrompt(data.SessionID, reason, now)
		prompted++

		s.logger.Engine().Info("Conversion prompt surfaced",
			"sessionId", data.SessionID,
			"guestId", data.GuestID,
			"reason", reason,
			"foregroundTime", data.Trigger.ForegroundTime,
			"interactions", data.Trigger.InteractionCount)
	}

	if prompted > 0 {
		s.logger.Engine().Debug("Trigger evaluation pass", "prompted", prompted)
	}
	marker.SetSuccess(true)
}

// Dismiss records that the visitor declined the prompt and opens the
// cooldown window, persisted durably so it spans sessions.
func (s *TriggerService) Dismiss(sessionID string) error {
	marker := s.perf.StartOperation("trigger_dismiss")
	defer marker.Complete()

	data, state, err := s.state(sessionID)
	if err != nil {
		marker.SetError(err)
		return err
	}

	now := s.clock.Now()
	state.Dismiss(now, s.cfg)
	if state.Phase != engagement.PhaseCooldown {
		marker.SetSuccess(true)
		return nil // nothing was prompted; dismissal is a no-op
	}

	snap := triggerSnapshot{CooldownUntil: state.CooldownUntil, PromptedAt: state.PromptedAt}
	raw, _ := json.Marshal(snap)
	if err := s.durable.Set(triggerPrefix+data.GuestID, string(raw)); err != nil {
		s.logger.Engine().Warn("Failed to persist cooldown snapshot", "guestId", data.GuestID, "error", err.Error())
	}

	s.logger.Engine().Info("Conversion prompt dismissed", "sessionId", sessionID, "cooldownUntil", state.CooldownUntil)
	marker.SetSuccess(true)
	return nil
}

// Authenticate is the terminal exit for every live session of the guest:
// once converted, no further prompting occurs. The durable cooldown snapshot
// is cleared as moot.
func (s *TriggerService) Authenticate(guestID string) {
	now := s.clock.Now()
	for _, sessionID := range s.sessions.GetSessionsForGuest(guestID) {
		if data, found := s.sessions.GetSession(sessionID); found && data.Trigger != nil {
			data.Trigger.Authenticate(now)
		}
	}
	if err := s.durable.Remove(triggerPrefix + guestID); err != nil {
		s.logger.Engine().Warn("Failed to clear trigger snapshot", "guestId", guestID, "error", err.Error())
	}
	s.logger.Engine().Info("Trigger terminated by authentication", "guestId", guestID)
}

// Status returns the externally visible trigger state for a session.
func (s *TriggerService) Status(sessionID string) (*TriggerStatus, error) {
	_, state, err := s.state(sessionID)
	if err != nil {
		return nil, err
	}

	// Advancing the cooldown here keeps reads consistent with what the next
	// evaluation pass would see.
	state.ShouldPrompt(s.clock.Now())

	status := &TriggerStatus{
		Phase:            state.Phase,
		ForegroundTime:   int64(state.ForegroundTime / time.Second),
		InteractionCount: state.InteractionCount,
		Authenticated:    state.Authenticated,
	}
	if !state.CooldownUntil.IsZero() && state.Phase == engagement.PhaseCooldown {
		until := state.CooldownUntil
		status.CooldownUntil = &until
	}
	return status, nil
}

// Config exposes the active thresholds (for the state endpoint).
func (s *TriggerService) Config() engagement.TriggerConfig {
	return s.cfg
}
