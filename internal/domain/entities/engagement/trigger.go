package engagement

import "time"

// TriggerPhase is a state of the conversion-trigger state machine.
type TriggerPhase string

const (
	PhaseTracking         TriggerPhase = "tracking"
	PhaseThresholdReached TriggerPhase = "threshold_reached"
	PhasePrompted         TriggerPhase = "prompted"
	PhaseCooldown         TriggerPhase = "cooldown"
)

// TriggerConfig holds the thresholds governing the state machine.
type TriggerConfig struct {
	TimeLimit        time.Duration `json:"timeLimit"`
	InteractionLimit int           `json:"interactionLimit"`
	Cooldown         time.Duration `json:"cooldown"`
}

// TriggerState accumulates foreground time and significant interactions for
// one anonymous-visitor session and decides when to surface the conversion
// prompt. Once Authenticated is set the machine is terminal and every
// mutation is a no-op.
type TriggerState struct {
	Phase            TriggerPhase  `json:"phase"`
	ForegroundTime   time.Duration `json:"foregroundTime"`
	InteractionCount int           `json:"interactionCount"`
	PromptedAt       time.Time     `json:"promptedAt,omitempty"`
	CooldownUntil    time.Time     `json:"cooldownUntil,omitempty"`
	Authenticated    bool          `json:"authenticated"`
	UpdatedAt        time.Time     `json:"updatedAt"`

	// Hydrated marks that the guest's durable cooldown snapshot has been
	// applied to this state. It is per-machine, so a purged-and-rebound
	// session starts a fresh machine that hydrates again.
	Hydrated bool `json:"-"`
}

// NewTriggerState returns a fresh state in the Tracking phase.
func NewTriggerState(now time.Time) *TriggerState {
	return &TriggerState{
		Phase:     PhaseTracking,
		UpdatedAt: now,
	}
}

// RecordInteraction counts one allow-listed interaction and re-checks the
// thresholds. Thresholds are checked on every event so whichever limit is
// crossed first wins.
func (ts *TriggerState) RecordInteraction(now time.Time, cfg TriggerConfig) {
	if ts.Authenticated {
		return
	}
	if ts.Phase != PhaseTracking {
		ts.advanceCooldown(now)
		if ts.Phase != PhaseTracking {
			return
		}
	}

	ts.InteractionCount++
	ts.UpdatedAt = now
	ts.checkThresholds(cfg)
}

// AccrueForeground adds foregrounded time from a heartbeat tick and re-checks
// the thresholds.
func (ts *TriggerState) AccrueForeground(delta time.Duration, now time.Time, cfg TriggerConfig) {
	if ts.Authenticated {
		return
	}
	if ts.Phase != PhaseTracking {
		ts.advanceCooldown(now)
		if ts.Phase != PhaseTracking {
			return
		}
	}

	ts.ForegroundTime += delta
	ts.UpdatedAt = now
	ts.checkThresholds(cfg)
}

// ShouldPrompt reports whether the periodic check must surface the prompt.
// It returns true exactly once per threshold crossing: the caller is expected
// to follow up with MarkPrompted.
func (ts *TriggerState) ShouldPrompt(now time.Time) bool {
	if ts.Authenticated {
		return false
	}
	ts.advanceCooldown(now)
	return ts.Phase == PhaseThresholdReached
}

// MarkPrompted records that the prompt was surfaced.
func (ts *TriggerState) MarkPrompted(now time.Time) {
	if ts.Authenticated || ts.Phase != PhaseThresholdReached {
		return
	}
	ts.Phase = PhasePrompted
	ts.PromptedAt = now
	ts.UpdatedAt = now
}

// Dismiss records a dismissal (not a conversion) and starts the cooldown
// window during which no second prompt may occur.
func (ts *TriggerState) Dismiss(now time.Time, cfg TriggerConfig) {
	if ts.Authenticated || ts.Phase != PhasePrompted {
		return
	}
	ts.Phase = PhaseCooldown
	ts.CooldownUntil = now.Add(cfg.Cooldown)
	ts.UpdatedAt = now
}

// Authenticate is the terminal exit: once a real user id exists, no further
// evaluation occurs for this session.
func (ts *TriggerState) Authenticate(now time.Time) {
	ts.Authenticated = true
	ts.UpdatedAt = now
}

// advanceCooldown returns the machine to Tracking once the cooldown window
// has elapsed, with the accumulators reset so the next crossing is earned
// from scratch.
func (ts *TriggerState) advanceCooldown(now time.Time) {
	if ts.Phase != PhaseCooldown || now.Before(ts.CooldownUntil) {
		return
	}
	ts.Phase = PhaseTracking
	ts.ForegroundTime = 0
	ts.InteractionCount = 0
	ts.UpdatedAt = now
}

// checkThresholds moves Tracking to ThresholdReached when either limit is met.
func (ts *TriggerState) checkThresholds(cfg TriggerConfig) {
	if ts.Phase != PhaseTracking {
		return
	}
	if ts.ForegroundTime >= cfg.TimeLimit || ts.InteractionCount >= cfg.InteractionLimit {
		ts.Phase = PhaseThresholdReached
	}
}
