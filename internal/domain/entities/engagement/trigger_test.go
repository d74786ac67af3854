package engagement

import (
	"testing"
	"time"
)

var testCfg = TriggerConfig{
	TimeLimit:        10 * time.Minute,
	InteractionLimit: 3,
	Cooldown:         time.Hour,
}

func at(minutes int) time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
}

func TestTriggerInteractionLimitCrossing(t *testing.T) {
	ts := NewTriggerState(at(0))

	ts.RecordInteraction(at(1), testCfg)
	ts.RecordInteraction(at(2), testCfg)
	if ts.Phase != PhaseTracking {
		t.Fatalf("phase = %q before the limit", ts.Phase)
	}

	ts.RecordInteraction(at(3), testCfg)
	if ts.Phase != PhaseThresholdReached {
		t.Fatalf("phase = %q, want threshold_reached at %d interactions", ts.Phase, testCfg.InteractionLimit)
	}
}

func TestTriggerTimeLimitCrossing(t *testing.T) {
	ts := NewTriggerState(at(0))

	ts.AccrueForeground(9*time.Minute, at(9), testCfg)
	if ts.Phase != PhaseTracking {
		t.Fatalf("phase = %q below the time limit", ts.Phase)
	}

	ts.AccrueForeground(time.Minute, at(10), testCfg)
	if ts.Phase != PhaseThresholdReached {
		t.Fatalf("phase = %q, want threshold_reached at the time limit", ts.Phase)
	}
}

func TestTriggerShouldPromptOncePerCrossing(t *testing.T) {
	ts := NewTriggerState(at(0))
	for i := 0; i < testCfg.InteractionLimit; i++ {
		ts.RecordInteraction(at(i), testCfg)
	}

	if !ts.ShouldPrompt(at(5)) {
		t.Fatal("crossed threshold must prompt")
	}
	ts.MarkPrompted(at(5))

	if ts.ShouldPrompt(at(6)) {
		t.Fatal("a prompted session must not re-prompt")
	}
	if ts.Phase != PhasePrompted || !ts.PromptedAt.Equal(at(5)) {
		t.Fatalf("state after prompt = %+v", ts)
	}
}

func TestTriggerDismissStartsCooldown(t *testing.T) {
	ts := NewTriggerState(at(0))
	for i := 0; i < testCfg.InteractionLimit; i++ {
		ts.RecordInteraction(at(i), testCfg)
	}
	ts.MarkPrompted(at(5))
	ts.Dismiss(at(6), testCfg)

	if ts.Phase != PhaseCooldown {
		t.Fatalf("phase = %q, want cooldown", ts.Phase)
	}
	if !ts.CooldownUntil.Equal(at(6).Add(testCfg.Cooldown)) {
		t.Fatalf("cooldown until = %v", ts.CooldownUntil)
	}

	// Inside the window nothing accrues and nothing prompts.
	ts.RecordInteraction(at(30), testCfg)
	ts.AccrueForeground(20*time.Minute, at(50), testCfg)
	if ts.ShouldPrompt(at(50)) {
		t.Fatal("prompting during cooldown")
	}
}

func TestTriggerCooldownExpiryResetsAccumulators(t *testing.T) {
	ts := NewTriggerState(at(0))
	for i := 0; i < testCfg.InteractionLimit; i++ {
		ts.RecordInteraction(at(i), testCfg)
	}
	ts.MarkPrompted(at(5))
	ts.Dismiss(at(6), testCfg)

	// First touch past the window re-enters tracking from zero.
	after := at(6).Add(testCfg.Cooldown + time.Minute)
	ts.RecordInteraction(after, testCfg)

	if ts.Phase != PhaseTracking {
		t.Fatalf("phase = %q past the cooldown", ts.Phase)
	}
	if ts.InteractionCount != 1 || ts.ForegroundTime != 0 {
		t.Fatalf("accumulators not reset: count=%d foreground=%v", ts.InteractionCount, ts.ForegroundTime)
	}
}

func TestTriggerDismissRequiresPrompt(t *testing.T) {
	ts := NewTriggerState(at(0))
	ts.Dismiss(at(1), testCfg)
	if ts.Phase != PhaseTracking {
		t.Fatalf("dismiss without prompt changed phase to %q", ts.Phase)
	}

	// Threshold reached but not yet prompted: still not dismissible.
	for i := 0; i < testCfg.InteractionLimit; i++ {
		ts.RecordInteraction(at(i+2), testCfg)
	}
	ts.Dismiss(at(6), testCfg)
	if ts.Phase != PhaseThresholdReached {
		t.Fatalf("dismiss before prompt changed phase to %q", ts.Phase)
	}
}

func TestTriggerAuthenticateIsTerminal(t *testing.T) {
	ts := NewTriggerState(at(0))
	ts.Authenticate(at(1))

	for i := 0; i < testCfg.InteractionLimit*2; i++ {
		ts.RecordInteraction(at(i+2), testCfg)
	}
	ts.AccrueForeground(time.Hour, at(60), testCfg)

	if ts.InteractionCount != 0 || ts.ForegroundTime != 0 {
		t.Fatalf("terminal machine accrued state: %+v", ts)
	}
	if ts.ShouldPrompt(at(90)) {
		t.Fatal("terminal machine must never prompt")
	}
}

func TestTriggerWhicheverThresholdFirstWins(t *testing.T) {
	// Interactions cross first.
	ts := NewTriggerState(at(0))
	ts.AccrueForeground(5*time.Minute, at(5), testCfg)
	for i := 0; i < testCfg.InteractionLimit; i++ {
		ts.RecordInteraction(at(6), testCfg)
	}
	if ts.Phase != PhaseThresholdReached {
		t.Fatalf("phase = %q", ts.Phase)
	}

	// Time crosses first.
	ts = NewTriggerState(at(0))
	ts.RecordInteraction(at(1), testCfg)
	ts.AccrueForeground(testCfg.TimeLimit, at(11), testCfg)
	if ts.Phase != PhaseThresholdReached {
		t.Fatalf("phase = %q", ts.Phase)
	}
}
