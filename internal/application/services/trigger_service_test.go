package services

import (
	"strings"
	"testing"
	"time"

	"github.com/ecowell/eco-engine-go/internal/domain/entities/engagement"
	"github.com/ecowell/eco-engine-go/internal/domain/entities/session"
	"github.com/ecowell/eco-engine-go/internal/domain/events"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/caching/stores"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/messaging"
	"github.com/ecowell/eco-engine-go/pkg/config"
)

type triggerFixture struct {
	svc         *TriggerService
	sessions    *stores.SessionsStore
	durable     *mockAdapter
	broadcaster *messaging.PromptBroadcaster
	clock       *mockClock
	cfg         engagement.TriggerConfig
}

func newTriggerFixture(t *testing.T) *triggerFixture {
	t.Helper()
	logger := testLogger(t)
	clock := newMockClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	cfg := engagement.TriggerConfig{
		TimeLimit:        10 * time.Minute,
		InteractionLimit: 15,
		Cooldown:         24 * time.Hour,
	}
	f := &triggerFixture{
		sessions:    stores.NewSessionsStore(logger),
		durable:     newMockAdapter(),
		broadcaster: messaging.NewPromptBroadcaster(3, logger),
		clock:       clock,
		cfg:         cfg,
	}
	f.svc = NewTriggerService(f.sessions, f.durable, f.broadcaster, cfg, clock, logger, testTracker())
	return f
}

func (f *triggerFixture) addSession(sessionID, guestID string) {
	f.sessions.SetSession(session.New(sessionID, guestID, f.clock.Now(), config.SessionTTL))
}

// drainPrompts counts conversion_prompt events currently buffered on ch.
func drainPrompts(ch chan string) int {
	var prompts int
	for {
		select {
		case msg := <-ch:
			if strings.Contains(msg, "conversion_prompt") {
				prompts++
			}
			continue
		default:
		}
		return prompts
	}
}

func TestInteractionThresholdReached(t *testing.T) {
	f := newTriggerFixture(t)
	f.addSession("sess-1", "guest-1")

	for i := 0; i < f.cfg.InteractionLimit-1; i++ {
		if err := f.svc.RecordInteraction("sess-1", events.MessageSent); err != nil {
			t.Fatal(err)
		}
	}
	status, err := f.svc.Status("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if status.Phase != engagement.PhaseTracking {
		t.Fatalf("one short of the limit, phase = %q", status.Phase)
	}

	if err := f.svc.RecordInteraction("sess-1", events.MessageSent); err != nil {
		t.Fatal(err)
	}
	status, _ = f.svc.Status("sess-1")
	if status.Phase != engagement.PhaseThresholdReached {
		t.Fatalf("phase = %q, want %q", status.Phase, engagement.PhaseThresholdReached)
	}
	if status.InteractionCount != f.cfg.InteractionLimit {
		t.Fatalf("interaction count = %d, want %d", status.InteractionCount, f.cfg.InteractionLimit)
	}
}

func TestPassiveInteractionsDoNotAdvance(t *testing.T) {
	f := newTriggerFixture(t)
	f.addSession("sess-1", "guest-1")

	for i := 0; i < f.cfg.InteractionLimit*2; i++ {
		if err := f.svc.RecordInteraction("sess-1", events.PageView); err != nil {
			t.Fatal(err)
		}
		if err := f.svc.RecordInteraction("sess-1", events.Navigation); err != nil {
			t.Fatal(err)
		}
	}

	status, err := f.svc.Status("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if status.InteractionCount != 0 || status.Phase != engagement.PhaseTracking {
		t.Fatalf("passive events advanced the machine: %+v", status)
	}
}

func TestHeartbeatAccruesToTimeThreshold(t *testing.T) {
	f := newTriggerFixture(t)
	f.addSession("sess-1", "guest-1")

	// 30s ticks; after 10 minutes of foreground time the threshold crosses.
	ticks := int(f.cfg.TimeLimit / (30 * time.Second))
	for i := 0; i < ticks; i++ {
		f.clock.Advance(30 * time.Second)
		if err := f.svc.Heartbeat("sess-1", 30*time.Second); err != nil {
			t.Fatal(err)
		}
	}

	status, err := f.svc.Status("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if status.Phase != engagement.PhaseThresholdReached {
		t.Fatalf("phase = %q after %s foreground", status.Phase, f.cfg.TimeLimit)
	}
	if status.ForegroundTime != int64(f.cfg.TimeLimit/time.Second) {
		t.Fatalf("foreground seconds = %d, want %d", status.ForegroundTime, int64(f.cfg.TimeLimit/time.Second))
	}
}

func TestHeartbeatIgnoresImplausibleDeltas(t *testing.T) {
	f := newTriggerFixture(t)
	f.addSession("sess-1", "guest-1")

	if err := f.svc.Heartbeat("sess-1", -time.Second); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Heartbeat("sess-1", 20*time.Minute); err != nil {
		t.Fatal(err)
	}

	status, err := f.svc.Status("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if status.ForegroundTime != 0 {
		t.Fatalf("implausible deltas must not accrue, got %d seconds", status.ForegroundTime)
	}
}

func TestEvaluatePromptsExactlyOncePerCrossing(t *testing.T) {
	f := newTriggerFixture(t)
	f.addSession("sess-1", "guest-1")

	ch := f.broadcaster.AddClient("sess-1")
	if ch == nil {
		t.Fatal("failed to register SSE client")
	}
	defer f.broadcaster.RemoveClient(ch, "sess-1")

	for i := 0; i < f.cfg.InteractionLimit; i++ {
		if err := f.svc.RecordInteraction("sess-1", events.MessageSent); err != nil {
			t.Fatal(err)
		}
	}

	f.svc.Evaluate(f.clock.Now())
	if prompts := drainPrompts(ch); prompts != 1 {
		t.Fatalf("first evaluation pushed %d prompts, want 1", prompts)
	}

	// Repeated passes while Prompted must stay silent.
	f.svc.Evaluate(f.clock.Now())
	f.svc.Evaluate(f.clock.Now())
	if prompts := drainPrompts(ch); prompts != 0 {
		t.Fatalf("repeated evaluation re-prompted %d times", prompts)
	}

	status, _ := f.svc.Status("sess-1")
	if status.Phase != engagement.PhasePrompted {
		t.Fatalf("phase = %q, want %q", status.Phase, engagement.PhasePrompted)
	}
}

func TestDismissOpensDurableCooldown(t *testing.T) {
	f := newTriggerFixture(t)
	f.addSession("sess-1", "guest-1")

	for i := 0; i < f.cfg.InteractionLimit; i++ {
		if err := f.svc.RecordInteraction("sess-1", events.MessageSent); err != nil {
			t.Fatal(err)
		}
	}
	f.svc.Evaluate(f.clock.Now())

	if err := f.svc.Dismiss("sess-1"); err != nil {
		t.Fatal(err)
	}

	status, err := f.svc.Status("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if status.Phase != engagement.PhaseCooldown {
		t.Fatalf("phase = %q, want %q", status.Phase, engagement.PhaseCooldown)
	}
	wantUntil := f.clock.Now().Add(f.cfg.Cooldown)
	if status.CooldownUntil == nil || !status.CooldownUntil.Equal(wantUntil) {
		t.Fatalf("cooldown until = %v, want %v", status.CooldownUntil, wantUntil)
	}

	if _, found, _ := f.durable.Get(triggerPrefix + "guest-1"); !found {
		t.Fatal("dismissal must persist a durable cooldown snapshot")
	}
}

func TestDismissWithoutPromptIsNoOp(t *testing.T) {
	f := newTriggerFixture(t)
	f.addSession("sess-1", "guest-1")

	if err := f.svc.Dismiss("sess-1"); err != nil {
		t.Fatal(err)
	}
	status, _ := f.svc.Status("sess-1")
	if status.Phase != engagement.PhaseTracking {
		t.Fatalf("dismissing an unprompted session changed the phase to %q", status.Phase)
	}
	if _, found, _ := f.durable.Get(triggerPrefix + "guest-1"); found {
		t.Fatal("no snapshot may be written without a prompt")
	}
}

func TestCooldownExpiryResetsAccumulators(t *testing.T) {
	f := newTriggerFixture(t)
	f.addSession("sess-1", "guest-1")

	for i := 0; i < f.cfg.InteractionLimit; i++ {
		if err := f.svc.RecordInteraction("sess-1", events.MessageSent); err != nil {
			t.Fatal(err)
		}
	}
	f.svc.Evaluate(f.clock.Now())
	if err := f.svc.Dismiss("sess-1"); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(f.cfg.Cooldown + time.Minute)

	// The next interaction after expiry re-enters tracking from scratch.
	if err := f.svc.RecordInteraction("sess-1", events.MessageSent); err != nil {
		t.Fatal(err)
	}
	status, _ := f.svc.Status("sess-1")
	if status.Phase != engagement.PhaseTracking {
		t.Fatalf("phase = %q after cooldown expiry", status.Phase)
	}
	if status.InteractionCount != 1 {
		t.Fatalf("interaction count = %d, want 1 (accumulators reset)", status.InteractionCount)
	}
	if status.ForegroundTime != 0 {
		t.Fatalf("foreground time = %d, want 0 after reset", status.ForegroundTime)
	}
}

func TestCooldownHydratesIntoNewSession(t *testing.T) {
	f := newTriggerFixture(t)
	f.addSession("sess-1", "guest-1")

	for i := 0; i < f.cfg.InteractionLimit; i++ {
		if err := f.svc.RecordInteraction("sess-1", events.MessageSent); err != nil {
			t.Fatal(err)
		}
	}
	f.svc.Evaluate(f.clock.Now())
	if err := f.svc.Dismiss("sess-1"); err != nil {
		t.Fatal(err)
	}

	// A later session for the same guest, well inside the cooldown window.
	f.clock.Advance(2 * time.Hour)
	f.addSession("sess-2", "guest-1")

	status, err := f.svc.Status("sess-2")
	if err != nil {
		t.Fatal(err)
	}
	if status.Phase != engagement.PhaseCooldown {
		t.Fatalf("new session must inherit the cooldown, phase = %q", status.Phase)
	}
	if status.CooldownUntil == nil {
		t.Fatal("hydrated cooldown must expose its deadline")
	}
}

func TestCooldownSurvivesSessionPurgeAndRebind(t *testing.T) {
	f := newTriggerFixture(t)
	f.addSession("sess-1", "guest-1")

	for i := 0; i < f.cfg.InteractionLimit; i++ {
		if err := f.svc.RecordInteraction("sess-1", events.MessageSent); err != nil {
			t.Fatal(err)
		}
	}
	f.svc.Evaluate(f.clock.Now())
	if err := f.svc.Dismiss("sess-1"); err != nil {
		t.Fatal(err)
	}

	// The session expires and is purged, then the same session id is rebound
	// with a fresh record, all well inside the cooldown window.
	f.clock.Advance(5 * time.Hour)
	f.sessions.RemoveSession("sess-1")
	f.addSession("sess-1", "guest-1")

	ch := f.broadcaster.AddClient("sess-1")
	if ch == nil {
		t.Fatal("failed to register SSE client")
	}
	defer f.broadcaster.RemoveClient(ch, "sess-1")

	for i := 0; i < f.cfg.InteractionLimit; i++ {
		if err := f.svc.RecordInteraction("sess-1", events.MessageSent); err != nil {
			t.Fatal(err)
		}
	}
	f.svc.Evaluate(f.clock.Now())

	if prompts := drainPrompts(ch); prompts != 0 {
		t.Fatalf("rebound session was re-prompted %d times inside the cooldown", prompts)
	}
	status, err := f.svc.Status("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if status.Phase != engagement.PhaseCooldown {
		t.Fatalf("rebound session phase = %q, want %q", status.Phase, engagement.PhaseCooldown)
	}
}

func TestAuthenticateIsTerminal(t *testing.T) {
	f := newTriggerFixture(t)
	f.addSession("sess-1", "guest-1")

	for i := 0; i < f.cfg.InteractionLimit; i++ {
		if err := f.svc.RecordInteraction("sess-1", events.MessageSent); err != nil {
			t.Fatal(err)
		}
	}
	f.svc.Evaluate(f.clock.Now())
	if err := f.svc.Dismiss("sess-1"); err != nil {
		t.Fatal(err)
	}

	f.svc.Authenticate("guest-1")

	status, err := f.svc.Status("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if !status.Authenticated {
		t.Fatal("session must be marked authenticated")
	}
	if _, found, _ := f.durable.Get(triggerPrefix + "guest-1"); found {
		t.Fatal("authentication must clear the durable snapshot")
	}

	// No mutation advances a terminal machine.
	ch := f.broadcaster.AddClient("sess-1")
	defer f.broadcaster.RemoveClient(ch, "sess-1")
	for i := 0; i < f.cfg.InteractionLimit*2; i++ {
		if err := f.svc.RecordInteraction("sess-1", events.MessageSent); err != nil {
			t.Fatal(err)
		}
	}
	f.clock.Advance(f.cfg.Cooldown + time.Hour)
	f.svc.Evaluate(f.clock.Now())
	if prompts := drainPrompts(ch); prompts != 0 {
		t.Fatalf("authenticated session was prompted %d times", prompts)
	}
}

func TestUnknownSessionRejected(t *testing.T) {
	f := newTriggerFixture(t)

	if err := f.svc.RecordInteraction("nope", events.MessageSent); err == nil {
		t.Fatal("unknown session must be rejected")
	}
	if _, err := f.svc.Status("nope"); err == nil {
		t.Fatal("unknown session must be rejected on status")
	}
}
