package services

import (
	"testing"
	"time"

	"github.com/ecowell/eco-engine-go/internal/infrastructure/caching/stores"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/security"
	"github.com/ecowell/eco-engine-go/pkg/config"
)

func newIdentityFixture(t *testing.T) (*IdentityService, *mockAdapter, *mockAdapter, *mockClock) {
	t.Helper()
	logger := testLogger(t)
	durable := newMockAdapter()
	ephemeral := newMockAdapter()
	clock := newMockClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	sessions := stores.NewSessionsStore(logger)
	svc := NewIdentityService(durable, ephemeral, newMockGuestRepo(), sessions, clock, logger, testTracker())
	return svc, durable, ephemeral, clock
}

func TestDistinctVisitorsGetDistinctIdentities(t *testing.T) {
	svc, durable, _, _ := newIdentityFixture(t)

	// Two independent visitors, neither presenting any hint. Each must get
	// its own pair; nothing may leak from one to the other.
	first, err := svc.Ensure("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Ensure("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !first.GuestCreated || !second.GuestCreated {
		t.Fatal("both hintless visitors must mint fresh guest ids")
	}
	if first.GuestID == second.GuestID {
		t.Fatalf("visitors share guest id %q", first.GuestID)
	}
	if first.SessionID == second.SessionID {
		t.Fatalf("visitors share session id %q", first.SessionID)
	}

	// Each guest has its own scoped durable record.
	for _, resolved := range []*Identity{first, second} {
		if _, found, _ := durable.Get(config.GuestKeyPrefix + resolved.GuestID); !found {
			t.Fatalf("no durable record for guest %q", resolved.GuestID)
		}
	}
}

func TestEnsureReusesHintedPair(t *testing.T) {
	svc, _, _, _ := newIdentityFixture(t)

	first, err := svc.Ensure("", "")
	if err != nil {
		t.Fatal(err)
	}

	// The returning visitor presents the pair it was issued.
	second, err := svc.Ensure(first.GuestID, first.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if second.GuestID != first.GuestID || second.SessionID != first.SessionID {
		t.Fatalf("hinted pair not reused: %+v then %+v", first, second)
	}
	if second.GuestCreated || second.SessionCreated {
		t.Fatal("a reused pair must not report creation")
	}
}

func TestHintedGuestIDSelfHeals(t *testing.T) {
	svc, durable, _, _ := newIdentityFixture(t)

	// A guest id from a previous install whose durable record is gone.
	const hinted = "0f47ac10-58cc-4372-a567-0e02b2c3d479"

	resolved, err := svc.Ensure("F47AC10B-58CC-4372-A567-0E02B2C3D479", "")
	if err != nil {
		t.Fatal(err)
	}
	if resolved.GuestID != "f47ac10b-58cc-4372-a567-0e02b2c3d479" {
		t.Fatalf("hint must be normalized to lowercase, got %q", resolved.GuestID)
	}
	if resolved.GuestCreated {
		t.Fatal("an adopted hint is not a mint")
	}
	if _, found, _ := durable.Get(config.GuestKeyPrefix + resolved.GuestID); !found {
		t.Fatal("adopting a hint must write the scoped durable record")
	}

	other, err := svc.Ensure(hinted, "")
	if err != nil {
		t.Fatal(err)
	}
	if other.GuestID == resolved.GuestID {
		t.Fatal("distinct hints must resolve to distinct guests")
	}
}

func TestEnsureIgnoresInvalidHints(t *testing.T) {
	svc, _, _, _ := newIdentityFixture(t)

	resolved, err := svc.Ensure("garbage", "<script>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !security.IsValidUUID(resolved.GuestID) || !security.IsValidUUID(resolved.SessionID) {
		t.Fatalf("invalid hints must be discarded, got %q / %q", resolved.GuestID, resolved.SessionID)
	}
	if !resolved.GuestCreated || !resolved.SessionCreated {
		t.Fatal("discarded hints must yield a freshly minted pair")
	}
}

func TestGuestIDDegradesWhenDurableUnavailable(t *testing.T) {
	svc, durable, ephemeral, _ := newIdentityFixture(t)
	durable.unavailable = true

	resolved, err := svc.Ensure("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resolved.Degraded || !resolved.GuestCreated {
		t.Fatalf("expected a fresh degraded id, got %+v", resolved)
	}

	guestRecord := config.GuestKeyPrefix + resolved.GuestID
	if _, found, _ := durable.Get(guestRecord); found {
		t.Fatal("degraded id must not touch the durable tier")
	}
	if _, found, _ := ephemeral.Get(guestRecord); !found {
		t.Fatal("degraded id must live in the ephemeral tier")
	}

	// Recovery: with the durable tier back, the same hinted id is promoted
	// into a durable record.
	durable.unavailable = false
	recovered, err := svc.Ensure(resolved.GuestID, resolved.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if recovered.Degraded {
		t.Fatal("identity must not stay degraded once the durable tier recovers")
	}
	if recovered.GuestID != resolved.GuestID {
		t.Fatalf("recovery must keep the guest id, got %q", recovered.GuestID)
	}
	if _, found, _ := durable.Get(guestRecord); !found {
		t.Fatal("recovery must write the scoped durable record")
	}
}

func TestSessionHintReboundAfterPurge(t *testing.T) {
	svc, _, _, _ := newIdentityFixture(t)

	resolved, err := svc.Ensure("", "")
	if err != nil {
		t.Fatal(err)
	}

	// The server lost its in-memory records (restart); the returning client
	// still holds its pair.
	svc.sessions.RemoveSession(resolved.SessionID)

	rebound, err := svc.Ensure(resolved.GuestID, resolved.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if rebound.SessionID != resolved.SessionID || rebound.SessionCreated {
		t.Fatalf("purged session must be rebound, got %+v", rebound)
	}
	if svc.SessionFor(rebound.SessionID) == nil {
		t.Fatal("rebound session must be live again")
	}
}

func TestSessionHintOfAnotherGuestNotAdopted(t *testing.T) {
	svc, _, _, _ := newIdentityFixture(t)

	victim, err := svc.Ensure("", "")
	if err != nil {
		t.Fatal(err)
	}

	// A different visitor presents the victim's session id.
	intruder, err := svc.Ensure("", victim.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if intruder.SessionID == victim.SessionID {
		t.Fatal("a session live for another guest must never be adopted")
	}
	if data := svc.SessionFor(victim.SessionID); data == nil || data.GuestID != victim.GuestID {
		t.Fatal("the victim's session binding must be untouched")
	}
}

func TestResetOnlyClearsTheCaller(t *testing.T) {
	svc, durable, _, _ := newIdentityFixture(t)

	caller, err := svc.Ensure("", "")
	if err != nil {
		t.Fatal(err)
	}
	bystander, err := svc.Ensure("", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Reset(caller.GuestID, caller.SessionID); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if _, found, _ := durable.Get(config.GuestKeyPrefix + caller.GuestID); found {
		t.Fatal("reset must remove the caller's durable record")
	}
	if svc.SessionFor(caller.SessionID) != nil {
		t.Fatal("reset must remove the caller's session")
	}

	// The bystander's identity is untouched.
	if _, found, _ := durable.Get(config.GuestKeyPrefix + bystander.GuestID); !found {
		t.Fatal("reset must not touch other guests' durable records")
	}
	if svc.SessionFor(bystander.SessionID) == nil {
		t.Fatal("reset must not touch other guests' sessions")
	}

	// With its local pair wiped too, the caller's next visit mints fresh.
	after, err := svc.Ensure("", "")
	if err != nil {
		t.Fatal(err)
	}
	if after.GuestID == caller.GuestID || after.SessionID == caller.SessionID {
		t.Fatal("the visit after a reset must mint a fresh pair")
	}
}

func TestSessionExpiryHonorsTTL(t *testing.T) {
	svc, _, _, clock := newIdentityFixture(t)

	resolved, err := svc.Ensure("", "")
	if err != nil {
		t.Fatal(err)
	}
	if svc.SessionFor(resolved.SessionID) == nil {
		t.Fatal("fresh session must be live")
	}

	clock.Advance(config.SessionTTL + time.Minute)
	if svc.SessionFor(resolved.SessionID) != nil {
		t.Fatal("session past TTL must read as absent")
	}
}
