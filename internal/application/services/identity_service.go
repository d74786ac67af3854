// Package services contains the application-layer orchestration for guest
// identity, daily limits, streaks, and the conversion trigger.
package services

import (
	"fmt"
	"time"

	"github.com/ecowell/eco-engine-go/internal/domain/entities/session"
	"github.com/ecowell/eco-engine-go/internal/domain/user"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/caching/stores"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/scheduler"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/security"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/storage"
	"github.com/ecowell/eco-engine-go/pkg/config"
)

// Identity is the resolved identifier pair for one request.
type Identity struct {
	GuestID        string `json:"guestId"`
	SessionID      string `json:"sessionId"`
	GuestCreated   bool   `json:"guestCreated"`
	SessionCreated bool   `json:"sessionCreated"`
	// Degraded is set when the durable tier was unavailable and the guest id
	// is only session-scoped.
	Degraded bool `json:"degraded,omitempty"`
}

// IdentityService issues and remembers the two-tier identifier pair: a
// durable guest id and an ephemeral session id. Every identifier is stored
// under its own scoped key, so distinct visitors never share state. A caller
// that presents no valid hint gets a freshly minted pair.
type IdentityService struct {
	durable   storage.Adapter
	ephemeral storage.Adapter
	guests    user.GuestRepository
	sessions  *stores.SessionsStore
	clock     scheduler.Clock
	logger    *logging.ChanneledLogger
	perf      *performance.Tracker
}

// NewIdentityService creates the identity service.
func NewIdentityService(
	durable storage.Adapter,
	ephemeral storage.Adapter,
	guests user.GuestRepository,
	sessions *stores.SessionsStore,
	clock scheduler.Clock,
	logger *logging.ChanneledLogger,
	perf *performance.Tracker,
) *IdentityService {
	return &IdentityService{
		durable:   durable,
		ephemeral: ephemeral,
		guests:    guests,
		sessions:  sessions,
		clock:     clock,
		logger:    logger,
		perf:      perf,
	}
}

func guestKey(id string) string {
	return config.GuestKeyPrefix + id
}

func sessionKey(id string) string {
	return config.SessionKeyPrefix + id
}

// GetOrCreateGuestID resolves the durable guest id for a request. A valid
// hint is adopted and its scoped record self-healed if missing; an invalid or
// absent hint mints a fresh id. When the durable tier is unavailable the
// record is held in the ephemeral tier instead so the visit still works, at
// session scope.
func (s *IdentityService) GetOrCreateGuestID(hint string) (string, bool, bool, error) {
	marker := s.perf.StartOperation("identity_get_or_create_guest")
	defer marker.Complete()

	tier := s.durable
	degraded := false
	if !tier.Probe() {
		s.logger.Engine().Warn("Durable tier unavailable, guest id degraded to session scope")
		tier = s.ephemeral
		degraded = true
	}

	now := s.clock.Now()

	if id, ok := security.NormalizeUUID(hint); ok {
		if _, found, err := tier.Get(guestKey(id)); err != nil {
			marker.SetError(err)
			return "", false, degraded, fmt.Errorf("failed to read guest record: %w", err)
		} else if !found {
			if err := tier.Set(guestKey(id), now.UTC().Format(time.RFC3339)); err != nil {
				marker.SetError(err)
				return "", false, degraded, fmt.Errorf("failed to store guest record: %w", err)
			}
		}
		s.registerGuest(id, degraded)
		marker.SetSuccess(true)
		return id, false, degraded, nil
	}

	id := security.GenerateUUID()
	if err := tier.Set(guestKey(id), now.UTC().Format(time.RFC3339)); err != nil {
		marker.SetError(err)
		return "", false, degraded, fmt.Errorf("failed to store guest record: %w", err)
	}
	s.registerGuest(id, degraded)

	s.logger.Engine().Info("Minted new guest id", "guestId", id, "degraded", degraded)
	marker.SetSuccess(true)
	return id, true, degraded, nil
}

// GetOrCreateSessionID resolves the ephemeral session id for the given guest.
// A valid hint is reused when its live record belongs to the same guest, and
// rebound when the record has been purged. A hint whose live record belongs
// to a different guest is never adopted; a fresh session is minted instead.
func (s *IdentityService) GetOrCreateSessionID(hint, guestID string) (string, bool, error) {
	marker := s.perf.StartOperation("identity_get_or_create_session")
	defer marker.Complete()

	now := s.clock.Now()

	if id, ok := security.NormalizeUUID(hint); ok {
		data, live := s.sessions.GetSession(id)
		switch {
		case live && data.GuestID == guestID:
			data.Touch(now, config.SessionTTL)
			marker.SetSuccess(true)
			return id, false, nil
		case !live:
			// Hinted id without a live record: rebind it to this guest.
			if err := s.ephemeral.Set(sessionKey(id), guestID); err != nil {
				marker.SetError(err)
				return "", false, fmt.Errorf("failed to store session record: %w", err)
			}
			s.sessions.SetSession(session.New(id, guestID, now, config.SessionTTL))
			marker.SetSuccess(true)
			return id, false, nil
		}
		// Live record bound to another guest; fall through and mint.
		s.logger.Engine().Warn("Rejecting session hint bound to another guest", "sessionId", id)
	}

	id := security.GenerateUUID()
	if err := s.ephemeral.Set(sessionKey(id), guestID); err != nil {
		marker.SetError(err)
		return "", false, fmt.Errorf("failed to store session record: %w", err)
	}
	s.sessions.SetSession(session.New(id, guestID, now, config.SessionTTL))

	s.logger.Engine().Info("Minted new session id", "sessionId", id, "guestId", guestID)
	marker.SetSuccess(true)
	return id, true, nil
}

// Ensure resolves the identifier pair for a request from the caller-supplied
// hints (request headers, previous responses). Invalid hints are ignored and
// replaced with fresh identifiers.
func (s *IdentityService) Ensure(guestHint, sessionHint string) (*Identity, error) {
	guestID, guestCreated, degraded, err := s.GetOrCreateGuestID(guestHint)
	if err != nil {
		return nil, err
	}

	sessionID, sessionCreated, err := s.GetOrCreateSessionID(sessionHint, guestID)
	if err != nil {
		return nil, err
	}

	return &Identity{
		GuestID:        guestID,
		SessionID:      sessionID,
		GuestCreated:   guestCreated,
		SessionCreated: sessionCreated,
		Degraded:       degraded,
	}, nil
}

// Reset discards the caller's stored identifier pair and the live session
// records for that guest. The next Ensure call mints a fresh pseudonymous
// identity. Only the resolved identity of the requesting caller is touched.
func (s *IdentityService) Reset(guestID, sessionID string) error {
	marker := s.perf.StartOperation("identity_reset")
	defer marker.Complete()

	if id, ok := security.NormalizeUUID(guestID); ok {
		if err := s.durable.Remove(guestKey(id)); err != nil {
			marker.SetError(err)
			return fmt.Errorf("failed to clear guest record: %w", err)
		}
		if err := s.ephemeral.Remove(guestKey(id)); err != nil {
			return fmt.Errorf("failed to clear fallback guest record: %w", err)
		}
		for _, sid := range s.sessions.GetSessionsForGuest(id) {
			_ = s.ephemeral.Remove(sessionKey(sid))
			s.sessions.RemoveSession(sid)
		}
	}

	if id, ok := security.NormalizeUUID(sessionID); ok {
		if err := s.ephemeral.Remove(sessionKey(id)); err != nil {
			return fmt.Errorf("failed to clear session record: %w", err)
		}
		s.sessions.RemoveSession(id)
	}

	s.logger.Engine().Info("Identity reset", "guestId", guestID, "sessionId", sessionID)
	marker.SetSuccess(true)
	return nil
}

// registerGuest records the guest row in the database when it does not exist
// yet. Identity issuance never fails on repository errors; the row is
// re-attempted on the next visit.
func (s *IdentityService) registerGuest(id string, degraded bool) {
	if degraded || s.guests == nil {
		return
	}
	exists, err := s.guests.Exists(id)
	if err != nil {
		s.logger.Engine().Warn("Guest existence check failed", "guestId", id, "error", err.Error())
		return
	}
	if exists {
		return
	}
	if err := s.guests.Create(&user.Guest{ID: id, CreatedAt: s.clock.Now()}); err != nil {
		s.logger.Engine().Warn("Guest row insert failed", "guestId", id, "error", err.Error())
	}
}

// SessionFor returns the live session record, or nil when it is unknown or
// expired.
func (s *IdentityService) SessionFor(sessionID string) *session.Data {
	data, found := s.sessions.GetSession(sessionID)
	if !found || data.Expired(s.clock.Now()) {
		return nil
	}
	return data
}

// TouchSession pushes out the session expiry after activity.
func (s *IdentityService) TouchSession(sessionID string) {
	if data, found := s.sessions.GetSession(sessionID); found {
		data.Touch(s.clock.Now(), config.SessionTTL)
	}
}

// DurableAvailable reports whether the durable tier currently probes
// healthy. Used by the health endpoint.
func (s *IdentityService) DurableAvailable() bool {
	return s.durable.Probe()
}
