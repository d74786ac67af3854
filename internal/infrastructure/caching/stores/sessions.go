// Package stores provides concrete cache store implementations
package stores

import (
	"sync"
	"time"

	"github.com/ecowell/eco-engine-go/internal/domain/entities/session"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
)

// SessionsStore holds the ephemeral per-session state, including the
// per-session conversion-trigger machine. It keeps an inverted index from
// guest to sessions so all sessions for a guest can be found cheaply.
type SessionsStore struct {
	sessions        map[string]*session.Data
	guestToSessions map[string][]string
	mu              sync.RWMutex
	logger          *logging.ChanneledLogger
}

// NewSessionsStore creates a new sessions cache store
func NewSessionsStore(logger *logging.ChanneledLogger) *SessionsStore {
	if logger != nil {
		logger.Cache().Info("Initializing sessions cache store")
	}
	return &SessionsStore{
		sessions:        make(map[string]*session.Data),
		guestToSessions: make(map[string][]string),
		logger:          logger,
	}
}

// GetSession retrieves session data by session ID
func (ss *SessionsStore) GetSession(sessionID string) (*session.Data, bool) {
	start := time.Now()
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	data, found := ss.sessions[sessionID]
	if ss.logger != nil {
		ss.logger.Cache().Debug("Cache operation", "operation", "get", "type", "session", "sessionId", sessionID, "hit", found, "duration", time.Since(start))
	}
	return data, found
}

// SetSession stores session data and maintains the guest index
func (ss *SessionsStore) SetSession(data *session.Data) {
	start := time.Now()
	ss.mu.Lock()
	defer ss.mu.Unlock()

	existing, found := ss.sessions[data.SessionID]
	switch {
	case !found:
		ss.guestToSessions[data.GuestID] = append(ss.guestToSessions[data.GuestID], data.SessionID)
	case existing.GuestID != data.GuestID:
		ss.removeFromGuestIndex(existing.GuestID, data.SessionID)
		ss.guestToSessions[data.GuestID] = append(ss.guestToSessions[data.GuestID], data.SessionID)
	}
	ss.sessions[data.SessionID] = data

	if ss.logger != nil {
		ss.logger.Cache().Debug("Cache operation", "operation", "set", "type", "session", "sessionId", data.SessionID, "guestId", data.GuestID, "duration", time.Since(start))
	}
}

// RemoveSession deletes a session and its guest index entry
func (ss *SessionsStore) RemoveSession(sessionID string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	data, found := ss.sessions[sessionID]
	if !found {
		return
	}
	delete(ss.sessions, sessionID)
	ss.removeFromGuestIndex(data.GuestID, sessionID)

	if ss.logger != nil {
		ss.logger.Cache().Debug("Cache operation", "operation", "remove", "type", "session", "sessionId", sessionID)
	}
}

// GetSessionsForGuest returns all session IDs attached to a guest
func (ss *SessionsStore) GetSessionsForGuest(guestID string) []string {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	ids := ss.guestToSessions[guestID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// AllSessions returns a snapshot of every live session. Callers get the
// shared pointers; per-session mutation must go through the owning service.
func (ss *SessionsStore) AllSessions() []*session.Data {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	out := make([]*session.Data, 0, len(ss.sessions))
	for _, data := range ss.sessions {
		out = append(out, data)
	}
	return out
}

// Count returns the number of live sessions
func (ss *SessionsStore) Count() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// PurgeExpired removes all sessions past their expiry and returns how many
// were removed
func (ss *SessionsStore) PurgeExpired(now time.Time) int {
	start := time.Now()
	ss.mu.Lock()
	defer ss.mu.Unlock()

	var purged int
	for sessionID, data := range ss.sessions {
		if data.Expired(now) {
			delete(ss.sessions, sessionID)
			ss.removeFromGuestIndex(data.GuestID, sessionID)
			purged++
		}
	}

	if ss.logger != nil && purged > 0 {
		ss.logger.Cache().Info("Purged expired sessions", "purged", purged, "remaining", len(ss.sessions), "duration", time.Since(start))
	}
	return purged
}

// removeFromGuestIndex must be called with the write lock held.
func (ss *SessionsStore) removeFromGuestIndex(guestID, sessionID string) {
	ids := ss.guestToSessions[guestID]
	for i, id := range ids {
		if id == sessionID {
			ss.guestToSessions[guestID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ss.guestToSessions[guestID]) == 0 {
		delete(ss.guestToSessions, guestID)
	}
}
