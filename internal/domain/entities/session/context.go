// Package session provides domain entities for ephemeral session state.
// A session scopes a single visit/tab lifetime for one guest and carries the
// per-session conversion-trigger state.
package session

import (
	"time"

	"github.com/ecowell/eco-engine-go/internal/domain/entities/engagement"
)

// Data represents the core session information held in the ephemeral tier.
type Data struct {
	SessionID    string                   `json:"sessionId"`
	GuestID      string                   `json:"guestId"`
	LeadID       *string                  `json:"leadId,omitempty"`
	CreatedAt    time.Time                `json:"createdAt"`
	LastActivity time.Time                `json:"lastActivity"`
	ExpiresAt    time.Time                `json:"expiresAt"`
	Trigger      *engagement.TriggerState `json:"trigger,omitempty"`
}

// New creates a new session record bound to a guest.
func New(sessionID, guestID string, now time.Time, ttl time.Duration) *Data {
	return &Data{
		SessionID:    sessionID,
		GuestID:      guestID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(ttl),
		Trigger:      engagement.NewTriggerState(now),
	}
}

// Touch updates activity time and pushes out expiry.
func (d *Data) Touch(now time.Time, ttl time.Duration) {
	d.LastActivity = now
	d.ExpiresAt = now.Add(ttl)
}

// Expired reports whether the session has passed its expiry.
func (d *Data) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}
