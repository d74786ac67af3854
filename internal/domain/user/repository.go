// Package user defines the interfaces for accessing lead and guest entities.
// These repositories abstract the data persistence details, ensuring the core
// application is clean and decoupled from the database.
// Note: Sessions are handled by the cache layer, not persistence.
package user

import "time"

// Lead represents a registered (converted) user in the system.
type Lead struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize password hash
	Tier         string    `json:"tier"`
	CreatedAt    time.Time `json:"createdAt"`
	Changed      time.Time `json:"changed"`
}

// Guest represents a durable pseudonymous visitor identifier.
// Can optionally be linked to a Lead once the visitor converts.
type Guest struct {
	ID        string    `json:"id"`
	LeadID    *string   `json:"leadId,omitempty"` // Optional foreign key to leads
	CreatedAt time.Time `json:"createdAt"`
}

// Profile represents a view of Lead data for frontend consumption.
// This is a derived entity, not persisted directly.
type Profile struct {
	GuestID   string `json:"guestId"`
	LeadID    string `json:"leadId"`
	Firstname string `json:"firstname"`
	Email     string `json:"email"`
	Tier      string `json:"tier"`
}

// LeadRepository defines the operations for persisting Lead entities.
type LeadRepository interface {
	FindByID(id string) (*Lead, error)
	FindByEmail(email string) (*Lead, error)
	Store(lead *Lead) error
	Update(lead *Lead) error
	ValidateCredentials(email, password string) (*Lead, error)
}

// GuestRepository defines the operations for persisting Guest entities.
type GuestRepository interface {
	FindByID(id string) (*Guest, error)
	FindByLeadID(leadID string) (*Guest, error)
	Create(guest *Guest) error
	LinkToLead(guestID, leadID string) error
	Exists(guestID string) (bool, error)
}
