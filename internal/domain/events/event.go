// Package events provides interaction event types
package events

import (
	"fmt"
	"time"
)

// InteractionType identifies a user action tracked by the engine.
type InteractionType string

const (
	MessageSent         InteractionType = "message_sent"
	VoiceSent           InteractionType = "voice_sent"
	MeditationStarted   InteractionType = "meditation_started"
	MeditationCompleted InteractionType = "meditation_completed"
	FeedbackSubmitted   InteractionType = "feedback_submitted"
	MemoryViewed        InteractionType = "memory_viewed"
	Navigation          InteractionType = "navigation"
	PageView            InteractionType = "page_view"

	// LimitHit is emitted by the engine itself when an increment reaches a
	// daily cap. It is deliberately absent from knownTypes: clients cannot
	// report it through ingestion.
	LimitHit InteractionType = "limit_hit"
)

// knownTypes enumerates every interaction the engine accepts. The bool marks
// whether the type is significant, meaning it counts toward the
// conversion-trigger interaction threshold. Passive types (navigation, page
// views) are recorded for analytics but never advance the trigger.
var knownTypes = map[InteractionType]bool{
	MessageSent:         true,
	VoiceSent:           true,
	MeditationStarted:   true,
	MeditationCompleted: true,
	FeedbackSubmitted:   true,
	MemoryViewed:        true,
	Navigation:          false,
	PageView:            false,
}

// Known reports whether t is a recognized interaction type.
func (t InteractionType) Known() bool {
	_, ok := knownTypes[t]
	return ok
}

// Significant reports whether t counts toward the conversion-trigger
// interaction threshold.
func (t InteractionType) Significant() bool {
	return knownTypes[t]
}

// Metadata is the sealed union of per-type interaction payloads. Handling a
// new interaction type means adding a struct here and a case to
// ParseMetadata, so the compiler surfaces every switch that needs updating.
type Metadata interface {
	isMetadata()
}

// MessageMetadata describes a sent chat or voice message.
type MessageMetadata struct {
	ConversationID string `json:"conversationId,omitempty"`
	Length         int    `json:"length,omitempty"`
}

// MeditationMetadata describes a meditation start or completion.
type MeditationMetadata struct {
	ProgramID       string `json:"programId,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

// FeedbackMetadata describes a submitted feedback form.
type FeedbackMetadata struct {
	Category string `json:"category,omitempty"`
	Rating   int    `json:"rating,omitempty"`
}

// MemoryMetadata describes a viewed memory entry.
type MemoryMetadata struct {
	MemoryID string `json:"memoryId,omitempty"`
}

// LimitMetadata describes a daily cap being reached.
type LimitMetadata struct {
	Feature string `json:"feature"`
	Count   int    `json:"count"`
	Limit   int    `json:"limit"`
}

// NavigationMetadata describes a route change.
type NavigationMetadata struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// PageViewMetadata describes a full page view.
type PageViewMetadata struct {
	Path  string `json:"path,omitempty"`
	Title string `json:"title,omitempty"`
}

func (MessageMetadata) isMetadata()    {}
func (MeditationMetadata) isMetadata() {}
func (FeedbackMetadata) isMetadata()   {}
func (MemoryMetadata) isMetadata()     {}
func (LimitMetadata) isMetadata()      {}
func (NavigationMetadata) isMetadata() {}
func (PageViewMetadata) isMetadata()   {}

// Event is a single interaction reported by the front end.
type Event struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"sessionId"`
	GuestID    string          `json:"guestId"`
	Type       InteractionType `json:"type"`
	Page       string          `json:"page"`
	OccurredAt time.Time       `json:"occurredAt"`
	Meta       Metadata        `json:"meta,omitempty"`
}

func str(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func num(raw map[string]any, key string) int {
	switch v := raw[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// ParseMetadata converts a wire-format metadata object into the typed shape
// for the given interaction type.
func ParseMetadata(t InteractionType, raw map[string]any) (Metadata, error) {
	switch t {
	case MessageSent, VoiceSent:
		return MessageMetadata{
			ConversationID: str(raw, "conversationId"),
			Length:         num(raw, "length"),
		}, nil
	case MeditationStarted, MeditationCompleted:
		return MeditationMetadata{
			ProgramID:       str(raw, "programId"),
			DurationSeconds: num(raw, "durationSeconds"),
		}, nil
	case FeedbackSubmitted:
		return FeedbackMetadata{
			Category: str(raw, "category"),
			Rating:   num(raw, "rating"),
		}, nil
	case MemoryViewed:
		return MemoryMetadata{
			MemoryID: str(raw, "memoryId"),
		}, nil
	case Navigation:
		return NavigationMetadata{
			From: str(raw, "from"),
			To:   str(raw, "to"),
		}, nil
	case PageView:
		return PageViewMetadata{
			Path:  str(raw, "path"),
			Title: str(raw, "title"),
		}, nil
	default:
		return nil, fmt.Errorf("unknown interaction type %q", t)
	}
}

// Flatten renders the typed metadata back into a flat map for the analytics
// sink, which consumes discrete named events with flat metadata objects.
func (e Event) Flatten() map[string]any {
	out := map[string]any{
		"sessionId": e.SessionID,
		"guestId":   e.GuestID,
		"page":      e.Page,
	}

	switch m := e.Meta.(type) {
	case MessageMetadata:
		if m.ConversationID != "" {
			out["conversationId"] = m.ConversationID
		}
		if m.Length > 0 {
			out["length"] = m.Length
		}
	case MeditationMetadata:
		if m.ProgramID != "" {
			out["programId"] = m.ProgramID
		}
		if m.DurationSeconds > 0 {
			out["durationSeconds"] = m.DurationSeconds
		}
	case FeedbackMetadata:
		if m.Category != "" {
			out["category"] = m.Category
		}
		if m.Rating > 0 {
			out["rating"] = m.Rating
		}
	case MemoryMetadata:
		if m.MemoryID != "" {
			out["memoryId"] = m.MemoryID
		}
	case LimitMetadata:
		out["feature"] = m.Feature
		out["count"] = m.Count
		out["limit"] = m.Limit
	case NavigationMetadata:
		if m.From != "" {
			out["from"] = m.From
		}
		if m.To != "" {
			out["to"] = m.To
		}
	case PageViewMetadata:
		if m.Path != "" {
			out["path"] = m.Path
		}
		if m.Title != "" {
			out["title"] = m.Title
		}
	}

	return out
}
