// Package storage provides the two key-value tiers backing guest identity
// and engagement state: a durable tier that survives restarts and an
// ephemeral tier scoped to the process lifetime.
package storage

// Adapter is a minimal string key-value store. Implementations must be safe
// for concurrent use.
//
// Get reports presence separately from errors so callers can distinguish
// "no value" from "tier unavailable".
type Adapter interface {
	// Probe reports whether the tier is currently usable. Callers fall back
	// to in-memory state when a tier probes false rather than failing.
	Probe() bool
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	// Keys returns all stored keys with the given prefix.
	Keys(prefix string) ([]string, error)
}
