// Package cleanup provides the background session sweeper
package cleanup

import (
	"time"

	"github.com/ecowell/eco-engine-go/pkg/config"
)

// Config holds the cleanup worker settings
type Config struct {
	CleanupInterval  time.Duration
	VerboseReporting bool
}

// DefaultConfig returns cleanup configuration from the environment-backed
// defaults
func DefaultConfig() *Config {
	return &Config{
		CleanupInterval:  config.CleanupInterval,
		VerboseReporting: config.VerboseCleanup,
	}
}
