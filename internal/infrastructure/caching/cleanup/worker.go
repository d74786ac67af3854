package cleanup

import (
	"context"
	"time"

	"github.com/ecowell/eco-engine-go/internal/infrastructure/caching/stores"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
)

// Worker sweeps expired sessions out of the ephemeral tier on a fixed
// interval.
type Worker struct {
	sessions *stores.SessionsStore
	config   *Config
	logger   *logging.ChanneledLogger
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(sessions *stores.SessionsStore, config *Config, logger *logging.ChanneledLogger) *Worker {
	return &Worker{
		sessions: sessions,
		config:   config,
		logger:   logger,
	}
}

// Start begins the cleanup worker routine, using the configured interval.
// It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	w.logger.System().Info("Session cleanup worker started",
		"interval", w.config.CleanupInterval,
		"verbose", w.config.VerboseReporting)

	for {
		select {
		case <-ctx.Done():
			w.logger.System().Info("Session cleanup worker stopping")
			return
		case <-ticker.C:
			w.performCleanup()
		}
	}
}

// performCleanup executes one sweep
func (w *Worker) performCleanup() {
	start := time.Now()
	purged := w.sessions.PurgeExpired(time.Now().UTC())

	if purged > 0 {
		w.logger.Cache().Info("Session cleanup finished",
			"purged", purged,
			"remaining", w.sessions.Count(),
			"duration", time.Since(start))
	} else if w.config.VerboseReporting {
		w.logger.Cache().Debug("Session cleanup completed - no expired sessions",
			"live", w.sessions.Count(),
			"duration", time.Since(start))
	}
}
