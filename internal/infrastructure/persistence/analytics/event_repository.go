// Package analytics provides the concrete SQL-based implementation
// for interaction event persistence.
//
// Events are stored as they drain from the analytics sink; this is
// write-heavy and deliberately does no reads on the hot path.
package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ecowell/eco-engine-go/internal/domain/events"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/persistence/database"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/security"
	"github.com/ecowell/eco-engine-go/pkg/config"
)

// SQLEventRepository handles interaction event persistence to the database.
type SQLEventRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLEventRepository creates a new instance of the repository.
func NewSQLEventRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLEventRepository {
	return &SQLEventRepository{
		db:     db,
		logger: logger,
	}
}

// StoreEvent saves a single interaction event.
func (r *SQLEventRepository) StoreEvent(event *events.Event) error {
	if event.ID == "" {
		event.ID = security.GenerateULID()
	}

	var metadata []byte
	if event.Meta != nil {
		var err error
		metadata, err = json.Marshal(event.Meta)
		if err != nil {
			return fmt.Errorf("failed to encode event metadata: %w", err)
		}
	}

	const query = `
		INSERT INTO events (id, session_id, guest_id, type, page, metadata, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing event insert",
		"eventId", event.ID,
		"type", string(event.Type),
		"sessionId", event.SessionID,
		"guestId", event.GuestID)

	_, err := r.db.Exec(
		query,
		event.ID,
		event.SessionID,
		event.GuestID,
		string(event.Type),
		event.Page,
		string(metadata),
		event.OccurredAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		r.logger.Database().Error("Event insert failed",
			"error", err.Error(),
			"eventId", event.ID,
			"type", string(event.Type),
			"guestId", event.GuestID)
		return fmt.Errorf("failed to store event: %w", err)
	}

	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}

// StoreBatch saves a batch of events inside a single transaction.
func (r *SQLEventRepository) StoreBatch(batch []*events.Event) error {
	if len(batch) == 0 {
		return nil
	}
	if len(batch) == 1 {
		// Single-event drains skip the transaction overhead.
		return r.StoreEvent(batch[0])
	}

	start := time.Now()
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin event batch: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO events (id, session_id, guest_id, type, page, metadata, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare event batch: %w", err)
	}
	defer stmt.Close()

	for _, event := range batch {
		if event.ID == "" {
			event.ID = security.GenerateULID()
		}
		var metadata []byte
		if event.Meta != nil {
			metadata, err = json.Marshal(event.Meta)
			if err != nil {
				return fmt.Errorf("failed to encode event metadata: %w", err)
			}
		}
		if _, err := stmt.Exec(
			event.ID,
			event.SessionID,
			event.GuestID,
			string(event.Type),
			event.Page,
			string(metadata),
			event.OccurredAt.UTC().Format("2006-01-02 15:04:05"),
		); err != nil {
			return fmt.Errorf("failed to store event in batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event batch: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Event batch stored", "count", len(batch), "duration", duration)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery("EVENT_BATCH_INSERT", duration)
	}
	return nil
}

// CountByGuestSince counts events of any significant type recorded for a
// guest since the given time. Used for engagement reporting.
func (r *SQLEventRepository) CountByGuestSince(guestID string, since time.Time) (int, error) {
	const query = `
		SELECT COUNT(*) FROM events
		WHERE guest_id = ? AND occurred_at >= ?`

	start := time.Now()
	var count int
	err := r.db.QueryRow(query, guestID, since.UTC().Format("2006-01-02 15:04:05")).Scan(&count)
	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	if err != nil {
		return 0, err
	}
	return count, nil
}
