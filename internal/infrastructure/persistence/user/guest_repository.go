// Package user provides the concrete SQL-based implementations of
// the user domain repositories (Guest, Lead).
package user

import (
	"database/sql"
	"time"

	"github.com/ecowell/eco-engine-go/internal/domain/user"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/persistence/database"
	"github.com/ecowell/eco-engine-go/pkg/config"
)

// SQLGuestRepository is the SQL-based implementation of the GuestRepository.
type SQLGuestRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLGuestRepository creates a new instance of the repository.
func NewSQLGuestRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLGuestRepository {
	return &SQLGuestRepository{
		db:     db,
		logger: logger,
	}
}

// FindByID retrieves a Guest by its unique identifier. Returns nil when no
// guest exists with that id.
func (r *SQLGuestRepository) FindByID(id string) (*user.Guest, error) {
	const query = `
		SELECT id, lead_id, created_at
		FROM guests
		WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading guest by ID", "id", id)

	row := r.db.QueryRow(query, id)
	guest, err := r.scanGuest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Database().Debug("Guest not found by ID", "id", id)
			return nil, nil
		}
		r.logger.Database().Error("Failed to load guest by ID", "error", err.Error(), "id", id)
		return nil, err
	}

	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return guest, nil
}

// FindByLeadID retrieves a Guest associated with a specific Lead.
func (r *SQLGuestRepository) FindByLeadID(leadID string) (*user.Guest, error) {
	const query = `
		SELECT id, lead_id, created_at
		FROM guests
		WHERE lead_id = ?
		LIMIT 1`

	start := time.Now()
	r.logger.Database().Debug("Loading guest by lead ID", "leadId", leadID)

	row := r.db.QueryRow(query, leadID)
	guest, err := r.scanGuest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			r.logger.Database().Debug("Guest not found by lead ID", "leadId", leadID)
			return nil, nil
		}
		r.logger.Database().Error("Failed to load guest by lead ID", "error", err.Error(), "leadId", leadID)
		return nil, err
	}

	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return guest, nil
}

// Create saves a new Guest to the database.
func (r *SQLGuestRepository) Create(guest *user.Guest) error {
	const query = `
		INSERT INTO guests (id, lead_id, created_at)
		VALUES (?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing guest insert", "id", guest.ID)

	_, err := r.db.Exec(
		query,
		guest.ID,
		guest.LeadID,
		guest.CreatedAt,
	)
	if err != nil {
		r.logger.Database().Error("Guest insert failed", "error", err.Error(), "id", guest.ID)
		return err
	}

	r.logger.Database().Info("Guest insert completed", "id", guest.ID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}

// LinkToLead associates a Guest with a Lead by updating the lead_id.
func (r *SQLGuestRepository) LinkToLead(guestID, leadID string) error {
	const query = `
		UPDATE guests
		SET lead_id = ?
		WHERE id = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing guest link to lead", "guestId", guestID, "leadId", leadID)

	_, err := r.db.Exec(query, leadID, guestID)
	if err != nil {
		r.logger.Database().Error("Guest link to lead failed", "error", err.Error(), "guestId", guestID, "leadId", leadID)
		return err
	}

	r.logger.Database().Info("Guest link to lead completed", "guestId", guestID, "leadId", leadID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}

// Exists checks if a Guest with the given ID exists.
func (r *SQLGuestRepository) Exists(guestID string) (bool, error) {
	const query = `
		SELECT 1 FROM guests
		WHERE id = ?
		LIMIT 1`

	start := time.Now()

	var exists int
	err := r.db.QueryRow(query, guestID).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		r.logger.Database().Error("Failed to check guest existence", "error", err.Error(), "guestId", guestID)
		return false, err
	}

	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return true, nil
}

// scanGuest is a helper function to scan a sql.Row into a Guest struct.
func (r *SQLGuestRepository) scanGuest(row *sql.Row) (*user.Guest, error) {
	var guest user.Guest
	var leadID sql.NullString
	var createdAtStr string

	err := row.Scan(
		&guest.ID,
		&leadID,
		&createdAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if leadID.Valid {
		guest.LeadID = &leadID.String
	}

	guest.CreatedAt, err = parseTimestamp(createdAtStr)
	if err != nil {
		return nil, err
	}

	return &guest, nil
}

// parseTimestamp handles both RFC3339 and the plain sqlite timestamp format.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
