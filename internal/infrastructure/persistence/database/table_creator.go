// Package database provides schema creation for the durable tier
package database

import (
	"fmt"

	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
)

var tableDefinitions = []struct {
	name string
	ddl  string
}{
	{
		name: "leads",
		ddl: `CREATE TABLE IF NOT EXISTS leads (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			tier TEXT NOT NULL DEFAULT 'free',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			changed TIMESTAMP
		)`,
	},
	{
		name: "guests",
		ddl: `CREATE TABLE IF NOT EXISTS guests (
			id TEXT PRIMARY KEY,
			lead_id TEXT REFERENCES leads(id),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	{
		name: "events",
		ddl: `CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			guest_id TEXT NOT NULL,
			type TEXT NOT NULL,
			page TEXT,
			metadata TEXT,
			occurred_at TIMESTAMP NOT NULL
		)`,
	},
	{
		name: "kv_store",
		ddl: `CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	},
}

var indexDefinitions = []string{
	`CREATE INDEX IF NOT EXISTS idx_guests_lead_id ON guests(lead_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_guest_id ON events(guest_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events(occurred_at)`,
}

// CreateTables ensures all required tables and indexes exist.
func CreateTables(db *DB, logger *logging.ChanneledLogger) error {
	for _, table := range tableDefinitions {
		if _, err := db.Exec(table.ddl); err != nil {
			logger.Database().Error("Failed to create table", "table", table.name, "error", err.Error())
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
		logger.Database().Debug("Ensured table exists", "table", table.name)
	}

	for _, ddl := range indexDefinitions {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	logger.Database().Info("Database schema ready", "tables", len(tableDefinitions))
	return nil
}
