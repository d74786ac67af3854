package storage

import (
	"database/sql"
	"time"

	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/persistence/database"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/security"
)

// SQLAdapter is the durable tier backed by the kv_store table. Values
// survive process restarts and session expiry. When an AES key is configured,
// values are encrypted at rest; rows written before a key was configured
// still read back as-is.
type SQLAdapter struct {
	db     *database.DB
	aesKey string
	logger *logging.ChanneledLogger
}

// NewSQLAdapter creates a durable key-value adapter over the given database.
// An empty aesKey disables at-rest encryption.
func NewSQLAdapter(db *database.DB, aesKey string, logger *logging.ChanneledLogger) *SQLAdapter {
	return &SQLAdapter{db: db, aesKey: aesKey, logger: logger}
}

// Probe verifies the tier is writable with a set/remove round trip, the
// only reliable way to detect a read-only or exhausted backing store.
func (s *SQLAdapter) Probe() bool {
	const probeKey = "__storage_probe__"
	if err := s.Set(probeKey, "1"); err != nil {
		s.logger.Database().Warn("Durable storage probe failed on write", "error", err.Error())
		return false
	}
	if err := s.Remove(probeKey); err != nil {
		s.logger.Database().Warn("Durable storage probe failed on remove", "error", err.Error())
		return false
	}
	return true
}

// Get retrieves a value by key.
func (s *SQLAdapter) Get(key string) (string, bool, error) {
	start := time.Now()
	const query = `SELECT value FROM kv_store WHERE key = ?`

	var value string
	err := s.db.QueryRow(query, key).Scan(&value)
	database.CheckAndLogSlowQuery(s.logger, query, time.Since(start))
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if s.aesKey != "" {
		if plaintext, err := security.Decrypt(value, s.aesKey); err == nil {
			return plaintext, true, nil
		}
		// Legacy plaintext row from before the key was configured.
	}
	return value, true, nil
}

// Set stores a value under key, overwriting any previous value.
func (s *SQLAdapter) Set(key, value string) error {
	if s.aesKey != "" {
		encrypted, err := security.Encrypt(value, s.aesKey)
		if err != nil {
			return err
		}
		value = encrypted
	}

	start := time.Now()
	const query = `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

	_, err := s.db.Exec(query, key, value)
	database.CheckAndLogSlowQuery(s.logger, query, time.Since(start))
	return err
}

// Remove deletes a key. Removing an absent key is not an error.
func (s *SQLAdapter) Remove(key string) error {
	start := time.Now()
	const query = `DELETE FROM kv_store WHERE key = ?`

	_, err := s.db.Exec(query, key)
	database.CheckAndLogSlowQuery(s.logger, query, time.Since(start))
	return err
}

// Keys returns all keys with the given prefix.
func (s *SQLAdapter) Keys(prefix string) ([]string, error) {
	start := time.Now()
	const query = `SELECT key FROM kv_store WHERE key LIKE ? || '%'`

	rows, err := s.db.Query(query, prefix)
	database.CheckAndLogSlowQuery(s.logger, query, time.Since(start))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
