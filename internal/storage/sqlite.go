package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"pantry-planner/internal/logger"
)

// SQLiteStore persists keys in the kv_entries table.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
	*hub
}

func NewSQLiteStore(db *sql.DB, log *logger.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, log: log, hub: newHub()}
}

func (s *SQLiteStore) Read(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("failed to read kv entry", "key", key, "error", err)
		}
		return "", false
	}
	return value, true
}

func (s *SQLiteStore) Write(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write kv entry %s: %w", key, errors.Join(ErrUnavailable, err))
	}

	s.notify(key)
	return nil
}
