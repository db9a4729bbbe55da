package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kvrecord/internal/substrate"
)

// Set stores value at key, replacing any previous value.
// With a quota configured, the usage check and the write share a transaction
// and a rejected write returns *substrate.QuotaError.
func (s *Store) Set(key, value string) error {
	if s.quota <= 0 {
		_, err := s.db.Exec(`
			INSERT INTO items (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value)
		if err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("set %q: begin tx: %w", key, err)
	}
	defer tx.Rollback() // No-op if committed

	var used int64
	err = tx.QueryRow(`
		SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))), 0)
		FROM items
	`).Scan(&used)
	if err != nil {
		return fmt.Errorf("set %q: measure usage: %w", key, err)
	}

	var old int64
	err = tx.QueryRow(`
		SELECT length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))
		FROM items WHERE key = ?
	`, key).Scan(&old)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("set %q: measure entry: %w", key, err)
	}

	if err := substrate.CheckQuota(key, used, old, substrate.Usage(key, value), s.quota); err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO items (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set %q: commit: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Clear removes every entry.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM items`); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}
