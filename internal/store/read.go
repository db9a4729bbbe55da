package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kvrecord/internal/substrate"
)

// Get returns the value stored at key.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Keys returns every key in ascending binary order.
func (s *Store) Keys() ([]string, error) {
	return s.queryKeys(`SELECT key FROM items ORDER BY key ASC`)
}

// KeysWithPrefix returns the keys starting with prefix in ascending order.
// The lookup is a range scan on the primary key.
func (s *Store) KeysWithPrefix(prefix string) ([]string, error) {
	if prefix == "" {
		return s.Keys()
	}
	limit := substrate.PrefixLimit(prefix)
	if limit == "" {
		return s.queryKeys(`SELECT key FROM items WHERE key >= ? ORDER BY key ASC`, prefix)
	}
	return s.queryKeys(`SELECT key FROM items WHERE key >= ? AND key < ? ORDER BY key ASC`, prefix, limit)
}

// Len returns the number of entries.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Used returns the current usage in bytes.
func (s *Store) Used() (int64, error) {
	var used int64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))), 0)
		FROM items
	`).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("usage: %w", err)
	}
	return used, nil
}

func (s *Store) queryKeys(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}
