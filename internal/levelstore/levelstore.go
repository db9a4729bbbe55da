// Package levelstore provides a LevelDB-backed durable key-value substrate.
//
// Keys and values are stored as their raw UTF-8 bytes. LevelDB keeps keys
// sorted, so a collection's entries are one contiguous range and
// KeysWithPrefix is a bounded iterator rather than a full scan.
package levelstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/roach88/kvrecord/internal/substrate"
)

// Store is a substrate.Substrate persisted in a LevelDB directory.
type Store struct {
	// mu serializes writes so the quota accounting stays exact.
	mu    sync.Mutex
	db    *leveldb.DB
	quota int64
	used  int64
}

var (
	_ substrate.Substrate     = (*Store)(nil)
	_ substrate.PrefixScanner = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithQuota limits total usage to limit bytes. Zero means unlimited.
func WithQuota(limit int64) Option {
	return func(s *Store) {
		s.quota = limit
	}
}

// Open creates or opens the LevelDB database in directory path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := leveldb.OpenFile(path, &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: false,
	})
	if err != nil {
		return nil, fmt.Errorf("open leveldb %q: %w", path, err)
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}

	if s.quota > 0 {
		used, err := s.measure()
		if err != nil {
			db.Close()
			return nil, err
		}
		s.used = used
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get implements substrate.Substrate.
func (s *Store) Get(key string) (string, bool, error) {
	value, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return string(value), true, nil
}

// Set implements substrate.Substrate.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var old int64
	if s.quota > 0 {
		prev, ok, err := s.Get(key)
		if err != nil {
			return err
		}
		if ok {
			old = substrate.Usage(key, prev)
		}
		if err := substrate.CheckQuota(key, s.used, old, substrate.Usage(key, value), s.quota); err != nil {
			return err
		}
	}

	if err := s.db.Put([]byte(key), []byte(value), nil); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	if s.quota > 0 {
		s.used += substrate.Usage(key, value) - old
	}
	return nil
}

// Remove implements substrate.Substrate.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota > 0 {
		prev, ok, err := s.Get(key)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		s.used -= substrate.Usage(key, prev)
	}

	if err := s.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Keys implements substrate.Substrate. Keys are returned in byte order.
func (s *Store) Keys() ([]string, error) {
	return s.keys(nil)
}

// KeysWithPrefix implements substrate.PrefixScanner.
func (s *Store) KeysWithPrefix(prefix string) ([]string, error) {
	return s.keys(ldb_util.BytesPrefix([]byte(prefix)))
}

// Len implements substrate.Substrate.
func (s *Store) Len() (int, error) {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	n := 0
	for iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Used returns the current usage in bytes.
func (s *Store) Used() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quota > 0 {
		return s.used, nil
	}
	return s.measure()
}

func (s *Store) keys(r *ldb_util.Range) ([]string, error) {
	iter := s.db.NewIterator(r, nil)
	defer iter.Release()

	keys := []string{}
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

func (s *Store) measure() (int64, error) {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	var used int64
	for iter.Next() {
		used += int64(len(iter.Key()) + len(iter.Value()))
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("measure usage: %w", err)
	}
	return used, nil
}
