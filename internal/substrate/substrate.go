package substrate

import (
	"fmt"
	"strings"
)

// Substrate is a persistent dictionary of string keys to string values.
type Substrate interface {
	// Get returns the value stored at key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)

	// Set stores value at key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Keys returns every key in the substrate.
	Keys() ([]string, error)

	// Len returns the total number of keys.
	Len() (int, error)
}

// PrefixScanner is implemented by substrates that can enumerate the keys
// under one prefix without walking the whole key space.
type PrefixScanner interface {
	KeysWithPrefix(prefix string) ([]string, error)
}

// Entry is one key-value pair.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// KeysWithPrefix returns the keys of s starting with prefix. It uses the
// substrate's own PrefixScanner when available and otherwise filters Keys.
func KeysWithPrefix(s Substrate, prefix string) ([]string, error) {
	if ps, ok := s.(PrefixScanner); ok {
		return ps.KeysWithPrefix(prefix)
	}
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// Dump returns every entry of s whose key satisfies keep, in key order of
// s.Keys(). A nil keep selects all entries.
func Dump(s Substrate, keep func(key string) bool) ([]Entry, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, fmt.Errorf("dump: %w", err)
	}
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if keep != nil && !keep(k) {
			continue
		}
		v, ok, err := s.Get(k)
		if err != nil {
			return nil, fmt.Errorf("dump %q: %w", k, err)
		}
		if !ok {
			continue
		}
		entries = append(entries, Entry{Key: k, Value: v})
	}
	return entries, nil
}

// Usage is the quota cost of storing value at key.
func Usage(key, value string) int64 {
	return int64(len(key) + len(value))
}

// PrefixLimit returns the smallest string greater than every string that
// starts with prefix, for use as an exclusive range bound. It returns ""
// when no such bound exists (prefix empty or all 0xff bytes).
func PrefixLimit(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}
