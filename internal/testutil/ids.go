package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kvrecord/internal/substrate"
)

// DefaultIDPrefix is used by NewSequentialIDGenerator when prefix is empty.
const DefaultIDPrefix = "id-"

// SequentialIDGenerator produces "<prefix>1", "<prefix>2", ...
//
// This gives scenarios stable record ids, so substrate layouts can be
// compared against golden files byte for byte.
//
// Safe for concurrent use.
type SequentialIDGenerator struct {
	prefix string
	clock  *DeterministicClock
}

// NewSequentialIDGenerator creates a generator whose first id is prefix+"1".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = DefaultIDPrefix
	}
	return &SequentialIDGenerator{prefix: prefix, clock: NewDeterministicClock()}
}

// Generate returns the next id. Implements engine.IDGenerator.
func (g *SequentialIDGenerator) Generate() string {
	return fmt.Sprintf("%s%d", g.prefix, g.clock.Next())
}

// Reset restarts the sequence at 1.
func (g *SequentialIDGenerator) Reset() {
	g.clock.Reset()
}

// Seed writes entries into sub, failing the test on error.
func Seed(t testing.TB, sub substrate.Substrate, entries map[string]string) {
	t.Helper()
	for key, value := range entries {
		require.NoError(t, sub.Set(key, value), "seeding %q", key)
	}
}

// Layout returns every key/value pair in sub.
func Layout(t testing.TB, sub substrate.Substrate) map[string]string {
	t.Helper()
	entries, err := substrate.Dump(sub, nil)
	require.NoError(t, err)

	layout := make(map[string]string, len(entries))
	for _, e := range entries {
		layout[e.Key] = e.Value
	}
	return layout
}
