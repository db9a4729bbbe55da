package engine

import (
	"fmt"
	"maps"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kvrecord/internal/substrate"
)

// testRecord is a minimal Record backed by an attribute map.
type testRecord struct {
	attrs map[string]any
}

func newRecord(attrs map[string]any) *testRecord {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &testRecord{attrs: attrs}
}

func (r *testRecord) ID() string {
	v, ok := r.attrs["id"]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (r *testRecord) IDAttribute() string { return "id" }

func (r *testRecord) SetID(id string) { r.attrs["id"] = id }

func (r *testRecord) Serialize() (any, error) { return maps.Clone(r.attrs), nil }

// countingSubstrate counts Set calls per key.
type countingSubstrate struct {
	substrate.Substrate
	sets map[string]int
}

func newCounting(s substrate.Substrate) *countingSubstrate {
	return &countingSubstrate{Substrate: s, sets: map[string]int{}}
}

func (c *countingSubstrate) Set(key, value string) error {
	c.sets[key]++
	return c.Substrate.Set(key, value)
}

// newTestEngine creates an engine named "Model" over a fresh memory substrate.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *substrate.Memory) {
	t.Helper()
	mem := substrate.NewMemory()
	e, err := New(mem, "Model", opts...)
	require.NoError(t, err)
	return e, mem
}

func testValues() map[string]any {
	return map[string]any{
		"stringProp":  "stringValue",
		"numberProp":  1,
		"booleanProp": true,
	}
}
