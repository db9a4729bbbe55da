package engine

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces identifiers for records created without one.
// Implemented by GUIDGenerator (default), UUIDv7Generator and
// FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// GUIDPattern matches identifiers produced by GUIDGenerator and
// UUIDv7Generator: 8-4-4-4-12 lowercase hex groups.
var GUIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// GUIDGenerator builds pseudo-GUIDs from random 4-hex-digit groups.
//
// Format: "3f2a9c1e-07bd-4c55-a0e1-9d3b7f6e2c48". The groups carry no version
// bits and uniqueness is only probabilistic.
//
// Thread-safety: GUIDGenerator is safe for concurrent use.
type GUIDGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGUIDGenerator creates a generator drawing from rnd. A nil rnd uses the
// global math/rand/v2 source.
func NewGUIDGenerator(rnd *rand.Rand) *GUIDGenerator {
	return &GUIDGenerator{rnd: rnd}
}

// Generate returns a new pseudo-GUID.
func (g *GUIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	buf := make([]byte, 0, 36)
	for i := 0; i < 8; i++ {
		if i == 2 || i == 3 || i == 4 || i == 5 {
			buf = append(buf, '-')
		}
		buf = append(buf, g.s4()...)
	}
	return string(buf)
}

// s4 returns four random hex digits: (1+r)*0x10000 lies in [0x10000, 0x20000),
// so its hex form always has five digits and the leading "1" is dropped.
func (g *GUIDGenerator) s4() string {
	var r float64
	if g.rnd != nil {
		r = g.rnd.Float64()
	} else {
		r = rand.Float64()
	}
	return strconv.FormatInt(int64((1+r)*0x10000), 16)[1:]
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// Uses github.com/google/uuid package for RFC 4122 compliant UUIDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined identifiers for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("a", "b")
//	gen.Generate() // "a"
//	gen.Generate() // "b"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed, to catch test misconfiguration.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
