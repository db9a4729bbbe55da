package testutil

import "sync/atomic"

// DeterministicClock is a logical clock: a counter that numbers harness
// trace events and drives SequentialIDGenerator. It is safe for
// concurrent use.
type DeterministicClock struct {
	seq atomic.Int64
}

// NewDeterministicClock returns a clock at 0. The first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances the clock and returns the new value.
func (c *DeterministicClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out, or 0.
func (c *DeterministicClock) Current() int64 {
	return c.seq.Load()
}

// Reset rewinds the clock so a scenario can be replayed with identical
// sequence numbers.
func (c *DeterministicClock) Reset() {
	c.seq.Store(0)
}
