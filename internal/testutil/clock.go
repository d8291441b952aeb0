package testutil

import (
	"strconv"
	"sync"
)

// DeterministicClock numbers events for fakes and traces. Every fake or
// trace owns its own clock, so running a scenario twice numbers it the
// same way.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances the clock.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Stamp advances the clock and returns prefix followed by the new value,
// e.g. "h3".
func (c *DeterministicClock) Stamp(prefix string) string {
	return prefix + strconv.FormatInt(c.Next(), 10)
}

// Reset rewinds to zero.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
