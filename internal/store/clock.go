package store

import (
	"sync"
	"time"
)

// Clock hands out strictly increasing logical timestamps in Unix
// milliseconds. It follows wall time while wall time moves forward and
// otherwise keeps counting from the largest value seen, so a record edited
// twice within one millisecond, or after the wall clock stepped back, still
// gets a newer timestamp.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewClock returns a clock that never goes below last.
func NewClock(last int64) *Clock {
	return &Clock{last: last, now: time.Now}
}

// Next returns a timestamp greater than every value returned or observed so
// far.
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}

// Observe moves the clock forward to ts if ts is ahead of it. Merged remote
// timestamps are observed so that a later local edit always wins over them.
func (c *Clock) Observe(ts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ts > c.last {
		c.last = ts
	}
}

// Last returns the largest timestamp handed out or observed.
func (c *Clock) Last() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
