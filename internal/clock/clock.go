// internal/clock/clock.go
package clock

import (
	"sync/atomic"
	"time"
)

// Clock is a millisecond tick source. Readings never decrease, but the
// int32 counter wraps after ~24.8 days; callers compare with subtraction.
type Clock interface {
	Millis() int32
}

// Monotonic counts milliseconds since it was created.
type Monotonic struct {
	start time.Time
}

func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

func (c *Monotonic) Millis() int32 {
	// time.Since uses the monotonic reading captured by time.Now.
	return int32(time.Since(c.start).Milliseconds())
}

// Manual is a clock advanced explicitly. Used by tests and replay.
type Manual struct {
	now atomic.Int32
}

func NewManual(start int32) *Manual {
	c := &Manual{}
	c.now.Store(start)
	return c
}

func (c *Manual) Millis() int32 { return c.now.Load() }

// Advance moves the clock forward by d milliseconds. Negative values are ignored.
func (c *Manual) Advance(d int32) int32 {
	if d < 0 {
		return c.now.Load()
	}
	return c.now.Add(d)
}

// Set jumps to t if t is not behind the current reading.
func (c *Manual) Set(t int32) {
	for {
		cur := c.now.Load()
		if t-cur < 0 {
			return
		}
		if c.now.CompareAndSwap(cur, t) {
			return
		}
	}
}
