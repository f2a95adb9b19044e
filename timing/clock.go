// Package timing provides the clocks and the tick loop that drive a
// simulation.
package timing

import (
	"sync"
	"time"
)

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() time.Time
}

// WallClock tells the real time.
type WallClock struct{}

// CurrentTime returns time.Now().
func (WallClock) CurrentTime() time.Time {
	return time.Now()
}

// ManualClock is a clock that only moves when told to. It is used for virtual
// time runs and for tests.
type ManualClock struct {
	lock sync.RWMutex
	now  time.Time
}

// NewManualClock creates a clock that starts at the given time.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// CurrentTime returns the time the clock was last set to.
func (c *ManualClock) CurrentTime() time.Time {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.now
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (c *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}

	c.lock.Lock()
	c.now = c.now.Add(d)
	c.lock.Unlock()
}

// Set moves the clock to t, which may be in the past.
func (c *ManualClock) Set(t time.Time) {
	c.lock.Lock()
	c.now = t
	c.lock.Unlock()
}
