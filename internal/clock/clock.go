// Package clock implements the player runtime's 20 ms frame pacing
// primitive: a monotonic start instant plus a frame counter, instead of
// a time.Ticker, so late wakeups don't accumulate a backlog of ticks.
package clock

import "time"

// FrameInterval is the wall-clock duration of one canonical PCM frame.
const FrameInterval = 20 * time.Millisecond

// maxDriftFrames is how many frames behind schedule triggers a resync of
// the clock origin instead of a catch-up burst.
const maxDriftFrames = 5

// FrameClock paces frame emission to one frame per FrameInterval, resyncing
// its origin after gross drift so a stall never produces a delivery burst.
type FrameClock struct {
	start         time.Time
	framesEmitted int64
	now           func() time.Time
	sleep         func(time.Duration)
}

// New creates a FrameClock whose origin is the current time.
func New() *FrameClock {
	return newWithClock(time.Now, time.Sleep)
}

func newWithClock(now func() time.Time, sleep func(time.Duration)) *FrameClock {
	return &FrameClock{start: now(), now: now, sleep: sleep}
}

// NextTick blocks until the next 20 ms boundary relative to the clock's
// origin, then returns. The target of call n (counting from 0 since the
// origin was set) is origin + n*FrameInterval, so the first call after New
// or Reset returns at once. If the caller is already late, NextTick returns
// immediately without sleeping, but the frame counter still advances by one
// so the long-term rate is preserved. Gross drift (>= 5 frames late)
// resyncs the origin to now instead of allowing a catch-up burst.
func (c *FrameClock) NextTick() {
	target := c.start.Add(time.Duration(c.framesEmitted) * FrameInterval)
	n := c.now()
	if n.Before(target) {
		c.sleep(target.Sub(n))
	} else if n.Sub(target) >= maxDriftFrames*FrameInterval {
		c.start = n
		c.framesEmitted = 0
	}
	c.framesEmitted++
}

// Reset resyncs the clock origin to now and clears the frame counter. Used
// on resume-from-pause: the next tick fires at once and the ticks after it
// follow at FrameInterval from the new origin, rather than delivering a
// burst of frames to catch up on the time spent paused.
func (c *FrameClock) Reset() {
	c.start = c.now()
	c.framesEmitted = 0
}
