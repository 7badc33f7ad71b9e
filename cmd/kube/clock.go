package main

import "time"

// updateClock paces game updates at a fixed rate while frames render as fast
// as the swapchain allows. At most one update runs per frame.
type updateClock struct {
	step    time.Duration
	pending float64
	last    time.Time
}

func newUpdateClock(ups int, now time.Time) *updateClock {
	return &updateClock{step: time.Second / time.Duration(ups), last: now}
}

// tick reports whether an update is due at now.
func (c *updateClock) tick(now time.Time) bool {
	c.pending += float64(now.Sub(c.last)) / float64(c.step)
	c.last = now
	if c.pending >= 1 {
		c.pending--
		return true
	}
	return false
}

// fpsCounter averages the frame rate over windows of at least a second.
type fpsCounter struct {
	frames int
	since  time.Time
}

func newFPSCounter(now time.Time) *fpsCounter {
	return &fpsCounter{since: now}
}

// frame counts a frame rendered at now and reports the average rate once a
// second has passed since the last report.
func (c *fpsCounter) frame(now time.Time) (float64, bool) {
	c.frames++
	elapsed := now.Sub(c.since)
	if elapsed < time.Second {
		return 0, false
	}
	fps := float64(c.frames) / elapsed.Seconds()
	c.frames = 0
	c.since = now
	return fps, true
}
