package engine

// Clock maps wall-clock seconds to media position.
//
// While playing, the media position is now - start. While paused the
// position is frozen at the moment of the pause; resuming shifts start by
// the paused interval so the position continues without a jump.
type Clock struct {
	paused    bool
	start     float64 // Wall-clock origin of the media timeline
	lastFrame float64 // Wall-clock time of the last presented frame or pause
}

// NewClock returns a paused clock at position 0.
func NewClock() *Clock {
	return &Clock{paused: true}
}

// Paused reports whether the clock is paused.
func (c *Clock) Paused() bool {
	return c.paused
}

// Play resumes a paused clock. It is a no-op while playing.
func (c *Clock) Play(now float64) {
	if !c.paused {
		return
	}
	c.start += now - c.lastFrame
	c.lastFrame = now
	c.paused = false
}

// Pause freezes the clock at now. It is a no-op while paused.
func (c *Clock) Pause(now float64) {
	if c.paused {
		return
	}
	c.lastFrame = now
	c.paused = true
}

// Reset makes pts the media position at wall-clock time now.
func (c *Clock) Reset(now, pts float64) {
	c.start = now - pts
	c.lastFrame = now
}

// MarkFrame records the presentation time of a frame.
func (c *Clock) MarkFrame(now float64) {
	c.lastFrame = now
}

// Elapsed returns the media position at wall-clock time now.
func (c *Clock) Elapsed(now float64) float64 {
	if c.paused {
		return c.lastFrame - c.start
	}
	return now - c.start
}
