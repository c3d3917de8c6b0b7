// Package framecache holds the bounded window of decoded frames around the
// playback position and refills it from a decoder backend.
package framecache

import (
	"errors"
	"fmt"
	"io"

	"github.com/user/rewind/pkg/ports"
	"github.com/user/rewind/pkg/timeline"
)

// DefaultSize is the number of frames held per stream.
const DefaultSize = 64

// Cache is a pair of windows of consecutive decoded frames, one per stream,
// each with its own cursor. It is not safe for concurrent use.
type Cache struct {
	size int

	video []ports.Frame
	audio []ports.Frame

	videoIndex int
	audioIndex int

	anchor float64
}

// New creates an empty cache holding at most size frames per stream.
func New(size int) *Cache {
	if size < 1 {
		size = DefaultSize
	}
	return &Cache{size: size}
}

// Size returns the per-stream capacity.
func (c *Cache) Size() int {
	return c.size
}

// Fill repositions the backend at the nearest keyframe before target and
// repopulates both windows from there.
//
// Video frames earlier than target are decoded and discarded; up to count
// frames from the first one at or after target are kept. Audio frames at or
// after target are kept as they are read, up to the cache size; earlier audio
// is dropped so both windows start at target. The previous
// windows are replaced only when the refill succeeds.
func (c *Cache) Fill(backend ports.DecoderBackend, bounds timeline.Timestamps, target float64, count int) error {
	if !bounds.Contains(target) {
		return fmt.Errorf("%w: %.3f not in [%.3f, %.3f]", ports.ErrSeekOutOfRange, target, bounds.First(), bounds.Last())
	}
	if count < 1 || count > c.size {
		count = c.size
	}

	if err := backend.SeekToKeyframe(ports.StreamVideo, target); err != nil {
		return fmt.Errorf("%w: seek to %.3f: %v", ports.ErrDecode, target, err)
	}
	for _, kind := range []ports.StreamKind{ports.StreamVideo, ports.StreamAudio} {
		if err := backend.Flush(kind); err != nil {
			return fmt.Errorf("%w: flush %s: %v", ports.ErrDecode, kind, err)
		}
	}

	video := make([]ports.Frame, 0, count)
	audio := make([]ports.Frame, 0, c.size)

	for len(video) < count {
		frame, err := backend.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: refill at %.3f: %v", ports.ErrDecode, target, err)
		}

		if frame.PTS < target {
			continue
		}
		switch frame.Kind {
		case ports.StreamVideo:
			video = append(video, frame)
		case ports.StreamAudio:
			if len(audio) < c.size {
				audio = append(audio, frame)
			}
		}
	}

	if len(video) == 0 {
		return fmt.Errorf("%w: no video frame at or after %.3f", ports.ErrDecode, target)
	}

	c.video = video
	c.audio = audio
	c.videoIndex = 0
	c.audioIndex = 0
	c.anchor = target
	return nil
}

// Advance moves the video cursor one frame forward and the audio cursor at
// least one frame forward, then on to the last audio frame not later than
// the new video frame. Both cursors stop at the end of their window.
// It returns how many audio frames the cursor moved.
func (c *Cache) Advance() (audioSteps int) {
	if c.videoIndex < c.lastVideoSlot() {
		c.videoIndex++
	}

	if len(c.audio) == 0 {
		return 0
	}
	start := c.audioIndex
	last := len(c.audio) - 1
	if c.audioIndex < last {
		c.audioIndex++
	}
	if len(c.video) > 0 {
		pts := c.video[c.videoIndex].PTS
		for c.audioIndex < last && c.audio[c.audioIndex+1].PTS <= pts {
			c.audioIndex++
		}
	}
	return c.audioIndex - start
}

// Exhausted reports whether the video cursor sits on the last slot of the
// window.
func (c *Cache) Exhausted() bool {
	return len(c.video) > 0 && c.videoIndex >= c.lastVideoSlot()
}

// AudioExhausted reports whether the audio cursor sits on the last cached
// audio frame.
func (c *Cache) AudioExhausted() bool {
	return len(c.audio) > 0 && c.audioIndex >= len(c.audio)-1
}

func (c *Cache) lastVideoSlot() int {
	n := len(c.video)
	if n > c.size {
		n = c.size
	}
	if n == 0 {
		return 0
	}
	return n - 1
}

// CurrentVideo returns the frame under the video cursor, or the zero Frame
// when the window is empty.
func (c *Cache) CurrentVideo() ports.Frame {
	if len(c.video) == 0 {
		return ports.Frame{}
	}
	return c.video[c.videoIndex]
}

// CurrentAudio returns the frame under the audio cursor, or the zero Frame
// when the window is empty.
func (c *Cache) CurrentAudio() ports.Frame {
	if len(c.audio) == 0 {
		return ports.Frame{}
	}
	return c.audio[c.audioIndex]
}

// VideoIndex returns the video cursor.
func (c *Cache) VideoIndex() int { return c.videoIndex }

// AudioIndex returns the audio cursor.
func (c *Cache) AudioIndex() int { return c.audioIndex }

// VideoLen returns the number of cached video frames.
func (c *Cache) VideoLen() int { return len(c.video) }

// AudioLen returns the number of cached audio frames.
func (c *Cache) AudioLen() int { return len(c.audio) }

// Video returns the cached video frame at i.
func (c *Cache) Video(i int) ports.Frame { return c.video[i] }

// Audio returns the cached audio frame at i.
func (c *Cache) Audio(i int) ports.Frame { return c.audio[i] }

// Anchor returns the target of the most recent successful refill.
func (c *Cache) Anchor() float64 {
	return c.anchor
}

// Empty reports whether either window holds no frames.
func (c *Cache) Empty() bool {
	return len(c.video) == 0 || len(c.audio) == 0
}

// Clear releases both windows.
func (c *Cache) Clear() {
	c.video = nil
	c.audio = nil
	c.videoIndex = 0
	c.audioIndex = 0
	c.anchor = 0
}
