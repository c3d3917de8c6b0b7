// Package timeline builds the per-stream presentation timestamp index used
// for all seek math.
package timeline

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/user/rewind/pkg/ports"
)

// Timestamps is an immutable, non-decreasing sequence of presentation
// timestamps in seconds, one per decodable frame of a stream.
type Timestamps []float64

// Len returns the number of indexed frames.
func (ts Timestamps) Len() int {
	return len(ts)
}

// At returns the timestamp at index i.
func (ts Timestamps) At(i int) float64 {
	return ts[i]
}

// First returns the first timestamp, or 0 for an empty sequence.
func (ts Timestamps) First() float64 {
	if len(ts) == 0 {
		return 0
	}
	return ts[0]
}

// Last returns the last timestamp, or 0 for an empty sequence.
func (ts Timestamps) Last() float64 {
	if len(ts) == 0 {
		return 0
	}
	return ts[len(ts)-1]
}

// Duration returns Last() - First().
func (ts Timestamps) Duration() float64 {
	return ts.Last() - ts.First()
}

// Contains reports whether t lies within [First(), Last()].
func (ts Timestamps) Contains(t float64) bool {
	return len(ts) > 0 && t >= ts.First() && t <= ts.Last()
}

// Forward returns the first index whose timestamp is >= t.
// Targets past the last entry clamp to the last index.
func (ts Timestamps) Forward(t float64) int {
	if len(ts) == 0 {
		return 0
	}
	i := sort.SearchFloat64s(ts, t)
	if i >= len(ts) {
		return len(ts) - 1
	}
	return i
}

// Backward returns the last index whose timestamp is <= t.
// Targets before the first entry clamp to index 0.
func (ts Timestamps) Backward(t float64) int {
	if len(ts) == 0 {
		return 0
	}
	i := sort.Search(len(ts), func(i int) bool { return ts[i] > t })
	if i == 0 {
		return 0
	}
	return i - 1
}

// Index holds the video and audio timelines of a container.
type Index struct {
	Video Timestamps
	Audio Timestamps
}

// Build decodes the whole container once and records the timestamp of
// every produced frame. Frame payloads are dropped.
func Build(backend ports.DecoderBackend) (*Index, error) {
	var video, audio []float64

	for {
		frame, err := backend.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: index scan: %v", ports.ErrDecode, err)
		}

		switch frame.Kind {
		case ports.StreamVideo:
			video = append(video, frame.PTS)
		case ports.StreamAudio:
			audio = append(audio, frame.PTS)
		}
	}

	return FromTimestamps(video, audio)
}

// FromTimestamps creates an index from previously collected timestamps.
// Both streams must be non-empty.
func FromTimestamps(video, audio []float64) (*Index, error) {
	if len(video) == 0 {
		return nil, fmt.Errorf("%w: no decodable video frames", ports.ErrLoad)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: no decodable audio frames", ports.ErrLoad)
	}

	v := append(Timestamps(nil), video...)
	a := append(Timestamps(nil), audio...)

	// Decoders emit presentation order; a stray out-of-order stamp would
	// break the binary searches.
	if !sort.Float64sAreSorted(v) {
		sort.Float64s(v)
	}
	if !sort.Float64sAreSorted(a) {
		sort.Float64s(a)
	}

	return &Index{Video: v, Audio: a}, nil
}
