package mocks

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/user/rewind/pkg/ports"
)

// Backend is a scripted implementation of ports.DecoderBackend.
//
// Frames of both streams are interleaved by timestamp, video first on ties,
// which mimics a muxer writing audio and video in lockstep. Every
// KeyframeInterval-th video frame is a keyframe.
type Backend struct {
	mu sync.Mutex

	VideoPTS         []float64
	AudioPTS         []float64
	KeyframeInterval int
	Info             ports.StreamInfo

	order  []ports.Frame
	pos    int
	opened bool

	OpenFunc func(path string) (ports.StreamInfo, error)
	// ReadFunc, when set, is consulted before every read. A non-nil error is
	// returned to the caller instead of the next frame.
	ReadFunc func(next ports.Frame) error

	OpenCalls  []string
	SeekCalls  []float64
	FlushCalls []ports.StreamKind
	ReadCalls  int
	Closed     bool
}

// NewBackend creates a mock backend for the given timelines.
func NewBackend(video, audio []float64, keyframeInterval int) *Backend {
	if keyframeInterval < 1 {
		keyframeInterval = 1
	}
	return &Backend{
		VideoPTS:         video,
		AudioPTS:         audio,
		KeyframeInterval: keyframeInterval,
		Info: ports.StreamInfo{
			Video: ports.VideoStreamInfo{Codec: "mock", Timescale: 1000, Width: 4, Height: 2},
			Audio: ports.AudioStreamInfo{Codec: "mock", Timescale: 1000, SampleRate: 48000, Channels: 2, SampleSize: 16},
		},
	}
}

// Seconds returns n timestamps spaced step seconds apart, starting at offset.
func Seconds(n int, step, offset float64) []float64 {
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = offset + float64(i)*step
	}
	return ts
}

func (b *Backend) Open(path string) (ports.StreamInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.OpenCalls = append(b.OpenCalls, path)
	if b.OpenFunc != nil {
		info, err := b.OpenFunc(path)
		if err != nil {
			return ports.StreamInfo{}, err
		}
		b.Info = info
	}

	b.order = b.order[:0]
	for _, pts := range b.VideoPTS {
		b.order = append(b.order, videoFrame(pts))
	}
	for _, pts := range b.AudioPTS {
		b.order = append(b.order, audioFrame(pts))
	}
	sort.SliceStable(b.order, func(i, j int) bool {
		if b.order[i].PTS == b.order[j].PTS {
			return b.order[i].Kind == ports.StreamVideo && b.order[j].Kind == ports.StreamAudio
		}
		return b.order[i].PTS < b.order[j].PTS
	})
	b.pos = 0
	b.opened = true

	info := b.Info
	info.Path = path
	return info, nil
}

func (b *Backend) SeekToKeyframe(kind ports.StreamKind, pts float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.opened {
		return fmt.Errorf("mock backend: not opened")
	}
	b.SeekCalls = append(b.SeekCalls, pts)

	key := 0
	for i, v := range b.VideoPTS {
		if v > pts {
			break
		}
		if i%b.KeyframeInterval == 0 {
			key = i
		}
	}

	videoSeen := 0
	for i, f := range b.order {
		if f.Kind != ports.StreamVideo {
			continue
		}
		if videoSeen == key {
			b.pos = i
			return nil
		}
		videoSeen++
	}
	b.pos = len(b.order)
	return nil
}

func (b *Backend) Flush(kind ports.StreamKind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FlushCalls = append(b.FlushCalls, kind)
	return nil
}

func (b *Backend) ReadFrame() (ports.Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ReadCalls++
	if b.pos >= len(b.order) {
		return ports.Frame{}, io.EOF
	}
	next := b.order[b.pos]
	if b.ReadFunc != nil {
		if err := b.ReadFunc(next); err != nil {
			return ports.Frame{}, err
		}
	}
	b.pos++
	return next, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closed = true
	b.opened = false
	return nil
}

// SeekCount returns the number of keyframe seeks issued so far.
func (b *Backend) SeekCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.SeekCalls)
}

func videoFrame(pts float64) ports.Frame {
	return ports.Frame{
		Kind:    ports.StreamVideo,
		PTS:     pts,
		Width:   4,
		Height:  2,
		Planes:  [][]byte{make([]byte, 8), make([]byte, 2), make([]byte, 2)},
		Strides: []int{4, 2, 2},
	}
}

func audioFrame(pts float64) ports.Frame {
	return ports.Frame{
		Kind:       ports.StreamAudio,
		PTS:        pts,
		Samples:    make([]byte, 16),
		SampleSize: 2,
		Channels:   2,
		SampleRate: 48000,
	}
}

var _ ports.DecoderBackend = (*Backend)(nil)
