// Package summarizer builds reports describing a media file and, optionally,
// a playback session over it.
package summarizer

import (
	"time"

	"github.com/user/rewind/pkg/ports"
	"github.com/user/rewind/pkg/timeline"
)

// Summary contains everything a report shows.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Media file
	Media MediaInfo

	// Selected streams and their timelines
	Video VideoSummary
	Audio AudioSummary

	// Playback session, nil when the report only describes the file
	Playback *PlaybackInfo
}

// MediaInfo identifies the reported file.
type MediaInfo struct {
	Path string
	Size int64
}

// TimelineInfo condenses the timestamp index of one stream.
type TimelineInfo struct {
	Frames int
	First  float64
	Last   float64
	Rate   float64 // Frames per second over the indexed span
	MaxGap float64 // Largest distance between neighbouring timestamps
}

// VideoSummary describes the video stream.
type VideoSummary struct {
	ports.VideoStreamInfo
	Timeline TimelineInfo
}

// AudioSummary describes the audio stream.
type AudioSummary struct {
	ports.AudioStreamInfo
	Timeline TimelineInfo
}

// PlaybackInfo describes a finished playback session.
type PlaybackInfo struct {
	Start     float64
	Position  float64
	Presented int
	Ended     bool
	WallTime  time.Duration
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Duration returns the span of the video timeline.
func (s *Summary) Duration() float64 {
	return s.Video.Timeline.Last - s.Video.Timeline.First
}

// Summarize condenses a timestamp sequence.
func Summarize(ts timeline.Timestamps) TimelineInfo {
	info := TimelineInfo{
		Frames: ts.Len(),
		First:  ts.First(),
		Last:   ts.Last(),
	}
	if d := ts.Duration(); d > 0 {
		info.Rate = float64(ts.Len()-1) / d
	}
	for i := 1; i < ts.Len(); i++ {
		if gap := ts.At(i) - ts.At(i-1); gap > info.MaxGap {
			info.MaxGap = gap
		}
	}
	return info
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithMedia sets the file information.
func (b *Builder) WithMedia(path string, size int64) *Builder {
	b.summary.Media = MediaInfo{
		Path: path,
		Size: size,
	}
	return b
}

// WithStreams sets the stream descriptions and condenses their timelines.
// A nil index leaves the timelines empty.
func (b *Builder) WithStreams(info ports.StreamInfo, index *timeline.Index) *Builder {
	b.summary.Video = VideoSummary{VideoStreamInfo: info.Video}
	b.summary.Audio = AudioSummary{AudioStreamInfo: info.Audio}
	if index != nil {
		b.summary.Video.Timeline = Summarize(index.Video)
		b.summary.Audio.Timeline = Summarize(index.Audio)
	}
	return b
}

// WithPlayback attaches a playback session.
func (b *Builder) WithPlayback(playback PlaybackInfo) *Builder {
	b.summary.Playback = &playback
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
