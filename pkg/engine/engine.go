// Package engine implements the playback engine: it indexes a container,
// keeps a window of decoded frames around the playback position and paces
// presentation against the wall clock while keeping audio and video aligned.
//
// An Engine is driven from a single goroutine. Tick is called once per render
// iteration by the host loop; all other operations complete synchronously.
package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/user/rewind/pkg/adapters/logger"
	"github.com/user/rewind/pkg/framecache"
	"github.com/user/rewind/pkg/ports"
	"github.com/user/rewind/pkg/timeline"
)

// DefaultSyncTolerance is the audio/video drift in seconds that triggers a
// corrective refill.
const DefaultSyncTolerance = 0.05

// Options configures an Engine.
type Options struct {
	CacheSize     int              // Frames per stream held in the window
	SyncTolerance float64          // Drift in seconds that triggers a correction
	Now           func() float64   // Wall clock in seconds; defaults to a monotonic clock
	Logger        ports.Logger     // Defaults to a no-op logger
	Store         ports.IndexStore // Optional timeline cache
}

// DefaultOptions returns Options with the default policy constants.
func DefaultOptions() Options {
	return Options{
		CacheSize:     framecache.DefaultSize,
		SyncTolerance: DefaultSyncTolerance,
	}
}

// Engine is the playback engine facade. It owns the decoder backend, the
// frame cache and the playback state.
type Engine struct {
	backend ports.DecoderBackend
	opts    Options
	logger  ports.Logger
	now     func() float64

	path  string
	info  ports.StreamInfo
	index *timeline.Index
	cache *framecache.Cache
	clock *Clock

	// Positions of the current frames in the timeline index.
	curV int
	curA int

	// Set after a sync correction until the next frame is presented.
	corrected bool
	loaded    bool
}

// New creates an engine that drives backend.
func New(backend ports.DecoderBackend, opts Options) *Engine {
	defaults := DefaultOptions()
	if opts.CacheSize < 1 {
		opts.CacheSize = defaults.CacheSize
	}
	if opts.SyncTolerance <= 0 {
		opts.SyncTolerance = defaults.SyncTolerance
	}
	if opts.Now == nil {
		epoch := time.Now()
		opts.Now = func() float64 { return time.Since(epoch).Seconds() }
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoop()
	}

	return &Engine{
		backend: backend,
		opts:    opts,
		logger:  opts.Logger.WithComponent("engine"),
		now:     opts.Now,
		cache:   framecache.New(opts.CacheSize),
		clock:   NewClock(),
	}
}

// Load opens path, indexes both streams and fills the window at the first
// video frame. Playback starts paused. A failed load leaves the engine
// unloaded.
func (e *Engine) Load(path string) error {
	e.unload()

	info, err := e.backend.Open(path)
	if err != nil {
		e.logger.Error("Failed to open %s: %s", path, err)
		if errors.Is(err, ports.ErrLoad) || errors.Is(err, ports.ErrUnsupportedStream) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", ports.ErrLoad, path, err)
	}

	index, err := e.loadIndex(path)
	if err != nil {
		e.logger.Error("Failed to index %s: %s", path, err)
		if errors.Is(err, ports.ErrLoad) {
			return err
		}
		return fmt.Errorf("%w: %w", ports.ErrLoad, err)
	}

	e.index = index
	first := index.Video.First()
	if err := e.cache.Fill(e.backend, index.Video, first, e.opts.CacheSize); err != nil {
		e.index = nil
		e.logger.Error("Failed to decode first frames of %s: %s", path, err)
		return fmt.Errorf("%w: %w", ports.ErrLoad, err)
	}

	e.path = path
	e.info = info
	e.reposition(false)
	e.clock = NewClock()
	e.clock.Reset(e.now(), first)
	e.loaded = true

	e.logger.Info("Loaded %s: %d video frames, %d audio frames, %.2fs",
		path, index.Video.Len(), index.Audio.Len(), index.Video.Duration())
	return nil
}

// loadIndex returns the timeline of the opened container, from the store when
// it holds a current copy and from a full scan otherwise.
func (e *Engine) loadIndex(path string) (*timeline.Index, error) {
	store := e.opts.Store
	if store != nil {
		video, audio, ok, err := store.LoadIndex(path)
		switch {
		case err != nil:
			e.logger.Warn("Index cache read failed: %s", err)
		case ok:
			index, err := timeline.FromTimestamps(video, audio)
			if err == nil {
				e.logger.Debug("Index cache hit for %s", path)
				return index, nil
			}
			e.logger.Warn("Index cache entry for %s ignored: %s", path, err)
		}
	}

	e.logger.Info("Indexing %s", path)
	start := time.Now()
	index, err := timeline.Build(e.backend)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Indexed %d video and %d audio frames in %d ms",
		index.Video.Len(), index.Audio.Len(), time.Since(start).Milliseconds())

	if store != nil {
		if err := store.SaveIndex(path, index.Video, index.Audio); err != nil {
			e.logger.Warn("Index cache write failed: %s", err)
		}
	}
	return index, nil
}

// Play starts or resumes playback. It is a no-op when already playing or
// nothing is loaded.
func (e *Engine) Play() {
	if !e.loaded {
		return
	}
	e.clock.Play(e.now())
}

// Pause freezes playback. It is a no-op when already paused.
func (e *Engine) Pause() {
	if !e.loaded {
		return
	}
	e.clock.Pause(e.now())
}

// Seek moves playback to pts in either state. The window is rebuilt at the
// first video frame at or after pts. On error the playback state is left
// unchanged.
func (e *Engine) Seek(pts float64) error {
	if !e.loaded {
		return ports.ErrNotLoaded
	}

	if err := e.cache.Fill(e.backend, e.index.Video, pts, e.opts.CacheSize); err != nil {
		if !errors.Is(err, ports.ErrSeekOutOfRange) {
			e.logger.Error("Seek to %.3f failed: %s", pts, err)
		}
		return err
	}

	e.reposition(false)
	e.clock.Reset(e.now(), pts)
	e.corrected = false
	e.logger.Debug("Seeked to %.3f, first frame %.3f", pts, e.cache.CurrentVideo().PTS)
	return nil
}

// Tick runs one render iteration at wall-clock time now and reports whether
// the current frame was due and has been presented. now must be read from
// the same clock as Options.Now, which Play, Pause and Seek consult.
//
// Hosts read CurrentVideoFrame and CurrentAudioFrame before calling Tick and
// show them when Tick reports true. A presenting Tick advances the cursors,
// so afterwards the current frames are the next ones waiting to become due.
func (e *Engine) Tick(now float64) bool {
	if !e.loaded {
		return false
	}
	return e.syncMedia(now)
}

// CurrentVideoFrame returns the next video frame to present, or the zero
// Frame when nothing is cached. See Tick for when to read it.
func (e *Engine) CurrentVideoFrame() ports.Frame {
	return e.cache.CurrentVideo()
}

// CurrentAudioFrame returns the audio frame aligned with the current video
// frame, or the zero Frame when nothing is cached.
func (e *Engine) CurrentAudioFrame() ports.Frame {
	return e.cache.CurrentAudio()
}

// IsPaused reports whether playback is paused.
func (e *Engine) IsPaused() bool {
	return e.clock.Paused()
}

// Position returns the timestamp of the current video frame, the next one
// to be presented.
func (e *Engine) Position() float64 {
	return e.cache.CurrentVideo().PTS
}

// Elapsed returns the media position of the playback clock.
func (e *Engine) Elapsed() float64 {
	return e.clock.Elapsed(e.now())
}

// Progress returns the position of the current video frame as a percentage
// of the video duration, in [0, 100].
func (e *Engine) Progress() float64 {
	total := e.TotalDuration()
	if !e.loaded || total <= 0 {
		return 0
	}
	p := (e.cache.CurrentVideo().PTS - e.index.Video.First()) / total * 100
	return math.Max(0, math.Min(100, p))
}

// TotalDuration returns the span between the first and last video
// timestamps, or 0 when nothing is loaded.
func (e *Engine) TotalDuration() float64 {
	if e.index == nil {
		return 0
	}
	return e.index.Video.Duration()
}

// Info returns the stream description of the loaded container.
func (e *Engine) Info() ports.StreamInfo {
	return e.info
}

// Index returns the timeline of the loaded container, or nil.
func (e *Engine) Index() *timeline.Index {
	return e.index
}

// Path returns the loaded container path.
func (e *Engine) Path() string {
	return e.path
}

// Close releases the frame cache and the backend.
func (e *Engine) Close() error {
	e.unload()
	return e.backend.Close()
}

func (e *Engine) unload() {
	e.cache.Clear()
	e.index = nil
	e.info = ports.StreamInfo{}
	e.path = ""
	e.clock = NewClock()
	e.curV, e.curA = 0, 0
	e.corrected = false
	e.loaded = false
}
