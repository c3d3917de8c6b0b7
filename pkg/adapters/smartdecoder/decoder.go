// Package smartdecoder implements ports.DecoderBackend for MP4 files. It
// detects the codec of every track and selects the appropriate decoder.
package smartdecoder

import (
	"errors"
	"fmt"
	"io"

	"github.com/user/rewind/pkg/adapters/av1decoder"
	"github.com/user/rewind/pkg/adapters/codecdetect"
	"github.com/user/rewind/pkg/adapters/ffmpegdecoder"
	"github.com/user/rewind/pkg/adapters/logger"
	"github.com/user/rewind/pkg/adapters/mp4demux"
	"github.com/user/rewind/pkg/adapters/pcmdecoder"
	"github.com/user/rewind/pkg/ports"
)

// Backend names the decoding implementation chosen for a stream.
type Backend string

const (
	// BackendLibaom represents libaom for AV1 decoding.
	BackendLibaom Backend = "libaom"
	// BackendFFmpeg represents an ffmpeg process for H.264 and AAC.
	BackendFFmpeg Backend = "ffmpeg"
	// BackendPCM represents the built-in PCM converter.
	BackendPCM Backend = "pcm"
)

// DecoderFactory creates the packet decoder for a track.
type DecoderFactory func(track *mp4demux.Track) (ports.PacketDecoder, Backend, error)

// Options configures the smart decoder behavior.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string

	// NewDecoder overrides decoder selection. Defaults to NewDecoder.
	NewDecoder DecoderFactory

	Logger ports.Logger
}

// NewDecoder picks a decoder by codec:
//   - AV1: libaom
//   - H.264 and AAC: ffmpeg
//   - 16-bit PCM: pcmdecoder
//
// Any other codec yields ports.ErrUnsupportedStream.
func NewDecoder(track *mp4demux.Track) (ports.PacketDecoder, Backend, error) {
	switch track.Codec {
	case codecdetect.CodecAV1:
		d, err := av1decoder.New()
		return d, BackendLibaom, err
	case codecdetect.CodecH264:
		d, err := ffmpegdecoder.NewVideo(track.Codec, track.Width, track.Height)
		return d, BackendFFmpeg, err
	case codecdetect.CodecAAC:
		d, err := ffmpegdecoder.NewAudio(track.Codec, track.SampleRate, track.Channels)
		return d, BackendFFmpeg, err
	case codecdetect.CodecPCMS16LE, codecdetect.CodecPCMS16BE:
		d, err := pcmdecoder.New(track.Codec, track.SampleRate, track.Channels, track.SampleBits)
		return d, BackendPCM, err
	}
	return nil, "", fmt.Errorf("%w: no decoder for codec %s", ports.ErrUnsupportedStream, track.Codec)
}

type stream struct {
	track   *mp4demux.Track
	dec     ports.PacketDecoder
	backend Backend
}

// Decoder is a ports.DecoderBackend that reads packets with mp4demux and
// routes them to per-stream packet decoders. It is not safe for concurrent
// use; the playback engine drives it from a single goroutine.
type Decoder struct {
	newDecoder DecoderFactory
	logger     ports.Logger

	demux   *mp4demux.Demuxer
	video   stream
	audio   stream
	pending []ports.Frame
	eof     bool
}

// New creates an unopened decoder backend.
func New(opts Options) *Decoder {
	if opts.FFmpegPath != "" {
		ffmpegdecoder.SetFFmpegPath(opts.FFmpegPath)
	}
	if opts.NewDecoder == nil {
		opts.NewDecoder = NewDecoder
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoop()
	}
	return &Decoder{
		newDecoder: opts.NewDecoder,
		logger:     opts.Logger.WithComponent("smartdecoder"),
	}
}

// Open opens an MP4 file and selects the first decodable video and audio
// tracks.
func (d *Decoder) Open(path string) (ports.StreamInfo, error) {
	d.Close()

	demux, err := mp4demux.Open(path)
	if err != nil {
		return ports.StreamInfo{}, fmt.Errorf("%w: %s: %w", ports.ErrLoad, path, err)
	}

	video, err := d.selectStream(demux, ports.StreamVideo)
	if err != nil {
		demux.Close()
		return ports.StreamInfo{}, err
	}
	audio, err := d.selectStream(demux, ports.StreamAudio)
	if err != nil {
		video.dec.Close()
		demux.Close()
		return ports.StreamInfo{}, err
	}

	if err := demux.Select(video.track, audio.track); err != nil {
		video.dec.Close()
		audio.dec.Close()
		demux.Close()
		return ports.StreamInfo{}, fmt.Errorf("%w: %w", ports.ErrLoad, err)
	}

	d.demux = demux
	d.video = video
	d.audio = audio

	vinfo := video.track.VideoInfo()
	vinfo.Decoder = string(video.backend)
	ainfo := audio.track.AudioInfo()
	ainfo.Decoder = string(audio.backend)
	return ports.StreamInfo{Path: path, Video: vinfo, Audio: ainfo}, nil
}

// selectStream returns the first track of kind whose decoder can be created.
func (d *Decoder) selectStream(demux *mp4demux.Demuxer, kind ports.StreamKind) (stream, error) {
	var firstErr error
	for _, t := range demux.Tracks() {
		if t.Kind != kind {
			continue
		}
		dec, backend, err := d.newDecoder(t)
		if err != nil {
			d.logger.Debug("Skipping %s track %d (%s): %s", kind, t.ID, t.Codec, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		d.logger.Info("Selected %s track %d: %s via %s", kind, t.ID, t.Codec, backend)
		return stream{track: t, dec: dec, backend: backend}, nil
	}

	if firstErr == nil {
		return stream{}, fmt.Errorf("%w: no %s stream", ports.ErrLoad, kind)
	}
	if errors.Is(firstErr, ports.ErrUnsupportedStream) {
		return stream{}, firstErr
	}
	return stream{}, fmt.Errorf("%w: %s: %w", ports.ErrUnsupportedStream, kind, firstErr)
}

// SeekToKeyframe repositions the demuxer and discards frames decoded ahead.
func (d *Decoder) SeekToKeyframe(kind ports.StreamKind, pts float64) error {
	if d.demux == nil {
		return ports.ErrNotLoaded
	}
	if err := d.demux.SeekToKeyframe(kind, pts); err != nil {
		return fmt.Errorf("%w: %w", ports.ErrDecode, err)
	}
	d.pending = d.pending[:0]
	d.eof = false
	return nil
}

// Flush resets the decoder of one stream and drops its queued frames.
func (d *Decoder) Flush(kind ports.StreamKind) error {
	if d.demux == nil {
		return ports.ErrNotLoaded
	}

	kept := d.pending[:0]
	for _, f := range d.pending {
		if f.Kind != kind {
			kept = append(kept, f)
		}
	}
	d.pending = kept

	if err := d.stream(kind).dec.Flush(); err != nil {
		return fmt.Errorf("%w: flush %s: %w", ports.ErrDecode, kind, err)
	}
	return nil
}

// ReadFrame returns the next decoded frame of either stream. At the end of
// the container both decoders are drained before io.EOF is returned.
func (d *Decoder) ReadFrame() (ports.Frame, error) {
	if d.demux == nil {
		return ports.Frame{}, ports.ErrNotLoaded
	}

	for len(d.pending) == 0 {
		if d.eof {
			return ports.Frame{}, io.EOF
		}

		pkt, err := d.demux.ReadPacket()
		if errors.Is(err, io.EOF) {
			d.eof = true
			for _, s := range []stream{d.video, d.audio} {
				frames, err := s.dec.Drain()
				if err != nil {
					return ports.Frame{}, fmt.Errorf("%w: drain %s: %w", ports.ErrDecode, s.track.Kind, err)
				}
				d.pending = append(d.pending, frames...)
			}
			continue
		}
		if err != nil {
			return ports.Frame{}, fmt.Errorf("%w: %w", ports.ErrDecode, err)
		}

		frames, err := d.stream(pkt.Kind).dec.Decode(pkt)
		if err != nil {
			return ports.Frame{}, fmt.Errorf("%w: %s packet at %.3f: %w", ports.ErrDecode, pkt.Kind, pkt.PTS, err)
		}
		d.pending = append(d.pending, frames...)
	}

	f := d.pending[0]
	d.pending = d.pending[1:]
	return f, nil
}

// Close releases the demuxer and both decoders.
func (d *Decoder) Close() error {
	var errs []error
	for _, s := range []stream{d.video, d.audio} {
		if s.dec != nil {
			errs = append(errs, s.dec.Close())
		}
	}
	if d.demux != nil {
		errs = append(errs, d.demux.Close())
	}
	d.demux = nil
	d.video = stream{}
	d.audio = stream{}
	d.pending = nil
	d.eof = false
	return errors.Join(errs...)
}

func (d *Decoder) stream(kind ports.StreamKind) stream {
	if kind == ports.StreamAudio {
		return d.audio
	}
	return d.video
}

// Ensure Decoder implements ports.DecoderBackend
var _ ports.DecoderBackend = (*Decoder)(nil)
