package ffmpegdecoder

import (
	"container/heap"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/user/rewind/pkg/adapters/codecdetect"
	"github.com/user/rewind/pkg/ports"
)

const (
	// AudioFrameSamples is the number of samples per channel in each decoded
	// audio frame.
	AudioFrameSamples = 1024

	// maxInFlight is the number of video packets written without output
	// before Decode waits for ffmpeg to catch up.
	maxInFlight = 16

	outputWait = 200 * time.Millisecond
)

// Decoder implements ports.PacketDecoder on top of an ffmpeg process that
// reads Annex B H.264 or ADTS AAC on stdin and writes raw yuv420p pictures
// or interleaved s16le samples on stdout.
//
// The process starts with the first packet after New or Flush. Video
// timestamps are reassigned from the input packets: ffmpeg emits pictures in
// presentation order, so the n-th picture gets the n-th smallest pending
// packet timestamp. Audio timestamps count samples from the first packet.
//
// If ffmpeg drops a picture (for example a leading B-frame whose reference
// was cut by a seek) the pending timestamps drift by one until the next
// Flush. Decoding always restarts at a keyframe after a seek, which keeps
// this rare for the streams the demuxer produces.
type Decoder struct {
	ffmpegPath string
	kind       ports.StreamKind
	args       []string
	chunkSize  int

	// Video
	width, height int

	// Audio
	sampleRate, channels int

	mu      sync.Mutex
	proc    *process
	pending ptsHeap
	basePTS float64
	samples int64
	started bool
	closed  bool
}

// NewVideo creates an H.264 decoder for pictures of the given size.
func NewVideo(codec codecdetect.Codec, width, height int) (*Decoder, error) {
	if codec != codecdetect.CodecH264 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid picture size %dx%d", width, height)
	}
	ffmpegPath, err := FindFFmpeg()
	if err != nil {
		return nil, err
	}

	cw, ch := (width+1)/2, (height+1)/2
	return &Decoder{
		ffmpegPath: ffmpegPath,
		kind:       ports.StreamVideo,
		width:      width,
		height:     height,
		chunkSize:  width*height + 2*cw*ch,
		args: append(inputArgs("h264"),
			"-f", "rawvideo",
			"-pix_fmt", "yuv420p",
			"-s", fmt.Sprintf("%dx%d", width, height),
			"pipe:1",
		),
	}, nil
}

// NewAudio creates an AAC decoder producing 16-bit interleaved samples.
func NewAudio(codec codecdetect.Codec, sampleRate, channels int) (*Decoder, error) {
	if codec != codecdetect.CodecAAC {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid audio format %d Hz, %d channels", sampleRate, channels)
	}
	ffmpegPath, err := FindFFmpeg()
	if err != nil {
		return nil, err
	}

	return &Decoder{
		ffmpegPath: ffmpegPath,
		kind:       ports.StreamAudio,
		sampleRate: sampleRate,
		channels:   channels,
		chunkSize:  AudioFrameSamples * channels * 2,
		args: append(inputArgs("aac"),
			"-f", "s16le",
			"-ac", strconv.Itoa(channels),
			"-ar", strconv.Itoa(sampleRate),
			"pipe:1",
		),
	}, nil
}

func inputArgs(format string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-probesize", "32",
		"-analyzeduration", "0",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-f", format,
		"-i", "pipe:0",
	}
}

// Decode writes one packet to ffmpeg and returns the frames decoded so far.
func (d *Decoder) Decode(pkt ports.Packet) ([]ports.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if len(pkt.Data) == 0 {
		return nil, nil
	}

	if d.proc == nil {
		proc, err := startProcess(d.ffmpegPath, d.args, d.chunkSize)
		if err != nil {
			return nil, err
		}
		d.proc = proc
	}
	if !d.started {
		d.basePTS = pkt.PTS
		d.started = true
	}

	if err := d.proc.write(pkt.Data); err != nil {
		return nil, err
	}
	if d.kind == ports.StreamVideo {
		heap.Push(&d.pending, pkt.PTS)
		if d.pending.Len() > maxInFlight {
			d.proc.waitOutput(outputWait)
		}
	}

	chunks, err := d.proc.take()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	return d.frames(chunks), nil
}

// Drain closes ffmpeg's input and returns every remaining frame. The next
// Decode starts a new process.
func (d *Decoder) Drain() ([]ports.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if d.proc == nil {
		return nil, nil
	}

	chunks, err := d.proc.finish()
	frames := d.frames(chunks)
	d.reset()
	return frames, err
}

// Flush kills ffmpeg and drops all pending output.
func (d *Decoder) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.proc != nil {
		d.proc.kill()
	}
	d.reset()
	return nil
}

// Close stops ffmpeg. It is safe to call more than once.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.proc != nil {
		d.proc.kill()
	}
	d.reset()
	d.closed = true
	return nil
}

func (d *Decoder) reset() {
	d.proc = nil
	d.pending = d.pending[:0]
	d.samples = 0
	d.started = false
}

func (d *Decoder) frames(chunks [][]byte) []ports.Frame {
	if len(chunks) == 0 {
		return nil
	}
	if d.kind == ports.StreamAudio {
		return d.audioFrames(chunks)
	}
	return d.videoFrames(chunks)
}

func (d *Decoder) videoFrames(chunks [][]byte) []ports.Frame {
	ySize := d.width * d.height
	cw, ch := (d.width+1)/2, (d.height+1)/2
	cSize := cw * ch

	frames := make([]ports.Frame, 0, len(chunks))
	for _, c := range chunks {
		if len(c) < d.chunkSize || d.pending.Len() == 0 {
			continue
		}
		pts := heap.Pop(&d.pending).(float64)
		frames = append(frames, ports.Frame{
			Kind:    ports.StreamVideo,
			PTS:     pts,
			Width:   d.width,
			Height:  d.height,
			Planes:  [][]byte{c[:ySize], c[ySize : ySize+cSize], c[ySize+cSize : ySize+2*cSize]},
			Strides: []int{d.width, cw, cw},
		})
	}
	return frames
}

func (d *Decoder) audioFrames(chunks [][]byte) []ports.Frame {
	bytesPerFrame := d.channels * 2

	frames := make([]ports.Frame, 0, len(chunks))
	for _, c := range chunks {
		n := len(c) / bytesPerFrame
		if n == 0 {
			continue
		}
		frames = append(frames, ports.Frame{
			Kind:       ports.StreamAudio,
			PTS:        d.basePTS + float64(d.samples)/float64(d.sampleRate),
			Samples:    c[:n*bytesPerFrame],
			SampleSize: 2,
			Channels:   d.channels,
			SampleRate: d.sampleRate,
		})
		d.samples += int64(n)
	}
	return frames
}

// ptsHeap is a min-heap of pending input timestamps.
type ptsHeap []float64

func (h ptsHeap) Len() int            { return len(h) }
func (h ptsHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h ptsHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *ptsHeap) Push(x interface{}) { *h = append(*h, x.(float64)) }
func (h *ptsHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

var _ ports.PacketDecoder = (*Decoder)(nil)
