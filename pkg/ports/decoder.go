// Package ports defines the interfaces between the playback engine and its
// collaborators: decoder backends, codecs, storage, file system and logging.
package ports

// VideoStreamInfo describes the selected video stream.
type VideoStreamInfo struct {
	Codec     string
	Decoder   string // Decoding backend, e.g. "libaom" or "ffmpeg"
	Timescale uint32 // Ticks per second of the stream time base
	Width     int
	Height    int
}

// AudioStreamInfo describes the selected audio stream.
type AudioStreamInfo struct {
	Codec      string
	Decoder    string
	Timescale  uint32
	SampleRate int
	Channels   int
	SampleSize int // Bits per sample as declared by the container
}

// StreamInfo is returned by DecoderBackend.Open.
type StreamInfo struct {
	Path  string
	Video VideoStreamInfo
	Audio AudioStreamInfo
}

// DecoderBackend demultiplexes a container and decodes its video and audio
// streams. The playback engine only drives a backend through this interface.
type DecoderBackend interface {
	// Open opens the container and selects the first decodable video and
	// audio streams. Any previously opened container is closed first.
	Open(path string) (StreamInfo, error)

	// SeekToKeyframe repositions the read cursor at the nearest keyframe of
	// the given stream whose timestamp is at or before pts.
	SeekToKeyframe(kind StreamKind, pts float64) error

	// Flush discards frames buffered inside the decoder of the given stream.
	Flush(kind StreamKind) error

	// ReadFrame returns the next decoded frame of either stream, in container
	// read order. It returns io.EOF once both streams are exhausted.
	ReadFrame() (Frame, error)

	// Close releases the container and decoders.
	Close() error
}

// PacketDecoder decodes the packets of a single elementary stream.
type PacketDecoder interface {
	// Decode consumes one packet and returns the frames that became
	// available. Decoders with internal latency may return none.
	Decode(pkt Packet) ([]Frame, error)

	// Drain signals end of input and returns all frames still buffered.
	Drain() ([]Frame, error)

	// Flush drops all buffered state so decoding can restart at a keyframe.
	Flush() error

	// Close releases decoder resources.
	Close() error
}
