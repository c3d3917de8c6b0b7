package ports

// StreamKind identifies the elementary stream a frame or packet belongs to.
type StreamKind int

const (
	// StreamVideo is the first decodable video stream of the container.
	StreamVideo StreamKind = iota
	// StreamAudio is the first decodable audio stream of the container.
	StreamAudio
)

// String returns the string representation of the stream kind.
func (k StreamKind) String() string {
	switch k {
	case StreamVideo:
		return "video"
	case StreamAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Frame is a decoded video picture or block of audio samples.
//
// Frames are immutable once produced. The zero Frame is the sentinel handed
// to renderers when nothing has been decoded yet; use IsZero to detect it.
type Frame struct {
	Kind StreamKind
	PTS  float64 // Presentation timestamp in seconds

	// Video
	Width   int
	Height  int
	Planes  [][]byte // Y, U, V planes for 4:2:0 content
	Strides []int    // Byte stride of each plane

	// Audio
	Samples    []byte // Interleaved samples
	SampleSize int    // Bytes per sample (per channel)
	Channels   int
	SampleRate int
}

// IsZero reports whether f is the empty sentinel frame.
func (f Frame) IsZero() bool {
	return f.Planes == nil && f.Samples == nil && f.PTS == 0 && f.Width == 0
}

// SampleCount returns the number of samples per channel carried by an audio frame.
func (f Frame) SampleCount() int {
	if f.SampleSize == 0 || f.Channels == 0 {
		return 0
	}
	return len(f.Samples) / (f.SampleSize * f.Channels)
}

// Packet is a compressed access unit read from the container.
type Packet struct {
	Kind     StreamKind
	PTS      float64 // Presentation timestamp in seconds
	DTS      float64 // Decode timestamp in seconds
	Keyframe bool
	Data     []byte
}
