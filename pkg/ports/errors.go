package ports

import "errors"

var (
	// ErrLoad is returned when a container cannot be opened or lacks a
	// decodable video or audio stream.
	ErrLoad = errors.New("rewind: load failed")

	// ErrUnsupportedStream is returned when no decoder exists for a stream codec.
	ErrUnsupportedStream = errors.New("rewind: unsupported stream")

	// ErrSeekOutOfRange is returned when a target timestamp lies outside the
	// indexed video range. Playback state is left unchanged.
	ErrSeekOutOfRange = errors.New("rewind: seek out of range")

	// ErrDecode is returned when the backend fails while reading or decoding.
	ErrDecode = errors.New("rewind: decode failed")

	// ErrNotLoaded is returned by engine operations that need loaded media.
	ErrNotLoaded = errors.New("rewind: no media loaded")
)
