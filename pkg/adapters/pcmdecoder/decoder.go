// Package pcmdecoder turns raw 16-bit PCM packets into audio frames.
package pcmdecoder

import (
	"errors"
	"fmt"

	"github.com/user/rewind/pkg/adapters/codecdetect"
	"github.com/user/rewind/pkg/ports"
)

// ErrUnsupportedFormat is returned for PCM layouts other than 16-bit
// signed samples.
var ErrUnsupportedFormat = errors.New("pcmdecoder: unsupported sample format")

// Decoder implements ports.PacketDecoder for uncompressed audio. Output is
// always little-endian.
type Decoder struct {
	bigEndian  bool
	sampleRate int
	channels   int
}

// New creates a decoder for sowt (little-endian) or twos (big-endian) tracks.
func New(codec codecdetect.Codec, sampleRate, channels, bits int) (*Decoder, error) {
	if bits != 16 {
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, bits)
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrUnsupportedFormat, sampleRate, channels)
	}

	d := &Decoder{sampleRate: sampleRate, channels: channels}
	switch codec {
	case codecdetect.CodecPCMS16LE:
	case codecdetect.CodecPCMS16BE:
		d.bigEndian = true
	default:
		return nil, fmt.Errorf("%w: codec %s", ErrUnsupportedFormat, codec)
	}
	return d, nil
}

// Decode returns one frame per packet. Trailing bytes that do not form a
// whole sample frame are dropped.
func (d *Decoder) Decode(pkt ports.Packet) ([]ports.Frame, error) {
	frameBytes := 2 * d.channels
	n := len(pkt.Data) / frameBytes * frameBytes
	if n == 0 {
		return nil, nil
	}

	samples := make([]byte, n)
	copy(samples, pkt.Data[:n])
	if d.bigEndian {
		for i := 0; i+1 < n; i += 2 {
			samples[i], samples[i+1] = samples[i+1], samples[i]
		}
	}

	return []ports.Frame{{
		Kind:       ports.StreamAudio,
		PTS:        pkt.PTS,
		Samples:    samples,
		SampleSize: 2,
		Channels:   d.channels,
		SampleRate: d.sampleRate,
	}}, nil
}

// Drain returns nothing; PCM has no decoder delay.
func (d *Decoder) Drain() ([]ports.Frame, error) { return nil, nil }

// Flush does nothing.
func (d *Decoder) Flush() error { return nil }

// Close does nothing.
func (d *Decoder) Close() error { return nil }

var _ ports.PacketDecoder = (*Decoder)(nil)
