// Package codecdetect identifies the codecs of MP4 tracks from their sample
// entries.
package codecdetect

import "github.com/Eyevinn/mp4ff/mp4"

// Codec represents a video or audio codec type.
type Codec string

const (
	CodecH264     Codec = "h264"
	CodecAV1      Codec = "av1"
	CodecHEVC     Codec = "hevc"
	CodecAAC      Codec = "aac"
	CodecPCMS16LE Codec = "pcm_s16le"
	CodecPCMS16BE Codec = "pcm_s16be"
	CodecUnknown  Codec = "unknown"
)

// IsVideo reports whether c is a video codec.
func (c Codec) IsVideo() bool {
	return c == CodecH264 || c == CodecAV1 || c == CodecHEVC
}

// FromSampleEntry returns the codec of an stsd child box.
func FromSampleEntry(entry mp4.Box) Codec {
	switch entry.Type() {
	case "avc1", "avc3":
		return CodecH264
	case "av01":
		return CodecAV1
	case "hvc1", "hev1":
		return CodecHEVC
	case "mp4a":
		return CodecAAC
	case "sowt":
		return CodecPCMS16LE
	case "twos":
		return CodecPCMS16BE
	}
	return CodecUnknown
}

// FromTrack returns the codec of the first sample entry of trak, together
// with the entry itself.
func FromTrack(trak *mp4.TrakBox) (Codec, mp4.Box) {
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown, nil
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		if codec := FromSampleEntry(child); codec != CodecUnknown {
			return codec, child
		}
	}
	return CodecUnknown, nil
}

// Tracks returns the tracks of a fragmented or progressive file.
func Tracks(mp4File *mp4.File) []*mp4.TrakBox {
	if mp4File.IsFragmented() && mp4File.Init != nil && mp4File.Init.Moov != nil {
		return mp4File.Init.Moov.Traks
	}
	if mp4File.Moov != nil {
		return mp4File.Moov.Traks
	}
	return nil
}
