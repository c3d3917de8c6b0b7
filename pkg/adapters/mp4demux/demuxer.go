// Package mp4demux reads the video and audio samples of progressive and
// fragmented MP4 files as compressed packets.
package mp4demux

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/rewind/pkg/adapters/codecdetect"
	"github.com/user/rewind/pkg/ports"
)

// mp4ff only decodes compressed audio sample entries. Raw PCM entries share
// the same layout.
func init() {
	for _, name := range []string{"sowt", "twos"} {
		mp4.SetBoxDecoder(name, mp4.DecodeAudioSampleEntry, mp4.DecodeAudioSampleEntrySR)
	}
}

// ErrNoTrack is returned by Select when no track is given for a stream.
var ErrNoTrack = errors.New("mp4demux: no track selected")

// ReadSeekerAt is the source of a demuxer.
type ReadSeekerAt interface {
	io.ReadSeeker
	io.ReaderAt
}

// Track describes one audio or video track of the file.
type Track struct {
	ID        uint32
	Kind      ports.StreamKind
	Codec     codecdetect.Codec
	Timescale uint32

	// Video
	Width         int
	Height        int
	ParameterSets [][]byte // SPS and PPS NAL units for H.264

	// Audio
	SampleRate int
	Channels   int
	SampleBits int

	samples  []sample
	orderPos []int // Position of each sample in the interleaved read order
}

// SampleCount returns the number of packets of the track.
func (t *Track) SampleCount() int {
	return len(t.samples)
}

// Seconds converts track ticks to seconds.
func (t *Track) Seconds(ticks int64) float64 {
	if t.Timescale == 0 {
		return 0
	}
	return float64(ticks) / float64(t.Timescale)
}

// VideoInfo describes a video track for ports.StreamInfo.
func (t *Track) VideoInfo() ports.VideoStreamInfo {
	return ports.VideoStreamInfo{
		Codec:     string(t.Codec),
		Timescale: t.Timescale,
		Width:     t.Width,
		Height:    t.Height,
	}
}

// AudioInfo describes an audio track for ports.StreamInfo.
func (t *Track) AudioInfo() ports.AudioStreamInfo {
	return ports.AudioStreamInfo{
		Codec:      string(t.Codec),
		Timescale:  t.Timescale,
		SampleRate: t.SampleRate,
		Channels:   t.Channels,
		SampleSize: t.SampleBits,
	}
}

type orderEntry struct {
	track *Track
	index int
}

// Demuxer reads the packets of a selected video and audio track in decode
// order. It is not safe for concurrent use.
type Demuxer struct {
	src    ReadSeekerAt
	closer io.Closer
	tracks []*Track

	video *Track
	audio *Track
	order []orderEntry
	pos   int
}

// Open opens and parses an MP4 file.
func Open(path string) (*Demuxer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	d, err := NewFromReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	d.closer = f
	return d, nil
}

// NewFromReader parses an MP4 file from src. Sample payloads of progressive
// files are read from src on demand.
func NewFromReader(src ReadSeekerAt) (*Demuxer, error) {
	mp4File, err := mp4.DecodeFile(src)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	tracks, err := parseTracks(mp4File)
	if err != nil {
		return nil, err
	}
	return &Demuxer{src: src, tracks: tracks}, nil
}

// Tracks returns all audio and video tracks in file order.
func (d *Demuxer) Tracks() []*Track {
	return d.tracks
}

// Select chooses the tracks to read and rewinds to the first packet.
func (d *Demuxer) Select(video, audio *Track) error {
	if video == nil || audio == nil {
		return ErrNoTrack
	}
	d.video = video
	d.audio = audio

	d.order = d.order[:0]
	for _, t := range []*Track{video, audio} {
		t.orderPos = make([]int, len(t.samples))
		for i := range t.samples {
			d.order = append(d.order, orderEntry{track: t, index: i})
		}
	}

	// Interleave by decode time; video first on ties.
	sort.SliceStable(d.order, func(i, j int) bool {
		a, b := d.order[i], d.order[j]
		ta := a.track.Seconds(int64(a.track.samples[a.index].dts))
		tb := b.track.Seconds(int64(b.track.samples[b.index].dts))
		if ta != tb {
			return ta < tb
		}
		return a.track.Kind == ports.StreamVideo && b.track.Kind != ports.StreamVideo
	})
	for pos, e := range d.order {
		e.track.orderPos[e.index] = pos
	}

	d.pos = 0
	return nil
}

// ReadPacket returns the next packet of either selected track. It returns
// io.EOF after the last packet.
func (d *Demuxer) ReadPacket() (ports.Packet, error) {
	if d.pos >= len(d.order) {
		return ports.Packet{}, io.EOF
	}
	e := d.order[d.pos]
	d.pos++

	s := e.track.samples[e.index]
	data, err := d.payload(s)
	if err != nil {
		return ports.Packet{}, fmt.Errorf("track %d sample %d: %w", e.track.ID, e.index+1, err)
	}

	return ports.Packet{
		Kind:     e.track.Kind,
		PTS:      e.track.Seconds(s.pts),
		DTS:      e.track.Seconds(int64(s.dts)),
		Keyframe: s.sync,
		Data:     e.track.frame(data, s.sync),
	}, nil
}

// SeekToKeyframe positions the reader at the last sync sample of the given
// stream whose presentation time is at or before pts. Targets before the
// first sync sample land on the first one.
func (d *Demuxer) SeekToKeyframe(kind ports.StreamKind, pts float64) error {
	t := d.video
	if kind == ports.StreamAudio {
		t = d.audio
	}
	if t == nil {
		return ErrNoTrack
	}

	key := -1
	for i, s := range t.samples {
		if !s.sync {
			continue
		}
		if key >= 0 && t.Seconds(s.pts) > pts {
			break
		}
		key = i
	}
	if key < 0 {
		d.pos = len(d.order)
		return nil
	}
	d.pos = t.orderPos[key]
	return nil
}

// Rewind positions the reader at the first packet.
func (d *Demuxer) Rewind() {
	d.pos = 0
}

// Close releases the underlying file.
func (d *Demuxer) Close() error {
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

func (d *Demuxer) payload(s sample) ([]byte, error) {
	if s.data != nil {
		return s.data, nil
	}
	data := make([]byte, s.size)
	if _, err := d.src.ReadAt(data, int64(s.offset)); err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	return data, nil
}

// frame converts a sample payload to the elementary stream framing decoders
// consume: Annex B with parameter sets on keyframes for H.264, ADTS for AAC.
func (t *Track) frame(data []byte, sync bool) []byte {
	switch t.Codec {
	case codecdetect.CodecH264:
		annexB := avccToAnnexB(data)
		if !sync || len(t.ParameterSets) == 0 {
			return annexB
		}
		var out []byte
		for _, ps := range t.ParameterSets {
			out = append(out, 0, 0, 0, 1)
			out = append(out, ps...)
		}
		return append(out, annexB...)
	case codecdetect.CodecAAC:
		return append(adtsHeader(len(data), t.SampleRate, t.Channels), data...)
	}
	return data
}

func parseTracks(mp4File *mp4.File) ([]*Track, error) {
	var tracks []*Track
	for _, trak := range codecdetect.Tracks(mp4File) {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Mdhd == nil {
			continue
		}

		var kind ports.StreamKind
		switch trak.Mdia.Hdlr.HandlerType {
		case "vide":
			kind = ports.StreamVideo
		case "soun":
			kind = ports.StreamAudio
		default:
			continue
		}

		codec, entry := codecdetect.FromTrack(trak)
		t := &Track{
			ID:        trak.Tkhd.TrackID,
			Kind:      kind,
			Codec:     codec,
			Timescale: trak.Mdia.Mdhd.Timescale,
		}
		switch e := entry.(type) {
		case *mp4.VisualSampleEntryBox:
			t.Width = int(e.Width)
			t.Height = int(e.Height)
			if e.AvcC != nil {
				t.ParameterSets = append(t.ParameterSets, e.AvcC.SPSnalus...)
				t.ParameterSets = append(t.ParameterSets, e.AvcC.PPSnalus...)
			}
		case *mp4.AudioSampleEntryBox:
			t.SampleRate = int(e.SampleRate)
			t.Channels = int(e.ChannelCount)
			t.SampleBits = int(e.SampleSize)
		}
		tracks = append(tracks, t)
	}

	if mp4File.IsFragmented() {
		if err := addFragmentSamples(mp4File, tracks); err != nil {
			return nil, err
		}
	} else {
		for _, t := range tracks {
			trak := findTrak(mp4File.Moov, t.ID)
			if trak == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
				return nil, fmt.Errorf("track %d: no sample table found", t.ID)
			}
			samples, err := progressiveSamples(trak.Mdia.Minf.Stbl)
			if err != nil {
				return nil, fmt.Errorf("track %d: %w", t.ID, err)
			}
			if t.Codec == codecdetect.CodecPCMS16LE || t.Codec == codecdetect.CodecPCMS16BE {
				samples = coalescePCM(samples, pcmBlockSamples)
			}
			t.samples = samples
		}
	}

	return tracks, nil
}

func findTrak(moov *mp4.MoovBox, id uint32) *mp4.TrakBox {
	if moov == nil {
		return nil
	}
	for _, trak := range moov.Traks {
		if trak.Tkhd.TrackID == id {
			return trak
		}
	}
	return nil
}
