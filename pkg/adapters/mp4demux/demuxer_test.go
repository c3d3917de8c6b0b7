package mp4demux

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/Eyevinn/mp4ff/av1"
	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/rewind/pkg/adapters/codecdetect"
	"github.com/user/rewind/pkg/ports"
)

const (
	fixtureFrames    = 10
	fixtureKeyEvery  = 4
	videoTimescale   = 1000
	videoFrameTicks  = 40
	audioTimescale   = 48000
	audioFrameTicks  = 1920
	fixtureAudioSize = 16
)

// buildFixture creates a fragmented MP4 with an AV1 video track and a PCM
// audio track, one fragment per track.
func buildFixture(t *testing.T) []byte {
	t.Helper()

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(videoTimescale, "video", "en")
	init.AddEmptyTrack(audioTimescale, "audio", "en")

	videoTrak := init.Moov.Traks[0]
	av01 := mp4.CreateVisualSampleEntryBox("av01", 64, 48, &mp4.Av1CBox{
		CodecConfRec: av1.CodecConfRec{
			Version:            1,
			ChromaSubsamplingX: 1,
			ChromaSubsamplingY: 1,
		},
	})
	videoTrak.Mdia.Minf.Stbl.Stsd.AddChild(av01)

	audioTrak := init.Moov.Traks[1]
	sowt := mp4.CreateAudioSampleEntryBox("sowt", 2, 16, audioTimescale, nil)
	audioTrak.Mdia.Minf.Stbl.Stsd.AddChild(sowt)

	videoFrag, err := mp4.CreateFragment(1, videoTrak.Tkhd.TrackID)
	if err != nil {
		t.Fatalf("create fragment: %v", err)
	}
	for i := 0; i < fixtureFrames; i++ {
		flags := mp4.NonSyncSampleFlags
		if i%fixtureKeyEvery == 0 {
			flags = mp4.SyncSampleFlags
		}
		data := []byte{0x12, 0x00, byte(i)}
		videoFrag.AddFullSample(mp4.FullSample{
			Sample:     mp4.Sample{Flags: flags, Size: uint32(len(data)), Dur: videoFrameTicks},
			DecodeTime: uint64(i * videoFrameTicks),
			Data:       data,
		})
	}

	audioFrag, err := mp4.CreateFragment(2, audioTrak.Tkhd.TrackID)
	if err != nil {
		t.Fatalf("create fragment: %v", err)
	}
	for i := 0; i < fixtureFrames; i++ {
		data := bytes.Repeat([]byte{byte(i)}, fixtureAudioSize)
		audioFrag.AddFullSample(mp4.FullSample{
			Sample:     mp4.Sample{Flags: mp4.SyncSampleFlags, Size: uint32(len(data)), Dur: audioFrameTicks},
			DecodeTime: uint64(i * audioFrameTicks),
			Data:       data,
		})
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso6", "av01", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		t.Fatalf("encode ftyp: %v", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		t.Fatalf("encode moov: %v", err)
	}
	if err := videoFrag.Encode(&buf); err != nil {
		t.Fatalf("encode video fragment: %v", err)
	}
	if err := audioFrag.Encode(&buf); err != nil {
		t.Fatalf("encode audio fragment: %v", err)
	}
	return buf.Bytes()
}

func openFixture(t *testing.T) *Demuxer {
	t.Helper()
	d, err := NewFromReader(bytes.NewReader(buildFixture(t)))
	if err != nil {
		t.Fatalf("NewFromReader failed: %v", err)
	}
	tracks := d.Tracks()
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if err := d.Select(tracks[0], tracks[1]); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	return d
}

func TestTracks(t *testing.T) {
	d, err := NewFromReader(bytes.NewReader(buildFixture(t)))
	if err != nil {
		t.Fatalf("NewFromReader failed: %v", err)
	}

	video, audio := d.Tracks()[0], d.Tracks()[1]

	if video.Kind != ports.StreamVideo || video.Codec != codecdetect.CodecAV1 {
		t.Errorf("video track = %v/%v", video.Kind, video.Codec)
	}
	if video.Width != 64 || video.Height != 48 {
		t.Errorf("video size = %dx%d, want 64x48", video.Width, video.Height)
	}
	if video.Timescale != videoTimescale || video.SampleCount() != fixtureFrames {
		t.Errorf("video timescale %d samples %d", video.Timescale, video.SampleCount())
	}

	if audio.Kind != ports.StreamAudio || audio.Codec != codecdetect.CodecPCMS16LE {
		t.Errorf("audio track = %v/%v", audio.Kind, audio.Codec)
	}
	if audio.Channels != 2 || audio.SampleBits != 16 || audio.SampleRate != audioTimescale {
		t.Errorf("audio params = %d ch, %d bits, %d Hz", audio.Channels, audio.SampleBits, audio.SampleRate)
	}

	info := video.VideoInfo()
	if info.Codec != "av1" || info.Width != 64 {
		t.Errorf("unexpected video info %+v", info)
	}
}

func TestDecodePCMSampleEntries(t *testing.T) {
	for _, name := range []string{"sowt", "twos"} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := mp4.CreateAudioSampleEntryBox(name, 2, 16, audioTimescale, nil).Encode(&buf); err != nil {
				t.Fatalf("encode %s: %v", name, err)
			}
			box, err := mp4.DecodeBox(0, &buf)
			if err != nil {
				t.Fatalf("DecodeBox failed: %v", err)
			}
			entry, ok := box.(*mp4.AudioSampleEntryBox)
			if !ok {
				t.Fatalf("decoded %T, want *mp4.AudioSampleEntryBox", box)
			}
			if entry.ChannelCount != 2 || entry.SampleSize != 16 || entry.SampleRate != audioTimescale {
				t.Errorf("%s params = %d ch, %d bits, %d Hz", name, entry.ChannelCount, entry.SampleSize, entry.SampleRate)
			}
		})
	}
}

func TestReadPacket_InterleavesByDecodeTime(t *testing.T) {
	d := openFixture(t)

	var packets []ports.Packet
	for {
		pkt, err := d.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadPacket failed: %v", err)
		}
		packets = append(packets, pkt)
	}

	if len(packets) != 2*fixtureFrames {
		t.Fatalf("read %d packets, want %d", len(packets), 2*fixtureFrames)
	}

	for i, pkt := range packets {
		wantKind := ports.StreamVideo
		if i%2 == 1 {
			wantKind = ports.StreamAudio
		}
		if pkt.Kind != wantKind {
			t.Fatalf("packet %d kind = %v, want %v", i, pkt.Kind, wantKind)
		}
		n := i / 2
		want := float64(n*videoFrameTicks) / videoTimescale
		if pkt.PTS != want {
			t.Errorf("packet %d pts = %v, want %v", i, pkt.PTS, want)
		}
		if pkt.Kind == ports.StreamVideo {
			if pkt.Keyframe != (n%fixtureKeyEvery == 0) {
				t.Errorf("frame %d keyframe = %v", n, pkt.Keyframe)
			}
			if pkt.Data[2] != byte(n) {
				t.Errorf("frame %d payload mismatch", n)
			}
		}
	}
}

func TestSeekToKeyframe(t *testing.T) {
	tests := []struct {
		target float64
		want   float64
	}{
		{0, 0},
		{0.1, 0},
		{0.16, 0.16},
		{0.2, 0.16},
		{0.33, 0.32},
		{5, 0.32},
		{-1, 0},
	}

	d := openFixture(t)
	for _, tt := range tests {
		if err := d.SeekToKeyframe(ports.StreamVideo, tt.target); err != nil {
			t.Fatalf("SeekToKeyframe(%v) failed: %v", tt.target, err)
		}
		pkt, err := d.ReadPacket()
		if err != nil {
			t.Fatalf("ReadPacket failed: %v", err)
		}
		if pkt.Kind != ports.StreamVideo || !pkt.Keyframe || pkt.PTS != tt.want {
			t.Errorf("SeekToKeyframe(%v): next packet %v pts %v key %v, want keyframe at %v",
				tt.target, pkt.Kind, pkt.PTS, pkt.Keyframe, tt.want)
		}
	}
}

func TestSelect_RequiresBothTracks(t *testing.T) {
	d, err := NewFromReader(bytes.NewReader(buildFixture(t)))
	if err != nil {
		t.Fatalf("NewFromReader failed: %v", err)
	}
	if err := d.Select(d.Tracks()[0], nil); !errors.Is(err, ErrNoTrack) {
		t.Errorf("expected ErrNoTrack, got %v", err)
	}
}

func TestNewFromReader_Garbage(t *testing.T) {
	d, err := NewFromReader(bytes.NewReader([]byte("definitely not an mp4 file")))
	if err == nil && len(d.Tracks()) != 0 {
		t.Errorf("expected no tracks for non-MP4 input, got %d", len(d.Tracks()))
	}
}

func TestAvccToAnnexB(t *testing.T) {
	in := []byte{0, 0, 0, 2, 0x65, 0xAA, 0, 0, 0, 1, 0x41}
	want := []byte{0, 0, 0, 1, 0x65, 0xAA, 0, 0, 0, 1, 0x41}

	if got := avccToAnnexB(in); !bytes.Equal(got, want) {
		t.Errorf("avccToAnnexB = %x, want %x", got, want)
	}

	// Truncated NALU is dropped
	if got := avccToAnnexB([]byte{0, 0, 0, 9, 0x65}); len(got) != 0 {
		t.Errorf("expected empty output, got %x", got)
	}
}

func TestTrackFrame_H264PrependsParameterSets(t *testing.T) {
	track := &Track{
		Codec:         codecdetect.CodecH264,
		ParameterSets: [][]byte{{0x67, 0x01}, {0x68, 0x02}},
	}
	sample := []byte{0, 0, 0, 1, 0x65}

	key := track.frame(sample, true)
	wantKey := []byte{0, 0, 0, 1, 0x67, 0x01, 0, 0, 0, 1, 0x68, 0x02, 0, 0, 0, 1, 0x65}
	if !bytes.Equal(key, wantKey) {
		t.Errorf("keyframe = %x, want %x", key, wantKey)
	}

	delta := track.frame(sample, false)
	if !bytes.Equal(delta, []byte{0, 0, 0, 1, 0x65}) {
		t.Errorf("delta frame = %x", delta)
	}
}

func TestADTSHeader(t *testing.T) {
	h := adtsHeader(100, 48000, 2)

	if len(h) != 7 || h[0] != 0xFF || h[1] != 0xF1 {
		t.Fatalf("bad sync word: %x", h)
	}
	if freq := (h[2] >> 2) & 0xF; freq != 3 {
		t.Errorf("frequency index = %d, want 3", freq)
	}
	if profile := h[2] >> 6; profile != 1 {
		t.Errorf("profile = %d, want 1", profile)
	}
	channels := (h[2]&0x1)<<2 | h[3]>>6
	if channels != 2 {
		t.Errorf("channels = %d, want 2", channels)
	}
	frameLen := int(h[3]&0x3)<<11 | int(h[4])<<3 | int(h[5]>>5)
	if frameLen != 107 {
		t.Errorf("frame length = %d, want 107", frameLen)
	}
}

func TestCoalescePCM(t *testing.T) {
	var samples []sample
	for i := 0; i < 10; i++ {
		samples = append(samples, sample{dts: uint64(i), pts: int64(i), dur: 1, offset: uint64(100 + 4*i), size: 4, sync: true, count: 1})
	}
	// New chunk elsewhere in the file
	samples = append(samples, sample{dts: 10, pts: 10, dur: 1, offset: 5000, size: 4, sync: true, count: 1})

	out := coalescePCM(samples, 4)

	if len(out) != 4 {
		t.Fatalf("got %d packets, want 4", len(out))
	}
	if out[0].size != 16 || out[0].count != 4 || out[0].dur != 4 {
		t.Errorf("first block = %+v", out[0])
	}
	if out[2].count != 2 || out[2].offset != 132 {
		t.Errorf("third block = %+v", out[2])
	}
	if out[3].offset != 5000 || out[3].pts != 10 {
		t.Errorf("last block = %+v", out[3])
	}
}
