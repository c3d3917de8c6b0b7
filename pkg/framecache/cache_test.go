package framecache

import (
	"errors"
	"testing"

	"github.com/user/rewind/pkg/mocks"
	"github.com/user/rewind/pkg/ports"
	"github.com/user/rewind/pkg/timeline"
)

func newBackend(t *testing.T, video, audio []float64, keyframeInterval int) *mocks.Backend {
	t.Helper()
	b := mocks.NewBackend(video, audio, keyframeInterval)
	if _, err := b.Open("clip.mp4"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return b
}

func TestFill_WholeStream(t *testing.T) {
	ts := mocks.Seconds(10, 1, 0)
	b := newBackend(t, ts, ts, 1)
	c := New(64)

	if err := c.Fill(b, ts, 0, 64); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if c.VideoLen() != 10 {
		t.Errorf("video len = %d, want 10", c.VideoLen())
	}
	if c.AudioLen() != 10 {
		t.Errorf("audio len = %d, want 10", c.AudioLen())
	}
	if c.CurrentVideo().PTS != 0 {
		t.Errorf("first video pts = %v, want 0", c.CurrentVideo().PTS)
	}
	if len(b.FlushCalls) != 2 {
		t.Errorf("expected both streams flushed, got %v", b.FlushCalls)
	}
}

func TestFill_FirstFrameAtOrAfterTarget(t *testing.T) {
	ts := mocks.Seconds(100, 0.04, 0)
	b := newBackend(t, ts, ts, 12)

	for _, target := range []float64{0, 0.01, 0.5, 1.23, 2.0, 3.96} {
		c := New(16)
		if err := c.Fill(b, ts, target, 16); err != nil {
			t.Fatalf("Fill(%v) failed: %v", target, err)
		}

		got := c.CurrentVideo().PTS
		want := ts[timeline.Timestamps(ts).Forward(target)]
		if got < target {
			t.Errorf("Fill(%v): first pts %v before target", target, got)
		}
		if got != want {
			t.Errorf("Fill(%v): first pts = %v, want %v", target, got, want)
		}
		for i := 0; i < c.AudioLen(); i++ {
			if c.Audio(i).PTS < target {
				t.Errorf("Fill(%v): audio frame %v before target", target, c.Audio(i).PTS)
			}
		}
	}
}

func TestFill_SkipsToTargetFromKeyframe(t *testing.T) {
	ts := mocks.Seconds(10, 1, 0)
	b := newBackend(t, ts, ts, 4)
	c := New(64)

	if err := c.Fill(b, ts, 4.5, 64); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	if c.CurrentVideo().PTS != 5 {
		t.Errorf("first pts = %v, want 5", c.CurrentVideo().PTS)
	}
	if c.VideoLen() != 5 {
		t.Errorf("video len = %d, want 5", c.VideoLen())
	}
	if c.Anchor() != 4.5 {
		t.Errorf("anchor = %v, want 4.5", c.Anchor())
	}
}

func TestFill_DropsAudioBeforeTarget(t *testing.T) {
	ts := mocks.Seconds(10, 1, 0)
	b := newBackend(t, ts, ts, 4)
	c := New(64)

	if err := c.Fill(b, ts, 5, 64); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	// Audio read between the keyframe at 4 and the target would leave the
	// windows a frame apart.
	if c.CurrentAudio().PTS != 5 {
		t.Errorf("first audio pts = %v, want 5", c.CurrentAudio().PTS)
	}
	if c.AudioLen() != 5 {
		t.Errorf("audio len = %d, want 5", c.AudioLen())
	}
}

func TestFill_StopsAtCount(t *testing.T) {
	ts := mocks.Seconds(200, 0.04, 0)
	b := newBackend(t, ts, ts, 1)
	c := New(16)

	if err := c.Fill(b, ts, 0, 16); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if c.VideoLen() != 16 {
		t.Errorf("video len = %d, want 16", c.VideoLen())
	}
	if c.AudioLen() > 16 {
		t.Errorf("audio len = %d exceeds cache size", c.AudioLen())
	}
}

func TestFill_OutOfRangeLeavesCache(t *testing.T) {
	ts := mocks.Seconds(10, 1, 0)
	b := newBackend(t, ts, ts, 1)
	c := New(64)
	if err := c.Fill(b, ts, 2, 64); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	c.Advance()
	seeks := b.SeekCount()

	for _, target := range []float64{-0.5, 9.01, 100} {
		err := c.Fill(b, ts, target, 64)
		if !errors.Is(err, ports.ErrSeekOutOfRange) {
			t.Errorf("Fill(%v): expected ErrSeekOutOfRange, got %v", target, err)
		}
	}

	if b.SeekCount() != seeks {
		t.Error("out of range fill should not touch the backend")
	}
	if c.CurrentVideo().PTS != 3 || c.VideoIndex() != 1 {
		t.Errorf("cache changed: pts=%v index=%d", c.CurrentVideo().PTS, c.VideoIndex())
	}
}

func TestFill_DecodeErrorKeepsPreviousWindow(t *testing.T) {
	ts := mocks.Seconds(10, 1, 0)
	b := newBackend(t, ts, ts, 1)
	c := New(64)
	if err := c.Fill(b, ts, 0, 64); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	c.Advance()
	c.Advance()

	b.ReadFunc = func(next ports.Frame) error {
		if next.PTS >= 7 {
			return errors.New("bitstream error")
		}
		return nil
	}

	err := c.Fill(b, ts, 5, 64)
	if !errors.Is(err, ports.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}

	if c.VideoLen() != 10 || c.CurrentVideo().PTS != 2 {
		t.Errorf("previous window not kept: len=%d pts=%v", c.VideoLen(), c.CurrentVideo().PTS)
	}
	if c.Anchor() != 0 {
		t.Errorf("anchor = %v, want 0", c.Anchor())
	}
}

func TestFill_NoVideoFrames(t *testing.T) {
	ts := mocks.Seconds(10, 1, 0)
	b := newBackend(t, nil, ts, 1)
	c := New(8)

	err := c.Fill(b, ts, 3, 8)
	if !errors.Is(err, ports.ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
	if c.VideoLen() != 0 {
		t.Error("cache should stay empty")
	}
}

func TestAdvance(t *testing.T) {
	ts := mocks.Seconds(4, 1, 0)
	b := newBackend(t, ts, ts, 1)
	c := New(64)
	if err := c.Fill(b, ts, 0, 64); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	for i := 1; i <= 5; i++ {
		c.Advance()
	}

	if c.VideoIndex() != 3 {
		t.Errorf("video index = %d, want clamp at 3", c.VideoIndex())
	}
	if c.AudioIndex() != 3 {
		t.Errorf("audio index = %d, want clamp at 3", c.AudioIndex())
	}
	if !c.Exhausted() {
		t.Error("expected exhausted window")
	}
}

func TestAdvance_DenseAudioFollowsVideo(t *testing.T) {
	video := mocks.Seconds(10, 0.04, 0)
	audio := mocks.Seconds(20, 0.02, 0)
	b := newBackend(t, video, audio, 1)
	c := New(64)
	if err := c.Fill(b, video, 0, 64); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	steps := c.Advance()

	if steps != 2 {
		t.Errorf("audio steps = %d, want 2", steps)
	}
	if c.CurrentAudio().PTS > c.CurrentVideo().PTS {
		t.Errorf("audio %v ahead of video %v", c.CurrentAudio().PTS, c.CurrentVideo().PTS)
	}
}

func TestExhausted_AtWindowBoundary(t *testing.T) {
	ts := mocks.Seconds(100, 0.04, 0)
	b := newBackend(t, ts, ts, 1)
	c := New(8)
	if err := c.Fill(b, ts, 0, 8); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	for i := 0; i < 6; i++ {
		c.Advance()
		if c.Exhausted() {
			t.Fatalf("exhausted too early at index %d", c.VideoIndex())
		}
	}
	c.Advance()
	if !c.Exhausted() {
		t.Errorf("expected exhausted at index %d", c.VideoIndex())
	}
}

func TestEmptyCache(t *testing.T) {
	c := New(4)

	if !c.CurrentVideo().IsZero() || !c.CurrentAudio().IsZero() {
		t.Error("empty cache should return zero frames")
	}
	if c.Exhausted() || c.AudioExhausted() {
		t.Error("empty cache is not exhausted")
	}
	if !c.Empty() {
		t.Error("expected empty")
	}
	if c.Advance() != 0 {
		t.Error("advance on empty cache should be a no-op")
	}
}

func TestClear(t *testing.T) {
	ts := mocks.Seconds(10, 1, 0)
	b := newBackend(t, ts, ts, 1)
	c := New(64)
	c.Fill(b, ts, 0, 64)
	c.Advance()

	c.Clear()

	if c.VideoLen() != 0 || c.AudioLen() != 0 || c.VideoIndex() != 0 || c.AudioIndex() != 0 {
		t.Error("Clear should release both windows and reset cursors")
	}
}
