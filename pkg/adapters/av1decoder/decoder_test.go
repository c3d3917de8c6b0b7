package av1decoder

import (
	"bytes"
	"errors"
	"testing"

	"github.com/user/rewind/pkg/ports"
)

func TestNew(t *testing.T) {
	decoder, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer decoder.Close()
}

func TestDecoder_DecodeEmptyData(t *testing.T) {
	decoder, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer decoder.Close()

	if _, err := decoder.Decode(ports.Packet{Kind: ports.StreamVideo}); err == nil {
		t.Error("expected error when decoding empty data")
	}
}

func TestDecoder_DecodeGarbage(t *testing.T) {
	decoder, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer decoder.Close()

	frames, err := decoder.Decode(ports.Packet{Kind: ports.StreamVideo, Data: []byte{0xFF, 0xFF, 0xFF, 0xFF}})
	if err == nil && len(frames) != 0 {
		t.Errorf("garbage input produced %d frames", len(frames))
	}
}

func TestDecoder_DrainIsEmpty(t *testing.T) {
	decoder, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer decoder.Close()

	frames, err := decoder.Drain()
	if err != nil || len(frames) != 0 {
		t.Errorf("Drain = %d frames, %v", len(frames), err)
	}
}

func TestDecoder_FlushReinitializes(t *testing.T) {
	decoder, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer decoder.Close()

	if err := decoder.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if _, err := decoder.Drain(); err != nil {
		t.Errorf("decoder unusable after Flush: %v", err)
	}
}

func TestDecoder_Close(t *testing.T) {
	decoder, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Double close should be safe
	decoder.Close()
	decoder.Close()

	if _, err := decoder.Decode(ports.Packet{Data: []byte{0}}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized after Close, got %v", err)
	}
}

func TestCopyPlane(t *testing.T) {
	// 3x2 picture stored with a stride of 5
	src := []byte{
		1, 2, 3, 0, 0,
		4, 5, 6,
	}

	got := copyPlane(src, 5, 3, 2)
	if want := []byte{1, 2, 3, 4, 5, 6}; !bytes.Equal(got, want) {
		t.Errorf("copyPlane = %v, want %v", got, want)
	}
}
