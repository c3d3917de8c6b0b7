// Package av1decoder provides an AV1 packet decoder using libaom.
package av1decoder

/*
#cgo !windows pkg-config: aom
#cgo windows CFLAGS: -IC:/vcpkg/installed/x64-windows-static/include
#cgo windows LDFLAGS: -LC:/vcpkg/installed/x64-windows-static/lib -laom -static -lpthread
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* get_av1_decoder_interface() {
    return aom_codec_av1_dx();
}

// Wrapper for aom_codec_dec_init
static aom_codec_err_t init_decoder(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface) {
    return aom_codec_dec_init(ctx, iface, NULL, 0);
}

// Get image plane data
static unsigned char* get_plane(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int get_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

static unsigned int get_width(aom_image_t *img) {
    return img->d_w;
}

static unsigned int get_height(aom_image_t *img) {
    return img->d_h;
}

static int is_i420(aom_image_t *img) {
    return img->fmt == AOM_IMG_FMT_I420;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/user/rewind/pkg/ports"
)

var (
	// ErrNotInitialized is returned when the decoder is used after Close.
	ErrNotInitialized = errors.New("av1decoder: decoder not initialized")

	// ErrUnsupportedFormat is returned for output formats other than 8-bit 4:2:0.
	ErrUnsupportedFormat = errors.New("av1decoder: unsupported pixel format")
)

// Decoder implements ports.PacketDecoder for AV1 using libaom.
//
// AV1 temporal units are output in presentation order, so every picture a
// packet produces carries the packet's timestamp.
type Decoder struct {
	mu    sync.Mutex
	codec *C.aom_codec_ctx_t
}

// New creates and initializes an AV1 decoder.
func New() (*Decoder, error) {
	d := &Decoder{}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Decoder) init() error {
	d.codec = (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if d.codec == nil {
		return fmt.Errorf("failed to allocate decoder context")
	}
	C.memset(unsafe.Pointer(d.codec), 0, C.sizeof_aom_codec_ctx_t)

	iface := C.get_av1_decoder_interface()
	if res := C.init_decoder(d.codec, iface); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
		return fmt.Errorf("failed to initialize decoder: %d", res)
	}
	return nil
}

func (d *Decoder) destroy() {
	if d.codec != nil {
		C.aom_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
}

// Decode decodes one temporal unit.
func (d *Decoder) Decode(pkt ports.Packet) ([]ports.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.codec == nil {
		return nil, ErrNotInitialized
	}
	if len(pkt.Data) == 0 {
		return nil, fmt.Errorf("empty frame data")
	}

	res := C.aom_codec_decode(
		d.codec,
		(*C.uint8_t)(unsafe.Pointer(&pkt.Data[0])),
		C.size_t(len(pkt.Data)),
		nil,
	)
	if res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("decode failed: %d", res)
	}

	return d.collect(pkt.PTS)
}

// Drain returns nothing: libaom emits every picture during Decode.
func (d *Decoder) Drain() ([]ports.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.codec == nil {
		return nil, ErrNotInitialized
	}
	return nil, nil
}

// Flush resets the decoder so the next packet must be a keyframe.
func (d *Decoder) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.destroy()
	return d.init()
}

// Close releases decoder resources. It is safe to call more than once.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.destroy()
	return nil
}

func (d *Decoder) collect(pts float64) ([]ports.Frame, error) {
	var frames []ports.Frame
	var iter C.aom_codec_iter_t
	for {
		img := C.aom_codec_get_frame(d.codec, &iter)
		if img == nil {
			break
		}
		if C.is_i420(img) == 0 {
			return nil, ErrUnsupportedFormat
		}
		frames = append(frames, toFrame(img, pts))
	}
	return frames, nil
}

// toFrame copies the planes of a decoder-owned image into Go memory.
func toFrame(img *C.aom_image_t, pts float64) ports.Frame {
	width := int(C.get_width(img))
	height := int(C.get_height(img))
	cw, ch := (width+1)/2, (height+1)/2

	frame := ports.Frame{
		Kind:    ports.StreamVideo,
		PTS:     pts,
		Width:   width,
		Height:  height,
		Planes:  make([][]byte, 3),
		Strides: []int{width, cw, cw},
	}

	dims := [3][2]int{{width, height}, {cw, ch}, {cw, ch}}
	for p := 0; p < 3; p++ {
		w, h := dims[p][0], dims[p][1]
		stride := int(C.get_stride(img, C.int(p)))
		if h == 0 || w == 0 {
			frame.Planes[p] = []byte{}
			continue
		}
		src := unsafe.Slice((*byte)(unsafe.Pointer(C.get_plane(img, C.int(p)))), stride*(h-1)+w)
		frame.Planes[p] = copyPlane(src, stride, w, h)
	}
	return frame
}

// copyPlane packs a strided plane into a tightly packed buffer of w*h bytes.
func copyPlane(src []byte, stride, w, h int) []byte {
	dst := make([]byte, w*h)
	for y := 0; y < h; y++ {
		copy(dst[y*w:(y+1)*w], src[y*stride:y*stride+w])
	}
	return dst
}

var _ ports.PacketDecoder = (*Decoder)(nil)
