package camera

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/bytebufferpool"

	"github.com/teslashibe/go-optcam/internal/log"
	"github.com/teslashibe/go-optcam/internal/metrics"
	"github.com/teslashibe/go-optcam/pkg/genicam"
)

// Decoder turns native frames into caller-owned images. Raw and converted
// buffers come from a pool; Recycle hands an image's buffer back.
type Decoder struct {
	conv   genicam.Converter
	serial string
	pool   bytebufferpool.Pool
	log    zerolog.Logger
}

// NewDecoder returns a decoder that converts non-Mono8 frames with conv.
// serial labels metrics and logs.
func NewDecoder(conv genicam.Converter, serial string) *Decoder {
	return &Decoder{
		conv:   conv,
		serial: serial,
		log:    log.WithComponent("decoder").With().Str(log.FieldSerial, serial).Logger(),
	}
}

func sized(b *bytebufferpool.ByteBuffer, n int) []byte {
	if cap(b.B) < n {
		b.B = make([]byte, n)
	} else {
		b.B = b.B[:n]
	}
	return b.B
}

// Capture fetches one frame from s and decodes it. The native frame is
// released before conversion starts, on every path.
func (d *Decoder) Capture(s *Stream, timeout time.Duration) (*Image, error) {
	img, err := d.capture(s, timeout)
	if err != nil {
		metrics.IncCaptureFailure(d.serial, Reason(err))
		return nil, err
	}
	metrics.IncFrameCaptured(d.serial, img.PixelFormat.String())
	return img, nil
}

func (d *Decoder) capture(s *Stream, timeout time.Duration) (*Image, error) {
	var (
		raw     *bytebufferpool.ByteBuffer
		desc    genicam.ImageDescriptor
		blockID uint64
	)

	err := s.withFrame(timeout, func(f genicam.Frame) error {
		if st := f.Valid(); !st.OK() {
			d.log.Warn().Uint64(log.FieldBlockID, f.BlockID()).Stringer(log.FieldStatus, st).Msg("invalid frame")
			return opErr("validate frame", "", st, ErrInvalidFrame)
		}
		desc = genicam.Describe(f)
		blockID = f.BlockID()

		src := f.Image()
		if desc.DataSize <= 0 || len(src) < desc.DataSize {
			return opErr("copy frame", "", genicam.StatusOK, ErrInvalidFrame)
		}
		raw = d.pool.Get()
		copy(sized(raw, desc.DataSize), src[:desc.DataSize])
		return nil
	})
	if err != nil {
		return nil, err
	}

	if desc.Width <= 0 || desc.Height <= 0 {
		d.pool.Put(raw)
		return nil, opErr("decode frame", "", genicam.StatusOK, ErrInvalidFrame)
	}

	if desc.PixelFormat == genicam.PixelMono8 {
		return d.mono(raw, desc, blockID)
	}
	return d.convert(raw, desc, blockID)
}

// mono reshapes a Mono8 payload in place, dropping row and trailing padding.
// The pooled raw buffer becomes the image data.
func (d *Decoder) mono(raw *bytebufferpool.ByteBuffer, desc genicam.ImageDescriptor, blockID uint64) (*Image, error) {
	w, h := desc.Width, desc.Height
	stride := w + max(desc.PaddingX, 0)
	// the last row needs no trailing padding
	want := stride*(h-1) + w
	if desc.DataSize < want {
		d.pool.Put(raw)
		d.log.Warn().Int("data_size", desc.DataSize).Int("want", want).Msg("short mono frame")
		return nil, opErr("decode frame", "", genicam.StatusOK, ErrInvalidFrame)
	}

	if stride > w {
		for row := 1; row < h; row++ {
			copy(raw.B[row*w:row*w+w], raw.B[row*stride:row*stride+w])
		}
	}
	raw.B = raw.B[:w*h]

	return &Image{
		Width:       w,
		Height:      h,
		Channels:    1,
		PixelFormat: desc.PixelFormat,
		BlockID:     blockID,
		Data:        raw.B,
		buf:         raw,
	}, nil
}

func (d *Decoder) convert(raw *bytebufferpool.ByteBuffer, desc genicam.ImageDescriptor, blockID uint64) (*Image, error) {
	defer d.pool.Put(raw)

	format := desc.PixelFormat.String()
	if d.conv == nil {
		return nil, opErr("convert "+format, "", genicam.StatusNotAvailable, ErrConversion)
	}

	need := desc.Height * desc.Width * 3
	out := d.pool.Get()
	dst := sized(out, need)

	start := time.Now()
	n, st := d.conv.ConvertToBGR24(raw.B, desc, dst)
	metrics.ObserveConversion(format, time.Since(start))
	if !st.OK() || n < need {
		d.pool.Put(out)
		d.log.Warn().Str(log.FieldFormat, format).Stringer(log.FieldStatus, st).Int("written", n).Msg("conversion failed")
		return nil, opErr("convert "+format, "", st, ErrConversion)
	}

	return &Image{
		Width:       desc.Width,
		Height:      desc.Height,
		Channels:    3,
		PixelFormat: desc.PixelFormat,
		BlockID:     blockID,
		Data:        dst[:need],
		buf:         out,
	}, nil
}

// CaptureContext is Capture bounded by ctx. The fetch timeout is shortened
// to the context deadline. On cancellation ctx.Err() is returned; the
// in-flight frame is still released and its image recycled.
func (d *Decoder) CaptureContext(ctx context.Context, s *Stream, timeout time.Duration) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = max(left, 0)
		}
	}

	type result struct {
		img *Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := d.Capture(s, timeout)
		done <- result{img, err}
	}()

	select {
	case r := <-done:
		return r.img, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.img != nil {
				d.Recycle(r.img)
			}
		}()
		return nil, ctx.Err()
	}
}

// Recycle returns img's buffer to the pool. img must not be used afterwards.
func (d *Decoder) Recycle(img *Image) {
	if img == nil || img.buf == nil {
		return
	}
	buf := img.buf
	img.buf = nil
	img.Data = nil
	d.pool.Put(buf)
}
