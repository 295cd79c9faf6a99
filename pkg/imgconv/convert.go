// Package imgconv converts raw camera payloads with OpenCV.
//
// Converter implements genicam.Converter for hosts without the vendor
// conversion library. It handles Bayer 8-bit mosaics, RGB8/BGR8, Mono8 and
// the unpacked Mono10/12/16 formats, always producing packed BGR24.
package imgconv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-optcam/internal/log"
	"github.com/teslashibe/go-optcam/pkg/genicam"
)

// OpenCV names Bayer patterns after the second row, so each GenICam
// pattern maps to its diagonal twin.
var bayerCodes = map[genicam.PixelFormat]gocv.ColorConversionCode{
	genicam.PixelBayerRG8: gocv.ColorBayerBGToBGR,
	genicam.PixelBayerBG8: gocv.ColorBayerRGToBGR,
	genicam.PixelBayerGR8: gocv.ColorBayerGBToBGR,
	genicam.PixelBayerGB8: gocv.ColorBayerGRToBGR,
}

// significant bits per 16-bit container
var monoScale = map[genicam.PixelFormat]float32{
	genicam.PixelMono10: 1.0 / 4,
	genicam.PixelMono12: 1.0 / 16,
	genicam.PixelMono16: 1.0 / 256,
}

// Converter is a stateless OpenCV-backed conversion service.
type Converter struct{}

// New returns a Converter.
func New() *Converter {
	return &Converter{}
}

// Supported reports whether pf can be converted.
func Supported(pf genicam.PixelFormat) bool {
	if _, ok := bayerCodes[pf]; ok {
		return true
	}
	if _, ok := monoScale[pf]; ok {
		return true
	}
	switch pf {
	case genicam.PixelMono8, genicam.PixelRGB8, genicam.PixelBGR8:
		return true
	}
	return false
}

// ConvertToBGR24 implements genicam.Converter.
func (c *Converter) ConvertToBGR24(raw []byte, desc genicam.ImageDescriptor, out []byte) (int, genicam.Status) {
	w, h := desc.Width, desc.Height
	if w <= 0 || h <= 0 {
		return 0, genicam.StatusInvalidParam
	}
	need := w * h * 3
	if len(out) < need {
		return 0, genicam.StatusBufferTooSmall
	}
	if !Supported(desc.PixelFormat) {
		return 0, genicam.StatusNotImplemented
	}

	bpp := desc.PixelFormat.BitsPerPixel() / 8
	src, ok := unpad(raw, w*bpp, (w+desc.PaddingX)*bpp, h)
	if !ok {
		return 0, genicam.StatusInvalidParam
	}

	bgr, err := toBGR(src, desc.PixelFormat, w, h)
	if err != nil {
		log.Warn("opencv conversion failed", log.FieldFormat, desc.PixelFormat.String(), "error", err.Error())
		return 0, genicam.StatusError
	}
	defer bgr.Close()

	n := copy(out[:need], bgr.ToBytes())
	if n != need {
		return n, genicam.StatusError
	}
	return n, genicam.StatusOK
}

// unpad drops per-row padding. It returns raw itself when rows are tight.
func unpad(raw []byte, rowBytes, stride, rows int) ([]byte, bool) {
	if stride == rowBytes {
		if len(raw) < rowBytes*rows {
			return nil, false
		}
		return raw[:rowBytes*rows], true
	}
	if len(raw) < stride*(rows-1)+rowBytes {
		return nil, false
	}
	out := make([]byte, rowBytes*rows)
	for r := 0; r < rows; r++ {
		copy(out[r*rowBytes:(r+1)*rowBytes], raw[r*stride:r*stride+rowBytes])
	}
	return out, true
}

func toBGR(src []byte, pf genicam.PixelFormat, w, h int) (gocv.Mat, error) {
	if code, ok := bayerCodes[pf]; ok {
		return cvt(src, h, w, gocv.MatTypeCV8UC1, code)
	}
	if scale, ok := monoScale[pf]; ok {
		m16, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV16UC1, src)
		if err != nil {
			return gocv.Mat{}, fmt.Errorf("wrap %s: %w", pf, err)
		}
		defer m16.Close()

		gray := gocv.NewMat()
		defer gray.Close()
		m16.ConvertToWithParams(&gray, gocv.MatTypeCV8U, scale, 0)

		bgr := gocv.NewMat()
		gocv.CvtColor(gray, &bgr, gocv.ColorGrayToBGR)
		return bgr, nil
	}

	switch pf {
	case genicam.PixelMono8:
		return cvt(src, h, w, gocv.MatTypeCV8UC1, gocv.ColorGrayToBGR)
	case genicam.PixelRGB8:
		return cvt(src, h, w, gocv.MatTypeCV8UC3, gocv.ColorRGBToBGR)
	case genicam.PixelBGR8:
		m, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, src)
		if err != nil {
			return gocv.Mat{}, fmt.Errorf("wrap %s: %w", pf, err)
		}
		return m, nil
	}
	return gocv.Mat{}, fmt.Errorf("unsupported pixel format %s", pf)
}

func cvt(src []byte, rows, cols int, mt gocv.MatType, code gocv.ColorConversionCode) (gocv.Mat, error) {
	m, err := gocv.NewMatFromBytes(rows, cols, mt, src)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("wrap frame: %w", err)
	}
	defer m.Close()

	dst := gocv.NewMat()
	gocv.CvtColor(m, &dst, code)
	if dst.Empty() {
		dst.Close()
		return gocv.Mat{}, fmt.Errorf("cvtcolor %d produced an empty image", code)
	}
	return dst, nil
}
