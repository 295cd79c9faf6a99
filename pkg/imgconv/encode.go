package imgconv

import (
	"bytes"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-optcam/pkg/camera"
)

// DefaultQuality is the JPEG quality used by snapshots and frame streams.
const DefaultQuality = 85

// ToMat copies img into a new Mat (CV_8UC1 or CV_8UC3). The caller must
// Close it.
func ToMat(img *camera.Image) (gocv.Mat, error) {
	if img == nil || len(img.Data) == 0 {
		return gocv.Mat{}, fmt.Errorf("imgconv: empty image")
	}
	var mt gocv.MatType
	switch img.Channels {
	case 1:
		mt = gocv.MatTypeCV8UC1
	case 3:
		mt = gocv.MatTypeCV8UC3
	default:
		return gocv.Mat{}, fmt.Errorf("imgconv: unsupported channel count %d", img.Channels)
	}
	if len(img.Data) != img.Height*img.Stride() {
		return gocv.Mat{}, fmt.Errorf("imgconv: %d bytes for %dx%dx%d image", len(img.Data), img.Height, img.Width, img.Channels)
	}

	m, err := gocv.NewMatFromBytes(img.Height, img.Width, mt, img.Data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("imgconv: wrap image: %w", err)
	}
	defer m.Close()
	return m.Clone(), nil
}

// EncodeJPEG encodes img. quality <= 0 uses DefaultQuality.
func EncodeJPEG(img *camera.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	m, err := ToMat(img)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, m, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("imgconv: encode jpeg: %w", err)
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), nil
}
