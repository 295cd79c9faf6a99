package camera

import (
	"github.com/valyala/bytebufferpool"

	"github.com/teslashibe/go-optcam/pkg/genicam"
)

// Image is a decoded frame owned by the caller. Data is row-major with no
// padding: Height*Width bytes for Mono8, Height*Width*3 BGR bytes otherwise.
type Image struct {
	Width       int
	Height      int
	Channels    int
	PixelFormat genicam.PixelFormat // source format on the wire
	BlockID     uint64
	Data        []byte

	buf *bytebufferpool.ByteBuffer
}

// Shape returns (rows, cols, channels).
func (img *Image) Shape() (int, int, int) {
	return img.Height, img.Width, img.Channels
}

// Stride is the number of bytes per row.
func (img *Image) Stride() int {
	return img.Width * img.Channels
}

// At returns the channel bytes of one pixel, or nil when out of range.
// The slice aliases Data.
func (img *Image) At(row, col int) []byte {
	if row < 0 || col < 0 || row >= img.Height || col >= img.Width {
		return nil
	}
	i := row*img.Stride() + col*img.Channels
	if i+img.Channels > len(img.Data) {
		return nil
	}
	return img.Data[i : i+img.Channels : i+img.Channels]
}

// Mono reports whether the image is single channel.
func (img *Image) Mono() bool {
	return img.Channels == 1
}
