package imgconv

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-optcam/pkg/camera"
	"github.com/teslashibe/go-optcam/pkg/genicam"
)

func convert(t *testing.T, raw []byte, desc genicam.ImageDescriptor) []byte {
	t.Helper()
	out := make([]byte, desc.Width*desc.Height*3)
	n, st := New().ConvertToBGR24(raw, desc, out)
	require.True(t, st.OK(), st.String())
	require.Equal(t, len(out), n)
	return out
}

func TestConvert_Mono8(t *testing.T) {
	out := convert(t, []byte{10, 20, 30, 40}, genicam.ImageDescriptor{
		DataSize: 4, Width: 2, Height: 2, PixelFormat: genicam.PixelMono8,
	})
	assert.Equal(t, []byte{10, 10, 10, 20, 20, 20, 30, 30, 30, 40, 40, 40}, out)
}

func TestConvert_RGB8(t *testing.T) {
	out := convert(t, []byte{1, 2, 3, 4, 5, 6}, genicam.ImageDescriptor{
		DataSize: 6, Width: 2, Height: 1, PixelFormat: genicam.PixelRGB8,
	})
	assert.Equal(t, []byte{3, 2, 1, 6, 5, 4}, out)
}

func TestConvert_BGR8(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6}
	out := convert(t, raw, genicam.ImageDescriptor{
		DataSize: 6, Width: 2, Height: 1, PixelFormat: genicam.PixelBGR8,
	})
	assert.Equal(t, raw, out)
}

func TestConvert_Mono16(t *testing.T) {
	// little-endian 0x8000 and 0xFF00
	out := convert(t, []byte{0x00, 0x80, 0x00, 0xFF}, genicam.ImageDescriptor{
		DataSize: 4, Width: 2, Height: 1, PixelFormat: genicam.PixelMono16,
	})
	assert.Equal(t, []byte{128, 128, 128, 255, 255, 255}, out)
}

func TestConvert_BayerUniform(t *testing.T) {
	raw := bytes.Repeat([]byte{100}, 8*8)
	for _, pf := range []genicam.PixelFormat{
		genicam.PixelBayerRG8, genicam.PixelBayerBG8, genicam.PixelBayerGR8, genicam.PixelBayerGB8,
	} {
		out := convert(t, raw, genicam.ImageDescriptor{DataSize: 64, Width: 8, Height: 8, PixelFormat: pf})
		// a flat mosaic demosaics to flat gray
		assert.Equal(t, byte(100), out[3*(4*8+4)], pf.String())
	}
}

func TestConvert_Padding(t *testing.T) {
	out := convert(t, []byte{10, 20, 0, 30, 40, 0}, genicam.ImageDescriptor{
		DataSize: 6, Width: 2, Height: 2, PaddingX: 1, PixelFormat: genicam.PixelMono8,
	})
	assert.Equal(t, []byte{10, 10, 10, 20, 20, 20, 30, 30, 30, 40, 40, 40}, out)
}

func TestConvert_Errors(t *testing.T) {
	c := New()
	desc := genicam.ImageDescriptor{DataSize: 4, Width: 2, Height: 2, PixelFormat: genicam.PixelMono8}

	_, st := c.ConvertToBGR24(make([]byte, 4), desc, make([]byte, 3))
	assert.Equal(t, genicam.StatusBufferTooSmall, st)

	_, st = c.ConvertToBGR24(make([]byte, 3), desc, make([]byte, 12))
	assert.Equal(t, genicam.StatusInvalidParam, st)

	desc.PixelFormat = genicam.PixelFormat(0x0210001F)
	_, st = c.ConvertToBGR24(make([]byte, 8), desc, make([]byte, 12))
	assert.Equal(t, genicam.StatusNotImplemented, st)

	_, st = c.ConvertToBGR24(nil, genicam.ImageDescriptor{}, nil)
	assert.Equal(t, genicam.StatusInvalidParam, st)
}

func TestEncodeJPEG(t *testing.T) {
	img := &camera.Image{Width: 16, Height: 8, Channels: 3, Data: bytes.Repeat([]byte{0, 128, 255}, 16*8)}
	data, err := EncodeJPEG(img, 90)
	require.NoError(t, err)
	require.Greater(t, len(data), 4)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])

	m, err := gocv.IMDecode(data, gocv.IMReadColor)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 8, m.Rows())
	assert.Equal(t, 16, m.Cols())
}

func TestToMat_Rejects(t *testing.T) {
	_, err := ToMat(&camera.Image{Width: 2, Height: 2, Channels: 1, Data: []byte{1, 2, 3}})
	assert.Error(t, err)
	_, err = ToMat(&camera.Image{Width: 1, Height: 1, Channels: 4, Data: []byte{1, 2, 3, 4}})
	assert.Error(t, err)
	_, err = ToMat(nil)
	assert.Error(t, err)

	m, err := ToMat(&camera.Image{Width: 2, Height: 1, Channels: 1, Data: []byte{1, 2}})
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 2, m.Cols())
}
