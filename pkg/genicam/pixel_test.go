package genicam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelFormat_Geometry(t *testing.T) {
	assert.Equal(t, 8, PixelMono8.BitsPerPixel())
	assert.Equal(t, 16, PixelMono16.BitsPerPixel())
	assert.Equal(t, 24, PixelBGR8.BitsPerPixel())

	assert.Equal(t, 640*480, PixelMono8.FrameSize(640, 480))
	assert.Equal(t, 640*480*3, PixelRGB8.FrameSize(640, 480))
	assert.Equal(t, 640*480*2, PixelMono12.FrameSize(640, 480))
}

func TestPixelFormat_Names(t *testing.T) {
	for p, name := range pixelNames {
		got, err := ParsePixelFormat(name)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := ParsePixelFormat("bayerrg8")
	require.NoError(t, err)
	assert.Equal(t, PixelBayerRG8, got)
	assert.True(t, got.IsBayer())
	assert.False(t, PixelMono8.IsBayer())

	_, err = ParsePixelFormat("YUV422")
	assert.Error(t, err)
	assert.Equal(t, "0x0210001F", PixelFormat(0x0210001F).String())
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusOK.OK())
	assert.False(t, StatusTimeout.OK())
	assert.Equal(t, "timeout (-107)", StatusTimeout.String())
	assert.Equal(t, "status -1", Status(-1).String())
}

func TestIdentity(t *testing.T) {
	id := MockIdentity(3)
	assert.Equal(t, "MV-CA050#SN003", id.String())
	assert.Contains(t, id.Describe(), "Serial number = SN003")
	assert.Equal(t, "k", Identity{Key: "k"}.String())
}
