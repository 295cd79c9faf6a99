package genicam

import (
	"fmt"
	"strings"
)

// PixelFormat is a GigE Vision / GenICam pixel format code.
type PixelFormat uint32

// Pixel formats understood by go-optcam.
const (
	PixelMono8    PixelFormat = 0x01080001
	PixelMono10   PixelFormat = 0x01100003
	PixelMono12   PixelFormat = 0x01100005
	PixelMono16   PixelFormat = 0x01100007
	PixelBayerGR8 PixelFormat = 0x01080008
	PixelBayerRG8 PixelFormat = 0x01080009
	PixelBayerGB8 PixelFormat = 0x0108000A
	PixelBayerBG8 PixelFormat = 0x0108000B
	PixelRGB8     PixelFormat = 0x02180014
	PixelBGR8     PixelFormat = 0x02180015
)

var pixelNames = map[PixelFormat]string{
	PixelMono8:    "Mono8",
	PixelMono10:   "Mono10",
	PixelMono12:   "Mono12",
	PixelMono16:   "Mono16",
	PixelBayerGR8: "BayerGR8",
	PixelBayerRG8: "BayerRG8",
	PixelBayerGB8: "BayerGB8",
	PixelBayerBG8: "BayerBG8",
	PixelRGB8:     "RGB8",
	PixelBGR8:     "BGR8",
}

func (p PixelFormat) String() string {
	if name, ok := pixelNames[p]; ok {
		return name
	}
	return fmt.Sprintf("0x%08X", uint32(p))
}

// BitsPerPixel is encoded in bits 16-23 of the format code.
func (p PixelFormat) BitsPerPixel() int {
	return int((uint32(p) >> 16) & 0xFF)
}

// FrameSize returns the unpadded payload size for a width x height frame.
func (p PixelFormat) FrameSize(width, height int) int {
	return width * height * p.BitsPerPixel() / 8
}

// IsBayer reports whether p is a raw Bayer mosaic.
func (p PixelFormat) IsBayer() bool {
	switch p {
	case PixelBayerGR8, PixelBayerRG8, PixelBayerGB8, PixelBayerBG8:
		return true
	}
	return false
}

// ParsePixelFormat resolves a symbolic name such as "BayerRG8".
func ParsePixelFormat(name string) (PixelFormat, error) {
	for p, n := range pixelNames {
		if strings.EqualFold(n, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("genicam: unknown pixel format %q", name)
}
