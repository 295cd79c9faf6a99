package camera

import "fmt"

// ROI is a sensor readout rectangle in native pixels.
type ROI struct {
	OffsetX int64 `json:"offset_x" yaml:"offset_x"`
	OffsetY int64 `json:"offset_y" yaml:"offset_y"`
	Width   int64 `json:"width" yaml:"width"`
	Height  int64 `json:"height" yaml:"height"`
}

func (r ROI) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.OffsetX, r.OffsetY)
}

// IsZero reports whether r is unset.
func (r ROI) IsZero() bool {
	return r == ROI{}
}

// Validate checks r against the sensor maximum. Every failure wraps
// ErrInvalidParameter.
func (r ROI) Validate(maxWidth, maxHeight int64) error {
	if r.OffsetX < 0 || r.OffsetY < 0 {
		return paramErr("roi %s: negative offset", r)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return paramErr("roi %s: width and height must be positive", r)
	}
	if r.Width > maxWidth-r.OffsetX {
		return paramErr("roi %s: offset_x+width exceeds sensor width %d", r, maxWidth)
	}
	if r.Height > maxHeight-r.OffsetY {
		return paramErr("roi %s: offset_y+height exceeds sensor height %d", r, maxHeight)
	}
	return nil
}
