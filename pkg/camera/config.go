package camera

import (
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-optcam/pkg/genicam"
)

// Config holds the settings applied to a session when it is opened.
// These can be modified via the camera API at runtime.
type Config struct {
	// Channel is the stream channel id used by StartStream.
	Channel int `json:"channel" yaml:"channel"`

	// ExposureTime is manual exposure in microseconds.
	// Set to 0 to leave the camera's current value.
	ExposureTime float64 `json:"exposure_time" yaml:"exposure_time"`

	// ROI is the sensor readout window. Nil leaves the camera's window.
	ROI *ROI `json:"roi,omitempty" yaml:"roi,omitempty"`

	// Trigger selects the acquisition regime.
	// Values: "free_run", "software", "hardware"
	Trigger string `json:"trigger" yaml:"trigger"`

	// TriggerEdge is the activation edge for hardware triggering.
	// Values: "RisingEdge", "FallingEdge"
	TriggerEdge string `json:"trigger_edge,omitempty" yaml:"trigger_edge,omitempty"`

	// PixelFormat is a GenICam symbol such as "Mono8" or "BayerRG8".
	// Empty leaves the camera's format.
	PixelFormat string `json:"pixel_format,omitempty" yaml:"pixel_format,omitempty"`

	// FetchTimeoutMs bounds each frame wait.
	FetchTimeoutMs int `json:"fetch_timeout_ms" yaml:"fetch_timeout_ms"`

	// AutoStart starts grabbing right after the session is configured.
	AutoStart bool `json:"auto_start" yaml:"auto_start"`
}

// Limits enforced by Validate.
const (
	MinExposureTime     = 10.0       // microseconds
	MaxExposureTime     = 10_000_000 // microseconds
	DefaultFetchTimeout = 1000       // milliseconds
	MaxFetchTimeout     = 60_000     // milliseconds
)

// DefaultConfig returns free-run acquisition on channel 0 with a one second
// frame wait.
func DefaultConfig() Config {
	return Config{
		Channel:        0,
		ExposureTime:   0, // leave camera value
		Trigger:        TriggerFreeRun.String(),
		TriggerEdge:    string(EdgeRising),
		FetchTimeoutMs: DefaultFetchTimeout,
	}
}

// FetchTimeout returns the frame wait as a duration.
func (c *Config) FetchTimeout() time.Duration {
	if c.FetchTimeoutMs <= 0 {
		return DefaultFetchTimeout * time.Millisecond
	}
	return time.Duration(c.FetchTimeoutMs) * time.Millisecond
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	if c.Channel < 0 {
		errs = append(errs, "channel must not be negative")
	}

	if c.ExposureTime != 0 && (c.ExposureTime < MinExposureTime || c.ExposureTime > MaxExposureTime) {
		errs = append(errs, fmt.Sprintf("exposure_time must be 0 (leave) or between %g and %d", MinExposureTime, MaxExposureTime))
	}

	if c.ROI != nil {
		if c.ROI.OffsetX < 0 || c.ROI.OffsetY < 0 || c.ROI.Width <= 0 || c.ROI.Height <= 0 {
			errs = append(errs, "roi offsets must be >= 0 and width/height > 0")
		}
	}

	if c.Trigger != "" {
		if _, err := ParseTriggerMode(c.Trigger); err != nil {
			errs = append(errs, "trigger must be free_run, software, or hardware")
		}
	}

	if c.TriggerEdge != "" {
		if _, err := ParseEdge(c.TriggerEdge); err != nil {
			errs = append(errs, "trigger_edge must be RisingEdge or FallingEdge")
		}
	}

	if c.PixelFormat != "" {
		if _, err := genicam.ParsePixelFormat(c.PixelFormat); err != nil {
			errs = append(errs, fmt.Sprintf("pixel_format %q is not supported", c.PixelFormat))
		}
	}

	if c.FetchTimeoutMs < 0 || c.FetchTimeoutMs > MaxFetchTimeout {
		errs = append(errs, fmt.Sprintf("fetch_timeout_ms must be between 0 and %d", MaxFetchTimeout))
	}

	return errs
}

// Err folds Validate into a single error wrapping ErrInvalidParameter.
func (c *Config) Err() error {
	if errs := c.Validate(); len(errs) > 0 {
		return paramErr("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Capabilities returns the settings this package can drive.
func Capabilities() map[string]interface{} {
	formats := []string{
		genicam.PixelMono8.String(),
		genicam.PixelBayerGR8.String(),
		genicam.PixelBayerRG8.String(),
		genicam.PixelBayerGB8.String(),
		genicam.PixelBayerBG8.String(),
		genicam.PixelRGB8.String(),
		genicam.PixelBGR8.String(),
		genicam.PixelMono16.String(),
	}
	return map[string]interface{}{
		"trigger_modes":    []string{TriggerFreeRun.String(), TriggerSoftware.String(), TriggerHardware.String()},
		"trigger_edges":    []string{string(EdgeRising), string(EdgeFalling)},
		"pixel_formats":    formats,
		"min_exposure_us":  MinExposureTime,
		"max_exposure_us":  MaxExposureTime,
		"max_fetch_ms":     MaxFetchTimeout,
		"default_fetch_ms": DefaultFetchTimeout,
	}
}
