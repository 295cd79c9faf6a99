package camera

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Validate())
	assert.Equal(t, "free_run", cfg.Trigger)
	assert.Equal(t, time.Second, cfg.FetchTimeout())

	cfg.FetchTimeoutMs = 0
	assert.Equal(t, time.Second, cfg.FetchTimeout())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative channel", func(c *Config) { c.Channel = -1 }},
		{"exposure too short", func(c *Config) { c.ExposureTime = 1 }},
		{"exposure too long", func(c *Config) { c.ExposureTime = 2e7 }},
		{"bad roi", func(c *Config) { c.ROI = &ROI{Width: 0, Height: 10} }},
		{"bad trigger", func(c *Config) { c.Trigger = "burst" }},
		{"bad edge", func(c *Config) { c.TriggerEdge = "both" }},
		{"bad pixel format", func(c *Config) { c.PixelFormat = "YUV422" }},
		{"fetch timeout", func(c *Config) { c.FetchTimeoutMs = MaxFetchTimeout + 1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Len(t, cfg.Validate(), 1)
			assert.ErrorIs(t, cfg.Err(), ErrInvalidParameter)
		})
	}
}

func TestPresets_AllValid(t *testing.T) {
	presets := Presets()
	require.Len(t, presets, len(PresetNames()))
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		require.NotNil(t, cfg, name)
		assert.Empty(t, cfg.Validate(), name)
	}
	assert.Nil(t, GetPreset("4k"))
}

func TestPresets_Content(t *testing.T) {
	assert.Equal(t, "software", GetPreset(PresetSoftware).Trigger)
	hw := GetPreset(PresetHardwareFalling)
	assert.Equal(t, "hardware", hw.Trigger)
	assert.Equal(t, "FallingEdge", hw.TriggerEdge)

	long := LongExposureConfig()
	assert.Greater(t, long.FetchTimeout(), time.Duration(long.ExposureTime)*time.Microsecond)
}

func TestCapabilities(t *testing.T) {
	caps := Capabilities()
	assert.Contains(t, caps["pixel_formats"], "BayerRG8")
	assert.Contains(t, caps["trigger_modes"], "hardware")
}
