package camera

// Preset names for common configurations
const (
	PresetFreeRun         = "free_run"
	PresetSoftware        = "software"
	PresetHardwareRising  = "hardware_rising"
	PresetHardwareFalling = "hardware_falling"
	PresetShortExposure   = "short_exposure"
	PresetLongExposure    = "long_exposure"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetFreeRun:         DefaultConfig(),
		PresetSoftware:        SoftwareTriggerConfig(),
		PresetHardwareRising:  HardwareTriggerConfig(EdgeRising),
		PresetHardwareFalling: HardwareTriggerConfig(EdgeFalling),
		PresetShortExposure:   ShortExposureConfig(),
		PresetLongExposure:    LongExposureConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetFreeRun,
		PresetSoftware,
		PresetHardwareRising,
		PresetHardwareFalling,
		PresetShortExposure,
		PresetLongExposure,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// SoftwareTriggerConfig returns one frame per FireSoftwareTrigger call.
func SoftwareTriggerConfig() Config {
	cfg := DefaultConfig()
	cfg.Trigger = TriggerSoftware.String()
	return cfg
}

// HardwareTriggerConfig returns one frame per edge on Line1.
func HardwareTriggerConfig(edge Edge) Config {
	cfg := DefaultConfig()
	cfg.Trigger = TriggerHardware.String()
	cfg.TriggerEdge = string(edge)
	return cfg
}

// ShortExposureConfig suits bright scenes and fast motion.
func ShortExposureConfig() Config {
	cfg := DefaultConfig()
	cfg.ExposureTime = 1000
	return cfg
}

// LongExposureConfig suits low light. The frame wait is raised to cover
// the exposure.
func LongExposureConfig() Config {
	cfg := DefaultConfig()
	cfg.ExposureTime = 200_000
	cfg.FetchTimeoutMs = 3000
	return cfg
}
