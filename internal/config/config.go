// Package config loads the optcam YAML file and environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-optcam/pkg/camera"
	"github.com/teslashibe/go-optcam/pkg/genicam"
	"github.com/teslashibe/go-optcam/pkg/web"
)

// Environment variables read by this package.
const (
	EnvConfigPath = "OPTCAM_CONFIG"
	EnvListen     = "OPTCAM_LISTEN"
	EnvLogLevel   = "LOG_LEVEL"
)

// DefaultConfigPath is used when neither a flag nor OPTCAM_CONFIG names a file.
const DefaultConfigPath = "optcam.yaml"

// ConfigPath returns the config file path from OPTCAM_CONFIG.
// Falls back to the provided default if not set.
func ConfigPath(defaultPath string) string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return defaultPath
}

// Listen returns the API listen address from OPTCAM_LISTEN.
// Falls back to the provided default if not set.
func Listen(defaultAddr string) string {
	if addr := os.Getenv(EnvListen); addr != "" {
		return addr
	}
	return defaultAddr
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MockConfig shapes the in-memory driver used by the CLI.
type MockConfig struct {
	Cameras         int    `yaml:"cameras"`
	PixelFormat     string `yaml:"pixel_format"`
	FrameIntervalMs int    `yaml:"frame_interval_ms"`
}

// File is the parsed config file.
type File struct {
	Log    LogConfig  `yaml:"log"`
	Server web.Config `yaml:"server"`

	// Defaults apply to every camera.
	Defaults camera.Config `yaml:"defaults"`

	// Cameras holds per-serial settings, already merged over Defaults.
	Cameras map[string]camera.Config `yaml:"-"`

	Mock MockConfig `yaml:"mock"`
}

type rawFile struct {
	Log      LogConfig            `yaml:"log"`
	Server   web.Config           `yaml:"server"`
	Defaults camera.Config        `yaml:"defaults"`
	Cameras  map[string]yaml.Node `yaml:"cameras"`
	Mock     MockConfig           `yaml:"mock"`
}

// Default returns the built-in configuration.
func Default() File {
	return File{
		Log:      LogConfig{Level: "info"},
		Server:   web.DefaultConfig(),
		Defaults: camera.DefaultConfig(),
		Cameras:  make(map[string]camera.Config),
		Mock: MockConfig{
			Cameras:         1,
			PixelFormat:     "Mono8",
			FrameIntervalMs: 33,
		},
	}
}

// Load reads path, applies environment overrides and validates the result.
// An empty path yields the defaults plus environment overrides.
func Load(path string) (File, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return File{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	f, err := Parse(data)
	if err != nil {
		return File{}, err
	}
	f.applyEnv()
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (File, error) {
	def := Default()
	raw := rawFile{
		Log:      def.Log,
		Server:   def.Server,
		Defaults: def.Defaults,
		Mock:     def.Mock,
	}
	if err := decodeStrict(data, &raw); err != nil {
		return File{}, fmt.Errorf("config: %w", err)
	}

	f := File{
		Log:      raw.Log,
		Server:   raw.Server,
		Defaults: raw.Defaults,
		Cameras:  make(map[string]camera.Config, len(raw.Cameras)),
		Mock:     raw.Mock,
	}
	for serial, node := range raw.Cameras {
		cfg := copyConfig(raw.Defaults)
		if err := decodeNode(&node, &cfg); err != nil {
			return File{}, fmt.Errorf("config: camera %s: %w", serial, err)
		}
		f.Cameras[serial] = cfg
	}
	return f, nil
}

func decodeStrict(data []byte, v interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// decodeNode re-encodes node so it is decoded with KnownFields too.
func decodeNode(node *yaml.Node, v interface{}) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	return decodeStrict(data, v)
}

func copyConfig(cfg camera.Config) camera.Config {
	if cfg.ROI != nil {
		roi := *cfg.ROI
		cfg.ROI = &roi
	}
	return cfg
}

func (f *File) applyEnv() {
	f.Server.Listen = Listen(f.Server.Listen)
	if level := os.Getenv(EnvLogLevel); level != "" {
		f.Log.Level = level
	}
}

// Validate checks every section and joins the problems found.
func (f *File) Validate() error {
	var errs []error
	if err := f.Defaults.Err(); err != nil {
		errs = append(errs, fmt.Errorf("defaults: %w", err))
	}
	for serial, cfg := range f.Cameras {
		if err := cfg.Err(); err != nil {
			errs = append(errs, fmt.Errorf("camera %s: %w", serial, err))
		}
	}
	if f.Server.JPEGQuality < 0 || f.Server.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("server: jpeg_quality %d out of range 1-100", f.Server.JPEGQuality))
	}
	if f.Server.FrameFPS < 0 {
		errs = append(errs, fmt.Errorf("server: frame_fps must not be negative"))
	}
	if f.Mock.Cameras < 0 {
		errs = append(errs, fmt.Errorf("mock: cameras must not be negative"))
	}
	if f.Mock.PixelFormat != "" {
		if _, err := genicam.ParsePixelFormat(f.Mock.PixelFormat); err != nil {
			errs = append(errs, fmt.Errorf("mock: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// CameraConfig returns the settings for serial: its own entry when present,
// otherwise the defaults.
func (f *File) CameraConfig(serial string) camera.Config {
	if cfg, ok := f.Cameras[serial]; ok {
		return copyConfig(cfg)
	}
	return copyConfig(f.Defaults)
}
