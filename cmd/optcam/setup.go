package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-optcam/internal/config"
	"github.com/teslashibe/go-optcam/internal/log"
	"github.com/teslashibe/go-optcam/pkg/camera"
	"github.com/teslashibe/go-optcam/pkg/genicam"
	"github.com/teslashibe/go-optcam/pkg/imgconv"
)

// loadConfig reads the config file and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (config.File, error) {
	path := configPath
	if path == "" {
		path = config.ConfigPath("")
	}
	f, err := config.Load(path)
	if err != nil {
		return config.File{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("cameras") {
		f.Mock.Cameras = mockCameras
	}
	if flags.Changed("format") {
		if _, err := genicam.ParsePixelFormat(mockFormat); err != nil {
			return config.File{}, err
		}
		f.Mock.PixelFormat = mockFormat
	}
	if flags.Changed("log-level") {
		f.Log.Level = logLevel
	}

	log.Configure(log.Config{
		Level:  f.Log.Level,
		JSON:   f.Log.JSON,
		Output: os.Stderr,
	})
	return f, nil
}

// newMockDriver builds the in-memory driver described by cfg.
func newMockDriver(cfg config.MockConfig) *genicam.Mock {
	ids := make([]genicam.Identity, cfg.Cameras)
	for i := range ids {
		ids[i] = genicam.MockIdentity(i)
	}

	drv := genicam.NewMock(ids...)
	drv.AutoFrames = true
	if cfg.FrameIntervalMs > 0 {
		drv.FrameInterval = time.Duration(cfg.FrameIntervalMs) * time.Millisecond
	}
	if cfg.PixelFormat != "" {
		for _, id := range ids {
			drv.SetEnum(id.Key, "PixelFormat", cfg.PixelFormat)
		}
	}
	return drv
}

// newManager wires the driver, the OpenCV converter and per-camera config.
func newManager(f config.File, drv genicam.Driver) *camera.Manager {
	mgr := camera.NewManager(drv, imgconv.New())
	mgr.ConfigFor = f.CameraConfig
	return mgr
}

func closeAll(mgr *camera.Manager) {
	if err := mgr.CloseAll(); err != nil {
		log.Error("close sessions", "error", err.Error())
	}
}

func printIdentity(i int, id genicam.Identity) {
	fmt.Printf("[%d] %s  %s %s  serial=%s\n", i, id.Key, id.Vendor, id.Model, id.Serial)
}
