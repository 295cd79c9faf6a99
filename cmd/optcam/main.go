// optcam - machine-vision camera sessions over a GenICam-style driver
//
// Every command runs against the in-memory mock driver; a vendor binding
// implements genicam.Driver outside this module.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	mockCameras int
	mockFormat  string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:          "optcam",
	Short:        "Camera sessions, capture and a web API over a GenICam-style driver",
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default $OPTCAM_CONFIG)")
	pf.IntVar(&mockCameras, "cameras", 1, "number of mock cameras")
	pf.StringVar(&mockFormat, "format", "", "mock pixel format, e.g. Mono8 or BayerRG8")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(listCmd, captureCmd, serveCmd, watchCmd, statusCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
