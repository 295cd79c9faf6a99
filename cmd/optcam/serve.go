package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-optcam/internal/log"
	"github.com/teslashibe/go-optcam/pkg/genicam"
	"github.com/teslashibe/go-optcam/pkg/web"
)

var (
	serveListen string
	serveFlap   time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open every camera and serve the HTTP API and websocket feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("listen") {
			f.Server.Listen = serveListen
		}
		ctx := cmd.Context()

		drv := newMockDriver(f.Mock)
		mgr := newManager(f, drv)
		defer closeAll(mgr)

		// NewServer installs the manager callbacks, so it runs before any
		// session exists.
		srv := web.NewServer(mgr, f.Server)

		sessions, err := mgr.OpenAll()
		if err != nil {
			log.Warn("some cameras failed to open", "error", err.Error())
		}
		log.Info("cameras open", "count", len(sessions))

		if serveFlap > 0 {
			go flapLinks(ctx.Done(), drv, serveFlap)
		}

		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default from config or $OPTCAM_LISTEN)")
	serveCmd.Flags().DurationVar(&serveFlap, "flap", 0, "toggle mock camera links at this interval (demo)")
}

// flapLinks alternates the mock cameras offline and online so /ws/events
// has something to show.
func flapLinks(done <-chan struct{}, drv *genicam.Mock, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	online := true
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			online = !online
			state := genicam.LinkOffline
			if online {
				state = genicam.LinkOnline
			}
			cams, _ := drv.Enumerate()
			for _, cam := range cams {
				drv.EmitLink(cam.Key, state)
			}
		}
	}
}
