package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-optcam/internal/httpc"
	"github.com/teslashibe/go-optcam/pkg/camera"
)

var (
	statusAPI     string
	statusTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sessions of a running optcam server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(cmd); err != nil {
			return err
		}

		var infos []camera.Info
		url := strings.TrimSuffix(statusAPI, "/") + "/api/cameras"
		if err := httpc.GetJSON(cmd.Context(), httpc.NewClient(statusTimeout), url, &infos); err != nil {
			return err
		}

		fmt.Printf("📷 %d session(s) at %s\n", len(infos), statusAPI)
		for _, info := range infos {
			fmt.Printf("[%d] %s %s  %s  link=%s  trigger=%s  exposure=%gus  roi=%s\n",
				info.Index, info.Model, info.Serial, info.State, info.Link,
				info.Trigger, info.ExposureTime, info.ROI)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusAPI, "api", "http://localhost:8080", "optcam server base URL")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 5*time.Second, "request timeout")
}
