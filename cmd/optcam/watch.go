package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-optcam/pkg/web"
)

var (
	watchURL   string
	watchCount int
	watchDir   string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print events or frames from a running optcam server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(cmd); err != nil {
			return err
		}
		ctx := cmd.Context()

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, watchURL, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", watchURL, err)
		}
		defer conn.Close()
		fmt.Printf("✅ Connected to %s\n", watchURL)

		// Unblock ReadMessage on Ctrl+C
		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		for n := 0; watchCount <= 0 || n < watchCount; n++ {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}

			switch kind {
			case websocket.TextMessage:
				fmt.Println(string(data))
			case websocket.BinaryMessage:
				id, jpeg, ok := web.DecodeFrame(data)
				if !ok {
					fmt.Printf("⚠️  malformed frame (%d bytes)\n", len(data))
					continue
				}
				fmt.Printf("🖼️  %s: %d bytes\n", id, len(jpeg))
				if watchDir != "" {
					path := filepath.Join(watchDir, fmt.Sprintf("%s-%06d.jpg", id, n))
					if err := os.WriteFile(path, jpeg, 0o644); err != nil {
						return err
					}
				}
			}
		}
		return conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	},
}

func init() {
	fl := watchCmd.Flags()
	fl.StringVar(&watchURL, "url", "ws://localhost:8080/ws/events", "websocket URL (/ws/events or /ws/frames)")
	fl.IntVarP(&watchCount, "count", "n", 0, "stop after this many messages (0 = until interrupted)")
	fl.StringVar(&watchDir, "save-dir", "", "write received frames to this directory")
}
