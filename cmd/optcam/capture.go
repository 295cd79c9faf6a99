package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/teslashibe/go-optcam/pkg/camera"
	"github.com/teslashibe/go-optcam/pkg/imgconv"
)

var (
	captureFrames  int
	captureFPS     float64
	captureSave    string
	captureSerial  string
	captureTimeout time.Duration
	captureQuality int
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Open one camera, grab frames and optionally save them as JPEG",
	RunE:  runCapture,
}

func init() {
	fl := captureCmd.Flags()
	fl.IntVarP(&captureFrames, "frames", "n", 1, "number of frames to capture")
	fl.Float64Var(&captureFPS, "fps", 0, "maximum capture rate (0 = as fast as frames arrive)")
	fl.StringVar(&captureSave, "save", "", "save frames as JPEG (frame.jpg, frame-0001.jpg, ...)")
	fl.StringVar(&captureSerial, "serial", "", "camera serial (default: first camera)")
	fl.DurationVar(&captureTimeout, "timeout", 0, "frame wait (default: config fetch_timeout_ms)")
	fl.IntVar(&captureQuality, "quality", imgconv.DefaultQuality, "JPEG quality 1-100")
}

func runCapture(cmd *cobra.Command, args []string) error {
	if captureFrames < 1 {
		return fmt.Errorf("--frames must be at least 1")
	}
	f, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	mgr := newManager(f, newMockDriver(f.Mock))
	defer closeAll(mgr)

	cams, err := mgr.Discover()
	if err != nil {
		return err
	}
	if len(cams) == 0 {
		return fmt.Errorf("no cameras found")
	}
	cam := cams[0]
	if captureSerial != "" {
		found := false
		for _, c := range cams {
			if strings.EqualFold(c.Serial, captureSerial) {
				cam, found = c, true
				break
			}
		}
		if !found {
			return fmt.Errorf("camera %q not found", captureSerial)
		}
	}

	cfg := f.CameraConfig(cam.Serial)
	cfg.AutoStart = true
	sess, err := mgr.Open(cam, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("📷 %s  trigger=%s\n", cam, sess.TriggerMode())

	limit := rate.Inf
	if captureFPS > 0 {
		limit = rate.Limit(captureFPS)
	}
	limiter := rate.NewLimiter(limit, 1)

	start := time.Now()
	captured, timeouts := 0, 0
	for i := 0; i < captureFrames; i++ {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		img, err := mgr.Capture(ctx, sess.ID(), captureTimeout)
		if camera.IsTimeout(err) {
			timeouts++
			fmt.Printf("⏱️  frame %d: no frame this cycle\n", i+1)
			continue
		}
		if err != nil {
			return err
		}

		captured++
		fmt.Printf("✅ frame %d: block=%d %dx%dx%d %s\n",
			i+1, img.BlockID, img.Width, img.Height, img.Channels, img.PixelFormat)

		if captureSave != "" {
			if err := saveJPEG(framePath(captureSave, i, captureFrames), img); err != nil {
				sess.Decoder().Recycle(img)
				return err
			}
		}
		sess.Decoder().Recycle(img)
	}

	elapsed := time.Since(start)
	fmt.Printf("\n📊 %d frames, %d timeouts in %.1fs (%.1f fps)\n",
		captured, timeouts, elapsed.Seconds(), float64(captured)/elapsed.Seconds())
	return nil
}

func saveJPEG(path string, img *camera.Image) error {
	data, err := imgconv.EncodeJPEG(img, captureQuality)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("   saved %s (%d bytes)\n", path, len(data))
	return nil
}

// framePath numbers the file when more than one frame is captured.
func framePath(base string, i, total int) string {
	if total == 1 {
		return base
	}
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s-%04d%s", strings.TrimSuffix(base, ext), i+1, ext)
}
