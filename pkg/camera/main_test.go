package camera

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/teslashibe/go-optcam/internal/log"
	"github.com/teslashibe/go-optcam/pkg/genicam"
)

func TestMain(m *testing.M) {
	log.Configure(log.Config{Level: "disabled", Output: io.Discard})
	goleak.VerifyTestMain(m)
}

var testCam = genicam.Identity{Key: "cam0", Vendor: "OPT", Model: "OPT-CC500", Serial: "SN123"}

// assertBalanced checks that every transient handle was released exactly once.
func assertBalanced(t *testing.T, drv *genicam.Mock) {
	t.Helper()
	assert.Zero(t, drv.Outstanding(), "unreleased transient handles")
	assert.Zero(t, drv.DoubleReleases(), "handles released twice")
	assert.Equal(t, drv.Acquired(genicam.ResourceStream), drv.Released(genicam.ResourceStream), "stream sources")
}

func newSession(t *testing.T, opts ...Option) (*genicam.Mock, *Session) {
	t.Helper()
	drv := genicam.NewMock(testCam)
	s, err := Connect(drv, testCam, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Disconnect()
		assertBalanced(t, drv)
	})
	return drv, s
}

func setAttrs(calls []genicam.Call) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Attr)
	}
	return out
}

func mono(w, h int) genicam.MockFrame {
	data := make([]byte, w*h)
	for i := range data {
		data[i] = byte(i)
	}
	return genicam.MockFrame{Format: genicam.PixelMono8, Width: w, Height: h, Data: data}
}
