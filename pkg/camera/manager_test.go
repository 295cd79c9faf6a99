package camera

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-optcam/pkg/genicam"
)

func newManager(t *testing.T, n int) (*genicam.Mock, *Manager) {
	t.Helper()
	ids := make([]genicam.Identity, n)
	for i := range ids {
		ids[i] = genicam.MockIdentity(i)
	}
	drv := genicam.NewMock(ids...)
	m := NewManager(drv, &genicam.MockConverter{})
	t.Cleanup(func() {
		require.NoError(t, m.CloseAll())
		assertBalanced(t, drv)
	})
	return drv, m
}

func streamingConfig() Config {
	cfg := DefaultConfig()
	cfg.AutoStart = true
	return cfg
}

func TestManager_OpenAll(t *testing.T) {
	_, m := newManager(t, 3)
	m.ConfigFor = func(serial string) Config {
		cfg := streamingConfig()
		if serial == "SN002" {
			cfg.Trigger = TriggerSoftware.String()
		}
		return cfg
	}

	sessions, err := m.OpenAll()
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	all := m.Sessions()
	require.Len(t, all, 3)
	for i, s := range all {
		assert.Equal(t, i, s.Index())
		assert.Equal(t, StateStreaming, s.State())
	}

	s, err := m.FindBySerial("sn002")
	require.NoError(t, err)
	assert.Equal(t, TriggerSoftware, s.TriggerMode())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestManager_OpenTwice(t *testing.T) {
	_, m := newManager(t, 1)

	_, err := m.Open(genicam.MockIdentity(0), DefaultConfig())
	require.NoError(t, err)
	_, err = m.Open(genicam.MockIdentity(0), DefaultConfig())
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestManager_OpenFailureDisconnects(t *testing.T) {
	drv, m := newManager(t, 1)
	drv.FailOnce(genicam.OpSet, AttrExposureTime, genicam.StatusAccessDenied)

	cfg := DefaultConfig()
	cfg.ExposureTime = 2000
	_, err := m.Open(genicam.MockIdentity(0), cfg)
	require.ErrorIs(t, err, ErrNodeValue)
	assert.False(t, drv.Connected("mock:0"))
	assert.Empty(t, m.Sessions())

	cfg.ExposureTime = -1
	_, err = m.Open(genicam.MockIdentity(0), cfg)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestManager_OpenAllDiscoveryFailure(t *testing.T) {
	drv, m := newManager(t, 1)
	drv.FailOnce(genicam.OpEnumerate, "", genicam.StatusError)

	_, err := m.OpenAll()
	require.ErrorIs(t, err, ErrDiscovery)
}

func TestManager_Close(t *testing.T) {
	drv, m := newManager(t, 1)
	s, err := m.Open(genicam.MockIdentity(0), streamingConfig())
	require.NoError(t, err)

	require.NoError(t, m.Close(s.ID()))
	assert.False(t, drv.Connected("mock:0"))
	_, err = m.Get(s.ID())
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, m.Close(s.ID()), ErrNotFound)
}

func TestManager_CloseFailureKeepsSession(t *testing.T) {
	drv, m := newManager(t, 1)
	s, err := m.Open(genicam.MockIdentity(0), DefaultConfig())
	require.NoError(t, err)

	drv.FailOnce(genicam.OpDisconnect, "", genicam.StatusBusy)
	require.ErrorIs(t, m.Close(s.ID()), ErrDisconnect)
	_, err = m.Get(s.ID())
	require.NoError(t, err)
}

func TestManager_CloseAllReturnsWhenDisconnectKeepsFailing(t *testing.T) {
	drv, m := newManager(t, 2)
	a, err := m.Open(genicam.MockIdentity(0), DefaultConfig())
	require.NoError(t, err)
	_, err = m.Open(genicam.MockIdentity(1), DefaultConfig())
	require.NoError(t, err)

	drv.Fail(genicam.OpDisconnect, "", genicam.StatusBusy)

	done := make(chan error, 1)
	go func() { done <- m.CloseAll() }()

	select {
	case err = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("CloseAll did not return")
	}
	require.ErrorIs(t, err, ErrDisconnect)
	assert.Len(t, m.Sessions(), 2)

	// The kept session is still watched and can be closed later.
	drv.ClearFailures()
	require.NoError(t, m.Close(a.ID()))
	assert.Len(t, m.Sessions(), 1)
}

func TestManager_ConcurrentOpenSameCamera(t *testing.T) {
	_, m := newManager(t, 1)

	const n = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
		errs   []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Open(genicam.MockIdentity(0), DefaultConfig())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			opened++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, opened)
	require.Len(t, errs, n-1)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrInvalidState)
	}
	assert.Len(t, m.Sessions(), 1)
}

func TestManager_OpenFailureReleasesReservation(t *testing.T) {
	drv, m := newManager(t, 1)

	drv.FailOnce(genicam.OpConnect, "", genicam.StatusBusy)
	_, err := m.Open(genicam.MockIdentity(0), DefaultConfig())
	require.ErrorIs(t, err, ErrConnection)

	_, err = m.Open(genicam.MockIdentity(0), DefaultConfig())
	require.NoError(t, err)
}

func TestManager_CaptureAll(t *testing.T) {
	drv, m := newManager(t, 2)
	drv.AutoFrames = true
	drv.FrameInterval = 5 * time.Millisecond

	a, err := m.Open(genicam.MockIdentity(0), streamingConfig())
	require.NoError(t, err)
	b, err := m.Open(genicam.MockIdentity(1), streamingConfig())
	require.NoError(t, err)

	images, err := m.CaptureAll(context.Background(), time.Second)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Contains(t, images, a.ID())
	assert.Contains(t, images, b.ID())
	assert.Len(t, images[a.ID()].Data, 1280*1024)
}

func TestManager_CaptureAllSkipsTimeouts(t *testing.T) {
	drv, m := newManager(t, 2)

	a, err := m.Open(genicam.MockIdentity(0), streamingConfig())
	require.NoError(t, err)
	_, err = m.Open(genicam.MockIdentity(1), streamingConfig())
	require.NoError(t, err)

	drv.QueueFrame("mock:0", mono(8, 8))
	images, err := m.CaptureAll(context.Background(), 30*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Contains(t, images, a.ID())
}

func TestManager_CaptureFiresSoftwareTrigger(t *testing.T) {
	drv, m := newManager(t, 1)
	drv.AutoFrames = true

	cfg := SoftwareTriggerConfig()
	cfg.AutoStart = true
	s, err := m.Open(genicam.MockIdentity(0), cfg)
	require.NoError(t, err)

	img, err := m.Capture(context.Background(), s.ID(), 0)
	require.NoError(t, err)
	assert.NotEmpty(t, img.Data)
	assert.Len(t, drv.Calls(genicam.OpExecute), 1)
}

func TestManager_ApplyParams(t *testing.T) {
	drv, m := newManager(t, 1)
	s, err := m.Open(genicam.MockIdentity(0), DefaultConfig())
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		changed []Config
	)
	m.OnConfigChange = func(id string, cfg Config) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, s.ID(), id)
		changed = append(changed, cfg)
	}

	drv.ResetCalls()
	require.NoError(t, m.ApplyParams(s.ID(), map[string]interface{}{
		"exposure_time": 2500.0,
		"trigger":       "software",
	}))
	assert.Equal(t, 2500.0, drv.Double("mock:0", AttrExposureTime))
	assert.Equal(t, "On", drv.Enum("mock:0", AttrTriggerMode))

	cfg, err := m.Config(s.ID())
	require.NoError(t, err)
	assert.Equal(t, 2500.0, cfg.ExposureTime)
	assert.Equal(t, "software", cfg.Trigger)

	// unchanged settings are not rewritten
	drv.ResetCalls()
	require.NoError(t, m.ApplyParams(s.ID(), map[string]interface{}{"exposure_time": 2500.0}))
	assert.Empty(t, drv.Calls(genicam.OpSet))

	mu.Lock()
	assert.Len(t, changed, 2)
	mu.Unlock()
}

func TestManager_ApplyParamsROI(t *testing.T) {
	drv, m := newManager(t, 1)
	s, err := m.Open(genicam.MockIdentity(0), DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, m.ApplyParams(s.ID(), map[string]interface{}{"roi_width": 640.0, "roi_x": 16}))
	assert.EqualValues(t, 640, drv.Int("mock:0", AttrWidth))
	assert.EqualValues(t, 1024, drv.Int("mock:0", AttrHeight))
	assert.EqualValues(t, 16, drv.Int("mock:0", AttrOffsetX))
	assert.Equal(t, ROI{OffsetX: 16, Width: 640, Height: 1024}, s.ROI())

	err = m.ApplyParams(s.ID(), map[string]interface{}{"roi_width": 5000})
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestManager_ApplyParamsPreset(t *testing.T) {
	drv, m := newManager(t, 1)
	s, err := m.Open(genicam.MockIdentity(0), DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, m.ApplyParams(s.ID(), map[string]interface{}{
		"preset":        PresetHardwareFalling,
		"exposure_time": 4000,
	}))
	assert.Equal(t, "Line1", drv.Enum("mock:0", AttrTriggerSource))
	assert.Equal(t, "FallingEdge", drv.Enum("mock:0", AttrTriggerActivation))
	assert.Equal(t, 4000.0, drv.Double("mock:0", AttrExposureTime))

	out, err := m.ConfigJSON(s.ID())
	require.NoError(t, err)
	assert.Equal(t, "hardware", out["trigger"])
	assert.Equal(t, 4000.0, out["exposure_time"])
}

func TestManager_ApplyParamsRejects(t *testing.T) {
	_, m := newManager(t, 1)
	s, err := m.Open(genicam.MockIdentity(0), DefaultConfig())
	require.NoError(t, err)

	tests := []map[string]interface{}{
		{"preset": "nope"},
		{"zoom": 2},
		{"exposure_time": "fast"},
		{"trigger": 3},
		{"roi_x": 1.5},
		{"pixel_format": "YUV422"},
	}
	for _, params := range tests {
		assert.ErrorIs(t, m.ApplyParams(s.ID(), params), ErrInvalidParameter, "%v", params)
	}
	require.ErrorIs(t, m.ApplyParams("missing", nil), ErrNotFound)
}

func TestManager_LinkCallback(t *testing.T) {
	drv, m := newManager(t, 1)

	got := make(chan LinkState, 4)
	m.OnLinkChange = func(info Info, state LinkState) {
		assert.Equal(t, "SN000", info.Serial)
		got <- state
	}
	_, err := m.Open(genicam.MockIdentity(0), DefaultConfig())
	require.NoError(t, err)

	drv.EmitLink("mock:0", genicam.LinkOffline)
	select {
	case st := <-got:
		assert.Equal(t, LinkOffline, st)
	case <-time.After(time.Second):
		t.Fatal("link change not forwarded")
	}
}
