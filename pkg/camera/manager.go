package camera

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-optcam/internal/log"
	"github.com/teslashibe/go-optcam/pkg/genicam"
)

type managed struct {
	s       *Session
	cfg     Config
	done    chan struct{} // closed to stop the link watcher
	stopped chan struct{} // closed by the link watcher on exit
}

// Manager owns every open session and the configuration applied to each.
type Manager struct {
	drv  genicam.Driver
	disc *Discovery
	conv genicam.Converter

	mu       sync.RWMutex
	sessions map[string]*managed
	opening  map[string]bool // camera keys with an Open in progress
	next     int

	// ConfigFor returns the config for a camera serial in OpenAll.
	// Defaults to DefaultConfig.
	ConfigFor func(serial string) Config

	// Callback when a session's config changes (for broadcasting)
	OnConfigChange func(id string, cfg Config)

	// Callback on link state changes. Runs on a manager goroutine, one per
	// session, never on the driver's thread.
	OnLinkChange func(info Info, state LinkState)
}

// NewManager creates a manager over drv. conv converts non-Mono8 frames.
func NewManager(drv genicam.Driver, conv genicam.Converter) *Manager {
	return &Manager{
		drv:      drv,
		disc:     NewDiscovery(drv),
		conv:     conv,
		sessions: make(map[string]*managed),
		opening:  make(map[string]bool),
	}
}

// Discover lists the cameras visible to the driver.
func (m *Manager) Discover() ([]genicam.Identity, error) {
	return m.disc.Enumerate()
}

// Open connects to cam, applies cfg and starts grabbing if cfg.AutoStart.
// On any failure the camera is disconnected again.
func (m *Manager) Open(cam genicam.Identity, cfg Config) (*Session, error) {
	if err := cfg.Err(); err != nil {
		return nil, err
	}

	index, err := m.reserve(cam.Key)
	if err != nil {
		return nil, err
	}

	s, err := Connect(m.drv, cam, WithIndex(index), WithConverter(m.conv))
	if err != nil {
		m.unreserve(cam.Key)
		return nil, err
	}

	if err := s.Apply(cfg); err != nil {
		m.unreserve(cam.Key)
		return nil, errors.Join(err, s.Disconnect())
	}
	if cfg.AutoStart {
		if err := s.StartStream(cfg.Channel); err != nil {
			m.unreserve(cam.Key)
			return nil, errors.Join(err, s.Disconnect())
		}
	}

	e := &managed{s: s, cfg: cfg, done: make(chan struct{}), stopped: make(chan struct{})}
	m.mu.Lock()
	delete(m.opening, cam.Key)
	m.sessions[s.ID()] = e
	m.mu.Unlock()

	go m.watchLink(e)
	return s, nil
}

// reserve claims cam key for one Open. It fails when the camera is already
// open or another Open for it is in progress.
func (m *Manager) reserve(key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opening[key] {
		return 0, opErr("open", key, genicam.StatusBusy, ErrInvalidState)
	}
	for _, e := range m.sessions {
		if e.s.Identity().Key == key {
			return 0, opErr("open", key, genicam.StatusBusy, ErrInvalidState)
		}
	}
	m.opening[key] = true
	index := m.next
	m.next++
	return index, nil
}

func (m *Manager) unreserve(key string) {
	m.mu.Lock()
	delete(m.opening, key)
	m.mu.Unlock()
}

// OpenAll opens every visible camera with ConfigFor(serial). Cameras that
// fail to open are skipped and their errors joined.
func (m *Manager) OpenAll() ([]*Session, error) {
	ids, err := m.Discover()
	if err != nil {
		return nil, err
	}

	var (
		opened []*Session
		errs   []error
	)
	for _, id := range ids {
		cfg := DefaultConfig()
		if m.ConfigFor != nil {
			cfg = m.ConfigFor(id.Serial)
		}
		s, err := m.Open(id, cfg)
		if err != nil {
			log.Warn("open camera failed", log.FieldSerial, id.Serial, "error", err.Error())
			errs = append(errs, err)
			continue
		}
		opened = append(opened, s)
	}
	return opened, errors.Join(errs...)
}

func (m *Manager) watchLink(e *managed) {
	defer close(e.stopped)
	for {
		select {
		case <-e.done:
			return
		case state := <-e.s.Link().Changes():
			if m.OnLinkChange != nil {
				m.OnLinkChange(e.s.Info(), state)
			}
		}
	}
}

func (m *Manager) lookup(id string) (*managed, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, opErr("lookup", id, genicam.StatusOK, ErrNotFound)
	}
	return e, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.s, nil
}

// Config returns the config last applied to session id.
func (m *Manager) Config(id string) (Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return Config{}, opErr("lookup", id, genicam.StatusOK, ErrNotFound)
	}
	return e.cfg, nil
}

// FindBySerial returns the open session for a camera serial.
func (m *Manager) FindBySerial(serial string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.sessions {
		if strings.EqualFold(e.s.Identity().Serial, serial) {
			return e.s, nil
		}
	}
	return nil, opErr("lookup", serial, genicam.StatusOK, ErrNotFound)
}

// Sessions returns the open sessions ordered by index.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		out = append(out, e.s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

// Close disconnects session id and waits for its link watcher to exit. The
// session is forgotten only when the camera was released; otherwise it
// stays open and watched.
func (m *Manager) Close(id string) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	if err := e.s.Disconnect(); err != nil && e.s.State() != StateDisconnected {
		return err
	} else if err != nil {
		log.Warn("session closed with errors", log.FieldSessionID, id, "error", err.Error())
	}

	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		close(e.done)
	}
	m.mu.Unlock()

	if ok {
		<-e.stopped
	}
	return nil
}

// CloseAll closes every session. Sessions whose camera could not be
// released stay open and their errors are joined.
func (m *Manager) CloseAll() error {
	var errs []error
	for _, s := range m.Sessions() {
		if err := m.Close(s.ID()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Capture takes one image from session id, firing the software trigger
// first when that regime is active. timeout <= 0 uses the session config.
func (m *Manager) Capture(ctx context.Context, id string, timeout time.Duration) (*Image, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		cfg, err := m.Config(id)
		if err != nil {
			return nil, err
		}
		timeout = cfg.FetchTimeout()
	}
	if s.TriggerMode() == TriggerSoftware {
		if err := s.FireSoftwareTrigger(); err != nil {
			return nil, err
		}
	}
	return s.CaptureImageContext(ctx, timeout)
}

// CaptureAll captures one image from every streaming session concurrently,
// keyed by session id. A grab timeout is "no frame this cycle" and leaves
// that session out of the result. The first other failure cancels the
// rest; images captured so far are still returned.
func (m *Manager) CaptureAll(ctx context.Context, timeout time.Duration) (map[string]*Image, error) {
	var (
		mu     sync.Mutex
		images = make(map[string]*Image)
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range m.Sessions() {
		if s.State() != StateStreaming {
			continue
		}
		id := s.ID()
		g.Go(func() error {
			img, err := m.Capture(gctx, id, timeout)
			if IsTimeout(err) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			images[id] = img
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return images, err
}

// ApplyParams updates specific settings of session id at runtime.
// Accepts a map of field names to values; "preset" is applied first and
// the remaining keys override it. Only settings that change are written
// to the camera.
func (m *Manager) ApplyParams(id string, params map[string]interface{}) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}

	m.mu.RLock()
	old := e.cfg
	m.mu.RUnlock()
	cfg := old

	// Check for preset first
	if name, ok := params["preset"]; ok {
		presetName, _ := name.(string)
		preset := GetPreset(presetName)
		if preset == nil {
			return paramErr("unknown preset %v", name)
		}
		cfg = *preset
		cfg.Channel = old.Channel
		cfg.ROI = old.ROI
		cfg.PixelFormat = old.PixelFormat
		cfg.AutoStart = old.AutoStart
	}

	var roi *ROI
	for key, value := range params {
		switch key {
		case "preset":
		case "exposure_time":
			v, ok := toFloat(value)
			if !ok {
				return paramErr("%s: want number, got %T", key, value)
			}
			cfg.ExposureTime = v
		case "fetch_timeout_ms":
			v, ok := toInt(value)
			if !ok {
				return paramErr("%s: want integer, got %T", key, value)
			}
			cfg.FetchTimeoutMs = v
		case "trigger", "trigger_edge", "pixel_format":
			v, ok := value.(string)
			if !ok {
				return paramErr("%s: want string, got %T", key, value)
			}
			switch key {
			case "trigger":
				cfg.Trigger = v
			case "trigger_edge":
				cfg.TriggerEdge = v
			default:
				cfg.PixelFormat = v
			}
		case "roi_x", "roi_y", "roi_width", "roi_height":
			v, ok := toInt(value)
			if !ok {
				return paramErr("%s: want integer, got %T", key, value)
			}
			if roi == nil {
				if roi, err = m.baseROI(e.s, cfg.ROI); err != nil {
					return err
				}
			}
			switch key {
			case "roi_x":
				roi.OffsetX = int64(v)
			case "roi_y":
				roi.OffsetY = int64(v)
			case "roi_width":
				roi.Width = int64(v)
			default:
				roi.Height = int64(v)
			}
		default:
			return paramErr("unknown parameter %q", key)
		}
	}
	if roi != nil {
		cfg.ROI = roi
	}

	if err := cfg.Err(); err != nil {
		return err
	}
	if err := e.s.Apply(changes(old, cfg)); err != nil {
		return err
	}

	m.mu.Lock()
	e.cfg = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		callback(id, cfg)
	}
	return nil
}

func (m *Manager) baseROI(s *Session, current *ROI) (*ROI, error) {
	if current != nil {
		r := *current
		return &r, nil
	}
	r, err := s.ReadROI()
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// changes returns the subset of next that differs from old, in the form
// Session.Apply skips when zero.
func changes(old, next Config) Config {
	var d Config
	if next.Trigger != old.Trigger || next.TriggerEdge != old.TriggerEdge {
		d.Trigger = next.Trigger
		d.TriggerEdge = next.TriggerEdge
	}
	if next.ExposureTime != old.ExposureTime {
		d.ExposureTime = next.ExposureTime
	}
	if next.PixelFormat != old.PixelFormat {
		d.PixelFormat = next.PixelFormat
	}
	if next.ROI != nil && (old.ROI == nil || *old.ROI != *next.ROI) {
		d.ROI = next.ROI
	}
	return d
}

// ConfigJSON returns the config of session id as a map for JSON
// serialization.
func (m *Manager) ConfigJSON(id string) (map[string]interface{}, error) {
	cfg, err := m.Config(id)
	if err != nil {
		return nil, err
	}

	// Convert to map via JSON for consistent serialization
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Helper functions for type conversion

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val != float64(int(val)) {
			return 0, false
		}
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}
