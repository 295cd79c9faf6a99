package camera

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/teslashibe/go-optcam/internal/log"
	"github.com/teslashibe/go-optcam/internal/metrics"
	"github.com/teslashibe/go-optcam/pkg/genicam"
)

// State is the session lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	default:
		return "disconnected"
	}
}

type options struct {
	index    int
	access   genicam.AccessLevel
	conv     genicam.Converter
	strategy genicam.GrabStrategy
}

// Option configures Connect.
type Option func(*options)

// WithIndex sets the session's position in a multi-camera setup.
func WithIndex(i int) Option {
	return func(o *options) { o.index = i }
}

// WithAccess overrides the requested access level (default control).
func WithAccess(a genicam.AccessLevel) Option {
	return func(o *options) { o.access = a }
}

// WithConverter sets the conversion service used for non-Mono8 frames.
func WithConverter(c genicam.Converter) Option {
	return func(o *options) { o.conv = c }
}

// WithGrabStrategy overrides sequential grabbing.
func WithGrabStrategy(g genicam.GrabStrategy) Option {
	return func(o *options) { o.strategy = g }
}

// Session owns one connected camera. Configuration and lifecycle calls are
// serialised by an internal lock that is not held while waiting for frames,
// so Disconnect and StopStream may be called while a capture is blocked.
type Session struct {
	id       string
	index    int
	drv      genicam.Driver
	cam      genicam.Identity
	props    *Properties
	trig     *Trigger
	dec      *Decoder
	link     *LinkMonitor
	strategy genicam.GrabStrategy
	log      zerolog.Logger

	mu          sync.Mutex
	state       State
	stream      *Stream
	trigger     TriggerMode
	edge        Edge
	roi         ROI
	exposure    float64
	pixelFormat string
	connectedAt time.Time
}

// Connect opens cam and subscribes to its link events. It is all or
// nothing: if the subscription fails the camera is disconnected again.
func Connect(drv genicam.Driver, cam genicam.Identity, opts ...Option) (*Session, error) {
	o := options{access: genicam.AccessControl, strategy: genicam.GrabSequential}
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()
	l := log.WithComponent("session").With().
		Str(log.FieldSessionID, id).
		Str(log.FieldSerial, cam.Serial).
		Logger()

	if st := drv.Connect(cam, o.access); !st.OK() {
		l.Error().Stringer(log.FieldStatus, st).Stringer("access", o.access).Msg("connect failed")
		return nil, opErr("connect", "", st, ErrConnection)
	}

	link := NewLinkMonitor(cam.Serial)
	if err := subscribeLink(drv, cam, link); err != nil {
		l.Error().Err(err).Msg("link subscription failed, disconnecting")
		if st := drv.Disconnect(cam); !st.OK() {
			err = errors.Join(err, opErr("disconnect", "", st, ErrDisconnect))
		}
		return nil, err
	}

	props := NewProperties(drv, cam)
	s := &Session{
		id:          id,
		index:       o.index,
		drv:         drv,
		cam:         cam,
		props:       props,
		trig:        NewTrigger(props),
		dec:         NewDecoder(o.conv, cam.Serial),
		link:        link,
		strategy:    o.strategy,
		log:         l,
		state:       StateConnected,
		connectedAt: time.Now(),
	}
	metrics.SessionsActive.Inc()
	l.Info().Str("camera", cam.String()).Int("index", o.index).Msg("camera connected")
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Index returns the position given by WithIndex.
func (s *Session) Index() int { return s.index }

// Identity returns the camera identity.
func (s *Session) Identity() genicam.Identity { return s.cam }

// Link returns the link status monitor.
func (s *Session) Link() *LinkMonitor { return s.link }

// Decoder returns the session's frame decoder, for Recycle.
func (s *Session) Decoder() *Decoder { return s.dec }

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	s.log.Debug().Str(log.FieldOldState, s.state.String()).Str(log.FieldNewState, next.String()).Msg("session state")
	s.state = next
}

func (s *Session) requireConnected(op string) error {
	if s.state == StateDisconnected {
		return opErr(op, "", genicam.StatusNotConnected, ErrInvalidState)
	}
	return nil
}

// Disconnect stops any active stream, unsubscribes link events and releases
// the camera. It is a no-op on a disconnected session. If the driver refuses
// to disconnect, the session stays connected with its stream stopped.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return nil
	}

	var errs []error
	if s.stream != nil {
		if err := s.stream.Stop(); err != nil {
			errs = append(errs, err)
		}
		s.stream = nil
		s.setState(StateConnected)
	}

	if err := unsubscribeLink(s.drv, s.cam, s.link); err != nil {
		errs = append(errs, err)
	}

	if st := s.drv.Disconnect(s.cam); !st.OK() {
		s.log.Error().Stringer(log.FieldStatus, st).Msg("disconnect failed")
		errs = append(errs, opErr("disconnect", "", st, ErrDisconnect))
		return errors.Join(errs...)
	}

	s.setState(StateDisconnected)
	metrics.SessionsActive.Dec()
	s.log.Info().Dur("uptime", time.Since(s.connectedAt)).Msg("camera disconnected")
	return errors.Join(errs...)
}

// SetExposureTime sets the exposure in microseconds.
func (s *Session) SetExposureTime(us float64) error {
	if math.IsNaN(us) || math.IsInf(us, 0) || us <= 0 {
		return paramErr("exposure time %v must be a positive number", us)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected("set exposure"); err != nil {
		return err
	}
	if err := s.props.SetFloat(AttrExposureTime, us); err != nil {
		return err
	}
	s.exposure = us
	return nil
}

// ExposureTime returns the last exposure set through this session, or 0.
func (s *Session) ExposureTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exposure
}

// ReadExposureTime reads the exposure back from the camera.
func (s *Session) ReadExposureTime() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected("read exposure"); err != nil {
		return 0, err
	}
	return s.props.GetFloat(AttrExposureTime)
}

// SensorSize returns the sensor's maximum width and height.
func (s *Session) SensorSize() (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected("read sensor size"); err != nil {
		return 0, 0, err
	}
	return s.sensorSize()
}

func (s *Session) sensorSize() (int64, int64, error) {
	maxW, err := s.props.GetInt(AttrWidthMax)
	if err != nil {
		return 0, 0, err
	}
	maxH, err := s.props.GetInt(AttrHeightMax)
	if err != nil {
		return 0, 0, err
	}
	return maxW, maxH, nil
}

// SetROI validates roi against the sensor size, then writes Width, Height,
// OffsetX and OffsetY in that order. A failing write aborts the rest and
// earlier writes are not rolled back; the recorded ROI only changes when
// all four succeed.
func (s *Session) SetROI(roi ROI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected("set roi"); err != nil {
		return err
	}

	maxW, maxH, err := s.sensorSize()
	if err != nil {
		return err
	}
	if err := roi.Validate(maxW, maxH); err != nil {
		s.log.Warn().Err(err).Int64("max_width", maxW).Int64("max_height", maxH).Msg("roi rejected")
		return err
	}

	steps := []struct {
		attr string
		v    int64
	}{
		{AttrWidth, roi.Width},
		{AttrHeight, roi.Height},
		{AttrOffsetX, roi.OffsetX},
		{AttrOffsetY, roi.OffsetY},
	}
	for _, step := range steps {
		if err := s.props.SetInt(step.attr, step.v); err != nil {
			return err
		}
	}

	s.roi = roi
	s.log.Debug().Stringer("roi", roi).Msg("roi applied")
	return nil
}

// ROI returns the last ROI applied through this session.
func (s *Session) ROI() ROI {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roi
}

// ReadROI reads the readout window back from the camera.
func (s *Session) ReadROI() (ROI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected("read roi"); err != nil {
		return ROI{}, err
	}

	var roi ROI
	for _, f := range []struct {
		attr string
		dst  *int64
	}{
		{AttrWidth, &roi.Width},
		{AttrHeight, &roi.Height},
		{AttrOffsetX, &roi.OffsetX},
		{AttrOffsetY, &roi.OffsetY},
	} {
		v, err := s.props.GetInt(f.attr)
		if err != nil {
			return ROI{}, err
		}
		*f.dst = v
	}
	return roi, nil
}

// SetPixelFormat selects the sensor output format. The stream must be
// stopped.
func (s *Session) SetPixelFormat(symbol string) error {
	pf, err := genicam.ParsePixelFormat(symbol)
	if err != nil {
		return paramErr("%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return opErr("set pixel format", AttrPixelFormat, genicam.StatusOK, ErrInvalidState)
	}
	if err := s.props.SetEnum(AttrPixelFormat, pf.String()); err != nil {
		return err
	}
	s.pixelFormat = pf.String()
	return nil
}

func (s *Session) applyTrigger(mode TriggerMode, edge Edge, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected("set trigger"); err != nil {
		return err
	}
	if err := fn(); err != nil {
		s.trigger = TriggerUnknown
		s.log.Warn().Err(err).Stringer("mode", mode).Msg("trigger reconfiguration failed")
		return err
	}
	s.trigger = mode
	s.edge = edge
	s.log.Debug().Stringer("mode", mode).Msg("trigger configured")
	return nil
}

// SetFreeRun switches to continuous acquisition.
func (s *Session) SetFreeRun() error {
	return s.applyTrigger(TriggerFreeRun, "", s.trig.FreeRun)
}

// SetSoftwareTrigger switches to one frame per FireSoftwareTrigger.
func (s *Session) SetSoftwareTrigger() error {
	return s.applyTrigger(TriggerSoftware, "", s.trig.Software)
}

// SetHardwareTrigger switches to one frame per Line1 edge.
func (s *Session) SetHardwareTrigger(edge Edge) error {
	if edge == "" {
		edge = EdgeRising
	}
	return s.applyTrigger(TriggerHardware, edge, func() error { return s.trig.Hardware(edge) })
}

// TriggerMode returns the recorded trigger regime.
func (s *Session) TriggerMode() TriggerMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trigger
}

// FireSoftwareTrigger executes the software trigger command once. It does
// not check that software triggering is configured.
func (s *Session) FireSoftwareTrigger() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireConnected("fire trigger"); err != nil {
		return err
	}
	return s.trig.Fire()
}

// StartStream starts grabbing on channel.
func (s *Session) StartStream(channel int) error {
	if channel < 0 {
		return paramErr("negative channel %d", channel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return opErr("start stream", "", genicam.StatusOK, ErrInvalidState)
	}

	st, err := StartStream(s.drv, s.cam, channel, s.strategy)
	if err != nil {
		return err
	}
	s.stream = st
	s.setState(StateStreaming)
	return nil
}

// StopStream stops grabbing. The stream source is released and the session
// returns to connected even when stopping reports an error.
func (s *Session) StopStream() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStreaming || s.stream == nil {
		return opErr("stop stream", "", genicam.StatusOK, ErrInvalidState)
	}

	err := s.stream.Stop()
	s.stream = nil
	s.setState(StateConnected)
	return err
}

func (s *Session) activeStream() (*Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStreaming || s.stream == nil {
		return nil, opErr("capture", "", genicam.StatusOK, ErrInvalidState)
	}
	return s.stream, nil
}

// CaptureImage waits up to timeout for the next frame and decodes it.
// ErrGrabTimeout means no frame this cycle.
func (s *Session) CaptureImage(timeout time.Duration) (*Image, error) {
	st, err := s.activeStream()
	if err != nil {
		return nil, err
	}
	return s.dec.Capture(st, timeout)
}

// CaptureImageContext is CaptureImage bounded by ctx.
func (s *Session) CaptureImageContext(ctx context.Context, timeout time.Duration) (*Image, error) {
	st, err := s.activeStream()
	if err != nil {
		return nil, err
	}
	return s.dec.CaptureContext(ctx, st, timeout)
}

// Apply configures trigger, exposure, pixel format and ROI in that order,
// stopping at the first failure. Zero-valued fields are skipped.
func (s *Session) Apply(cfg Config) error {
	if err := cfg.Err(); err != nil {
		return err
	}

	if cfg.Trigger != "" {
		mode, err := ParseTriggerMode(cfg.Trigger)
		if err != nil {
			return err
		}
		switch mode {
		case TriggerFreeRun:
			err = s.SetFreeRun()
		case TriggerSoftware:
			err = s.SetSoftwareTrigger()
		case TriggerHardware:
			var edge Edge
			if edge, err = ParseEdge(cfg.TriggerEdge); err == nil {
				err = s.SetHardwareTrigger(edge)
			}
		}
		if err != nil {
			return err
		}
	}

	if cfg.ExposureTime > 0 {
		if err := s.SetExposureTime(cfg.ExposureTime); err != nil {
			return err
		}
	}

	if cfg.PixelFormat != "" {
		if err := s.SetPixelFormat(cfg.PixelFormat); err != nil {
			return err
		}
	}

	if cfg.ROI != nil {
		if err := s.SetROI(*cfg.ROI); err != nil {
			return err
		}
	}
	return nil
}

// Info is a point-in-time snapshot of a session.
type Info struct {
	ID           string    `json:"id"`
	Index        int       `json:"index"`
	Key          string    `json:"key"`
	Vendor       string    `json:"vendor"`
	Model        string    `json:"model"`
	Serial       string    `json:"serial"`
	State        string    `json:"state"`
	Link         string    `json:"link"`
	LinkEvents   uint64    `json:"link_events"`
	Trigger      string    `json:"trigger"`
	TriggerEdge  string    `json:"trigger_edge,omitempty"`
	ExposureTime float64   `json:"exposure_time"`
	ROI          ROI       `json:"roi"`
	PixelFormat  string    `json:"pixel_format,omitempty"`
	Channel      int       `json:"channel"`
	ConnectedAt  time.Time `json:"connected_at"`
}

// Info returns a snapshot of the recorded session state. It makes no
// driver calls.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		ID:           s.id,
		Index:        s.index,
		Key:          s.cam.Key,
		Vendor:       s.cam.Vendor,
		Model:        s.cam.Model,
		Serial:       s.cam.Serial,
		State:        s.state.String(),
		Link:         s.link.State().String(),
		LinkEvents:   s.link.Count(),
		Trigger:      s.trigger.String(),
		TriggerEdge:  string(s.edge),
		ExposureTime: s.exposure,
		ROI:          s.roi,
		PixelFormat:  s.pixelFormat,
		Channel:      -1,
		ConnectedAt:  s.connectedAt,
	}
	if s.stream != nil {
		info.Channel = s.stream.Channel()
	}
	return info
}
