package camera

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/teslashibe/go-optcam/internal/log"
	"github.com/teslashibe/go-optcam/internal/metrics"
	"github.com/teslashibe/go-optcam/pkg/genicam"
)

// Stream owns one grabbing stream source bound to a camera and channel.
// Fetches and Stop are serialised, so Stop waits for an in-flight fetch to
// return and release its frame.
type Stream struct {
	src     genicam.Stream
	cam     genicam.Identity
	channel int
	log     zerolog.Logger

	mu       sync.Mutex
	released bool
	started  time.Time
}

// StartStream creates a stream source for (cam, channel) and starts
// continuous grabbing. If grabbing cannot start, the source is released
// before the error is returned.
func StartStream(drv genicam.Driver, cam genicam.Identity, channel int, strategy genicam.GrabStrategy) (*Stream, error) {
	l := log.WithComponent("stream").With().Str(log.FieldSerial, cam.Serial).Int(log.FieldChannel, channel).Logger()

	src, st := drv.CreateStreamSource(cam, channel)
	if !st.OK() || src == nil {
		l.Error().Stringer(log.FieldStatus, st).Msg("create stream source failed")
		if src != nil {
			if rst := src.Release(); !rst.OK() {
				l.Warn().Stringer(log.FieldStatus, rst).Msg("release stream source failed")
			}
		}
		return nil, opErr("create stream source", "", st, ErrStream)
	}

	if st := src.StartGrabbing(strategy); !st.OK() {
		l.Error().Stringer(log.FieldStatus, st).Msg("start grabbing failed")
		if rst := src.Release(); !rst.OK() {
			l.Warn().Stringer(log.FieldStatus, rst).Msg("release stream source failed")
		}
		return nil, opErr("start grabbing", "", st, ErrStream)
	}

	metrics.StreamsActive.Inc()
	l.Debug().Msg("grabbing started")
	return &Stream{src: src, cam: cam, channel: channel, log: l, started: time.Now()}, nil
}

// Channel returns the stream channel id.
func (s *Stream) Channel() int {
	return s.channel
}

// Started returns when grabbing began.
func (s *Stream) Started() time.Time {
	return s.started
}

// Active reports whether the stream has not been stopped.
func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.released
}

func timeoutMs(timeout time.Duration) (uint32, error) {
	if timeout < 0 {
		return 0, paramErr("negative fetch timeout %s", timeout)
	}
	ms := timeout.Milliseconds()
	if ms > math.MaxUint32 {
		ms = math.MaxUint32
	}
	return uint32(ms), nil
}

// Fetch waits up to timeout for one frame. The caller owns the returned
// frame and must release it exactly once. A timeout yields ErrGrabTimeout.
func (s *Stream) Fetch(timeout time.Duration) (genicam.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchLocked(timeout)
}

func (s *Stream) fetchLocked(timeout time.Duration) (genicam.Frame, error) {
	ms, err := timeoutMs(timeout)
	if err != nil {
		return nil, err
	}
	if s.released {
		return nil, opErr("get frame", "", genicam.StatusInvalidHandle, ErrStream)
	}

	f, st := s.src.GetFrame(ms)
	if !st.OK() {
		if f != nil {
			s.releaseFrame(f)
		}
		if st == genicam.StatusTimeout {
			s.log.Debug().Uint32("timeout_ms", ms).Msg("grab timeout")
			return nil, opErr("get frame", "", st, ErrGrabTimeout)
		}
		s.log.Warn().Stringer(log.FieldStatus, st).Msg("get frame failed")
		return nil, opErr("get frame", "", st, ErrStream)
	}
	if f == nil {
		return nil, opErr("get frame", "", genicam.StatusInvalidHandle, ErrStream)
	}
	return f, nil
}

// withFrame fetches one frame, passes it to fn and releases it on every
// path, all under the stream lock.
func (s *Stream) withFrame(timeout time.Duration, fn func(genicam.Frame) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.fetchLocked(timeout)
	if err != nil {
		return err
	}
	defer s.releaseFrame(f)
	return fn(f)
}

func (s *Stream) releaseFrame(f genicam.Frame) {
	if st := f.Release(); !st.OK() {
		s.log.Warn().Stringer(log.FieldStatus, st).Msg("release frame failed")
	}
}

// Stop stops grabbing and releases the stream source. The source is
// released even when stopping fails. A second Stop returns ErrStream.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return opErr("stop grabbing", "", genicam.StatusInvalidHandle, ErrStream)
	}

	var err error
	if st := s.src.StopGrabbing(); !st.OK() {
		s.log.Warn().Stringer(log.FieldStatus, st).Msg("stop grabbing failed")
		err = opErr("stop grabbing", "", st, ErrStream)
	}

	s.released = true
	metrics.StreamsActive.Dec()
	if st := s.src.Release(); !st.OK() {
		s.log.Warn().Stringer(log.FieldStatus, st).Msg("release stream source failed")
		err = errors.Join(err, opErr("release stream source", "", st, ErrStream))
	}

	s.log.Debug().Dur("uptime", time.Since(s.started)).Msg("grabbing stopped")
	return err
}
