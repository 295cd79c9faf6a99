package camera

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/teslashibe/go-optcam/internal/log"
	"github.com/teslashibe/go-optcam/internal/metrics"
	"github.com/teslashibe/go-optcam/pkg/genicam"
)

// linkToken is the opaque context token registered with every link callback.
const linkToken = "statusInfo"

// LinkState is the last link status reported by the driver.
type LinkState int32

const (
	LinkUnknown LinkState = iota
	LinkOnline
	LinkOffline
)

func (s LinkState) String() string {
	switch s {
	case LinkOnline:
		return "online"
	case LinkOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// LinkMonitor observes a camera's link status. The driver invokes its
// callback on its own goroutine; the callback only writes the state cell and
// never touches session or stream state. Owners poll State or read Changes.
type LinkMonitor struct {
	serial string
	log    zerolog.Logger

	state      atomic.Int32
	count      atomic.Uint64
	lastChange atomic.Int64
	subscribed atomic.Bool

	changes chan LinkState
}

// NewLinkMonitor creates a monitor for the camera with the given serial.
func NewLinkMonitor(serial string) *LinkMonitor {
	return &LinkMonitor{
		serial:  serial,
		log:     log.WithComponent("link").With().Str(log.FieldSerial, serial).Logger(),
		changes: make(chan LinkState, 1),
	}
}

// State returns the most recently reported link state.
func (m *LinkMonitor) State() LinkState {
	return LinkState(m.state.Load())
}

// Count returns the number of link events received.
func (m *LinkMonitor) Count() uint64 {
	return m.count.Load()
}

// LastChange returns when the last event arrived, or the zero time.
func (m *LinkMonitor) LastChange() time.Time {
	ns := m.lastChange.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Subscribed reports whether the callback is currently registered.
func (m *LinkMonitor) Subscribed() bool {
	return m.subscribed.Load()
}

// Changes delivers link states, latest wins. Slow readers miss
// intermediate states but always see the newest one.
func (m *LinkMonitor) Changes() <-chan LinkState {
	return m.changes
}

// notify is the driver callback. It must not block.
func (m *LinkMonitor) notify(ev genicam.LinkEvent, token string) {
	next := LinkOffline
	if ev.Type == genicam.LinkOnline {
		next = LinkOnline
	}
	prev := LinkState(m.state.Swap(int32(next)))
	m.count.Add(1)
	m.lastChange.Store(time.Now().UnixNano())
	metrics.IncLinkEvent(m.serial, next.String())

	for {
		select {
		case m.changes <- next:
			m.log.Info().Str(log.FieldOldState, prev.String()).Str(log.FieldNewState, next.String()).
				Str("token", token).Msg("camera link changed")
			return
		default:
		}
		select {
		case <-m.changes:
		default:
		}
	}
}

// subscribeLink registers m's callback for cam. The creation handle is
// released on every path; the registration outlives it.
func subscribeLink(drv genicam.Driver, cam genicam.Identity, m *LinkMonitor) error {
	sub, st := drv.CreateSubscription(cam)
	if !st.OK() || sub == nil {
		if sub != nil {
			releaseSubscription(sub, m)
		}
		return opErr("create subscription", "", st, ErrSubscribe)
	}
	defer releaseSubscription(sub, m)

	if st := sub.SubscribeLink(m.notify, linkToken); !st.OK() {
		m.log.Warn().Stringer(log.FieldStatus, st).Msg("subscribe link events failed")
		return opErr("subscribe link events", "", st, ErrSubscribe)
	}
	m.subscribed.Store(true)
	return nil
}

// unsubscribeLink mirrors subscribeLink. It is a successful no-op when
// nothing is registered.
func unsubscribeLink(drv genicam.Driver, cam genicam.Identity, m *LinkMonitor) error {
	if m == nil || !m.subscribed.Load() {
		return nil
	}
	sub, st := drv.CreateSubscription(cam)
	if !st.OK() || sub == nil {
		if sub != nil {
			releaseSubscription(sub, m)
		}
		return opErr("create subscription", "", st, ErrUnsubscribe)
	}
	defer releaseSubscription(sub, m)

	if st := sub.UnsubscribeLink(linkToken); !st.OK() {
		m.log.Warn().Stringer(log.FieldStatus, st).Msg("unsubscribe link events failed")
		return opErr("unsubscribe link events", "", st, ErrUnsubscribe)
	}
	m.subscribed.Store(false)
	return nil
}

func releaseSubscription(sub genicam.Subscription, m *LinkMonitor) {
	if st := sub.Release(); !st.OK() {
		m.log.Warn().Stringer(log.FieldStatus, st).Msg("release subscription failed")
	}
}
