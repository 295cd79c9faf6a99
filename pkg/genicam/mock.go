package genicam

import (
	"fmt"
	"sync"
	"time"
)

// Resource identifies a class of driver handle tracked by Mock.
type Resource int

const (
	ResourceNode Resource = iota
	ResourceSubscription
	ResourceStream
	ResourceFrame
)

func (r Resource) String() string {
	return [...]string{"node", "subscription", "stream", "frame"}[r]
}

// Op names a driver operation for call recording and failure injection.
type Op string

const (
	OpEnumerate          Op = "enumerate"
	OpConnect            Op = "connect"
	OpDisconnect         Op = "disconnect"
	OpCreateNode         Op = "create_node"
	OpGet                Op = "get"
	OpSet                Op = "set"
	OpExecute            Op = "execute"
	OpCreateSubscription Op = "create_subscription"
	OpSubscribe          Op = "subscribe"
	OpUnsubscribe        Op = "unsubscribe"
	OpCreateStream       Op = "create_stream"
	OpStartGrabbing      Op = "start_grabbing"
	OpStopGrabbing       Op = "stop_grabbing"
	OpGetFrame           Op = "get_frame"
)

// Call records one driver invocation.
type Call struct {
	Op    Op
	Key   string
	Attr  string
	Value any
}

// MockFrame scripts one frame returned by Mock.
type MockFrame struct {
	Format   PixelFormat
	Width    int
	Height   int
	PaddingX int
	PaddingY int
	Data     []byte
	Size     int  // reported ImageSize; defaults to len(Data)
	Invalid  bool // Valid() fails
}

type failure struct {
	op     Op
	attr   string
	status Status
	once   bool
}

// Mock implements Driver for tests and demos.
// Every handle it hands out is counted so tests can verify that each one is
// released exactly once. Failures can be injected per operation and
// attribute, frames can be scripted per camera, and with AutoFrames set the
// mock synthesises frames according to the camera's trigger configuration.
type Mock struct {
	// AutoFrames synthesises frames when the queue is empty and the trigger
	// configuration allows one.
	AutoFrames bool

	// FrameInterval paces synthesised free-run frames.
	FrameInterval time.Duration

	mu        sync.Mutex
	order     []string
	cameras   map[string]*mockCamera
	failures  []failure
	calls     []Call
	acquired  map[Resource]int
	released  map[Resource]int
	doubleRel int
	nextBlock uint64
}

type mockCamera struct {
	id        Identity
	connected bool
	access    AccessLevel

	ints    map[string]int64
	doubles map[string]float64
	enums   map[string]string
	cmds    map[string]bool

	links   map[string]LinkCallback
	streams map[int]*mockStream

	queue        []MockFrame
	softTriggers int
	lineTriggers int
	lastFrame    time.Time
	wake         chan struct{}
}

// MockIdentity returns a deterministic identity for the i-th mock camera.
func MockIdentity(i int) Identity {
	return Identity{
		Key:    fmt.Sprintf("mock:%d", i),
		Vendor: "Mock Vision",
		Model:  "MV-CA050",
		Serial: fmt.Sprintf("SN%03d", i),
	}
}

// NewMock creates a mock driver exposing the given cameras.
func NewMock(ids ...Identity) *Mock {
	m := &Mock{
		FrameInterval: 33 * time.Millisecond,
		cameras:       make(map[string]*mockCamera),
		acquired:      make(map[Resource]int),
		released:      make(map[Resource]int),
	}
	for _, id := range ids {
		m.order = append(m.order, id.Key)
		m.cameras[id.Key] = newMockCamera(id)
	}
	return m
}

func newMockCamera(id Identity) *mockCamera {
	return &mockCamera{
		id: id,
		ints: map[string]int64{
			"WidthMax":  4096,
			"HeightMax": 3072,
			"Width":     1280,
			"Height":    1024,
			"OffsetX":   0,
			"OffsetY":   0,
		},
		doubles: map[string]float64{
			"ExposureTime": 10000,
			"Gain":         1,
		},
		enums: map[string]string{
			"TriggerMode":       "Off",
			"TriggerSource":     "Software",
			"TriggerSelector":   "FrameStart",
			"TriggerActivation": "RisingEdge",
			"PixelFormat":       "Mono8",
		},
		cmds:    map[string]bool{"TriggerSoftware": true},
		links:   make(map[string]LinkCallback),
		streams: make(map[int]*mockStream),
		wake:    make(chan struct{}, 1),
	}
}

// Fail makes every matching call return st until ClearFailures.
// An empty attr matches any attribute.
func (m *Mock) Fail(op Op, attr string, st Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, failure{op: op, attr: attr, status: st})
}

// FailOnce makes the next matching call return st.
func (m *Mock) FailOnce(op Op, attr string, st Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, failure{op: op, attr: attr, status: st, once: true})
}

// ClearFailures removes all injected failures.
func (m *Mock) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = nil
}

// injected must be called with mu held.
func (m *Mock) injected(op Op, attr string) Status {
	for i, f := range m.failures {
		if f.op != op || (f.attr != "" && f.attr != attr) {
			continue
		}
		if f.once {
			m.failures = append(m.failures[:i], m.failures[i+1:]...)
		}
		return f.status
	}
	return StatusOK
}

// record must be called with mu held.
func (m *Mock) record(op Op, key, attr string, value any) {
	m.calls = append(m.calls, Call{Op: op, Key: key, Attr: attr, Value: value})
}

// acquire must be called with mu held.
func (m *Mock) acquire(r Resource) {
	m.acquired[r]++
}

// release must be called with mu held.
func (m *Mock) release(r Resource, released *bool) Status {
	if *released {
		m.doubleRel++
		return StatusInvalidHandle
	}
	*released = true
	m.released[r]++
	return StatusOK
}

func (m *Mock) camera(key string) *mockCamera {
	return m.cameras[key]
}

// Enumerate implements Driver.
func (m *Mock) Enumerate() ([]Identity, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(OpEnumerate, "", "", nil)
	if st := m.injected(OpEnumerate, ""); !st.OK() {
		return nil, st
	}
	ids := make([]Identity, 0, len(m.order))
	for _, key := range m.order {
		ids = append(ids, m.cameras[key].id)
	}
	return ids, StatusOK
}

// Connect implements Driver.
func (m *Mock) Connect(cam Identity, access AccessLevel) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(OpConnect, cam.Key, "", access)
	if st := m.injected(OpConnect, ""); !st.OK() {
		return st
	}
	c := m.camera(cam.Key)
	if c == nil {
		return StatusNotAvailable
	}
	if c.connected {
		return StatusBusy
	}
	c.connected = true
	c.access = access
	return StatusOK
}

// Disconnect implements Driver.
func (m *Mock) Disconnect(cam Identity) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(OpDisconnect, cam.Key, "", nil)
	if st := m.injected(OpDisconnect, ""); !st.OK() {
		return st
	}
	c := m.camera(cam.Key)
	if c == nil || !c.connected {
		return StatusNotConnected
	}
	c.connected = false
	return StatusOK
}

// CreateNode implements Driver.
func (m *Mock) CreateNode(kind NodeKind, cam Identity, attr string) (Node, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(OpCreateNode, cam.Key, attr, kind)
	if st := m.injected(OpCreateNode, attr); !st.OK() {
		return nil, st
	}
	c := m.camera(cam.Key)
	if c == nil || !c.connected {
		return nil, StatusNotConnected
	}
	if !c.hasAttr(kind, attr) {
		return nil, StatusNotAvailable
	}
	m.acquire(ResourceNode)
	return &mockNode{m: m, cam: c, kind: kind, attr: attr}, StatusOK
}

func (c *mockCamera) hasAttr(kind NodeKind, attr string) bool {
	var ok bool
	switch kind {
	case NodeInt:
		_, ok = c.ints[attr]
	case NodeDouble:
		_, ok = c.doubles[attr]
	case NodeEnum:
		_, ok = c.enums[attr]
	case NodeCommand:
		ok = c.cmds[attr]
	}
	return ok
}

// CreateSubscription implements Driver.
func (m *Mock) CreateSubscription(cam Identity) (Subscription, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(OpCreateSubscription, cam.Key, "", nil)
	if st := m.injected(OpCreateSubscription, ""); !st.OK() {
		return nil, st
	}
	c := m.camera(cam.Key)
	if c == nil {
		return nil, StatusNotAvailable
	}
	m.acquire(ResourceSubscription)
	return &mockSubscription{m: m, cam: c}, StatusOK
}

// CreateStreamSource implements Driver.
func (m *Mock) CreateStreamSource(cam Identity, channel int) (Stream, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(OpCreateStream, cam.Key, "", channel)
	if st := m.injected(OpCreateStream, ""); !st.OK() {
		return nil, st
	}
	c := m.camera(cam.Key)
	if c == nil || !c.connected {
		return nil, StatusNotConnected
	}
	if _, busy := c.streams[channel]; busy {
		return nil, StatusBusy
	}
	s := &mockStream{m: m, cam: c, channel: channel}
	c.streams[channel] = s
	m.acquire(ResourceStream)
	return s, StatusOK
}

// EmitLink delivers a link event to every callback registered for the
// camera, each on its own goroutine, and waits for them to return.
func (m *Mock) EmitLink(key string, t LinkEventType) int {
	m.mu.Lock()
	c := m.camera(key)
	if c == nil {
		m.mu.Unlock()
		return 0
	}
	type reg struct {
		cb    LinkCallback
		token string
	}
	regs := make([]reg, 0, len(c.links))
	for token, cb := range c.links {
		regs = append(regs, reg{cb: cb, token: token})
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	ev := LinkEvent{Type: t, Key: key}
	for _, r := range regs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.cb(ev, r.token)
		}()
	}
	wg.Wait()
	return len(regs)
}

// QueueFrame appends a scripted frame for the camera.
func (m *Mock) QueueFrame(key string, f MockFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.camera(key)
	if c == nil {
		return
	}
	c.queue = append(c.queue, f)
	c.signal()
}

// TriggerLine simulates an edge on the hardware trigger input.
func (m *Mock) TriggerLine(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.camera(key); c != nil {
		c.lineTriggers++
		c.signal()
	}
}

func (c *mockCamera) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// SetInt seeds an integer attribute, creating it if needed.
func (m *Mock) SetInt(key, attr string, v int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.camera(key); c != nil {
		c.ints[attr] = v
	}
}

// SetEnum seeds an enumeration attribute, creating it if needed.
func (m *Mock) SetEnum(key, attr, symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.camera(key); c != nil {
		c.enums[attr] = symbol
	}
}

// RemoveAttr drops an attribute so node creation fails for it.
func (m *Mock) RemoveAttr(key, attr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.camera(key); c != nil {
		delete(c.ints, attr)
		delete(c.doubles, attr)
		delete(c.enums, attr)
		delete(c.cmds, attr)
	}
}

// Int returns an integer attribute value.
func (m *Mock) Int(key, attr string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.camera(key).ints[attr]
}

// Double returns a floating-point attribute value.
func (m *Mock) Double(key, attr string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.camera(key).doubles[attr]
}

// Enum returns an enumeration attribute value.
func (m *Mock) Enum(key, attr string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.camera(key).enums[attr]
}

// Connected reports whether the camera holds a connection.
func (m *Mock) Connected(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.camera(key).connected
}

// LinkSubscribers returns the number of registered link callbacks.
func (m *Mock) LinkSubscribers(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.camera(key).links)
}

// OpenStreams returns the number of unreleased stream sources.
func (m *Mock) OpenStreams(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.camera(key).streams)
}

// Calls returns recorded calls, filtered by op when one is given.
func (m *Mock) Calls(ops ...Op) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(ops) == 0 {
		return append([]Call(nil), m.calls...)
	}
	var out []Call
	for _, c := range m.calls {
		for _, op := range ops {
			if c.Op == op {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// ResetCalls clears the call log.
func (m *Mock) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Acquired returns how many handles of kind r were handed out.
func (m *Mock) Acquired(r Resource) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired[r]
}

// Released returns how many handles of kind r were released.
func (m *Mock) Released(r Resource) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released[r]
}

// Outstanding returns the number of transient handles (nodes, subscription
// handles, frames) not yet released. Streams are long-lived and excluded.
func (m *Mock) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range []Resource{ResourceNode, ResourceSubscription, ResourceFrame} {
		n += m.acquired[r] - m.released[r]
	}
	return n
}

// DoubleReleases counts Release calls on already-released handles.
func (m *Mock) DoubleReleases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doubleRel
}

type mockNode struct {
	m        *Mock
	cam      *mockCamera
	kind     NodeKind
	attr     string
	released bool
}

func (n *mockNode) check(op Op, kind NodeKind, value any) Status {
	n.m.record(op, n.cam.id.Key, n.attr, value)
	if n.released {
		return StatusInvalidHandle
	}
	if st := n.m.injected(op, n.attr); !st.OK() {
		return st
	}
	if n.kind != kind {
		return StatusInvalidParam
	}
	return StatusOK
}

func (n *mockNode) GetInt() (int64, Status) {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	if st := n.check(OpGet, NodeInt, nil); !st.OK() {
		return 0, st
	}
	return n.cam.ints[n.attr], StatusOK
}

func (n *mockNode) SetInt(v int64) Status {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	if st := n.check(OpSet, NodeInt, v); !st.OK() {
		return st
	}
	if v < 0 {
		return StatusInvalidParam
	}
	n.cam.ints[n.attr] = v
	return StatusOK
}

func (n *mockNode) GetDouble() (float64, Status) {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	if st := n.check(OpGet, NodeDouble, nil); !st.OK() {
		return 0, st
	}
	return n.cam.doubles[n.attr], StatusOK
}

func (n *mockNode) SetDouble(v float64) Status {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	if st := n.check(OpSet, NodeDouble, v); !st.OK() {
		return st
	}
	n.cam.doubles[n.attr] = v
	return StatusOK
}

func (n *mockNode) GetSymbol() (string, Status) {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	if st := n.check(OpGet, NodeEnum, nil); !st.OK() {
		return "", st
	}
	return n.cam.enums[n.attr], StatusOK
}

func (n *mockNode) SetSymbol(symbol string) Status {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	if st := n.check(OpSet, NodeEnum, symbol); !st.OK() {
		return st
	}
	n.cam.enums[n.attr] = symbol
	return StatusOK
}

func (n *mockNode) Execute() Status {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	if st := n.check(OpExecute, NodeCommand, nil); !st.OK() {
		return st
	}
	if n.attr == "TriggerSoftware" {
		n.cam.softTriggers++
		n.cam.signal()
	}
	return StatusOK
}

func (n *mockNode) Release() Status {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()
	return n.m.release(ResourceNode, &n.released)
}

type mockSubscription struct {
	m        *Mock
	cam      *mockCamera
	released bool
}

func (s *mockSubscription) SubscribeLink(cb LinkCallback, userToken string) Status {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record(OpSubscribe, s.cam.id.Key, "", userToken)
	if s.released {
		return StatusInvalidHandle
	}
	if st := s.m.injected(OpSubscribe, ""); !st.OK() {
		return st
	}
	s.cam.links[userToken] = cb
	return StatusOK
}

func (s *mockSubscription) UnsubscribeLink(userToken string) Status {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record(OpUnsubscribe, s.cam.id.Key, "", userToken)
	if s.released {
		return StatusInvalidHandle
	}
	if st := s.m.injected(OpUnsubscribe, ""); !st.OK() {
		return st
	}
	if _, ok := s.cam.links[userToken]; !ok {
		return StatusInvalidParam
	}
	delete(s.cam.links, userToken)
	return StatusOK
}

func (s *mockSubscription) Release() Status {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.release(ResourceSubscription, &s.released)
}

type mockStream struct {
	m        *Mock
	cam      *mockCamera
	channel  int
	grabbing bool
	released bool
}

func (s *mockStream) StartGrabbing(strategy GrabStrategy) Status {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record(OpStartGrabbing, s.cam.id.Key, "", strategy)
	if s.released {
		return StatusInvalidHandle
	}
	if st := s.m.injected(OpStartGrabbing, ""); !st.OK() {
		return st
	}
	s.grabbing = true
	return StatusOK
}

func (s *mockStream) StopGrabbing() Status {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.record(OpStopGrabbing, s.cam.id.Key, "", nil)
	if s.released {
		return StatusInvalidHandle
	}
	if st := s.m.injected(OpStopGrabbing, ""); !st.OK() {
		return st
	}
	if !s.grabbing {
		return StatusError
	}
	s.grabbing = false
	return StatusOK
}

func (s *mockStream) GetFrame(timeoutMs uint32) (Frame, Status) {
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)

	s.m.mu.Lock()
	s.m.record(OpGetFrame, s.cam.id.Key, "", timeoutMs)
	if s.released {
		s.m.mu.Unlock()
		return nil, StatusInvalidHandle
	}
	if st := s.m.injected(OpGetFrame, ""); !st.OK() {
		// a half-initialised frame comes back with the failure
		s.m.acquire(ResourceFrame)
		s.m.mu.Unlock()
		return &mockFrame{m: s.m, f: MockFrame{Invalid: true}}, st
	}
	if !s.grabbing {
		s.m.mu.Unlock()
		return nil, StatusNotAvailable
	}
	s.m.mu.Unlock()

	for {
		s.m.mu.Lock()
		if s.released || !s.grabbing {
			s.m.mu.Unlock()
			return nil, StatusNotAvailable
		}
		f, wait, ok := s.next(time.Now())
		if ok {
			s.m.nextBlock++
			s.m.acquire(ResourceFrame)
			fr := &mockFrame{m: s.m, f: f, block: s.m.nextBlock}
			s.m.mu.Unlock()
			return fr, StatusOK
		}
		wake := s.cam.wake
		s.m.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, StatusTimeout
		}
		if wait > 0 && wait < remaining {
			remaining = wait
		}
		timer := time.NewTimer(remaining)
		select {
		case <-wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// next picks the frame to deliver, or how long to wait for a synthesised
// free-run frame. Called with mu held.
func (s *mockStream) next(now time.Time) (MockFrame, time.Duration, bool) {
	c := s.cam
	if len(c.queue) > 0 {
		f := c.queue[0]
		c.queue = c.queue[1:]
		return f, 0, true
	}
	if !s.m.AutoFrames {
		return MockFrame{}, 0, false
	}
	if c.enums["TriggerMode"] == "On" {
		switch c.enums["TriggerSource"] {
		case "Software":
			if c.softTriggers > 0 {
				c.softTriggers--
				return c.synthesize(s.m.nextBlock), 0, true
			}
		default:
			if c.lineTriggers > 0 {
				c.lineTriggers--
				return c.synthesize(s.m.nextBlock), 0, true
			}
		}
		return MockFrame{}, 0, false
	}
	if due := c.lastFrame.Add(s.m.FrameInterval); now.Before(due) {
		return MockFrame{}, due.Sub(now), false
	}
	c.lastFrame = now
	return c.synthesize(s.m.nextBlock), 0, true
}

// synthesize renders a moving gradient in the current pixel format and ROI.
func (c *mockCamera) synthesize(seq uint64) MockFrame {
	format, err := ParsePixelFormat(c.enums["PixelFormat"])
	if err != nil {
		format = PixelMono8
	}
	w, h := int(c.ints["Width"]), int(c.ints["Height"])
	bpp := format.BitsPerPixel() / 8
	data := make([]byte, format.FrameSize(w, h))
	shift := int(seq * 4)
	for y := 0; y < h; y++ {
		row := data[y*w*bpp : (y+1)*w*bpp]
		for i := range row {
			row[i] = byte((i/bpp + y + shift) & 0xFF)
		}
	}
	return MockFrame{Format: format, Width: w, Height: h, Data: data}
}

func (s *mockStream) Release() Status {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	st := s.m.release(ResourceStream, &s.released)
	if st.OK() {
		delete(s.cam.streams, s.channel)
		s.cam.signal()
	}
	return st
}

type mockFrame struct {
	m        *Mock
	f        MockFrame
	block    uint64
	released bool
}

func (f *mockFrame) Valid() Status {
	if f.f.Invalid {
		return StatusError
	}
	return StatusOK
}

func (f *mockFrame) BlockID() uint64 { return f.block }

func (f *mockFrame) ImageSize() int {
	if f.f.Size > 0 {
		return f.f.Size
	}
	return len(f.f.Data)
}

func (f *mockFrame) Width() int               { return f.f.Width }
func (f *mockFrame) Height() int              { return f.f.Height }
func (f *mockFrame) PaddingX() int            { return f.f.PaddingX }
func (f *mockFrame) PaddingY() int            { return f.f.PaddingY }
func (f *mockFrame) PixelFormat() PixelFormat { return f.f.Format }

func (f *mockFrame) Image() []byte {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.released {
		return nil
	}
	return f.f.Data
}

func (f *mockFrame) Release() Status {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return f.m.release(ResourceFrame, &f.released)
}

// MockConverter implements Converter by expanding each source byte into a
// gray BGR pixel. It counts invocations.
type MockConverter struct {
	// Status, when nonzero, is returned by every conversion.
	Status Status

	mu    sync.Mutex
	calls int
}

// ConvertToBGR24 implements Converter.
func (c *MockConverter) ConvertToBGR24(raw []byte, desc ImageDescriptor, out []byte) (int, Status) {
	c.mu.Lock()
	c.calls++
	st := c.Status
	c.mu.Unlock()
	if !st.OK() {
		return 0, st
	}
	n := desc.Width * desc.Height * 3
	if len(out) < n {
		return 0, StatusBufferTooSmall
	}
	for i := 0; i < desc.Width*desc.Height; i++ {
		var v byte
		if i < len(raw) {
			v = raw[i]
		}
		out[3*i], out[3*i+1], out[3*i+2] = v, v, v
	}
	return n, StatusOK
}

// Calls returns how many conversions were requested.
func (c *MockConverter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
