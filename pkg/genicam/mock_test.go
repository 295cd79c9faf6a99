package genicam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connected(t *testing.T) (*Mock, Identity) {
	t.Helper()
	id := MockIdentity(0)
	m := NewMock(id)
	require.True(t, m.Connect(id, AccessControl).OK())
	return m, id
}

func TestMock_Enumerate(t *testing.T) {
	m := NewMock(MockIdentity(0), MockIdentity(1))
	ids, st := m.Enumerate()
	require.True(t, st.OK())
	require.Len(t, ids, 2)
	assert.Equal(t, "SN001", ids[1].Serial)

	m.FailOnce(OpEnumerate, "", StatusError)
	_, st = m.Enumerate()
	assert.Equal(t, StatusError, st)

	ids, st = NewMock().Enumerate()
	assert.True(t, st.OK())
	assert.Empty(t, ids)
}

func TestMock_ConnectExclusive(t *testing.T) {
	m, id := connected(t)
	assert.Equal(t, StatusBusy, m.Connect(id, AccessControl))
	assert.True(t, m.Disconnect(id).OK())
	assert.Equal(t, StatusNotConnected, m.Disconnect(id))
	assert.Equal(t, StatusNotAvailable, m.Connect(MockIdentity(9), AccessControl))
}

func TestMock_NodeCounting(t *testing.T) {
	m, id := connected(t)

	n, st := m.CreateNode(NodeInt, id, "Width")
	require.True(t, st.OK())
	assert.Equal(t, 1, m.Outstanding())

	assert.True(t, n.SetInt(320).OK())
	assert.Equal(t, StatusInvalidParam, n.SetInt(-1))
	v, st := n.GetInt()
	assert.True(t, st.OK())
	assert.EqualValues(t, 320, v)

	// wrong accessor for the kind
	_, st = n.GetDouble()
	assert.Equal(t, StatusInvalidParam, st)

	assert.True(t, n.Release().OK())
	assert.Equal(t, StatusInvalidHandle, n.Release())
	assert.Zero(t, m.Outstanding())
	assert.Equal(t, 1, m.DoubleReleases())

	_, st = n.GetInt()
	assert.Equal(t, StatusInvalidHandle, st)
}

func TestMock_NodeAvailability(t *testing.T) {
	m, id := connected(t)

	_, st := m.CreateNode(NodeDouble, id, "Width")
	assert.Equal(t, StatusNotAvailable, st)

	m.RemoveAttr(id.Key, "ExposureTime")
	_, st = m.CreateNode(NodeDouble, id, "ExposureTime")
	assert.Equal(t, StatusNotAvailable, st)

	require.True(t, m.Disconnect(id).OK())
	_, st = m.CreateNode(NodeInt, id, "Width")
	assert.Equal(t, StatusNotConnected, st)
	assert.Zero(t, m.Acquired(ResourceNode))
}

func TestMock_FailureInjection(t *testing.T) {
	m, id := connected(t)
	m.Fail(OpSet, "Height", StatusAccessDenied)

	w, _ := m.CreateNode(NodeInt, id, "Width")
	h, _ := m.CreateNode(NodeInt, id, "Height")
	defer w.Release()
	defer h.Release()

	assert.True(t, w.SetInt(10).OK())
	assert.Equal(t, StatusAccessDenied, h.SetInt(10))
	assert.Equal(t, StatusAccessDenied, h.SetInt(10))

	m.ClearFailures()
	assert.True(t, h.SetInt(10).OK())

	calls := m.Calls(OpSet)
	require.Len(t, calls, 4)
	assert.Equal(t, "Width", calls[0].Attr)
	assert.EqualValues(t, 10, calls[0].Value)
}

func TestMock_SubscriptionOutlivesHandle(t *testing.T) {
	m, id := connected(t)

	sub, st := m.CreateSubscription(id)
	require.True(t, st.OK())
	got := make(chan LinkEvent, 1)
	require.True(t, sub.SubscribeLink(func(ev LinkEvent, token string) {
		assert.Equal(t, "tok", token)
		got <- ev
	}, "tok").OK())
	require.True(t, sub.Release().OK())

	assert.Equal(t, 1, m.EmitLink(id.Key, LinkOnline))
	ev := <-got
	assert.Equal(t, LinkOnline, ev.Type)
	assert.Equal(t, id.Key, ev.Key)

	sub, _ = m.CreateSubscription(id)
	defer sub.Release()
	assert.Equal(t, StatusInvalidParam, sub.UnsubscribeLink("other"))
	assert.True(t, sub.UnsubscribeLink("tok").OK())
	assert.Zero(t, m.LinkSubscribers(id.Key))
}

func TestMock_StreamQueue(t *testing.T) {
	m, id := connected(t)

	s, st := m.CreateStreamSource(id, 0)
	require.True(t, st.OK())
	_, st = m.CreateStreamSource(id, 0)
	assert.Equal(t, StatusBusy, st)

	_, st = s.GetFrame(10)
	assert.Equal(t, StatusNotAvailable, st, "not grabbing")

	require.True(t, s.StartGrabbing(GrabSequential).OK())
	m.QueueFrame(id.Key, MockFrame{Format: PixelMono8, Width: 2, Height: 2, Data: []byte{1, 2, 3, 4}})

	f, st := s.GetFrame(100)
	require.True(t, st.OK())
	assert.True(t, f.Valid().OK())
	assert.Equal(t, 4, f.ImageSize())
	assert.Equal(t, []byte{1, 2, 3, 4}, f.Image())
	d := Describe(f)
	assert.Equal(t, ImageDescriptor{DataSize: 4, Width: 2, Height: 2, PixelFormat: PixelMono8}, d)
	require.True(t, f.Release().OK())
	assert.Nil(t, f.Image())

	start := time.Now()
	_, st = s.GetFrame(20)
	assert.Equal(t, StatusTimeout, st)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	require.True(t, s.StopGrabbing().OK())
	assert.Equal(t, StatusError, s.StopGrabbing())
	require.True(t, s.Release().OK())
	assert.Zero(t, m.OpenStreams(id.Key))
	assert.Zero(t, m.Outstanding())
}

func TestMock_InjectedFrameFailure(t *testing.T) {
	m, id := connected(t)
	s, _ := m.CreateStreamSource(id, 0)
	require.True(t, s.StartGrabbing(GrabSequential).OK())

	m.FailOnce(OpGetFrame, "", StatusError)
	f, st := s.GetFrame(10)
	assert.Equal(t, StatusError, st)
	require.NotNil(t, f)
	assert.Equal(t, 1, m.Outstanding())
	f.Release()
	assert.Zero(t, m.Outstanding())

	s.StopGrabbing()
	s.Release()
}

func TestMock_AutoFrames(t *testing.T) {
	m, id := connected(t)
	m.AutoFrames = true
	m.SetInt(id.Key, "Width", 8)
	m.SetInt(id.Key, "Height", 4)

	s, _ := m.CreateStreamSource(id, 0)
	require.True(t, s.StartGrabbing(GrabLatestImage).OK())
	defer func() {
		s.StopGrabbing()
		s.Release()
	}()

	f, st := s.GetFrame(100)
	require.True(t, st.OK())
	assert.Equal(t, 8, f.Width())
	assert.Len(t, f.Image(), 32)
	first := f.BlockID()
	f.Release()

	f, st = s.GetFrame(100)
	require.True(t, st.OK())
	assert.Greater(t, f.BlockID(), first)
	f.Release()

	// software trigger: one frame per execute
	m.SetEnum(id.Key, "TriggerMode", "On")
	_, st = s.GetFrame(10)
	assert.Equal(t, StatusTimeout, st)

	cmd, _ := m.CreateNode(NodeCommand, id, "TriggerSoftware")
	require.True(t, cmd.Execute().OK())
	cmd.Release()
	f, st = s.GetFrame(100)
	require.True(t, st.OK())
	f.Release()

	// hardware line
	m.SetEnum(id.Key, "TriggerSource", "Line1")
	m.TriggerLine(id.Key)
	f, st = s.GetFrame(100)
	require.True(t, st.OK())
	f.Release()
}

func TestMockConverter(t *testing.T) {
	c := &MockConverter{}
	out := make([]byte, 12)
	n, st := c.ConvertToBGR24([]byte{1, 2, 3, 4}, ImageDescriptor{Width: 2, Height: 2}, out)
	require.True(t, st.OK())
	assert.Equal(t, 12, n)
	assert.Equal(t, []byte{1, 1, 1, 2, 2, 2, 3, 3, 3, 4, 4, 4}, out)

	_, st = c.ConvertToBGR24(nil, ImageDescriptor{Width: 4, Height: 4}, out)
	assert.Equal(t, StatusBufferTooSmall, st)

	c.Status = StatusError
	_, st = c.ConvertToBGR24(nil, ImageDescriptor{Width: 1, Height: 1}, out)
	assert.Equal(t, StatusError, st)
	assert.Equal(t, 3, c.Calls())
}
