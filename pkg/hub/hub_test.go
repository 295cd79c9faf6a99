package hub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/teslashibe/go-optcam/internal/log"
)

func TestMain(m *testing.M) {
	log.Configure(log.Config{Level: "disabled", Output: io.Discard})
	goleak.VerifyTestMain(m)
}

type written struct {
	kind int
	data []byte
}

// fakeConn blocks reads until Close and records writes.
type fakeConn struct {
	closeOnce sync.Once
	closed    chan struct{}
	writes    chan written
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{}), writes: make(chan written, 16)}
}

func (f *fakeConn) SetReadLimit(int64)                 {}
func (f *fakeConn) SetReadDeadline(time.Time) error    { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(kind int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("closed")
	default:
	}
	f.writes <- written{kind: kind, data: data}
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) next(t *testing.T) written {
	t.Helper()
	select {
	case w := <-f.writes:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("no message written")
		return written{}
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	require.Eventually(t, h.IsRunning, time.Second, 5*time.Millisecond)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h, cancel
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h, _ := startHub(t)

	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	var wg sync.WaitGroup
	for _, conn := range conns {
		c := NewClient(h, conn)
		require.NotNil(t, c)
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Run()
		}()
	}
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]string{"hello": "world"}))
	h.BroadcastBinary([]byte{0xff, 0xd8})

	for _, conn := range conns {
		w := conn.next(t)
		assert.Equal(t, websocket.TextMessage, w.kind)
		assert.JSONEq(t, `{"hello":"world"}`, string(w.data))

		w = conn.next(t)
		assert.Equal(t, websocket.BinaryMessage, w.kind)
		assert.Equal(t, []byte{0xff, 0xd8}, w.data)
	}

	conns[0].Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conns[1].Close()
	wg.Wait()
}

func TestHub_StopClosesClients(t *testing.T) {
	h := New("stop")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	require.Eventually(t, h.IsRunning, time.Second, 5*time.Millisecond)

	conn := newFakeConn()
	c := NewClient(h, conn)
	require.NotNil(t, c)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		c.Run()
	}()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-h.Done()

	w := conn.next(t)
	assert.Equal(t, websocket.CloseMessage, w.kind)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
	}
	assert.False(t, h.IsRunning())
	assert.Zero(t, h.ClientCount())

	// A stopped hub refuses new clients.
	assert.Nil(t, NewClient(h, newFakeConn()))
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	h, _ := startHub(t)
	h.BroadcastBinary([]byte("frame"))
	assert.Zero(t, h.ClientCount())
}

func TestEvent_Encode(t *testing.T) {
	ev := NewEvent(EventLink, "abc", "SN1", map[string]string{"state": "offline"})
	msg, err := ev.Encode()
	require.NoError(t, err)
	assert.Equal(t, JSONMessage, msg.Type)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, "link", decoded["type"])
	assert.Equal(t, "abc", decoded["session"])
	assert.Equal(t, "SN1", decoded["serial"])
	assert.Equal(t, map[string]interface{}{"state": "offline"}, decoded["data"])
	assert.NotEmpty(t, decoded["time"])
}
