package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadwatch/roadwatch/pkg/log"
	"github.com/roadwatch/roadwatch/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

// fakeConn is an in-memory Conn. Reads block on the inbound channel until
// fail or Close breaks the connection
type fakeConn struct {
	inbound chan []byte
	done    chan struct{}
	once    sync.Once

	mu     sync.Mutex
	writes [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-f.inbound:
		return websocket.TextMessage, msg, nil
	case <-f.done:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.done:
		return errors.New("use of closed connection")
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) Close() error {
	f.fail()
	return nil
}

// fail breaks the connection from the server side
func (f *fakeConn) fail() {
	f.once.Do(func() { close(f.done) })
}

func (f *fakeConn) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.writes))
	for _, w := range f.writes {
		out = append(out, string(w))
	}
	return out
}

func waitForStatus(t *testing.T, c *Client, want types.ConnectionStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Status() == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConnectIsIdempotent(t *testing.T) {
	var dials int32
	gate := make(chan struct{})
	conn := newFakeConn()
	c := NewClient(Config{
		URL: "ws://test/ws",
		Dial: func(url string) (Conn, error) {
			atomic.AddInt32(&dials, 1)
			<-gate
			return conn, nil
		},
	})
	defer c.Disconnect()

	c.Connect()
	c.Connect()
	c.Connect()
	close(gate)
	waitForStatus(t, c, types.StatusConnected)

	// Repeated calls while connected are also no-ops
	c.Connect()
	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
}

func TestReconnectDelayIsLinear(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 3 * time.Second},
		{2, 6 * time.Second},
		{3, 9 * time.Second},
		{4, 12 * time.Second},
		{5, 15 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.want, reconnectDelay(3*time.Second, tt.attempt))
		})
	}
}

func TestReconnectGivesUpAfterMaxAttempts(t *testing.T) {
	var dials int32
	c := NewClient(Config{
		URL:         "ws://test/ws",
		BaseDelay:   time.Millisecond,
		MaxAttempts: 3,
		Dial: func(url string) (Conn, error) {
			atomic.AddInt32(&dials, 1)
			return nil, errors.New("connection refused")
		},
	})
	defer c.Disconnect()

	c.Connect()

	// Initial dial plus three scheduled retries, then the client gives up
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&dials) == 4
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(4), atomic.LoadInt32(&dials))
	assert.Equal(t, types.StatusDisconnected, c.Status())
}

func TestReconnectAfterConnectionLoss(t *testing.T) {
	var dials int32
	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	c := NewClient(Config{
		URL:       "ws://test/ws",
		BaseDelay: time.Millisecond,
		Dial: func(url string) (Conn, error) {
			n := atomic.AddInt32(&dials, 1)
			if int(n) > len(conns) {
				return nil, errors.New("no more connections")
			}
			return conns[n-1], nil
		},
	})
	defer c.Disconnect()

	c.Connect()
	waitForStatus(t, c, types.StatusConnected)

	conns[0].fail()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&dials) == 2 && c.Status() == types.StatusConnected
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStatusFanOutOrderAndSingleDisconnect(t *testing.T) {
	conn := newFakeConn()
	dialed := false
	c := NewClient(Config{
		URL:       "ws://test/ws",
		BaseDelay: time.Hour, // Keep the reconnect timer out of the test
		Dial: func(url string) (Conn, error) {
			if dialed {
				return nil, errors.New("connection refused")
			}
			dialed = true
			return conn, nil
		},
	})
	defer c.Disconnect()

	var mu sync.Mutex
	var seen []string
	record := func(name string) func(types.ConnectionStatus) {
		return func(s types.ConnectionStatus) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, name+":"+string(s))
		}
	}
	c.SubscribeStatus(record("a"))
	c.SubscribeStatus(record("b"))

	c.Connect()
	waitForStatus(t, c, types.StatusConnected)
	conn.fail()
	waitForStatus(t, c, types.StatusDisconnected)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 6
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"a:connecting", "b:connecting",
		"a:connected", "b:connected",
		"a:disconnected", "b:disconnected",
	}, seen)
}

func TestExplicitDisconnectDoesNotReconnect(t *testing.T) {
	var dials int32
	c := NewClient(Config{
		URL:       "ws://test/ws",
		BaseDelay: time.Millisecond,
		Dial: func(url string) (Conn, error) {
			atomic.AddInt32(&dials, 1)
			return newFakeConn(), nil
		},
	})

	c.Connect()
	waitForStatus(t, c, types.StatusConnected)
	c.Disconnect()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
	assert.Equal(t, types.StatusDisconnected, c.Status())
}

func TestHandleFrameDispatchesAlertEvents(t *testing.T) {
	c := NewClient(Config{URL: "ws://test/ws"})

	var got []*types.AlertEvent
	c.Subscribe(types.EventAlertCreated, func(e *types.AlertEvent) {
		got = append(got, e)
	})

	c.handleFrame([]byte(`{"type":"alert.created","data":{"id":42,"title":"Derrumbe","severity":"high"}}`))

	require.Len(t, got, 1)
	assert.Equal(t, types.EventAlertCreated, got[0].Type)
	assert.Equal(t, int64(42), got[0].AlertID)
	require.NotNil(t, got[0].Alert)
	assert.Equal(t, "Derrumbe", got[0].Alert.Title)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestHandleFrameDeletionCarriesIDOnly(t *testing.T) {
	c := NewClient(Config{URL: "ws://test/ws"})

	var got []*types.AlertEvent
	c.Subscribe(types.EventAlertDeleted, func(e *types.AlertEvent) {
		got = append(got, e)
	})

	c.handleFrame([]byte(`{"type":"alert.deleted","data":{"id":7}}`))

	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].AlertID)
	assert.Nil(t, got[0].Alert)
}

func TestHandleFrameDropsBadInput(t *testing.T) {
	c := NewClient(Config{URL: "ws://test/ws"})

	delivered := 0
	for _, et := range []types.EventType{
		types.EventAlertCreated, types.EventAlertUpdated, types.EventAlertDeleted,
		types.EventAlertCommented, types.EventAlertVoted,
	} {
		c.Subscribe(et, func(*types.AlertEvent) { delivered++ })
	}

	tests := []struct {
		name  string
		frame string
	}{
		{"not json", `{not json`},
		{"unknown type", `{"type":"alert.exploded","data":{"id":1}}`},
		{"pong keepalive", `{"type":"PONG"}`},
		{"deletion without id", `{"type":"alert.deleted","data":{}}`},
		{"malformed payload", `{"type":"alert.created","data":"nope"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.handleFrame([]byte(tt.frame))
			assert.Zero(t, delivered)
		})
	}
}

func TestSubscriberPanicDoesNotStopDelivery(t *testing.T) {
	c := NewClient(Config{URL: "ws://test/ws"})

	second := 0
	c.Subscribe(types.EventAlertCreated, func(*types.AlertEvent) {
		panic("subscriber bug")
	})
	c.Subscribe(types.EventAlertCreated, func(*types.AlertEvent) {
		second++
	})

	c.handleFrame([]byte(`{"type":"alert.created","data":{"id":1}}`))
	assert.Equal(t, 1, second)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	c := NewClient(Config{URL: "ws://test/ws"})

	calls := 0
	unsub := c.Subscribe(types.EventAlertCreated, func(*types.AlertEvent) {
		calls++
	})

	c.handleFrame([]byte(`{"type":"alert.created","data":{"id":1}}`))
	unsub()
	c.handleFrame([]byte(`{"type":"alert.created","data":{"id":2}}`))

	assert.Equal(t, 1, calls)
}

func TestSendDropsWhenNotConnected(t *testing.T) {
	c := NewClient(Config{URL: "ws://test/ws"})
	c.Send(map[string]string{"type": "PING"}) // Must not panic
	assert.Equal(t, types.StatusDisconnected, c.Status())
}

func TestPingKeepalive(t *testing.T) {
	conn := newFakeConn()
	c := NewClient(Config{
		URL:          "ws://test/ws",
		PingInterval: 10 * time.Millisecond,
		Dial:         func(url string) (Conn, error) { return conn, nil },
	})
	defer c.Disconnect()

	c.Connect()
	waitForStatus(t, c, types.StatusConnected)

	require.Eventually(t, func() bool {
		return len(conn.written()) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	var ping pingFrame
	require.NoError(t, json.Unmarshal([]byte(conn.written()[0]), &ping))
	assert.Equal(t, "PING", ping.Type)
}
