package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/roadwatch/roadwatch/pkg/log"
	"github.com/roadwatch/roadwatch/pkg/metrics"
	"github.com/roadwatch/roadwatch/pkg/types"
)

// Conn is the subset of the websocket connection used by the client.
// Satisfied by *websocket.Conn; tests substitute fakes
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc opens a websocket connection to the given URL
type DialFunc func(url string) (Conn, error)

func gorillaDial(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Config holds realtime client configuration
type Config struct {
	URL          string
	PingInterval time.Duration // Keepalive interval while connected
	BaseDelay    time.Duration // Reconnect backoff base
	MaxAttempts  int           // Reconnect ceiling before giving up
	Dial         DialFunc      // Defaults to a gorilla/websocket dialer
}

// Client maintains a live connection to the backend event stream, delivers
// inbound alert events to subscribers, and recovers from disconnects with
// linearly increasing backoff
type Client struct {
	url          string
	pingInterval time.Duration
	baseDelay    time.Duration
	maxAttempts  int
	dial         DialFunc
	logger       zerolog.Logger

	mu             sync.Mutex
	conn           Conn
	state          types.ConnectionStatus
	attempts       int
	closed         bool
	pingStop       chan struct{}
	reconnectTimer *time.Timer

	writeMu sync.Mutex

	subMu      sync.Mutex
	nextSubID  int
	subs       map[types.EventType][]subscription
	statusSubs []statusSubscription
}

type subscription struct {
	id int
	fn func(*types.AlertEvent)
}

type statusSubscription struct {
	id int
	fn func(types.ConnectionStatus)
}

// NewClient creates a realtime client. It does not connect until Connect is
// called
func NewClient(cfg Config) *Client {
	c := &Client{
		url:          cfg.URL,
		pingInterval: cfg.PingInterval,
		baseDelay:    cfg.BaseDelay,
		maxAttempts:  cfg.MaxAttempts,
		dial:         cfg.Dial,
		logger:       log.WithComponent("realtime"),
		state:        types.StatusDisconnected,
		subs:         make(map[types.EventType][]subscription),
	}
	if c.dial == nil {
		c.dial = gorillaDial
	}
	if c.pingInterval <= 0 {
		c.pingInterval = 30 * time.Second
	}
	if c.baseDelay <= 0 {
		c.baseDelay = 3 * time.Second
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 5
	}
	return c
}

// Status returns the current connection status
func (c *Client) Status() types.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the connection. Calling Connect while a socket is already
// open or being opened is a no-op
func (c *Client) Connect() {
	c.mu.Lock()
	if c.state == types.StatusConnected || c.state == types.StatusConnecting {
		c.mu.Unlock()
		return
	}
	c.state = types.StatusConnecting
	c.closed = false
	c.mu.Unlock()

	c.publishStatus(types.StatusConnecting)
	go c.dialAndServe()
}

// Disconnect stops the keepalive and closes the socket without scheduling a
// reconnect
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closed = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
	conn := c.conn
	c.conn = nil
	wasIdle := c.state == types.StatusDisconnected
	c.state = types.StatusDisconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	metrics.ConnectionUp.Set(0)
	if !wasIdle {
		c.publishStatus(types.StatusDisconnected)
	}
}

// Subscribe registers a callback for a specific event type and returns an
// unsubscribe function. Delivery is synchronous, in registration order
func (c *Client) Subscribe(t types.EventType, fn func(*types.AlertEvent)) func() {
	c.subMu.Lock()
	c.nextSubID++
	id := c.nextSubID
	c.subs[t] = append(c.subs[t], subscription{id: id, fn: fn})
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		list := c.subs[t]
		for i, sub := range list {
			if sub.id == id {
				c.subs[t] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// SubscribeStatus registers a callback for connection status transitions and
// returns an unsubscribe function
func (c *Client) SubscribeStatus(fn func(types.ConnectionStatus)) func() {
	c.subMu.Lock()
	c.nextSubID++
	id := c.nextSubID
	c.statusSubs = append(c.statusSubs, statusSubscription{id: id, fn: fn})
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		for i, sub := range c.statusSubs {
			if sub.id == id {
				c.statusSubs = append(c.statusSubs[:i], c.statusSubs[i+1:]...)
				return
			}
		}
	}
}

// Send JSON-serializes data and writes it to the socket if currently open;
// otherwise the message is dropped with a logged warning
func (c *Client) Send(v interface{}) {
	c.mu.Lock()
	conn := c.conn
	open := c.state == types.StatusConnected && conn != nil
	c.mu.Unlock()

	if !open {
		c.logger.Warn().Msg("dropping outbound message, connection not open")
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn().Err(err).Msg("dropping unserializable outbound message")
		return
	}
	if err := c.write(conn, data); err != nil {
		c.logger.Warn().Err(err).Msg("failed to write outbound message")
	}
}

func (c *Client) write(conn Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) dialAndServe() {
	conn, err := c.dial(c.url)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", c.url).Msg("connection failed")
		c.mu.Lock()
		c.state = types.StatusDisconnected
		c.mu.Unlock()
		c.publishStatus(types.StatusError)
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	if c.closed {
		// Disconnect raced the dial
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = types.StatusConnected
	c.attempts = 0
	pingStop := make(chan struct{})
	c.pingStop = pingStop
	c.mu.Unlock()

	metrics.ConnectionUp.Set(1)
	c.logger.Info().Str("url", c.url).Msg("connected")
	c.publishStatus(types.StatusConnected)

	go c.pingLoop(conn, pingStop)
	c.readLoop(conn)
}

func (c *Client) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleDisconnect(conn Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		// A newer connection has taken over
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
	c.state = types.StatusDisconnected
	explicit := c.closed
	c.mu.Unlock()

	conn.Close()
	metrics.ConnectionUp.Set(0)
	c.logger.Warn().Err(cause).Msg("connection lost")
	c.publishStatus(types.StatusDisconnected)

	if !explicit {
		c.scheduleReconnect()
	}
}

// reconnectDelay returns the backoff before reconnect attempt n: linear in
// the attempt number, not exponential
func reconnectDelay(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.attempts++
	attempt := c.attempts
	if attempt > c.maxAttempts {
		c.mu.Unlock()
		c.logger.Error().Int("attempts", attempt-1).
			Msg("giving up on automatic reconnection")
		return
	}
	delay := reconnectDelay(c.baseDelay, attempt)
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.closed || c.state != types.StatusDisconnected {
			c.mu.Unlock()
			return
		}
		c.state = types.StatusConnecting
		c.mu.Unlock()
		c.publishStatus(types.StatusConnecting)
		c.dialAndServe()
	})
	c.mu.Unlock()

	metrics.ReconnectsTotal.Inc()
	c.logger.Info().Int("attempt", attempt).Dur("delay", delay).
		Msg("reconnect scheduled")
}

// pingFrame is the periodic keepalive sent while the socket is open
type pingFrame struct {
	Type string `json:"type"`
}

func (c *Client) pingLoop(conn Conn, stop chan struct{}) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	data, _ := json.Marshal(pingFrame{Type: "PING"})
	for {
		select {
		case <-ticker.C:
			if err := c.write(conn, data); err != nil {
				c.logger.Debug().Err(err).Msg("keepalive write failed")
				return
			}
		case <-stop:
			return
		}
	}
}

// frame is the inbound wire format: a type discriminator plus a payload
type frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

func (c *Client) handleFrame(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		metrics.FramesDroppedTotal.Inc()
		c.logger.Warn().Err(err).Msg("dropping unparseable frame")
		return
	}

	if f.Type == "PONG" {
		return
	}

	eventType := types.EventType(f.Type)
	if !eventType.Valid() {
		metrics.FramesDroppedTotal.Inc()
		c.logger.Warn().Str("type", f.Type).Msg("dropping frame with unknown type")
		return
	}

	event, err := decodeEvent(eventType, f)
	if err != nil {
		metrics.FramesDroppedTotal.Inc()
		c.logger.Warn().Err(err).Str("type", f.Type).Msg("dropping undecodable frame")
		return
	}

	metrics.EventsReceivedTotal.WithLabelValues(string(eventType)).Inc()
	c.dispatch(event)
}

func decodeEvent(t types.EventType, f frame) (*types.AlertEvent, error) {
	event := &types.AlertEvent{
		Type:      t,
		Timestamp: f.Timestamp,
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if t == types.EventAlertDeleted {
		var ref struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(f.Data, &ref); err != nil {
			return nil, fmt.Errorf("invalid deletion payload: %w", err)
		}
		if ref.ID == 0 {
			return nil, fmt.Errorf("deletion payload missing alert id")
		}
		event.AlertID = ref.ID
		return event, nil
	}

	var alert types.Alert
	if err := json.Unmarshal(f.Data, &alert); err != nil {
		return nil, fmt.Errorf("invalid alert payload: %w", err)
	}
	event.Alert = &alert
	event.AlertID = alert.ID
	return event, nil
}

func (c *Client) dispatch(event *types.AlertEvent) {
	c.subMu.Lock()
	handlers := make([]subscription, len(c.subs[event.Type]))
	copy(handlers, c.subs[event.Type])
	c.subMu.Unlock()

	for _, sub := range handlers {
		c.safeDeliver(sub, event)
	}
}

// safeDeliver isolates subscriber failures so one panicking callback cannot
// prevent delivery to the remaining subscribers
func (c *Client) safeDeliver(sub subscription, event *types.AlertEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).
				Str("event", string(event.Type)).
				Msg("subscriber panicked during delivery")
		}
	}()
	sub.fn(event)
}

func (c *Client) publishStatus(status types.ConnectionStatus) {
	c.subMu.Lock()
	handlers := make([]statusSubscription, len(c.statusSubs))
	copy(handlers, c.statusSubs)
	c.subMu.Unlock()

	for _, sub := range handlers {
		c.safeNotify(sub, status)
	}
}

func (c *Client) safeNotify(sub statusSubscription, status types.ConnectionStatus) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).
				Msg("status subscriber panicked during delivery")
		}
	}()
	sub.fn(status)
}
