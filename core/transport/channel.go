// Package transport maintains the client's two socket connections: the
// event channel carrying tagged conversation records and the voice channel
// carrying audio frames and voice control messages.
//
// Each channel has its own connect/reconnect lifecycle. An unexpected close
// schedules exactly one reconnect attempt at a fixed delay; a manual
// reconnect first cancels any pending attempt and detaches the old read
// loop so two reconnect loops can never run against one channel.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Status is the connection state of one channel.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

const defaultReconnectDelay = 3 * time.Second

var (
	// ErrChannelClosed is returned when sending or connecting on a channel
	// after Close.
	ErrChannelClosed = errors.New("channel closed")
	// ErrNotConnected is returned when sending while the socket is down.
	ErrNotConnected = errors.New("channel not connected")
)

// Channel is a single websocket connection with automatic reconnection.
//
// The connection URL is re-evaluated on every dial so reconnects pick up the
// latest connection parameters (session id, spoken language).
type Channel struct {
	name string
	url  func() string

	dialer *websocket.Dialer

	mu sync.Mutex
	// writeMu serializes writes; gorilla permits one concurrent writer.
	writeMu sync.Mutex

	conn   *websocket.Conn
	status Status
	closed bool

	// generation invalidates read loops and pending reconnect timers that
	// belong to a previous connection.
	generation     int
	reconnectTimer *time.Timer

	reconnectDelay    time.Duration
	keepAliveInterval time.Duration

	onMessage func([]byte)
	onStatus  func(Status)
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithReconnectDelay overrides the fixed delay before an automatic
// reconnect attempt.
func WithReconnectDelay(delay time.Duration) ChannelOption {
	return func(c *Channel) { c.reconnectDelay = delay }
}

// WithKeepAlive sends a websocket ping at the given interval while the
// channel is connected.
func WithKeepAlive(interval time.Duration) ChannelOption {
	return func(c *Channel) { c.keepAliveInterval = interval }
}

// WithStatusCallback registers a callback invoked on every status change.
func WithStatusCallback(onStatus func(Status)) ChannelOption {
	return func(c *Channel) { c.onStatus = onStatus }
}

// NewChannel creates a disconnected channel. url is evaluated on every dial;
// onMessage receives every inbound frame in arrival order.
func NewChannel(name string, url func() string, onMessage func([]byte), opts ...ChannelOption) *Channel {
	if onMessage == nil {
		onMessage = func([]byte) {}
	}

	channel := &Channel{
		name:           name,
		url:            url,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		status:         StatusDisconnected,
		reconnectDelay: defaultReconnectDelay,
		onMessage:      onMessage,
	}
	for _, opt := range opts {
		opt(channel)
	}
	return channel
}

// Connect dials the channel. A previously scheduled reconnect attempt is
// cancelled first; a dial failure schedules one.
func (c *Channel) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "channel connect")
	defer span.End()
	span.SetAttributes(attribute.String("channel", c.name))

	c.mu.Lock()
	// An explicit Connect reopens a channel the user previously closed.
	c.closed = false
	c.cancelReconnectLocked()
	c.generation++
	generation := c.generation
	notify := c.setStatusLocked(StatusConnecting)
	c.mu.Unlock()
	notify()

	conn, _, err := c.dialer.DialContext(ctx, c.url(), nil)
	if err != nil {
		recordedErr := fmt.Errorf("failed to dial %s channel: %w", c.name, err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())

		c.mu.Lock()
		notify := c.setStatusLocked(StatusError)
		c.scheduleReconnectLocked(generation)
		c.mu.Unlock()
		notify()
		return recordedErr
	}

	c.mu.Lock()
	if generation != c.generation || c.closed {
		// Superseded by a newer Connect or by Close while dialing.
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	notify = c.setStatusLocked(StatusConnected)
	c.mu.Unlock()
	notify()

	go c.readLoop(conn, generation)
	if c.keepAliveInterval > 0 {
		go c.keepAlive(conn, generation)
	}
	return nil
}

// Reconnect tears the current connection down and dials again immediately,
// typically after a connection-parameter change. Any pending automatic
// reconnect is cancelled and the old read loop is detached before closing,
// so the close cannot trigger a second, competing reconnect.
func (c *Channel) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	c.cancelReconnectLocked()
	c.generation++
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	return c.Connect(ctx)
}

// Close shuts the channel down permanently.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancelReconnectLocked()
	c.generation++
	conn := c.conn
	c.conn = nil
	notify := c.setStatusLocked(StatusDisconnected)
	c.mu.Unlock()
	notify()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		return conn.Close()
	}
	return nil
}

// Send marshals the message as JSON and writes it to the socket.
func (c *Channel) Send(message any) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return ErrChannelClosed
	}
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to write to %s channel: %w", c.name, err)
	}
	return nil
}

// Status returns the current connection status.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Channel) readLoop(conn *websocket.Conn, generation int) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "channel", c.name, "error", err)
			}
			break
		}
		c.onMessage(message)
	}

	c.mu.Lock()
	if generation != c.generation || c.closed {
		// A manual reconnect or Close already detached this connection.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	notify := c.setStatusLocked(StatusDisconnected)
	c.scheduleReconnectLocked(generation)
	c.mu.Unlock()
	notify()
}

func (c *Channel) keepAlive(conn *websocket.Conn, generation int) {
	ticker := time.NewTicker(c.keepAliveInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		stale := generation != c.generation || c.closed
		c.mu.Unlock()
		if stale {
			return
		}

		deadline := time.Now().Add(5 * time.Second)
		if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			return
		}
	}
}

// scheduleReconnectLocked arms at most one reconnect timer at the fixed
// delay. A timer that is already pending is left alone so an error burst
// cannot fan out into a burst of reconnects.
func (c *Channel) scheduleReconnectLocked(generation int) {
	if c.reconnectTimer != nil {
		return
	}

	c.reconnectTimer = time.AfterFunc(c.reconnectDelay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		stale := generation != c.generation || c.closed
		c.mu.Unlock()
		if stale {
			return
		}

		if err := c.Connect(context.Background()); err != nil {
			logger.Warn("reconnect attempt failed", "channel", c.name, "error", err)
		}
	})
}

func (c *Channel) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// setStatusLocked updates the status and returns the notification to run
// once the lock is released.
func (c *Channel) setStatusLocked(status Status) func() {
	if c.status == status || c.onStatus == nil {
		c.status = status
		return func() {}
	}

	c.status = status
	onStatus := c.onStatus
	return func() { onStatus(status) }
}
