// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

// Package reconnect is a WebSocket client for the realtime hub that keeps a
// connection alive across failures. It remembers the credential and the
// desired subscriptions and replays them, auth first, on every reconnect
// before any other frame is written.
package reconnect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/transitwatch/internal/logging"
)

var (
	// ErrNotConnected is returned by Send while no connection is up.
	ErrNotConnected = errors.New("reconnect: not connected")
	// ErrGaveUp is returned by Run once the retry budget is spent.
	ErrGaveUp = errors.New("reconnect: max reconnect attempts reached")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("reconnect: client closed")
	// ErrTooManySubscriptions rejects a subscription beyond the configured bound.
	ErrTooManySubscriptions = errors.New("reconnect: too many subscriptions")
)

// Defaults match the browser client this replaces.
const (
	DefaultBaseDelay        = time.Second
	DefaultMaxDelay         = 30 * time.Second
	DefaultMaxAttempts      = 5
	DefaultHeartbeat        = 25 * time.Second
	DefaultMaxSubscriptions = 256

	writeWait = 10 * time.Second
)

// Conn is the transport a Client drives. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a transport.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebSocketDialer dials with gorilla/websocket.
type WebSocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
}

// Dial implements Dialer.
func (d WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// Options configure a Client. Zero values take the defaults above.
type Options struct {
	URL              string
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	MaxAttempts      int
	Heartbeat        time.Duration // negative disables the application ping
	MaxSubscriptions int
	Dialer           Dialer
}

type listener struct {
	id uint64
	fn func(Event)
}

// Client is a reconnecting hub client. Run drives it; the other methods
// are safe to call from any goroutine.
type Client struct {
	url       string
	dialer    Dialer
	heartbeat time.Duration
	maxSubs   int

	// writeMu serializes every frame written, including the replay, so
	// nothing can slip in between connect and resubscribe.
	writeMu sync.Mutex

	mu        sync.Mutex
	state     State
	conn      Conn
	backoff   Backoff
	token     string
	desired   map[string]struct{}
	listeners map[EventKind][]listener
	nextID    uint64

	closed    chan struct{}
	closeOnce sync.Once

	// sleep waits d or until ctx or the client is done. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a client. Call Run to connect.
func New(opts Options) *Client {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Heartbeat == 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.MaxSubscriptions <= 0 {
		opts.MaxSubscriptions = DefaultMaxSubscriptions
	}
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer{}
	}
	c := &Client{
		url:       opts.URL,
		dialer:    opts.Dialer,
		heartbeat: opts.Heartbeat,
		maxSubs:   opts.MaxSubscriptions,
		backoff:   Backoff{Base: opts.BaseDelay, Max: opts.MaxDelay, MaxAttempts: opts.MaxAttempts},
		desired:   make(map[string]struct{}),
		listeners: make(map[EventKind][]listener),
		closed:    make(chan struct{}),
	}
	c.sleep = c.wait
	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscriptions returns the desired channel set, sorted.
func (c *Client) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedDesiredLocked()
}

func (c *Client) sortedDesiredLocked() []string {
	out := make([]string, 0, len(c.desired))
	for ch := range c.desired {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// On registers fn for kind and returns a func that removes it.
func (c *Client) On(kind EventKind, fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[kind] = append(c.listeners[kind], listener{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			ls := c.listeners[kind]
			for i, l := range ls {
				if l.id == id {
					c.listeners[kind] = append(ls[:i:i], ls[i+1:]...)
					break
				}
			}
			if len(c.listeners[kind]) == 0 {
				delete(c.listeners, kind)
			}
		})
	}
}

func (c *Client) emit(ev Event) {
	c.mu.Lock()
	ls := append([]listener(nil), c.listeners[ev.Kind]...)
	c.mu.Unlock()
	for _, l := range ls {
		c.call(l.fn, ev)
	}
}

func (c *Client) call(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Str("event", string(ev.Kind)).Msg("reconnect listener panicked")
		}
	}()
	fn(ev)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Authenticate stores token and sends it now if connected. It is replayed
// on every reconnect.
func (c *Client) Authenticate(token string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	c.token = token
	conn, connected := c.conn, c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		return nil
	}
	return writeFrame(conn, outbound{Type: "auth", Token: token})
}

// Subscribe adds channel to the desired set and sends it now if connected.
// While disconnected it only updates the set.
func (c *Client) Subscribe(channel string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if _, ok := c.desired[channel]; !ok && len(c.desired) >= c.maxSubs {
		c.mu.Unlock()
		return ErrTooManySubscriptions
	}
	c.desired[channel] = struct{}{}
	conn, connected := c.conn, c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		return nil
	}
	return writeFrame(conn, outbound{Type: "subscribe", Channel: channel})
}

// Unsubscribe removes channel from the desired set and tells the server
// if connected.
func (c *Client) Unsubscribe(channel string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	delete(c.desired, channel)
	conn, connected := c.conn, c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		return nil
	}
	return writeFrame(conn, outbound{Type: "unsubscribe", Channel: channel})
}

// Ping sends an application-level ping.
func (c *Client) Ping() error {
	return c.send(outbound{Type: "ping"})
}

// SendLocation publishes a vehicle position. The session must be
// authenticated with a role allowed to publish.
func (c *Client) SendLocation(data interface{}) error {
	return c.send(outbound{Type: "vehicle_location_update", Data: data})
}

func (c *Client) send(msg outbound) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	conn, connected := c.conn, c.state == StateConnected
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	return writeFrame(conn, msg)
}

func writeFrame(conn Conn, msg outbound) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", msg.Type, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("write %s frame: %w", msg.Type, err)
	}
	return nil
}

// Run connects and keeps reconnecting until ctx ends, Close is called or
// the retry budget is spent (ErrGaveUp).
func (c *Client) Run(ctx context.Context) error {
	for {
		if c.isClosed() {
			return ErrClosed
		}
		c.setState(StateConnecting)

		conn, err := c.dialer.Dial(ctx, c.url)
		if err == nil {
			if err = c.establish(conn); err == nil {
				err = c.readLoop(ctx, conn)
			}
			c.teardown(conn, err)
		} else {
			c.setState(StateDisconnected)
			logging.Debug().Err(err).Str("url", c.url).Msg("dial failed")
			c.emit(Event{Kind: EventError, State: StateDisconnected, Err: err})
		}

		if c.isClosed() {
			return ErrClosed
		}
		if ctx.Err() != nil {
			c.setState(StateClosed)
			return ctx.Err()
		}

		c.mu.Lock()
		delay, ok := c.backoff.Next()
		attempt := c.backoff.Attempt()
		if !ok {
			c.state = StateGaveUp
		}
		c.mu.Unlock()
		if !ok {
			logging.Error().Str("url", c.url).Msg("max reconnection attempts reached")
			c.emit(Event{Kind: EventGaveUp, State: StateGaveUp, Attempt: attempt, Err: ErrGaveUp})
			return ErrGaveUp
		}

		logging.Info().Dur("delay", delay).Int("attempt", attempt).Msg("reconnecting")
		c.emit(Event{Kind: EventReconnecting, State: StateDisconnected, Attempt: attempt, Delay: delay})
		if err := c.sleep(ctx, delay); err != nil {
			if c.isClosed() {
				return ErrClosed
			}
			c.setState(StateClosed)
			return err
		}
	}
}

// establish replays auth then every desired subscription, and only then
// publishes the connection to Send.
func (c *Client) establish(conn Conn) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	token := c.token
	channels := c.sortedDesiredLocked()
	c.mu.Unlock()

	if token != "" {
		if err := writeFrame(conn, outbound{Type: "auth", Token: token}); err != nil {
			return err
		}
	}
	for _, ch := range channels {
		if err := writeFrame(conn, outbound{Type: "subscribe", Channel: ch}); err != nil {
			return err
		}
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.conn = conn
	c.state = StateConnected
	c.backoff.Reset()
	c.mu.Unlock()

	logging.Info().Str("url", c.url).Int("subscriptions", len(channels)).Msg("connected")
	c.emit(Event{Kind: EventConnected, State: StateConnected})
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn Conn) error {
	done := make(chan struct{})
	defer close(done)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if c.heartbeat > 0 {
		go c.heartbeatLoop(done)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			logging.Warn().Err(err).Msg("failed to parse server frame")
			continue
		}
		c.emit(Event{Kind: EventKind(f.Type), State: StateConnected, Frame: &f})
		c.emit(Event{Kind: EventMessage, State: StateConnected, Frame: &f})
	}
}

func (c *Client) heartbeatLoop(done <-chan struct{}) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.Ping(); err != nil && !errors.Is(err, ErrNotConnected) {
				logging.Debug().Err(err).Msg("heartbeat failed")
			}
		}
	}
}

func (c *Client) teardown(conn Conn, cause error) {
	_ = conn.Close()

	c.mu.Lock()
	wasConnected := c.conn == conn
	if wasConnected {
		c.conn = nil
	}
	if c.state != StateClosed {
		c.state = StateDisconnected
	}
	state := c.state
	c.mu.Unlock()

	if wasConnected {
		if websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			logging.Info().Msg("connection closed by server")
		} else {
			logging.Info().Err(cause).Msg("connection lost")
		}
		c.emit(Event{Kind: EventDisconnected, State: state, Err: cause})
		return
	}
	if state != StateClosed && cause != nil {
		c.emit(Event{Kind: EventError, State: state, Err: cause})
	}
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return ErrClosed
	}
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Close stops Run, drops the connection and forgets the subscriptions.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		conn := c.conn
		c.conn = nil
		c.desired = make(map[string]struct{})
		c.mu.Unlock()

		close(c.closed)
		if conn != nil {
			_ = conn.Close()
		}
	})
	return nil
}
