// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package realtime

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/transitwatch/internal/config"
)

var errFakeClosed = errors.New("fake transport closed")

// fakeConn is an in-memory Transport.
type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	pings   int
	pingErr error
	closes  int

	// answerPings makes WriteControl run the pong handler before returning.
	answerPings bool
	pong        func(string) error

	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.inbound:
		return websocket.TextMessage, f, nil
	case <-c.closed:
		return 0, nil, errFakeClosed
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	if messageType != websocket.PingMessage {
		return nil
	}
	c.mu.Lock()
	c.pings++
	err, pong := c.pingErr, c.pong
	if !c.answerPings {
		pong = nil
	}
	c.mu.Unlock()

	if err == nil && pong != nil {
		return pong("")
	}
	return err
}

func (c *fakeConn) SetReadLimit(int64) {}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) SetPongHandler(h func(string) error) {
	c.mu.Lock()
	c.pong = h
	c.mu.Unlock()
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) pingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

// wireFrame is a decoded server frame.
type wireFrame struct {
	Type     string          `json:"type"`
	ClientID string          `json:"clientId"`
	Success  *bool           `json:"success"`
	UserID   string          `json:"userId"`
	Role     string          `json:"role"`
	Channel  string          `json:"channel"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
}

func testConfig() config.RealtimeConfig {
	return config.RealtimeConfig{
		SweepInterval:   30 * time.Second,
		IdleTimeout:     60 * time.Second,
		SendBuffer:      16,
		MaxMessageSize:  64 * 1024,
		WriteWait:       time.Second,
		MalformedWindow: time.Minute,
	}
}

// drain returns every frame queued for s without starting its pumps.
func drain(t *testing.T, s *Session) []wireFrame {
	t.Helper()
	var out []wireFrame
	for {
		select {
		case raw := <-s.send:
			var f wireFrame
			if err := json.Unmarshal(raw, &f); err != nil {
				t.Fatalf("queued frame is not JSON: %v (%s)", err, raw)
			}
			out = append(out, f)
		default:
			return out
		}
	}
}

// accept registers a session and discards its connected frame.
func accept(t *testing.T, h *Hub) *Session {
	t.Helper()
	s := h.Accept(newFakeConn())
	if frames := drain(t, s); len(frames) != 1 || frames[0].Type != "connected" {
		t.Fatalf("first frames = %+v, want one connected frame", frames)
	}
	return s
}

func send(h *Hub, s *Session, frame string) {
	h.HandleInbound(s, []byte(frame))
}

func types(frames []wireFrame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.Type
	}
	return out
}
