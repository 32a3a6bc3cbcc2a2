// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package realtime

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/transitwatch/internal/auth"
	"github.com/tomtom215/transitwatch/internal/config"
	"github.com/tomtom215/transitwatch/internal/events"
	"github.com/tomtom215/transitwatch/internal/logging"
	"github.com/tomtom215/transitwatch/internal/metrics"
)

// Transport is the part of *websocket.Conn a session uses.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

var _ Transport = (*websocket.Conn)(nil)

// sessionIDCounter hands out process-unique session ids.
var sessionIDCounter atomic.Uint64

// SessionID identifies a session within this process.
type SessionID uint64

// String renders the id as it appears in the connected frame.
func (id SessionID) String() string {
	return "client_" + strconv.FormatUint(uint64(id), 10)
}

var (
	errQueueFull     = errors.New("send queue full")
	errSessionClosed = errors.New("session closed")
)

// TransportError reports a failed delivery to one session. The session is
// dropped; other recipients are unaffected.
type TransportError struct {
	SessionID SessionID
	Op        string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Session is one connected client. The hub owns it.
type Session struct {
	id   SessionID
	conn Transport
	send chan []byte

	// subs is guarded by Hub.mu.
	subs map[events.Topic]struct{}

	principal    atomic.Pointer[auth.Principal]
	lastActivity atomic.Int64
	probed       atomic.Bool

	// malformed is nil when the malformed-input policy is disabled.
	malformed *rate.Limiter

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(conn Transport, cfg config.RealtimeConfig, now time.Time) *Session {
	s := &Session{
		id:        SessionID(sessionIDCounter.Add(1)),
		conn:      conn,
		send:      make(chan []byte, cfg.SendBuffer),
		subs:      make(map[events.Topic]struct{}),
		malformed: newMalformedLimiter(cfg.MalformedLimit, cfg.MalformedWindow),
		done:      make(chan struct{}),
	}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// ID returns the session id.
func (s *Session) ID() SessionID { return s.id }

// Principal returns the authenticated identity, or nil.
func (s *Session) Principal() *auth.Principal { return s.principal.Load() }

// LastActivity returns the time of the most recent inbound frame or pong.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// touch records activity at t. The timestamp never moves backwards.
func (s *Session) touch(t time.Time) {
	n := t.UnixNano()
	for {
		cur := s.lastActivity.Load()
		if n <= cur || s.lastActivity.CompareAndSwap(cur, n) {
			break
		}
	}
	s.probed.Store(false)
}

// enqueue hands frame to the write pump without blocking.
func (s *Session) enqueue(frame []byte) error {
	select {
	case <-s.done:
		return &TransportError{SessionID: s.id, Op: "enqueue", Err: errSessionClosed}
	default:
	}
	select {
	case s.send <- frame:
		return nil
	default:
		return &TransportError{SessionID: s.id, Op: "enqueue", Err: errQueueFull}
	}
}

// close stops the write pump and closes the transport once. The send
// channel is never closed, so late enqueues fail cleanly instead of
// panicking.
func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// writePump is the only writer of data frames. It exits when the session
// closes, after flushing what is already queued, or on the first write
// failure.
func (s *Session) writePump(h *Hub) {
	defer func() {
		_ = s.conn.Close()
	}()
	for {
		select {
		case frame := <-s.send:
			if err := s.write(h.cfg.WriteWait, frame); err != nil {
				logging.Debug().Err(err).Str("session", s.id.String()).Msg("websocket write failed")
				h.Disconnect(s, "write_failed")
				return
			}
		case <-s.done:
			s.flush(h.cfg.WriteWait)
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(h.cfg.WriteWait))
			return
		}
	}
}

func (s *Session) write(wait time.Duration, frame []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(wait)); err != nil {
		return &TransportError{SessionID: s.id, Op: "set write deadline", Err: err}
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return &TransportError{SessionID: s.id, Op: "write", Err: err}
	}
	metrics.WSMessagesSent.Inc()
	return nil
}

func (s *Session) flush(wait time.Duration) {
	for {
		select {
		case frame := <-s.send:
			if s.write(wait, frame) != nil {
				return
			}
		default:
			return
		}
	}
}

// readPump decodes frames until the transport fails. Liveness is owned by
// the monitor, so no read deadline is set here.
func (s *Session) readPump(h *Hub) {
	defer h.Disconnect(s, "read_closed")

	s.conn.SetReadLimit(h.cfg.MaxMessageSize)
	s.conn.SetPongHandler(func(string) error {
		s.touch(h.now())
		return nil
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("session", s.id.String()).Msg("unexpected websocket close")
			}
			return
		}
		s.touch(h.now())
		h.HandleInbound(s, frame)
		if s.closed() {
			return
		}
	}
}
