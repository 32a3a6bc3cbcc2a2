// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/transitwatch/internal/events"
)

func startServer(t *testing.T, h *Hub) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var f wireFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("frame %s: %v", raw, err)
	}
	return f
}

func TestServe_EndToEnd(t *testing.T) {
	t.Parallel()
	h := NewHub(testConfig(), Deps{})
	url := startServer(t, h)

	conn := dial(t, url)
	if f := readFrame(t, conn); f.Type != "connected" || !strings.HasPrefix(f.ClientID, "client_") {
		t.Fatalf("first frame = %+v", f)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe","channel":"route:45A"}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	if f := readFrame(t, conn); f.Type != "subscribed" || f.Channel != "route:45A" {
		t.Fatalf("subscribe reply = %+v", f)
	}

	route := "45A"
	h.Broadcast(events.NewLocationUpdate(events.LocationUpdate{VehicleID: "V1", RouteID: &route, RouteNumber: &route}),
		events.LocationTopics("V1", "45A"))
	f := readFrame(t, conn)
	if f.Type != "vehicle_location_update" {
		t.Fatalf("event = %+v", f)
	}
	var p events.LocationUpdate
	if err := json.Unmarshal(f.Data, &p); err != nil || p.RouteNumber == nil || *p.RouteNumber != "45A" {
		t.Errorf("payload = %s (%v)", f.Data, err)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	deadline := time.Now().Add(5 * time.Second)
	for h.SessionCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if h.SessionCount() != 0 || h.TopicCount() != 0 {
		t.Errorf("sessions=%d topics=%d after client close", h.SessionCount(), h.TopicCount())
	}
}

func TestServe_EvictionSendsCloseFrame(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MalformedLimit = 1
	h := NewHub(cfg, Deps{})
	conn := dial(t, startServer(t, h))
	readFrame(t, conn)

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`x`))
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`y`))
	if f := readFrame(t, conn); f.Message != "Invalid message format" {
		t.Fatalf("first reply = %+v", f)
	}
	if f := readFrame(t, conn); f.Message != "Too many malformed messages" {
		t.Fatalf("second reply = %+v", f)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("after eviction ReadMessage() error = %v, want normal close", err)
	}
}
