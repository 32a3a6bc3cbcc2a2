// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"

	"github.com/tomtom215/transitwatch/internal/reconnect"
)

func TestSplitChannels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"repeated flags", []string{"route:45A", "alerts"}, []string{"route:45A", "alerts"}},
		{"comma separated", []string{"route:45A, stop:stop_001"}, []string{"route:45A", "stop:stop_001"}},
		{"duplicates and blanks", []string{"alerts,,alerts", " "}, []string{"alerts"}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := splitChannels(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitChannels(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPrintFrame(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	frame := &reconnect.Frame{Type: "service_alert", Data: json.RawMessage(`{"title":"Detour"}`)}
	if err := printFrame(&buf, frame); err != nil {
		t.Fatalf("printFrame() error = %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if got["type"] != "service_alert" {
		t.Errorf("type = %v", got["type"])
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("line not newline-terminated")
	}

	buf.Reset()
	if err := printFrame(&buf, nil); err != nil || buf.Len() != 0 {
		t.Errorf("printFrame(nil) wrote %q, err %v", buf.String(), err)
	}
}

func TestApp_RejectsBadArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"bad channel", []string{"--channel", "depot:7"}},
		{"bad url", []string{"--url", "not a url"}},
		{"bad level", []string{"--log-level", "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			app := newApp(&bytes.Buffer{})
			app.Action = func(*cli.Context) error {
				t.Error("action ran with invalid arguments")
				return nil
			}
			if err := app.Run(append([]string{"transitwatch-listen"}, tt.args...)); err == nil {
				t.Error("Run() accepted invalid arguments")
			}
		})
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestListen_PrintsSubscribedEvents(t *testing.T) {
	t.Parallel()

	subscribed := make(chan string, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub struct {
			Type    string `json:"type"`
			Channel string `json:"channel"`
		}
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub.Channel
		_ = conn.WriteJSON(map[string]interface{}{
			"type": "vehicle_location_update",
			"data": map[string]string{"vehicleId": "V1"},
		})
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	args := cliArgs{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), Channels: []string{"route:45A"}}
	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(ctx, args, reconnect.Options{URL: args.URL, MaxAttempts: 1, Heartbeat: -1}, out)
	}()

	select {
	case ch := <-subscribed:
		if ch != "route:45A" {
			t.Errorf("subscribed to %q, want route:45A", ch)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("client never subscribed")
	}

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), `"vehicle_location_update"`) {
		if time.Now().After(deadline) {
			t.Fatalf("event not printed, output %q", out.String())
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("listen() error = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listen() did not return after cancel")
	}
}
