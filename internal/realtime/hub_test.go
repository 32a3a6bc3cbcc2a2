// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package realtime

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/transitwatch/internal/auth"
	"github.com/tomtom215/transitwatch/internal/authz"
	"github.com/tomtom215/transitwatch/internal/events"
	"github.com/tomtom215/transitwatch/internal/ingest"
)

func checkInvariant(t *testing.T, h *Hub) {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		for topic := range s.subs {
			if _, ok := h.registry.MembersOf(topic)[s]; !ok {
				t.Fatalf("%s has %s in its set but is not a registry member", s.id, topic)
			}
		}
	}
	for _, topic := range h.registry.Topics() {
		members := h.registry.MembersOf(topic)
		if len(members) == 0 {
			t.Fatalf("empty topic %s not pruned", topic)
		}
		for s := range members {
			if _, live := h.sessions[s]; !live {
				t.Fatalf("disconnected %s still a member of %s", s.id, topic)
			}
			if _, ok := s.subs[topic]; !ok {
				t.Fatalf("%s is a member of %s but lacks it in its set", s.id, topic)
			}
		}
	}
}

func TestHub_RegistryInvariant(t *testing.T) {
	t.Parallel()
	h := NewHub(testConfig(), Deps{})
	rng := rand.New(rand.NewSource(42))
	topics := []string{"tracking", "alerts", "route:45A", "route:12B", "stop:stop_001", "vehicle:V1"}

	var live []*Session
	for i := 0; i < 500; i++ {
		switch op := rng.Intn(10); {
		case op == 0 || len(live) == 0:
			s := h.Accept(newFakeConn())
			live = append(live, s)
		case op == 1:
			idx := rng.Intn(len(live))
			h.Disconnect(live[idx], "test")
			live = append(live[:idx], live[idx+1:]...)
		case op < 6:
			send(h, live[rng.Intn(len(live))], `{"type":"subscribe","channel":"`+topics[rng.Intn(len(topics))]+`"}`)
		default:
			send(h, live[rng.Intn(len(live))], `{"type":"unsubscribe","channel":"`+topics[rng.Intn(len(topics))]+`"}`)
		}
		for _, s := range live {
			drain(t, s)
		}
		checkInvariant(t, h)
	}
	if got := h.SessionCount(); got != len(live) {
		t.Errorf("SessionCount() = %d, want %d", got, len(live))
	}
}

func TestHub_SubscribeIdempotent(t *testing.T) {
	t.Parallel()
	h := NewHub(testConfig(), Deps{})
	s := accept(t, h)

	send(h, s, `{"type":"subscribe","channel":"route:45A"}`)
	send(h, s, `{"type":"subscribe","channel":"route:45A"}`)

	frames := drain(t, s)
	if want := []string{"subscribed", "subscribed"}; !reflect.DeepEqual(types(frames), want) {
		t.Fatalf("replies = %v, want %v", types(frames), want)
	}
	if frames[0].Channel != "route:45A" {
		t.Errorf("channel = %q", frames[0].Channel)
	}
	if got := h.Subscribers("route:45A"); got != 1 {
		t.Errorf("Subscribers() = %d, want 1", got)
	}
	send(h, s, `{"type":"subscribe","channel":"alerts"}`)
	drain(t, s)
	if got, want := h.Topics(), []events.Topic{"alerts", "route:45A"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Topics() = %v, want %v", got, want)
	}
	send(h, s, `{"type":"unsubscribe","channel":"alerts"}`)
	drain(t, s)

	send(h, s, `{"type":"unsubscribe","channel":"route:45A"}`)
	send(h, s, `{"type":"unsubscribe","channel":"route:45A"}`)
	if want := []string{"unsubscribed", "unsubscribed"}; !reflect.DeepEqual(types(drain(t, s)), want) {
		t.Errorf("unsubscribe replies differ from %v", want)
	}
	if h.TopicCount() != 0 {
		t.Errorf("TopicCount() = %d, want 0 after last unsubscribe", h.TopicCount())
	}
}

func TestHub_ControlFrames(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		frame    string
		wantType string
		wantMsg  string
	}{
		{"ping", `{"type":"ping"}`, "pong", ""},
		{"garbage", `not json`, "error", "Invalid message format"},
		{"missing type", `{"channel":"tracking"}`, "error", "Invalid message format"},
		{"unknown type", `{"type":"teleport"}`, "error", "Unknown message type"},
		{"bad channel", `{"type":"subscribe","channel":"route:"}`, "error", `Invalid channel: "route:"`},
		{"unknown prefix", `{"type":"subscribe","channel":"line:1"}`, "error", `Invalid channel: "line:1"`},
		{"auth without token", `{"type":"auth"}`, "auth_result", "Invalid token"},
		{"auth with empty token", `{"type":"auth","token":""}`, "auth_result", "Invalid token"},
		{"location without data", `{"type":"vehicle_location_update"}`, "error", "Invalid message format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHub(testConfig(), Deps{})
			s := accept(t, h)
			send(h, s, tt.frame)
			frames := drain(t, s)
			if len(frames) != 1 || frames[0].Type != tt.wantType || frames[0].Message != tt.wantMsg {
				t.Fatalf("reply = %+v, want %s %q", frames, tt.wantType, tt.wantMsg)
			}
			if h.SessionCount() != 1 {
				t.Error("session was closed by a soft failure")
			}
		})
	}
}

func TestHub_ConnectedFrame(t *testing.T) {
	t.Parallel()
	h := NewHub(testConfig(), Deps{})
	s := h.Accept(newFakeConn())
	frames := drain(t, s)
	if len(frames) != 1 {
		t.Fatalf("frames = %+v", frames)
	}
	if frames[0].ClientID != s.ID().String() || frames[0].Message != "WebSocket connection established" {
		t.Errorf("connected = %+v, want clientId %s", frames[0], s.ID())
	}
}

func TestHub_FanOutToSubscribersOnly(t *testing.T) {
	t.Parallel()
	h := NewHub(testConfig(), Deps{})
	a, b, c := accept(t, h), accept(t, h), accept(t, h)
	send(h, a, `{"type":"subscribe","channel":"route:45A"}`)
	send(h, b, `{"type":"subscribe","channel":"route:45A"}`)
	send(h, c, `{"type":"subscribe","channel":"route:12B"}`)
	for _, s := range []*Session{a, b, c} {
		drain(t, s)
	}

	ev := events.NewLocationUpdate(events.LocationUpdate{VehicleID: "V1", Latitude: 40.7, Longitude: -74})
	delivered := h.Broadcast(ev, events.LocationTopics("V1", "45A"))
	if delivered != 2 {
		t.Errorf("delivered = %d, want 2", delivered)
	}
	for name, s := range map[string]*Session{"A": a, "B": b} {
		if got := types(drain(t, s)); !reflect.DeepEqual(got, []string{"vehicle_location_update"}) {
			t.Errorf("%s received %v", name, got)
		}
	}
	if got := drain(t, c); len(got) != 0 {
		t.Errorf("C received %v, want nothing", types(got))
	}
}

func TestHub_BroadcastDeduplicatesOverlappingTopics(t *testing.T) {
	t.Parallel()
	h := NewHub(testConfig(), Deps{})
	s := accept(t, h)
	send(h, s, `{"type":"subscribe","channel":"tracking"}`)
	send(h, s, `{"type":"subscribe","channel":"route:45A"}`)
	send(h, s, `{"type":"subscribe","channel":"vehicle:V1"}`)
	drain(t, s)

	if got := h.Broadcast(events.NewLocationUpdate(events.LocationUpdate{VehicleID: "V1"}), events.LocationTopics("V1", "45A")); got != 1 {
		t.Errorf("delivered = %d, want 1", got)
	}
	if got := drain(t, s); len(got) != 1 {
		t.Errorf("frames = %d, want exactly one", len(got))
	}
}

func TestHub_EvictsFullQueue(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.SendBuffer = 2
	h := NewHub(cfg, Deps{})

	slow := h.Accept(newFakeConn()) // connected frame occupies one slot
	fast := accept(t, h)
	send(h, fast, `{"type":"subscribe","channel":"alerts"}`)
	drain(t, fast)
	h.mu.Lock()
	h.registry.Subscribe(slow, events.TopicAlerts)
	slow.subs[events.TopicAlerts] = struct{}{}
	h.mu.Unlock()

	alert := events.Event{Type: events.KindServiceAlert}
	if got := h.Broadcast(alert, []events.Topic{events.TopicAlerts}); got != 2 {
		t.Fatalf("first broadcast delivered %d, want 2", got)
	}
	drain(t, fast)
	if got := h.Broadcast(alert, []events.Topic{events.TopicAlerts}); got != 1 {
		t.Errorf("second broadcast delivered %d, want 1", got)
	}
	if h.SessionCount() != 1 || h.Subscribers(events.TopicAlerts) != 1 {
		t.Errorf("slow session not evicted: sessions=%d subscribers=%d", h.SessionCount(), h.Subscribers(events.TopicAlerts))
	}
	if !slow.closed() {
		t.Error("evicted session not closed")
	}
	var te *TransportError
	if err := slow.enqueue([]byte("{}")); !errors.As(err, &te) || !errors.Is(err, errSessionClosed) {
		t.Errorf("enqueue after eviction = %v, want TransportError(session closed)", err)
	}
	checkInvariant(t, h)
}

func TestHub_DisconnectIdempotent(t *testing.T) {
	t.Parallel()
	h := NewHub(testConfig(), Deps{})
	s := accept(t, h)
	send(h, s, `{"type":"subscribe","channel":"stop:stop_001"}`)

	h.Disconnect(s, "test")
	h.Disconnect(s, "test")
	if h.SessionCount() != 0 || h.TopicCount() != 0 {
		t.Errorf("sessions=%d topics=%d, want 0/0", h.SessionCount(), h.TopicCount())
	}
	send(h, s, `{"type":"subscribe","channel":"stop:stop_001"}`)
	if h.TopicCount() != 0 {
		t.Error("disconnected session re-entered the registry")
	}
}

func TestHub_MalformedPolicy(t *testing.T) {
	t.Parallel()
	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		h := NewHub(testConfig(), Deps{})
		s := accept(t, h)
		for i := 0; i < 10; i++ {
			send(h, s, `{{{`)
		}
		if h.SessionCount() != 1 || len(drain(t, s)) != 10 {
			t.Error("disabled policy must only reply with errors")
		}
	})
	t.Run("limit 2", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.MalformedLimit = 2
		h := NewHub(cfg, Deps{})
		fixed := time.Now()
		h.now = func() time.Time { return fixed }
		s := accept(t, h)

		send(h, s, `{{{`)
		send(h, s, `{"type":"bogus"}`)
		if h.SessionCount() != 1 {
			t.Fatal("evicted before the bucket emptied")
		}
		send(h, s, `{{{`)
		frames := drain(t, s)
		last := frames[len(frames)-1]
		if last.Type != "error" || last.Message != "Too many malformed messages" {
			t.Errorf("final frame = %+v", last)
		}
		if h.SessionCount() != 0 {
			t.Error("session not evicted after exceeding the limit")
		}
	})
}

type fakeVerifier map[string]*auth.Principal

func (f fakeVerifier) VerifyToken(_ context.Context, token string) (*auth.Principal, error) {
	if token == "expired" {
		return nil, &auth.AuthError{Reason: auth.ReasonExpired}
	}
	if p, ok := f[token]; ok {
		return p, nil
	}
	return nil, &auth.AuthError{Reason: auth.ReasonInvalidToken}
}

type fakeIngestor struct {
	calls int
	err   error
}

func (f *fakeIngestor) IngestLocation(_ context.Context, in ingest.LocationInput) (events.Event, []events.Topic, error) {
	f.calls++
	if f.err != nil {
		return events.Event{}, nil, f.err
	}
	route := "45A"
	ev := events.NewLocationUpdate(events.LocationUpdate{VehicleID: in.VehicleID, RouteID: &route, RouteNumber: &route,
		Latitude: *in.Latitude, Longitude: *in.Longitude})
	return ev, events.LocationTopics(in.VehicleID, route), nil
}

type recordingForwarder struct {
	kinds  []string
	topics [][]events.Topic
}

func (r *recordingForwarder) Forward(_ context.Context, kind string, _ []byte, topics []events.Topic) error {
	r.kinds = append(r.kinds, kind)
	r.topics = append(r.topics, topics)
	return nil
}

func TestHub_AuthAndLocationPublish(t *testing.T) {
	t.Parallel()
	enforcer, err := authz.NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	ing := &fakeIngestor{}
	h := NewHub(testConfig(), Deps{
		Verifier: fakeVerifier{
			"driver-token": {UserID: "u1", Role: "driver"},
			"viewer-token": {UserID: "u2", Role: "viewer"},
		},
		Ingestor: ing,
		Policy:   enforcer,
	})
	fwd := &recordingForwarder{}
	h.SetForwarder(fwd)

	watcher := accept(t, h)
	send(h, watcher, `{"type":"subscribe","channel":"route:45A"}`)
	drain(t, watcher)

	producer := accept(t, h)
	location := `{"type":"vehicle_location_update","data":{"vehicleId":"V1","latitude":40.7,"longitude":-74.0}}`

	send(h, producer, location)
	if f := drain(t, producer); len(f) != 1 || f[0].Message != "Authentication required" {
		t.Fatalf("unauthenticated publish reply = %+v", f)
	}

	send(h, producer, `{"type":"auth","token":"expired"}`)
	f := drain(t, producer)
	if len(f) != 1 || f[0].Type != "auth_result" || f[0].Success == nil || *f[0].Success || f[0].Message != "Token expired" {
		t.Fatalf("expired token reply = %+v", f)
	}

	send(h, producer, `{"type":"auth","token":"viewer-token"}`)
	drain(t, producer)
	send(h, producer, location)
	if f := drain(t, producer); len(f) != 1 || f[0].Message != "Not authorized to publish vehicle locations" {
		t.Fatalf("viewer publish reply = %+v", f)
	}

	send(h, producer, `{"type":"auth","token":"driver-token"}`)
	f = drain(t, producer)
	if len(f) != 1 || !*f[0].Success || f[0].UserID != "u1" || f[0].Role != "driver" {
		t.Fatalf("driver auth reply = %+v", f)
	}
	send(h, producer, location)
	if ing.calls != 1 {
		t.Fatalf("ingestor calls = %d, want 1", ing.calls)
	}
	if got := types(drain(t, watcher)); !reflect.DeepEqual(got, []string{"vehicle_location_update"}) {
		t.Errorf("watcher received %v", got)
	}
	if len(fwd.kinds) != 1 || fwd.kinds[0] != events.KindLocationUpdate {
		t.Errorf("forwarded = %v", fwd.kinds)
	}

	ing.err = &ingest.ValidationError{Field: "latitude", Message: "latitude must be a valid latitude (-90 to 90)"}
	send(h, producer, location)
	if f := drain(t, producer); len(f) != 1 || f[0].Message != ing.err.Error() {
		t.Errorf("validation reply = %+v", f)
	}
	if got := drain(t, watcher); len(got) != 0 {
		t.Errorf("rejected update reached watcher: %v", types(got))
	}
}

func TestHub_RunWithContextClosesSessions(t *testing.T) {
	t.Parallel()
	h := NewHub(testConfig(), Deps{})
	a, b := accept(t, h), accept(t, h)
	send(h, a, `{"type":"subscribe","channel":"alerts"}`)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.RunWithContext(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunWithContext did not return")
	}
	if h.SessionCount() != 0 || h.TopicCount() != 0 || !a.closed() || !b.closed() {
		t.Error("sessions survived shutdown")
	}
}

func TestSession_TouchNeverMovesBackwards(t *testing.T) {
	t.Parallel()
	s := newSession(newFakeConn(), testConfig(), time.Unix(100, 0))
	s.probed.Store(true)

	s.touch(time.Unix(200, 0))
	s.touch(time.Unix(150, 0))
	if got := s.LastActivity(); !got.Equal(time.Unix(200, 0)) {
		t.Errorf("LastActivity() = %v, want 200s", got.Unix())
	}
	if s.probed.Load() {
		t.Error("touch did not clear the probe flag")
	}
}

func TestMonitor_ProbeThenEvict(t *testing.T) {
	t.Parallel()
	h := NewHub(testConfig(), Deps{})
	t0 := time.Unix(1_000, 0)
	h.now = func() time.Time { return t0 }
	m := NewMonitor(h, 30*time.Second, 60*time.Second)

	idle := h.Accept(newFakeConn())
	chatty := h.Accept(newFakeConn())
	send(h, idle, `{"type":"subscribe","channel":"tracking"}`)

	if p, e := m.Sweep(t0.Add(30 * time.Second)); p != 0 || e != 0 {
		t.Fatalf("sweep at 30s probed=%d evicted=%d, want 0/0", p, e)
	}
	if p, e := m.Sweep(t0.Add(61 * time.Second)); p != 2 || e != 0 {
		t.Fatalf("sweep at 61s probed=%d evicted=%d, want 2/0", p, e)
	}
	if idle.conn.(*fakeConn).pingCount() != 1 {
		t.Error("idle session was not pinged")
	}

	chatty.touch(t0.Add(90 * time.Second))
	if p, e := m.Sweep(t0.Add(121 * time.Second)); p != 0 || e != 1 {
		t.Fatalf("sweep at 121s probed=%d evicted=%d, want 0/1", p, e)
	}
	if h.SessionCount() != 1 || h.TopicCount() != 0 {
		t.Errorf("sessions=%d topics=%d after eviction", h.SessionCount(), h.TopicCount())
	}
	if !idle.closed() || chatty.closed() {
		t.Error("wrong session evicted")
	}
}

func TestMonitor_ProbeFailureEvicts(t *testing.T) {
	t.Parallel()
	h := NewHub(testConfig(), Deps{})
	t0 := time.Unix(1_000, 0)
	h.now = func() time.Time { return t0 }
	conn := newFakeConn()
	conn.pingErr = errors.New("broken pipe")
	h.Accept(conn)

	if _, e := NewMonitor(h, time.Second, 2*time.Second).Sweep(t0.Add(3 * time.Second)); e != 1 {
		t.Errorf("evicted = %d, want 1", e)
	}
	if h.SessionCount() != 0 {
		t.Error("session survived a failed probe")
	}
}

func TestMonitor_PongDuringPingReturnsToActive(t *testing.T) {
	t.Parallel()
	h := NewHub(testConfig(), Deps{})
	t0 := time.Unix(1_000, 0)
	now := t0
	h.now = func() time.Time { return now }
	m := NewMonitor(h, 30*time.Second, 60*time.Second)

	conn := newFakeConn()
	conn.answerPings = true
	s := h.Accept(conn)
	conn.SetPongHandler(func(string) error {
		s.touch(h.now())
		return nil
	})

	for i := 1; i <= 3; i++ {
		now = t0.Add(time.Duration(i) * 61 * time.Second)
		if p, e := m.Sweep(now); p != 1 || e != 0 {
			t.Fatalf("sweep %d probed=%d evicted=%d, want 1/0", i, p, e)
		}
		if s.probed.Load() {
			t.Fatalf("sweep %d left the session probed after its pong", i)
		}
	}
	if got := conn.pingCount(); got != 3 {
		t.Errorf("pings = %d, want 3", got)
	}
	if h.SessionCount() != 1 || s.closed() {
		t.Error("session that answered every ping was evicted")
	}
}

func TestDecodeInbound(t *testing.T) {
	t.Parallel()
	tests := []struct {
		frame   string
		want    InboundKind
		channel events.Topic
		wantErr bool
	}{
		{`{"type":"auth","token":"abc"}`, InboundAuth, "", false},
		{`{"type":"auth"}`, InboundAuth, "", false},
		{`{"type":"auth","token":""}`, InboundAuth, "", false},
		{`{"type":"subscribe","channel":"city:nyc"}`, InboundSubscribe, "city:nyc", false},
		{`{"type":"unsubscribe","channel":"alerts"}`, InboundUnsubscribe, "alerts", false},
		{`{"type":"ping"}`, InboundPing, "", false},
		{`{"type":"vehicle_location_update","data":{"vehicleId":"V1","latitude":1,"longitude":2}}`, InboundLocation, "", false},
		{`{"type":"vehicle_location_update","data":"nope"}`, InboundUnknown, "", true},
		{`{"type":"subscribe"}`, InboundUnknown, "", true},
		{`[]`, InboundUnknown, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.frame, func(t *testing.T) {
			t.Parallel()
			in, err := DecodeInbound([]byte(tt.frame))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeInbound() error = %v, wantErr %v", err, tt.wantErr)
			}
			if in.Kind != tt.want || in.Channel != tt.channel {
				t.Errorf("DecodeInbound() = %+v", in)
			}
			if in.Kind == InboundLocation && (in.Location == nil || *in.Location.Latitude != 1) {
				t.Errorf("location = %+v", in.Location)
			}
		})
	}
}
