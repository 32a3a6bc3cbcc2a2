// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("insert", "vehicle_locations"))

	RecordDBQuery("insert", "vehicle_locations", 3*time.Millisecond, nil)
	RecordDBQuery("insert", "vehicle_locations", 4*time.Millisecond, errors.New("disk full"))

	after := testutil.ToFloat64(DBQueryErrors.WithLabelValues("insert", "vehicle_locations"))
	if after-before != 1 {
		t.Errorf("error counter delta = %v, want 1", after-before)
	}
}

func TestRecordBroadcast(t *testing.T) {
	b0 := testutil.ToFloat64(WSBroadcasts.WithLabelValues("service_alert"))
	d0 := testutil.ToFloat64(WSDeliveries.WithLabelValues("service_alert"))

	RecordBroadcast("service_alert", 3)
	RecordBroadcast("service_alert", 0)

	if got := testutil.ToFloat64(WSBroadcasts.WithLabelValues("service_alert")) - b0; got != 2 {
		t.Errorf("broadcasts delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(WSDeliveries.WithLabelValues("service_alert")) - d0; got != 3 {
		t.Errorf("deliveries delta = %v, want 3", got)
	}
}

func TestRecordIngestHistogram(t *testing.T) {
	RecordIngest("eta", "ok", 2*time.Millisecond)

	var m dto.Metric
	obs, ok := IngestDuration.WithLabelValues("eta").(interface{ Write(*dto.Metric) error })
	if !ok {
		t.Fatal("histogram does not expose Write")
	}
	if err := obs.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if m.GetHistogram().GetSampleCount() == 0 {
		t.Error("expected at least one ingest observation")
	}
}

func TestTrackActiveRequest(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != start+1 {
		t.Errorf("active = %v, want %v", got, start+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != start {
		t.Errorf("active = %v, want %v", got, start)
	}
}

func TestSetBreakerState(t *testing.T) {
	SetBreakerState("store", 2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("store")); got != 2 {
		t.Errorf("state = %v, want 2", got)
	}
	RecordEviction("idle")
	if got := testutil.ToFloat64(WSEvictions.WithLabelValues("idle")); got < 1 {
		t.Errorf("evictions = %v", got)
	}
}
