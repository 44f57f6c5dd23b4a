package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("POST", 201, 10*time.Millisecond)
	m.ObserveRequest("POST", 201, 10*time.Millisecond)
	m.ObserveRequest("GET", 0, time.Millisecond)

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", "201")); got != 2 {
		t.Fatalf("POST 201 = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "error")); got != 1 {
		t.Fatalf("GET error = %v, want 1", got)
	}
}

func TestSessionCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveProbe("focus", false)
	m.IncExpirations()

	if got := testutil.ToFloat64(m.probesTotal.WithLabelValues("focus", "failed")); got != 1 {
		t.Fatalf("focus failed = %v", got)
	}
	if got := testutil.ToFloat64(m.expirationsTotal); got != 1 {
		t.Fatalf("expirations = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", 200, time.Second)
	m.ObserveProbe("interval", true)
	m.IncExpirations()
	m.ObserveFeedRefresh(true)
	if m.Registry() == nil {
		t.Fatal("Registry() on nil must not return nil")
	}
}
