package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsCountsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("GET", "/api/v1/shifts", "200", 10*time.Millisecond)
	m.Observe("GET", "/api/v1/shifts", "200", 20*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", map[string]string{"route": "/api/v1/shifts", "status": "200"}); err != nil {
		t.Fatalf("fetch requests: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 requests, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/api/v1/shifts"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected positive duration sum, got %f", got)
	}
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.Observe("GET", "/", "200", time.Millisecond)
	NewHTTPMetrics(nil).Observe("GET", "/", "200", time.Millisecond)
}
