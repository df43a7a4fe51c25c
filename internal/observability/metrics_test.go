package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/user/ping", "POST", 200, 2*time.Millisecond)
	m.RecordRequest("/user/ping", "POST", 200, 4*time.Millisecond)
	m.RecordRequest("/user/act", "POST", 401, time.Millisecond)
	m.RecordError("/user/act", "POST", "EXPIRED_TOKEN")

	snap := m.Snapshot()
	if snap.TotalRequests != 3 {
		t.Fatalf("TotalRequests = %d", snap.TotalRequests)
	}
	if len(snap.Requests) != 2 || snap.Requests[1].Key != "POST /user/ping 200" || snap.Requests[1].Count != 2 {
		t.Fatalf("Requests = %+v", snap.Requests)
	}
	if len(snap.Errors) != 1 || snap.Errors[0].Key != "POST /user/act EXPIRED_TOKEN" {
		t.Fatalf("Errors = %+v", snap.Errors)
	}
	if snap.AverageDurationMs <= 0 {
		t.Fatalf("AverageDurationMs = %v", snap.AverageDurationMs)
	}

	var nilMetrics *Metrics
	nilMetrics.RecordRequest("/", "GET", 200, 0)
	if got := nilMetrics.Snapshot(); got.TotalRequests != 0 {
		t.Fatalf("nil snapshot = %+v", got)
	}
}
