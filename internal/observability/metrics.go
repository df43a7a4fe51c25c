package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	started       time.Time
	requestCount  map[string]int64
	errorCount    map[string]int64
	totalDuration time.Duration
	totalRequests int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		started:      time.Now(),
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, strconv.Itoa(status))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.totalRequests++
	m.totalDuration += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := pathKey(path, method, code)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Counter is one labelled count in a snapshot.
type Counter struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	UptimeSeconds     int64     `json:"uptimeSeconds"`
	TotalRequests     int64     `json:"totalRequests"`
	AverageDurationMs float64   `json:"averageDurationMs"`
	Requests          []Counter `json:"requests"`
	Errors            []Counter `json:"errors"`
}

// Snapshot copies the counters, sorted by key.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{Requests: []Counter{}, Errors: []Counter{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
		TotalRequests: m.totalRequests,
		Requests:      sortedCounters(m.requestCount),
		Errors:        sortedCounters(m.errorCount),
	}
	if m.totalRequests > 0 {
		snap.AverageDurationMs = float64(m.totalDuration.Microseconds()) / 1000 / float64(m.totalRequests)
	}
	return snap
}

func sortedCounters(in map[string]int64) []Counter {
	out := make([]Counter, 0, len(in))
	for k, v := range in {
		out = append(out, Counter{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func pathKey(path, method, label string) string {
	return method + " " + path + " " + label
}
