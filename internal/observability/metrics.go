package observability

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Metrics keeps process-local counters exposed by /health/metrics.
// Counter keys join their labels with "|".
type Metrics struct {
	mu       sync.Mutex
	requests map[string]int64
	errors   map[string]int64
	events   map[string]int64
	served   int64
	latency  time.Duration
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests         map[string]int64 `json:"requests"`
	Errors           map[string]int64 `json:"errors"`
	Events           map[string]int64 `json:"events"`
	AverageLatencyMS float64          `json:"average_latency_ms"`
}

// NewMetrics returns empty counters.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[string]int64),
		errors:   make(map[string]int64),
		events:   make(map[string]int64),
	}
}

func counterKey(labels ...string) string {
	return strings.Join(labels, "|")
}

// RecordRequest counts a served request by route, method and status.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[counterKey(route, method, strconv.Itoa(status))]++
	m.served++
	m.latency += duration
}

// RecordError counts a failed request by route, method and error code.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[counterKey(route, method, code)]++
}

// RecordEvent counts change-feed deliveries by outcome ("published", "dropped", "failed").
func (m *Metrics) RecordEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[counterKey(eventType, outcome)]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Requests: copyCounts(m.requests),
		Errors:   copyCounts(m.errors),
		Events:   copyCounts(m.events),
	}
	if m.served > 0 {
		snap.AverageLatencyMS = float64(m.latency.Milliseconds()) / float64(m.served)
	}
	return snap
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
