package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects in-process counters for the relay.
type Metrics struct {
	requestTotal     atomic.Int64
	requestFailed    atomic.Int64
	completionTotal  atomic.Int64
	completionFailed atomic.Int64
	persistFailed    atomic.Int64
	rateLimited      atomic.Int64

	mu           sync.Mutex
	errorCodes   map[string]int64
	durations    []time.Duration // ring buffer of recent request durations
	next         int
	maxDurations int
}

// NewMetrics creates a new metrics collector keeping the last maxDurations request durations.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		errorCodes:   make(map[string]int64),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

var globalMetrics = NewMetrics(1000)

// GlobalMetrics returns the process wide metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordRequest records an accepted relay request and its duration.
func (m *Metrics) RecordRequest(duration time.Duration) {
	m.requestTotal.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.durations) < m.maxDurations {
		m.durations = append(m.durations, duration)
		return
	}
	m.durations[m.next] = duration
	m.next = (m.next + 1) % m.maxDurations
}

// RecordFailure records a failed relay request by error code.
func (m *Metrics) RecordFailure(code string) {
	m.requestFailed.Add(1)

	m.mu.Lock()
	m.errorCodes[code]++
	m.mu.Unlock()
}

// RecordCompletion records the outcome of one completion call.
func (m *Metrics) RecordCompletion(failed bool) {
	m.completionTotal.Add(1)
	if failed {
		m.completionFailed.Add(1)
	}
}

// RecordPersistFailure records a transcript write that failed after a reply was obtained.
func (m *Metrics) RecordPersistFailure() {
	m.persistFailed.Add(1)
}

// RecordRateLimited records a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Add(1)
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)
	m.completionTotal.Store(0)
	m.completionFailed.Store(0)
	m.persistFailed.Store(0)
	m.rateLimited.Store(0)

	m.mu.Lock()
	m.errorCodes = make(map[string]int64)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.next = 0
	m.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	codes := make(map[string]int64, len(m.errorCodes))
	for code, n := range m.errorCodes {
		codes[code] = n
	}
	durations := append([]time.Duration(nil), m.durations...)
	m.mu.Unlock()

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	return &MetricsSnapshot{
		RequestTotal:     m.requestTotal.Load(),
		RequestFailed:    m.requestFailed.Load(),
		CompletionTotal:  m.completionTotal.Load(),
		CompletionFailed: m.completionFailed.Load(),
		PersistFailed:    m.persistFailed.Load(),
		RateLimited:      m.rateLimited.Load(),
		ErrorCodes:       codes,
		P50DurationMs:    percentile(durations, 50).Milliseconds(),
		P95DurationMs:    percentile(durations, 95).Milliseconds(),
		DurationCount:    len(durations),
	}
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted)*p + 99) / 100
	if idx > 0 {
		idx--
	}
	return sorted[idx]
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal     int64            `json:"request_total"`
	RequestFailed    int64            `json:"request_failed"`
	CompletionTotal  int64            `json:"completion_total"`
	CompletionFailed int64            `json:"completion_failed"`
	PersistFailed    int64            `json:"persist_failed"`
	RateLimited      int64            `json:"rate_limited"`
	ErrorCodes       map[string]int64 `json:"error_codes"`
	P50DurationMs    int64            `json:"p50_duration_ms"`
	P95DurationMs    int64            `json:"p95_duration_ms"`
	DurationCount    int              `json:"duration_count"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
