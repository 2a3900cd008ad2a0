// Package telemetry keeps in-process counters for served MCP requests.
// Nothing is persisted or reported externally; a summary is logged when the
// server stops.
package telemetry

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// RequestEvent is one tools/call or resources/read dispatch.
type RequestEvent struct {
	Method      string
	Target      string // tool name or resource URI
	ResultCount int
	Latency     time.Duration
	ErrorCode   string // empty on success
	Timestamp   time.Time
}

// Failed reports whether the request produced an error result.
func (e RequestEvent) Failed() bool {
	return e.ErrorCode != ""
}

// Failure is a recent failed request kept for diagnostics.
type Failure struct {
	Method    string    `json:"method"`
	Target    string    `json:"target"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// TargetCount is a tool name or resource URI and how often it was requested.
type TargetCount struct {
	Target string `json:"target"`
	Count  int64  `json:"count"`
}

// Snapshot is an immutable copy of the collected metrics.
type Snapshot struct {
	MethodCounts        map[string]int64        `json:"method_counts"`
	TopTargets          []TargetCount           `json:"top_targets"`
	RecentFailures      []Failure               `json:"recent_failures"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalRequests       int64                   `json:"total_requests"`
	FailedRequests      int64                   `json:"failed_requests"`
	EmptyResults        int64                   `json:"empty_results"`
	RecordsServed       int64                   `json:"records_served"`
	Since               time.Time               `json:"since"`
}

// FailureRate returns the percentage of failed requests.
func (s *Snapshot) FailureRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.FailedRequests) / float64(s.TotalRequests) * 100
}

// LogAttrs returns the summary as slog attributes.
func (s *Snapshot) LogAttrs() []any {
	return []any{
		slog.Int64("requests", s.TotalRequests),
		slog.Int64("failed", s.FailedRequests),
		slog.Int64("empty_results", s.EmptyResults),
		slog.Int64("records_served", s.RecordsServed),
		slog.String("uptime", time.Since(s.Since).Round(time.Second).String()),
	}
}

// Config configures the metrics collector.
type Config struct {
	TargetsCapacity  int // distinct targets tracked (default: 64)
	FailuresCapacity int // recent failures kept (default: 50)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TargetsCapacity:  64,
		FailuresCapacity: 50,
	}
}

// RequestMetrics collects request telemetry. Safe for concurrent use.
//
// Targets are counted in an LRU so that arbitrary names sent by clients for
// unknown tools cannot grow memory without bound.
type RequestMetrics struct {
	mu sync.Mutex

	methods   map[string]int64
	targets   *lru.Cache[string, int64]
	failures  *CircularBuffer[Failure]
	latencies map[LatencyBucket]int64
	total     int64
	failed    int64
	empty     int64
	records   int64
	startTime time.Time
}

// New creates a collector with default configuration.
func New() *RequestMetrics {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a collector with custom configuration.
func NewWithConfig(cfg Config) *RequestMetrics {
	if cfg.TargetsCapacity <= 0 {
		cfg.TargetsCapacity = 64
	}
	if cfg.FailuresCapacity <= 0 {
		cfg.FailuresCapacity = 50
	}

	// lru.New only fails for a non-positive size.
	targets, _ := lru.New[string, int64](cfg.TargetsCapacity)

	return &RequestMetrics{
		methods:   make(map[string]int64),
		targets:   targets,
		failures:  NewCircularBuffer[Failure](cfg.FailuresCapacity),
		latencies: make(map[LatencyBucket]int64),
		startTime: time.Now(),
	}
}

// Record captures one request.
func (m *RequestMetrics) Record(event RequestEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.methods[event.Method]++
	m.latencies[LatencyToBucket(event.Latency)]++

	if event.Target != "" {
		count, _ := m.targets.Get(event.Target)
		m.targets.Add(event.Target, count+1)
	}

	if event.Failed() {
		m.failed++
		m.failures.Add(Failure{
			Method:    event.Method,
			Target:    event.Target,
			Code:      event.ErrorCode,
			Timestamp: event.Timestamp,
		})
		return
	}

	m.records += int64(event.ResultCount)
	if event.ResultCount == 0 {
		m.empty++
	}
}

// Snapshot returns current metrics for reporting.
func (m *RequestMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	methods := make(map[string]int64, len(m.methods))
	for k, v := range m.methods {
		methods[k] = v
	}

	targets := make([]TargetCount, 0, m.targets.Len())
	for _, key := range m.targets.Keys() {
		if count, ok := m.targets.Peek(key); ok {
			targets = append(targets, TargetCount{Target: key, Count: count})
		}
	}
	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].Count != targets[j].Count {
			return targets[i].Count > targets[j].Count
		}
		return targets[i].Target < targets[j].Target
	})

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	return &Snapshot{
		MethodCounts:        methods,
		TopTargets:          targets,
		RecentFailures:      m.failures.Items(),
		LatencyDistribution: latencies,
		TotalRequests:       m.total,
		FailedRequests:      m.failed,
		EmptyResults:        m.empty,
		RecordsServed:       m.records,
		Since:               m.startTime,
	}
}
