package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircularBuffer_MaintainsCapacity(t *testing.T) {
	buf := NewCircularBuffer[string](3)

	for _, s := range []string{"a", "b", "c", "d", "e"} {
		buf.Add(s)
	}

	assert.Equal(t, 3, buf.Size())
	assert.Equal(t, []string{"c", "d", "e"}, buf.Items())
}

func TestCircularBuffer_EmptyItems(t *testing.T) {
	buf := NewCircularBuffer[string](10)

	items := buf.Items()
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestCircularBuffer_ZeroCapacityUsesDefault(t *testing.T) {
	buf := NewCircularBuffer[int](0)
	buf.Add(1)
	assert.Equal(t, []int{1}, buf.Items())
}

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{250 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		t.Run(tt.latency.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, LatencyToBucket(tt.latency))
		})
	}
}

func TestRequestMetrics_RecordSuccessAndFailure(t *testing.T) {
	// Given: a collector
	m := New()

	// When: recording two successes and one failure
	m.Record(RequestEvent{Method: "tools/call", Target: "get_completed_payments", ResultCount: 2, Latency: 5 * time.Millisecond})
	m.Record(RequestEvent{Method: "resources/read", Target: "payments://done", ResultCount: 0, Latency: 20 * time.Millisecond})
	m.Record(RequestEvent{Method: "tools/call", Target: "get_all_payments", ErrorCode: "ERR_301_STORE_UNAVAILABLE"})

	// Then: the snapshot reflects every request
	s := m.Snapshot()
	assert.Equal(t, int64(3), s.TotalRequests)
	assert.Equal(t, int64(1), s.FailedRequests)
	assert.Equal(t, int64(1), s.EmptyResults)
	assert.Equal(t, int64(2), s.RecordsServed)
	assert.Equal(t, int64(2), s.MethodCounts["tools/call"])
	assert.Equal(t, int64(1), s.MethodCounts["resources/read"])
	assert.Equal(t, int64(2), s.LatencyDistribution[BucketP10])
	assert.Equal(t, int64(1), s.LatencyDistribution[BucketP50])

	require.Len(t, s.RecentFailures, 1)
	assert.Equal(t, "get_all_payments", s.RecentFailures[0].Target)
	assert.Equal(t, "ERR_301_STORE_UNAVAILABLE", s.RecentFailures[0].Code)
	assert.False(t, s.RecentFailures[0].Timestamp.IsZero())
	assert.InDelta(t, 33.3, s.FailureRate(), 0.1)
}

func TestRequestMetrics_TopTargetsSorted(t *testing.T) {
	m := New()

	for i := 0; i < 3; i++ {
		m.Record(RequestEvent{Method: "tools/call", Target: "get_all_payments", ResultCount: 1})
	}
	m.Record(RequestEvent{Method: "tools/call", Target: "get_completed_payments", ResultCount: 1})

	s := m.Snapshot()
	require.Len(t, s.TopTargets, 2)
	assert.Equal(t, TargetCount{Target: "get_all_payments", Count: 3}, s.TopTargets[0])
	assert.Equal(t, TargetCount{Target: "get_completed_payments", Count: 1}, s.TopTargets[1])
}

func TestRequestMetrics_TargetsBounded(t *testing.T) {
	// Given: a collector tracking at most two targets
	m := NewWithConfig(Config{TargetsCapacity: 2, FailuresCapacity: 2})

	// When: a client sends many distinct unknown tool names
	for i := 0; i < 10; i++ {
		m.Record(RequestEvent{Method: "tools/call", Target: fmt.Sprintf("bogus_%d", i), ErrorCode: "ERR_401_UNKNOWN_TOOL"})
	}

	// Then: memory stays bounded
	s := m.Snapshot()
	assert.Len(t, s.TopTargets, 2)
	assert.Len(t, s.RecentFailures, 2)
	assert.Equal(t, int64(10), s.FailedRequests)
}

func TestRequestMetrics_EmptySnapshot(t *testing.T) {
	s := New().Snapshot()

	assert.Zero(t, s.TotalRequests)
	assert.Zero(t, s.FailureRate())
	assert.NotNil(t, s.TopTargets)
	assert.NotNil(t, s.RecentFailures)
	assert.Len(t, s.LogAttrs(), 5)
}

func TestSnapshot_LogAttrsUptimeIsReadable(t *testing.T) {
	// Given: a collector started 90 seconds ago
	m := New()
	s := m.Snapshot()
	s.Since = time.Now().Add(-90 * time.Second)

	// When: logging the summary through a JSON handler
	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("MCP server stopped gracefully", s.LogAttrs()...)

	// Then: uptime is a duration string, not nanoseconds
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "1m30s", record["uptime"])
	assert.EqualValues(t, 0, record["requests"])
}

func TestRequestMetrics_ConcurrentRecord(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.Record(RequestEvent{Method: "tools/call", Target: "get_all_payments", ResultCount: 1})
			}
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	assert.Equal(t, int64(1000), s.TotalRequests)
	assert.Equal(t, int64(1000), s.RecordsServed)
}
