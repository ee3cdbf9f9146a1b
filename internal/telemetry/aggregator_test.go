package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(b *Buffer, ts time.Time, method, path string, status int, latency int64, user string) {
	b.Record(Sample{
		Timestamp:  ts,
		Method:     method,
		Path:       path,
		StatusCode: status,
		LatencyMs:  latency,
		UserID:     user,
	})
}

func TestComputeSystemMetrics_Empty(t *testing.T) {
	agg := NewAggregator(NewBuffer(10), nil)
	now := baseTime

	m := agg.ComputeSystemMetrics(now)

	assert.Equal(t, 0, m.TotalRequests)
	assert.Equal(t, 0.0, m.ErrorRate)
	assert.Equal(t, 0.0, m.AverageLatencyMs)
	assert.Equal(t, 0.0, m.RequestsPerMinute)
	assert.NotNil(t, m.TopEndpoints)
	assert.Empty(t, m.TopEndpoints)
	assert.NotNil(t, m.ErrorsByStatus)
	assert.Equal(t, now, m.GeneratedAt)
}

func TestComputeSystemMetrics_ErrorRate(t *testing.T) {
	b := NewBuffer(1000)
	now := baseTime
	for i := 0; i < 100; i++ {
		status := 200
		if i < 7 {
			status = 500
		}
		record(b, now.Add(-time.Duration(i)*time.Minute), "GET", "/orders", status, 10, "")
	}

	m := NewAggregator(b, nil).ComputeSystemMetrics(now)

	assert.Equal(t, 100, m.TotalRequests)
	assert.Equal(t, 93, m.SuccessfulRequests)
	assert.Equal(t, 7, m.FailedRequests)
	assert.Equal(t, 7.00, m.ErrorRate)
}

func TestComputeSystemMetrics_Windows(t *testing.T) {
	b := NewBuffer(100)
	now := baseTime

	record(b, now.Add(-25*time.Hour), "GET", "/stale", 200, 1000, "u-old")
	record(b, now.Add(-2*time.Hour), "GET", "/a", 200, 10, "u1")
	record(b, now.Add(-30*time.Minute), "POST", "/a", 201, 20, "u2")
	record(b, now.Add(-10*time.Minute), "GET", "/a", 404, 30, "u1")
	record(b, now.Add(-1*time.Minute), "GET", "/b", 503, 41, "")

	m := NewAggregator(b, nil).ComputeSystemMetrics(now)

	assert.Equal(t, 4, m.TotalRequests, "samples older than 24h are ignored")
	assert.Equal(t, 25.25, m.AverageLatencyMs)
	assert.Equal(t, 50.0, m.ErrorRate)
	assert.Equal(t, 0.05, m.RequestsPerMinute, "3 requests in the trailing hour / 60")
	assert.Equal(t, 2, m.UniqueUsers)
}

func TestComputeSystemMetrics_TopEndpoints(t *testing.T) {
	b := NewBuffer(500)
	now := baseTime

	for i := 0; i < 12; i++ {
		for j := 0; j <= i; j++ {
			record(b, now.Add(-time.Minute), "GET", "/r"+string(rune('a'+i)), 200, 5, "")
		}
	}
	for i := 0; i < 50; i++ {
		record(b, now.Add(-time.Minute), "GET", "/admin/metrics/system", 200, 5, "")
	}

	m := NewAggregator(b, nil).ComputeSystemMetrics(now)

	require.Len(t, m.TopEndpoints, 10)
	assert.Equal(t, "/rl", m.TopEndpoints[0].Path)
	assert.Equal(t, 12, m.TopEndpoints[0].Count)
	assert.Equal(t, "/rc", m.TopEndpoints[9].Path)
	for _, e := range m.TopEndpoints {
		assert.NotContains(t, e.Path, "/admin/metrics")
	}
	assert.Equal(t, 128, m.TotalRequests, "excluded endpoints still count toward totals")
}

func TestComputeSystemMetrics_CustomExclusions(t *testing.T) {
	b := NewBuffer(10)
	record(b, baseTime, "GET", "/admin/metrics/system", 200, 5, "")

	m := NewAggregator(b, []string{}).ComputeSystemMetrics(baseTime)
	require.Len(t, m.TopEndpoints, 1)
	assert.Equal(t, "/admin/metrics/system", m.TopEndpoints[0].Path)
}

func TestComputeSystemMetrics_SeparatesMethods(t *testing.T) {
	b := NewBuffer(10)
	record(b, baseTime, "GET", "/users/:id", 200, 5, "")
	record(b, baseTime, "DELETE", "/users/:id", 200, 5, "")
	record(b, baseTime, "GET", "/users/:id", 200, 5, "")

	m := NewAggregator(b, nil).ComputeSystemMetrics(baseTime)
	require.Len(t, m.TopEndpoints, 2)
	assert.Equal(t, EndpointStat{Method: "GET", Path: "/users/:id", Count: 2}, m.TopEndpoints[0])
	assert.Equal(t, EndpointStat{Method: "DELETE", Path: "/users/:id", Count: 1}, m.TopEndpoints[1])
}

func TestComputeSystemMetrics_StatusBreakdown(t *testing.T) {
	b := NewBuffer(50)
	for i := 0; i < 3; i++ {
		record(b, baseTime, "GET", "/x", 404, 1, "")
	}
	for i := 0; i < 5; i++ {
		record(b, baseTime, "GET", "/x", 500, 1, "")
	}
	record(b, baseTime, "GET", "/x", 401, 1, "")
	record(b, baseTime, "GET", "/x", 302, 1, "")

	m := NewAggregator(b, nil).ComputeSystemMetrics(baseTime)

	assert.Equal(t, []StatusCount{
		{StatusCode: 500, Count: 5},
		{StatusCode: 404, Count: 3},
		{StatusCode: 401, Count: 1},
	}, m.ErrorsByStatus)
}

func TestComputeSystemMetrics_IdempotentRead(t *testing.T) {
	b := NewBuffer(100)
	for i := 0; i < 40; i++ {
		status := 200
		if i%9 == 0 {
			status = 500
		}
		record(b, baseTime.Add(-time.Duration(i)*time.Minute), "GET", "/p", status, int64(i*3), "u")
	}
	agg := NewAggregator(b, nil)

	first := agg.ComputeSystemMetrics(baseTime)
	second := agg.ComputeSystemMetrics(baseTime)
	first.GeneratedAt, second.GeneratedAt = time.Time{}, time.Time{}

	assert.Equal(t, first, second)
}
