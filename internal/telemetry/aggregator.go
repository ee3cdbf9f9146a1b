package telemetry

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/neogan74/vigil/internal/metrics"
)

const (
	rollingWindow    = 24 * time.Hour
	rateWindow       = time.Hour
	topEndpointLimit = 10
)

// DefaultExcludedPrefixes are the dashboard read endpoints kept out of the top
// endpoint list, so polling does not rank itself.
var DefaultExcludedPrefixes = []string{"/admin/metrics"}

// EndpointStat is the request count of one (method, path) pair.
type EndpointStat struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Count  int    `json:"count"`
}

// StatusCount is the number of requests that ended with one error status.
type StatusCount struct {
	StatusCode int `json:"status_code"`
	Count      int `json:"count"`
}

// SystemMetrics summarises the trailing 24 hours of traffic.
type SystemMetrics struct {
	TotalRequests      int            `json:"total_requests"`
	SuccessfulRequests int            `json:"successful_requests"`
	FailedRequests     int            `json:"failed_requests"`
	AverageLatencyMs   float64        `json:"average_latency_ms"`
	ErrorRate          float64        `json:"error_rate"`
	RequestsPerMinute  float64        `json:"requests_per_minute"`
	UniqueUsers        int            `json:"unique_users"`
	TopEndpoints       []EndpointStat `json:"top_endpoints"`
	ErrorsByStatus     []StatusCount  `json:"errors_by_status"`
	GeneratedAt        time.Time      `json:"generated_at"`
}

// Aggregator computes read-only views over a Buffer.
type Aggregator struct {
	buffer   *Buffer
	excluded []string
}

// NewAggregator creates an aggregator. A nil excluded list falls back to
// DefaultExcludedPrefixes; pass an empty slice to exclude nothing.
func NewAggregator(buffer *Buffer, excluded []string) *Aggregator {
	if excluded == nil {
		excluded = DefaultExcludedPrefixes
	}
	return &Aggregator{buffer: buffer, excluded: excluded}
}

// Buffer returns the underlying ring buffer.
func (a *Aggregator) Buffer() *Buffer {
	return a.buffer
}

// ComputeSystemMetrics builds the rolling snapshot for the 24 hours before now.
func (a *Aggregator) ComputeSystemMetrics(now time.Time) SystemMetrics {
	start := time.Now()
	defer func() {
		metrics.ComputeDuration.WithLabelValues("system").Observe(time.Since(start).Seconds())
	}()

	result := SystemMetrics{
		TopEndpoints:   []EndpointStat{},
		ErrorsByStatus: []StatusCount{},
		GeneratedAt:    now,
	}

	samples := a.buffer.Snapshot(now.Add(-rollingWindow))
	if len(samples) == 0 {
		return result
	}

	var (
		latencySum int64
		lastHour   int
		users      = make(map[string]struct{})
		endpoints  = make(map[endpointKey]int)
		statuses   = make(map[int]int)
		hourStart  = now.Add(-rateWindow)
	)

	for _, s := range samples {
		result.TotalRequests++
		latencySum += s.LatencyMs

		if s.IsError() {
			result.FailedRequests++
			statuses[s.StatusCode]++
		} else {
			result.SuccessfulRequests++
		}

		if !s.Timestamp.Before(hourStart) {
			lastHour++
		}
		if s.UserID != "" {
			users[s.UserID] = struct{}{}
		}
		if !a.isExcluded(s.Path) {
			endpoints[endpointKey{method: s.Method, path: s.Path}]++
		}
	}

	total := float64(result.TotalRequests)
	result.AverageLatencyMs = round2(float64(latencySum) / total)
	result.ErrorRate = round2(float64(result.FailedRequests) / total * 100)
	result.RequestsPerMinute = round2(float64(lastHour) / 60)
	result.UniqueUsers = len(users)
	result.TopEndpoints = topEndpoints(endpoints, topEndpointLimit)
	result.ErrorsByStatus = statusBreakdown(statuses)

	return result
}

func (a *Aggregator) isExcluded(path string) bool {
	for _, prefix := range a.excluded {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

type endpointKey struct {
	method string
	path   string
}

func topEndpoints(counts map[endpointKey]int, limit int) []EndpointStat {
	stats := make([]EndpointStat, 0, len(counts))
	for k, n := range counts {
		stats = append(stats, EndpointStat{Method: k.method, Path: k.path, Count: n})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		if stats[i].Path != stats[j].Path {
			return stats[i].Path < stats[j].Path
		}
		return stats[i].Method < stats[j].Method
	})
	if len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

func statusBreakdown(counts map[int]int) []StatusCount {
	out := make([]StatusCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, StatusCount{StatusCode: code, Count: n})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].StatusCode < out[j].StatusCode
	})
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
