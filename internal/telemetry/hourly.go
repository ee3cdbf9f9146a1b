package telemetry

import (
	"time"

	"github.com/neogan74/vigil/internal/metrics"
)

const (
	hourlyWindow = 7 * 24 * time.Hour
	// HourlyBucketCount is the fixed length of every hourly series.
	HourlyBucketCount = 7 * 24
)

// HourlyBucket aggregates the samples of one UTC clock hour.
type HourlyBucket struct {
	HourStart    time.Time `json:"hour_start"`
	RequestCount int       `json:"request_count"`
	ErrorCount   int       `json:"error_count"`
	AvgLatencyMs float64   `json:"avg_latency_ms"`
	UniqueUsers  int       `json:"unique_users"`
}

// ComputeHourlyMetrics returns exactly HourlyBucketCount buckets in ascending
// order, the last one containing now. Hours without traffic are zero-valued.
func (a *Aggregator) ComputeHourlyMetrics(now time.Time) []HourlyBucket {
	start := time.Now()
	defer func() {
		metrics.ComputeDuration.WithLabelValues("hourly").Observe(time.Since(start).Seconds())
	}()

	current := hourFloor(now)
	first := current.Add(-time.Duration(HourlyBucketCount-1) * time.Hour)

	buckets := make([]HourlyBucket, HourlyBucketCount)
	index := make(map[int64]int, HourlyBucketCount)
	for i := range buckets {
		h := first.Add(time.Duration(i) * time.Hour)
		buckets[i].HourStart = h
		index[h.Unix()] = i
	}

	samples := a.buffer.Snapshot(now.Add(-hourlyWindow))
	users := make([]map[string]struct{}, HourlyBucketCount)

	for _, s := range samples {
		i, ok := index[hourFloor(s.Timestamp).Unix()]
		if !ok {
			continue
		}
		b := &buckets[i]
		b.RequestCount++
		if s.IsError() {
			b.ErrorCount++
		}
		n := float64(b.RequestCount)
		b.AvgLatencyMs = (b.AvgLatencyMs*(n-1) + float64(s.LatencyMs)) / n

		// Samples sharing an hour floor are exactly those in [HourStart, HourStart+1h).
		if s.UserID != "" {
			if users[i] == nil {
				users[i] = make(map[string]struct{})
			}
			users[i][s.UserID] = struct{}{}
		}
	}

	for i := range buckets {
		buckets[i].AvgLatencyMs = round2(buckets[i].AvgLatencyMs)
		buckets[i].UniqueUsers = len(users[i])
	}
	return buckets
}

func hourFloor(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
