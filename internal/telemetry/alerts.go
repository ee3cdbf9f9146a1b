package telemetry

import (
	"fmt"
	"time"

	"github.com/neogan74/vigil/internal/metrics"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityError   AlertSeverity = "error"
	SeverityWarning AlertSeverity = "warning"
	SeverityInfo    AlertSeverity = "info"
)

// Alert is a derived, non-persisted alert record.
type Alert struct {
	ID        string        `json:"id"`
	Rule      string        `json:"rule"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Resolved  bool          `json:"resolved"`
}

// AlertThresholds configures when alerts fire.
type AlertThresholds struct {
	ErrorRate        float64 `json:"error_rate"`
	WarningErrorRate float64 `json:"warning_error_rate"`
	AvgLatencyMs     float64 `json:"avg_latency_ms"`
	MinRPM           float64 `json:"min_rpm"`
	MaxRPM           float64 `json:"max_rpm"`
}

// DefaultAlertThresholds returns the stock rule thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		ErrorRate:        5,
		WarningErrorRate: 2,
		AvgLatencyMs:     2000,
		MinRPM:           1,
		MaxRPM:           100,
	}
}

// AlertEvaluator applies static threshold rules to a SystemMetrics snapshot.
type AlertEvaluator struct {
	thresholds AlertThresholds
}

// NewAlertEvaluator creates an evaluator with the given thresholds.
func NewAlertEvaluator(thresholds AlertThresholds) *AlertEvaluator {
	return &AlertEvaluator{thresholds: thresholds}
}

// Thresholds returns the configured thresholds.
func (e *AlertEvaluator) Thresholds() AlertThresholds {
	return e.thresholds
}

// Evaluate returns every alert whose condition holds for snapshot. Repeated
// calls with the same snapshot differ only in ID and Timestamp.
func (e *AlertEvaluator) Evaluate(snapshot SystemMetrics, now time.Time) []Alert {
	th := e.thresholds
	alerts := make([]Alert, 0, 3)

	switch {
	case snapshot.ErrorRate > th.ErrorRate:
		alerts = append(alerts, newAlert("error-rate", SeverityError, now,
			"high error rate: %.2f%% of requests failed in the last 24h", snapshot.ErrorRate))
	case snapshot.ErrorRate > th.WarningErrorRate:
		alerts = append(alerts, newAlert("error-rate", SeverityWarning, now,
			"elevated error rate: %.2f%% of requests failed in the last 24h", snapshot.ErrorRate))
	}

	if snapshot.AverageLatencyMs > th.AvgLatencyMs {
		alerts = append(alerts, newAlert("latency", SeverityWarning, now,
			"high average response time: %.2fms", snapshot.AverageLatencyMs))
	}

	if snapshot.RequestsPerMinute < th.MinRPM {
		alerts = append(alerts, newAlert("low-activity", SeverityInfo, now,
			"low system activity: %.2f requests per minute", snapshot.RequestsPerMinute))
	}
	if snapshot.RequestsPerMinute > th.MaxRPM {
		alerts = append(alerts, newAlert("high-load", SeverityWarning, now,
			"high system load: %.2f requests per minute", snapshot.RequestsPerMinute))
	}

	return alerts
}

func newAlert(rule string, severity AlertSeverity, now time.Time, format string, args ...any) Alert {
	return Alert{
		ID:        fmt.Sprintf("%s-%d", rule, now.UnixMilli()),
		Rule:      rule,
		Severity:  severity,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: now,
	}
}

// RecordFiring sets the firing-alerts gauge to the per-severity counts of
// alerts. Severities absent from alerts are reset to zero.
func RecordFiring(alerts []Alert) {
	counts := map[AlertSeverity]int{SeverityError: 0, SeverityWarning: 0, SeverityInfo: 0}
	for _, a := range alerts {
		counts[a.Severity]++
	}
	for sev, n := range counts {
		metrics.AlertsFiring.WithLabelValues(string(sev)).Set(float64(n))
	}
}
