package telemetry

import "time"

// Sample is one completed request. Path is the route template, not the raw URL.
type Sample struct {
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	LatencyMs  int64     `json:"latency_ms"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	UserEmail  string    `json:"user_email,omitempty"`
}

// IsError reports whether the sample counts as a failed request.
func (s Sample) IsError() bool {
	return s.StatusCode >= 400
}
