package handlers

import (
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/vigil/internal/audit"
	"github.com/neogan74/vigil/internal/logger"
	"github.com/neogan74/vigil/internal/middleware"
	"github.com/neogan74/vigil/internal/telemetry"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Uptime    string          `json:"uptime"`
	Timestamp time.Time       `json:"timestamp"`
	Telemetry TelemetryHealth `json:"telemetry"`
	Audit     AuditHealth     `json:"audit"`
	System    SystemHealth    `json:"system"`
}

type TelemetryHealth struct {
	Buffered int `json:"buffered_samples"`
	Capacity int `json:"capacity"`
}

type AuditHealth struct {
	Enabled bool   `json:"enabled"`
	Sink    string `json:"sink,omitempty"`
	Events  *int   `json:"events,omitempty"`
}

type SystemHealth struct {
	Goroutines  int    `json:"goroutines"`
	MemoryAlloc uint64 `json:"memory_alloc_bytes"`
	MemorySys   uint64 `json:"memory_sys_bytes"`
	NumGC       uint32 `json:"num_gc"`
}

// HealthHandler handles health check operations
type HealthHandler struct {
	buffer    *telemetry.Buffer
	audit     *audit.Manager
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(buffer *telemetry.Buffer, auditMgr *audit.Manager, version string) *HealthHandler {
	return &HealthHandler{
		buffer:    buffer,
		audit:     auditMgr,
		startTime: time.Now(),
		version:   version,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status := HealthStatus{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now(),
		Telemetry: TelemetryHealth{
			Buffered: h.buffer.Size(),
			Capacity: h.buffer.Cap(),
		},
		Audit: AuditHealth{
			Enabled: h.audit.Enabled(),
			Sink:    h.audit.Sink(),
		},
		System: SystemHealth{
			Goroutines:  runtime.NumGoroutine(),
			MemoryAlloc: m.Alloc,
			MemorySys:   m.Sys,
			NumGC:       m.NumGC,
		},
	}

	n, ok, err := h.audit.EventCount(c.UserContext())
	switch {
	case err != nil:
		status.Status = "degraded"
		middleware.GetLogger(c).Warn("Counting audit events failed", logger.Error(err))
	case ok:
		status.Audit.Events = &n
	}

	return c.JSON(status)
}

// Liveness reports that the process is up
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// Readiness checks if the service is ready to accept traffic
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	_, _, err := h.audit.EventCount(c.UserContext())
	if h.buffer == nil || err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":    "not ready",
			"timestamp": time.Now(),
		})
	}

	return c.JSON(fiber.Map{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}
