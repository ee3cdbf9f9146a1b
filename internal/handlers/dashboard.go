package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/vigil/internal/audit"
	"github.com/neogan74/vigil/internal/logger"
	"github.com/neogan74/vigil/internal/middleware"
	"github.com/neogan74/vigil/internal/telemetry"
)

// UserCounter supplies the total number of registered users. User
// accounts live outside this service.
type UserCounter interface {
	TotalUsers(ctx context.Context) (int, error)
}

// StaticUserCounter reports a fixed total.
type StaticUserCounter int

func (s StaticUserCounter) TotalUsers(context.Context) (int, error) {
	return int(s), nil
}

// Overview is the composed admin dashboard payload.
type Overview struct {
	System      telemetry.SystemMetrics `json:"system"`
	Alerts      []telemetry.Alert       `json:"alerts"`
	Activity    audit.UserActivity      `json:"activity"`
	TotalUsers  int                     `json:"total_users"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// DashboardHandler serves the read-only dashboard views. Every view is
// computed on demand from the current buffer and audit trail.
type DashboardHandler struct {
	aggregator *telemetry.Aggregator
	evaluator  *telemetry.AlertEvaluator
	activity   *audit.ActivityDeriver
	users      UserCounter
	now        func() time.Time
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(aggregator *telemetry.Aggregator, evaluator *telemetry.AlertEvaluator, activity *audit.ActivityDeriver, users UserCounter) *DashboardHandler {
	if users == nil {
		users = StaticUserCounter(0)
	}
	return &DashboardHandler{
		aggregator: aggregator,
		evaluator:  evaluator,
		activity:   activity,
		users:      users,
		now:        time.Now,
	}
}

// System returns the rolling 24h request summary
func (h *DashboardHandler) System(c *fiber.Ctx) error {
	return c.JSON(h.aggregator.ComputeSystemMetrics(h.now()))
}

// Hourly returns the 168 hourly buckets of the past week, oldest first
func (h *DashboardHandler) Hourly(c *fiber.Ctx) error {
	now := h.now()
	return c.JSON(fiber.Map{
		"buckets":     h.aggregator.ComputeHourlyMetrics(now),
		"generated_at": now.UTC(),
	})
}

// Alerts evaluates the alert rules against a fresh snapshot
func (h *DashboardHandler) Alerts(c *fiber.Ctx) error {
	now := h.now()
	snapshot := h.aggregator.ComputeSystemMetrics(now)
	alerts := h.evaluator.Evaluate(snapshot, now)
	return c.JSON(fiber.Map{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// Activity returns active users and the daily login series
func (h *DashboardHandler) Activity(c *fiber.Ctx) error {
	return c.JSON(h.activity.ComputeUserActivity(c.UserContext(), h.now()))
}

// Overview composes every view into one payload. A failing user count is
// reported as zero.
func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	now := h.now()
	snapshot := h.aggregator.ComputeSystemMetrics(now)

	total, err := h.users.TotalUsers(c.UserContext())
	if err != nil {
		middleware.GetLogger(c).Warn("Total user count unavailable", logger.Error(err))
		total = 0
	}

	return c.JSON(Overview{
		System:      snapshot,
		Alerts:      h.evaluator.Evaluate(snapshot, now),
		Activity:    h.activity.ComputeUserActivity(c.UserContext(), now),
		TotalUsers:  total,
		GeneratedAt: now.UTC(),
	})
}
