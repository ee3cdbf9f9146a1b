package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/vigil/internal/audit"
	"github.com/neogan74/vigil/internal/metrics"
	"github.com/neogan74/vigil/internal/telemetry"
)

// unmatchedRoute labels requests no route handled.
const unmatchedRoute = "unmatched"

// Telemetry records one sample per completed request into buffer, whatever
// the outcome, and mirrors it to the HTTP Prometheus collectors.
func Telemetry(buffer *telemetry.Buffer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip metrics endpoint to avoid infinite loop
		if c.Path() == "/metrics" {
			return c.Next()
		}

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		entry := c.Route()
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				record(c, buffer, entry, start, fiber.StatusInternalServerError)
				panic(r)
			}
		}()

		err := c.Next()
		record(c, buffer, entry, start, statusOf(c, err))
		return err
	}
}

// statusOf resolves the status the error handler will send for err.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func record(c *fiber.Ctx, buffer *telemetry.Buffer, entry *fiber.Route, start time.Time, status int) {
	elapsed := time.Since(start)
	method := c.Method()

	path := c.Path()
	label := unmatchedRoute
	if route := c.Route(); route != entry {
		path = route.Path
		label = route.Path
	}

	code := strconv.Itoa(status)
	metrics.HTTPRequestsTotal.WithLabelValues(method, label, code).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, label, code).Observe(elapsed.Seconds())

	buffer.Record(telemetry.Sample{
		Timestamp:  start.UTC(),
		Method:     method,
		Path:       path,
		StatusCode: status,
		LatencyMs:  elapsed.Milliseconds(),
		ClientIP:   audit.ClientIP(c),
		UserID:     GetUserID(c),
		UserEmail:  GetEmail(c),
	})
}
