package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/vigil/internal/audit"
	"github.com/neogan74/vigil/internal/metrics"
	"github.com/neogan74/vigil/internal/ratelimit"
)

// RateLimit limits requests per connection peer. Forwarding headers are
// client controlled and never select the bucket. scope labels the decision
// metrics.
func RateLimit(store *ratelimit.Store, scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if store.Allow(audit.PeerIP(c)) {
			metrics.RateLimitRequestsTotal.WithLabelValues(scope, "allowed").Inc()
			return c.Next()
		}

		metrics.RateLimitRequestsTotal.WithLabelValues(scope, "exceeded").Inc()
		c.Set(fiber.HeaderRetryAfter, "1")
		return errorResponse(c, fiber.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded. Please retry later.")
	}
}
