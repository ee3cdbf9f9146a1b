package audit

import (
	"context"
	"time"

	"github.com/neogan74/vigil/internal/logger"
	"github.com/neogan74/vigil/internal/metrics"
)

// GrowthDays is the length of the daily active user series.
const GrowthDays = 7

const dateLayout = "2006-01-02"

// Querier is the read side of the audit trail.
type Querier interface {
	Query(ctx context.Context, filter Filter) ([]Event, error)
}

// DailyActiveUsers counts distinct users that logged in on one UTC day.
type DailyActiveUsers struct {
	Date  string `json:"date"`
	Users int    `json:"users"`
}

// UserActivity is derived from successful login events.
type UserActivity struct {
	ActiveUsers int                `json:"active_users"`
	UserGrowth  []DailyActiveUsers `json:"user_growth"`
}

// ActivityDeriver computes user activity from the audit trail.
type ActivityDeriver struct {
	querier Querier
	log     logger.Logger
}

func NewActivityDeriver(querier Querier, log logger.Logger) *ActivityDeriver {
	if log == nil {
		log = logger.GetDefault()
	}
	return &ActivityDeriver{querier: querier, log: log}
}

// ComputeUserActivity never fails. When the audit trail cannot be read it
// logs and returns zero counts for every day.
func (d *ActivityDeriver) ComputeUserActivity(ctx context.Context, now time.Time) UserActivity {
	start := time.Now()
	defer func() {
		metrics.ComputeDuration.WithLabelValues("activity").Observe(time.Since(start).Seconds())
	}()

	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	firstDay := today.AddDate(0, 0, -(GrowthDays - 1))
	activeSince := now.Add(-24 * time.Hour)

	days := make([]time.Time, GrowthDays)
	perDay := make([]map[string]struct{}, GrowthDays)
	for i := range days {
		days[i] = firstDay.AddDate(0, 0, i)
		perDay[i] = make(map[string]struct{})
	}
	active := make(map[string]struct{})

	var events []Event
	if d.querier != nil {
		var err error
		events, err = d.querier.Query(ctx, Filter{Type: EventLoginSuccess, Since: firstDay})
		if err != nil {
			d.log.Warn("User activity unavailable", logger.Error(err))
			events = nil
		}
	}

	for i := range events {
		e := &events[i]
		if e.UserID == "" {
			continue
		}
		ts := e.Timestamp.UTC()
		if !ts.Before(activeSince) {
			active[e.UserID] = struct{}{}
		}
		idx := int(ts.Sub(firstDay) / (24 * time.Hour))
		if ts.Before(firstDay) || idx >= GrowthDays {
			continue
		}
		perDay[idx][e.UserID] = struct{}{}
	}

	growth := make([]DailyActiveUsers, GrowthDays)
	for i, day := range days {
		growth[i] = DailyActiveUsers{Date: day.Format(dateLayout), Users: len(perDay[i])}
	}

	return UserActivity{ActiveUsers: len(active), UserGrowth: growth}
}
