package main

import (
	"flag"
	"fmt"
	"text/tabwriter"
	"time"
)

// MetricsCommands handles the dashboard views
type MetricsCommands struct {
	cli *CLI
}

// NewMetricsCommands creates a new metrics commands handler
func NewMetricsCommands(cli *CLI) *MetricsCommands {
	return &MetricsCommands{cli: cli}
}

const metricsUsage = "Usage: vigilctl metrics <system|hourly|alerts|activity|overview> [options]"

// Handle routes metrics subcommands
func (m *MetricsCommands) Handle(args []string) {
	if len(args) == 0 {
		m.cli.Errorln("Metrics subcommand required")
		m.cli.Errorln(metricsUsage)
		m.cli.Exit(1)
		return
	}

	subcommand := args[0]
	config, remaining, err := m.cli.ParseGlobalFlags(args[1:], subcommand)
	if err == flag.ErrHelp {
		m.cli.Println(metricsUsage)
		return
	}
	if m.cli.Fail(err, "parsing flags") || !m.cli.CheckArgs(remaining, 0, 0, metricsUsage) {
		return
	}
	client := m.cli.CreateClient(config)

	switch subcommand {
	case "system":
		m.System(client)
	case "hourly":
		m.Hourly(client)
	case "alerts":
		m.Alerts(client)
	case "activity":
		m.Activity(client)
	case "overview":
		m.Overview(client)
	default:
		m.cli.Errorf("Unknown metrics subcommand: %s\n", subcommand)
		m.cli.Errorln("Available: system, hourly, alerts, activity, overview")
		m.cli.Exit(1)
	}
}

// System prints the rolling 24h snapshot
func (m *MetricsCommands) System(client *VigilClient) {
	sm, err := client.SystemMetrics()
	if m.cli.Fail(err, "getting system metrics") {
		return
	}

	m.cli.Println("System Metrics (last 24h):")
	m.cli.Printf("  Total Requests: %d\n", sm.TotalRequests)
	m.cli.Printf("  Successful: %d\n", sm.SuccessfulRequests)
	m.cli.Printf("  Failed: %d\n", sm.FailedRequests)
	m.cli.Printf("  Avg Latency: %.2f ms\n", sm.AverageLatencyMs)
	m.cli.Printf("  Error Rate: %.2f%%\n", sm.ErrorRate)
	m.cli.Printf("  Requests/min: %.2f\n", sm.RequestsPerMinute)
	m.cli.Printf("  Unique Users: %d\n", sm.UniqueUsers)

	if len(sm.TopEndpoints) > 0 {
		m.cli.Println()
		m.cli.Println("Top Endpoints:")
		w := tabwriter.NewWriter(m.cli.Output, 0, 0, 2, ' ', 0)
		for _, ep := range sm.TopEndpoints {
			fmt.Fprintf(w, "  %s\t%s\t%d\n", ep.Method, ep.Path, ep.Count)
		}
		w.Flush()
	}

	if len(sm.ErrorsByStatus) > 0 {
		m.cli.Println()
		m.cli.Println("Errors by Status:")
		for _, sc := range sm.ErrorsByStatus {
			m.cli.Printf("  %d: %d\n", sc.StatusCode, sc.Count)
		}
	}
}

// Hourly prints the hours of the last week that saw traffic
func (m *MetricsCommands) Hourly(client *VigilClient) {
	resp, err := client.HourlyMetrics()
	if m.cli.Fail(err, "getting hourly metrics") {
		return
	}

	active := 0
	w := tabwriter.NewWriter(m.cli.Output, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "HOUR\tREQUESTS\tERRORS\tAVG MS\tUSERS\n")
	for _, b := range resp.Buckets {
		if b.RequestCount == 0 {
			continue
		}
		active++
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%d\n",
			b.HourStart.UTC().Format(time.RFC3339), b.RequestCount, b.ErrorCount, b.AvgLatencyMs, b.UniqueUsers)
	}
	w.Flush()
	m.cli.Printf("%d of %d hours with traffic\n", active, len(resp.Buckets))
}

// Alerts prints the alerts raised for the current snapshot
func (m *MetricsCommands) Alerts(client *VigilClient) {
	resp, err := client.Alerts()
	if m.cli.Fail(err, "getting alerts") {
		return
	}

	if resp.Count == 0 {
		m.cli.Println("No alerts")
		return
	}
	m.cli.Printf("Alerts (%d):\n", resp.Count)
	for _, a := range resp.Alerts {
		m.cli.Printf("  [%s] %s (%s)\n", a.Severity, a.Message, a.Rule)
	}
}

// Activity prints active users and the weekly login trend
func (m *MetricsCommands) Activity(client *VigilClient) {
	activity, err := client.Activity()
	if m.cli.Fail(err, "getting user activity") {
		return
	}

	m.cli.Printf("Active Users (24h): %d\n", activity.ActiveUsers)
	m.cli.Println("User Growth:")
	for _, day := range activity.UserGrowth {
		m.cli.Printf("  %s: %d\n", day.Date, day.Users)
	}
}

// Overview prints the composed dashboard summary
func (m *MetricsCommands) Overview(client *VigilClient) {
	ov, err := client.Overview()
	if m.cli.Fail(err, "getting overview") {
		return
	}

	m.cli.Println("Overview:")
	m.cli.Printf("  Total Users: %d\n", ov.TotalUsers)
	m.cli.Printf("  Active Users (24h): %d\n", ov.Activity.ActiveUsers)
	m.cli.Printf("  Requests (24h): %d\n", ov.System.TotalRequests)
	m.cli.Printf("  Error Rate: %.2f%%\n", ov.System.ErrorRate)
	m.cli.Printf("  Alerts: %d\n", len(ov.Alerts))
}
