package main

import (
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/neogan74/vigil/internal/audit"
	"github.com/neogan74/vigil/internal/handlers"
)

// AuditCommands handles audit trail commands
type AuditCommands struct {
	cli *CLI
}

// NewAuditCommands creates a new audit commands handler
func NewAuditCommands(cli *CLI) *AuditCommands {
	return &AuditCommands{cli: cli}
}

// Handle routes audit subcommands
func (a *AuditCommands) Handle(args []string) {
	if len(args) == 0 {
		a.cli.Errorln("Audit subcommand required")
		a.cli.Errorln("Usage: vigilctl audit <list|user|type|send> [options]")
		a.cli.Exit(1)
		return
	}

	subcommand := args[0]
	subArgs := args[1:]

	switch subcommand {
	case "list":
		a.List(subArgs)
	case "user":
		a.ByUser(subArgs)
	case "type":
		a.ByType(subArgs)
	case "send":
		a.Send(subArgs)
	default:
		a.cli.Errorf("Unknown audit subcommand: %s\n", subcommand)
		a.cli.Errorln("Available: list, user, type, send")
		a.cli.Exit(1)
	}
}

// List prints the most recent events
func (a *AuditCommands) List(args []string) {
	const usage = "Usage: vigilctl audit list [--limit n]"
	config, _, ok := a.parse(args, "list", usage, 0, 0)
	if !ok {
		return
	}

	page, err := a.cli.CreateClient(config).AuditEvents(config.Limit)
	if a.cli.Fail(err, "listing audit events") {
		return
	}
	a.printPage(page)
}

// ByUser prints the most recent events of one user
func (a *AuditCommands) ByUser(args []string) {
	const usage = "Usage: vigilctl audit user <user-id> [--limit n]"
	config, remaining, ok := a.parse(args, "user", usage, 1, 1)
	if !ok {
		return
	}

	page, err := a.cli.CreateClient(config).AuditEventsByUser(remaining[0], config.Limit)
	if a.cli.Fail(err, "listing audit events") {
		return
	}
	a.printPage(page)
}

// ByType prints the most recent events of one type
func (a *AuditCommands) ByType(args []string) {
	const usage = "Usage: vigilctl audit type <event-type> [--limit n]"
	config, remaining, ok := a.parse(args, "type", usage, 1, 1)
	if !ok {
		return
	}

	page, err := a.cli.CreateClient(config).AuditEventsByType(remaining[0], config.Limit)
	if a.cli.Fail(err, "listing audit events") {
		return
	}
	a.printPage(page)
}

// Send records an event. Arguments after the type are key=value pairs
// naming request fields (status, user, email, resource, action, session)
// or, with a "detail." prefix, entries of the details map.
func (a *AuditCommands) Send(args []string) {
	const usage = "Usage: vigilctl audit send <event-type> [status=FAILED] [user=id] [email=addr] [detail.key=value ...]"
	config, remaining, ok := a.parse(args, "send", usage, 1, 64)
	if !ok {
		return
	}

	req, err := buildIngestRequest(remaining[0], remaining[1:])
	if err != nil {
		a.cli.Errorln(err.Error())
		a.cli.Errorln(usage)
		a.cli.Exit(1)
		return
	}

	id, err := a.cli.CreateClient(config).SendAuditEvent(req)
	if a.cli.Fail(err, "sending audit event") {
		return
	}
	a.cli.Printf("Recorded event %s\n", id)
}

func (a *AuditCommands) parse(args []string, name, usage string, min, max int) (*GlobalConfig, []string, bool) {
	config, remaining, err := a.cli.ParseGlobalFlags(args, name)
	if err == flag.ErrHelp {
		a.cli.Println(usage)
		return nil, nil, false
	}
	if a.cli.Fail(err, "parsing flags") || !a.cli.CheckArgs(remaining, min, max, usage) {
		return nil, nil, false
	}
	return config, remaining, true
}

func (a *AuditCommands) printPage(page *AuditPage) {
	if page.Count == 0 {
		a.cli.Println("No audit events")
		return
	}
	w := tabwriter.NewWriter(a.cli.Output, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TIMESTAMP\tTYPE\tSTATUS\tUSER\tIP\tID\n")
	for _, e := range page.Events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.UTC().Format(time.RFC3339), e.Type, e.Status, dash(e.UserID), dash(e.IPAddress), e.ID)
	}
	w.Flush()
	a.cli.Printf("%d events\n", page.Count)
}

func buildIngestRequest(eventType string, pairs []string) (handlers.IngestRequest, error) {
	req := handlers.IngestRequest{Type: audit.EventType(eventType)}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return req, fmt.Errorf("invalid field %q, expected key=value", pair)
		}
		if detail, ok := strings.CutPrefix(key, "detail."); ok {
			if req.Details == nil {
				req.Details = make(map[string]any)
			}
			req.Details[detail] = value
			continue
		}
		switch key {
		case "status":
			req.Status = audit.Status(strings.ToUpper(value))
		case "user":
			req.UserID = value
		case "email":
			req.UserEmail = value
		case "ip":
			req.IPAddress = value
		case "session":
			req.SessionID = value
		case "resource":
			req.Resource = value
		case "action":
			req.Action = value
		default:
			return req, fmt.Errorf("unknown field %q", key)
		}
	}
	return req, nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
