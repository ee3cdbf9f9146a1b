package main

import (
	"flag"
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	run(NewCLI(), os.Args[1:])
}

func run(cli *CLI, args []string) {
	if len(args) < 1 {
		printUsage(cli)
		cli.Exit(1)
		return
	}

	command := args[0]
	rest := args[1:]

	switch command {
	case "metrics":
		NewMetricsCommands(cli).Handle(rest)
	case "audit":
		NewAuditCommands(cli).Handle(rest)
	case "health":
		handleHealth(cli, rest)
	case "version":
		cli.Printf("vigilctl version %s\n", version)
	case "help", "-h", "--help":
		printUsage(cli)
	default:
		cli.Errorf("Unknown command: %s\n", command)
		printUsage(cli)
		cli.Exit(1)
	}
}

func handleHealth(cli *CLI, args []string) {
	const usage = "Usage: vigilctl health [options]"
	config, remaining, err := cli.ParseGlobalFlags(args, "health")
	if err == flag.ErrHelp {
		cli.Println(usage)
		return
	}
	if cli.Fail(err, "parsing flags") || !cli.CheckArgs(remaining, 0, 0, usage) {
		return
	}

	health, err := cli.CreateClient(config).Health()
	if cli.Fail(err, "checking health") {
		return
	}

	cli.Printf("Status: %s (version %s, up %s)\n", health.Status, health.Version, health.Uptime)
	cli.Printf("Samples: %d/%d\n", health.Telemetry.Buffered, health.Telemetry.Capacity)
	if health.Audit.Enabled {
		cli.Printf("Audit: enabled (%s)\n", health.Audit.Sink)
		if health.Audit.Events != nil {
			cli.Printf("Audit events: %d\n", *health.Audit.Events)
		}
	} else {
		cli.Println("Audit: disabled")
	}
}

func printUsage(cli *CLI) {
	cli.Println("vigilctl - Vigil CLI Tool")
	cli.Println()
	cli.Println("Usage: vigilctl <command> [options]")
	cli.Println()
	cli.Println("Commands:")
	cli.Println("  metrics <subcommand>   Dashboard views")
	cli.Println("    system               Rolling 24h request metrics")
	cli.Println("    hourly               Hourly buckets for the last week")
	cli.Println("    alerts               Alerts for the current snapshot")
	cli.Println("    activity             Active users and login trend")
	cli.Println("    overview             Composed dashboard summary")
	cli.Println()
	cli.Println("  audit <subcommand>     Audit trail")
	cli.Println("    list                 Most recent events")
	cli.Println("    user <id>            Events of one user")
	cli.Println("    type <type>          Events of one type")
	cli.Println("    send <type> [k=v]    Record an event")
	cli.Println()
	cli.Println("  health                 Server health")
	cli.Println("  version                Show version")
	cli.Println("  help                   Show this help")
	cli.Println()
	cli.Println("Global Options:")
	cli.Println("  --server <url>     Vigil server URL (default: http://localhost:8888, env VIGIL_ADDR)")
	cli.Println("  --token <jwt>      Bearer token (env VIGIL_TOKEN)")
	cli.Println("  --limit <n>        Maximum audit events to return")
}
