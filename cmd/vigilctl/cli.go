package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// CLI represents the command-line interface with dependencies
type CLI struct {
	Output io.Writer
	Error  io.Writer
	Exit   func(int)
}

// NewCLI creates a new CLI instance with default dependencies
func NewCLI() *CLI {
	return &CLI{
		Output: os.Stdout,
		Error:  os.Stderr,
		Exit:   os.Exit,
	}
}

// GlobalConfig holds common configuration for all commands
type GlobalConfig struct {
	ServerURL string
	Token     string
	Limit     int
}

// ParseGlobalFlags parses common flags and returns GlobalConfig and remaining args
func (cli *CLI) ParseGlobalFlags(args []string, commandName string) (*GlobalConfig, []string, error) {
	config := &GlobalConfig{}

	flagSet := flag.NewFlagSet(commandName, flag.ContinueOnError)
	flagSet.SetOutput(cli.Error)
	flagSet.StringVar(&config.ServerURL, "server", envOr("VIGIL_ADDR", "http://localhost:8888"), "Vigil server URL")
	flagSet.StringVar(&config.Token, "token", os.Getenv("VIGIL_TOKEN"), "Bearer token sent with every request")
	flagSet.IntVar(&config.Limit, "limit", 0, "Maximum number of audit events to return")

	if len(args) > 0 && (args[0] == "-h" || args[0] == "--help") {
		return nil, nil, flag.ErrHelp
	}

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}

	return config, flagSet.Args(), nil
}

// CreateClient creates a VigilClient from GlobalConfig
func (cli *CLI) CreateClient(config *GlobalConfig) *VigilClient {
	return NewVigilClient(config.ServerURL, config.Token)
}

// Printf writes formatted output to the output writer
func (cli *CLI) Printf(format string, args ...interface{}) {
	fmt.Fprintf(cli.Output, format, args...)
}

// Println writes a line to the output writer
func (cli *CLI) Println(args ...interface{}) {
	fmt.Fprintln(cli.Output, args...)
}

// Errorf writes formatted error to the error writer
func (cli *CLI) Errorf(format string, args ...interface{}) {
	fmt.Fprintf(cli.Error, format, args...)
}

// Errorln writes an error line to the error writer
func (cli *CLI) Errorln(args ...interface{}) {
	fmt.Fprintln(cli.Error, args...)
}

// Fail prints an error if one occurred and exits. It reports whether the
// caller should stop.
func (cli *CLI) Fail(err error, context string) bool {
	if err == nil {
		return false
	}
	cli.Errorf("Error %s: %v\n", context, err)
	cli.Exit(1)
	return true
}

// CheckArgs exits with usage unless len(args) is within [min, max].
func (cli *CLI) CheckArgs(args []string, min, max int, usage string) bool {
	if len(args) < min || len(args) > max {
		cli.Errorln(usage)
		cli.Exit(1)
		return false
	}
	return true
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
