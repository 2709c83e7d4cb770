// Package cli implements the filecheck command line tool. It validates local
// report files with the same pipeline the HTTP service runs and prints the
// outcome as JSON or YAML.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/filecheck/internal/logging"
)

const name = "filecheck"

// overridden during build with ldflags
var version = "dev"

// Exit codes returned by Run.
const (
	ExitAccepted = 0
	ExitRejected = 1
	ExitError    = 2
)

// Output formats accepted by --output.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// App holds the streams and exit status of one invocation.
type App struct {
	stdout   io.Writer
	stderr   io.Writer
	exitCode int
}

// New creates an App writing results to stdout and logs to stderr.
func New(stdout, stderr io.Writer) *App {
	return &App{stdout: stdout, stderr: stderr}
}

// Run executes args (including the program name) and returns the exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	a.exitCode = ExitAccepted
	if err := a.command().Run(ctx, args); err != nil {
		fmt.Fprintf(a.stderr, "error: %v\n", err)
		if a.exitCode == ExitAccepted {
			a.exitCode = ExitError
		}
	}
	return a.exitCode
}

func (a *App) command() *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     "Validate csv and txt report files",
		Version:   version,
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
				Usage: "log format (text, json)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			slog.SetDefault(logging.New(a.stderr, cmd.String("log-level"), cmd.String("log-format")))
			return ctx, nil
		},
		// Errors are reported by Run; never exit from inside the command.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			a.validateCmd(),
			a.resultsCmd(),
		},
	}
}

var outputFlag = &cli.StringFlag{
	Name:    "output",
	Aliases: []string{"o"},
	Value:   FormatJSON,
	Usage:   "output format (json, yaml)",
}

var sqlitePathFlag = &cli.StringFlag{
	Name:  "sqlite-path",
	Value: "./data/filecheck.db",
	Usage: "SQLite database holding recorded verdicts",
}

func parseOutputFormat(cmd *cli.Command) (string, error) {
	switch f := strings.ToLower(cmd.String("output")); f {
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format: %q", cmd.String("output"))
	}
}

// write serializes v to w in format.
func write(w io.Writer, format string, v any) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}
}
