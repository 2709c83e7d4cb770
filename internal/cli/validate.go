package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/JonMunkholm/filecheck/internal/core"
	"github.com/JonMunkholm/filecheck/internal/store"
)

// Store choices for validate --store.
const (
	storeMemory = "memory"
	storeSQLite = "sqlite"
)

// Report is the printed result of validate.
type Report struct {
	RunID    string         `json:"run_id" yaml:"run_id"`
	File     string         `json:"file" yaml:"file"`
	Status   core.Status    `json:"status" yaml:"status"`
	Accepted bool           `json:"accepted" yaml:"accepted"`
	Verdicts []core.Verdict `json:"verdicts" yaml:"verdicts"`
	Failures []core.Verdict `json:"failures,omitempty" yaml:"failures,omitempty"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
	Code     string         `json:"code,omitempty" yaml:"code,omitempty"`
}

func newReport(file string, out core.Outcome, err error) Report {
	r := Report{
		RunID:    out.RunID,
		File:     file,
		Status:   out.Status,
		Accepted: out.Accepted(),
		Verdicts: out.Verdicts,
		Failures: out.Failures(),
	}
	if r.Verdicts == nil {
		r.Verdicts = []core.Verdict{}
	}
	if err != nil {
		r.Error = err.Error()
		r.Code = core.MapError(err).Code
	}
	return r
}

func (a *App) validateCmd() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate a report file and print the outcome",
		ArgsUsage: "FILE",
		Description: `Run every validation rule against FILE.

Exit status is 0 when the file is accepted, 1 when a rule rejects it and
2 when it could not be validated (unreadable file, parse failure, store error).

# Examples

Validate a csv report:
  filecheck validate --type csv report.csv

Validate a txt report and keep its verdicts in SQLite:
  filecheck validate -t txt --store sqlite --sqlite-path results.db report.txt`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "type",
				Aliases:  []string{"t"},
				Required: true,
				Usage:    "declared file type (csv, txt)",
			},
			&cli.StringFlag{
				Name:  "store",
				Value: storeMemory,
				Usage: "where verdicts are recorded (memory, sqlite)",
			},
			&cli.BoolFlag{
				Name:  "no-summary",
				Usage: "skip the summary records written for accepted files",
			},
			outputFlag,
			sqlitePathFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			path := cmd.Args().First()
			if path == "" {
				return errors.New("missing FILE argument")
			}

			results, err := openStore(cmd.String("store"), cmd.String("sqlite-path"))
			if err != nil {
				return err
			}
			defer results.Close()

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %q: %w", path, err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return fmt.Errorf("failed to stat %q: %w", path, err)
			}

			pipeline := core.NewPipeline(results, core.WithSummaryRecords(!cmd.Bool("no-summary")))
			service := core.NewService(pipeline, core.ServiceConfig{})

			out, runErr := service.Validate(ctx, core.Submission{
				DeclaredType: cmd.String("type"),
				FileName:     filepath.Base(path),
				Content:      f,
				Size:         info.Size(),
			})

			if err := write(a.stdout, format, newReport(path, out, runErr)); err != nil {
				return err
			}

			switch {
			case runErr != nil:
				slog.Debug("validation did not complete", "error", runErr)
				a.exitCode = ExitError
			case out.Status == core.StatusRejected:
				a.exitCode = ExitRejected
			}
			return nil
		},
	}
}

func openStore(kind, sqlitePath string) (store.Store, error) {
	switch strings.ToLower(kind) {
	case storeMemory:
		return store.NewMemory(), nil
	case storeSQLite:
		return store.OpenSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown store: %q", kind)
	}
}
