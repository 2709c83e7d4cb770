package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/JonMunkholm/filecheck/internal/store"
)

func (a *App) resultsCmd() *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "List verdicts recorded in a SQLite store, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "only verdicts for this file name",
			},
			&cli.StringFlag{
				Name:  "rule",
				Usage: "only verdicts for this rule",
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "only verdicts from this run",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: fmt.Sprintf("maximum verdicts to list (max %d)", store.MaxListLimit),
			},
			outputFlag,
			sqlitePathFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			path := cmd.String("sqlite-path")
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("no results database at %q: %w", path, err)
			}

			results, err := store.OpenSQLite(path)
			if err != nil {
				return err
			}
			defer results.Close()

			entries, err := results.List(ctx, store.Filter{
				FileName: cmd.String("file"),
				Rule:     cmd.String("rule"),
				RunID:    cmd.String("run-id"),
				Limit:    int(cmd.Int("limit")),
			})
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []store.Entry{}
			}

			return write(a.stdout, format, entries)
		},
	}
}
