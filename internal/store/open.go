package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/filecheck/internal/config"
)

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*SQLite)(nil)
	_ Store = (*Memory)(nil)
)

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		pg, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := pg.EnsureSchema(ctx); err != nil {
				pg.Close()
				return nil, err
			}
		}
		slog.Info("connected to database", "driver", config.DriverPostgres, "name", DatabaseName(cfg.URL))
		return pg, nil

	case config.DriverSQLite:
		s, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("opened database", "driver", config.DriverSQLite, "path", cfg.SQLitePath)
		return s, nil

	case config.DriverMemory:
		slog.Warn("using in-memory store; results are lost on restart")
		return NewMemory(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
