// Package database opens the relational store and keeps its schema current.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	// Register the PostgreSQL driver with database/sql.
	_ "github.com/lib/pq"
	// Register the modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"

	apperrors "github.com/Proton-105/users-backend/internal/errors"
	"github.com/Proton-105/users-backend/pkg/config"
)

const sqliteBusyTimeout = 5 * time.Second

// DriverName maps a configured driver to the name registered with database/sql.
func DriverName(driver string) (string, error) {
	switch driver {
	case config.DriverPostgres:
		return "postgres", nil
	case config.DriverSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Placeholder returns the bind variable style used by driver.
func Placeholder(driver string) squirrel.PlaceholderFormat {
	if driver == config.DriverSQLite {
		return squirrel.Question
	}
	return squirrel.Dollar
}

// Open connects to the configured database, sizes the pool and waits for the
// first successful ping, retrying transient failures.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*sql.DB, error) {
	name, err := DriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if cfg.Driver == config.DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	poolSize := cfg.PoolSize
	if poolSize < 1 {
		poolSize = 1
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)
	db.SetConnMaxIdleTime(5 * time.Minute)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	attempt := 0
	err = apperrors.WithRetry(ctx, func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if pingErr := db.PingContext(pingCtx); pingErr != nil {
			if log != nil {
				log.Warn("database ping failed",
					slog.String("driver", cfg.Driver),
					slog.Int("attempt", attempt),
					slog.Any("error", pingErr),
				)
			}
			return apperrors.NewDatabaseError(pingErr)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	if log != nil {
		log.Info("database connected",
			slog.String("driver", cfg.Driver),
			slog.Int("pool_size", poolSize),
		)
	}

	return db, nil
}

// sqliteDSN appends the pragmas every connection needs. Each pooled
// connection runs them on open, which a one-off PRAGMA statement would not.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "file:users.db"
	}

	var pragmas []string
	if !strings.Contains(dsn, "busy_timeout") {
		pragmas = append(pragmas, fmt.Sprintf("_pragma=busy_timeout(%d)", sqliteBusyTimeout.Milliseconds()))
	}
	if !strings.Contains(dsn, "foreign_keys") {
		pragmas = append(pragmas, "_pragma=foreign_keys(ON)")
	}
	if len(pragmas) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}
