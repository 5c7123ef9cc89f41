package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/Proton-105/users-backend/pkg/config"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

const migrationsTable = "schema_migrations"

// Migrator applies plain .up.sql migrations in lexical order and records
// each applied file so reruns are no-ops.
type Migrator struct {
	db      *sql.DB
	log     *slog.Logger
	files   fs.FS
	dir     string
	builder squirrel.StatementBuilderType
}

// NewMigrator returns a Migrator for the embedded migrations of driver.
func NewMigrator(db *sql.DB, driver string, log *slog.Logger) (*Migrator, error) {
	if _, err := DriverName(driver); err != nil {
		return nil, err
	}

	return NewMigratorFS(db, driver, migrationsFS, path.Join("migrations", driver), log), nil
}

// NewMigratorFS returns a Migrator reading migrations from dir inside files.
func NewMigratorFS(db *sql.DB, driver string, files fs.FS, dir string, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}

	return &Migrator{
		db:      db,
		log:     log.With(slog.String("component", "migrator"), slog.String("dir", dir)),
		files:   files,
		dir:     dir,
		builder: squirrel.StatementBuilder.PlaceholderFormat(Placeholder(driver)),
	}
}

// Up applies every pending migration and returns the names it applied.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	names, err := ListMigrations(m.files, m.dir)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	if len(names) == 0 {
		m.log.Info("no .up.sql migrations found")
		return nil, nil
	}

	applied, err := m.appliedSet(ctx)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, name := range names {
		if applied[name] {
			continue
		}
		if err := m.applyFile(ctx, name); err != nil {
			return ran, err
		}
		ran = append(ran, name)
	}

	m.log.Info("migrations complete", slog.Int("applied", len(ran)), slog.Int("total", len(names)))
	return ran, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS ` + migrationsTable + ` (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", migrationsTable, err)
	}
	return nil
}

func (m *Migrator) appliedSet(ctx context.Context) (map[string]bool, error) {
	query, args, err := m.builder.Select("name").From(migrationsTable).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build applied migrations query: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[name] = true
	}

	return applied, rows.Err()
}

func (m *Migrator) applyFile(ctx context.Context, name string) error {
	scopedLog := m.log.With(slog.String("file", name))
	scopedLog.Info("applying migration")

	data, err := fs.ReadFile(m.files, path.Join(m.dir, name))
	if err != nil {
		return fmt.Errorf("read migration %q: %w", name, err)
	}

	statement := strings.TrimSpace(string(data))

	insert, args, err := m.builder.Insert(migrationsTable).Columns("name").Values(name).ToSql()
	if err != nil {
		return fmt.Errorf("build migration record for %q: %w", name, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction for migration %q: %w", name, err)
	}

	if len(statement) == 0 {
		scopedLog.Warn("migration is empty, recording only")
	} else if _, execErr := tx.ExecContext(ctx, statement); execErr != nil {
		m.rollback(tx, scopedLog)
		return fmt.Errorf("execute migration %q: %w", name, execErr)
	}

	if _, execErr := tx.ExecContext(ctx, insert, args...); execErr != nil {
		m.rollback(tx, scopedLog)
		return fmt.Errorf("record migration %q: %w", name, execErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		m.rollback(tx, scopedLog)
		return fmt.Errorf("commit migration %q: %w", name, commitErr)
	}

	return nil
}

func (m *Migrator) rollback(tx *sql.Tx, log *slog.Logger) {
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		log.Error("rollback error", slog.Any("error", rbErr))
	}
}

func isUpMigration(name string) bool {
	return strings.HasSuffix(name, ".up.sql")
}

// ListMigrations returns all .up.sql files in root in lexical order.
func ListMigrations(dir fs.FS, root string) ([]string, error) {
	entries, err := fs.ReadDir(dir, root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isUpMigration(e.Name()) {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}

// Migrate runs the embedded migrations for cfg.Driver against db.
func Migrate(ctx context.Context, db *sql.DB, cfg config.DatabaseConfig, log *slog.Logger) error {
	m, err := NewMigrator(db, cfg.Driver, log)
	if err != nil {
		return err
	}

	_, err = m.Up(ctx)
	return err
}
