// Package migrate applies versioned SQL files from an fs.FS.
//
// Files are named "<version>_<name>.up.sql" and "<version>_<name>.down.sql".
// Applied versions are recorded in a bookkeeping table inside the same
// transaction as the migration itself.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bigyanadk07/BugTracker/db"
)

// Migration describes an up/down pair.
type Migration struct {
	Version  int
	Name     string
	UpPath   string
	DownPath string
}

// PlanEntry describes a migration and whether it has been applied.
type PlanEntry struct {
	Migration
	Applied bool
}

// Locker serializes concurrent runners.
type Locker interface {
	Lock(context.Context, *sql.DB) error
	Unlock(context.Context, *sql.DB) error
}

// ErrLockTimeout indicates a lock timeout.
var ErrLockTimeout = errors.New("migration lock timeout")

// AdvisoryLocker uses PostgreSQL advisory locks.
type AdvisoryLocker struct {
	ID           int64
	Timeout      time.Duration
	PollInterval time.Duration
}

// Lock acquires the advisory lock, polling until Timeout when one is set.
func (a AdvisoryLocker) Lock(ctx context.Context, conn *sql.DB) error {
	if a.Timeout <= 0 {
		_, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", a.ID)
		return err
	}

	poll := a.PollInterval
	if poll <= 0 {
		poll = 200 * time.Millisecond
	}
	deadline := time.Now().Add(a.Timeout)

	for {
		var locked bool
		if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", a.ID).Scan(&locked); err != nil {
			return err
		}
		if locked {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

// Unlock releases the advisory lock.
func (a AdvisoryLocker) Unlock(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", a.ID)
	return err
}

// Runner executes migrations from a file system.
type Runner struct {
	DB      *sql.DB
	Files   fs.FS
	Dialect db.Dialect
	Table   string
	Locker  Locker
	Logger  *slog.Logger
}

// New creates a Runner reading files from the root of files.
func New(conn *sql.DB, files fs.FS, dialect db.Dialect) *Runner {
	return &Runner{DB: conn, Files: files, Dialect: dialect, Table: "schema_migrations"}
}

// Plan lists every migration and marks the applied ones. Without a DB
// every entry is reported pending.
func (r *Runner) Plan(ctx context.Context) ([]PlanEntry, error) {
	migrations, err := List(r.Files)
	if err != nil {
		return nil, err
	}

	appliedSet := make(map[int]struct{})
	if r.DB != nil {
		if err := r.ensureTable(ctx); err != nil {
			return nil, err
		}
		applied, err := r.appliedVersions(ctx)
		if err != nil {
			return nil, err
		}
		for _, v := range applied {
			appliedSet[v] = struct{}{}
		}
	}

	plan := make([]PlanEntry, 0, len(migrations))
	for _, migration := range migrations {
		_, applied := appliedSet[migration.Version]
		plan = append(plan, PlanEntry{Migration: migration, Applied: applied})
	}
	return plan, nil
}

// Up applies all pending migrations in version order.
func (r *Runner) Up(ctx context.Context) (int, error) {
	unlock, err := r.prepare(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	migrations, err := List(r.Files)
	if err != nil {
		return 0, err
	}
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}
	appliedSet := make(map[int]struct{}, len(applied))
	for _, v := range applied {
		appliedSet[v] = struct{}{}
	}

	count := 0
	for _, m := range migrations {
		if _, ok := appliedSet[m.Version]; ok {
			continue
		}
		if m.UpPath == "" {
			return count, fmt.Errorf("missing up migration for version %d", m.Version)
		}
		if err := r.apply(ctx, m, true); err != nil {
			return count, fmt.Errorf("apply %d_%s: %w", m.Version, m.Name, err)
		}
		r.log("migration applied", m)
		count++
	}
	return count, nil
}

// Down rolls back the latest steps migrations.
func (r *Runner) Down(ctx context.Context, steps int) (int, error) {
	if steps <= 0 {
		return 0, nil
	}
	unlock, err := r.prepare(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	migrations, err := List(r.Files)
	if err != nil {
		return 0, err
	}
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}
	byVersion := make(map[int]Migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	count := 0
	for i := 0; i < steps && i < len(applied); i++ {
		m, ok := byVersion[applied[i]]
		if !ok {
			return count, fmt.Errorf("missing migration for version %d", applied[i])
		}
		if m.DownPath == "" {
			return count, fmt.Errorf("missing down migration for version %d", m.Version)
		}
		if err := r.apply(ctx, m, false); err != nil {
			return count, fmt.Errorf("revert %d_%s: %w", m.Version, m.Name, err)
		}
		r.log("migration reverted", m)
		count++
	}
	return count, nil
}

// List returns the migrations found at the root of files.
func List(files fs.FS) ([]Migration, error) {
	if files == nil {
		return nil, errors.New("migration files are required")
	}
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int]Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		parts := strings.Split(name, ".")
		if len(parts) != 3 || parts[2] != "sql" {
			continue
		}

		versionParts := strings.SplitN(parts[0], "_", 2)
		version, err := strconv.Atoi(versionParts[0])
		if err != nil {
			continue
		}
		migration := byVersion[version]
		migration.Version = version
		if len(versionParts) > 1 {
			migration.Name = versionParts[1]
		}

		switch parts[1] {
		case "up":
			migration.UpPath = name
		case "down":
			migration.DownPath = name
		default:
			continue
		}
		byVersion[version] = migration
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, migration := range byVersion {
		migrations = append(migrations, migration)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func (r *Runner) prepare(ctx context.Context) (func(), error) {
	if r.DB == nil {
		return nil, errors.New("db is required")
	}
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	if r.Locker == nil {
		return func() {}, nil
	}
	if err := r.Locker.Lock(ctx, r.DB); err != nil {
		return nil, err
	}
	return func() { _ = r.Locker.Unlock(ctx, r.DB) }, nil
}

func (r *Runner) ensureTable(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (version BIGINT PRIMARY KEY, name TEXT NOT NULL, applied_at BIGINT NOT NULL)`, r.Table)
	_, err := r.DB.ExecContext(ctx, stmt)
	return err
}

func (r *Runner) appliedVersions(ctx context.Context) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(`SELECT version FROM %s ORDER BY version DESC`, r.Table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *Runner) apply(ctx context.Context, migration Migration, up bool) error {
	path := migration.UpPath
	if !up {
		path = migration.DownPath
	}
	contents, err := fs.ReadFile(r.Files, path)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
		return err
	}

	var stmt string
	var args []any
	if up {
		stmt, args, err = db.Insert(r.Table).
			Dialect(r.Dialect).
			Columns("version", "name", "applied_at").
			Values(migration.Version, migration.Name, time.Now().UnixMilli()).
			Build()
	} else {
		stmt, args, err = db.Delete(r.Table).
			Dialect(r.Dialect).
			Where("version = ?", migration.Version).
			Build()
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Runner) log(msg string, m Migration) {
	if r.Logger == nil {
		return
	}
	r.Logger.Info(msg, slog.Int("version", m.Version), slog.String("name", m.Name))
}
