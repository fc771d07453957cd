package sqlstore

import (
	"database/sql"
	"embed"
	"io/fs"
	"log/slog"
	"time"

	"github.com/bigyanadk07/BugTracker/db"
	"github.com/bigyanadk07/BugTracker/migrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// advisoryLockID identifies the migration lock on postgres.
const advisoryLockID = 0x6275677472

// Migrations returns the embedded schema migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrator returns a runner for the embedded migrations. On postgres it
// serializes concurrent runners with an advisory lock.
func Migrator(conn *sql.DB, backend string, logger *slog.Logger) *migrate.Runner {
	runner := migrate.New(conn, Migrations(), db.DialectFor(backend))
	runner.Logger = logger
	if backend == db.BackendPostgres {
		runner.Locker = migrate.AdvisoryLocker{ID: advisoryLockID, Timeout: 30 * time.Second}
	}
	return runner
}
