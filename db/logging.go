package db

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// QueryHook receives query timing information.
type QueryHook func(ctx context.Context, query string, args []any, duration time.Duration, err error)

// LoggedDB wraps a database with a query hook.
type LoggedDB struct {
	DB   QueryDB
	Hook QueryHook
}

// WithQueryHook wraps a database with a query hook.
func WithQueryHook(db QueryDB, hook QueryHook) LoggedDB {
	return LoggedDB{DB: db, Hook: hook}
}

// ExecContext executes a statement and emits hook timing.
func (l LoggedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := l.DB.ExecContext(ctx, query, args...)
	l.emit(ctx, query, args, start, err)
	return res, err
}

// QueryContext executes a query and emits hook timing.
func (l LoggedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := l.DB.QueryContext(ctx, query, args...)
	l.emit(ctx, query, args, start, err)
	return rows, err
}

// QueryRowContext executes a row query and emits hook timing. Row errors
// surface at Scan and are not seen by the hook.
func (l LoggedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := l.DB.QueryRowContext(ctx, query, args...)
	l.emit(ctx, query, args, start, nil)
	return row
}

func (l LoggedDB) emit(ctx context.Context, query string, args []any, start time.Time, err error) {
	if l.Hook != nil {
		l.Hook(ctx, query, args, time.Since(start), err)
	}
}

// SlogHook logs failed statements at error level, statements slower than
// slow at warn level and everything else at debug. Arguments are never
// logged.
func SlogHook(logger *slog.Logger, slow time.Duration) QueryHook {
	return func(ctx context.Context, query string, _ []any, duration time.Duration, err error) {
		attrs := []slog.Attr{slog.String("query", query), slog.Duration("duration", duration)}
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			logger.LogAttrs(ctx, slog.LevelError, "query failed", attrs...)
		case slow > 0 && duration >= slow:
			logger.LogAttrs(ctx, slog.LevelWarn, "slow query", attrs...)
		default:
			logger.LogAttrs(ctx, slog.LevelDebug, "query", attrs...)
		}
	}
}
