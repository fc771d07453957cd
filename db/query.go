package db

import (
	"context"
	"database/sql"
	"time"
)

// Execer runs exec statements with context.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Queryer runs queries with context.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// QueryRower runs row queries with context.
type QueryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// QueryDB is satisfied by *sql.DB, *sql.Tx and LoggedDB.
type QueryDB interface {
	Execer
	Queryer
	QueryRower
}

// Helper bounds each statement by Timeout; zero means no bound.
type Helper struct {
	Timeout time.Duration
}

// Exec runs an exec statement.
func (h Helper) Exec(ctx context.Context, db Execer, query string, args ...any) (sql.Result, error) {
	ctx, cancel := WithTimeout(ctx, h.Timeout)
	defer cancel()
	return db.ExecContext(ctx, query, args...)
}

// Query runs a query. The returned cancel must be called after the rows
// are consumed, since the deadline also governs iteration.
func (h Helper) Query(ctx context.Context, db Queryer, query string, args ...any) (*sql.Rows, context.CancelFunc, error) {
	ctx, cancel := WithTimeout(ctx, h.Timeout)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		cancel()
		return nil, func() {}, err
	}
	return rows, cancel, nil
}

// QueryRow runs a row query. Call cancel after Scan.
func (h Helper) QueryRow(ctx context.Context, db QueryRower, query string, args ...any) (*sql.Row, context.CancelFunc) {
	ctx, cancel := WithTimeout(ctx, h.Timeout)
	return db.QueryRowContext(ctx, query, args...), cancel
}

// WithTimeout returns a context with timeout when provided.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
