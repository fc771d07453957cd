package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Options configures database connection pooling.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// Backends accepted by Open.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// DriverName maps a backend to its registered database/sql driver.
func DriverName(backend string) (string, error) {
	switch backend {
	case BackendPostgres:
		return "pgx", nil
	case BackendSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database backend %q", backend)
	}
}

// DialectFor returns the placeholder style of a backend.
func DialectFor(backend string) Dialect {
	if backend == BackendPostgres {
		return DialectDollar
	}
	return DialectQuestion
}

// Open opens a database for backend, applies options and pings it.
func Open(backend, dsn string, options Options) (*sql.DB, error) {
	driver, err := DriverName(backend)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if options.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(options.MaxOpenConns)
	}
	if options.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(options.MaxIdleConns)
	}
	if options.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(options.ConnMaxLifetime)
	}
	if options.ConnMaxIdleTime > 0 {
		conn.SetConnMaxIdleTime(options.ConnMaxIdleTime)
	}

	pingTimeout := options.PingTimeout
	if pingTimeout == 0 {
		pingTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", backend, err)
	}
	return conn, nil
}
