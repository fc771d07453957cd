package db

import (
	"context"
	"database/sql"
	"testing"
	"time"
)

type deadlineRecorder struct {
	stubQueryDB
	hadDeadline bool
}

func (d *deadlineRecorder) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	_, d.hadDeadline = ctx.Deadline()
	return stubResult{}, nil
}

func TestHelperAppliesTimeout(t *testing.T) {
	rec := &deadlineRecorder{}
	if _, err := (Helper{Timeout: time.Second}).Exec(context.Background(), rec, "SELECT 1"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if !rec.hadDeadline {
		t.Fatalf("expected deadline")
	}

	rec = &deadlineRecorder{}
	if _, err := (Helper{}).Exec(context.Background(), rec, "SELECT 1"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if rec.hadDeadline {
		t.Fatalf("expected no deadline when timeout is zero")
	}
}

func TestWithTimeoutNilContext(t *testing.T) {
	ctx, cancel := WithTimeout(nil, 0)
	defer cancel()
	if ctx == nil {
		t.Fatalf("expected background context")
	}
}

func TestDriverName(t *testing.T) {
	cases := map[string]string{BackendPostgres: "pgx", BackendSQLite: "sqlite"}
	for backend, want := range cases {
		got, err := DriverName(backend)
		if err != nil || got != want {
			t.Fatalf("DriverName(%q) = %q, %v", backend, got, err)
		}
	}
	if _, err := DriverName("mysql"); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
	if DialectFor(BackendPostgres) != DialectDollar || DialectFor(BackendSQLite) != DialectQuestion {
		t.Fatalf("unexpected dialects")
	}
}
