package migrate

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"

	"github.com/bigyanadk07/BugTracker/db"
)

func files() fstest.MapFS {
	return fstest.MapFS{
		"0001_init.up.sql":     {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
		"0001_init.down.sql":   {Data: []byte("DROP TABLE widgets;")},
		"0002_extra.up.sql":    {Data: []byte("CREATE TABLE gadgets (id TEXT PRIMARY KEY); CREATE INDEX gadgets_id ON gadgets (id);")},
		"0002_extra.down.sql":  {Data: []byte("DROP TABLE gadgets;")},
		"README.md":            {Data: []byte("ignored")},
		"0003_broken.side.sql": {Data: []byte("ignored")},
	}
}

func TestListMigrations(t *testing.T) {
	migrations, err := List(files())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "init" || migrations[1].DownPath != "0002_extra.down.sql" {
		t.Fatalf("unexpected migrations %+v", migrations)
	}
}

func TestPlanWithoutDB(t *testing.T) {
	plan, err := New(nil, files(), db.DialectQuestion).Plan(context.Background())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan) != 2 || plan[0].Applied || plan[1].Applied {
		t.Fatalf("expected two pending entries, got %+v", plan)
	}
}

func TestUpDownSQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	conn.SetMaxOpenConns(1)

	runner := New(conn, files(), db.DialectQuestion)

	applied, err := runner.Up(ctx)
	if err != nil || applied != 2 {
		t.Fatalf("up: %d, %v", applied, err)
	}
	applied, err = runner.Up(ctx)
	if err != nil || applied != 0 {
		t.Fatalf("second up: %d, %v", applied, err)
	}
	if _, err := conn.ExecContext(ctx, "INSERT INTO gadgets (id) VALUES ('g1')"); err != nil {
		t.Fatalf("expected gadgets table: %v", err)
	}

	reverted, err := runner.Down(ctx, 1)
	if err != nil || reverted != 1 {
		t.Fatalf("down: %d, %v", reverted, err)
	}
	plan, err := runner.Plan(ctx)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !plan[0].Applied || plan[1].Applied {
		t.Fatalf("expected only first migration applied, got %+v", plan)
	}
	if _, err := conn.ExecContext(ctx, "INSERT INTO gadgets (id) VALUES ('g2')"); err == nil {
		t.Fatalf("expected gadgets table to be gone")
	}
}
