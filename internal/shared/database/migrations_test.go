package database

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrations.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func countRows(t *testing.T, db *sql.DB, query string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query).Scan(&n); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return n
}

func TestRunMigrationsAppliesOnce(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	migrations := fstest.MapFS{
		"001_items.sql": &fstest.MapFile{Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY);")},
		"002_seed.sql":  &fstest.MapFile{Data: []byte("INSERT INTO items (id) VALUES (1);")},
		"README.md":     &fstest.MapFile{Data: []byte("not a migration")},
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	for i := 0; i < 2; i++ {
		if err := RunMigrations(ctx, db, migrations, DialectSQLite, logger); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if got := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 2 {
		t.Fatalf("expected 2 recorded migrations, got %d", got)
	}
	if got := countRows(t, db, "SELECT COUNT(*) FROM items"); got != 1 {
		t.Fatalf("seed migration should run once, got %d rows", got)
	}
	if !strings.Contains(logs.String(), "migration=001_items.sql") {
		t.Fatalf("migration progress should go to the supplied logger, got %q", logs.String())
	}
}

func TestRunMigrationsDoesNotRecordFailure(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	bad := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{Data: []byte("CREAT TABLE nope (id INTEGER);")},
	}
	if err := RunMigrations(ctx, db, bad, DialectSQLite, discardLogger()); err == nil {
		t.Fatal("expected bad migration to fail")
	}

	if got := countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 0 {
		t.Fatalf("failed migration must not be recorded, got %d", got)
	}
}
