package stores

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"colony-server/internal/colony"
	"colony-server/internal/colony/sqlitestore"
	"colony-server/internal/shared/config"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenMemory(t *testing.T) {
	cfg := &config.Config{Claims: config.ClaimsConfig{Store: "memory"}}

	store, closeFn, err := Open(context.Background(), cfg, discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeFn()

	if _, ok := store.(*colony.CompareAndSetStore); !ok {
		t.Fatalf("expected compare-and-set store, got %T", store)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestOpenSQLite(t *testing.T) {
	cfg := &config.Config{
		Claims: config.ClaimsConfig{Store: "sqlite"},
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "nested", "colonies.db")},
	}

	store, closeFn, err := Open(context.Background(), cfg, discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeFn()

	if _, ok := store.(*sqlitestore.Store); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
}

func TestOpenUnknown(t *testing.T) {
	cfg := &config.Config{Claims: config.ClaimsConfig{Store: "etcd"}}
	if _, _, err := Open(context.Background(), cfg, discard()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
