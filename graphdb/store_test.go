package graphdb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAndClose(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	n, err := store.CountNodes(context.Background())
	if err != nil {
		t.Fatalf("failed to count nodes: %v", err)
	}
	if n != 0 {
		t.Errorf("expected empty store, got %d nodes", n)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if _, err := store.AddNode(ctx, Attributes{"name": "kept"}, "k"); err != nil {
		t.Fatalf("failed to add node: %v", err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer store.Close()

	attrs, err := store.FindNode(ctx, "k")
	if err != nil {
		t.Fatalf("failed to find node: %v", err)
	}
	if attrs["name"] != "kept" {
		t.Errorf("expected 'kept', got '%v'", attrs["name"])
	}
}

func TestDataSource(t *testing.T) {
	dsn := dataSource("graph.db")
	if !strings.HasPrefix(dsn, "file:graph.db?") {
		t.Errorf("unexpected dsn %s", dsn)
	}
	if !strings.Contains(dsn, "_txlock=immediate") {
		t.Errorf("expected immediate transactions in %s", dsn)
	}
	if !strings.Contains(dsn, "journal_mode%28WAL%29") {
		t.Errorf("expected WAL in %s", dsn)
	}

	if strings.Contains(dataSource(memoryPath), "journal_mode") {
		t.Error("in-memory databases should not request WAL")
	}
}
