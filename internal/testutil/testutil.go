// Package testutil provides shared test helpers for setting up output
// directories, run history and publishers.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/suntyn/sitegen/internal/catalog"
	"github.com/suntyn/sitegen/internal/history"
	"github.com/suntyn/sitegen/internal/publisher"
	"github.com/suntyn/sitegen/internal/sitemap"
	"github.com/suntyn/sitegen/internal/storage"
)

// BaseURL is the site origin used by test builders.
const BaseURL = "https://suntyn-ai.com"

// Quiet is a logger that discards everything.
var Quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// TestHistory creates a temporary run-history database that is
// automatically cleaned up.
func TestHistory(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "sitegen-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestOutput creates a temporary output directory with a storage.Provider.
func TestOutput(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// SmallCatalog is the two-page, one-tool catalog used across tests.
func SmallCatalog() *catalog.Catalog {
	return catalog.New([]string{"/", "/about"}, []string{"pdf-merger"})
}

// TestPublisher wires a publisher over store for SmallCatalog. rec may be
// nil.
func TestPublisher(t *testing.T, store storage.Provider, rec history.Recorder) *publisher.Publisher {
	t.Helper()
	opts := []publisher.Option{publisher.WithLogger(Quiet)}
	if rec != nil {
		opts = append(opts, publisher.WithRecorder(rec))
	}
	return publisher.New(sitemap.NewBuilder(BaseURL, SmallCatalog()), store, opts...)
}
