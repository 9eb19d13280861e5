// Package testutil provides shared test helpers for setting up media
// directories and catalog databases.
package testutil

import (
	"os"
	"testing"

	"github.com/amsel/raido/internal/catalog"
	"github.com/amsel/raido/internal/media"
)

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestMedia creates a temporary media directory with a media.Store.
func TestMedia(t *testing.T) (string, media.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := media.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
