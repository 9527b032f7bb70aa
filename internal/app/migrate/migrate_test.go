package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestMigrationSourceFallsBackToEmbedded(t *testing.T) {
	fsys, source, err := migrationSource(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != "embedded" {
		t.Fatalf("expected embedded source, got %s", source)
	}
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) < 3 {
		t.Fatalf("expected embedded migrations, got %v", files)
	}
}

func TestMigrationSourcePrefersDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "00001_init.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o600); err != nil {
		t.Fatalf("write migration: %v", err)
	}
	_, source, err := migrationSource(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != dir {
		t.Fatalf("expected %s, got %s", dir, source)
	}
}

func TestNewRejectsMissingPool(t *testing.T) {
	if _, err := New(nil, "postgres://", "", nil); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}
