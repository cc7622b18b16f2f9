package janitor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ltdang/musicrelay/pkg/logger"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestDeleteRemovesFile(t *testing.T) {
	dir := t.TempDir()
	j := New(dir, logger.Discard())

	path := filepath.Join(dir, "track.mp3")
	writeFile(t, path)

	j.Delete(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should be gone after Delete")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	j := New(dir, logger.Discard())

	// Deleting a missing file must not panic or error
	j.Delete(filepath.Join(dir, "never-existed.mp3"))
	j.Delete("")
}

func TestSweepRemovesOnlyRegularFiles(t *testing.T) {
	dir := t.TempDir()
	j := New(dir, logger.Discard())

	writeFile(t, filepath.Join(dir, "a.mp3"))
	writeFile(t, filepath.Join(dir, "b.webm"))

	sub := filepath.Join(dir, "keepme")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(sub, "nested.mp3"))

	j.Sweep()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		t.Errorf("expected only the subdirectory to survive, got %d entries", len(entries))
	}
	if _, err := os.Stat(filepath.Join(sub, "nested.mp3")); err != nil {
		t.Error("nested file should not be touched by Sweep")
	}
}

func TestSweepMissingDirectory(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "does-not-exist"), logger.Discard())
	j.Sweep() // must not panic
}
