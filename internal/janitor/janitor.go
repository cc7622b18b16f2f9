package janitor

import (
	"os"
	"path/filepath"

	"github.com/ltdang/musicrelay/pkg/logger"
)

// Janitor removes transient media files. Every operation is best-effort:
// missing files and filesystem races are swallowed, never surfaced to
// playback paths.
type Janitor struct {
	dir    string
	logger *logger.Logger
}

// New creates a janitor bound to the downloads directory
func New(dir string, log *logger.Logger) *Janitor {
	return &Janitor{
		dir:    dir,
		logger: log,
	}
}

// Dir returns the directory this janitor sweeps
func (j *Janitor) Dir() string {
	return j.dir
}

// Delete removes a file if present. Idempotent; a missing file is not an error.
func (j *Janitor) Delete(path string) {
	if path == "" {
		return
	}

	err := os.Remove(path)
	switch {
	case err == nil:
		j.logger.WithField("path", path).Debug("Deleted media file")
	case os.IsNotExist(err):
		// Already gone, fine
	default:
		j.logger.WithError(err).WithField("path", path).Warn("Failed to delete media file")
	}
}

// Sweep deletes every regular file directly inside the downloads directory.
// Used as coarse pre-flight cleanup to bound disk usage from orphaned files
// left behind by a crash. Not transactional; unique per-fetch filenames keep
// races with an in-flight fetch harmless.
func (j *Janitor) Sweep() {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			j.logger.WithError(err).WithField("dir", j.dir).Warn("Failed to read downloads directory")
		}
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, entry.Name())); err == nil {
			removed++
		}
	}

	if removed > 0 {
		j.logger.WithFields(map[string]interface{}{
			"dir":     j.dir,
			"removed": removed,
		}).Info("Swept stale media files")
	}
}
