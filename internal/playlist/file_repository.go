package playlist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/ltdang/musicrelay/internal/errors"
)

// FileRepository stores each playlist as one JSON document in a directory.
// Documents are named by a sanitized form of the playlist name; two names
// that sanitize to the same key are treated as a collision at Create time
// rather than silently sharing a document.
type FileRepository struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileRepository creates a repository rooted at basePath
func NewFileRepository(basePath string) (*FileRepository, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create playlist directory: %w", err)
	}

	return &FileRepository{basePath: basePath}, nil
}

// Create makes an empty playlist document
func (r *FileRepository) Create(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.read(name)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Name == name {
			return apperrors.ErrPlaylistExists
		}
		// A different name sanitizes to the same file
		return fmt.Errorf("%w: %q vs %q", apperrors.ErrNameCollision, name, existing.Name)
	}

	return r.write(&Playlist{Name: name, Songs: []Song{}})
}

// Append adds a song to an existing playlist
func (r *FileRepository) Append(_ context.Context, name string, song Song) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pl, err := r.read(name)
	if err != nil {
		return err
	}
	if pl == nil || pl.Name != name {
		return apperrors.ErrPlaylistNotFound
	}

	for _, s := range pl.Songs {
		if s.URL == song.URL {
			return apperrors.ErrDuplicateSong
		}
	}

	pl.Songs = append(pl.Songs, song)
	return r.write(pl)
}

// Load returns a playlist's contents
func (r *FileRepository) Load(_ context.Context, name string) (*Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pl, err := r.read(name)
	if err != nil {
		return nil, err
	}
	if pl == nil || pl.Name != name {
		return nil, apperrors.ErrPlaylistNotFound
	}
	return pl, nil
}

// Delete removes a playlist document
func (r *FileRepository) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pl, err := r.read(name)
	if err != nil {
		return err
	}
	if pl == nil || pl.Name != name {
		return apperrors.ErrPlaylistNotFound
	}

	if err := os.Remove(r.filePath(name)); err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return nil
}

// List returns every stored playlist with its song count
func (r *FileRepository) List(_ context.Context) ([]Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist directory: %w", err)
	}

	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		pl, err := r.readFile(filepath.Join(r.basePath, entry.Name()))
		if err != nil {
			// A corrupt document should not hide the rest
			continue
		}
		summaries = append(summaries, Summary{Name: pl.Name, Count: len(pl.Songs)})
	}

	return summaries, nil
}

// read returns the document stored under name's sanitized key, or nil when
// none exists
func (r *FileRepository) read(name string) (*Playlist, error) {
	pl, err := r.readFile(r.filePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return pl, nil
}

func (r *FileRepository) readFile(path string) (*Playlist, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var pl Playlist
	if err := json.NewDecoder(file).Decode(&pl); err != nil {
		return nil, fmt.Errorf("failed to decode playlist: %w", err)
	}
	return &pl, nil
}

// write persists a playlist atomically via temp file and rename
func (r *FileRepository) write(pl *Playlist) error {
	filePath := r.filePath(pl.Name)
	tempPath := filePath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(pl); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode playlist: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace playlist file: %w", err)
	}
	return nil
}

func (r *FileRepository) filePath(name string) string {
	return filepath.Join(r.basePath, sanitizeName(name)+".json")
}

// sanitizeName maps a playlist name onto a safe filename character set
func sanitizeName(name string) string {
	var b strings.Builder
	for _, char := range name {
		if (char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '-' || char == '_' {
			b.WriteRune(char)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
