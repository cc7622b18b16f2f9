package cookies

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/ltdang/musicrelay/internal/errors"
	"github.com/ltdang/musicrelay/pkg/logger"
)

// Store manages the Netscape cookies.txt file handed to the extraction tool.
// The file is optional: when absent, the fetcher simply skips its
// cookie-backed strategy.
type Store struct {
	path   string
	logger *logger.Logger
	mu     sync.RWMutex
}

// New creates a cookie store persisting at path
func New(path string, log *logger.Logger) *Store {
	return &Store{
		path:   path,
		logger: log,
	}
}

// Path returns the cookies file location
func (s *Store) Path() string {
	return s.path
}

// Present reports whether a non-empty cookies file exists
func (s *Store) Present() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(s.path)
	return err == nil && info.Size() > 0
}

// SetFromText stores the given cookies.txt content
func (s *Store) SetFromText(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeAtomic([]byte(content)); err != nil {
		return err
	}

	s.logger.WithField("bytes", len(content)).Info("Cookies updated from text")
	return nil
}

// SetFromURL downloads cookies.txt content from url (a message attachment)
// and stores it
func (s *Store) SetFromURL(url string) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to download cookies attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download cookies attachment: status %d", resp.StatusCode)
	}

	// Cookie files are small; anything past 5 MB is not a cookies.txt
	content, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return fmt.Errorf("failed to read cookies attachment: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeAtomic(content); err != nil {
		return err
	}

	s.logger.WithField("bytes", len(content)).Info("Cookies updated from attachment")
	return nil
}

// Clear removes the stored cookies file
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cookies file: %w", err)
	}

	s.logger.Info("Cookies cleared")
	return nil
}

// Export returns the stored cookies as a base64 string for portable transfer
func (s *Store) Export() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.NewUserError(err, "📭 No cookies are stored")
		}
		return "", fmt.Errorf("failed to read cookies file: %w", err)
	}

	return base64.StdEncoding.EncodeToString(content), nil
}

// writeAtomic writes content via a temp file and rename so a failed write
// never leaves a truncated cookies file behind
func (s *Store) writeAtomic(content []byte) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cookies directory: %w", err)
		}
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write cookies file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace cookies file: %w", err)
	}

	return nil
}
