package playlist

import (
	"context"

	"github.com/ltdang/musicrelay/internal/validation"
	"github.com/ltdang/musicrelay/pkg/logger"
)

// Service validates inputs before they reach the repository
type Service struct {
	repo   Repository
	logger *logger.Logger
}

// NewService creates a playlist service over the given backend
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log,
	}
}

// Create makes a new empty playlist
func (s *Service) Create(ctx context.Context, name string) error {
	if err := validation.ValidatePlaylistName(name); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, name); err != nil {
		return err
	}

	s.logger.WithField("playlist", name).Info("Playlist created")
	return nil
}

// AddSong appends a song to a playlist
func (s *Service) AddSong(ctx context.Context, name, url, title string) error {
	if err := validation.ValidatePlaylistName(name); err != nil {
		return err
	}
	if err := validation.ValidateYouTubeURL(url); err != nil {
		return err
	}

	if err := s.repo.Append(ctx, name, Song{URL: url, Title: title}); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"playlist": name,
		"url":      url,
	}).Info("Song added to playlist")
	return nil
}

// Get loads a playlist's songs
func (s *Service) Get(ctx context.Context, name string) (*Playlist, error) {
	if err := validation.ValidatePlaylistName(name); err != nil {
		return nil, err
	}
	return s.repo.Load(ctx, name)
}

// Delete removes a playlist
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := validation.ValidatePlaylistName(name); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}

	s.logger.WithField("playlist", name).Info("Playlist deleted")
	return nil
}

// List returns all stored playlists
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.repo.List(ctx)
}
