package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ltdang/musicrelay/internal/errors"
)

var (
	// Accepts watch and shorts URLs on youtube.com plus youtu.be short links
	youtubePattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/(watch\?v=|shorts/)[\w-]+(\?\S*)?(&\S*)?|youtu\.be/[\w-]+(\?\S*)?)$`)

	playlistNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)
)

// ValidateYouTubeURL rejects anything that is not a single-video YouTube URL
func ValidateYouTubeURL(input string) error {
	input = SanitizeInput(input)
	if input == "" {
		return errors.ErrMissingURL
	}
	if !youtubePattern.MatchString(input) {
		return errors.ErrInvalidURL
	}
	return nil
}

// IsYouTubeURL checks if the input looks like a YouTube URL
func IsYouTubeURL(input string) bool {
	return youtubePattern.MatchString(SanitizeInput(input))
}

// ValidatePlaylistName validates a playlist name
func ValidatePlaylistName(name string) error {
	name = SanitizeInput(name)

	if name == "" {
		return errors.ErrMissingPlaylistName
	}

	if len(name) > 100 {
		return fmt.Errorf("%w: name too long (max 100 characters)", errors.ErrInvalidPlaylistName)
	}

	if !playlistNamePattern.MatchString(name) {
		return fmt.Errorf("%w: only letters, digits, spaces, hyphens and underscores are allowed", errors.ErrInvalidPlaylistName)
	}

	return nil
}

// SanitizeInput removes null bytes and surrounding whitespace from user input
func SanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}

// TruncateString safely truncates a string to max length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	if maxLen > 3 {
		s = s[:maxLen-3]
		if idx := strings.LastIndexAny(s, " \t\n"); idx > 0 {
			s = s[:idx]
		}
		return s + "..."
	}

	return s[:maxLen]
}
