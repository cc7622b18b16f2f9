package errors

import (
	"errors"
	"fmt"
)

// Common error types for better error handling
var (
	// Validation errors - rejected before any I/O
	ErrMissingURL          = errors.New("missing 'url' parameter")
	ErrInvalidURL          = errors.New("invalid YouTube URL")
	ErrMissingPlaylistName = errors.New("playlist name is required")
	ErrInvalidPlaylistName = errors.New("invalid playlist name")

	// Fetch errors - extraction/transcode failures
	ErrExtractionFailed = errors.New("failed to extract audio stream")
	ErrTranscodeFailed  = errors.New("failed to transcode audio")
	ErrSizeExceeded     = errors.New("audio file exceeds the size limit")

	// Session errors - voice session in the wrong state
	ErrNoVoiceSession    = errors.New("not connected to a voice channel")
	ErrNotInVoiceChannel = errors.New("you must be in a voice channel")
	ErrNothingPlaying    = errors.New("nothing is playing")
	ErrNothingPaused     = errors.New("nothing is paused")

	// Store errors - playlist persistence failures
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrPlaylistExists   = errors.New("playlist already exists")
	ErrNameCollision    = errors.New("playlist name collides with an existing playlist")
	ErrDuplicateSong    = errors.New("song is already in the playlist")

	// Permission errors
	ErrOwnerOnly = errors.New("this command is restricted to the bot owner")
)

// UserError wraps an error with a user-friendly message
type UserError struct {
	Err     error
	Message string
}

func (e *UserError) Error() string {
	return e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func (e *UserError) UserMessage() string {
	return e.Message
}

// NewUserError creates a new user error
func NewUserError(err error, message string) *UserError {
	return &UserError{
		Err:     err,
		Message: message,
	}
}

// WrapUserError wraps an error with a formatted user-facing message
func WrapUserError(err error, format string, args ...interface{}) *UserError {
	return &UserError{
		Err:     err,
		Message: fmt.Sprintf(format, args...),
	}
}

// GetUserMessage extracts a user-friendly message from an error
func GetUserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage()
	}

	switch {
	case errors.Is(err, ErrMissingURL), errors.Is(err, ErrInvalidURL):
		return "🔗 That doesn't look like a valid YouTube URL"
	case errors.Is(err, ErrSizeExceeded):
		return "📦 The audio exceeds the 100 MB limit and was discarded"
	case errors.Is(err, ErrExtractionFailed), errors.Is(err, ErrTranscodeFailed):
		return "❌ Failed to download the audio. Try again or try another video"
	case errors.Is(err, ErrNoVoiceSession):
		return "🔊 I'm not connected to a voice channel"
	case errors.Is(err, ErrNotInVoiceChannel):
		return "🔊 You need to join a voice channel first"
	case errors.Is(err, ErrNothingPlaying):
		return "⏸️ Nothing is playing right now"
	case errors.Is(err, ErrNothingPaused):
		return "▶️ Nothing is paused"
	case errors.Is(err, ErrPlaylistNotFound):
		return "📋 Playlist not found"
	case errors.Is(err, ErrPlaylistExists):
		return "📋 A playlist with that name already exists"
	case errors.Is(err, ErrNameCollision):
		return "📋 That name maps to the same file as an existing playlist - pick another"
	case errors.Is(err, ErrDuplicateSong):
		return "📋 That song is already in the playlist"
	case errors.Is(err, ErrOwnerOnly):
		return "🔒 Only the bot owner can use this command"
	default:
		return "❌ An error occurred. Please try again later"
	}
}
