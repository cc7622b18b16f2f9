package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/ltdang/musicrelay/pkg/logger"
)

// ErrGuildNotFound is returned when a guild has no voice resources
var ErrGuildNotFound = errors.New("guild not found")

// CompletionHandler receives the playback-ended signal for a guild. It runs
// on the playback goroutine, after the player has torn its state down, so it
// may start a new playback for the same guild.
type CompletionHandler func(guildID, path string)

// Service manages voice connections and players across all guilds. It is
// the playback coordinator's transport: Play, Pause, Resume, Stop and
// Disconnect satisfy its Voice dependency.
type Service struct {
	session    *discordgo.Session
	ffmpegPath string
	logger     *logger.Logger

	onComplete CompletionHandler

	mu          sync.RWMutex
	connections map[string]*Connection
	players     map[string]*Player
}

// NewService creates the voice transport service
func NewService(session *discordgo.Session, ffmpegPath string, log *logger.Logger) *Service {
	return &Service{
		session:     session,
		ffmpegPath:  ffmpegPath,
		logger:      log,
		connections: make(map[string]*Connection),
		players:     make(map[string]*Player),
	}
}

// SetCompletionHandler installs the playback-ended callback. Must be called
// before the first Play.
func (s *Service) SetCompletionHandler(h CompletionHandler) {
	s.onComplete = h
}

// Connect joins a voice channel in the guild, creating the guild's player
// on first use
func (s *Service) Connect(guildID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, exists := s.connections[guildID]
	if !exists {
		conn = NewConnection(guildID, s.logger)
		s.connections[guildID] = conn
	}

	if err := conn.Connect(s.session, channelID); err != nil {
		return err
	}

	if _, exists := s.players[guildID]; !exists {
		encoder := NewEncoder(s.ffmpegPath, s.logger)
		s.players[guildID] = NewPlayer(guildID, conn, encoder, s.logger)
	}
	return nil
}

// IsConnected reports whether the guild has a live voice connection
func (s *Service) IsConnected(guildID string) bool {
	s.mu.RLock()
	conn, exists := s.connections[guildID]
	s.mu.RUnlock()

	return exists && conn.IsConnected()
}

// ChannelID returns the guild's connected voice channel, or empty
func (s *Service) ChannelID(guildID string) string {
	s.mu.RLock()
	conn, exists := s.connections[guildID]
	s.mu.RUnlock()

	if !exists {
		return ""
	}
	return conn.ChannelID()
}

// Play streams the file at path into the guild's voice channel
func (s *Service) Play(guildID, path string) error {
	player, err := s.player(guildID)
	if err != nil {
		return err
	}

	return player.Play(path, func(finished string) {
		if s.onComplete != nil {
			s.onComplete(guildID, finished)
		}
	})
}

// Pause suspends the guild's playback
func (s *Service) Pause(guildID string) error {
	player, err := s.player(guildID)
	if err != nil {
		return err
	}
	return player.Pause()
}

// Resume continues the guild's paused playback
func (s *Service) Resume(guildID string) error {
	player, err := s.player(guildID)
	if err != nil {
		return err
	}
	return player.Resume()
}

// Stop ends the guild's playback, triggering the completion handler
func (s *Service) Stop(guildID string) error {
	player, err := s.player(guildID)
	if err != nil {
		return err
	}
	return player.Stop()
}

// Disconnect leaves the guild's voice channel, stopping any playback first
func (s *Service) Disconnect(guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if player, exists := s.players[guildID]; exists && player.IsPlaying() {
		if err := player.Stop(); err != nil {
			s.logger.WithError(err).WithField("guild", guildID).Warn("Failed to stop player before disconnect")
		}
	}

	conn, exists := s.connections[guildID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrGuildNotFound, guildID)
	}
	if err := conn.Disconnect(); err != nil && !errors.Is(err, ErrNotConnected) {
		return err
	}
	return nil
}

// CleanupAll stops every player and tears down every voice connection.
// Called on shutdown.
func (s *Service) CleanupAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for guildID, player := range s.players {
		if player.IsPlaying() {
			if err := player.Stop(); err != nil {
				s.logger.WithError(err).WithField("guild", guildID).Warn("Failed to stop player")
			}
		}
	}
	s.players = make(map[string]*Player)

	for guildID, conn := range s.connections {
		if err := conn.Disconnect(); err != nil && !errors.Is(err, ErrNotConnected) {
			s.logger.WithError(err).WithField("guild", guildID).Warn("Failed to disconnect voice")
		}
	}
	s.connections = make(map[string]*Connection)

	s.logger.Info("All voice resources released")
}

func (s *Service) player(guildID string) (*Player, error) {
	s.mu.RLock()
	player, exists := s.players[guildID]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrGuildNotFound, guildID)
	}
	return player, nil
}
