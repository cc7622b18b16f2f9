package commands

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/ltdang/musicrelay/internal/config"
	"github.com/ltdang/musicrelay/internal/cookies"
	"github.com/ltdang/musicrelay/internal/coordinator"
	apperrors "github.com/ltdang/musicrelay/internal/errors"
	"github.com/ltdang/musicrelay/internal/fetcher"
	"github.com/ltdang/musicrelay/internal/janitor"
	"github.com/ltdang/musicrelay/internal/playlist"
	"github.com/ltdang/musicrelay/pkg/logger"
)

// Handler routes prefix text commands to the bot's services
type Handler struct {
	session     *discordgo.Session
	coordinator *coordinator.Coordinator
	voice       VoiceConnector
	fetcher     *fetcher.Fetcher
	playlists   *playlist.Service
	cookies     *cookies.Store
	cleaner     *janitor.Janitor
	logger      *logger.Logger
	config      *config.Config

	// Last text channel a command came from, per guild. Playback events
	// with no originating command are announced there.
	announceChannels map[string]string
	announceMu       sync.RWMutex
}

// VoiceConnector joins voice channels; the rest of voice control flows
// through the coordinator
type VoiceConnector interface {
	Connect(guildID, channelID string) error
	IsConnected(guildID string) bool
}

// NewHandler creates the command handler
func NewHandler(
	session *discordgo.Session,
	coord *coordinator.Coordinator,
	voice VoiceConnector,
	f *fetcher.Fetcher,
	playlists *playlist.Service,
	ck *cookies.Store,
	cleaner *janitor.Janitor,
	log *logger.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		session:          session,
		coordinator:      coord,
		voice:            voice,
		fetcher:          f,
		playlists:        playlists,
		cookies:          ck,
		cleaner:          cleaner,
		logger:           log,
		config:           cfg,
		announceChannels: make(map[string]string),
	}
}

// HandleMessage is the MessageCreate listener
func (h *Handler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot || m.GuildID == "" {
		return
	}
	if !strings.HasPrefix(m.Content, h.config.CommandPrefix) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.WithField("panic", r).Error("Recovered from panic in command handler")
			h.reply(m, "❌ An internal error occurred")
		}
	}()

	fields := strings.Fields(strings.TrimPrefix(m.Content, h.config.CommandPrefix))
	if len(fields) == 0 {
		return
	}
	command := strings.ToLower(fields[0])
	args := fields[1:]

	h.trackAnnounceChannel(m.GuildID, m.ChannelID)

	h.logger.WithFields(map[string]interface{}{
		"command": command,
		"guild":   m.GuildID,
		"user":    m.Author.Username,
	}).Info("Command received")

	var err error
	switch command {
	case "play", "p":
		err = h.handlePlay(s, m, args)
	case "pause":
		err = h.handlePause(m)
	case "resume":
		err = h.handleResume(m)
	case "skip", "s":
		err = h.handleSkip(m)
	case "stop":
		err = h.handleStop(m)
	case "queue", "q":
		err = h.handleQueue(m)
	case "clearqueue", "cq":
		err = h.handleClearQueue(m)
	case "playlist", "pl":
		err = h.handlePlaylist(s, m, args)
	case "setcookies":
		err = h.handleSetCookies(m, args)
	case "clearcookies":
		err = h.handleClearCookies(m)
	case "exportcookies":
		err = h.handleExportCookies(m)
	case "help", "h":
		err = h.handleHelp(m)
	default:
		// Not a command of ours; stay silent
		return
	}

	if err != nil {
		h.logger.WithError(err).WithField("command", command).Error("Command failed")
		h.reply(m, apperrors.GetUserMessage(err))
	}
}

// Announce implements the coordinator's Announcer: playback events land in
// the channel the guild last commanded from
func (h *Handler) Announce(guildID, message string) {
	h.announceMu.RLock()
	channelID, exists := h.announceChannels[guildID]
	h.announceMu.RUnlock()

	if !exists {
		return
	}
	if _, err := h.session.ChannelMessageSend(channelID, message); err != nil {
		h.logger.WithError(err).WithField("guild", guildID).Warn("Failed to announce playback event")
	}
}

func (h *Handler) trackAnnounceChannel(guildID, channelID string) {
	h.announceMu.Lock()
	h.announceChannels[guildID] = channelID
	h.announceMu.Unlock()
}

// getUserVoiceChannel finds the voice channel the message author is in
func (h *Handler) getUserVoiceChannel(s *discordgo.Session, guildID, userID string) (string, error) {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve guild state: %w", err)
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID, nil
		}
	}
	return "", apperrors.ErrNotInVoiceChannel
}

func (h *Handler) isOwner(userID string) bool {
	return h.config.OwnerID != "" && userID == h.config.OwnerID
}
