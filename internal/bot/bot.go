package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/ltdang/musicrelay/internal/api"
	"github.com/ltdang/musicrelay/internal/audio"
	"github.com/ltdang/musicrelay/internal/commands"
	"github.com/ltdang/musicrelay/internal/config"
	"github.com/ltdang/musicrelay/internal/cookies"
	"github.com/ltdang/musicrelay/internal/coordinator"
	"github.com/ltdang/musicrelay/internal/database"
	"github.com/ltdang/musicrelay/internal/fetcher"
	"github.com/ltdang/musicrelay/internal/janitor"
	"github.com/ltdang/musicrelay/internal/playlist"
	"github.com/ltdang/musicrelay/pkg/logger"
)

// Bot wires the Discord session, playback coordinator, HTTP API and their
// collaborators together
type Bot struct {
	config  *config.Config
	logger  *logger.Logger
	session *discordgo.Session

	db          *database.DB
	cookieStore *cookies.Store
	cleaner     *janitor.Janitor
	fetcher     *fetcher.Fetcher
	audio       *audio.Service
	coordinator *coordinator.Coordinator
	playlists   *playlist.Service
	cmdHandler  *commands.Handler
	apiServer   *api.Server
}

// New builds the bot and all of its services
func New(cfg *config.Config, log *logger.Logger) (*Bot, error) {
	log.WithField("token", cfg.GetSafeToken()).Debug("Creating Discord session")
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent
	session.StateEnabled = true

	var db *database.DB
	if cfg.UseDatabase {
		ctx := context.Background()
		db, err = database.Connect(ctx, database.DefaultConfig(cfg.DatabaseURL), log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	cookieStore := cookies.New(cfg.CookiesFile, log)
	cleaner := janitor.New(cfg.DownloadDir, log)

	mediaFetcher, err := fetcher.New(cfg.DownloadDir, cfg.FFmpegPath, cfg.MaxAudioFileBytes(), cookieStore, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("failed to create media fetcher: %w", err)
	}

	audioService := audio.NewService(session, cfg.FFmpegPath, log)
	coord := coordinator.New(mediaFetcher, audioService, cleaner, log)
	audioService.SetCompletionHandler(coord.HandleCompletion)

	var repo playlist.Repository
	if cfg.UseDatabase && db != nil {
		repo = playlist.NewPGRepository(db)
		log.Info("Using Postgres playlist storage")
	} else {
		repo, err = playlist.NewFileRepository(cfg.PlaylistDir)
		if err != nil {
			if db != nil {
				db.Close()
			}
			return nil, fmt.Errorf("failed to create playlist repository: %w", err)
		}
		log.Info("Using file-based playlist storage")
	}
	playlistService := playlist.NewService(repo, log)

	cmdHandler := commands.NewHandler(session, coord, audioService, mediaFetcher, playlistService, cookieStore, cleaner, log, cfg)
	coord.SetAnnouncer(cmdHandler)

	apiServer := api.New(cfg.HTTPAddr, mediaFetcher, log)

	b := &Bot{
		config:      cfg,
		logger:      log,
		session:     session,
		db:          db,
		cookieStore: cookieStore,
		cleaner:     cleaner,
		fetcher:     mediaFetcher,
		audio:       audioService,
		coordinator: coord,
		playlists:   playlistService,
		cmdHandler:  cmdHandler,
		apiServer:   apiServer,
	}

	session.AddHandler(b.onReady)
	session.AddHandler(cmdHandler.HandleMessage)
	session.AddHandler(b.onVoiceStateUpdate)

	return b, nil
}

// Start opens the Discord connection and the HTTP API
func (b *Bot) Start() error {
	// Clear any files orphaned by a previous crash
	b.cleaner.Sweep()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	go func() {
		if err := b.apiServer.Start(); err != nil {
			b.logger.WithError(err).Error("HTTP API stopped")
		}
	}()

	return nil
}

// Stop shuts everything down in dependency order: playback state first so
// the voice teardown's completion signals are discarded, then transports.
func (b *Bot) Stop() {
	b.logger.Info("Shutting down...")

	b.coordinator.Shutdown()
	b.audio.CleanupAll()

	if err := b.apiServer.Shutdown(); err != nil {
		b.logger.WithError(err).Warn("Failed to stop HTTP API")
	}

	if b.db != nil {
		b.db.Close()
	}

	if err := b.session.Close(); err != nil {
		b.logger.WithError(err).Error("Failed to close Discord session")
	}

	b.cleaner.Sweep()
}

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Infof("Logged in as %s#%s, serving %d guilds",
		event.User.Username, event.User.Discriminator, len(event.Guilds))

	status := b.config.CommandPrefix + "help"
	if err := s.UpdateGameStatus(0, status); err != nil {
		b.logger.WithError(err).Warn("Failed to update status")
	}
}

// onVoiceStateUpdate disconnects when the bot is left alone in a voice
// channel
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if event.UserID == s.State.User.ID {
		return
	}

	botChannelID := b.audio.ChannelID(event.GuildID)
	if botChannelID == "" {
		return
	}

	// Only user departures from the bot's channel matter
	if event.BeforeUpdate == nil || event.BeforeUpdate.ChannelID != botChannelID {
		return
	}

	guild, err := s.State.Guild(event.GuildID)
	if err != nil {
		return
	}

	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != botChannelID || vs.UserID == s.State.User.ID {
			continue
		}
		member, err := s.GuildMember(event.GuildID, vs.UserID)
		if err != nil || member.User == nil || !member.User.Bot {
			return // someone is still listening
		}
	}

	b.logger.WithField("guild", event.GuildID).Info("Voice channel empty, disconnecting")
	if err := b.coordinator.StopAll(event.GuildID); err != nil {
		b.logger.WithError(err).Debug("Nothing to stop on empty channel")
	}
}
