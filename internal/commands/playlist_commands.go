package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	apperrors "github.com/ltdang/musicrelay/internal/errors"
	"github.com/ltdang/musicrelay/internal/validation"
)

func (h *Handler) handlePlaylist(s *discordgo.Session, m *discordgo.MessageCreate, args []string) error {
	if len(args) == 0 {
		h.reply(m, "Usage: `playlist create|add|play|show|delete|list`")
		return nil
	}

	sub := strings.ToLower(args[0])
	rest := args[1:]

	switch sub {
	case "create":
		return h.handlePlaylistCreate(m, rest)
	case "add":
		return h.handlePlaylistAdd(m, rest)
	case "play":
		return h.handlePlaylistPlay(s, m, rest)
	case "show":
		return h.handlePlaylistShow(m, rest)
	case "delete":
		return h.handlePlaylistDelete(m, rest)
	case "list":
		return h.handlePlaylistList(m)
	default:
		h.reply(m, fmt.Sprintf("Unknown playlist subcommand `%s`", sub))
		return nil
	}
}

func (h *Handler) handlePlaylistCreate(m *discordgo.MessageCreate, args []string) error {
	name := strings.Join(args, " ")
	if name == "" {
		return apperrors.ErrMissingPlaylistName
	}

	if err := h.playlists.Create(context.Background(), name); err != nil {
		return err
	}
	h.replySuccess(m, fmt.Sprintf("Created playlist **%s**", name))
	return nil
}

func (h *Handler) handlePlaylistAdd(m *discordgo.MessageCreate, args []string) error {
	// The URL is the last argument; everything before it is the name
	if len(args) < 2 {
		h.reply(m, "Usage: `playlist add <name> <url>`")
		return nil
	}
	url := args[len(args)-1]
	name := strings.Join(args[:len(args)-1], " ")
	if !validation.IsYouTubeURL(url) {
		h.reply(m, "Usage: `playlist add <name> <url>` (the URL comes last)")
		return nil
	}

	title := h.probeTitle(url)
	if err := h.playlists.AddSong(context.Background(), name, url, title); err != nil {
		return err
	}

	shown := title
	if shown == "" {
		shown = url
	}
	h.replySuccess(m, fmt.Sprintf("Added **%s** to playlist **%s**", shown, name))
	return nil
}

func (h *Handler) handlePlaylistPlay(s *discordgo.Session, m *discordgo.MessageCreate, args []string) error {
	name := strings.Join(args, " ")
	if name == "" {
		return apperrors.ErrMissingPlaylistName
	}

	pl, err := h.playlists.Get(context.Background(), name)
	if err != nil {
		return err
	}
	if len(pl.Songs) == 0 {
		h.reply(m, fmt.Sprintf("📋 Playlist **%s** is empty", name))
		return nil
	}

	channelID, err := h.getUserVoiceChannel(s, m.GuildID, m.Author.ID)
	if err != nil {
		return err
	}
	if !h.coordinator.HasCurrentFiles() {
		h.cleaner.Sweep()
	}
	if err := h.voice.Connect(m.GuildID, channelID); err != nil {
		return err
	}

	h.reply(m, fmt.Sprintf("📋 Loading **%s** (%d songs)...", name, len(pl.Songs)))

	queued := 0
	for _, song := range pl.Songs {
		res, err := h.coordinator.StartOrEnqueue(context.Background(), m.GuildID, song.URL, song.Title)
		if err != nil {
			h.reply(m, fmt.Sprintf("⏭️ Skipping **%s**: %s", song.Title, apperrors.GetUserMessage(err)))
			continue
		}
		if res.Queued {
			queued++
		} else {
			h.reply(m, fmt.Sprintf("🎵 Now playing: **%s**", res.Track.Title))
		}
	}

	if queued > 0 {
		h.replySuccess(m, fmt.Sprintf("Queued %d songs from **%s**", queued, name))
	}
	return nil
}

func (h *Handler) handlePlaylistShow(m *discordgo.MessageCreate, args []string) error {
	name := strings.Join(args, " ")
	if name == "" {
		return apperrors.ErrMissingPlaylistName
	}

	pl, err := h.playlists.Get(context.Background(), name)
	if err != nil {
		return err
	}

	if len(pl.Songs) == 0 {
		h.replyInfo(m, pl.Name, "This playlist is empty")
		return nil
	}

	var b strings.Builder
	for i, song := range pl.Songs {
		title := song.Title
		if title == "" {
			title = song.URL
		}
		fmt.Fprintf(&b, "`%d.` %s\n", i+1, title)
	}
	h.replyInfo(m, fmt.Sprintf("%s (%d songs)", pl.Name, len(pl.Songs)), b.String())
	return nil
}

func (h *Handler) handlePlaylistDelete(m *discordgo.MessageCreate, args []string) error {
	name := strings.Join(args, " ")
	if name == "" {
		return apperrors.ErrMissingPlaylistName
	}

	if err := h.playlists.Delete(context.Background(), name); err != nil {
		return err
	}
	h.replySuccess(m, fmt.Sprintf("Deleted playlist **%s**", name))
	return nil
}

func (h *Handler) handlePlaylistList(m *discordgo.MessageCreate) error {
	summaries, err := h.playlists.List(context.Background())
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		h.reply(m, "📋 No playlists yet")
		return nil
	}

	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "**%s** (%d songs)\n", s.Name, s.Count)
	}
	h.replyInfo(m, "Playlists", b.String())
	return nil
}
