package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ltdang/musicrelay/internal/coordinator"
	apperrors "github.com/ltdang/musicrelay/internal/errors"
	"github.com/ltdang/musicrelay/internal/validation"
)

const queueDisplayLimit = 10

func (h *Handler) handlePlay(s *discordgo.Session, m *discordgo.MessageCreate, args []string) error {
	if len(args) == 0 {
		return apperrors.ErrMissingURL
	}
	url := args[0]
	if err := validation.ValidateYouTubeURL(url); err != nil {
		return err
	}

	channelID, err := h.getUserVoiceChannel(s, m.GuildID, m.Author.ID)
	if err != nil {
		return err
	}

	// Stale files from crashed runs are only swept while nothing is being
	// played anywhere, so an active guild's file is never pulled out from
	// under it
	if !h.coordinator.HasCurrentFiles() {
		h.cleaner.Sweep()
	}

	if err := h.voice.Connect(m.GuildID, channelID); err != nil {
		return err
	}

	title := h.probeTitle(url)

	if h.coordinator.PeekQueue(m.GuildID, 0).State == coordinator.StateIdle {
		h.reply(m, "⏳ Downloading audio...")
	}

	res, err := h.coordinator.StartOrEnqueue(context.Background(), m.GuildID, url, title)
	if err != nil {
		return err
	}

	if res.Queued {
		shown := title
		if shown == "" {
			shown = url
		}
		h.replySuccess(m, fmt.Sprintf("Added to queue at position %d: **%s**", res.Position, shown))
	} else {
		h.reply(m, fmt.Sprintf("🎵 Now playing: **%s**", res.Track.Title))
	}
	return nil
}

// probeTitle fetches the video title ahead of enqueueing. Best effort: a
// failure degrades to an empty title, never blocks the command.
func (h *Handler) probeTitle(url string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	info, err := h.fetcher.Info(ctx, url)
	if err != nil {
		h.logger.WithError(err).WithField("url", url).Debug("Title probe failed")
		return ""
	}
	return info.Title
}

func (h *Handler) handlePause(m *discordgo.MessageCreate) error {
	if err := h.coordinator.Pause(m.GuildID); err != nil {
		return err
	}
	h.reply(m, "⏸️ Paused")
	return nil
}

func (h *Handler) handleResume(m *discordgo.MessageCreate) error {
	if err := h.coordinator.Resume(m.GuildID); err != nil {
		return err
	}
	h.reply(m, "▶️ Resumed")
	return nil
}

func (h *Handler) handleSkip(m *discordgo.MessageCreate) error {
	if err := h.coordinator.Skip(m.GuildID); err != nil {
		return err
	}
	h.reply(m, "⏭️ Skipped")
	return nil
}

func (h *Handler) handleStop(m *discordgo.MessageCreate) error {
	if err := h.coordinator.StopAll(m.GuildID); err != nil {
		return err
	}
	h.replySuccess(m, "Stopped playback and cleared the queue")
	return nil
}

func (h *Handler) handleQueue(m *discordgo.MessageCreate) error {
	snap := h.coordinator.PeekQueue(m.GuildID, queueDisplayLimit)

	if snap.State == coordinator.StateIdle && snap.QueueLength == 0 {
		h.reply(m, "📭 The queue is empty and nothing is playing")
		return nil
	}

	var b strings.Builder
	if snap.CurrentTitle != "" {
		state := "🎵 Now playing"
		if snap.State == coordinator.StatePaused {
			state = "⏸️ Paused"
		}
		fmt.Fprintf(&b, "%s: **%s**\n\n", state, snap.CurrentTitle)
	}

	if snap.QueueLength == 0 {
		b.WriteString("The queue is empty")
	} else {
		for i, title := range snap.NextTitles {
			fmt.Fprintf(&b, "`%d.` %s\n", i+1, validation.TruncateString(title, 80))
		}
		if snap.QueueLength > len(snap.NextTitles) {
			fmt.Fprintf(&b, "...and %d more", snap.QueueLength-len(snap.NextTitles))
		}
	}

	h.replyInfo(m, "Queue", b.String())
	return nil
}

func (h *Handler) handleClearQueue(m *discordgo.MessageCreate) error {
	removed := h.coordinator.ClearQueue(m.GuildID)
	h.replySuccess(m, fmt.Sprintf("Removed %d entries from the queue", removed))
	return nil
}

func (h *Handler) handleHelp(m *discordgo.MessageCreate) error {
	p := h.config.CommandPrefix
	description := fmt.Sprintf(
		"**Playback**\n"+
			"`%splay <url>` play or enqueue a YouTube video\n"+
			"`%spause` / `%sresume` pause or resume\n"+
			"`%sskip` skip the current track\n"+
			"`%sstop` stop and clear the queue\n"+
			"`%squeue` show the queue\n"+
			"`%sclearqueue` drop all queued entries\n\n"+
			"**Playlists**\n"+
			"`%splaylist create <name>`\n"+
			"`%splaylist add <name> <url>`\n"+
			"`%splaylist play <name>`\n"+
			"`%splaylist show <name>`\n"+
			"`%splaylist delete <name>`\n"+
			"`%splaylist list`\n\n"+
			"**Owner**\n"+
			"`%ssetcookies` (with text or attached cookies.txt)\n"+
			"`%sclearcookies` / `%sexportcookies`",
		p, p, p, p, p, p, p, p, p, p, p, p, p, p, p, p)

	h.replyInfo(m, "Commands", description)
	return nil
}
