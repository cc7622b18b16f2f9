package commands

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	apperrors "github.com/ltdang/musicrelay/internal/errors"
)

// handleSetCookies stores extraction cookies from the message text or an
// attached cookies.txt. Owner only: cookies are account credentials.
func (h *Handler) handleSetCookies(m *discordgo.MessageCreate, args []string) error {
	if !h.isOwner(m.Author.ID) {
		return apperrors.ErrOwnerOnly
	}

	// Remove the message so the credentials don't linger in the channel
	defer func() {
		if err := h.session.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
			h.logger.WithError(err).Warn("Failed to delete cookies message")
		}
	}()

	if len(m.Attachments) > 0 {
		if err := h.cookies.SetFromURL(m.Attachments[0].URL); err != nil {
			return err
		}
		h.replySuccess(m, "Cookies updated from attachment")
		return nil
	}

	// Inline form: everything after the command word is the cookies.txt
	// payload, newlines included
	raw := strings.TrimSpace(strings.TrimPrefix(m.Content, h.config.CommandPrefix))
	if idx := strings.IndexAny(raw, " \n"); idx >= 0 {
		payload := strings.TrimSpace(raw[idx+1:])
		if payload != "" {
			if err := h.cookies.SetFromText(payload); err != nil {
				return err
			}
			h.replySuccess(m, "Cookies updated")
			return nil
		}
	}

	h.reply(m, "Attach a cookies.txt file or paste its content after the command")
	return nil
}

func (h *Handler) handleClearCookies(m *discordgo.MessageCreate) error {
	if !h.isOwner(m.Author.ID) {
		return apperrors.ErrOwnerOnly
	}

	if err := h.cookies.Clear(); err != nil {
		return err
	}
	h.replySuccess(m, "Cookies cleared")
	return nil
}

// handleExportCookies sends the stored cookies, base64 encoded, to the
// owner's DMs rather than the channel
func (h *Handler) handleExportCookies(m *discordgo.MessageCreate) error {
	if !h.isOwner(m.Author.ID) {
		return apperrors.ErrOwnerOnly
	}

	encoded, err := h.cookies.Export()
	if err != nil {
		return err
	}

	dm, err := h.session.UserChannelCreate(m.Author.ID)
	if err != nil {
		return err
	}
	if _, err := h.session.ChannelMessageSend(dm.ID, "```\n"+encoded+"\n```"); err != nil {
		return err
	}

	h.replySuccess(m, "Cookies exported to your DMs")
	return nil
}
