package commands

import (
	"github.com/bwmarrin/discordgo"
)

// Colors for embeds
const (
	ColorSuccess = 0x57F287 // Green
	ColorError   = 0xED4245 // Red
	ColorInfo    = 0x3498DB // Blue
)

// reply sends a plain text message to the command's channel
func (h *Handler) reply(m *discordgo.MessageCreate, message string) {
	if _, err := h.session.ChannelMessageSend(m.ChannelID, message); err != nil {
		h.logger.WithError(err).Warn("Failed to send reply")
	}
}

// replyEmbed sends an embed to the command's channel
func (h *Handler) replyEmbed(m *discordgo.MessageCreate, embed *discordgo.MessageEmbed) {
	if _, err := h.session.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
		h.logger.WithError(err).Warn("Failed to send embed reply")
	}
}

func (h *Handler) replySuccess(m *discordgo.MessageCreate, message string) {
	h.replyEmbed(m, &discordgo.MessageEmbed{
		Description: "✅ " + message,
		Color:       ColorSuccess,
	})
}

func (h *Handler) replyInfo(m *discordgo.MessageCreate, title, description string) {
	h.replyEmbed(m, &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       ColorInfo,
	})
}
