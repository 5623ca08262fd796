package handlers

import (
	"errors"
	"fmt"

	"livechat-bot/models"

	"github.com/bwmarrin/discordgo"
)

// HandleMessage counts guild messages of the restricted user. Once the daily
// quota is spent the message is deleted and the user is told to come back tomorrow.
func (h *Handler) HandleMessage(m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	res, err := h.quota.CheckAndConsume(m.GuildID, m.Author.ID)
	if errors.Is(err, models.ErrQuotaExceeded) {
		if err := h.session.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
			h.log.Error().Err(err).Str("guild", m.GuildID).Msg("failed to delete over-quota message")
		}
		h.announce(m.ChannelID, fmt.Sprintf("%s a dépassé son quota de message par jour merci de revenir demain", mention(m.Author.ID)))
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("guild", m.GuildID).Msg("quota check failed")
		return
	}
	if res.Reminder {
		h.announce(m.ChannelID, fmt.Sprintf("%s Plus que %d messages restants", mention(m.Author.ID), res.Remaining))
	}
}
