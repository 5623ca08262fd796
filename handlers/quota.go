package handlers

import (
	"context"
	"fmt"

	"livechat-bot/command"
	"livechat-bot/models"
)

// Quota admin replies are ephemeral; the restricted user learns about changes
// through a public message in the channel.

func (h *Handler) handleQuotaReset(ctx context.Context, r *reply, in invocation) error {
	target := in.userOption(command.OptionUser)
	if target == nil {
		return models.ErrUnmanagedUser
	}
	if err := h.quota.Reset(ctx, in.user.ID, in.guildID, target.ID); err != nil {
		return err
	}
	if err := r.embed(successEmbed("✅ Compteur réinitialisé",
		fmt.Sprintf("Le compteur de %s a été réinitialisé pour aujourd'hui", mention(target.ID))), true); err != nil {
		return err
	}
	h.announce(in.channelID, fmt.Sprintf("Le compteur de %s a été réinitialisé pour aujourd'hui.", mention(target.ID)))
	return nil
}

func (h *Handler) handleQuotaGive(ctx context.Context, r *reply, in invocation) error {
	target := in.userOption(command.OptionUser)
	if target == nil {
		return models.ErrUnmanagedUser
	}
	amount := in.intOption(command.OptionAmount)
	if _, err := h.quota.Grant(ctx, in.user.ID, in.guildID, target.ID, amount); err != nil {
		return err
	}
	if err := r.embed(successEmbed("✅ Messages offerts",
		fmt.Sprintf("%d messages ont été offerts à %s", amount, mention(target.ID))), true); err != nil {
		return err
	}
	h.announce(in.channelID, fmt.Sprintf("%d messages t'ont été offert %s tache d'en faire bon usage", amount, mention(target.ID)))
	return nil
}

func (h *Handler) handleQuotaSetLimit(ctx context.Context, r *reply, in invocation) error {
	limit, err := h.quota.SetLimit(ctx, in.user.ID, in.guildID, in.intOption(command.OptionAmount))
	if err != nil {
		return err
	}
	return r.embed(successEmbed("✅ Limite mise à jour",
		fmt.Sprintf("La limite quotidienne est maintenant de %d messages.", limit)), true)
}

func (h *Handler) announce(channelID, content string) {
	if channelID == "" {
		return
	}
	if _, err := h.session.ChannelMessageSend(channelID, content); err != nil {
		h.log.Warn().Err(err).Str("channel", channelID).Msg("failed to post public message")
	}
}
