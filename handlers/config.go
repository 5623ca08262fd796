package handlers

import (
	"context"
	"fmt"

	"livechat-bot/command"
)

func (h *Handler) handleConfigDefault(ctx context.Context, r *reply, in invocation) error {
	seconds := in.intOption(command.OptionSeconds)
	if err := h.queue.SetDefaultDuration(ctx, in.user.ID, in.guildID, seconds); err != nil {
		return err
	}
	return r.embed(successEmbed("✅ Configuration mise à jour",
		fmt.Sprintf("La durée d'affichage par défaut est maintenant de %d secondes.", seconds)), true)
}

func (h *Handler) handleConfigMax(ctx context.Context, r *reply, in invocation) error {
	seconds := in.intOption(command.OptionSeconds)
	if err := h.queue.SetMaxDuration(ctx, in.user.ID, in.guildID, seconds); err != nil {
		return err
	}
	return r.embed(successEmbed("✅ Configuration mise à jour",
		fmt.Sprintf("La durée d'affichage maximale est maintenant de %d secondes.", seconds)), true)
}

func (h *Handler) handleConfigDisplay(ctx context.Context, r *reply, in invocation) error {
	full := in.boolOption(command.OptionEnabled)
	if err := h.queue.SetDisplayFull(ctx, in.user.ID, in.guildID, full); err != nil {
		return err
	}
	state := "désactivé"
	if full {
		state = "activé"
	}
	return r.embed(successEmbed("✅ Configuration mise à jour",
		fmt.Sprintf("L'affichage des médias en plein écran est %s.", state)), true)
}
