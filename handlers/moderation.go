package handlers

import (
	"context"
	"fmt"

	"livechat-bot/command"
)

func (h *Handler) handleBlacklist(ctx context.Context, r *reply, in invocation) error {
	target := in.userOption(command.OptionUser)
	if target == nil {
		return errEmptyMessage
	}
	if err := r.deferReply(false); err != nil {
		return err
	}

	res, err := h.moderation.Vote(ctx, in.user.ID, target.ID, in.guildID)
	if err != nil {
		return err
	}
	if res.Blacklisted {
		return r.embed(errorEmbed("🚫 Utilisateur blacklisté !",
			fmt.Sprintf("%s a été blacklisté avec %d votes.", displayName(target), res.Votes)), false)
	}
	return r.embed(newEmbed("🗳️ Vote enregistré",
		fmt.Sprintf("Vote pour blacklister %s enregistré.\nVotes: %d/%d\nIl reste %d vote(s) nécessaire(s).",
			displayName(target), res.Votes, res.Needed, res.Remaining),
		colorPending), false)
}

func (h *Handler) handleUnblacklist(ctx context.Context, r *reply, in invocation) error {
	target := in.userOption(command.OptionUser)
	if target == nil {
		return errEmptyMessage
	}
	if err := r.deferReply(false); err != nil {
		return err
	}
	if err := h.moderation.Unblacklist(ctx, in.user.ID, target.ID, in.guildID); err != nil {
		return err
	}
	return r.embed(successEmbed("✅ Utilisateur retiré de la blacklist",
		fmt.Sprintf("%s n'est plus dans la blacklist.", displayName(target))), false)
}

func (h *Handler) handleBlock(ctx context.Context, r *reply, in invocation) error {
	target := in.userOption(command.OptionUser)
	if target == nil {
		return errEmptyMessage
	}
	if err := r.deferReply(false); err != nil {
		return err
	}
	if err := h.moderation.Block(ctx, in.user.ID, target.ID, in.guildID); err != nil {
		return err
	}
	return r.embed(errorEmbed("🚫 Utilisateur bloqué",
		fmt.Sprintf("%s a été bloqué de toutes les commandes du bot.", displayName(target))), false)
}

func (h *Handler) handleUnblock(ctx context.Context, r *reply, in invocation) error {
	target := in.userOption(command.OptionUser)
	if target == nil {
		return errEmptyMessage
	}
	if err := r.deferReply(false); err != nil {
		return err
	}
	if err := h.moderation.Unblock(ctx, in.user.ID, target.ID, in.guildID); err != nil {
		return err
	}
	return r.embed(successEmbed("✅ Utilisateur débloqué",
		fmt.Sprintf("%s peut de nouveau utiliser les commandes du bot.", displayName(target))), false)
}
