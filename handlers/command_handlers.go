package handlers

import (
	"context"

	"livechat-bot/command"

	"github.com/bwmarrin/discordgo"
)

// invocation is a parsed slash command.
type invocation struct {
	name      string
	guildID   string
	channelID string
	user      *discordgo.User
	data      discordgo.ApplicationCommandInteractionData
	options   map[string]*discordgo.ApplicationCommandInteractionDataOption
}

type commandFunc func(ctx context.Context, r *reply, in invocation) error

// Dispatch is the central handler for all application command interactions.
// Blocked users are turned away from everything but the moderation and display
// configuration commands.
func (h *Handler) Dispatch(ctx context.Context, i *discordgo.Interaction) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	in := parseInvocation(i)
	r := &reply{s: h.session, i: i}
	if in.user == nil {
		return
	}

	handler, ok := h.routes()[in.name]
	if !ok {
		if err := r.text("🚫 Commande inconnue.", true); err != nil {
			h.log.Warn().Err(err).Msg("failed to answer unknown command")
		}
		return
	}
	if in.guildID == "" && in.name != command.Ping {
		if err := r.embed(errorEmbed("❌ Erreur", "Cette commande n'est disponible que sur un serveur."), true); err != nil {
			h.log.Warn().Err(err).Msg("failed to answer direct message command")
		}
		return
	}

	if in.guildID != "" && !command.BypassesBlock(in.name) {
		blocked, err := h.moderation.IsBlocked(ctx, in.user.ID, in.guildID)
		if err != nil {
			h.fail(r, in, err)
			return
		}
		if blocked {
			if err := r.embed(errorEmbed("🚫 Accès bloqué", "Vous êtes bloqué de toutes les commandes du bot."), true); err != nil {
				h.log.Warn().Err(err).Msg("failed to answer blocked user")
			}
			return
		}
	}

	if err := handler(ctx, r, in); err != nil {
		h.fail(r, in, err)
	}
}

func (h *Handler) routes() map[string]commandFunc {
	return map[string]commandFunc{
		command.Ping:          h.handlePing,
		command.Msg:           h.sendHandler(false),
		command.HiddenMsg:     h.sendHandler(true),
		command.Talk:          h.talkHandler(false),
		command.HiddenTalk:    h.talkHandler(true),
		command.Blacklist:     h.handleBlacklist,
		command.Unblacklist:   h.handleUnblacklist,
		command.Block:         h.handleBlock,
		command.Unblock:       h.handleUnblock,
		command.QuotaReset:    h.handleQuotaReset,
		command.QuotaGive:     h.handleQuotaGive,
		command.QuotaSetLimit: h.handleQuotaSetLimit,
		command.ConfigDefault: h.handleConfigDefault,
		command.ConfigMax:     h.handleConfigMax,
		command.ConfigDisplay: h.handleConfigDisplay,
	}
}

// fail reports err to the user and logs unexpected failures.
func (h *Handler) fail(r *reply, in invocation, err error) {
	target := ""
	if u := in.userOption(command.OptionUser); u != nil {
		target = displayName(u)
	}
	restricted := ""
	if h.quota != nil {
		restricted = h.quota.RestrictedUserID()
	}
	embed, expected := describeError(err, target, restricted)
	if !expected {
		h.log.Error().Err(err).Str("command", in.name).Str("guild", in.guildID).Str("user", in.user.ID).Msg("command failed")
	}
	if err := r.embed(embed, true); err != nil {
		h.log.Warn().Err(err).Str("command", in.name).Msg("failed to report command error")
	}
}

// handlePing handles the logic for the /ping command.
func (h *Handler) handlePing(_ context.Context, r *reply, _ invocation) error {
	return r.text("Pong!", false)
}

func parseInvocation(i *discordgo.Interaction) invocation {
	data := i.ApplicationCommandData()
	in := invocation{
		name:      data.Name,
		guildID:   i.GuildID,
		channelID: i.ChannelID,
		data:      data,
		options:   make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options)),
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		in.user = i.Member.User
	case i.User != nil:
		in.user = i.User
	}
	for _, opt := range data.Options {
		in.options[opt.Name] = opt
	}
	return in
}

func (in invocation) stringOption(name string) string {
	opt, ok := in.options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}
	return opt.StringValue()
}

func (in invocation) intOption(name string) int {
	opt, ok := in.options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionInteger {
		return 0
	}
	return int(opt.IntValue())
}

func (in invocation) boolOption(name string) bool {
	opt, ok := in.options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionBoolean {
		return false
	}
	return opt.BoolValue()
}

// userOption returns the resolved user behind a user option, or a bare user
// carrying only the id when Discord did not resolve it.
func (in invocation) userOption(name string) *discordgo.User {
	opt, ok := in.options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionUser {
		return nil
	}
	id, _ := opt.Value.(string)
	if id == "" {
		return nil
	}
	if in.data.Resolved != nil {
		if u, ok := in.data.Resolved.Users[id]; ok && u != nil {
			return u
		}
	}
	return &discordgo.User{ID: id}
}

func (in invocation) attachmentOption(name string) *discordgo.MessageAttachment {
	opt, ok := in.options[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionAttachment || in.data.Resolved == nil {
		return nil
	}
	id, _ := opt.Value.(string)
	return in.data.Resolved.Attachments[id]
}

func displayName(u *discordgo.User) string {
	if u.Username == "" {
		return mention(u.ID)
	}
	return u.Username
}

func avatarURL(u *discordgo.User) string {
	if u.Avatar == "" {
		return ""
	}
	return u.AvatarURL("")
}
