package handlers

import (
	"github.com/bwmarrin/discordgo"
)

const howToUse = "Utilise `/msg` pour afficher un texte, une image ou une vidéo sur le live, " +
	"et `/dire` pour faire parler le bot.\n" +
	"Ajoute la page de l'overlay comme source navigateur dans ton logiciel de stream."

// GuildCreate posts the usage guide in the first writable text channel of a guild the bot just joined.
func (h *Handler) GuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if _, seen := h.known.LoadOrStore(g.ID, struct{}{}); seen {
		return
	}
	if s == nil || s.State == nil || s.State.User == nil {
		return
	}
	botID := s.State.User.ID
	h.welcome(g.Guild, func(channelID string) bool {
		perms, err := s.State.UserChannelPermissions(botID, channelID)
		return err == nil && perms&discordgo.PermissionSendMessages != 0
	})
}

func (h *Handler) welcome(g *discordgo.Guild, canSend func(channelID string) bool) {
	channelID := welcomeChannel(g, canSend)
	if channelID == "" {
		h.log.Debug().Str("guild", g.ID).Msg("no channel to post the welcome message")
		return
	}
	embed := newEmbed("Comment utiliser le bot ?", howToUse, colorInfo)
	if _, err := h.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		h.log.Warn().Err(err).Str("guild", g.ID).Msg("failed to post welcome message")
	}
}

func welcomeChannel(g *discordgo.Guild, canSend func(channelID string) bool) string {
	for _, ch := range g.Channels {
		if ch.Type == discordgo.ChannelTypeGuildText && canSend(ch.ID) {
			return ch.ID
		}
	}
	return ""
}
