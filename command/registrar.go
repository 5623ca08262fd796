package command

import "github.com/bwmarrin/discordgo"

// Command is an interface for application commands.
type Command interface {
	Definition() *discordgo.ApplicationCommand
}

// AllCommands returns every command the bot serves. The anonymous variants are
// left out when hideDisabled is set.
func AllCommands(hideDisabled bool) []Command {
	cmds := []Command{
		&PingCommand{},
		&SendCommand{},
		&TalkCommand{},
		&UserCommand{Name: Blacklist, Description: "Lance un vote pour blacklister un utilisateur", Target: "Utilisateur à blacklister"},
		&UserCommand{Name: Unblacklist, Description: "Retire un utilisateur de la blacklist (Admin)", Target: "Utilisateur à retirer"},
		&UserCommand{Name: Block, Description: "Bloque un utilisateur de toutes les commandes du bot", Target: "Utilisateur à bloquer"},
		&UserCommand{Name: Unblock, Description: "Débloque un utilisateur (Admin)", Target: "Utilisateur à débloquer"},
		&UserCommand{Name: QuotaReset, Description: "Réinitialiser le compteur de messages du jour pour un utilisateur (Admin)", Target: "Utilisateur cible"},
		&QuotaGiveCommand{},
		&QuotaSetLimitCommand{},
		&DurationCommand{Name: ConfigDefault, Description: "Durée d'affichage par défaut (Admin)", AllowZero: true},
		&DurationCommand{Name: ConfigMax, Description: "Durée d'affichage maximale (Admin)"},
		&DisplayFullCommand{},
	}
	if !hideDisabled {
		cmds = append(cmds, &SendCommand{Hidden: true}, &TalkCommand{Hidden: true})
	}
	return cmds
}

// GetCommandDefinitions returns a slice of all command definitions.
func GetCommandDefinitions(hideDisabled bool) []*discordgo.ApplicationCommand {
	all := AllCommands(hideDisabled)
	defs := make([]*discordgo.ApplicationCommand, len(all))
	for i, cmd := range all {
		defs[i] = cmd.Definition()
	}
	return defs
}

// BypassesBlock reports whether blocked users may still run name.
func BypassesBlock(name string) bool {
	switch name {
	case Block, Unblock, Blacklist, Unblacklist, ConfigDefault, ConfigDisplay, ConfigMax:
		return true
	}
	return false
}
