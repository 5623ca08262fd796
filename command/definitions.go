package command

import "github.com/bwmarrin/discordgo"

// Command and option names shared with the handlers.
const (
	Ping          = "ping"
	Msg           = "msg"
	HiddenMsg     = "cmsg"
	Talk          = "dire"
	HiddenTalk    = "cdire"
	Blacklist     = "blacklist"
	Unblacklist   = "unblacklist"
	Block         = "block"
	Unblock       = "unblock"
	QuotaReset    = "quota-reset"
	QuotaGive     = "quota-give"
	QuotaSetLimit = "quota-setlimit"
	ConfigDefault = "config-defaut"
	ConfigMax     = "config-max"
	ConfigDisplay = "config-displayfull"

	OptionURL     = "lien"
	OptionMedia   = "media"
	OptionText    = "texte"
	OptionVoice   = "voix"
	OptionUser    = "user"
	OptionAmount  = "amount"
	OptionSeconds = "secondes"
	OptionEnabled = "active"
)

var minOne = 1.0

// PingCommand answers with Pong!, used as a liveness check.
type PingCommand struct{}

func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        Ping,
		Description: "Vérifie que le bot répond",
	}
}

// SendCommand displays a message, a link or a file on the guild overlay.
type SendCommand struct {
	Hidden bool
}

func (c *SendCommand) Definition() *discordgo.ApplicationCommand {
	name, desc := Msg, "Affiche un message ou un média sur le live"
	if c.Hidden {
		name, desc = HiddenMsg, "Affiche anonymement un message ou un média sur le live"
	}
	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: desc,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        OptionURL,
				Description: "Lien vers une image, une vidéo ou un son",
				Type:        discordgo.ApplicationCommandOptionString,
			},
			{
				Name:        OptionMedia,
				Description: "Fichier à afficher",
				Type:        discordgo.ApplicationCommandOptionAttachment,
			},
			{
				Name:        OptionText,
				Description: "Texte à afficher",
				Type:        discordgo.ApplicationCommandOptionString,
			},
		},
	}
}

// TalkCommand reads a text aloud on the guild overlay.
type TalkCommand struct {
	Hidden bool
}

func (c *TalkCommand) Definition() *discordgo.ApplicationCommand {
	name, desc := Talk, "Fait parler le bot sur le live"
	if c.Hidden {
		name, desc = HiddenTalk, "Fait parler le bot anonymement sur le live"
	}
	return &discordgo.ApplicationCommand{
		Name:        name,
		Description: desc,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        OptionVoice,
				Description: "Texte à prononcer",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
			},
			{
				Name:        OptionText,
				Description: "Texte à afficher",
				Type:        discordgo.ApplicationCommandOptionString,
			},
		},
	}
}

// UserCommand covers the moderation commands that take a single target user.
type UserCommand struct {
	Name        string
	Description string
	Target      string
}

func (c *UserCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name,
		Description: c.Description,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        OptionUser,
				Description: c.Target,
				Type:        discordgo.ApplicationCommandOptionUser,
				Required:    true,
			},
		},
	}
}

// QuotaGiveCommand offers extra messages to the restricted user.
type QuotaGiveCommand struct{}

func (c *QuotaGiveCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        QuotaGive,
		Description: "Offrir des messages supplémentaires pour aujourd'hui (Admin)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        OptionUser,
				Description: "Utilisateur cible",
				Type:        discordgo.ApplicationCommandOptionUser,
				Required:    true,
			},
			{
				Name:        OptionAmount,
				Description: "Nombre de messages à offrir",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Required:    true,
			},
		},
	}
}

// QuotaSetLimitCommand changes the guild's daily limit.
type QuotaSetLimitCommand struct{}

func (c *QuotaSetLimitCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        QuotaSetLimit,
		Description: "Définir la limite quotidienne de messages (Admin)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        OptionAmount,
				Description: "Nouvelle limite quotidienne (par défaut 20)",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Required:    true,
			},
		},
	}
}

// DurationCommand sets one of the guild's display durations.
type DurationCommand struct {
	Name        string
	Description string
	AllowZero   bool
}

func (c *DurationCommand) Definition() *discordgo.ApplicationCommand {
	opt := &discordgo.ApplicationCommandOption{
		Name:        OptionSeconds,
		Description: "Durée en secondes",
		Type:        discordgo.ApplicationCommandOptionInteger,
		Required:    true,
	}
	if !c.AllowZero {
		opt.MinValue = &minOne
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name,
		Description: c.Description,
		Options:     []*discordgo.ApplicationCommandOption{opt},
	}
}

// DisplayFullCommand toggles full-screen media display.
type DisplayFullCommand struct{}

func (c *DisplayFullCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        ConfigDisplay,
		Description: "Affiche les médias en plein écran (Admin)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        OptionEnabled,
				Description: "Plein écran activé",
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Required:    true,
			},
		},
	}
}
