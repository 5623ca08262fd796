package handlers

import (
	"context"
	"sync"
	"time"

	"livechat-bot/bot"
	"livechat-bot/models"
	"livechat-bot/queue"
	"livechat-bot/quota"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const commandTimeout = 2 * time.Minute

// Session is the part of the Discord session the handlers talk to.
type Session interface {
	InteractionRespond(i *discordgo.Interaction, r *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(i *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Moderation is the block and blacklist gate.
type Moderation interface {
	IsBlocked(ctx context.Context, userID, guildID string) (bool, error)
	Block(ctx context.Context, adminID, userID, guildID string) error
	Unblock(ctx context.Context, adminID, userID, guildID string) error
	Vote(ctx context.Context, voterID, targetID, guildID string) (models.VoteResult, error)
	Unblacklist(ctx context.Context, adminID, userID, guildID string) error
}

// Quota is the restricted user's daily message counter.
type Quota interface {
	RestrictedUserID() string
	CheckAndConsume(guildID, userID string) (quota.Result, error)
	Reset(ctx context.Context, adminID, guildID, targetID string) error
	Grant(ctx context.Context, adminID, guildID, targetID string, amount int) (quota.Snapshot, error)
	SetLimit(ctx context.Context, adminID, guildID string, amount int) (int, error)
}

// Submissions queues display requests and edits guild display settings.
type Submissions interface {
	Send(ctx context.Context, req queue.SendRequest) (int64, error)
	HiddenSend(ctx context.Context, req queue.SendRequest) (int64, error)
	Talk(ctx context.Context, req queue.TalkRequest) (int64, error)
	HiddenTalk(ctx context.Context, req queue.TalkRequest) (int64, bool, error)
	SetDefaultDuration(ctx context.Context, adminID, guildID string, seconds int) error
	SetMaxDuration(ctx context.Context, adminID, guildID string, seconds int) error
	SetDisplayFull(ctx context.Context, adminID, guildID string, full bool) error
}

// Speech turns text into an mp3 clip.
type Speech interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// Deps groups the services the handlers drive.
type Deps struct {
	Moderation Moderation
	Quota      Quota
	Queue      Submissions
	Speech     Speech
	Language   string
}

// Handler routes Discord events to the services.
type Handler struct {
	session    Session
	moderation Moderation
	quota      Quota
	queue      Submissions
	speech     Speech
	lang       string

	// guilds seen at startup, so that only new guilds get the welcome message
	known sync.Map

	log zerolog.Logger
}

func New(session Session, deps Deps, log zerolog.Logger) *Handler {
	lang := deps.Language
	if lang == "" {
		lang = "fr"
	}
	return &Handler{
		session:    session,
		moderation: deps.Moderation,
		quota:      deps.Quota,
		queue:      deps.Queue,
		speech:     deps.Speech,
		lang:       lang,
		log:        log.With().Str("component", "handlers").Logger(),
	}
}

// Register all handlers to the bot.
func Register(b *bot.Bot, h *Handler) {
	b.Session.AddHandler(h.InteractionCreate)
	b.Session.AddHandler(h.MessageCreate)
	b.Session.AddHandler(h.GuildCreate)
	b.Session.AddHandler(h.Ready)
}

// InteractionCreate handles slash command interactions.
func (h *Handler) InteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	h.Dispatch(ctx, i.Interaction)
}

// MessageCreate enforces the daily quota on guild messages.
func (h *Handler) MessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	h.HandleMessage(m.Message)
}

// Ready records the guilds the bot already belongs to.
func (h *Handler) Ready(_ *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		h.known.Store(g.ID, struct{}{})
	}
	h.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("logged in")
}
