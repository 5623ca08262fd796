package bot

import (
	"context"
	"fmt"

	"livechat-bot/command"
	"livechat-bot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Bot encapsulates the bot's state.
type Bot struct {
	Session  *discordgo.Session
	Commands []command.Command

	cron *cron.Cron
	jobs []Job
	log  zerolog.Logger
}

// NewBot creates and initializes a new Bot instance.
func NewBot(cfg models.BotConfig, log zerolog.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	return &Bot{
		Session: dg,
		log:     log.With().Str("component", "bot").Logger(),
	}, nil
}

// RegisterCommands registers the provided commands.
func (b *Bot) RegisterCommands(commands []command.Command) {
	b.Commands = append(b.Commands, commands...)
}

// Start opens the bot's session, publishes the slash commands and starts the housekeeping jobs.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	defs := make([]*discordgo.ApplicationCommand, 0, len(b.Commands))
	for _, cmd := range b.Commands {
		defs = append(defs, cmd.Definition())
	}
	// Overwriting drops commands that are no longer served, such as disabled anonymous ones.
	if _, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", defs); err != nil {
		b.log.Error().Err(err).Msg("cannot register slash commands")
	} else {
		b.log.Info().Int("count", len(defs)).Msg("slash commands registered")
	}

	if err := b.startScheduler(); err != nil {
		b.Session.Close()
		return err
	}

	b.log.Info().Str("user", b.Session.State.User.Username).Msg("bot is now running")
	return nil
}

// Stop gracefully closes the bot's session.
func (b *Bot) Stop() {
	b.stopScheduler()
	if b.Session != nil {
		if err := b.Session.Close(); err != nil {
			b.log.Warn().Err(err).Msg("error closing Discord session")
		}
	}
	b.log.Info().Msg("bot stopped gracefully")
}

// Run starts the bot and keeps it online until ctx is cancelled.
func (b *Bot) Run(ctx context.Context, registerHandlers func(*Bot)) error {
	if err := b.Start(registerHandlers); err != nil {
		return err
	}
	<-ctx.Done()
	b.Stop()
	return nil
}
