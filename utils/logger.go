package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"livechat-bot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// NewLogger builds the root logger: console output plus any extra sinks.
// The result also replaces zerolog's global logger.
func NewLogger(cfg models.LogConfig, sinks ...io.Writer) zerolog.Logger {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = consoleTimeFormat

	writers := make([]io.Writer, 0, len(sinks)+1)
	if cfg.Console || len(sinks) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: consoleTimeFormat})
	}
	for _, s := range sinks {
		if s != nil {
			writers = append(writers, s)
		}
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(cfg.Level, zerolog.InfoLevel)).
		With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel parses a level name, falling back to def.
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return def
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return def
	}
	return lvl
}

// EmbedSender is the part of *discordgo.Session the admin-channel sink needs.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordSink forwards log lines at or above a level to the admin channel as embeds.
// Writes never block: lines over the rate limit or beyond the queue are dropped.
type DiscordSink struct {
	mu        sync.Mutex
	sender    EmbedSender
	channelID string

	minLevel zerolog.Level
	limiter  *rate.Limiter
	queue    chan *discordgo.MessageEmbed
}

// NewDiscordSink creates a sink for the admin channel. It stays silent until Attach is called.
func NewDiscordSink(channelID string, cfg models.LogConfig) *DiscordSink {
	rps := max(1, cfg.DiscordRate)
	return &DiscordSink{
		channelID: channelID,
		minLevel:  ParseLevel(cfg.DiscordMinLevel, zerolog.WarnLevel),
		limiter:   rate.NewLimiter(rate.Limit(rps), rps),
		queue:     make(chan *discordgo.MessageEmbed, 64),
	}
}

// Attach sets the session used to deliver embeds.
func (d *DiscordSink) Attach(sender EmbedSender) {
	d.mu.Lock()
	d.sender = sender
	d.mu.Unlock()
	if d.channelID == "" {
		fmt.Fprintln(os.Stderr, "Warning: bot.admin_channel_id is not set. Logging to channel will be disabled.")
	}
}

// Run delivers queued embeds until ctx is done.
func (d *DiscordSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case embed := <-d.queue:
			d.mu.Lock()
			sender := d.sender
			d.mu.Unlock()
			if sender == nil {
				continue
			}
			if _, err := sender.ChannelMessageSendEmbed(d.channelID, embed, discordgo.WithContext(ctx)); err != nil {
				fmt.Fprintf(os.Stderr, "Error sending log message to Discord: %v\n", err)
			}
		}
	}
}

func (d *DiscordSink) Write(p []byte) (int, error) {
	return d.WriteLevel(zerolog.InfoLevel, p)
}

func (d *DiscordSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if d.channelID == "" || level < d.minLevel {
		return len(p), nil
	}
	d.mu.Lock()
	attached := d.sender != nil
	d.mu.Unlock()
	if !attached || !d.limiter.Allow() {
		return len(p), nil
	}

	embed := buildEmbed(level, p, time.Now())
	select {
	case d.queue <- embed:
	default:
	}
	return len(p), nil
}

// buildEmbed turns one zerolog JSON line into an admin-channel embed.
func buildEmbed(level zerolog.Level, p []byte, now time.Time) *discordgo.MessageEmbed {
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		m = map[string]any{"message": strings.TrimSpace(string(p))}
	}

	color := ColorInfo
	switch {
	case level >= zerolog.ErrorLevel:
		color = ColorError
	case level == zerolog.WarnLevel:
		color = ColorWarn
	}

	module, _ := m["component"].(string)
	if module == "" {
		module = "bot"
	}
	operation, _ := m["message"].(string)
	if operation == "" {
		operation = "-"
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "time", "level", "message", "component":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var details strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&details, "%s=%v\n", k, m[k])
	}
	detailText := strings.TrimSpace(details.String())
	if detailText == "" {
		detailText = "-"
	}

	return &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", strings.ToUpper(level.String())),
		Color:     color,
		Timestamp: now.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Module", Value: truncate(module, 256), Inline: true},
			{Name: "Opération", Value: truncate(operation, 1024), Inline: true},
			{Name: "Détails", Value: truncate(detailText, 1024)},
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
