package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"livechat-bot/models"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Load reads configuration from several sources rooted at dir:
// 1. dir/.env (environment variables)
// 2. dir/config.yaml (base configuration)
// 3. dir/config/auth.json (merged into the base configuration)
// Environment variables override file values; "." in keys maps to "_".
func Load(dir string) (*models.AppConfig, error) {
	if dir == "" {
		dir = "."
	}

	// 1. .env is optional.
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil {
		log.Debug().Msg("no .env file found, skipping")
	}

	v := viper.New()
	setDefaults(v)

	// 2. Base configuration.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
		}
		log.Info().Msg("config.yaml not found, using environment variables and defaults")
	}

	// 3. Optional auth overrides.
	v.SetConfigName("auth")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(dir, "config"))
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to merge config/auth.json: %w", err)
		}
	}

	var cfg models.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.language", "fr")
	v.SetDefault("bot.reveal_anon_prob", 0)
	v.SetDefault("bot.hide_commands_disabled", false)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "data/livechat.db")

	v.SetDefault("display.default_duration", 5)
	v.SetDefault("display.max_duration", 60)
	v.SetDefault("display.media_full", false)

	v.SetDefault("quota.restricted_user_id", "")
	v.SetDefault("quota.daily_limit", 20)
	v.SetDefault("quota.reminder_every", 5)

	v.SetDefault("scheduler.interval", 100*time.Millisecond)
	v.SetDefault("scheduler.retry_delay", 250*time.Millisecond)
	v.SetDefault("scheduler.safety_margin", 250*time.Millisecond)
	v.SetDefault("scheduler.placeholder_url", "https://i.pinimg.com/736x/2c/ec/55/2cec55117854b4f5218bd3274c7dbdfa.jpg")

	v.SetDefault("server.addr", ":3000")

	v.SetDefault("grpc.addr", ":50051")
	v.SetDefault("grpc.stale_after", 5*time.Second)

	v.SetDefault("media.cache_dir", filepath.Join("data", "media", "converted"))
	v.SetDefault("media.temp_dir", filepath.Join("data", "media", "tmp"))
	v.SetDefault("media.cache_max_age", 24*time.Hour)
	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.ffprobe_path", "ffprobe")
	v.SetDefault("media.request_timeout", 15*time.Second)
	v.SetDefault("media.resolve_cache", 512)
	v.SetDefault("media.resolve_ttl", 10*time.Minute)
	v.SetDefault("media.public_prefix", "/client/api/media/")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.discord_min_level", "warn")
	v.SetDefault("log.discord_rate", 1)
}

// bindLegacyEnv keeps the flat variable names used by existing deployments working.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("bot.token", "BOT_TOKEN", "DISCORD_TOKEN")
	_ = v.BindEnv("bot.admin_channel_id", "BOT_ADMIN_CHANNEL_ID", "ADMIN_CHANNEL_ID")
	_ = v.BindEnv("bot.reveal_anon_prob", "BOT_REVEAL_ANON_PROB", "REVEAL_ANON_PROB")
	_ = v.BindEnv("bot.hide_commands_disabled", "BOT_HIDE_COMMANDS_DISABLED", "HIDE_COMMANDS_DISABLED")
	_ = v.BindEnv("database.dsn", "DATABASE_DSN", "DATABASE_URL")
	_ = v.BindEnv("quota.restricted_user_id", "QUOTA_RESTRICTED_USER_ID", "LIMITED_USER_ID")
}

func validate(cfg *models.AppConfig) error {
	switch cfg.Database.Driver {
	case "sqlite3", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver: %s", cfg.Database.Driver)
	}
	if cfg.Display.DefaultDuration < 0 || cfg.Display.MaxDuration < 1 {
		return fmt.Errorf("display durations must be positive (default=%d, max=%d)",
			cfg.Display.DefaultDuration, cfg.Display.MaxDuration)
	}
	if cfg.Quota.DailyLimit < 1 {
		cfg.Quota.DailyLimit = 1
	}
	if cfg.Quota.ReminderEvery < 1 {
		cfg.Quota.ReminderEvery = 5
	}
	if cfg.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}
	if cfg.Scheduler.RetryDelay <= 0 {
		return fmt.Errorf("scheduler.retry_delay must be positive, got %v", cfg.Scheduler.RetryDelay)
	}
	if cfg.Scheduler.SafetyMargin <= 0 {
		return fmt.Errorf("scheduler.safety_margin must be positive, got %v", cfg.Scheduler.SafetyMargin)
	}
	if cfg.Bot.RevealAnonProb < 0 || cfg.Bot.RevealAnonProb > 100 {
		return fmt.Errorf("bot.reveal_anon_prob must be within [0, 100], got %v", cfg.Bot.RevealAnonProb)
	}
	return nil
}
