package models

import "time"

// AppConfig is the fully resolved configuration (config.yaml, config/auth.json and env).
type AppConfig struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Display   DisplayConfig   `mapstructure:"display"`
	Quota     QuotaConfig     `mapstructure:"quota"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Server    ServerConfig    `mapstructure:"server"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Media     MediaConfig     `mapstructure:"media"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

// BotConfig configures the Discord side.
type BotConfig struct {
	Token                string  `mapstructure:"token"`
	AdminChannelID       string  `mapstructure:"admin_channel_id"`
	HideCommandsDisabled bool    `mapstructure:"hide_commands_disabled"`
	RevealAnonProb       float64 `mapstructure:"reveal_anon_prob"` // percent
	Language             string  `mapstructure:"language"`
}

// DatabaseConfig selects the relational store.
//
// Driver values:
//   - "sqlite3": DSN is a file path
//   - "postgres": DSN is a libpq connection string
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// DisplayConfig holds the global display defaults (seconds).
type DisplayConfig struct {
	DefaultDuration int  `mapstructure:"default_duration"`
	MaxDuration     int  `mapstructure:"max_duration"`
	MediaFull       bool `mapstructure:"media_full"`
}

// QuotaConfig configures the daily quota for the restricted submitter.
type QuotaConfig struct {
	RestrictedUserID string `mapstructure:"restricted_user_id"`
	DailyLimit       int    `mapstructure:"daily_limit"`
	ReminderEvery    int    `mapstructure:"reminder_every"`
}

// SchedulerConfig configures the delivery loop.
type SchedulerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	SafetyMargin   time.Duration `mapstructure:"safety_margin"`
	PlaceholderURL string        `mapstructure:"placeholder_url"`
}

// ServerConfig configures the HTTP server used by display clients.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// GRPCConfig configures the health service.
type GRPCConfig struct {
	Addr       string        `mapstructure:"addr"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// MediaConfig configures media introspection and conversion.
type MediaConfig struct {
	CacheDir       string        `mapstructure:"cache_dir"`
	TempDir        string        `mapstructure:"temp_dir"`
	CacheMaxAge    time.Duration `mapstructure:"cache_max_age"`
	FFmpegPath     string        `mapstructure:"ffmpeg_path"`
	FFprobePath    string        `mapstructure:"ffprobe_path"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ResolveCache   int           `mapstructure:"resolve_cache"`
	ResolveTTL     time.Duration `mapstructure:"resolve_ttl"`
	PublicPrefix   string        `mapstructure:"public_prefix"`
}

// LogConfig configures logging and the Discord admin-channel sink.
type LogConfig struct {
	Level           string `mapstructure:"level"`
	Console         bool   `mapstructure:"console"`
	DiscordMinLevel string `mapstructure:"discord_min_level"`
	DiscordRate     int    `mapstructure:"discord_rate"`
}

// AuthConfig lists users and roles treated as administrators in addition to
// Discord's Administrator permission.
type AuthConfig struct {
	Developers  []string `mapstructure:"developers"`
	AdminsRoles []string `mapstructure:"admins_roles"`
}
