package models

import "time"

// Audience is one display surface (a Discord guild).
type Audience struct {
	ID        string
	BusyUntil *time.Time
	Settings  GuildSettings
}

// GuildSettings holds per-guild display overrides. Nil fields fall back to global defaults.
type GuildSettings struct {
	DefaultDuration *int
	MaxDuration     *int
	DisplayFull     *bool
}
