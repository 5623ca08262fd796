package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"livechat-bot/models"
)

// GetAudience loads a guild row. A guild that was never seen comes back with empty state.
func (d *DB) GetAudience(ctx context.Context, guildID string) (models.Audience, error) {
	query := d.rebind(`SELECT busy_until, default_duration, max_duration, display_full FROM guilds WHERE id = ?`)
	var (
		busyUntil                    sql.NullInt64
		defaultDuration, maxDuration sql.NullInt64
		displayFull                  sql.NullBool
	)
	err := d.sql.QueryRowContext(ctx, query, guildID).Scan(&busyUntil, &defaultDuration, &maxDuration, &displayFull)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Audience{ID: guildID}, nil
	}
	if err != nil {
		return models.Audience{}, storeErr("select guild", err)
	}

	a := models.Audience{ID: guildID}
	if busyUntil.Valid {
		t := fromMillis(busyUntil.Int64)
		a.BusyUntil = &t
	}
	if defaultDuration.Valid {
		v := int(defaultDuration.Int64)
		a.Settings.DefaultDuration = &v
	}
	if maxDuration.Valid {
		v := int(maxDuration.Int64)
		a.Settings.MaxDuration = &v
	}
	if displayFull.Valid {
		v := displayFull.Bool
		a.Settings.DisplayFull = &v
	}
	return a, nil
}

// BusyUntil returns when the guild's display frees up; the zero time means it is free.
func (d *DB) BusyUntil(ctx context.Context, guildID string) (time.Time, error) {
	var busyUntil sql.NullInt64
	err := d.sql.QueryRowContext(ctx, d.rebind(`SELECT busy_until FROM guilds WHERE id = ?`), guildID).Scan(&busyUntil)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !busyUntil.Valid) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, storeErr("select guild busy_until", err)
	}
	return fromMillis(busyUntil.Int64), nil
}

// ReserveAudience sets busy_until, creating the guild row on first use.
func (d *DB) ReserveAudience(ctx context.Context, guildID string, until time.Time) error {
	query := d.rebind(`INSERT INTO guilds (id, busy_until) VALUES (?, ?)
        ON CONFLICT (id) DO UPDATE SET busy_until = excluded.busy_until`)
	if _, err := d.sql.ExecContext(ctx, query, guildID, toMillis(until)); err != nil {
		return storeErr("reserve guild", err)
	}
	return nil
}

// UpdateGuildSettings upserts the non-nil settings and leaves the others untouched.
func (d *DB) UpdateGuildSettings(ctx context.Context, guildID string, s models.GuildSettings) error {
	var defaultDuration, maxDuration, displayFull any
	if s.DefaultDuration != nil {
		defaultDuration = *s.DefaultDuration
	}
	if s.MaxDuration != nil {
		maxDuration = *s.MaxDuration
	}
	if s.DisplayFull != nil {
		displayFull = *s.DisplayFull
	}

	query := d.rebind(`INSERT INTO guilds (id, default_duration, max_duration, display_full) VALUES (?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            default_duration = COALESCE(excluded.default_duration, guilds.default_duration),
            max_duration = COALESCE(excluded.max_duration, guilds.max_duration),
            display_full = COALESCE(excluded.display_full, guilds.display_full)`)
	if _, err := d.sql.ExecContext(ctx, query, guildID, defaultDuration, maxDuration, displayFull); err != nil {
		return storeErr("update guild settings", err)
	}
	return nil
}
