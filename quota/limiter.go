package quota

import (
	"context"
	"fmt"
	"sync"

	"livechat-bot/models"
	"livechat-bot/utils"

	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Authorizer decides who may run administrator operations.
type Authorizer interface {
	IsAdministrator(ctx context.Context, guildID, userID string) (bool, error)
}

// Result describes the outcome of a consumption.
type Result struct {
	Count     int
	Limit     int
	Remaining int
	// Reminder is set when the caller should tell the user how many messages remain.
	Reminder bool
}

// Snapshot is today's state of a guild counter.
type Snapshot struct {
	Date  string
	Count int
	Limit int
}

type counter struct {
	date  string
	count int
}

// Limiter caps the daily number of messages the restricted user may post in each guild.
// State lives in memory only and starts over when the process restarts.
type Limiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	limits   map[string]int

	restrictedUserID string
	defaultLimit     int
	reminderEvery    int

	clock utils.Clock
	auth  Authorizer
	log   zerolog.Logger
}

func NewLimiter(cfg models.QuotaConfig, clock utils.Clock, auth Authorizer, log zerolog.Logger) *Limiter {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Limiter{
		counters:         make(map[string]*counter),
		limits:           make(map[string]int),
		restrictedUserID: cfg.RestrictedUserID,
		defaultLimit:     max(1, cfg.DailyLimit),
		reminderEvery:    max(1, cfg.ReminderEvery),
		clock:            clock,
		auth:             auth,
		log:              log.With().Str("component", "quota").Logger(),
	}
}

// Applies reports whether userID is subject to the quota.
func (l *Limiter) Applies(userID string) bool {
	return l.restrictedUserID != "" && userID == l.restrictedUserID
}

// RestrictedUserID returns the id of the user under quota.
func (l *Limiter) RestrictedUserID() string { return l.restrictedUserID }

// CheckAndConsume counts one message from userID in guildID.
// It fails with ErrQuotaExceeded once today's limit is reached; other users always pass.
func (l *Limiter) CheckAndConsume(guildID, userID string) (Result, error) {
	if !l.Applies(userID) {
		return Result{}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.today(guildID)
	limit := l.limitLocked(guildID)
	if c.count >= limit {
		return Result{Count: c.count, Limit: limit}, models.ErrQuotaExceeded
	}

	c.count++
	remaining := limit - c.count
	return Result{
		Count:     c.count,
		Limit:     limit,
		Remaining: remaining,
		Reminder:  c.count%l.reminderEvery == 0 && remaining > 0,
	}, nil
}

// Reset zeroes today's counter for the restricted user in guildID.
func (l *Limiter) Reset(ctx context.Context, adminID, guildID, targetID string) error {
	if err := l.checkAdminOp(ctx, adminID, guildID, targetID); err != nil {
		return err
	}

	l.mu.Lock()
	l.counters[guildID] = &counter{date: l.date(), count: 0}
	l.mu.Unlock()

	l.log.Info().Str("guild", guildID).Str("by", adminID).Msg("quota reset")
	return nil
}

// Grant gives amount extra messages for today by lowering the counter, floored at zero.
func (l *Limiter) Grant(ctx context.Context, adminID, guildID, targetID string, amount int) (Snapshot, error) {
	if err := l.checkAdminOp(ctx, adminID, guildID, targetID); err != nil {
		return Snapshot{}, err
	}
	if amount <= 0 {
		return Snapshot{}, models.ErrInvalidAmount
	}

	l.mu.Lock()
	c := l.today(guildID)
	c.count = max(0, c.count-amount)
	snap := Snapshot{Date: c.date, Count: c.count, Limit: l.limitLocked(guildID)}
	l.mu.Unlock()

	l.log.Info().Str("guild", guildID).Str("by", adminID).Int("amount", amount).Msg("quota granted")
	return snap, nil
}

// SetLimit overrides the daily limit of guildID and returns the stored value.
func (l *Limiter) SetLimit(ctx context.Context, adminID, guildID string, amount int) (int, error) {
	if err := l.requireAdmin(ctx, adminID, guildID); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, models.ErrInvalidAmount
	}

	limit := max(1, amount)
	l.mu.Lock()
	l.limits[guildID] = limit
	l.mu.Unlock()

	l.log.Info().Str("guild", guildID).Str("by", adminID).Int("limit", limit).Msg("quota limit updated")
	return limit, nil
}

// Limit returns the daily limit of guildID.
func (l *Limiter) Limit(guildID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limitLocked(guildID)
}

// Snapshot reports today's counter for guildID without consuming.
func (l *Limiter) Snapshot(guildID string) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.today(guildID)
	return Snapshot{Date: c.date, Count: c.count, Limit: l.limitLocked(guildID)}
}

// today returns the guild counter, rolled over when the stored date is stale. Caller holds mu.
func (l *Limiter) today(guildID string) *counter {
	date := l.date()
	c, ok := l.counters[guildID]
	if !ok || c.date != date {
		c = &counter{date: date}
		l.counters[guildID] = c
	}
	return c
}

func (l *Limiter) limitLocked(guildID string) int {
	if limit, ok := l.limits[guildID]; ok {
		return limit
	}
	return l.defaultLimit
}

func (l *Limiter) date() string {
	return l.clock.Now().UTC().Format(dateLayout)
}

func (l *Limiter) checkAdminOp(ctx context.Context, adminID, guildID, targetID string) error {
	if err := l.requireAdmin(ctx, adminID, guildID); err != nil {
		return err
	}
	if !l.Applies(targetID) {
		return models.ErrUnmanagedUser
	}
	return nil
}

func (l *Limiter) requireAdmin(ctx context.Context, userID, guildID string) error {
	ok, err := l.auth.IsAdministrator(ctx, guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to check administrator: %w", err)
	}
	if !ok {
		return models.ErrPermissionDenied
	}
	return nil
}
