package scheduler

import (
	"context"
	"time"
)

// LockStore persists when each guild's display frees up.
type LockStore interface {
	BusyUntil(ctx context.Context, guildID string) (time.Time, error)
	ReserveAudience(ctx context.Context, guildID string, until time.Time) error
}

// AudienceLock serializes display time per guild with a single "busy until" timestamp.
// Check and reserve are not atomic; the scheduler's single loop is the only writer.
type AudienceLock struct {
	store LockStore
}

func NewAudienceLock(store LockStore) *AudienceLock {
	return &AudienceLock{store: store}
}

// IsBusy reports whether guildID is still displaying something at now.
func (l *AudienceLock) IsBusy(ctx context.Context, guildID string, now time.Time) (bool, error) {
	until, err := l.store.BusyUntil(ctx, guildID)
	if err != nil {
		return false, err
	}
	return until.After(now), nil
}

// Reserve marks guildID busy until the given time.
func (l *AudienceLock) Reserve(ctx context.Context, guildID string, until time.Time) error {
	return l.store.ReserveAudience(ctx, guildID, until)
}
