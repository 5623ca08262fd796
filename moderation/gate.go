package moderation

import (
	"context"
	"fmt"
	"time"

	"livechat-bot/models"

	"github.com/rs/zerolog"
)

// VoteThreshold is the number of distinct voters needed to blacklist a user.
const VoteThreshold = 5

// Store is the persistence the gate needs.
type Store interface {
	FindBlock(ctx context.Context, userID, guildID string) (*models.BlockEntry, error)
	CreateBlock(ctx context.Context, entry models.BlockEntry) (bool, error)
	DeleteBlock(ctx context.Context, userID, guildID string) (bool, error)
	IsBlacklisted(ctx context.Context, userID, guildID string) (bool, error)
	DeleteBlacklist(ctx context.Context, userID, guildID string) (bool, error)
	RecordVote(ctx context.Context, vote models.VoteRecord, threshold int) (models.VoteResult, error)
}

// Authorizer decides who may run administrator operations.
type Authorizer interface {
	IsAdministrator(ctx context.Context, guildID, userID string) (bool, error)
}

// Gate manages the block list and the vote-driven blacklist of each guild.
// Blocks stop a user from submitting; a blacklist only changes what gets displayed.
type Gate struct {
	store Store
	auth  Authorizer
	now   func() time.Time
	log   zerolog.Logger
}

func NewGate(store Store, auth Authorizer, log zerolog.Logger) *Gate {
	return &Gate{
		store: store,
		auth:  auth,
		now:   time.Now,
		log:   log.With().Str("component", "moderation").Logger(),
	}
}

// IsBlocked reports whether userID may not submit in guildID.
func (g *Gate) IsBlocked(ctx context.Context, userID, guildID string) (bool, error) {
	entry, err := g.store.FindBlock(ctx, userID, guildID)
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}

// IsBlacklisted reports whether userID's items are replaced at delivery in guildID.
func (g *Gate) IsBlacklisted(ctx context.Context, userID, guildID string) (bool, error) {
	return g.store.IsBlacklisted(ctx, userID, guildID)
}

// Block bars userID from submitting in guildID.
func (g *Gate) Block(ctx context.Context, adminID, userID, guildID string) error {
	if err := g.requireAdmin(ctx, adminID, guildID); err != nil {
		return err
	}
	created, err := g.store.CreateBlock(ctx, models.BlockEntry{
		UserID:    userID,
		GuildID:   guildID,
		BlockedBy: adminID,
		CreatedAt: g.now(),
	})
	if err != nil {
		return err
	}
	if !created {
		return models.ErrAlreadyBlocked
	}
	g.log.Info().Str("guild", guildID).Str("user", userID).Str("by", adminID).Msg("user blocked")
	return nil
}

// Unblock lifts a block.
func (g *Gate) Unblock(ctx context.Context, adminID, userID, guildID string) error {
	if err := g.requireAdmin(ctx, adminID, guildID); err != nil {
		return err
	}
	deleted, err := g.store.DeleteBlock(ctx, userID, guildID)
	if err != nil {
		return err
	}
	if !deleted {
		return models.ErrNotBlocked
	}
	g.log.Info().Str("guild", guildID).Str("user", userID).Str("by", adminID).Msg("user unblocked")
	return nil
}

// Vote records voterID's vote against targetID.
func (g *Gate) Vote(ctx context.Context, voterID, targetID, guildID string) (models.VoteResult, error) {
	res, err := g.store.RecordVote(ctx, models.VoteRecord{
		TargetUserID: targetID,
		GuildID:      guildID,
		VoterID:      voterID,
		CreatedAt:    g.now(),
	}, VoteThreshold)
	if err != nil {
		return models.VoteResult{}, err
	}
	if res.Blacklisted {
		g.log.Info().Str("guild", guildID).Str("user", targetID).Msg("user blacklisted by vote")
	}
	return res, nil
}

// Unblacklist removes a blacklist entry.
func (g *Gate) Unblacklist(ctx context.Context, adminID, userID, guildID string) error {
	if err := g.requireAdmin(ctx, adminID, guildID); err != nil {
		return err
	}
	deleted, err := g.store.DeleteBlacklist(ctx, userID, guildID)
	if err != nil {
		return err
	}
	if !deleted {
		return models.ErrNotBlacklisted
	}
	g.log.Info().Str("guild", guildID).Str("user", userID).Str("by", adminID).Msg("user unblacklisted")
	return nil
}

func (g *Gate) requireAdmin(ctx context.Context, userID, guildID string) error {
	ok, err := g.auth.IsAdministrator(ctx, guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to check administrator: %w", err)
	}
	if !ok {
		return models.ErrPermissionDenied
	}
	return nil
}
