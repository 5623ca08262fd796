package database

import (
	"context"
	"database/sql"
	"errors"

	"livechat-bot/models"
)

// FindBlock returns the block entry for the pair, or nil.
func (d *DB) FindBlock(ctx context.Context, userID, guildID string) (*models.BlockEntry, error) {
	query := d.rebind(`SELECT blocked_by, created_at FROM blocked_users WHERE user_id = ? AND guild_id = ?`)
	var (
		blockedBy string
		createdAt int64
	)
	err := d.sql.QueryRowContext(ctx, query, userID, guildID).Scan(&blockedBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("select block", err)
	}
	return &models.BlockEntry{UserID: userID, GuildID: guildID, BlockedBy: blockedBy, CreatedAt: fromMillis(createdAt)}, nil
}

// CreateBlock inserts a block entry. It reports false when one already exists.
func (d *DB) CreateBlock(ctx context.Context, entry models.BlockEntry) (bool, error) {
	query := d.rebind(`INSERT INTO blocked_users (user_id, guild_id, blocked_by, created_at) VALUES (?, ?, ?, ?)
        ON CONFLICT (user_id, guild_id) DO NOTHING`)
	res, err := d.sql.ExecContext(ctx, query, entry.UserID, entry.GuildID, entry.BlockedBy, toMillis(entry.CreatedAt))
	if err != nil {
		return false, storeErr("insert block", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("insert block", err)
	}
	return n > 0, nil
}

// DeleteBlock removes a block entry. It reports false when there was none.
func (d *DB) DeleteBlock(ctx context.Context, userID, guildID string) (bool, error) {
	return d.deletePair(ctx, "delete block", `DELETE FROM blocked_users WHERE user_id = ? AND guild_id = ?`, userID, guildID)
}

// IsBlacklisted reports whether the user is blacklisted in the guild.
func (d *DB) IsBlacklisted(ctx context.Context, userID, guildID string) (bool, error) {
	var one int
	err := d.sql.QueryRowContext(ctx, d.rebind(`SELECT 1 FROM blacklist WHERE user_id = ? AND guild_id = ?`), userID, guildID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("select blacklist", err)
	}
	return true, nil
}

// DeleteBlacklist removes a blacklist entry. It reports false when there was none.
func (d *DB) DeleteBlacklist(ctx context.Context, userID, guildID string) (bool, error) {
	return d.deletePair(ctx, "delete blacklist", `DELETE FROM blacklist WHERE user_id = ? AND guild_id = ?`, userID, guildID)
}

// VoteCount counts the votes currently recorded against a user.
func (d *DB) VoteCount(ctx context.Context, targetUserID, guildID string) (int, error) {
	var n int
	query := d.rebind(`SELECT COUNT(*) FROM votes WHERE target_user_id = ? AND guild_id = ?`)
	if err := d.sql.QueryRowContext(ctx, query, targetUserID, guildID).Scan(&n); err != nil {
		return 0, storeErr("count votes", err)
	}
	return n, nil
}

// RecordVote records one vote and, once threshold votes exist, blacklists the
// target and clears its votes, all in one transaction.
func (d *DB) RecordVote(ctx context.Context, vote models.VoteRecord, threshold int) (models.VoteResult, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return models.VoteResult{}, storeErr("begin vote", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, d.rebind(`SELECT 1 FROM blacklist WHERE user_id = ? AND guild_id = ?`),
		vote.TargetUserID, vote.GuildID).Scan(&one)
	switch {
	case err == nil:
		return models.VoteResult{}, models.ErrAlreadyBlacklisted
	case !errors.Is(err, sql.ErrNoRows):
		return models.VoteResult{}, storeErr("select blacklist", err)
	}

	_, err = tx.ExecContext(ctx, d.rebind(`INSERT INTO votes (target_user_id, guild_id, voter_id, created_at) VALUES (?, ?, ?, ?)`),
		vote.TargetUserID, vote.GuildID, vote.VoterID, toMillis(vote.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return models.VoteResult{}, models.ErrDuplicateVote
		}
		return models.VoteResult{}, storeErr("insert vote", err)
	}

	var count int
	err = tx.QueryRowContext(ctx, d.rebind(`SELECT COUNT(*) FROM votes WHERE target_user_id = ? AND guild_id = ?`),
		vote.TargetUserID, vote.GuildID).Scan(&count)
	if err != nil {
		return models.VoteResult{}, storeErr("count votes", err)
	}

	result := models.VoteResult{Votes: count, Needed: threshold, Remaining: max(0, threshold-count)}
	if count >= threshold {
		// A concurrent final vote may have created the entry already.
		_, err = tx.ExecContext(ctx, d.rebind(`INSERT INTO blacklist (user_id, guild_id, created_at) VALUES (?, ?, ?)
            ON CONFLICT (user_id, guild_id) DO NOTHING`),
			vote.TargetUserID, vote.GuildID, toMillis(vote.CreatedAt))
		if err != nil {
			return models.VoteResult{}, storeErr("insert blacklist", err)
		}
		_, err = tx.ExecContext(ctx, d.rebind(`DELETE FROM votes WHERE target_user_id = ? AND guild_id = ?`),
			vote.TargetUserID, vote.GuildID)
		if err != nil {
			return models.VoteResult{}, storeErr("clear votes", err)
		}
		result.Blacklisted = true
	}

	if err := tx.Commit(); err != nil {
		return models.VoteResult{}, storeErr("commit vote", err)
	}
	return result, nil
}

// ListBlacklist returns a guild's blacklist entries, oldest first.
func (d *DB) ListBlacklist(ctx context.Context, guildID string) ([]models.BlacklistEntry, error) {
	rows, err := d.sql.QueryContext(ctx, d.rebind(`SELECT user_id, created_at FROM blacklist WHERE guild_id = ? ORDER BY created_at ASC`), guildID)
	if err != nil {
		return nil, storeErr("list blacklist", err)
	}
	defer rows.Close()

	var entries []models.BlacklistEntry
	for rows.Next() {
		var (
			e         = models.BlacklistEntry{GuildID: guildID}
			createdAt int64
		)
		if err := rows.Scan(&e.UserID, &createdAt); err != nil {
			return nil, storeErr("scan blacklist", err)
		}
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list blacklist", err)
	}
	return entries, nil
}

func (d *DB) deletePair(ctx context.Context, op, query, userID, guildID string) (bool, error) {
	res, err := d.sql.ExecContext(ctx, d.rebind(query), userID, guildID)
	if err != nil {
		return false, storeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(op, err)
	}
	return n > 0, nil
}
