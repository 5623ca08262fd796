package models

import "time"

// BlockEntry bars a user from every non-admin command in a guild.
type BlockEntry struct {
	UserID    string `db:"user_id"`
	GuildID   string `db:"guild_id"`
	BlockedBy string `db:"blocked_by"`
	CreatedAt time.Time
}

// BlacklistEntry marks a user whose queued items are replaced at delivery time.
type BlacklistEntry struct {
	UserID    string `db:"user_id"`
	GuildID   string `db:"guild_id"`
	CreatedAt time.Time
}

// VoteRecord is one voter's vote to blacklist a target in a guild.
type VoteRecord struct {
	TargetUserID string `db:"target_user_id"`
	GuildID      string `db:"guild_id"`
	VoterID      string `db:"voter_id"`
	CreatedAt    time.Time
}

// VoteResult reports the state of a vote after it was recorded.
type VoteResult struct {
	Votes       int
	Needed      int
	Remaining   int
	Blacklisted bool
}
