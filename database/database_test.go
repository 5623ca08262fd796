package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"livechat-bot/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := models.DatabaseConfig{Driver: "sqlite3", DSN: filepath.Join(t.TempDir(), "test.db")}
	db, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func messageItem(guildID, authorID string, duration int, at time.Time) models.QueueItem {
	return models.QueueItem{
		GuildID:       guildID,
		Type:          models.QueueTypeMessage,
		Content:       models.MessageOf(models.MessageContent{Text: "salut"}),
		Author:        models.StringPtr("author"),
		AuthorID:      models.StringPtr(authorID),
		Duration:      duration,
		ExecutionDate: at,
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: driverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	lite := &DB{driver: driverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), models.DatabaseConfig{Driver: "mongo"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestQueueRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	duration := 7
	item := messageItem("g1", "u1", 5, now)
	item.Content = models.MessageOf(models.MessageContent{
		URL: "https://cdn.example/a.png", ContentType: "image/png", Duration: &duration, DisplayFull: true,
	})
	id, err := db.InsertQueueItem(ctx, item)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := db.NextDueItem(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, models.QueueTypeMessage, got.Type)
	require.NotNil(t, got.Content.Message)
	assert.Equal(t, "image/png", got.Content.Message.ContentType)
	assert.Equal(t, 7, *got.Content.Message.Duration)
	assert.True(t, got.Content.Message.DisplayFull)
	assert.Equal(t, "u1", *got.AuthorID)
	assert.Nil(t, got.AuthorImage)
	assert.True(t, now.Equal(got.ExecutionDate))

	require.NoError(t, db.DeleteQueueItem(ctx, id))
	got, err = db.NextDueItem(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNextDueItemOrdering(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	_, err := db.InsertQueueItem(ctx, messageItem("g1", "late", 5, now.Add(time.Second)))
	require.NoError(t, err)
	first, err := db.InsertQueueItem(ctx, messageItem("g1", "a", 5, now))
	require.NoError(t, err)
	_, err = db.InsertQueueItem(ctx, messageItem("g2", "b", 5, now))
	require.NoError(t, err)

	got, err := db.NextDueItem(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, first, got.ID, "same execution date is broken by insertion order")

	none, err := db.NextDueItem(ctx, now.Add(-time.Millisecond))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestPostponeDueItems(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	stale, _ := db.InsertQueueItem(ctx, messageItem("g1", "a", 5, now.Add(-10*time.Minute)))
	b, _ := db.InsertQueueItem(ctx, messageItem("g1", "b", 5, now))
	soon, _ := db.InsertQueueItem(ctx, messageItem("g1", "c", 5, now.Add(100*time.Millisecond)))
	future, _ := db.InsertQueueItem(ctx, messageItem("g1", "d", 5, now.Add(time.Minute)))
	other, _ := db.InsertQueueItem(ctx, messageItem("g2", "e", 5, now))

	n, err := db.PostponeDueItems(ctx, "g1", now, 250*time.Millisecond)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	items, err := db.ListQueue(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, []int64{stale, b, soon, future}, []int64{items[0].ID, items[1].ID, items[2].ID, items[3].ID})
	for _, item := range items[:3] {
		assert.True(t, now.Add(250*time.Millisecond).Equal(item.ExecutionDate), "item %d at %v", item.ID, item.ExecutionDate)
	}
	assert.True(t, now.Add(time.Minute).Equal(items[3].ExecutionDate))

	g2, err := db.ListQueue(ctx, "g2")
	require.NoError(t, err)
	require.Len(t, g2, 1)
	assert.Equal(t, other, g2[0].ID)
	assert.True(t, now.Equal(g2[0].ExecutionDate))

	// A stale backlog no longer sorts ahead of other guilds.
	next, err := db.NextDueItem(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, other, next.ID)

	total, err := db.PendingCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}

func TestAudienceReserveAndSettings(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a, err := db.GetAudience(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, a.BusyUntil)

	until := time.UnixMilli(1_700_000_005_250)
	require.NoError(t, db.ReserveAudience(ctx, "g1", until))
	busy, err := db.BusyUntil(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, until.Equal(busy))

	def, full := 9, true
	require.NoError(t, db.UpdateGuildSettings(ctx, "g1", models.GuildSettings{DefaultDuration: &def}))
	require.NoError(t, db.UpdateGuildSettings(ctx, "g1", models.GuildSettings{DisplayFull: &full}))

	a, err = db.GetAudience(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, a.BusyUntil)
	assert.True(t, until.Equal(*a.BusyUntil), "settings updates keep the reservation")
	assert.Equal(t, 9, *a.Settings.DefaultDuration)
	assert.Nil(t, a.Settings.MaxDuration)
	assert.True(t, *a.Settings.DisplayFull)

	// Settings before the first delivery leave the guild free.
	require.NoError(t, db.UpdateGuildSettings(ctx, "g2", models.GuildSettings{MaxDuration: &def}))
	busy, err = db.BusyUntil(ctx, "g2")
	require.NoError(t, err)
	assert.True(t, busy.IsZero())
}

func TestBlockLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	entry := models.BlockEntry{UserID: "u1", GuildID: "g1", BlockedBy: "admin", CreatedAt: time.Now()}
	created, err := db.CreateBlock(ctx, entry)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = db.CreateBlock(ctx, entry)
	require.NoError(t, err)
	assert.False(t, created)

	found, err := db.FindBlock(ctx, "u1", "g1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "admin", found.BlockedBy)

	deleted, err := db.DeleteBlock(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = db.DeleteBlock(ctx, "u1", "g1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRecordVoteThreshold(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		res, err := db.RecordVote(ctx, models.VoteRecord{TargetUserID: "t", GuildID: "g1", VoterID: fmt.Sprintf("v%d", i), CreatedAt: time.Now()}, 5)
		require.NoError(t, err)
		assert.Equal(t, i, res.Votes)
		assert.Equal(t, 5-i, res.Remaining)
		assert.False(t, res.Blacklisted)
	}
	listed, err := db.IsBlacklisted(ctx, "t", "g1")
	require.NoError(t, err)
	assert.False(t, listed)

	_, err = db.RecordVote(ctx, models.VoteRecord{TargetUserID: "t", GuildID: "g1", VoterID: "v1", CreatedAt: time.Now()}, 5)
	assert.ErrorIs(t, err, models.ErrDuplicateVote)
	count, err := db.VoteCount(ctx, "t", "g1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	res, err := db.RecordVote(ctx, models.VoteRecord{TargetUserID: "t", GuildID: "g1", VoterID: "v5", CreatedAt: time.Now()}, 5)
	require.NoError(t, err)
	assert.True(t, res.Blacklisted)

	listed, err = db.IsBlacklisted(ctx, "t", "g1")
	require.NoError(t, err)
	assert.True(t, listed)
	count, err = db.VoteCount(ctx, "t", "g1")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = db.RecordVote(ctx, models.VoteRecord{TargetUserID: "t", GuildID: "g1", VoterID: "v6", CreatedAt: time.Now()}, 5)
	assert.ErrorIs(t, err, models.ErrAlreadyBlacklisted)

	entries, err := db.ListBlacklist(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t", entries[0].UserID)

	removed, err := db.DeleteBlacklist(ctx, "t", "g1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = db.DeleteBlacklist(ctx, "t", "g1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRecordVoteToleratesEntryCreatedMidVote(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		_, err := db.RecordVote(ctx, models.VoteRecord{TargetUserID: "t", GuildID: "g1", VoterID: fmt.Sprintf("v%d", i), CreatedAt: time.Now()}, 5)
		require.NoError(t, err)
	}

	// Another final vote commits its blacklist entry after this vote's
	// blacklist check but before its own insert.
	_, err := db.sql.ExecContext(ctx, `CREATE TRIGGER competing_final_vote AFTER INSERT ON votes
        WHEN (SELECT COUNT(*) FROM votes WHERE target_user_id = NEW.target_user_id AND guild_id = NEW.guild_id) >= 5
        BEGIN
            INSERT INTO blacklist (user_id, guild_id, created_at) VALUES (NEW.target_user_id, NEW.guild_id, 0);
        END`)
	require.NoError(t, err)

	res, err := db.RecordVote(ctx, models.VoteRecord{TargetUserID: "t", GuildID: "g1", VoterID: "v5", CreatedAt: time.Now()}, 5)
	require.NoError(t, err)
	assert.True(t, res.Blacklisted)

	entries, err := db.ListBlacklist(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	count, err := db.VoteCount(ctx, "t", "g1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestConcurrentFinalVotes(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		_, err := db.RecordVote(ctx, models.VoteRecord{TargetUserID: "t", GuildID: "g1", VoterID: fmt.Sprintf("v%d", i), CreatedAt: time.Now()}, 5)
		require.NoError(t, err)
	}

	results := make([]models.VoteResult, 8)
	var g errgroup.Group
	for i := range results {
		i := i
		g.Go(func() error {
			res, err := db.RecordVote(ctx, models.VoteRecord{TargetUserID: "t", GuildID: "g1", VoterID: fmt.Sprintf("late%d", i), CreatedAt: time.Now()}, 5)
			if errors.Is(err, models.ErrAlreadyBlacklisted) {
				return nil
			}
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())

	blacklisted := 0
	for _, res := range results {
		if res.Blacklisted {
			blacklisted++
		}
	}
	assert.Equal(t, 1, blacklisted)

	entries, err := db.ListBlacklist(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
