package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"livechat-bot/models"
)

const queueColumns = `id, guild_id, type, content, author, author_id, author_image, duration, execution_date`

// InsertQueueItem stores a new item and returns its assigned id.
func (d *DB) InsertQueueItem(ctx context.Context, item models.QueueItem) (int64, error) {
	content, err := json.Marshal(item.Content)
	if err != nil {
		return 0, fmt.Errorf("failed to encode queue content: %w", err)
	}

	query := d.rebind(`INSERT INTO queue (guild_id, type, content, author, author_id, author_image, duration, execution_date)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	var id int64
	err = d.sql.QueryRowContext(ctx, query,
		item.GuildID, string(item.Type), string(content),
		nullString(item.Author), nullString(item.AuthorID), nullString(item.AuthorImage),
		item.Duration, toMillis(item.ExecutionDate),
	).Scan(&id)
	if err != nil {
		return 0, storeErr("insert queue item", err)
	}
	return id, nil
}

// NextDueItem returns the earliest item due at now, ties broken by id.
// It returns nil when nothing is due.
func (d *DB) NextDueItem(ctx context.Context, now time.Time) (*models.QueueItem, error) {
	query := d.rebind(`SELECT ` + queueColumns + ` FROM queue
        WHERE execution_date <= ?
        ORDER BY execution_date ASC, id ASC
        LIMIT 1`)
	item, err := scanQueueItem(d.sql.QueryRowContext(ctx, query, toMillis(now)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("select next queue item", err)
	}
	return item, nil
}

// PostponeDueItems moves every item of the guild that would be due before
// now+delay to now+delay. Postponed items share one execution date, so they
// keep their insertion order through the id tie-break.
func (d *DB) PostponeDueItems(ctx context.Context, guildID string, now time.Time, delay time.Duration) (int64, error) {
	next := toMillis(now.Add(delay))
	query := d.rebind(`UPDATE queue SET execution_date = ? WHERE guild_id = ? AND execution_date < ?`)
	res, err := d.sql.ExecContext(ctx, query, next, guildID, next)
	if err != nil {
		return 0, storeErr("postpone queue items", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteQueueItem removes a delivered item.
func (d *DB) DeleteQueueItem(ctx context.Context, id int64) error {
	if _, err := d.sql.ExecContext(ctx, d.rebind(`DELETE FROM queue WHERE id = ?`), id); err != nil {
		return storeErr("delete queue item", err)
	}
	return nil
}

// PendingCount counts queued items, optionally restricted to one guild.
func (d *DB) PendingCount(ctx context.Context, guildID string) (int, error) {
	query := `SELECT COUNT(*) FROM queue`
	args := []any{}
	if guildID != "" {
		query += ` WHERE guild_id = ?`
		args = append(args, guildID)
	}
	var n int
	if err := d.sql.QueryRowContext(ctx, d.rebind(query), args...).Scan(&n); err != nil {
		return 0, storeErr("count queue items", err)
	}
	return n, nil
}

// ListQueue returns a guild's queued items in delivery order.
func (d *DB) ListQueue(ctx context.Context, guildID string) ([]models.QueueItem, error) {
	query := d.rebind(`SELECT ` + queueColumns + ` FROM queue WHERE guild_id = ? ORDER BY execution_date ASC, id ASC`)
	rows, err := d.sql.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, storeErr("list queue items", err)
	}
	defer rows.Close()

	var items []models.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, storeErr("scan queue item", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list queue items", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueItem(row rowScanner) (*models.QueueItem, error) {
	var (
		item                          models.QueueItem
		typ, content                  string
		author, authorID, authorImage sql.NullString
		executionDate                 int64
	)
	if err := row.Scan(&item.ID, &item.GuildID, &typ, &content, &author, &authorID, &authorImage, &item.Duration, &executionDate); err != nil {
		return nil, err
	}
	item.Type = models.QueueType(typ)
	decoded, err := models.DecodeContent(item.Type, []byte(content))
	if err != nil {
		return nil, err
	}
	item.Content = decoded
	item.Author = stringPtr(author)
	item.AuthorID = stringPtr(authorID)
	item.AuthorImage = stringPtr(authorImage)
	item.ExecutionDate = fromMillis(executionDate)
	return &item, nil
}
