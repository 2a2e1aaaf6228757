package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const channelColumns = `id, name, folder_path, COALESCE(description, ''), subscriber_count, created_at`

func scanChannel(row interface{ Scan(...any) error }, c *Channel) error {
	var createdAt int64
	if err := row.Scan(&c.ID, &c.Name, &c.FolderPath, &c.Description, &c.SubscriberCount, &createdAt); err != nil {
		return err
	}
	c.CreatedAt = time.Unix(createdAt, 0)
	return nil
}

// GetChannelByFolderPath returns the channel keyed by folderPath, or ErrNotFound.
func (d *Database) GetChannelByFolderPath(ctx context.Context, folderPath string) (*Channel, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_channel_by_folder_path", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c Channel
	err = scanChannel(d.db.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE folder_path = ?`, folderPath), &c)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, fmt.Errorf("channel %s: %w", folderPath, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query channel %s: %w", folderPath, err)
	}
	return &c, nil
}

// CreateChannel inserts a channel unless one with the same folder path
// exists, then returns the stored row. created reports whether this call
// inserted it. The UNIQUE constraint on folder_path makes concurrent calls
// for the same folder converge on one row.
func (d *Database) CreateChannel(ctx context.Context, name, folderPath, description string) (ch *Channel, created bool, err error) {
	start := time.Now()
	defer func() { recordQuery("create_channel", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO channels (name, folder_path, description) VALUES (?, ?, ?)`,
		name, folderPath, description)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert channel %s: %w", folderPath, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read insert result for channel %s: %w", folderPath, err)
	}

	ch, err = d.GetChannelByFolderPath(ctx, folderPath)
	if err != nil {
		return nil, false, err
	}
	return ch, affected > 0, nil
}

// DeleteEmptyChannels removes every channel that owns no videos and returns
// how many were removed.
func (d *Database) DeleteEmptyChannels(ctx context.Context) (int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_empty_channels", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		DELETE FROM channels
		WHERE NOT EXISTS (SELECT 1 FROM videos WHERE videos.channel_id = channels.id)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete empty channels: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return int(n), nil
}

// CountChannels returns the number of channels.
func (d *Database) CountChannels(ctx context.Context) (int, error) {
	return d.count(ctx, "count_channels", `SELECT COUNT(*) FROM channels`)
}

// ListChannels returns all channels ordered by name, with their video counts.
func (d *Database) ListChannels(ctx context.Context) ([]ChannelSummary, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_channels", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.folder_path, COALESCE(c.description, ''), c.subscriber_count, c.created_at,
		       COUNT(v.id)
		FROM channels c
		LEFT JOIN videos v ON v.channel_id = c.id
		GROUP BY c.id
		ORDER BY c.name COLLATE NOCASE, c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var out []ChannelSummary
	for rows.Next() {
		var s ChannelSummary
		var createdAt int64
		if err = rows.Scan(&s.ID, &s.Name, &s.FolderPath, &s.Description, &s.SubscriberCount, &createdAt, &s.VideoCount); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		s.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate channels: %w", err)
	}
	return out, nil
}

func (d *Database) count(ctx context.Context, operation, query string) (int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery(operation, start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	if err = d.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", operation, err)
	}
	return n, nil
}
