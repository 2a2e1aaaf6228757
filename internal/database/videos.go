package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// VideoExistsByPath reports whether a video with this exact file path is catalogued.
func (d *Database) VideoExistsByPath(ctx context.Context, filePath string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("video_exists_by_path", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var exists bool
	err = d.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM videos WHERE file_path = ?)`, filePath).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check video %s: %w", filePath, err)
	}
	return exists, nil
}

// InsertVideo stores v unless a video with the same file path already exists.
// It returns true and sets v.ID when a row was created.
func (d *Database) InsertVideo(ctx context.Context, v *Video) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("insert_video", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO videos
			(channel_id, title, file_path, thumbnail_path, duration, file_size, resolution, codec, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.ChannelID, v.Title, v.FilePath, nullString(v.ThumbnailPath),
		v.Duration, v.FileSize, nullString(v.Resolution), nullString(v.Codec),
		v.PublishedAt.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert video %s: %w", v.FilePath, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result for video %s: %w", v.FilePath, err)
	}
	if affected == 0 {
		return false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to read id for video %s: %w", v.FilePath, err)
	}
	v.ID = id
	return true, nil
}

// GetVideoByPath returns the video stored for filePath, or ErrNotFound.
func (d *Database) GetVideoByPath(ctx context.Context, filePath string) (*Video, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_video_by_path", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		v                        Video
		thumb, resolution, codec sql.NullString
		publishedAt, createdAt   int64
	)
	err = d.db.QueryRowContext(ctx, `
		SELECT id, channel_id, title, file_path, thumbnail_path, duration, file_size,
		       resolution, codec, view_count, like_count, published_at, created_at
		FROM videos WHERE file_path = ?
	`, filePath).Scan(
		&v.ID, &v.ChannelID, &v.Title, &v.FilePath, &thumb, &v.Duration, &v.FileSize,
		&resolution, &codec, &v.ViewCount, &v.LikeCount, &publishedAt, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, fmt.Errorf("video %s: %w", filePath, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query video %s: %w", filePath, err)
	}

	v.ThumbnailPath = stringPtr(thumb)
	v.Resolution = stringPtr(resolution)
	v.Codec = stringPtr(codec)
	v.PublishedAt = time.Unix(publishedAt, 0)
	v.CreatedAt = time.Unix(createdAt, 0)
	return &v, nil
}

// ListVideoFiles returns the id, file path and thumbnail of every video.
func (d *Database) ListVideoFiles(ctx context.Context) ([]VideoFile, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_video_files", start, err) }()

	rows, err := d.db.QueryContext(ctx, `SELECT id, file_path, thumbnail_path FROM videos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var out []VideoFile
	for rows.Next() {
		var f VideoFile
		var thumb sql.NullString
		if err = rows.Scan(&f.ID, &f.FilePath, &thumb); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		f.ThumbnailPath = stringPtr(thumb)
		out = append(out, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate videos: %w", err)
	}
	return out, nil
}

// DeleteVideo removes the video with the given id. It reports whether a row
// was deleted.
func (d *Database) DeleteVideo(ctx context.Context, id int64) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_video", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete video %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result for video %d: %w", id, err)
	}
	return n > 0, nil
}

// CountVideos returns the number of videos.
func (d *Database) CountVideos(ctx context.Context) (int, error) {
	return d.count(ctx, "count_videos", `SELECT COUNT(*) FROM videos`)
}
