package database

import "time"

// Channel is one top-level media directory, or the Uncategorized bucket
// keyed by the media root itself.
type Channel struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	FolderPath      string    `json:"folderPath"`
	Description     string    `json:"description,omitempty"`
	SubscriberCount int64     `json:"subscriberCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ChannelSummary is a channel together with its current video count.
type ChannelSummary struct {
	Channel
	VideoCount int `json:"videoCount"`
}

// Video is one indexed media file. Nil pointers are stored as NULL.
type Video struct {
	ID            int64     `json:"id"`
	ChannelID     int64     `json:"channelId"`
	Title         string    `json:"title"`
	FilePath      string    `json:"filePath"`
	ThumbnailPath *string   `json:"thumbnailPath"`
	Duration      int64     `json:"duration"`
	FileSize      int64     `json:"fileSize"`
	Resolution    *string   `json:"resolution"`
	Codec         *string   `json:"codec"`
	ViewCount     int64     `json:"viewCount"`
	LikeCount     int64     `json:"likeCount"`
	PublishedAt   time.Time `json:"publishedAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

// VideoFile is the minimal projection the reconciler needs.
type VideoFile struct {
	ID            int64
	FilePath      string
	ThumbnailPath *string
}
