package model

import (
	"time"
)

type MediaKind string

const (
	KindPhoto MediaKind = "photo"
	KindVideo MediaKind = "video"
)

// Variant is one encoded representation of a video attachment.
type Variant struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	BitRate     int64  `json:"bit_rate,omitempty"`
}

// MediaDescriptor is a single entry from a timeline page's media table.
// Photos carry a direct URL, videos carry a list of encoding variants.
type MediaDescriptor struct {
	MediaKey string    `json:"media_key"`
	Kind     MediaKind `json:"kind"`
	URL      string    `json:"url,omitempty"`
	Variants []Variant `json:"variants,omitempty"`
}

// ResolvedMedia is the single transferable representation picked from
// a descriptor: where to read the bytes from and how to name them at
// the destination.
type ResolvedMedia struct {
	SourceURL   string `json:"source_url"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

// WorkItem is one queued unit of work: a fetched tweet with its media
// descriptors inlined, so the worker never needs the page context the
// tweet was fetched with.
type WorkItem struct {
	TweetID   string            `json:"tweet_id"`
	Text      string            `json:"text"`
	CreatedAt time.Time         `json:"created_at"`
	Media     []MediaDescriptor `json:"media,omitempty"`
}

// Tweet is the final persisted record of one archived tweet.
// MediaLocations keeps the original attachment order.
type Tweet struct {
	TweetID        string    `json:"tweet_id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
	MediaLocations []string  `json:"media_locations,omitempty"`
	IngestedAt     time.Time `json:"ingested_at"`
}
