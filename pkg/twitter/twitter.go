// Package twitter is a minimal client for the Twitter API v2 user
// timeline endpoint, covering just the fields and expansions the
// archival pipeline consumes.
package twitter

import (
	"time"
)

// Tweet is one timeline entry as returned by the API (newest first).
type Tweet struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	CreatedAt   time.Time    `json:"created_at"`
	Attachments *Attachments `json:"attachments,omitempty"`
}

type Attachments struct {
	MediaKeys []string `json:"media_keys"`
}

// Media is one entry of the page's media table, referenced from tweets
// via attachment media keys.
type Media struct {
	MediaKey string    `json:"media_key"`
	Type     string    `json:"type"`
	URL      string    `json:"url,omitempty"`
	Variants []Variant `json:"variants,omitempty"`
}

type Variant struct {
	BitRate     int64  `json:"bit_rate,omitempty"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

type Includes struct {
	Media []Media `json:"media"`
}

type Meta struct {
	ResultCount int    `json:"result_count"`
	NewestID    string `json:"newest_id,omitempty"`
	OldestID    string `json:"oldest_id,omitempty"`
	NextToken   string `json:"next_token,omitempty"`
}

// Timeline is a single page of the user timeline response.
type Timeline struct {
	Data     []Tweet   `json:"data"`
	Includes *Includes `json:"includes,omitempty"`
	Meta     *Meta     `json:"meta"`
}

// TimelineQuery selects which part of the timeline to fetch. Exactly
// one of SinceID, PaginationToken or StartTime is expected to be set,
// with priority in that order.
type TimelineQuery struct {
	SinceID         string
	PaginationToken string
	StartTime       time.Time
	MaxResults      int
}
