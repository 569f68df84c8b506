package models

import (
	"time"

	"github.com/google/uuid"
)

// RSSFeed is one feed configured under a server.
type RSSFeed struct {
	ID           uuid.UUID       `json:"id"`
	ServerID     uuid.UUID       `json:"server_id"`
	URL          string          `json:"url"`
	Integrations []IntegrationID `json:"integrations"`
	LastETag     string          `json:"last_etag,omitempty"`
	LastModified string          `json:"last_modified,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RSSEntry is a normalized feed item. Link is the identity used when
// diffing a fetch against previously stored entries.
type RSSEntry struct {
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Published   *float64 `json:"published,omitempty"`
}

// StoredRSSEntry is the persisted time-series row for one seen entry.
type StoredRSSEntry struct {
	ID        uuid.UUID `json:"id"`
	FeedID    uuid.UUID `json:"feed_id"`
	ServerID  uuid.UUID `json:"server_id"`
	Entry     RSSEntry  `json:"entry"`
	CreatedAt time.Time `json:"created_at"`
}
