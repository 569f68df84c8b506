package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/db"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

type RSSRepository struct {
	q db.Querier
}

func NewRSSRepository(database *db.DB) *RSSRepository {
	return &RSSRepository{q: database.DB}
}

func (r *RSSRepository) WithTx(tx *sql.Tx) *RSSRepository {
	return &RSSRepository{q: tx}
}

func (r *RSSRepository) CreateFeed(feed *models.RSSFeed) error {
	doc, err := marshalDoc(feed)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`
		INSERT INTO rss_feeds (id, server_id, url, doc, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		feed.ID, feed.ServerID, feed.URL, doc, feed.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert rss feed: %w", err)
	}
	return nil
}

func (r *RSSRepository) GetFeed(id uuid.UUID) (*models.RSSFeed, error) {
	var raw []byte
	err := r.q.QueryRow(`SELECT doc FROM rss_feeds WHERE id = $1`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rss feed not found")
	}
	if err != nil {
		return nil, err
	}
	feed := &models.RSSFeed{}
	if err := unmarshalDoc(raw, feed); err != nil {
		return nil, err
	}
	return feed, nil
}

// FeedServerIDs lists every server that has at least one feed configured.
func (r *RSSRepository) FeedServerIDs() ([]uuid.UUID, error) {
	rows, err := r.q.Query(`SELECT DISTINCT server_id FROM rss_feeds`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FeedsForServer returns the oldest feeds of a server up to limit, the
// per-tier bound applied when feed lists are loaded.
func (r *RSSRepository) FeedsForServer(serverID uuid.UUID, limit int) ([]*models.RSSFeed, error) {
	rows, err := r.q.Query(`
		SELECT doc FROM rss_feeds WHERE server_id = $1
		ORDER BY created_at ASC LIMIT $2`, serverID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	feeds := []*models.RSSFeed{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		feed := &models.RSSFeed{}
		if err := unmarshalDoc(raw, feed); err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

func (r *RSSRepository) CountFeeds(serverID uuid.UUID) (int, error) {
	var count int
	err := r.q.QueryRow(`SELECT COUNT(*) FROM rss_feeds WHERE server_id = $1`, serverID).Scan(&count)
	return count, err
}

// SaveFeed persists conditional-fetch state (ETag/Last-Modified).
func (r *RSSRepository) SaveFeed(feed *models.RSSFeed) error {
	doc, err := marshalDoc(feed)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`UPDATE rss_feeds SET url = $1, doc = $2 WHERE id = $3`, feed.URL, doc, feed.ID)
	return err
}

func (r *RSSRepository) DeleteFeed(id uuid.UUID) error {
	_, err := r.q.Exec(`DELETE FROM rss_feeds WHERE id = $1`, id)
	return err
}

// EntryLinks returns the link identities already recorded for a feed,
// the set new fetches are diffed against.
func (r *RSSRepository) EntryLinks(feedID, serverID uuid.UUID) (map[string]bool, error) {
	rows, err := r.q.Query(
		`SELECT link FROM rss_entries WHERE feed_id = $1 AND server_id = $2`, feedID, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make(map[string]bool)
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, err
		}
		if link != "" {
			links[link] = true
		}
	}
	return links, rows.Err()
}

func (r *RSSRepository) CreateEntry(entry *models.StoredRSSEntry) error {
	doc, err := marshalDoc(entry.Entry)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`
		INSERT INTO rss_entries (id, feed_id, server_id, link, doc, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.FeedID, entry.ServerID, entry.Entry.Link, doc, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert rss entry: %w", err)
	}
	return nil
}
