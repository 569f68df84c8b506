package rss

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/naoTimesdev/showtimes-sub000/internal/config"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
	"github.com/naoTimesdev/showtimes-sub000/internal/pubsub"
	"github.com/naoTimesdev/showtimes-sub000/internal/repository"
	"github.com/naoTimesdev/showtimes-sub000/internal/showerrors"
)

// TopicPrefix namespaces per-server feed-update topics on the hub.
const TopicPrefix = "rss:"

// fetchTimeout bounds a single feed fetch. A slow feed is skipped for
// the round, never allowed to stall the whole tier.
const fetchTimeout = 15 * time.Second

// Service polls configured feeds on two cadences: the regular tier and
// a faster one for servers holding an active feed premium. Feed lists
// are snapshotted by RefreshFeeds and re-read on a schedule, not on
// every tick.
type Service struct {
	repo     *repository.RSSRepository
	premiums *repository.PremiumRepository
	hub      *pubsub.Hub
	cfg      *config.Config
	parser   *gofeed.Parser
	client   *http.Client

	mu      sync.Mutex
	regular []*models.RSSFeed
	premium []*models.RSSFeed

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(repo *repository.RSSRepository, premiums *repository.PremiumRepository, hub *pubsub.Hub, cfg *config.Config) *Service {
	return &Service{
		repo:     repo,
		premiums: premiums,
		hub:      hub,
		cfg:      cfg,
		parser:   gofeed.NewParser(),
		client:   &http.Client{Timeout: fetchTimeout},
	}
}

// RefreshFeeds rebuilds both tier snapshots from the database, applying
// the per-server feed bound for each tier.
func (s *Service) RefreshFeeds(ctx context.Context) error {
	serverIDs, err := s.repo.FeedServerIDs()
	if err != nil {
		return fmt.Errorf("list feed servers: %w", err)
	}
	premiumTargets, err := s.premiums.ActiveTargets(models.PremiumShowRSS, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("list premium targets: %w", err)
	}

	var regular, premium []*models.RSSFeed
	for _, serverID := range serverIDs {
		limit := s.cfg.RSSLimit
		if premiumTargets[serverID] {
			limit = s.cfg.RSSLimitPremium
		}
		feeds, err := s.repo.FeedsForServer(serverID, limit)
		if err != nil {
			return fmt.Errorf("load feeds for %s: %w", serverID, err)
		}
		if premiumTargets[serverID] {
			premium = append(premium, feeds...)
		} else {
			regular = append(regular, feeds...)
		}
	}

	s.mu.Lock()
	s.regular = regular
	s.premium = premium
	s.mu.Unlock()
	log.Printf("[rss] feed lists refreshed: %d regular, %d premium", len(regular), len(premium))
	return nil
}

// Start launches the two polling loops. Stop cancels them and waits for
// in-flight rounds to drain.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(2)
	go s.loop(ctx, s.cfg.RSSInterval, s.snapshotRegular)
	go s.loop(ctx, s.cfg.RSSIntervalPremium, s.snapshotPremium)
	log.Printf("[rss] pollers started, intervals %s regular / %s premium",
		s.cfg.RSSInterval, s.cfg.RSSIntervalPremium)
}

func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Service) snapshotRegular() []*models.RSSFeed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regular
}

func (s *Service) snapshotPremium() []*models.RSSFeed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.premium
}

func (s *Service) loop(ctx context.Context, interval time.Duration, snapshot func() []*models.RSSFeed) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, feed := range snapshot() {
				if ctx.Err() != nil {
					return
				}
				if err := s.pollFeed(ctx, feed); err != nil {
					log.Printf("[rss] poll %s failed: %v", feed.URL, err)
				}
			}
		}
	}
}

// pollFeed fetches one feed conditionally, diffs against recorded
// links, and persists plus publishes anything new.
func (s *Service) pollFeed(ctx context.Context, feed *models.RSSFeed) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if feed.LastETag != "" {
		req.Header.Set("If-None-Match", feed.LastETag)
	}
	if feed.LastModified != "" {
		req.Header.Set("If-Modified-Since", feed.LastModified)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// Timeouts and transient network errors skip the round.
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned %d", resp.StatusCode)
	}

	parsed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}

	known, err := s.repo.EntryLinks(feed.ID, feed.ServerID)
	if err != nil {
		return fmt.Errorf("load known links: %w", err)
	}
	fresh := diffEntries(parsed.Items, feed.URL, known)

	now := time.Now().UTC()
	for _, entry := range fresh {
		stored := &models.StoredRSSEntry{
			ID:        uuid.New(),
			FeedID:    feed.ID,
			ServerID:  feed.ServerID,
			Entry:     entry,
			CreatedAt: now,
		}
		if err := s.repo.CreateEntry(stored); err != nil {
			return fmt.Errorf("store entry %s: %w", entry.Link, err)
		}
		s.hub.Publish(ctx, TopicPrefix+feed.ServerID.String(), stored)
	}
	if len(fresh) > 0 {
		log.Printf("[rss] %s: %d new entries", feed.URL, len(fresh))
	}

	etag := resp.Header.Get("ETag")
	lastModified := resp.Header.Get("Last-Modified")
	if etag != feed.LastETag || lastModified != feed.LastModified {
		feed.LastETag = etag
		feed.LastModified = lastModified
		if err := s.repo.SaveFeed(feed); err != nil {
			return fmt.Errorf("save conditional state: %w", err)
		}
	}
	return nil
}

// diffEntries normalizes fetched items and returns, in feed order, the
// ones whose link is not yet in known. Items without a link are skipped
// and a link repeated within one fetch surfaces once; known is marked
// as entries are taken.
func diffEntries(items []*gofeed.Item, feedURL string, known map[string]bool) []models.RSSEntry {
	var fresh []models.RSSEntry
	for _, item := range items {
		entry := NormalizeItem(item, feedURL)
		if entry.Link == "" || known[entry.Link] {
			continue
		}
		known[entry.Link] = true
		fresh = append(fresh, entry)
	}
	return fresh
}

// AddFeed registers a feed under a server, enforcing the per-tier bound
// and validating the URL actually parses as a feed.
func (s *Service) AddFeed(ctx context.Context, serverID uuid.UUID, feedURL string, integrations []models.IntegrationID) (*models.RSSFeed, error) {
	count, err := s.repo.CountFeeds(serverID)
	if err != nil {
		return nil, err
	}
	limit := s.cfg.RSSLimit
	if premium, err := s.premiums.FindActive(serverID, models.PremiumShowRSS, time.Now().UTC()); err == nil && premium != nil {
		limit = s.cfg.RSSLimitPremium
	}
	if count >= limit {
		return nil, showerrors.Newf(showerrors.CodeFeedLimit, "server already has %d of %d feeds", count, limit)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	if _, err := s.parser.ParseURLWithContext(feedURL, fetchCtx); err != nil {
		return nil, showerrors.Wrap(showerrors.CodeFeedNotFound, "url is not a readable feed", err)
	}

	for _, integ := range integrations {
		if !models.ValidIntegrationType(integ.Type) {
			return nil, showerrors.Newf(showerrors.CodeInvalidIntegra, "unknown integration type %q", integ.Type)
		}
	}

	feed := &models.RSSFeed{
		ID:           uuid.New(),
		ServerID:     serverID,
		URL:          feedURL,
		Integrations: integrations,
		CreatedAt:    time.Now().UTC(),
	}
	for i := range feed.Integrations {
		feed.Integrations[i].Normalize()
	}
	if err := s.repo.CreateFeed(feed); err != nil {
		return nil, err
	}
	return feed, nil
}

// RemoveFeed deletes a feed by ID.
func (s *Service) RemoveFeed(id uuid.UUID) error {
	return s.repo.DeleteFeed(id)
}
