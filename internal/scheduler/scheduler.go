package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/naoTimesdev/showtimes-sub000/internal/jobs"
	"github.com/naoTimesdev/showtimes-sub000/internal/repository"
	"github.com/naoTimesdev/showtimes-sub000/internal/rss"
)

// Scheduler runs the recurring maintenance work: feed-list refreshes,
// expired premium sweeps and the nightly provider metadata refresh.
type Scheduler struct {
	cron      *cron.Cron
	rssSvc    *rss.Service
	premiums  *repository.PremiumRepository
	externals *repository.ExternalRepository
	queue     *jobs.Queue
}

func New(rssSvc *rss.Service, premiums *repository.PremiumRepository, externals *repository.ExternalRepository, queue *jobs.Queue) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		rssSvc:    rssSvc,
		premiums:  premiums,
		externals: externals,
		queue:     queue,
	}
}

// Start registers the cron entries and launches the runner.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc("*/10 * * * *", func() { s.refreshFeeds(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 * * * *", func() { s.sweepPremiums() }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("30 3 * * *", func() { s.refreshExternals() }); err != nil {
		return err
	}

	s.cron.Start()
	log.Println("[scheduler] cron entries registered")
	return nil
}

// Stop halts the runner and waits for running entries to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] stopped")
}

func (s *Scheduler) refreshFeeds(ctx context.Context) {
	if err := s.rssSvc.RefreshFeeds(ctx); err != nil {
		log.Printf("[scheduler] feed refresh failed: %v", err)
	}
}

func (s *Scheduler) sweepPremiums() {
	removed, err := s.premiums.DeleteExpired(time.Now().UTC())
	if err != nil {
		log.Printf("[scheduler] premium sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("[scheduler] removed %d expired premium tickets", removed)
	}
}

func (s *Scheduler) refreshExternals() {
	ids, err := s.externals.AllIDs()
	if err != nil {
		log.Printf("[scheduler] listing externals failed: %v", err)
		return
	}
	for _, id := range ids {
		payload := jobs.RefreshExternalPayload{ExternalID: id}
		if _, err := s.queue.EnqueueUnique(jobs.TaskRefreshExternal, payload, "external-refresh-"+id.String()); err != nil {
			log.Printf("[scheduler] enqueue refresh for %s failed: %v", id, err)
		}
	}
}
