package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/models"
	"github.com/naoTimesdev/showtimes-sub000/internal/pubsub"
	"github.com/naoTimesdev/showtimes-sub000/internal/repository"
)

// TopicPrefix namespaces per-target notification topics on the hub.
const TopicPrefix = "notify:"

// Service persists notifications and fans them out over the pub/sub
// hub so connected clients see them immediately.
type Service struct {
	repo *repository.NotificationRepository
	hub  *pubsub.Hub
}

func NewService(repo *repository.NotificationRepository, hub *pubsub.Hub) *Service {
	return &Service{repo: repo, hub: hub}
}

// NotifyCollab records a pending-collaboration notification for the
// target server and publishes it live.
func (s *Service) NotifyCollab(ctx context.Context, target string, data models.NotifyCollabData) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.New(),
		Target:    target,
		Type:      models.NotifyPendingCollab,
		Collab:    &data,
		CreatedAt: time.Now().UTC(),
	}
	return s.deliver(ctx, n)
}

// Broadcast records an admin broadcast for every listed target.
// Failures for individual targets are logged and skipped.
func (s *Service) Broadcast(ctx context.Context, targets []string, data models.NotifyBroadcastData) []*models.Notification {
	sent := make([]*models.Notification, 0, len(targets))
	for _, target := range targets {
		n := &models.Notification{
			ID:        uuid.New(),
			Target:    target,
			Type:      models.NotifyAdminBroadcast,
			Broadcast: &data,
			CreatedAt: time.Now().UTC(),
		}
		delivered, err := s.deliver(ctx, n)
		if err != nil {
			log.Printf("[notify] broadcast to %s failed: %v", target, err)
			continue
		}
		sent = append(sent, delivered)
	}
	return sent
}

func (s *Service) deliver(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if err := s.repo.Create(n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}
	s.hub.Publish(ctx, TopicPrefix+n.Target, n)
	return n, nil
}

// ListFor returns notifications for a target, newest first.
func (s *Service) ListFor(target string, unreadOnly bool) ([]*models.Notification, error) {
	return s.repo.ListByTarget(target, unreadOnly)
}

// MarkRead flags a notification as seen.
func (s *Service) MarkRead(id uuid.UUID) error {
	return s.repo.MarkRead(id)
}
