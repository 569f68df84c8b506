package servers

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/models"
	"github.com/naoTimesdev/showtimes-sub000/internal/projects"
	"github.com/naoTimesdev/showtimes-sub000/internal/repository"
	"github.com/naoTimesdev/showtimes-sub000/internal/search"
	"github.com/naoTimesdev/showtimes-sub000/internal/showerrors"
)

// Service manages servers, the workspaces projects live under. Project
// teardown on server deletion routes through the projects service so
// collab links and stored posters are cleaned up consistently.
type Service struct {
	servers  *repository.ServerRepository
	projects *projects.Service
	premiums *repository.PremiumRepository
	index    *search.Service
}

func NewService(servers *repository.ServerRepository, projectSvc *projects.Service, premiums *repository.PremiumRepository, index *search.Service) *Service {
	return &Service{servers: servers, projects: projectSvc, premiums: premiums, index: index}
}

// Create registers a new server.
func (s *Service) Create(ctx context.Context, name string, owners []uuid.UUID, integrations []models.IntegrationID) (*models.Server, error) {
	if name == "" {
		return nil, showerrors.New(showerrors.CodeServerBadName, "server name is required")
	}
	for i := range integrations {
		if !models.ValidIntegrationType(integrations[i].Type) {
			return nil, showerrors.Newf(showerrors.CodeInvalidIntegra, "unknown integration type %q", integrations[i].Type)
		}
		integrations[i].Normalize()
	}

	now := time.Now().UTC()
	server := &models.Server{
		ID:           uuid.New(),
		Name:         name,
		Owners:       owners,
		Integrations: integrations,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.servers.Create(server); err != nil {
		return nil, err
	}
	s.syncIndex(ctx, server)
	return server, nil
}

// Get returns one server.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Server, error) {
	server, err := s.servers.GetByID(id)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeServerNotFound, "no such server", err)
	}
	return server, nil
}

// UpdateInput carries the mutable server fields; nil fields are left
// untouched.
type UpdateInput struct {
	Name         *string
	Owners       []uuid.UUID
	Integrations []models.IntegrationID
}

// Update applies partial changes to a server.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Server, error) {
	server, err := s.servers.GetByID(id)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeServerNotFound, "no such server", err)
	}

	if in.Name != nil && *in.Name != "" {
		server.Name = *in.Name
	}
	if in.Owners != nil {
		server.Owners = in.Owners
	}
	if in.Integrations != nil {
		for i := range in.Integrations {
			if !models.ValidIntegrationType(in.Integrations[i].Type) {
				return nil, showerrors.Newf(showerrors.CodeInvalidIntegra, "unknown integration type %q", in.Integrations[i].Type)
			}
			in.Integrations[i].Normalize()
		}
		server.Integrations = in.Integrations
	}
	server.UpdatedAt = time.Now().UTC()

	if err := s.servers.Save(server); err != nil {
		return nil, err
	}
	s.syncIndex(ctx, server)
	return server, nil
}

// Delete removes a server and every project under it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	server, err := s.servers.GetByID(id)
	if err != nil {
		return showerrors.Wrap(showerrors.CodeServerNotFound, "no such server", err)
	}

	// Copy: project deletion mutates the server's listing as it goes.
	ids := make([]uuid.UUID, len(server.Projects))
	copy(ids, server.Projects)
	for _, projectID := range ids {
		if err := s.projects.Delete(ctx, projectID); err != nil {
			log.Printf("[servers] deleting project %s failed: %v", projectID, err)
		}
	}

	if err := s.servers.Delete(id); err != nil {
		return err
	}
	if err := s.index.DeleteServer(ctx, id.String()); err != nil {
		log.Printf("[servers] search cleanup for %s failed: %v", id, err)
	}
	return nil
}

// GrantPremium issues a time-bounded feature ticket for a server. An
// existing unexpired ticket of the same kind is extended from its
// current expiry rather than replaced.
func (s *Service) GrantPremium(ctx context.Context, target uuid.UUID, kind models.PremiumKind, duration time.Duration) (*models.Premium, error) {
	if kind != models.PremiumShowtimes && kind != models.PremiumShowRSS {
		return nil, showerrors.Newf(showerrors.CodePremiumBadGrant, "unknown premium kind %q", kind)
	}
	if duration <= 0 {
		return nil, showerrors.New(showerrors.CodePremiumBadGrant, "grant duration must be positive")
	}
	if _, err := s.servers.GetByID(target); err != nil {
		return nil, showerrors.Wrap(showerrors.CodeServerNotFound, "no such server", err)
	}

	now := time.Now().UTC()
	expires := now.Add(duration)
	if active, err := s.premiums.FindActive(target, kind, now); err != nil {
		return nil, err
	} else if active != nil {
		expires = active.ExpiresAt.Add(duration)
	}

	premium := &models.Premium{
		ID:        uuid.New(),
		Target:    target,
		Kind:      kind,
		ExpiresAt: expires,
		CreatedAt: now,
	}
	if err := s.premiums.Create(premium); err != nil {
		return nil, err
	}
	log.Printf("[servers] premium %s granted to %s until %s", kind, target, expires.Format(time.RFC3339))
	return premium, nil
}

// All lists every server.
func (s *Service) All(ctx context.Context) ([]*models.Server, error) {
	return s.servers.All()
}

func (s *Service) syncIndex(ctx context.Context, server *models.Server) {
	if err := s.index.IndexServer(ctx, search.NewServerDocument(server)); err != nil {
		log.Printf("[servers] indexing %s failed: %v", server.ID, err)
	}
}
