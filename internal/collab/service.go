package collab

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/models"
	"github.com/naoTimesdev/showtimes-sub000/internal/notifications"
	"github.com/naoTimesdev/showtimes-sub000/internal/repository"
	"github.com/naoTimesdev/showtimes-sub000/internal/search"
	"github.com/naoTimesdev/showtimes-sub000/internal/showerrors"
)

const inviteCodeLength = 16

// Service drives the collaboration invite lifecycle: invites are issued
// by a source server for one of its projects, accepted or rejected by
// the target, and accepted invites become (or extend) a collab link.
type Service struct {
	collabs  *repository.CollabRepository
	projects *repository.ProjectRepository
	servers  *repository.ServerRepository
	notify   *notifications.Service
	index    *search.Service
}

func NewService(
	collabs *repository.CollabRepository,
	projects *repository.ProjectRepository,
	servers *repository.ServerRepository,
	notify *notifications.Service,
	index *search.Service,
) *Service {
	return &Service{
		collabs:  collabs,
		projects: projects,
		servers:  servers,
		notify:   notify,
		index:    index,
	}
}

// Invite offers a project to another server. The returned invite holds
// the confirmation code the target must present to accept.
func (s *Service) Invite(ctx context.Context, sourceServer, targetServer, projectID uuid.UUID) (*models.PendingCollab, error) {
	if sourceServer == targetServer {
		return nil, showerrors.New(showerrors.CodeCollabSelfInvite, "cannot invite your own server")
	}

	source, err := s.servers.GetByID(sourceServer)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeServerNotFound, "source server missing", err)
	}
	if !source.HasProject(projectID) {
		return nil, showerrors.New(showerrors.CodeProjectNotFound, "project does not belong to the source server")
	}
	if _, err := s.servers.GetByID(targetServer); err != nil {
		return nil, showerrors.Wrap(showerrors.CodeServerNotFound, "target server missing", err)
	}

	link, err := s.collabs.FindLinkByMember(sourceServer, projectID)
	if err != nil {
		return nil, err
	}
	if link != nil {
		for _, member := range link.Servers {
			if member == targetServer {
				return nil, showerrors.New(showerrors.CodeCollabDuplicate, "servers are already collaborating on this project")
			}
		}
	}

	pending := &models.PendingCollab{
		ID:           uuid.New(),
		Code:         models.GenerateCode(inviteCodeLength, true, true),
		SourceServer: sourceServer,
		TargetServer: targetServer,
		ProjectID:    projectID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.collabs.CreatePending(pending); err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	title := project.Title
	if _, err := s.notify.NotifyCollab(ctx, targetServer.String(), models.NotifyCollabData{
		ID:     pending.ID,
		Code:   pending.Code,
		Source: models.NotifyCollabSource{Server: sourceServer.String(), Project: &title},
		Target: models.NotifyCollabSource{Server: targetServer.String()},
	}); err != nil {
		log.Printf("[collab] invite notification for %s failed: %v", pending.ID, err)
	}
	return pending, nil
}

// Accept confirms an invite by code. When the target server has no copy
// of the project yet, one is cloned for it; the pair then joins the
// project's collab link, creating the link if this is the first pairing.
func (s *Service) Accept(ctx context.Context, code string) (*models.CollabLink, error) {
	pending, err := s.collabs.GetPendingByCode(code)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, showerrors.New(showerrors.CodeCollabNotFound, "no pending collaboration for that code")
	}

	targetProject := pending.TargetProj
	if targetProject == nil {
		cloned, err := s.cloneProject(ctx, pending.ProjectID, pending.TargetServer)
		if err != nil {
			return nil, err
		}
		targetProject = &cloned.ID
	}

	link, err := s.collabs.FindLinkByMember(pending.SourceServer, pending.ProjectID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		link = &models.CollabLink{
			ID:        uuid.New(),
			Projects:  []uuid.UUID{pending.ProjectID, *targetProject},
			Servers:   []uuid.UUID{pending.SourceServer, pending.TargetServer},
			CreatedAt: time.Now().UTC(),
		}
		if err := s.collabs.CreateLink(link); err != nil {
			return nil, err
		}
	} else {
		link.Projects = append(link.Projects, *targetProject)
		link.Servers = append(link.Servers, pending.TargetServer)
		if err := s.collabs.SaveLink(link); err != nil {
			return nil, err
		}
	}

	if err := s.collabs.DeletePending(pending.ID); err != nil {
		return nil, err
	}
	log.Printf("[collab] link %s now spans %d servers", link.ID, len(link.Servers))
	return link, nil
}

// Reject discards an invite by code without side effects.
func (s *Service) Reject(ctx context.Context, code string) error {
	pending, err := s.collabs.GetPendingByCode(code)
	if err != nil {
		return err
	}
	if pending == nil {
		return showerrors.New(showerrors.CodeCollabNotFound, "no pending collaboration for that code")
	}
	return s.collabs.DeletePending(pending.ID)
}

// Cancel withdraws an invite the source server issued.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.collabs.DeletePending(id)
}

// ListPending returns the invites awaiting a server's decision.
func (s *Service) ListPending(serverID uuid.UUID) ([]*models.PendingCollab, error) {
	return s.collabs.ListPendingByTarget(serverID)
}

// RemoveMember drops a (server, project) pair from its collab link. A
// link shrunk to a single member is deleted, never kept around.
func (s *Service) RemoveMember(ctx context.Context, serverID, projectID uuid.UUID) error {
	link, err := s.collabs.FindLinkByMember(serverID, projectID)
	if err != nil {
		return err
	}
	if link == nil {
		return nil
	}
	link.RemoveMember(serverID, projectID)
	if !link.Viable() {
		log.Printf("[collab] link %s no longer viable, deleting", link.ID)
		return s.collabs.DeleteLink(link.ID)
	}
	return s.collabs.SaveLink(link)
}

// cloneProject copies the source project into the target server with a
// fresh identity, shared external metadata, and reset progress owners.
func (s *Service) cloneProject(ctx context.Context, projectID, targetServer uuid.UUID) (*models.Project, error) {
	source, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeProjectNotFound, "source project missing", err)
	}
	target, err := s.servers.GetByID(targetServer)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeServerNotFound, "target server missing", err)
	}

	now := time.Now().UTC()
	clone := &models.Project{
		ID:         uuid.New(),
		Title:      source.Title,
		Poster:     source.Poster,
		ExternalID: source.ExternalID,
		ServerID:   targetServer,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	clone.Assignments = make([]models.Assignment, len(source.Assignments))
	for i, a := range source.Assignments {
		clone.Assignments[i] = models.Assignment{Key: a.Key}
	}
	clone.Episodes = make([]models.EpisodeStatus, len(source.Episodes))
	copy(clone.Episodes, source.Episodes)

	if err := s.projects.Create(clone); err != nil {
		return nil, fmt.Errorf("create cloned project: %w", err)
	}
	target.Projects = append(target.Projects, clone.ID)
	target.UpdatedAt = now
	if err := s.servers.Save(target); err != nil {
		return nil, fmt.Errorf("attach cloned project: %w", err)
	}

	if err := s.index.IndexProject(ctx, search.NewProjectDocument(clone)); err != nil {
		log.Printf("[collab] indexing cloned project %s failed: %v", clone.ID, err)
	}
	return clone, nil
}
