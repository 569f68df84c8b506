package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/naoTimesdev/showtimes-sub000/internal/repository"
	"github.com/naoTimesdev/showtimes-sub000/internal/search"
)

// ReindexHandler rebuilds the search indexes from the document store.
// Used after migrations and on demand from the admin surface.
type ReindexHandler struct {
	servers  *repository.ServerRepository
	projects *repository.ProjectRepository
	index    *search.Service
}

func NewReindexHandler(servers *repository.ServerRepository, projects *repository.ProjectRepository, index *search.Service) *ReindexHandler {
	return &ReindexHandler{servers: servers, projects: projects, index: index}
}

func (h *ReindexHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	if err := h.index.EnsureIndexes(ctx); err != nil {
		return err
	}

	servers, err := h.servers.All()
	if err != nil {
		return fmt.Errorf("load servers: %w", err)
	}
	serverDocs := make([]search.ServerDocument, 0, len(servers))
	for _, server := range servers {
		serverDocs = append(serverDocs, search.NewServerDocument(server))
	}
	if err := h.index.BulkIndexServers(ctx, serverDocs); err != nil {
		return err
	}

	projects, err := h.projects.All()
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	projectDocs := make([]search.ProjectDocument, 0, len(projects))
	for _, project := range projects {
		projectDocs = append(projectDocs, search.NewProjectDocument(project))
	}
	if err := h.index.BulkIndexProjects(ctx, projectDocs); err != nil {
		return err
	}

	log.Printf("[jobs] reindexed %d servers, %d projects", len(serverDocs), len(projectDocs))
	return nil
}
