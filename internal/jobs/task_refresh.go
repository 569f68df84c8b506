package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/naoTimesdev/showtimes-sub000/internal/anilist"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
	"github.com/naoTimesdev/showtimes-sub000/internal/repository"
)

// RefreshExternalPayload selects which provider record to refresh.
type RefreshExternalPayload struct {
	ExternalID uuid.UUID `json:"external_id"`
}

// RefreshExternalHandler re-fetches provider metadata for a record and
// folds new airing times into every project episode referencing it.
type RefreshExternalHandler struct {
	externals *repository.ExternalRepository
	projects  *repository.ProjectRepository
	anilist   *anilist.Client
}

func NewRefreshExternalHandler(externals *repository.ExternalRepository, projects *repository.ProjectRepository, anilistClient *anilist.Client) *RefreshExternalHandler {
	return &RefreshExternalHandler{externals: externals, projects: projects, anilist: anilistClient}
}

func (h *RefreshExternalHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload RefreshExternalPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	external, err := h.externals.GetByID(payload.ExternalID)
	if err != nil {
		return fmt.Errorf("load external %s: %w", payload.ExternalID, err)
	}
	if external.Kind != models.ExternalAnilist {
		// TMDB airing data barely moves; only Anilist is re-polled.
		return nil
	}

	aniID, err := strconv.Atoi(external.AniID)
	if err != nil {
		return fmt.Errorf("malformed anilist id %q: %w", external.AniID, err)
	}
	fresh, _, err := h.anilist.FetchExternal(ctx, aniID)
	if err != nil {
		return err
	}

	external.Episodes = fresh.Episodes
	external.StartTime = fresh.StartTime
	if err := h.externals.Save(external); err != nil {
		return err
	}

	airtimes := make(map[int]*float64, len(fresh.Episodes))
	for _, ep := range fresh.Episodes {
		airtimes[ep.Episode] = ep.Airtime
	}

	projects, err := h.projects.All()
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	for _, project := range projects {
		if project.ExternalID != external.ID {
			continue
		}
		changed := false
		for i := range project.Episodes {
			if at, ok := airtimes[project.Episodes[i].Episode]; ok && at != nil {
				if project.Episodes[i].AiringAt == nil || *project.Episodes[i].AiringAt != *at {
					project.Episodes[i].AiringAt = at
					changed = true
				}
			}
		}
		if changed {
			if err := h.projects.Save(project); err != nil {
				return err
			}
			log.Printf("[jobs] refreshed airing times for %s", project.Title)
		}
	}
	return nil
}
