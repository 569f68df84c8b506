package projects

import (
	"context"
	"log"
	"net/http"
	"path"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/anilist"
	"github.com/naoTimesdev/showtimes-sub000/internal/collab"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
	"github.com/naoTimesdev/showtimes-sub000/internal/pubsub"
	"github.com/naoTimesdev/showtimes-sub000/internal/repository"
	"github.com/naoTimesdev/showtimes-sub000/internal/search"
	"github.com/naoTimesdev/showtimes-sub000/internal/showerrors"
	"github.com/naoTimesdev/showtimes-sub000/internal/storage"
	"github.com/naoTimesdev/showtimes-sub000/internal/tmdb"
)

// TopicPrefix namespaces per-server project-update topics on the hub.
const TopicPrefix = "project:"

// Kind selects the default role vocabulary for a new project.
type Kind string

const (
	KindShows Kind = "shows"
	KindManga Kind = "manga"
	KindNovel Kind = "novel"
)

// Service owns the project lifecycle: creation against provider
// metadata, staff and episode updates, and teardown including search
// documents, stored posters and collab membership.
type Service struct {
	projects  *repository.ProjectRepository
	servers   *repository.ServerRepository
	externals *repository.ExternalRepository
	actors    *repository.ActorRepository

	collabs *collab.Service
	index   *search.Service
	store   storage.Storage
	anilist *anilist.Client
	tmdb    *tmdb.Client
	hub     *pubsub.Hub

	client *http.Client
}

func NewService(
	projects *repository.ProjectRepository,
	servers *repository.ServerRepository,
	externals *repository.ExternalRepository,
	actors *repository.ActorRepository,
	collabs *collab.Service,
	index *search.Service,
	store storage.Storage,
	anilistClient *anilist.Client,
	tmdbClient *tmdb.Client,
	hub *pubsub.Hub,
) *Service {
	return &Service{
		projects:  projects,
		servers:   servers,
		externals: externals,
		actors:    actors,
		collabs:   collabs,
		index:     index,
		store:     store,
		anilist:   anilistClient,
		tmdb:      tmdbClient,
		hub:       hub,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateInput describes a new project. Exactly one provider reference
// is used: AnilistID when non-zero, TMDBID otherwise.
type CreateInput struct {
	ServerID  uuid.UUID
	Kind      Kind
	AnilistID int
	TMDBID    string
	TMDBMovie bool
	Title     string
}

// Create registers a project under a server: provider metadata is
// fetched and cached, the poster re-hosted, default roles laid out and
// the search index updated.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Project, error) {
	server, err := s.servers.GetByID(in.ServerID)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeServerNotFound, "no such server", err)
	}

	external, title, posterURL, err := s.resolveExternal(ctx, in)
	if err != nil {
		return nil, err
	}
	if in.Title != "" {
		title = in.Title
	}

	now := time.Now().UTC()
	project := &models.Project{
		ID:          uuid.New(),
		Title:       title,
		ExternalID:  external.ID,
		Assignments: defaultAssignments(in.Kind),
		ServerID:    in.ServerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	project.Episodes = buildEpisodes(project.Assignments, external.Episodes)
	project.Poster = s.fetchPoster(ctx, in.ServerID, project.ID, posterURL)

	if err := s.projects.Create(project); err != nil {
		return nil, err
	}
	server.Projects = append(server.Projects, project.ID)
	server.UpdatedAt = now
	if err := s.servers.Save(server); err != nil {
		return nil, err
	}

	s.syncIndex(ctx, project)
	s.hub.Publish(ctx, TopicPrefix+in.ServerID.String(), project)
	return project, nil
}

// resolveExternal finds or creates the provider metadata record and
// returns it with the provider's title and poster address.
func (s *Service) resolveExternal(ctx context.Context, in CreateInput) (*models.ExternalData, string, string, error) {
	if in.AnilistID > 0 {
		ref := strconv.Itoa(in.AnilistID)
		if existing, err := s.externals.FindByRef(models.ExternalAnilist, ref); err != nil {
			return nil, "", "", err
		} else if existing != nil {
			media, err := s.anilist.GetMedia(ctx, in.AnilistID)
			if err != nil {
				return nil, "", "", err
			}
			return existing, anilistTitle(media), media.CoverImage.ExtraLarge, nil
		}

		external, media, err := s.anilist.FetchExternal(ctx, in.AnilistID)
		if err != nil {
			return nil, "", "", err
		}
		external.ID = uuid.New()
		if err := s.externals.Create(external); err != nil {
			return nil, "", "", err
		}
		return external, anilistTitle(media), media.CoverImage.ExtraLarge, nil
	}

	if in.TMDBID == "" {
		return nil, "", "", showerrors.New(showerrors.CodeMetadataNotFound, "no provider reference given")
	}
	if existing, err := s.externals.FindByRef(models.ExternalTMDB, in.TMDBID); err != nil {
		return nil, "", "", err
	} else if existing != nil {
		details, err := s.tmdbDetails(ctx, in)
		if err != nil {
			return nil, "", "", err
		}
		return existing, details.DisplayTitle(), details.PosterURL(), nil
	}

	external, details, err := s.tmdb.FetchExternal(ctx, in.TMDBID, in.TMDBMovie)
	if err != nil {
		return nil, "", "", err
	}
	external.ID = uuid.New()
	if err := s.externals.Create(external); err != nil {
		return nil, "", "", err
	}
	return external, details.DisplayTitle(), details.PosterURL(), nil
}

func (s *Service) tmdbDetails(ctx context.Context, in CreateInput) (*tmdb.Details, error) {
	if in.TMDBMovie {
		return s.tmdb.GetMovie(ctx, in.TMDBID)
	}
	return s.tmdb.GetTV(ctx, in.TMDBID)
}

func anilistTitle(media *anilist.Media) string {
	if media.Title.Romaji != "" {
		return media.Title.Romaji
	}
	if media.Title.English != "" {
		return media.Title.English
	}
	return media.Title.Native
}

func defaultAssignments(kind Kind) []models.Assignment {
	var roles []models.RoleStatus
	switch kind {
	case KindManga:
		roles = models.DefaultRolesManga()
	case KindNovel:
		roles = models.DefaultRolesNovel()
	default:
		roles = models.DefaultRolesShows()
	}
	assignments := make([]models.Assignment, len(roles))
	for i, role := range roles {
		assignments[i] = models.Assignment{Key: role.Key}
	}
	return assignments
}

// buildEpisodes lays out one status row per provider episode with
// every assigned role unfinished.
func buildEpisodes(assignments []models.Assignment, external []models.ExternalEpisode) []models.EpisodeStatus {
	names := make(map[string]string)
	for _, role := range models.DefaultRolesShows() {
		names[role.Key] = role.Name
	}
	for _, role := range models.DefaultRolesManga() {
		names[role.Key] = role.Name
	}
	for _, role := range models.DefaultRolesNovel() {
		names[role.Key] = role.Name
	}

	episodes := make([]models.EpisodeStatus, 0, len(external))
	for _, ep := range external {
		statuses := make([]models.RoleStatus, len(assignments))
		for i, a := range assignments {
			name := names[a.Key]
			if name == "" {
				name = a.Key
			}
			statuses[i] = models.RoleStatus{Key: a.Key, Name: name}
		}
		episodes = append(episodes, models.EpisodeStatus{
			Episode:  ep.Episode,
			AiringAt: ep.Airtime,
			Statuses: statuses,
		})
	}
	return episodes
}

// fetchPoster re-hosts the provider's cover image. Fetch failures keep
// the project creatable with an empty poster.
func (s *Service) fetchPoster(ctx context.Context, serverID, projectID uuid.UUID, posterURL string) models.Poster {
	var poster models.Poster
	if posterURL == "" {
		return poster
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, posterURL, nil)
	if err != nil {
		log.Printf("[projects] poster for %s: bad url: %v", projectID, err)
		return poster
	}
	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[projects] poster for %s: fetch failed: %v", projectID, err)
		return poster
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("[projects] poster for %s: upstream returned %d", projectID, resp.StatusCode)
		return poster
	}

	format := strings.TrimPrefix(path.Ext(posterURL), ".")
	if idx := strings.IndexByte(format, '?'); idx >= 0 {
		format = format[:idx]
	}
	if format == "" {
		format = "jpg"
	}
	filename := "poster." + format
	if _, err := s.store.Upload(ctx, serverID.String(), projectID.String(), filename, "project", resp.Body, resp.ContentLength); err != nil {
		log.Printf("[projects] poster for %s: upload failed: %v", projectID, err)
		return poster
	}
	poster.Image = models.ImageMetadata{
		Type:     "project",
		Key:      serverID.String(),
		Parent:   projectID.String(),
		Filename: filename,
		Format:   format,
	}
	return poster
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.projects.GetByID(id)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeProjectNotFound, "no such project", err)
	}
	return project, nil
}

// ListByServer returns every project of a server.
func (s *Service) ListByServer(ctx context.Context, serverID uuid.UUID) ([]*models.Project, error) {
	return s.projects.ListByServer(serverID)
}

// AssignStaff binds an actor to a role, resolving the actor by its
// integration tag and creating the record on first sight. A nil
// personID clears the slot.
func (s *Service) AssignStaff(ctx context.Context, projectID uuid.UUID, roleKey, personID, personName, integrationType string) (*models.Project, error) {
	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeProjectNotFound, "no such project", err)
	}

	roleKey = strings.ToUpper(roleKey)
	slot := -1
	for i, a := range project.Assignments {
		if a.Key == roleKey {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, showerrors.Newf(showerrors.CodeProjectNotFound, "project has no role %q", roleKey)
	}

	if personID == "" {
		project.Assignments[slot].ActorID = nil
	} else {
		if !models.ValidIntegrationType(integrationType) {
			return nil, showerrors.Newf(showerrors.CodeInvalidIntegra, "unknown integration type %q", integrationType)
		}
		actor, err := s.resolveActor(personID, personName, integrationType)
		if err != nil {
			return nil, err
		}
		project.Assignments[slot].ActorID = &actor.ID
	}

	if err := s.projects.Save(project); err != nil {
		return nil, err
	}
	s.hub.Publish(ctx, TopicPrefix+project.ServerID.String(), project)
	return project, nil
}

func (s *Service) resolveActor(personID, personName, integrationType string) (*models.RoleActor, error) {
	existing, err := s.actors.FindByIntegration(personID, integrationType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	name := personName
	if name == "" {
		name = personID
	}
	actor := &models.RoleActor{ID: uuid.New(), Name: name}
	actor.AddIntegration(personID, integrationType)
	if err := s.actors.Create(actor); err != nil {
		return nil, err
	}
	return actor, nil
}

// EpisodeUpdate is one episode's requested changes in a batch update.
type EpisodeUpdate struct {
	Episode     int
	Roles       map[string]bool
	IsReleased  *bool
	DelayReason *string
}

// UpdateEpisodes applies a batch of episode changes. Role keys outside
// the project's assignment set are dropped with a log line; the change
// record and search document are only written when something actually
// changed.
func (s *Service) UpdateEpisodes(ctx context.Context, projectID uuid.UUID, updates []EpisodeUpdate) (*models.Project, error) {
	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeProjectNotFound, "no such project", err)
	}
	if len(updates) == 0 {
		return nil, showerrors.New(showerrors.CodeProjectNoEpisode, "no episode updates given")
	}

	before := make([]models.EpisodeStatus, len(project.Episodes))
	copy(before, project.Episodes)

	assigned := project.AssignmentKeys()
	changed := false
	for _, update := range updates {
		idx := project.EpisodeIndex(update.Episode)
		if idx < 0 {
			log.Printf("[projects] %s: episode %d does not exist, skipping", project.Title, update.Episode)
			continue
		}
		ep := &project.Episodes[idx]

		for key, finished := range update.Roles {
			key = strings.ToUpper(key)
			if !assigned[key] {
				log.Printf("[projects] %s ep %d: role %q is not assigned, dropping", project.Title, update.Episode, key)
				continue
			}
			for i := range ep.Statuses {
				if ep.Statuses[i].Key == key && ep.Statuses[i].Finished != finished {
					ep.Statuses[i].Finished = finished
					changed = true
				}
			}
		}
		if update.IsReleased != nil && ep.IsReleased != *update.IsReleased {
			ep.IsReleased = *update.IsReleased
			changed = true
		}
		if update.DelayReason != nil && !reflect.DeepEqual(ep.DelayReason, update.DelayReason) {
			ep.DelayReason = update.DelayReason
			changed = true
		}
	}

	if !changed {
		return project, nil
	}
	if err := s.projects.Save(project); err != nil {
		return nil, err
	}
	if err := s.projects.RecordEpisodeChanges(project.ID, project.ServerID, before, project.Episodes); err != nil {
		log.Printf("[projects] recording episode changes for %s failed: %v", project.ID, err)
	}

	s.syncIndex(ctx, project)
	s.hub.Publish(ctx, TopicPrefix+project.ServerID.String(), project)
	return project, nil
}

// AddEpisodes extends the project with empty status rows for the given
// episode numbers, skipping ones that already exist.
func (s *Service) AddEpisodes(ctx context.Context, projectID uuid.UUID, episodes []int) (*models.Project, error) {
	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeProjectNotFound, "no such project", err)
	}

	external := []models.ExternalEpisode{}
	for _, number := range episodes {
		if project.EpisodeIndex(number) >= 0 {
			continue
		}
		external = append(external, models.ExternalEpisode{Episode: number, Season: 1})
	}
	if len(external) == 0 {
		return project, nil
	}

	project.Episodes = append(project.Episodes, buildEpisodes(project.Assignments, external)...)
	sortEpisodes(project.Episodes)
	if err := s.projects.Save(project); err != nil {
		return nil, err
	}
	s.hub.Publish(ctx, TopicPrefix+project.ServerID.String(), project)
	return project, nil
}

// RemoveEpisodes drops the listed episode numbers.
func (s *Service) RemoveEpisodes(ctx context.Context, projectID uuid.UUID, episodes []int) (*models.Project, error) {
	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeProjectNotFound, "no such project", err)
	}

	drop := make(map[int]bool, len(episodes))
	for _, number := range episodes {
		drop[number] = true
	}
	kept := project.Episodes[:0]
	for _, ep := range project.Episodes {
		if !drop[ep.Episode] {
			kept = append(kept, ep)
		}
	}
	project.Episodes = kept

	if err := s.projects.Save(project); err != nil {
		return nil, err
	}
	s.hub.Publish(ctx, TopicPrefix+project.ServerID.String(), project)
	return project, nil
}

// Delete tears a project down: collab membership, stored poster,
// search document, the server's listing and any actors only this
// project referenced all go with it.
func (s *Service) Delete(ctx context.Context, projectID uuid.UUID) error {
	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return showerrors.Wrap(showerrors.CodeProjectNotFound, "no such project", err)
	}

	if err := s.collabs.RemoveMember(ctx, project.ServerID, project.ID); err != nil {
		log.Printf("[projects] collab cleanup for %s failed: %v", project.ID, err)
	}

	if img := project.Poster.Image; img.Filename != "" {
		if err := s.store.Delete(ctx, img.Key, img.Parent, img.Filename, img.Type); err != nil {
			log.Printf("[projects] poster cleanup for %s failed: %v", project.ID, err)
		}
	}

	server, err := s.servers.GetByID(project.ServerID)
	if err == nil && server.RemoveProject(project.ID) {
		if err := s.servers.Save(server); err != nil {
			return err
		}
	}

	if err := s.projects.Delete(project.ID); err != nil {
		return err
	}

	orphans := orphanActorIDs(project.Assignments, func(actorID uuid.UUID) (bool, error) {
		count, err := s.projects.CountReferencingActor(actorID, project.ID)
		if err != nil {
			log.Printf("[projects] actor reference check for %s failed: %v", actorID, err)
		}
		return count > 0, err
	})
	if len(orphans) > 0 {
		if err := s.actors.DeleteByIDs(orphans); err != nil {
			log.Printf("[projects] actor cleanup for %s failed: %v", project.ID, err)
		}
	}

	if err := s.index.DeleteProject(ctx, project.ID.String()); err != nil {
		log.Printf("[projects] search cleanup for %s failed: %v", project.ID, err)
	}
	s.hub.Publish(ctx, TopicPrefix+project.ServerID.String(), map[string]string{
		"deleted": project.ID.String(),
	})
	return nil
}

// orphanActorIDs returns the distinct actors among assignments for
// which stillUsed reports no remaining reference. Lookup failures keep
// the actor around.
func orphanActorIDs(assignments []models.Assignment, stillUsed func(uuid.UUID) (bool, error)) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(assignments))
	var orphans []uuid.UUID
	for _, a := range assignments {
		if a.ActorID == nil || seen[*a.ActorID] {
			continue
		}
		seen[*a.ActorID] = true
		used, err := stillUsed(*a.ActorID)
		if err != nil || used {
			continue
		}
		orphans = append(orphans, *a.ActorID)
	}
	return orphans
}

func (s *Service) syncIndex(ctx context.Context, project *models.Project) {
	if err := s.index.IndexProject(ctx, search.NewProjectDocument(project)); err != nil {
		log.Printf("[projects] indexing %s failed: %v", project.ID, err)
	}
	if orphans := project.OrphanStatusKeys(); len(orphans) > 0 {
		log.Printf("[projects] %s carries orphan status keys: %v", project.Title, orphans)
	}
}

func sortEpisodes(episodes []models.EpisodeStatus) {
	sort.Slice(episodes, func(i, j int) bool {
		return episodes[i].Episode < episodes[j].Episode
	})
}
