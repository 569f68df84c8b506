package migrate

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/naoTimesdev/showtimes-sub000/internal/collab"
	"github.com/naoTimesdev/showtimes-sub000/internal/db"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
	"github.com/naoTimesdev/showtimes-sub000/internal/repository"
	"github.com/naoTimesdev/showtimes-sub000/internal/storage"
)

// Runner imports a legacy database dump into the current schema. The
// whole import runs inside one transaction: any failed insert rolls the
// run back, while dangling references are logged and skipped.
type Runner struct {
	database *db.DB
	store    storage.Storage
	client   *http.Client

	actors    *repository.ActorRepository
	externals *repository.ExternalRepository
	projects  *repository.ProjectRepository
	servers   *repository.ServerRepository
	users     *repository.UserRepository
	collabs   *repository.CollabRepository
}

func NewRunner(database *db.DB, store storage.Storage) *Runner {
	return &Runner{
		database: database,
		store:    store,
		client:   &http.Client{Timeout: 30 * time.Second},

		actors:    repository.NewActorRepository(database),
		externals: repository.NewExternalRepository(database),
		projects:  repository.NewProjectRepository(database),
		servers:   repository.NewServerRepository(database),
		users:     repository.NewUserRepository(database),
		collabs:   repository.NewCollabRepository(database),
	}
}

// run-scoped state: identity maps from legacy snowflakes to new records.
type runState struct {
	cache      *actorCache
	serverIDs  map[string]uuid.UUID
	projectIDs map[string]map[string]uuid.UUID
	userIDs    map[string]uuid.UUID
	externals  map[string]uuid.UUID
	now        time.Time
}

// Run performs the full import from a dump directory.
func (r *Runner) Run(ctx context.Context, dumpDir string) error {
	dump, err := LoadDump(dumpDir)
	if err != nil {
		return err
	}
	log.Printf("[migrate] loaded dump: %d servers, %d admins, %d logins",
		len(dump.Servers), len(dump.Admins), len(dump.Logins))

	tx, err := r.database.DB.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	state := &runState{
		cache:      newActorCache(),
		serverIDs:  make(map[string]uuid.UUID),
		projectIDs: make(map[string]map[string]uuid.UUID),
		userIDs:    make(map[string]uuid.UUID),
		externals:  make(map[string]uuid.UUID),
		now:        time.Now().UTC(),
	}

	scoped := &Runner{
		database: r.database,
		store:    r.store,
		client:   r.client,

		actors:    r.actors.WithTx(tx),
		externals: r.externals.WithTx(tx),
		projects:  r.projects.WithTx(tx),
		servers:   r.servers.WithTx(tx),
		users:     r.users.WithTx(tx),
		collabs:   r.collabs.WithTx(tx),
	}

	if err := scoped.migrateUsers(dump, state); err != nil {
		return err
	}
	if err := scoped.migrateServers(ctx, dump, state); err != nil {
		return err
	}
	if err := scoped.migrateActors(state); err != nil {
		return err
	}
	if err := scoped.migratePending(dump, state); err != nil {
		return err
	}
	if err := scoped.migrateCollabs(dump, state); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	log.Printf("[migrate] done: %d servers, %d actors", len(state.serverIDs), len(state.cache.Created()))
	return nil
}

func (r *Runner) migrateUsers(dump *Dump, state *runState) error {
	for _, login := range dump.Logins {
		privilege := models.PrivilegeUser
		if strings.EqualFold(login.Privilege, "owner") {
			privilege = models.PrivilegeAdmin
		}
		name := login.ID
		if login.Name != nil && *login.Name != "" {
			name = *login.Name
		}
		user := &models.User{
			ID:        uuid.New(),
			Username:  login.ID,
			Privilege: privilege,
			Kind:      models.UserFull,
			Name:      name,
			APIKey:    models.GenerateCode(32, true, false),
			CreatedAt: state.now,
			UpdatedAt: state.now,
		}
		// Discord-type logins never had a usable secret; they keep their
		// OAuth linkage and no password instead.
		if strings.EqualFold(login.UserType, "DISCORD") && login.DiscordMeta != nil {
			user.DiscordMeta = &models.DiscordMeta{
				ID:           login.DiscordMeta.ID,
				Name:         login.DiscordMeta.Name,
				AccessToken:  login.DiscordMeta.AccessToken,
				RefreshToken: login.DiscordMeta.RefreshToken,
				ExpiresAt:    login.DiscordMeta.ExpiresAt,
			}
		} else {
			hashed, err := bcrypt.GenerateFromPassword([]byte(login.Secret), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash credentials for %s: %w", login.ID, err)
			}
			user.Password = string(hashed)
		}
		if err := r.users.Create(user); err != nil {
			return fmt.Errorf("insert user %s: %w", login.ID, err)
		}
		state.userIDs[login.ID] = user.ID
	}

	// The admin collection only grants elevated privilege; admins
	// without a login record never imported a credential to begin with.
	for _, admin := range dump.Admins {
		id, ok := state.userIDs[admin.ID]
		if !ok {
			log.Printf("[migrate] admin %s has no login record, skipping", admin.ID)
			continue
		}
		user, err := r.users.GetByID(id)
		if err != nil || user == nil {
			log.Printf("[migrate] admin %s lookup failed, skipping", admin.ID)
			continue
		}
		if user.Privilege != models.PrivilegeAdmin {
			user.Privilege = models.PrivilegeAdmin
			if err := r.users.Save(user); err != nil {
				return fmt.Errorf("promote admin %s: %w", admin.ID, err)
			}
		}
	}
	return nil
}

func (r *Runner) migrateServers(ctx context.Context, dump *Dump, state *runState) error {
	for _, legacy := range dump.Servers {
		name := legacy.ID
		if legacy.Name != nil && *legacy.Name != "" {
			name = *legacy.Name
		}
		server := &models.Server{
			ID:        uuid.New(),
			Name:      name,
			CreatedAt: state.now,
			UpdatedAt: state.now,
		}
		server.Integrations = append(server.Integrations, models.IntegrationID{
			ID: legacy.ID, Type: models.IntegrationDiscordGuild,
		})
		if legacy.AnnounceChannel != nil && *legacy.AnnounceChannel != "" {
			server.Integrations = append(server.Integrations, models.IntegrationID{
				ID:   *legacy.AnnounceChannel,
				Type: models.IntegrationPrefixAnnounce + models.IntegrationDiscordChannel,
			})
		}
		for _, owner := range legacy.Owners {
			id, ok := state.userIDs[owner]
			if !ok {
				log.Printf("[migrate] server %s: owner %s has no account, skipping", legacy.ID, owner)
				continue
			}
			server.Owners = append(server.Owners, id)
		}

		state.projectIDs[legacy.ID] = make(map[string]uuid.UUID)
		for _, anime := range legacy.Anime {
			project, err := r.migrateProject(ctx, server, anime, state)
			if err != nil {
				return err
			}
			server.Projects = append(server.Projects, project.ID)
			state.projectIDs[legacy.ID][anime.ID] = project.ID
		}

		if err := r.servers.Create(server); err != nil {
			return fmt.Errorf("insert server %s: %w", legacy.ID, err)
		}
		state.serverIDs[legacy.ID] = server.ID
	}
	return nil
}

func (r *Runner) migrateProject(ctx context.Context, server *models.Server, anime LegacyAnime, state *runState) (*models.Project, error) {
	externalID, err := r.resolveExternal(anime, state)
	if err != nil {
		return nil, err
	}

	assignments := convertAssignments(anime.Assignments, state.cache)
	episodes := convertEpisodes(anime.Title, anime.Status, assignments, anime.Assignments.Custom)

	project := &models.Project{
		ID:          uuid.New(),
		Title:       anime.Title,
		ExternalID:  externalID,
		Assignments: assignments,
		Episodes:    episodes,
		ServerID:    server.ID,
		CreatedAt:   state.now,
		UpdatedAt:   convertTimestamp(anime.Title, anime.LastUpdate, state.now),
	}
	project.Poster = r.migratePoster(ctx, server.ID, project.ID, anime.Poster)

	if err := r.projects.Create(project); err != nil {
		return nil, fmt.Errorf("insert project %s: %w", anime.Title, err)
	}
	return project, nil
}

// resolveExternal finds or creates the provider metadata for an anime.
// Collaborating servers share one record via the provider ID.
func (r *Runner) resolveExternal(anime LegacyAnime, state *runState) (uuid.UUID, error) {
	if id, ok := state.externals[anime.ID]; ok {
		return id, nil
	}

	external := &models.ExternalData{
		ID:    uuid.New(),
		Kind:  models.ExternalAnilist,
		AniID: anime.ID,
	}
	if anime.MalID != nil {
		external.MalID = strconv.FormatInt(*anime.MalID, 10)
	}
	if anime.StartTime != nil {
		st := float64(*anime.StartTime)
		external.StartTime = &st
	}
	for _, ep := range anime.Status {
		entry := models.ExternalEpisode{Episode: ep.Episode, Season: 1}
		if ep.Airtime != nil {
			at := float64(*ep.Airtime)
			entry.Airtime = &at
		}
		external.Episodes = append(external.Episodes, entry)
	}

	if err := r.externals.Create(external); err != nil {
		return uuid.Nil, fmt.Errorf("insert external metadata for %s: %w", anime.ID, err)
	}
	state.externals[anime.ID] = external.ID
	return external.ID, nil
}

// migratePoster re-uploads the legacy poster into object storage. A
// failed fetch keeps the project importable with an empty poster.
func (r *Runner) migratePoster(ctx context.Context, serverID, projectID uuid.UUID, legacy LegacyPoster) models.Poster {
	poster := models.Poster{Color: legacy.Color}
	if legacy.URL == "" {
		return poster
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, legacy.URL, nil)
	if err != nil {
		log.Printf("[migrate] poster for %s: bad url %q: %v", projectID, legacy.URL, err)
		return poster
	}
	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("[migrate] poster for %s: fetch failed: %v", projectID, err)
		return poster
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("[migrate] poster for %s: upstream returned %d", projectID, resp.StatusCode)
		return poster
	}

	format := strings.TrimPrefix(path.Ext(legacy.URL), ".")
	if format == "" {
		format = "jpg"
	}
	filename := "poster." + format
	if _, err := r.store.Upload(ctx, serverID.String(), projectID.String(), filename, "project", resp.Body, resp.ContentLength); err != nil {
		log.Printf("[migrate] poster for %s: upload failed: %v", projectID, err)
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

func (r *Runner) migrateActors(state *runState) error {
	for _, actor := range state.cache.Created() {
		if err := r.actors.Create(actor); err != nil {
			return fmt.Errorf("insert actor %s: %w", actor.Name, err)
		}
	}
	return nil
}

func (r *Runner) migratePending(dump *Dump, state *runState) error {
	for _, legacy := range dump.Servers {
		targetID, ok := state.serverIDs[legacy.ID]
		if !ok {
			continue
		}
		for _, confirm := range legacy.Konfirmasi {
			sourceID, ok := state.serverIDs[confirm.ServerID]
			if !ok {
				log.Printf("[migrate] confirmation %s: source server %s missing, skipping", confirm.ID, confirm.ServerID)
				continue
			}
			projectID, ok := state.projectIDs[confirm.ServerID][confirm.AnimeID]
			if !ok {
				log.Printf("[migrate] confirmation %s: project %s missing on %s, skipping", confirm.ID, confirm.AnimeID, confirm.ServerID)
				continue
			}
			pending := &models.PendingCollab{
				ID:           uuid.New(),
				Code:         confirm.ID,
				SourceServer: sourceID,
				TargetServer: targetID,
				ProjectID:    projectID,
				CreatedAt:    state.now,
			}
			if err := r.collabs.CreatePending(pending); err != nil {
				return fmt.Errorf("insert pending collab %s: %w", confirm.ID, err)
			}
		}
	}
	return nil
}

// migrateCollabs rebuilds collab links from the claimed collaborator
// lists. Claims are deduplicated first so each shared project yields a
// single link owned by the earliest claiming server.
func (r *Runner) migrateCollabs(dump *Dump, state *runState) error {
	claims := make([]collab.ServerClaims, 0, len(dump.Servers))
	for _, legacy := range dump.Servers {
		sc := collab.ServerClaims{ServerID: legacy.ID}
		for _, anime := range legacy.Anime {
			if len(anime.Kolaborasi) == 0 {
				continue
			}
			sc.Claims = append(sc.Claims, collab.Claim{
				ProjectID: anime.ID,
				Servers:   anime.Kolaborasi,
			})
		}
		claims = append(claims, sc)
	}

	for _, owner := range collab.Deduplicate(claims) {
		for _, claim := range owner.Claims {
			mutual := collab.MutualServers(claims, claim.ProjectID)
			link := &models.CollabLink{ID: uuid.New(), CreatedAt: state.now}
			for _, member := range claim.Servers {
				if !mutual[member] {
					log.Printf("[migrate] collab on %s: %s never confirmed by peers, skipping", claim.ProjectID, member)
					continue
				}
				serverID, ok := state.serverIDs[member]
				if !ok {
					log.Printf("[migrate] collab on %s: member server %s missing, skipping", claim.ProjectID, member)
					continue
				}
				projectID, ok := state.projectIDs[member][claim.ProjectID]
				if !ok {
					log.Printf("[migrate] collab on %s: server %s has no copy, skipping", claim.ProjectID, member)
					continue
				}
				link.Servers = append(link.Servers, serverID)
				link.Projects = append(link.Projects, projectID)
			}
			if !link.Viable() {
				log.Printf("[migrate] collab on %s: fewer than two surviving members, dropping link", claim.ProjectID)
				continue
			}
			if err := r.collabs.CreateLink(link); err != nil {
				return fmt.Errorf("insert collab link for %s: %w", claim.ProjectID, err)
			}
		}
	}
	return nil
}
