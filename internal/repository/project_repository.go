package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/db"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

type ProjectRepository struct {
	q db.Querier
}

func NewProjectRepository(database *db.DB) *ProjectRepository {
	return &ProjectRepository{q: database.DB}
}

func (r *ProjectRepository) WithTx(tx *sql.Tx) *ProjectRepository {
	return &ProjectRepository{q: tx}
}

func (r *ProjectRepository) Create(project *models.Project) error {
	doc, err := marshalDoc(project)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`
		INSERT INTO projects (id, server_id, title, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		project.ID, project.ServerID, project.Title, doc, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetByID(id uuid.UUID) (*models.Project, error) {
	var raw []byte
	err := r.q.QueryRow(`SELECT doc FROM projects WHERE id = $1`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found")
	}
	if err != nil {
		return nil, err
	}
	project := &models.Project{}
	if err := unmarshalDoc(raw, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (r *ProjectRepository) ListByServer(serverID uuid.UUID) ([]*models.Project, error) {
	return r.list(`SELECT doc FROM projects WHERE server_id = $1 ORDER BY created_at`, serverID)
}

func (r *ProjectRepository) All() ([]*models.Project, error) {
	return r.list(`SELECT doc FROM projects ORDER BY created_at`)
}

func (r *ProjectRepository) list(query string, args ...interface{}) ([]*models.Project, error) {
	rows, err := r.q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		project := &models.Project{}
		if err := unmarshalDoc(raw, project); err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) Save(project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()
	doc, err := marshalDoc(project)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`
		UPDATE projects SET title = $1, doc = $2, updated_at = $3 WHERE id = $4`,
		project.Title, doc, project.UpdatedAt, project.ID)
	return err
}

func (r *ProjectRepository) Delete(id uuid.UUID) error {
	_, err := r.q.Exec(`DELETE FROM projects WHERE id = $1`, id)
	return err
}

// CountReferencingActor reports how many projects besides exclude still
// assign the actor.
func (r *ProjectRepository) CountReferencingActor(actorID, exclude uuid.UUID) (int, error) {
	var n int
	err := r.q.QueryRow(`
		SELECT COUNT(*) FROM projects
		WHERE id <> $1 AND doc->'assignments' @> $2::jsonb`,
		exclude, fmt.Sprintf(`[{"actor_id": %q}]`, actorID)).Scan(&n)
	return n, err
}

// RecordEpisodeChanges appends a time-series row of before/after episode
// statuses for auditing.
func (r *ProjectRepository) RecordEpisodeChanges(projectID, serverID uuid.UUID, old, new []models.EpisodeStatus) error {
	doc, err := marshalDoc(map[string]interface{}{"old": old, "new": new})
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`
		INSERT INTO episode_changes (id, project_id, server_id, doc)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), projectID, serverID, doc)
	return err
}
