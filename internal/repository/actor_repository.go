package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/naoTimesdev/showtimes-sub000/internal/db"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

type ActorRepository struct {
	q db.Querier
}

func NewActorRepository(database *db.DB) *ActorRepository {
	return &ActorRepository{q: database.DB}
}

func (r *ActorRepository) WithTx(tx *sql.Tx) *ActorRepository {
	return &ActorRepository{q: tx}
}

func (r *ActorRepository) Create(actor *models.RoleActor) error {
	doc, err := marshalDoc(actor)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`INSERT INTO actors (id, doc) VALUES ($1, $2)`, actor.ID, doc)
	if err != nil {
		return fmt.Errorf("insert actor: %w", err)
	}
	return nil
}

func (r *ActorRepository) GetByID(id uuid.UUID) (*models.RoleActor, error) {
	var raw []byte
	err := r.q.QueryRow(`SELECT doc FROM actors WHERE id = $1`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("actor not found")
	}
	if err != nil {
		return nil, err
	}
	actor := &models.RoleActor{}
	if err := unmarshalDoc(raw, actor); err != nil {
		return nil, err
	}
	return actor, nil
}

func (r *ActorRepository) GetByIDs(ids []uuid.UUID) ([]*models.RoleActor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(`SELECT doc FROM actors WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actors []*models.RoleActor
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		actor := &models.RoleActor{}
		if err := unmarshalDoc(raw, actor); err != nil {
			return nil, err
		}
		actors = append(actors, actor)
	}
	return actors, rows.Err()
}

// FindByIntegration returns the actor carrying the given integration tag,
// or nil when none exists. This is the dedup lookup: (id, type) pairs are
// unique across actors.
func (r *ActorRepository) FindByIntegration(id, typ string) (*models.RoleActor, error) {
	query := `
		SELECT doc FROM actors
		WHERE doc->'integrations' @> $1::jsonb
		LIMIT 1`
	tag, err := marshalDoc([]models.IntegrationID{{ID: id, Type: typ}})
	if err != nil {
		return nil, err
	}
	var raw []byte
	err = r.q.QueryRow(query, tag).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	actor := &models.RoleActor{}
	if err := unmarshalDoc(raw, actor); err != nil {
		return nil, err
	}
	return actor, nil
}

func (r *ActorRepository) Save(actor *models.RoleActor) error {
	doc, err := marshalDoc(actor)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`UPDATE actors SET doc = $1, updated_at = NOW() WHERE id = $2`, doc, actor.ID)
	return err
}

func (r *ActorRepository) DeleteByIDs(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.q.Exec(`DELETE FROM actors WHERE id = ANY($1)`, pq.Array(ids))
	return err
}
