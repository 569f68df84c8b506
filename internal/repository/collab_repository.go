package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/db"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

type CollabRepository struct {
	q db.Querier
}

func NewCollabRepository(database *db.DB) *CollabRepository {
	return &CollabRepository{q: database.DB}
}

func (r *CollabRepository) WithTx(tx *sql.Tx) *CollabRepository {
	return &CollabRepository{q: tx}
}

func (r *CollabRepository) CreateLink(link *models.CollabLink) error {
	doc, err := marshalDoc(link)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`INSERT INTO collab_links (id, doc, created_at) VALUES ($1, $2, $3)`,
		link.ID, doc, link.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert collab link: %w", err)
	}
	return nil
}

func (r *CollabRepository) GetLink(id uuid.UUID) (*models.CollabLink, error) {
	var raw []byte
	err := r.q.QueryRow(`SELECT doc FROM collab_links WHERE id = $1`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("collab link not found")
	}
	if err != nil {
		return nil, err
	}
	link := &models.CollabLink{}
	if err := unmarshalDoc(raw, link); err != nil {
		return nil, err
	}
	return link, nil
}

// FindLinkByMember locates the link containing both the given server and
// project, or nil when the pair is not part of any collaboration.
func (r *CollabRepository) FindLinkByMember(serverID, projectID uuid.UUID) (*models.CollabLink, error) {
	query := `
		SELECT doc FROM collab_links
		WHERE doc->'servers' @> to_jsonb($1::text)
		  AND doc->'projects' @> to_jsonb($2::text)
		LIMIT 1`
	var raw []byte
	err := r.q.QueryRow(query, serverID.String(), projectID.String()).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	link := &models.CollabLink{}
	if err := unmarshalDoc(raw, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (r *CollabRepository) SaveLink(link *models.CollabLink) error {
	doc, err := marshalDoc(link)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`UPDATE collab_links SET doc = $1 WHERE id = $2`, doc, link.ID)
	return err
}

func (r *CollabRepository) DeleteLink(id uuid.UUID) error {
	_, err := r.q.Exec(`DELETE FROM collab_links WHERE id = $1`, id)
	return err
}

func (r *CollabRepository) CreatePending(pending *models.PendingCollab) error {
	doc, err := marshalDoc(pending)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`INSERT INTO pending_collabs (id, code, doc, created_at) VALUES ($1, $2, $3, $4)`,
		pending.ID, pending.Code, doc, pending.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pending collab: %w", err)
	}
	return nil
}

func (r *CollabRepository) GetPendingByCode(code string) (*models.PendingCollab, error) {
	var raw []byte
	err := r.q.QueryRow(`SELECT doc FROM pending_collabs WHERE code = $1`, code).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pending := &models.PendingCollab{}
	if err := unmarshalDoc(raw, pending); err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *CollabRepository) ListPendingByTarget(serverID uuid.UUID) ([]*models.PendingCollab, error) {
	rows, err := r.q.Query(
		`SELECT doc FROM pending_collabs WHERE doc->>'target_server' = $1 ORDER BY created_at`,
		serverID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pendings := []*models.PendingCollab{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		pending := &models.PendingCollab{}
		if err := unmarshalDoc(raw, pending); err != nil {
			return nil, err
		}
		pendings = append(pendings, pending)
	}
	return pendings, rows.Err()
}

func (r *CollabRepository) DeletePending(id uuid.UUID) error {
	_, err := r.q.Exec(`DELETE FROM pending_collabs WHERE id = $1`, id)
	return err
}
