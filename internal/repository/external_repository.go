package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/db"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

type ExternalRepository struct {
	q db.Querier
}

func NewExternalRepository(database *db.DB) *ExternalRepository {
	return &ExternalRepository{q: database.DB}
}

func (r *ExternalRepository) WithTx(tx *sql.Tx) *ExternalRepository {
	return &ExternalRepository{q: tx}
}

func refID(ext *models.ExternalData) string {
	switch ext.Kind {
	case models.ExternalAnilist:
		return ext.AniID
	case models.ExternalTMDB:
		return ext.TMDBID
	}
	return ""
}

func (r *ExternalRepository) Create(ext *models.ExternalData) error {
	doc, err := marshalDoc(ext)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`
		INSERT INTO externals (id, kind, ref_id, doc) VALUES ($1, $2, $3, $4)`,
		ext.ID, ext.Kind, refID(ext), doc)
	if err != nil {
		return fmt.Errorf("insert external data: %w", err)
	}
	return nil
}

func (r *ExternalRepository) GetByID(id uuid.UUID) (*models.ExternalData, error) {
	var raw []byte
	err := r.q.QueryRow(`SELECT doc FROM externals WHERE id = $1`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("external data not found")
	}
	if err != nil {
		return nil, err
	}
	ext := &models.ExternalData{}
	if err := unmarshalDoc(raw, ext); err != nil {
		return nil, err
	}
	return ext, nil
}

// FindByRef looks up external data by provider kind and provider-side ID.
// Returns nil when no record exists, so metadata fetches can decide
// between reuse and creation.
func (r *ExternalRepository) FindByRef(kind models.ExternalKind, ref string) (*models.ExternalData, error) {
	var raw []byte
	err := r.q.QueryRow(`SELECT doc FROM externals WHERE kind = $1 AND ref_id = $2`, kind, ref).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ext := &models.ExternalData{}
	if err := unmarshalDoc(raw, ext); err != nil {
		return nil, err
	}
	return ext, nil
}

// AllIDs lists every external record, for the scheduled refresh sweep.
func (r *ExternalRepository) AllIDs() ([]uuid.UUID, error) {
	rows, err := r.q.Query(`SELECT id FROM externals`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ExternalRepository) Save(ext *models.ExternalData) error {
	doc, err := marshalDoc(ext)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`
		UPDATE externals SET kind = $1, ref_id = $2, doc = $3, updated_at = NOW() WHERE id = $4`,
		ext.Kind, refID(ext), doc, ext.ID)
	return err
}
