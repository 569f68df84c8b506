package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/db"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

type PremiumRepository struct {
	q db.Querier
}

func NewPremiumRepository(database *db.DB) *PremiumRepository {
	return &PremiumRepository{q: database.DB}
}

func (r *PremiumRepository) WithTx(tx *sql.Tx) *PremiumRepository {
	return &PremiumRepository{q: tx}
}

func (r *PremiumRepository) Create(p *models.Premium) error {
	_, err := r.q.Exec(`
		INSERT INTO premiums (id, target, kind, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Target, p.Kind, p.ExpiresAt, p.CreatedAt)
	return err
}

// FindActive returns an unexpired ticket for the target, nil when none.
func (r *PremiumRepository) FindActive(target uuid.UUID, kind models.PremiumKind, now time.Time) (*models.Premium, error) {
	p := &models.Premium{}
	err := r.q.QueryRow(`
		SELECT id, target, kind, expires_at, created_at
		FROM premiums WHERE target = $1 AND kind = $2 AND expires_at > $3
		LIMIT 1`, target, kind, now).
		Scan(&p.ID, &p.Target, &p.Kind, &p.ExpiresAt, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ActiveTargets lists every target holding an unexpired ticket of a kind.
func (r *PremiumRepository) ActiveTargets(kind models.PremiumKind, now time.Time) (map[uuid.UUID]bool, error) {
	rows, err := r.q.Query(
		`SELECT target FROM premiums WHERE kind = $1 AND expires_at > $2`, kind, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	targets := make(map[uuid.UUID]bool)
	for rows.Next() {
		var target uuid.UUID
		if err := rows.Scan(&target); err != nil {
			return nil, err
		}
		targets[target] = true
	}
	return targets, rows.Err()
}

// DeleteExpired sweeps expired tickets, returning how many were removed.
func (r *PremiumRepository) DeleteExpired(now time.Time) (int64, error) {
	result, err := r.q.Exec(`DELETE FROM premiums WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
