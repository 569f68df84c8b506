package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/db"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

type UserRepository struct {
	q db.Querier
}

func NewUserRepository(database *db.DB) *UserRepository {
	return &UserRepository{q: database.DB}
}

func (r *UserRepository) WithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

func (r *UserRepository) Create(user *models.User) error {
	doc, err := marshalDoc(user)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`
		INSERT INTO users (id, username, kind, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Username, user.Kind, doc, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(id uuid.UUID) (*models.User, error) {
	return r.getOne(`SELECT doc FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	return r.getOne(`SELECT doc FROM users WHERE username = $1`, username)
}

func (r *UserRepository) GetByAPIKey(key string) (*models.User, error) {
	return r.getOne(`SELECT doc FROM users WHERE doc->>'api_key' = $1`, key)
}

func (r *UserRepository) getOne(query string, args ...interface{}) (*models.User, error) {
	var raw []byte
	err := r.q.QueryRow(query, args...).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user := &models.User{}
	if err := unmarshalDoc(raw, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) Save(user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	doc, err := marshalDoc(user)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`
		UPDATE users SET username = $1, kind = $2, doc = $3, updated_at = $4 WHERE id = $5`,
		user.Username, user.Kind, doc, user.UpdatedAt, user.ID)
	return err
}

func (r *UserRepository) Delete(id uuid.UUID) error {
	_, err := r.q.Exec(`DELETE FROM users WHERE id = $1`, id)
	return err
}
