package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/db"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

type ServerRepository struct {
	q db.Querier
}

func NewServerRepository(database *db.DB) *ServerRepository {
	return &ServerRepository{q: database.DB}
}

func (r *ServerRepository) WithTx(tx *sql.Tx) *ServerRepository {
	return &ServerRepository{q: tx}
}

func (r *ServerRepository) Create(server *models.Server) error {
	doc, err := marshalDoc(server)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`
		INSERT INTO servers (id, name, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		server.ID, server.Name, doc, server.CreatedAt, server.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert server: %w", err)
	}
	return nil
}

func (r *ServerRepository) GetByID(id uuid.UUID) (*models.Server, error) {
	var raw []byte
	err := r.q.QueryRow(`SELECT doc FROM servers WHERE id = $1`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("server not found")
	}
	if err != nil {
		return nil, err
	}
	server := &models.Server{}
	if err := unmarshalDoc(raw, server); err != nil {
		return nil, err
	}
	return server, nil
}

func (r *ServerRepository) All() ([]*models.Server, error) {
	rows, err := r.q.Query(`SELECT doc FROM servers ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	servers := []*models.Server{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		server := &models.Server{}
		if err := unmarshalDoc(raw, server); err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}
	return servers, rows.Err()
}

func (r *ServerRepository) Save(server *models.Server) error {
	server.UpdatedAt = time.Now().UTC()
	doc, err := marshalDoc(server)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`
		UPDATE servers SET name = $1, doc = $2, updated_at = $3 WHERE id = $4`,
		server.Name, doc, server.UpdatedAt, server.ID)
	return err
}

func (r *ServerRepository) Delete(id uuid.UUID) error {
	_, err := r.q.Exec(`DELETE FROM servers WHERE id = $1`, id)
	return err
}
