package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/db"
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

type NotificationRepository struct {
	q db.Querier
}

func NewNotificationRepository(database *db.DB) *NotificationRepository {
	return &NotificationRepository{q: database.DB}
}

func (r *NotificationRepository) WithTx(tx *sql.Tx) *NotificationRepository {
	return &NotificationRepository{q: tx}
}

func (r *NotificationRepository) Create(n *models.Notification) error {
	doc, err := marshalDoc(n)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(`
		INSERT INTO notifications (id, target, read, doc, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.Target, n.Read, doc, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListByTarget(target string, unreadOnly bool) ([]*models.Notification, error) {
	query := `SELECT doc FROM notifications WHERE target = $1`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.q.Query(query, target)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifs := []*models.Notification{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		n := &models.Notification{}
		if err := unmarshalDoc(raw, n); err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

func (r *NotificationRepository) MarkRead(id uuid.UUID) error {
	_, err := r.q.Exec(`
		UPDATE notifications
		SET read = TRUE, doc = jsonb_set(doc, '{read}', 'true')
		WHERE id = $1`, id)
	return err
}
