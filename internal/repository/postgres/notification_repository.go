package postgres

import (
	"context"
	"time"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/repository"
	"github.com/jmoiron/sqlx"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, collection_id, type, path, wave, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		n.ID, n.UserID, n.CollectionID, n.Type, n.Path, n.Wave, n.ExpiresAt,
	).Scan(&n.CreatedAt)
	return mapInsertError(err)
}

func (r *notificationRepository) MaxWave(ctx context.Context, collectionID string, t domain.NotificationType) (int, error) {
	var wave int
	query := `SELECT COALESCE(MAX(wave), 0) FROM notifications WHERE collection_id = $1 AND type = $2`
	err := r.db.GetContext(ctx, &wave, query, collectionID, t)
	return wave, err
}

func (r *notificationRepository) NotifiedUsers(ctx context.Context, collectionID string, t domain.NotificationType) ([]string, error) {
	var ids []string
	query := `SELECT DISTINCT user_id FROM notifications WHERE collection_id = $1 AND type = $2 ORDER BY user_id`
	err := r.db.SelectContext(ctx, &ids, query, collectionID, t)
	return ids, err
}

func (r *notificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
