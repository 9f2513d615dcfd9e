package postgres

import (
	"context"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/repository"
	"github.com/jmoiron/sqlx"
)

type connectionRepository struct {
	db *sqlx.DB
}

func NewConnectionRepository(db *sqlx.DB) repository.ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) All(ctx context.Context) ([]domain.Connection, error) {
	var conns []domain.Connection
	query := `SELECT user_a, user_b, created_at FROM connections ORDER BY user_a, user_b`
	err := r.db.SelectContext(ctx, &conns, query)
	return conns, err
}

func (r *connectionRepository) ForUser(ctx context.Context, userID string) ([]domain.Connection, error) {
	var conns []domain.Connection
	query := `
		SELECT user_a, user_b, created_at FROM connections
		WHERE user_a = $1 OR user_b = $1
		ORDER BY user_a, user_b
	`
	err := r.db.SelectContext(ctx, &conns, query, userID)
	return conns, err
}

func (r *connectionRepository) Create(ctx context.Context, conn domain.Connection) error {
	// Ensure user_a < user_b for constraint
	canonical, err := domain.NewConnection(conn.UserA, conn.UserB)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO connections (user_a, user_b)
		VALUES ($1, $2)
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query, canonical.UserA, canonical.UserB).Scan(&canonical.CreatedAt)
	return mapInsertError(err)
}
