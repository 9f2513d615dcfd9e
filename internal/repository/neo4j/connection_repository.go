// Package neo4j stores handshakes as (:User)-[:HANDSHAKE]-(:User) relationships.
package neo4j

import (
	"context"
	"fmt"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/graphdb"
	"github.com/gdugdh24/handshake-backend/internal/repository"
)

const (
	allConnectionsQuery = `
MATCH (a:User)-[:HANDSHAKE]-(b:User)
WHERE a.id < b.id
RETURN a.id AS user_a, b.id AS user_b
ORDER BY user_a, user_b`

	userConnectionsQuery = `
MATCH (a:User {id: $userId})-[:HANDSHAKE]-(b:User)
RETURN a.id AS user_a, b.id AS user_b`

	createConnectionQuery = `
MERGE (a:User {id: $userA})
MERGE (b:User {id: $userB})
WITH a, b
OPTIONAL MATCH (a)-[existing:HANDSHAKE]-(b)
WITH a, b, existing
WHERE existing IS NULL
CREATE (a)-[:HANDSHAKE {created_at: datetime()}]->(b)
RETURN a.id AS user_a`
)

type connectionRepository struct {
	client graphdb.Client
}

func NewConnectionRepository(client graphdb.Client) repository.ConnectionRepository {
	return &connectionRepository{client: client}
}

func (r *connectionRepository) All(ctx context.Context) ([]domain.Connection, error) {
	records, err := r.client.ExecuteRead(ctx, allConnectionsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read handshakes: %w", err)
	}
	return toConnections(records), nil
}

func (r *connectionRepository) ForUser(ctx context.Context, userID string) ([]domain.Connection, error) {
	records, err := r.client.ExecuteRead(ctx, userConnectionsQuery, map[string]any{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to read handshakes of %s: %w", userID, err)
	}
	return toConnections(records), nil
}

func (r *connectionRepository) Create(ctx context.Context, conn domain.Connection) error {
	canonical, err := domain.NewConnection(conn.UserA, conn.UserB)
	if err != nil {
		return err
	}
	records, err := r.client.ExecuteWrite(ctx, createConnectionQuery, map[string]any{
		"userA": canonical.UserA,
		"userB": canonical.UserB,
	})
	if err != nil {
		return fmt.Errorf("failed to create handshake: %w", err)
	}
	if len(records) == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

// toConnections canonicalizes rows and drops malformed or repeated pairs.
func toConnections(records []graphdb.Record) []domain.Connection {
	seen := make(map[domain.Connection]struct{}, len(records))
	conns := make([]domain.Connection, 0, len(records))
	for _, rec := range records {
		c, err := domain.NewConnection(rec.String("user_a"), rec.String("user_b"))
		if err != nil {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		conns = append(conns, c)
	}
	return conns
}
