package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/repository"
	"github.com/jmoiron/sqlx"
)

const linkColumns = `id, chain_id, position, giver_id, receiver_id, category_id,
	giver_confirmed, receiver_confirmed, giver_completed, receiver_completed, offer_terms`

type chainRepository struct {
	db *sqlx.DB
}

func NewChainRepository(db *sqlx.DB) repository.ChainRepository {
	return &chainRepository{db: db}
}

func (r *chainRepository) Create(ctx context.Context, chain *domain.MatchChain) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO match_chains (id, status, initiator_id, cycle_key, participant_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowxContext(ctx, query,
		chain.ID, chain.Status, chain.InitiatorID, chain.CycleKey, chain.ParticipantKey,
	).Scan(&chain.CreatedAt, &chain.UpdatedAt)
	if err != nil {
		return mapInsertError(err)
	}

	linkQuery := `
		INSERT INTO match_chain_links (id, chain_id, position, giver_id, receiver_id, category_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, link := range chain.Links {
		if _, err := tx.ExecContext(ctx, linkQuery,
			link.ID, chain.ID, link.Position, link.GiverID, link.ReceiverID, link.CategoryID,
		); err != nil {
			return mapInsertError(err)
		}
	}

	return tx.Commit()
}

func (r *chainRepository) GetByID(ctx context.Context, id string) (*domain.MatchChain, error) {
	var chain domain.MatchChain
	query := `
		SELECT id, status, initiator_id, cycle_key, participant_key, created_at, updated_at
		FROM match_chains WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &chain, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrChainNotFound
		}
		return nil, err
	}

	linkQuery := `SELECT ` + linkColumns + ` FROM match_chain_links WHERE chain_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &chain.Links, linkQuery, id); err != nil {
		return nil, fmt.Errorf("failed to load chain links: %w", err)
	}
	return &chain, nil
}

func (r *chainRepository) ActiveParticipantKeys(ctx context.Context) (map[string]struct{}, error) {
	var keys []string
	query := `SELECT participant_key FROM match_chains WHERE status IN ($1, $2)`
	if err := r.db.SelectContext(ctx, &keys, query, domain.ChainProposed, domain.ChainActive); err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out, nil
}

func (r *chainRepository) UpdateStatus(ctx context.Context, id string, status domain.ChainStatus) error {
	query := `UPDATE match_chains SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return mapInsertError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrChainNotFound
	}
	return nil
}

// MarkSides touches only the stage columns of the sides userID still holds.
func (r *chainRepository) MarkSides(ctx context.Context, chainID, userID string, stage domain.LinkStage) error {
	giverCol, receiverCol, err := stageColumns(stage)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE match_chain_links
		SET %[1]s = (%[1]s OR giver_id = $2),
		    %[2]s = (%[2]s OR receiver_id = $2)
		WHERE chain_id = $1 AND (giver_id = $2 OR receiver_id = $2)
	`, giverCol, receiverCol)
	return execOne(ctx, r.db, domain.ErrLinkNotFound, query, chainID, userID)
}

func (r *chainRepository) SetOfferTerms(ctx context.Context, chainID string, position int, giverID string, terms *string) error {
	query := `
		UPDATE match_chain_links SET offer_terms = $1
		WHERE chain_id = $2 AND position = $3 AND giver_id = $4
	`
	return execOne(ctx, r.db, domain.ErrLinkNotFound, query, terms, chainID, position, giverID)
}

func stageColumns(stage domain.LinkStage) (string, string, error) {
	switch stage {
	case domain.StageConfirmed:
		return "giver_confirmed", "receiver_confirmed", nil
	case domain.StageCompleted:
		return "giver_completed", "receiver_completed", nil
	}
	return "", "", fmt.Errorf("unknown link stage %q", stage)
}

// execOne runs an update and returns notFound when it touched no rows.
func execOne(ctx context.Context, db sqlx.ExecerContext, notFound error, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func (r *chainRepository) ReplaceParticipant(ctx context.Context, chain *domain.MatchChain, predecessor, successor *domain.MatchChainLink) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	links := []*domain.MatchChainLink{predecessor}
	if successor.ID != predecessor.ID {
		links = append(links, successor)
	}
	for _, link := range links {
		if err := updateLink(ctx, tx, link); err != nil {
			return err
		}
	}
	if err := updateChainRow(ctx, tx, chain); err != nil {
		return err
	}
	return tx.Commit()
}

func updateLink(ctx context.Context, tx *sqlx.Tx, link *domain.MatchChainLink) error {
	query := `
		UPDATE match_chain_links
		SET giver_id = $1, receiver_id = $2,
		    giver_confirmed = $3, receiver_confirmed = $4,
		    giver_completed = $5, receiver_completed = $6,
		    offer_terms = $7
		WHERE id = $8
	`
	return execOne(ctx, tx, domain.ErrLinkNotFound, query,
		link.GiverID, link.ReceiverID,
		link.GiverConfirmed, link.ReceiverConfirmed,
		link.GiverCompleted, link.ReceiverCompleted,
		link.OfferTerms, link.ID,
	)
}

func updateChainRow(ctx context.Context, tx *sqlx.Tx, chain *domain.MatchChain) error {
	query := `
		UPDATE match_chains
		SET status = $1, cycle_key = $2, participant_key = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
		RETURNING updated_at
	`
	err := tx.QueryRowxContext(ctx, query, chain.Status, chain.CycleKey, chain.ParticipantKey, chain.ID).
		Scan(&chain.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrChainNotFound
		}
		return mapInsertError(err)
	}
	return nil
}
