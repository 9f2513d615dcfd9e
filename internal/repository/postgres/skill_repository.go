package postgres

import (
	"context"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type skillRepository struct {
	db *sqlx.DB
}

func NewSkillRepository(db *sqlx.DB) repository.SkillRepository {
	return &skillRepository{db: db}
}

func (r *skillRepository) Categories(ctx context.Context) (map[int64]domain.SkillCategory, error) {
	var cats []domain.SkillCategory
	query := `SELECT id, name, is_online, is_other FROM skill_categories`
	if err := r.db.SelectContext(ctx, &cats, query); err != nil {
		return nil, err
	}
	out := make(map[int64]domain.SkillCategory, len(cats))
	for _, c := range cats {
		out[c.ID] = c
	}
	return out, nil
}

func (r *skillRepository) ForUsers(ctx context.Context, userIDs []string) ([]domain.UserSkill, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var skills []domain.UserSkill
	query := `
		SELECT user_id, category_id, kind FROM user_skills
		WHERE user_id = ANY($1)
		ORDER BY user_id, category_id, kind
	`
	err := r.db.SelectContext(ctx, &skills, query, pq.Array(userIDs))
	return skills, err
}

func (r *skillRepository) Candidates(ctx context.Context, needCategory, hasCategory int64) ([]string, error) {
	var ids []string
	query := `
		SELECT DISTINCT n.user_id
		FROM user_skills n
		JOIN user_skills h ON h.user_id = n.user_id AND h.kind = 'has' AND h.category_id = $2
		JOIN users u ON u.id = n.user_id AND u.deleted_at IS NULL
		WHERE n.kind = 'needs' AND n.category_id = $1
		ORDER BY n.user_id
	`
	err := r.db.SelectContext(ctx, &ids, query, needCategory, hasCategory)
	return ids, err
}
