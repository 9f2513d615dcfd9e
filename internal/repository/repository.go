package repository

import (
	"context"
	"time"

	"github.com/gdugdh24/handshake-backend/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
	ListAll(ctx context.Context) ([]*domain.User, error)
	LiveIDs(ctx context.Context) (map[string]struct{}, error)
}

// ConnectionRepository is the handshake edge store.
type ConnectionRepository interface {
	All(ctx context.Context) ([]domain.Connection, error)
	ForUser(ctx context.Context, userID string) ([]domain.Connection, error)
	Create(ctx context.Context, conn domain.Connection) error
}

type SkillRepository interface {
	Categories(ctx context.Context) (map[int64]domain.SkillCategory, error)
	ForUsers(ctx context.Context, userIDs []string) ([]domain.UserSkill, error)
	// Candidates returns ids of users who need needCategory and have hasCategory.
	Candidates(ctx context.Context, needCategory, hasCategory int64) ([]string, error)
}

type ChainRepository interface {
	Create(ctx context.Context, chain *domain.MatchChain) error
	GetByID(ctx context.Context, id string) (*domain.MatchChain, error)
	ActiveParticipantKeys(ctx context.Context) (map[string]struct{}, error)
	UpdateStatus(ctx context.Context, id string, status domain.ChainStatus) error
	// MarkSides sets the stage flag only on the link sides userID currently
	// holds. ErrLinkNotFound means userID holds no side any more.
	MarkSides(ctx context.Context, chainID, userID string, stage domain.LinkStage) error
	// SetOfferTerms writes the terms of the link at position if giverID still gives it.
	SetOfferTerms(ctx context.Context, chainID string, position int, giverID string, terms *string) error
	// ReplaceParticipant persists the two rewired links, refreshed keys and
	// status of chain in one transaction.
	ReplaceParticipant(ctx context.Context, chain *domain.MatchChain, predecessor, successor *domain.MatchChainLink) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	MaxWave(ctx context.Context, collectionID string, t domain.NotificationType) (int, error)
	NotifiedUsers(ctx context.Context, collectionID string, t domain.NotificationType) ([]string, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
