package recipient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/graph"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/eventbus"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/metrics"
	"github.com/gdugdh24/handshake-backend/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config bounds help-request fan-out.
type Config struct {
	MaxDepth        int
	MaxRecipients   int
	NotificationTTL time.Duration
}

type RecipientUseCase struct {
	userRepo         repository.UserRepository
	connectionRepo   repository.ConnectionRepository
	notificationRepo repository.NotificationRepository
	publisher        eventbus.Publisher
	validate         *validator.Validate
	log              *zap.Logger
	cfg              Config
	now              func() time.Time
}

func NewRecipientUseCase(
	userRepo repository.UserRepository,
	connectionRepo repository.ConnectionRepository,
	notificationRepo repository.NotificationRepository,
	publisher eventbus.Publisher,
	log *zap.Logger,
	cfg Config,
) *RecipientUseCase {
	return &RecipientUseCase{
		userRepo:         userRepo,
		connectionRepo:   connectionRepo,
		notificationRepo: notificationRepo,
		publisher:        publisher,
		validate:         validator.New(),
		log:              log,
		cfg:              cfg,
		now:              time.Now,
	}
}

// ResolveRequest asks for the users reachable from SeedID.
type ResolveRequest struct {
	SeedID        string   `json:"seed_id" validate:"required"`
	MaxDepth      int      `json:"max_depth" validate:"gte=0"`
	MaxRecipients int      `json:"max_recipients" validate:"gte=0"`
	Exclude       []string `json:"exclude"`
}

// HelpRequest triggers the next notification wave for a collection.
type HelpRequest struct {
	CollectionID string                  `json:"collection_id" validate:"required"`
	AuthorID     string                  `json:"author_id" validate:"required"`
	Type         domain.NotificationType `json:"type"`
}

// DispatchResult reports what one wave produced.
type DispatchResult struct {
	Wave          int                    `json:"wave"`
	Notifications []*domain.Notification `json:"notifications"`
	Skipped       int                    `json:"skipped"`
}

// Resolve returns reachable users ordered by depth, then id.
func (uc *RecipientUseCase) Resolve(ctx context.Context, req ResolveRequest) ([]graph.Reach, error) {
	if err := uc.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	exclude := make(map[string]struct{}, len(req.Exclude))
	for _, id := range req.Exclude {
		exclude[id] = struct{}{}
	}

	return uc.resolve(ctx, req.SeedID, graph.BFSOptions{
		MaxDepth:   req.MaxDepth,
		MaxResults: req.MaxRecipients,
		Exclude:    exclude,
	})
}

func (uc *RecipientUseCase) resolve(ctx context.Context, seedID string, opts graph.BFSOptions) ([]graph.Reach, error) {
	conns, err := uc.connectionRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}
	live, err := uc.userRepo.LiveIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load live users: %w", err)
	}

	opts.IsLive = func(id string) bool {
		_, ok := live[id]
		return ok
	}
	reached := graph.NewAdjacency(conns).BFS(seedID, opts)
	metrics.RecipientsResolved.Observe(float64(len(reached)))
	return reached, nil
}

// DispatchHelpRequest notifies the next wave of recipients. Users notified
// in earlier waves of the same collection and the author are skipped.
func (uc *RecipientUseCase) DispatchHelpRequest(ctx context.Context, req HelpRequest) (*DispatchResult, error) {
	if req.Type == "" {
		req.Type = domain.NotificationHelpRequest
	}
	if err := uc.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	maxWave, err := uc.notificationRepo.MaxWave(ctx, req.CollectionID, req.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to read last wave: %w", err)
	}
	notified, err := uc.notificationRepo.NotifiedUsers(ctx, req.CollectionID, req.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to read notified users: %w", err)
	}

	exclude := make(map[string]struct{}, len(notified)+1)
	exclude[req.AuthorID] = struct{}{}
	for _, id := range notified {
		exclude[id] = struct{}{}
	}

	reached, err := uc.resolve(ctx, req.AuthorID, graph.BFSOptions{
		MaxDepth:   uc.cfg.MaxDepth,
		MaxResults: uc.cfg.MaxRecipients,
		Exclude:    exclude,
	})
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{Wave: maxWave + 1, Notifications: []*domain.Notification{}}
	now := uc.now().UTC()
	for _, r := range reached {
		n := &domain.Notification{
			ID:           uuid.NewString(),
			UserID:       r.UserID,
			CollectionID: req.CollectionID,
			Type:         req.Type,
			Path:         r.Path,
			Wave:         result.Wave,
			ExpiresAt:    now.Add(uc.cfg.NotificationTTL),
			CreatedAt:    now,
		}
		if err := uc.notificationRepo.Create(ctx, n); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("failed to create notification: %w", err)
		}
		result.Notifications = append(result.Notifications, n)
		metrics.NotificationsCreated.Inc()
		uc.publish(ctx, n)
	}

	uc.log.Info("help request dispatched",
		zap.String("collection_id", req.CollectionID),
		zap.Int("wave", result.Wave),
		zap.Int("notified", len(result.Notifications)),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// PruneExpired deletes notifications whose TTL has passed.
func (uc *RecipientUseCase) PruneExpired(ctx context.Context) (int64, error) {
	removed, err := uc.notificationRepo.DeleteExpired(ctx, uc.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune notifications: %w", err)
	}
	return removed, nil
}

func (uc *RecipientUseCase) publish(ctx context.Context, n *domain.Notification) {
	event := domain.NewEvent(domain.EventNotificationCreated, map[string]any{
		"notification_id": n.ID,
		"user_id":         n.UserID,
		"collection_id":   n.CollectionID,
		"type":            string(n.Type),
		"wave":            n.Wave,
		"path":            []string(n.Path),
	})
	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.log.Warn("failed to publish notification event", zap.String("notification_id", n.ID), zap.Error(err))
	}
}
