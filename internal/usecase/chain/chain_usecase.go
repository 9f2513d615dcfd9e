package chain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/graph"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/eventbus"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/gemini"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/metrics"
	"github.com/gdugdh24/handshake-backend/internal/repository"
	"go.uber.org/zap"
)

type Config struct {
	// MaxNewPerRun caps chains inserted by one discovery.
	MaxNewPerRun int
	// MaxCycles caps cycle enumeration. <= 0 means unbounded.
	MaxCycles int
}

type ChainUseCase struct {
	userRepo       repository.UserRepository
	connectionRepo repository.ConnectionRepository
	skillRepo      repository.SkillRepository
	chainRepo      repository.ChainRepository
	publisher      eventbus.Publisher
	narrator       gemini.ChainNarrator
	log            *zap.Logger
	cfg            Config
}

func NewChainUseCase(
	userRepo repository.UserRepository,
	connectionRepo repository.ConnectionRepository,
	skillRepo repository.SkillRepository,
	chainRepo repository.ChainRepository,
	publisher eventbus.Publisher,
	narrator gemini.ChainNarrator,
	log *zap.Logger,
	cfg Config,
) *ChainUseCase {
	if cfg.MaxNewPerRun < 1 {
		cfg.MaxNewPerRun = 3
	}
	if narrator == nil {
		narrator = gemini.TemplateNarrator{}
	}
	return &ChainUseCase{
		userRepo:       userRepo,
		connectionRepo: connectionRepo,
		skillRepo:      skillRepo,
		chainRepo:      chainRepo,
		publisher:      publisher,
		narrator:       narrator,
		log:            log,
		cfg:            cfg,
	}
}

// Discover finds exchange cycles in the seed's network and stores up to
// MaxNewPerRun new chains. Cycles whose participants already share an open
// chain are skipped.
func (uc *ChainUseCase) Discover(ctx context.Context, seedID string) ([]*domain.MatchChain, error) {
	if _, err := uc.userRepo.GetByID(ctx, seedID); err != nil {
		return nil, err
	}

	conns, err := uc.connectionRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}
	network := graph.NewAdjacency(conns).Component(seedID)
	ids := make([]string, 0, len(network))
	for id := range network {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	userList, err := uc.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	users := make(map[string]*domain.User, len(userList))
	for _, u := range userList {
		users[u.ID] = u
	}
	skills, err := uc.skillRepo.ForUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}
	categories, err := uc.skillRepo.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	edges := graph.BuildSkillEdges(graph.SkillGraphInput{
		Network:    network,
		Users:      users,
		Skills:     skills,
		Categories: categories,
	})
	cycles, err := graph.FindCycles(ctx, edges, graph.CycleOptions{
		MaxLength: domain.MaxChainLength,
		MaxCycles: uc.cfg.MaxCycles,
	})
	if err != nil {
		return nil, err
	}
	metrics.CyclesFound.Observe(float64(len(cycles)))
	orderCycles(cycles, seedID)

	active, err := uc.chainRepo.ActiveParticipantKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active chains: %w", err)
	}

	created := []*domain.MatchChain{}
	seen := make(map[string]struct{}, len(cycles))
	for _, cycle := range cycles {
		if len(created) >= uc.cfg.MaxNewPerRun {
			break
		}
		key := cycle.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, taken := active[cycle.ParticipantKey()]; taken {
			continue
		}

		chain, err := domain.NewMatchChain(seedID, cycle)
		if err != nil {
			return nil, err
		}
		if err := uc.chainRepo.Create(ctx, chain); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				uc.log.Debug("chain already proposed concurrently", zap.String("participant_key", chain.ParticipantKey))
				continue
			}
			return nil, fmt.Errorf("failed to create chain: %w", err)
		}
		active[chain.ParticipantKey] = struct{}{}
		created = append(created, chain)
		metrics.ChainsCreated.Inc()

		summary := uc.summarize(ctx, chain, users, categories)
		uc.publish(ctx, domain.EventChainProposed, chain, map[string]any{"summary": summary})
	}

	uc.log.Info("chain discovery finished",
		zap.String("seed_id", seedID),
		zap.Int("network", len(network)),
		zap.Int("edges", len(edges)),
		zap.Int("cycles", len(cycles)),
		zap.Int("created", len(created)),
	)
	return created, nil
}

// orderCycles puts cycles through the seed first, then shorter ones, then
// orders by key.
func orderCycles(cycles []graph.Cycle, seedID string) {
	sort.SliceStable(cycles, func(i, j int) bool {
		ci, cj := cycles[i].Contains(seedID), cycles[j].Contains(seedID)
		if ci != cj {
			return ci
		}
		if len(cycles[i]) != len(cycles[j]) {
			return len(cycles[i]) < len(cycles[j])
		}
		return cycles[i].Key() < cycles[j].Key()
	})
}

func (uc *ChainUseCase) Get(ctx context.Context, id string) (*domain.MatchChain, error) {
	return uc.chainRepo.GetByID(ctx, id)
}

// Confirm marks the user's giving and receiving sides as confirmed. The chain
// becomes ACTIVE once every side of every link is confirmed.
func (uc *ChainUseCase) Confirm(ctx context.Context, id, userID string) (*domain.MatchChain, error) {
	chain, err := uc.participantChain(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if chain.Status != domain.ChainProposed {
		return nil, fmt.Errorf("%w: cannot confirm a %s chain", domain.ErrInvalidTransition, chain.Status)
	}

	chain, err = uc.markSides(ctx, chain.ID, userID, domain.StageConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to save confirmation: %w", err)
	}
	if chain.Status == domain.ChainProposed && chain.AllConfirmed() {
		if err := uc.moveTo(ctx, chain, domain.ChainActive); err != nil {
			return nil, err
		}
		uc.publish(ctx, domain.EventChainActivated, chain, nil)
	}
	return chain, nil
}

// Complete marks the user's sides as done. Only ACTIVE chains accept it.
func (uc *ChainUseCase) Complete(ctx context.Context, id, userID string) (*domain.MatchChain, error) {
	chain, err := uc.participantChain(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if chain.Status != domain.ChainActive {
		return nil, fmt.Errorf("%w: cannot complete a %s chain", domain.ErrInvalidTransition, chain.Status)
	}

	chain, err = uc.markSides(ctx, chain.ID, userID, domain.StageCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to save completion: %w", err)
	}
	if chain.Status == domain.ChainActive && chain.AllCompleted() {
		if err := uc.moveTo(ctx, chain, domain.ChainCompleted); err != nil {
			return nil, err
		}
		uc.publish(ctx, domain.EventChainCompleted, chain, nil)
	}
	return chain, nil
}

// markSides writes the user's flags and reloads the chain so the caller sees
// flags set concurrently by other participants.
func (uc *ChainUseCase) markSides(ctx context.Context, id, userID string, stage domain.LinkStage) (*domain.MatchChain, error) {
	if err := uc.chainRepo.MarkSides(ctx, id, userID, stage); err != nil {
		return nil, err
	}
	return uc.chainRepo.GetByID(ctx, id)
}

// Decline breaks the chain and tries to splice in a replacement for the
// declining user. Without one the chain is cancelled.
func (uc *ChainUseCase) Decline(ctx context.Context, id, userID string) (*domain.MatchChain, error) {
	chain, err := uc.participantChain(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !chain.Status.IsOpen() {
		return nil, fmt.Errorf("%w: cannot decline a %s chain", domain.ErrInvalidTransition, chain.Status)
	}
	if err := uc.moveTo(ctx, chain, domain.ChainBroken); err != nil {
		return nil, err
	}

	replacementID, err := uc.findReplacement(ctx, chain, userID)
	if errors.Is(err, domain.ErrNoReplacementFound) {
		return uc.cancelBroken(ctx, chain, userID)
	}
	if err != nil {
		return nil, err
	}

	// chain keeps the stored state until the splice is persisted
	repaired := chain.Clone()
	predecessor := repaired.IncomingLink(userID)
	successor := repaired.OutgoingLink(userID)
	predecessor.ReceiverID = replacementID
	successor.GiverID = replacementID
	predecessor.Reset()
	successor.Reset()
	if err := repaired.TransitionTo(domain.ChainProposed); err != nil {
		return nil, err
	}
	repaired.RefreshKeys()

	if err := uc.chainRepo.ReplaceParticipant(ctx, repaired, predecessor, successor); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			// Another chain took this participant set since the search.
			return uc.cancelBroken(ctx, chain, userID)
		}
		return nil, fmt.Errorf("failed to replace participant: %w", err)
	}

	metrics.ChainReplacements.WithLabelValues(metrics.OutcomeRepaired).Inc()
	uc.publish(ctx, domain.EventChainRepaired, repaired, map[string]any{
		"declined_by": userID,
		"replacement": replacementID,
	})
	return repaired, nil
}

func (uc *ChainUseCase) cancelBroken(ctx context.Context, chain *domain.MatchChain, declinedBy string) (*domain.MatchChain, error) {
	if err := uc.moveTo(ctx, chain, domain.ChainCancelled); err != nil {
		return nil, err
	}
	metrics.ChainReplacements.WithLabelValues(metrics.OutcomeCancelled).Inc()
	uc.publish(ctx, domain.EventChainCancelled, chain, map[string]any{
		"reason":      "no_replacement",
		"declined_by": declinedBy,
	})
	return chain, nil
}

// findReplacement returns the smallest-id user who needs what the predecessor
// gives, has what the successor needs, is live, is outside the chain and is
// reachable from the predecessor.
func (uc *ChainUseCase) findReplacement(ctx context.Context, chain *domain.MatchChain, declinedID string) (string, error) {
	predecessor := chain.IncomingLink(declinedID)
	successor := chain.OutgoingLink(declinedID)
	if predecessor == nil || successor == nil {
		return "", domain.ErrLinkNotFound
	}

	candidates, err := uc.skillRepo.Candidates(ctx, predecessor.CategoryID, successor.CategoryID)
	if err != nil {
		return "", fmt.Errorf("failed to load replacement candidates: %w", err)
	}
	if len(candidates) == 0 {
		return "", domain.ErrNoReplacementFound
	}

	conns, err := uc.connectionRepo.All(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load connections: %w", err)
	}
	network := graph.NewAdjacency(conns).Component(predecessor.GiverID)

	users, err := uc.userRepo.ListByIDs(ctx, candidates)
	if err != nil {
		return "", fmt.Errorf("failed to load candidates: %w", err)
	}
	live := make(map[string]bool, len(users))
	for _, u := range users {
		live[u.ID] = u.IsLive()
	}

	active, err := uc.chainRepo.ActiveParticipantKeys(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load active chains: %w", err)
	}

	remaining := make([]string, 0, len(chain.Links))
	for _, id := range chain.Participants() {
		if id != declinedID {
			remaining = append(remaining, id)
		}
	}

	sort.Strings(candidates)
	for _, id := range candidates {
		if !live[id] || chain.HasParticipant(id) {
			continue
		}
		if _, ok := network[id]; !ok {
			continue
		}
		if _, taken := active[domain.ParticipantKey(append(remaining, id))]; taken {
			continue
		}
		return id, nil
	}
	return "", domain.ErrNoReplacementFound
}

// Cancel ends an open chain on behalf of any participant.
func (uc *ChainUseCase) Cancel(ctx context.Context, id, userID string) (*domain.MatchChain, error) {
	chain, err := uc.participantChain(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := uc.moveTo(ctx, chain, domain.ChainCancelled); err != nil {
		return nil, err
	}
	uc.publish(ctx, domain.EventChainCancelled, chain, map[string]any{
		"reason":       "cancelled_by_participant",
		"cancelled_by": userID,
	})
	return chain, nil
}

// SetOfferTerms lets the giver of a link describe what they offer. Blank
// terms clear the field.
func (uc *ChainUseCase) SetOfferTerms(ctx context.Context, id, userID string, position int, terms string) (*domain.MatchChain, error) {
	chain, err := uc.participantChain(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !chain.Status.IsOpen() {
		return nil, fmt.Errorf("%w: chain is %s", domain.ErrInvalidTransition, chain.Status)
	}
	if position < 0 || position >= len(chain.Links) {
		return nil, domain.ErrLinkNotFound
	}
	link := &chain.Links[position]
	if link.GiverID != userID {
		return nil, domain.ErrNotParticipant
	}

	var offer *string
	if terms = strings.TrimSpace(terms); terms != "" {
		offer = &terms
	}
	if err := uc.chainRepo.SetOfferTerms(ctx, chain.ID, position, userID, offer); err != nil {
		return nil, fmt.Errorf("failed to save offer terms: %w", err)
	}
	link.OfferTerms = offer
	return chain, nil
}

func (uc *ChainUseCase) participantChain(ctx context.Context, id, userID string) (*domain.MatchChain, error) {
	chain, err := uc.chainRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !chain.HasParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	return chain, nil
}

func (uc *ChainUseCase) moveTo(ctx context.Context, chain *domain.MatchChain, next domain.ChainStatus) error {
	if err := chain.TransitionTo(next); err != nil {
		return err
	}
	if err := uc.chainRepo.UpdateStatus(ctx, chain.ID, next); err != nil {
		return fmt.Errorf("failed to update chain status: %w", err)
	}
	return nil
}

func (uc *ChainUseCase) summarize(ctx context.Context, chain *domain.MatchChain, users map[string]*domain.User, categories map[int64]domain.SkillCategory) string {
	names := make(map[string]string, len(chain.Links))
	catNames := make(map[int64]string, len(chain.Links))
	for _, l := range chain.Links {
		if u := users[l.GiverID]; u != nil {
			names[u.ID] = u.DisplayName
		}
		catNames[l.CategoryID] = categories[l.CategoryID].Name
	}
	summary, err := uc.narrator.DescribeChain(ctx, chain, names, catNames)
	if err != nil {
		uc.log.Warn("failed to describe chain", zap.String("chain_id", chain.ID), zap.Error(err))
		return ""
	}
	return summary
}

func (uc *ChainUseCase) publish(ctx context.Context, t domain.EventType, chain *domain.MatchChain, extra map[string]any) {
	payload := map[string]any{
		"chain_id":     chain.ID,
		"status":       string(chain.Status),
		"participants": chain.Participants(),
	}
	for k, v := range extra {
		payload[k] = v
	}
	if err := uc.publisher.Publish(ctx, domain.NewEvent(t, payload)); err != nil {
		uc.log.Warn("failed to publish chain event", zap.String("type", string(t)), zap.String("chain_id", chain.ID), zap.Error(err))
	}
}
