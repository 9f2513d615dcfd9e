package memory

import (
	"context"
	"sort"
	"time"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/repository"
)

type userRepository struct{ s *Store }

func (s *Store) UserRepository() repository.UserRepository { return userRepository{s} }

func (r userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r userRepository) ListByIDs(_ context.Context, ids []string) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("users.ListByIDs"); err != nil {
		return nil, err
	}
	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			cp := *u
			users = append(users, &cp)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r userRepository) ListAll(_ context.Context) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("users.ListAll"); err != nil {
		return nil, err
	}
	users := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r userRepository) LiveIDs(_ context.Context) (map[string]struct{}, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("users.LiveIDs"); err != nil {
		return nil, err
	}
	live := make(map[string]struct{}, len(r.s.users))
	for id, u := range r.s.users {
		if u.IsLive() {
			live[id] = struct{}{}
		}
	}
	return live, nil
}

type connectionRepository struct{ s *Store }

func (s *Store) ConnectionRepository() repository.ConnectionRepository {
	return connectionRepository{s}
}

func (r connectionRepository) All(_ context.Context) ([]domain.Connection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("connections.All"); err != nil {
		return nil, err
	}
	return r.filter(func(domain.Connection) bool { return true }), nil
}

func (r connectionRepository) ForUser(_ context.Context, userID string) ([]domain.Connection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("connections.ForUser"); err != nil {
		return nil, err
	}
	return r.filter(func(c domain.Connection) bool { return c.HasUser(userID) }), nil
}

func (r connectionRepository) Create(_ context.Context, conn domain.Connection) error {
	canonical, err := domain.NewConnection(conn.UserA, conn.UserB)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("connections.Create"); err != nil {
		return err
	}
	key := [2]string{canonical.UserA, canonical.UserB}
	if _, ok := r.s.connections[key]; ok {
		return domain.ErrDuplicate
	}
	r.s.connections[key] = time.Now().UTC()
	return nil
}

func (r connectionRepository) filter(keep func(domain.Connection) bool) []domain.Connection {
	conns := make([]domain.Connection, 0, len(r.s.connections))
	for key, created := range r.s.connections {
		c := domain.Connection{UserA: key[0], UserB: key[1], CreatedAt: created}
		if keep(c) {
			conns = append(conns, c)
		}
	}
	sort.Slice(conns, func(i, j int) bool {
		if conns[i].UserA != conns[j].UserA {
			return conns[i].UserA < conns[j].UserA
		}
		return conns[i].UserB < conns[j].UserB
	})
	return conns
}

type skillRepository struct{ s *Store }

func (s *Store) SkillRepository() repository.SkillRepository { return skillRepository{s} }

func (r skillRepository) Categories(_ context.Context) (map[int64]domain.SkillCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("skills.Categories"); err != nil {
		return nil, err
	}
	out := make(map[int64]domain.SkillCategory, len(r.s.categories))
	for id, c := range r.s.categories {
		out[id] = c
	}
	return out, nil
}

func (r skillRepository) ForUsers(_ context.Context, userIDs []string) ([]domain.UserSkill, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("skills.ForUsers"); err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}
	var out []domain.UserSkill
	for _, sk := range r.s.skills {
		if _, ok := wanted[sk.UserID]; ok {
			out = append(out, sk)
		}
	}
	return out, nil
}

func (r skillRepository) Candidates(_ context.Context, needCategory, hasCategory int64) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("skills.Candidates"); err != nil {
		return nil, err
	}
	needs := make(map[string]struct{})
	has := make(map[string]struct{})
	for _, sk := range r.s.skills {
		switch {
		case sk.Kind == domain.SkillNeeds && sk.CategoryID == needCategory:
			needs[sk.UserID] = struct{}{}
		case sk.Kind == domain.SkillHas && sk.CategoryID == hasCategory:
			has[sk.UserID] = struct{}{}
		}
	}
	var ids []string
	for id := range needs {
		if _, ok := has[id]; !ok {
			continue
		}
		if u, ok := r.s.users[id]; ok && u.IsLive() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type chainRepository struct{ s *Store }

func (s *Store) ChainRepository() repository.ChainRepository { return chainRepository{s} }

// activeKeyTaken mimics the partial unique index on participant_key.
func (r chainRepository) activeKeyTaken(key, exceptID string) bool {
	for id, c := range r.s.chains {
		if id != exceptID && c.Status.IsOpen() && c.ParticipantKey == key {
			return true
		}
	}
	return false
}

func (r chainRepository) Create(_ context.Context, chain *domain.MatchChain) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("chains.Create"); err != nil {
		return err
	}
	if _, ok := r.s.chains[chain.ID]; ok {
		return domain.ErrDuplicate
	}
	if chain.Status.IsOpen() && r.activeKeyTaken(chain.ParticipantKey, "") {
		return domain.ErrDuplicate
	}
	now := time.Now().UTC()
	chain.CreatedAt, chain.UpdatedAt = now, now
	r.s.chains[chain.ID] = copyChain(chain)
	return nil
}

func (r chainRepository) GetByID(_ context.Context, id string) (*domain.MatchChain, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("chains.GetByID"); err != nil {
		return nil, err
	}
	c, ok := r.s.chains[id]
	if !ok {
		return nil, domain.ErrChainNotFound
	}
	return copyChain(c), nil
}

func (r chainRepository) ActiveParticipantKeys(_ context.Context) (map[string]struct{}, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("chains.ActiveParticipantKeys"); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	for _, c := range r.s.chains {
		if c.Status.IsOpen() {
			keys[c.ParticipantKey] = struct{}{}
		}
	}
	return keys, nil
}

func (r chainRepository) UpdateStatus(_ context.Context, id string, status domain.ChainStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("chains.UpdateStatus"); err != nil {
		return err
	}
	c, ok := r.s.chains[id]
	if !ok {
		return domain.ErrChainNotFound
	}
	if status.IsOpen() && r.activeKeyTaken(c.ParticipantKey, id) {
		return domain.ErrDuplicate
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r chainRepository) MarkSides(_ context.Context, chainID, userID string, stage domain.LinkStage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("chains.MarkSides"); err != nil {
		return err
	}
	c, ok := r.s.chains[chainID]
	if !ok {
		return domain.ErrChainNotFound
	}
	if !c.MarkSides(userID, stage) {
		return domain.ErrLinkNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r chainRepository) SetOfferTerms(_ context.Context, chainID string, position int, giverID string, terms *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("chains.SetOfferTerms"); err != nil {
		return err
	}
	c, ok := r.s.chains[chainID]
	if !ok {
		return domain.ErrChainNotFound
	}
	if position < 0 || position >= len(c.Links) || c.Links[position].GiverID != giverID {
		return domain.ErrLinkNotFound
	}
	if terms != nil {
		t := *terms
		terms = &t
	}
	c.Links[position].OfferTerms = terms
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r chainRepository) ReplaceParticipant(_ context.Context, chain *domain.MatchChain, predecessor, successor *domain.MatchChainLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("chains.ReplaceParticipant"); err != nil {
		return err
	}
	c, ok := r.s.chains[chain.ID]
	if !ok {
		return domain.ErrChainNotFound
	}
	if chain.Status.IsOpen() && r.activeKeyTaken(chain.ParticipantKey, chain.ID) {
		return domain.ErrDuplicate
	}
	updated := copyChain(c)
	if !replaceLink(updated, *predecessor) || !replaceLink(updated, *successor) {
		return domain.ErrLinkNotFound
	}
	updated.Status = chain.Status
	updated.CycleKey = chain.CycleKey
	updated.ParticipantKey = chain.ParticipantKey
	updated.UpdatedAt = time.Now().UTC()
	r.s.chains[chain.ID] = updated
	return nil
}

func replaceLink(c *domain.MatchChain, link domain.MatchChainLink) bool {
	for i := range c.Links {
		if c.Links[i].ID == link.ID {
			c.Links[i] = link
			return true
		}
	}
	return false
}

type notificationRepository struct{ s *Store }

func (s *Store) NotificationRepository() repository.NotificationRepository {
	return notificationRepository{s}
}

func (r notificationRepository) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notifications.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.notifications {
		if existing.UserID == n.UserID && existing.CollectionID == n.CollectionID &&
			existing.Type == n.Type && existing.Wave == n.Wave {
			return domain.ErrDuplicate
		}
	}
	cp := *n
	r.s.notifications = append(r.s.notifications, &cp)
	return nil
}

func (r notificationRepository) MaxWave(_ context.Context, collectionID string, t domain.NotificationType) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("notifications.MaxWave"); err != nil {
		return 0, err
	}
	last := 0
	for _, n := range r.s.notifications {
		if n.CollectionID == collectionID && n.Type == t && n.Wave > last {
			last = n.Wave
		}
	}
	return last, nil
}

func (r notificationRepository) NotifiedUsers(_ context.Context, collectionID string, t domain.NotificationType) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("notifications.NotifiedUsers"); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, n := range r.s.notifications {
		if n.CollectionID != collectionID || n.Type != t {
			continue
		}
		if _, ok := seen[n.UserID]; ok {
			continue
		}
		seen[n.UserID] = struct{}{}
		ids = append(ids, n.UserID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r notificationRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("notifications.DeleteExpired"); err != nil {
		return 0, err
	}
	kept := r.s.notifications[:0]
	var removed int64
	for _, n := range r.s.notifications {
		if n.ExpiresAt.Before(now) {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	r.s.notifications = kept
	return removed, nil
}
