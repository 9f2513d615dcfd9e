// Package memory is an in-process backend for every repository interface.
// It mirrors the constraints the postgres schema enforces.
package memory

import (
	"sync"
	"time"

	"github.com/gdugdh24/handshake-backend/internal/domain"
)

type Store struct {
	mu            sync.RWMutex
	users         map[string]*domain.User
	connections   map[[2]string]time.Time
	categories    map[int64]domain.SkillCategory
	skills        []domain.UserSkill
	chains        map[string]*domain.MatchChain
	notifications []*domain.Notification
	failures      map[string]error
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]*domain.User),
		connections: make(map[[2]string]time.Time),
		categories:  make(map[int64]domain.SkillCategory),
		chains:      make(map[string]*domain.MatchChain),
		failures:    make(map[string]error),
	}
}

// FailOn makes the named operation (e.g. "chains.Create") return err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) fail(op string) error {
	return s.failures[op]
}

func (s *Store) AddUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

// Connect stores a handshake, ignoring self pairs and repeats.
func (s *Store) Connect(a, b string) {
	conn, err := domain.NewConnection(a, b)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{conn.UserA, conn.UserB}
	if _, ok := s.connections[key]; !ok {
		s.connections[key] = time.Now().UTC()
	}
}

func (s *Store) AddCategory(c domain.SkillCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}

func (s *Store) AddSkill(userID string, categoryID int64, kind domain.SkillKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills = append(s.skills, domain.UserSkill{UserID: userID, CategoryID: categoryID, Kind: kind})
}

// Chain returns a copy of the stored chain or nil.
func (s *Store) Chain(id string) *domain.MatchChain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[id]
	if !ok {
		return nil
	}
	return copyChain(c)
}

// Chains returns copies of every stored chain.
func (s *Store) Chains() []*domain.MatchChain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.MatchChain, 0, len(s.chains))
	for _, c := range s.chains {
		out = append(out, copyChain(c))
	}
	return out
}

func (s *Store) Notifications() []*domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		cp := *n
		out = append(out, &cp)
	}
	return out
}

func copyChain(c *domain.MatchChain) *domain.MatchChain {
	return c.Clone()
}
