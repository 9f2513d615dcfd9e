package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ChainStatus string

const (
	ChainProposed  ChainStatus = "PROPOSED"
	ChainActive    ChainStatus = "ACTIVE"
	ChainBroken    ChainStatus = "BROKEN"
	ChainCompleted ChainStatus = "COMPLETED"
	ChainCancelled ChainStatus = "CANCELLED"
)

const (
	MinChainLength = 2
	MaxChainLength = 5
)

var chainTransitions = map[ChainStatus][]ChainStatus{
	ChainProposed: {ChainActive, ChainBroken, ChainCancelled},
	ChainActive:   {ChainCompleted, ChainBroken, ChainCancelled},
	ChainBroken:   {ChainProposed, ChainCancelled},
}

// IsTerminal reports whether no further transition is possible.
func (s ChainStatus) IsTerminal() bool {
	return s == ChainCompleted || s == ChainCancelled
}

// IsOpen reports whether participants can still act on the chain.
func (s ChainStatus) IsOpen() bool {
	return s == ChainProposed || s == ChainActive
}

type MatchChain struct {
	ID             string           `json:"id" db:"id"`
	Status         ChainStatus      `json:"status" db:"status"`
	InitiatorID    string           `json:"initiator_id" db:"initiator_id"`
	CycleKey       string           `json:"cycle_key" db:"cycle_key"`
	ParticipantKey string           `json:"participant_key" db:"participant_key"`
	Links          []MatchChainLink `json:"links" db:"-"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

type MatchChainLink struct {
	ID                string  `json:"id" db:"id"`
	ChainID           string  `json:"chain_id" db:"chain_id"`
	Position          int     `json:"position" db:"position"`
	GiverID           string  `json:"giver_id" db:"giver_id"`
	ReceiverID        string  `json:"receiver_id" db:"receiver_id"`
	CategoryID        int64   `json:"category_id" db:"category_id"`
	GiverConfirmed    bool    `json:"giver_confirmed" db:"giver_confirmed"`
	ReceiverConfirmed bool    `json:"receiver_confirmed" db:"receiver_confirmed"`
	GiverCompleted    bool    `json:"giver_completed" db:"giver_completed"`
	ReceiverCompleted bool    `json:"receiver_completed" db:"receiver_completed"`
	OfferTerms        *string `json:"offer_terms" db:"offer_terms"`
}

// NewMatchChain builds a PROPOSED chain whose links follow the edge order.
func NewMatchChain(initiatorID string, edges []SkillEdge) (*MatchChain, error) {
	chain := &MatchChain{
		ID:          uuid.NewString(),
		Status:      ChainProposed,
		InitiatorID: initiatorID,
		Links:       make([]MatchChainLink, 0, len(edges)),
	}
	for i, e := range edges {
		chain.Links = append(chain.Links, MatchChainLink{
			ID:         uuid.NewString(),
			ChainID:    chain.ID,
			Position:   i,
			GiverID:    e.GiverID,
			ReceiverID: e.ReceiverID,
			CategoryID: e.CategoryID,
		})
	}
	if err := chain.Validate(); err != nil {
		return nil, err
	}
	chain.RefreshKeys()
	return chain, nil
}

// Validate checks that the links form a closed simple cycle of allowed length.
func (c *MatchChain) Validate() error {
	n := len(c.Links)
	if n < MinChainLength || n > MaxChainLength {
		return fmt.Errorf("%w: length %d", ErrInvalidChain, n)
	}
	seen := make(map[string]struct{}, n)
	for i, link := range c.Links {
		if link.Position != i {
			return fmt.Errorf("%w: link %d has position %d", ErrInvalidChain, i, link.Position)
		}
		if link.GiverID == link.ReceiverID {
			return fmt.Errorf("%w: self link at position %d", ErrInvalidChain, i)
		}
		if _, dup := seen[link.GiverID]; dup {
			return fmt.Errorf("%w: participant %s repeats", ErrInvalidChain, link.GiverID)
		}
		seen[link.GiverID] = struct{}{}
		next := c.Links[(i+1)%n]
		if link.ReceiverID != next.GiverID {
			return fmt.Errorf("%w: link %d does not close into link %d", ErrInvalidChain, i, (i+1)%n)
		}
	}
	return nil
}

// CanTransition reports whether the state machine allows moving to next.
func (c *MatchChain) CanTransition(next ChainStatus) bool {
	for _, allowed := range chainTransitions[c.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the chain to next or returns ErrInvalidTransition.
func (c *MatchChain) TransitionTo(next ChainStatus) error {
	if !c.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, next)
	}
	c.Status = next
	return nil
}

// Participants returns the givers in link order.
func (c *MatchChain) Participants() []string {
	ids := make([]string, 0, len(c.Links))
	for _, link := range c.Links {
		ids = append(ids, link.GiverID)
	}
	return ids
}

func (c *MatchChain) HasParticipant(userID string) bool {
	for _, link := range c.Links {
		if link.GiverID == userID || link.ReceiverID == userID {
			return true
		}
	}
	return false
}

// IncomingLink returns the link where userID receives.
func (c *MatchChain) IncomingLink(userID string) *MatchChainLink {
	for i := range c.Links {
		if c.Links[i].ReceiverID == userID {
			return &c.Links[i]
		}
	}
	return nil
}

// OutgoingLink returns the link where userID gives.
func (c *MatchChain) OutgoingLink(userID string) *MatchChainLink {
	for i := range c.Links {
		if c.Links[i].GiverID == userID {
			return &c.Links[i]
		}
	}
	return nil
}

func (c *MatchChain) AllConfirmed() bool {
	for _, link := range c.Links {
		if !link.GiverConfirmed || !link.ReceiverConfirmed {
			return false
		}
	}
	return len(c.Links) > 0
}

func (c *MatchChain) AllCompleted() bool {
	for _, link := range c.Links {
		if !link.GiverCompleted || !link.ReceiverCompleted {
			return false
		}
	}
	return len(c.Links) > 0
}

func (c *MatchChain) Edges() []SkillEdge {
	edges := make([]SkillEdge, 0, len(c.Links))
	for _, link := range c.Links {
		edges = append(edges, SkillEdge{GiverID: link.GiverID, ReceiverID: link.ReceiverID, CategoryID: link.CategoryID})
	}
	return edges
}

// RefreshKeys recomputes CycleKey and ParticipantKey from the links.
func (c *MatchChain) RefreshKeys() {
	c.CycleKey = CycleKey(c.Edges())
	c.ParticipantKey = ParticipantKey(c.Participants())
}

// Clone returns a deep copy so callers can stage changes without touching c.
func (c *MatchChain) Clone() *MatchChain {
	cp := *c
	cp.Links = make([]MatchChainLink, len(c.Links))
	copy(cp.Links, c.Links)
	for i := range cp.Links {
		if terms := cp.Links[i].OfferTerms; terms != nil {
			t := *terms
			cp.Links[i].OfferTerms = &t
		}
	}
	return &cp
}

// LinkStage names a pair of per-side link flags.
type LinkStage string

const (
	StageConfirmed LinkStage = "confirmed"
	StageCompleted LinkStage = "completed"
)

// MarkSides sets the stage flag on every side userID occupies and reports
// whether any link matched.
func (c *MatchChain) MarkSides(userID string, stage LinkStage) bool {
	marked := false
	for i := range c.Links {
		link := &c.Links[i]
		if link.GiverID == userID {
			if stage == StageConfirmed {
				link.GiverConfirmed = true
			} else {
				link.GiverCompleted = true
			}
			marked = true
		}
		if link.ReceiverID == userID {
			if stage == StageConfirmed {
				link.ReceiverConfirmed = true
			} else {
				link.ReceiverCompleted = true
			}
			marked = true
		}
	}
	return marked
}

// Reset clears every per-side flag and the offer terms of a link.
func (l *MatchChainLink) Reset() {
	l.GiverConfirmed = false
	l.ReceiverConfirmed = false
	l.GiverCompleted = false
	l.ReceiverCompleted = false
	l.OfferTerms = nil
}

// ParticipantKey is the sorted set of unique user ids joined by commas.
func ParticipantKey(ids []string) string {
	set := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := set[id]; ok {
			continue
		}
		set[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Strings(unique)
	return strings.Join(unique, ",")
}

// CycleKey hashes the cycle's (giver, category) sequence after rotating it so
// the smallest giver id comes first. Rotations of one cycle share a key.
func CycleKey(edges []SkillEdge) string {
	if len(edges) == 0 {
		return ""
	}
	start := 0
	for i, e := range edges {
		if e.GiverID < edges[start].GiverID {
			start = i
		}
	}
	var sb strings.Builder
	for i := range edges {
		e := edges[(start+i)%len(edges)]
		if i > 0 {
			sb.WriteByte('|')
		}
		fmt.Fprintf(&sb, "%s:%d", e.GiverID, e.CategoryID)
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
