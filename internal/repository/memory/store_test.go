package memory

import (
	"context"
	"testing"
	"time"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionRepository_Canonical(t *testing.T) {
	s := NewStore()
	repo := s.ConnectionRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.Connection{UserA: "b", UserB: "a"}))
	assert.ErrorIs(t, repo.Create(ctx, domain.Connection{UserA: "a", UserB: "b"}), domain.ErrDuplicate)
	assert.ErrorIs(t, repo.Create(ctx, domain.Connection{UserA: "a", UserB: "a"}), domain.ErrSelfConnection)

	conns, err := repo.ForUser(ctx, "b")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "a", conns[0].UserA)
}

func TestChainRepository_ActiveParticipantKeyIsUnique(t *testing.T) {
	s := NewStore()
	repo := s.ChainRepository()
	ctx := context.Background()
	edges := []domain.SkillEdge{{GiverID: "a", ReceiverID: "b", CategoryID: 1}, {GiverID: "b", ReceiverID: "a", CategoryID: 2}}

	first, err := domain.NewMatchChain("a", edges)
	require.NoError(t, err)
	second, err := domain.NewMatchChain("b", edges)
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, second), domain.ErrDuplicate)

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, domain.ChainCancelled))
	assert.NoError(t, repo.Create(ctx, second))
}

func TestChainRepository_MarkSidesKeepsOtherWrites(t *testing.T) {
	s := NewStore()
	repo := s.ChainRepository()
	ctx := context.Background()
	chain, err := domain.NewMatchChain("a", []domain.SkillEdge{
		{GiverID: "a", ReceiverID: "b", CategoryID: 1},
		{GiverID: "b", ReceiverID: "a", CategoryID: 2},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, chain))

	// both participants act on the same snapshot
	require.NoError(t, repo.MarkSides(ctx, chain.ID, "a", domain.StageConfirmed))
	require.NoError(t, repo.MarkSides(ctx, chain.ID, "b", domain.StageConfirmed))

	stored := s.Chain(chain.ID)
	assert.True(t, stored.AllConfirmed())

	// b was spliced out before their stale write arrived
	spliced := stored.Clone()
	spliced.Links[0].ReceiverID = "c"
	spliced.Links[1].GiverID = "c"
	spliced.Links[0].Reset()
	spliced.Links[1].Reset()
	spliced.RefreshKeys()
	require.NoError(t, repo.ReplaceParticipant(ctx, spliced, &spliced.Links[0], &spliced.Links[1]))

	assert.ErrorIs(t, repo.MarkSides(ctx, chain.ID, "b", domain.StageCompleted), domain.ErrLinkNotFound)
	assert.ErrorIs(t, repo.SetOfferTerms(ctx, chain.ID, 1, "b", nil), domain.ErrLinkNotFound)
	after := s.Chain(chain.ID)
	assert.Equal(t, []string{"a", "c"}, after.Participants())
	assert.False(t, after.Links[1].GiverCompleted)
}

func TestNotificationRepository_WavesAndExpiry(t *testing.T) {
	s := NewStore()
	repo := s.NotificationRepository()
	ctx := context.Background()
	now := time.Now()

	n := &domain.Notification{ID: "n1", UserID: "u1", CollectionID: "c", Type: domain.NotificationHelpRequest, Wave: 1, ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, repo.Create(ctx, n))
	dup := *n
	dup.ID = "n2"
	assert.ErrorIs(t, repo.Create(ctx, &dup), domain.ErrDuplicate)
	require.NoError(t, repo.Create(ctx, &domain.Notification{ID: "n3", UserID: "u2", CollectionID: "c", Type: domain.NotificationHelpRequest, Wave: 2, ExpiresAt: now.Add(time.Hour)}))

	wave, err := repo.MaxWave(ctx, "c", domain.NotificationHelpRequest)
	require.NoError(t, err)
	assert.Equal(t, 2, wave)

	removed, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	users, err := repo.NotifiedUsers(ctx, "c", domain.NotificationHelpRequest)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, users)
}

func TestSkillRepository_CandidatesSkipDeleted(t *testing.T) {
	s := NewStore()
	deleted := time.Now()
	s.AddUser(&domain.User{ID: "x"})
	s.AddUser(&domain.User{ID: "y", DeletedAt: &deleted})
	for _, id := range []string{"x", "y"} {
		s.AddSkill(id, 1, domain.SkillNeeds)
		s.AddSkill(id, 2, domain.SkillHas)
	}

	ids, err := s.SkillRepository().Candidates(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids)
}
