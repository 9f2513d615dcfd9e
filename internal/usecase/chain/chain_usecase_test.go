package chain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/eventbus"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/gemini"
	"github.com/gdugdh24/handshake-backend/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	catPlumbing int64 = 1
	catTutoring int64 = 2
	catCooking  int64 = 5
	catGarden   int64 = 6
)

type fixture struct {
	store *memory.Store
	rec   *eventbus.Recorder
	uc    *ChainUseCase
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store := memory.NewStore()
	for _, c := range []domain.SkillCategory{
		{ID: catPlumbing, Name: "Plumbing", IsOnline: true},
		{ID: catTutoring, Name: "Tutoring", IsOnline: true},
		{ID: catCooking, Name: "Cooking", IsOnline: true},
		{ID: catGarden, Name: "Gardening", IsOnline: true},
	} {
		store.AddCategory(c)
	}
	rec := &eventbus.Recorder{}
	uc := NewChainUseCase(
		store.UserRepository(),
		store.ConnectionRepository(),
		store.SkillRepository(),
		store.ChainRepository(),
		rec,
		gemini.TemplateNarrator{},
		zap.NewNop(),
		cfg,
	)
	return &fixture{store: store, rec: rec, uc: uc}
}

func (f *fixture) user(id, name string, has, needs int64) {
	f.store.AddUser(&domain.User{ID: id, DisplayName: name, CreatedAt: time.Now()})
	f.store.AddSkill(id, has, domain.SkillHas)
	f.store.AddSkill(id, needs, domain.SkillNeeds)
}

// pairChain stores a PROPOSED a<->b chain: a gives plumbing, b gives tutoring.
func (f *fixture) pairChain(t *testing.T, a, b string) *domain.MatchChain {
	t.Helper()
	chain, err := domain.NewMatchChain(a, []domain.SkillEdge{
		{GiverID: a, ReceiverID: b, CategoryID: catPlumbing},
		{GiverID: b, ReceiverID: a, CategoryID: catTutoring},
	})
	require.NoError(t, err)
	require.NoError(t, f.store.ChainRepository().Create(context.Background(), chain))
	return chain
}

func TestDiscover_CreatesPairChain(t *testing.T) {
	f := newFixture(t, Config{MaxNewPerRun: 3})
	f.user("a", "Anna", catPlumbing, catTutoring)
	f.user("b", "Boris", catTutoring, catPlumbing)
	f.store.Connect("a", "b")

	created, err := f.uc.Discover(context.Background(), "a")

	require.NoError(t, err)
	require.Len(t, created, 1)
	chain := created[0]
	assert.Equal(t, domain.ChainProposed, chain.Status)
	assert.Equal(t, "a", chain.InitiatorID)
	assert.Equal(t, "a,b", chain.ParticipantKey)
	assert.Equal(t, []string{"a", "b"}, chain.Participants())
	assert.NotNil(t, f.store.Chain(chain.ID))

	events := f.rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventChainProposed, events[0].Type)
	assert.Equal(t, "Exchange of 2: Anna -> Boris: Plumbing; Boris -> Anna: Tutoring.", events[0].Payload["summary"])

	again, err := f.uc.Discover(context.Background(), "b")
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestDiscover_TriangleThroughIntermediary(t *testing.T) {
	f := newFixture(t, Config{MaxNewPerRun: 3})
	f.user("a", "Anna", catPlumbing, catCooking)
	f.user("b", "Boris", catTutoring, catPlumbing)
	f.user("c", "Chen", catCooking, catTutoring)
	f.store.Connect("a", "b")
	f.store.Connect("b", "c")

	created, err := f.uc.Discover(context.Background(), "c")

	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Len(t, created[0].Links, 3)
	assert.Equal(t, "a,b,c", created[0].ParticipantKey)
}

func TestDiscover_CapsNewChainsPerRun(t *testing.T) {
	f := newFixture(t, Config{MaxNewPerRun: 3})
	f.user("s", "Seed", catPlumbing, catTutoring)
	for _, id := range []string{"u1", "u2", "u3", "u4", "u5"} {
		f.user(id, id, catTutoring, catPlumbing)
		f.store.Connect("s", id)
	}
	ctx := context.Background()

	first, err := f.uc.Discover(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, first, 3)

	second, err := f.uc.Discover(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, second, 2)

	third, err := f.uc.Discover(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, third)
	assert.Len(t, f.store.Chains(), 5)
}

func TestDiscover_PrefersCyclesThroughSeed(t *testing.T) {
	f := newFixture(t, Config{MaxNewPerRun: 1})
	f.user("s", "Seed", catPlumbing, catTutoring)
	f.user("p", "Pia", catTutoring, catPlumbing)
	f.user("q", "Quinn", catCooking, catGarden)
	f.user("r", "Rosa", catGarden, catCooking)
	f.store.Connect("s", "p")
	f.store.Connect("p", "q")
	f.store.Connect("q", "r")

	created, err := f.uc.Discover(context.Background(), "s")

	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "p,s", created[0].ParticipantKey)
}

func TestDiscover_IgnoresConcurrentDuplicate(t *testing.T) {
	f := newFixture(t, Config{MaxNewPerRun: 3})
	f.user("a", "Anna", catPlumbing, catTutoring)
	f.user("b", "Boris", catTutoring, catPlumbing)
	f.store.Connect("a", "b")
	f.store.FailOn("chains.Create", domain.ErrDuplicate)

	created, err := f.uc.Discover(context.Background(), "a")

	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, f.rec.Events())
}

func TestDiscover_UnknownSeed(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.uc.Discover(context.Background(), "ghost")

	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLifecycle_ConfirmThenComplete(t *testing.T) {
	f := newFixture(t, Config{})
	f.user("a", "Anna", catPlumbing, catTutoring)
	f.user("b", "Boris", catTutoring, catPlumbing)
	chain := f.pairChain(t, "a", "b")
	ctx := context.Background()

	_, err := f.uc.Complete(ctx, chain.ID, "a")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := f.uc.Confirm(ctx, chain.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.ChainProposed, got.Status)
	assert.True(t, got.Links[0].GiverConfirmed)
	assert.True(t, got.Links[1].ReceiverConfirmed)
	assert.False(t, got.Links[0].ReceiverConfirmed)

	got, err = f.uc.Confirm(ctx, chain.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, domain.ChainActive, got.Status)
	assert.Equal(t, domain.ChainActive, f.store.Chain(chain.ID).Status)

	_, err = f.uc.Confirm(ctx, chain.ID, "b")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err = f.uc.Complete(ctx, chain.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, domain.ChainActive, got.Status)

	got, err = f.uc.Complete(ctx, chain.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.ChainCompleted, got.Status)

	_, err = f.uc.Cancel(ctx, chain.ID, "a")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Equal(t, []domain.EventType{domain.EventChainActivated, domain.EventChainCompleted}, f.rec.Types())
}

func TestLifecycle_AccessErrors(t *testing.T) {
	f := newFixture(t, Config{})
	chain := f.pairChain(t, "a", "b")
	ctx := context.Background()

	_, err := f.uc.Confirm(ctx, chain.ID, "outsider")
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	_, err = f.uc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrChainNotFound)

	_, err = f.uc.Decline(ctx, "missing", "a")
	assert.ErrorIs(t, err, domain.ErrChainNotFound)
}

func TestDecline_SplicesInReplacement(t *testing.T) {
	f := newFixture(t, Config{})
	f.user("a", "Anna", catPlumbing, catTutoring)
	f.user("b", "Boris", catTutoring, catPlumbing)
	f.user("d", "Dana", catTutoring, catPlumbing)
	f.user("c", "Chen", catTutoring, catPlumbing)
	f.store.Connect("a", "b")
	f.store.Connect("b", "c")
	f.store.Connect("c", "d")
	chain := f.pairChain(t, "a", "b")
	ctx := context.Background()
	_, err := f.uc.Confirm(ctx, chain.ID, "a")
	require.NoError(t, err)

	got, err := f.uc.Decline(ctx, chain.ID, "b")

	require.NoError(t, err)
	assert.Equal(t, domain.ChainProposed, got.Status)
	assert.Equal(t, []string{"a", "c"}, got.Participants())
	assert.Equal(t, "a,c", got.ParticipantKey)
	for _, link := range got.Links {
		assert.False(t, link.GiverConfirmed)
		assert.False(t, link.ReceiverConfirmed)
	}

	stored := f.store.Chain(chain.ID)
	assert.Equal(t, domain.ChainProposed, stored.Status)
	assert.Equal(t, "c", stored.Links[0].ReceiverID)
	assert.Equal(t, "c", stored.Links[1].GiverID)

	events := f.rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventChainRepaired, events[0].Type)
	assert.Equal(t, "c", events[0].Payload["replacement"])
}

func TestDecline_LostSpliceRaceCancelsStoredChain(t *testing.T) {
	f := newFixture(t, Config{})
	f.user("a", "Anna", catPlumbing, catTutoring)
	f.user("b", "Boris", catTutoring, catPlumbing)
	f.user("c", "Chen", catTutoring, catPlumbing)
	f.store.Connect("a", "b")
	f.store.Connect("b", "c")
	chain := f.pairChain(t, "a", "b")
	f.store.FailOn("chains.ReplaceParticipant", domain.ErrDuplicate)

	got, err := f.uc.Decline(context.Background(), chain.ID, "b")

	require.NoError(t, err)
	stored := f.store.Chain(chain.ID)
	assert.Equal(t, domain.ChainCancelled, got.Status)
	assert.Equal(t, domain.ChainCancelled, stored.Status)
	assert.Equal(t, []string{"a", "b"}, got.Participants())
	assert.Equal(t, stored.Participants(), got.Participants())
	assert.Equal(t, "a,b", got.ParticipantKey)
	assert.Equal(t, stored.ParticipantKey, got.ParticipantKey)

	events := f.rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventChainCancelled, events[0].Type)
	assert.Equal(t, []string{"a", "b"}, events[0].Payload["participants"])
	assert.Equal(t, "b", events[0].Payload["declined_by"])
}

func TestConfirm_ConcurrentParticipantsKeepBothFlags(t *testing.T) {
	f := newFixture(t, Config{})
	chain := f.pairChain(t, "a", "b")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"a", "b"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.uc.Confirm(ctx, chain.ID, id)
		}(i, id)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	stored := f.store.Chain(chain.ID)
	assert.True(t, stored.AllConfirmed())
	assert.Equal(t, domain.ChainActive, stored.Status)
}

func TestConfirm_StaleParticipantAfterSplice(t *testing.T) {
	f := newFixture(t, Config{})
	f.user("a", "Anna", catPlumbing, catTutoring)
	f.user("b", "Boris", catTutoring, catPlumbing)
	f.user("c", "Chen", catTutoring, catPlumbing)
	f.store.Connect("a", "b")
	f.store.Connect("b", "c")
	chain := f.pairChain(t, "a", "b")
	ctx := context.Background()

	_, err := f.uc.Decline(ctx, chain.ID, "b")
	require.NoError(t, err)

	_, err = f.uc.Confirm(ctx, chain.ID, "b")
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
	assert.ErrorIs(t, f.store.ChainRepository().MarkSides(ctx, chain.ID, "b", domain.StageConfirmed), domain.ErrLinkNotFound)
	assert.Equal(t, []string{"a", "c"}, f.store.Chain(chain.ID).Participants())
}

func TestFindReplacement_Filters(t *testing.T) {
	f := newFixture(t, Config{})
	deleted := time.Now()
	f.user("a", "Anna", catPlumbing, catTutoring)
	f.user("b", "Boris", catTutoring, catPlumbing)
	f.user("c", "Chen", catTutoring, catPlumbing)
	f.user("d", "Dana", catTutoring, catPlumbing)
	f.user("e", "Eve", catTutoring, catPlumbing)
	f.user("z", "Zed", catTutoring, catPlumbing)
	f.store.AddUser(&domain.User{ID: "c", DeletedAt: &deleted})
	f.store.Connect("a", "b")
	f.store.Connect("a", "c")
	f.store.Connect("a", "d")
	f.store.Connect("a", "e")
	// z is outside a's network.

	chain := f.pairChain(t, "a", "b")
	// an open chain already covers {a, d}
	f.pairChain(t, "d", "a")
	require.NoError(t, f.store.ChainRepository().UpdateStatus(context.Background(), chain.ID, domain.ChainBroken))

	got, err := f.uc.findReplacement(context.Background(), f.store.Chain(chain.ID), "b")

	require.NoError(t, err)
	assert.Equal(t, "e", got)
}

func TestDecline_CancelsWithoutReplacement(t *testing.T) {
	f := newFixture(t, Config{})
	f.user("a", "Anna", catPlumbing, catTutoring)
	f.user("b", "Boris", catTutoring, catPlumbing)
	f.store.Connect("a", "b")
	chain := f.pairChain(t, "a", "b")

	got, err := f.uc.Decline(context.Background(), chain.ID, "a")

	require.NoError(t, err)
	assert.Equal(t, domain.ChainCancelled, got.Status)
	assert.Equal(t, domain.ChainCancelled, f.store.Chain(chain.ID).Status)
	assert.Equal(t, []domain.EventType{domain.EventChainCancelled}, f.rec.Types())
}

func TestDecline_TerminalChain(t *testing.T) {
	f := newFixture(t, Config{})
	chain := f.pairChain(t, "a", "b")
	_, err := f.uc.Cancel(context.Background(), chain.ID, "b")
	require.NoError(t, err)

	_, err = f.uc.Decline(context.Background(), chain.ID, "a")

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDecline_RepositoryFailure(t *testing.T) {
	f := newFixture(t, Config{})
	chain := f.pairChain(t, "a", "b")
	f.store.FailOn("skills.Candidates", errors.New("db down"))

	_, err := f.uc.Decline(context.Background(), chain.ID, "a")

	assert.Error(t, err)
	assert.Equal(t, domain.ChainBroken, f.store.Chain(chain.ID).Status)
}

func TestSetOfferTerms(t *testing.T) {
	f := newFixture(t, Config{})
	chain := f.pairChain(t, "a", "b")
	ctx := context.Background()

	got, err := f.uc.SetOfferTerms(ctx, chain.ID, "a", 0, "  two hours on Saturday ")
	require.NoError(t, err)
	require.NotNil(t, got.Links[0].OfferTerms)
	assert.Equal(t, "two hours on Saturday", *got.Links[0].OfferTerms)
	assert.Equal(t, "two hours on Saturday", *f.store.Chain(chain.ID).Links[0].OfferTerms)

	_, err = f.uc.SetOfferTerms(ctx, chain.ID, "b", 0, "mine")
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	_, err = f.uc.SetOfferTerms(ctx, chain.ID, "a", 7, "x")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)

	got, err = f.uc.SetOfferTerms(ctx, chain.ID, "a", 0, " ")
	require.NoError(t, err)
	assert.Nil(t, got.Links[0].OfferTerms)
}
