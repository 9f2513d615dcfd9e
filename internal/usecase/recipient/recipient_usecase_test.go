package recipient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/eventbus"
	"github.com/gdugdh24/handshake-backend/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// line: a - b - c - d - e
func newLine(t *testing.T) (*memory.Store, *eventbus.Recorder, *RecipientUseCase) {
	t.Helper()
	store := memory.NewStore()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		store.AddUser(&domain.User{ID: id})
	}
	store.Connect("a", "b")
	store.Connect("b", "c")
	store.Connect("c", "d")
	store.Connect("d", "e")

	rec := &eventbus.Recorder{}
	uc := NewRecipientUseCase(
		store.UserRepository(),
		store.ConnectionRepository(),
		store.NotificationRepository(),
		rec,
		zap.NewNop(),
		Config{MaxDepth: 2, MaxRecipients: 50, NotificationTTL: 72 * time.Hour},
	)
	uc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return store, rec, uc
}

func userIDs(n []*domain.Notification) []string {
	ids := make([]string, 0, len(n))
	for _, x := range n {
		ids = append(ids, x.UserID)
	}
	return ids
}

func TestResolve_DepthAndPaths(t *testing.T) {
	_, _, uc := newLine(t)

	reached, err := uc.Resolve(context.Background(), ResolveRequest{SeedID: "a", MaxDepth: 3})

	require.NoError(t, err)
	require.Len(t, reached, 3)
	assert.Equal(t, "d", reached[2].UserID)
	assert.Equal(t, 3, reached[2].Depth)
	assert.Equal(t, []string{"a", "b", "c", "d"}, reached[2].Path)
}

func TestResolve_ExcludedUserStillTransits(t *testing.T) {
	_, _, uc := newLine(t)

	reached, err := uc.Resolve(context.Background(), ResolveRequest{SeedID: "a", Exclude: []string{"b"}})

	require.NoError(t, err)
	require.Len(t, reached, 3)
	assert.Equal(t, "c", reached[0].UserID)
	assert.Equal(t, []string{"a", "b", "c"}, reached[0].Path)
}

func TestResolve_DeletedUserFilteredButTransits(t *testing.T) {
	store, _, uc := newLine(t)
	deleted := time.Now()
	store.AddUser(&domain.User{ID: "b", DeletedAt: &deleted})

	reached, err := uc.Resolve(context.Background(), ResolveRequest{SeedID: "a", MaxDepth: 2})

	require.NoError(t, err)
	require.Len(t, reached, 1)
	assert.Equal(t, "c", reached[0].UserID)
}

func TestResolve_Validation(t *testing.T) {
	_, _, uc := newLine(t)

	_, err := uc.Resolve(context.Background(), ResolveRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Resolve(context.Background(), ResolveRequest{SeedID: "a", MaxDepth: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResolve_UnknownSeed(t *testing.T) {
	_, _, uc := newLine(t)

	reached, err := uc.Resolve(context.Background(), ResolveRequest{SeedID: "nobody"})

	require.NoError(t, err)
	assert.Empty(t, reached)
}

func TestResolve_RepositoryError(t *testing.T) {
	store, _, uc := newLine(t)
	store.FailOn("connections.All", errors.New("db down"))

	_, err := uc.Resolve(context.Background(), ResolveRequest{SeedID: "a"})

	assert.Error(t, err)
}

func TestDispatchHelpRequest_FirstWave(t *testing.T) {
	store, rec, uc := newLine(t)

	res, err := uc.DispatchHelpRequest(context.Background(), HelpRequest{CollectionID: "col-1", AuthorID: "a"})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Wave)
	assert.Equal(t, []string{"b", "c"}, userIDs(res.Notifications))
	assert.Equal(t, domain.NotificationHelpRequest, res.Notifications[0].Type)
	assert.Equal(t, time.Date(2026, 1, 5, 3, 4, 5, 0, time.UTC), res.Notifications[0].ExpiresAt)
	assert.Equal(t, []string{"a", "b", "c"}, []string(res.Notifications[1].Path))
	assert.Len(t, store.Notifications(), 2)
	assert.Equal(t, []domain.EventType{domain.EventNotificationCreated, domain.EventNotificationCreated}, rec.Types())
}

func TestDispatchHelpRequest_LaterWavesSkipNotifiedUsers(t *testing.T) {
	store, _, uc := newLine(t)
	uc.cfg.MaxRecipients = 1
	ctx := context.Background()
	req := HelpRequest{CollectionID: "col-1", AuthorID: "a"}

	first, err := uc.DispatchHelpRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Wave)
	assert.Equal(t, []string{"b"}, userIDs(first.Notifications))

	second, err := uc.DispatchHelpRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Wave)
	assert.Equal(t, []string{"c"}, userIDs(second.Notifications))

	// d is beyond the depth bound.
	third, err := uc.DispatchHelpRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 3, third.Wave)
	assert.Empty(t, third.Notifications)

	other, err := uc.DispatchHelpRequest(ctx, HelpRequest{CollectionID: "col-2", AuthorID: "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, other.Wave)
	assert.Equal(t, []string{"b"}, userIDs(other.Notifications))
	assert.Len(t, store.Notifications(), 3)
}

func TestDispatchHelpRequest_RespectsRecipientCap(t *testing.T) {
	_, _, uc := newLine(t)
	uc.cfg.MaxRecipients = 1

	res, err := uc.DispatchHelpRequest(context.Background(), HelpRequest{CollectionID: "col-1", AuthorID: "c"})

	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, userIDs(res.Notifications))
}

func TestDispatchHelpRequest_PublishFailureDoesNotRollBack(t *testing.T) {
	store, rec, uc := newLine(t)
	rec.Err = errors.New("stream unavailable")

	res, err := uc.DispatchHelpRequest(context.Background(), HelpRequest{CollectionID: "col-1", AuthorID: "a"})

	require.NoError(t, err)
	assert.Len(t, res.Notifications, 2)
	assert.Len(t, store.Notifications(), 2)
}

func TestDispatchHelpRequest_CreateError(t *testing.T) {
	store, _, uc := newLine(t)
	store.FailOn("notifications.Create", errors.New("insert failed"))

	_, err := uc.DispatchHelpRequest(context.Background(), HelpRequest{CollectionID: "col-1", AuthorID: "a"})

	assert.Error(t, err)
}

func TestDispatchHelpRequest_Validation(t *testing.T) {
	_, _, uc := newLine(t)

	_, err := uc.DispatchHelpRequest(context.Background(), HelpRequest{AuthorID: "a"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPruneExpired(t *testing.T) {
	store, _, uc := newLine(t)
	_, err := uc.DispatchHelpRequest(context.Background(), HelpRequest{CollectionID: "col-1", AuthorID: "a"})
	require.NoError(t, err)

	uc.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	removed, err := uc.PruneExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Empty(t, store.Notifications())
}
