package cluster

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/graph"
	"github.com/gdugdh24/handshake-backend/internal/infrastructure/metrics"
	"github.com/gdugdh24/handshake-backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Caller is who asks for the cluster list.
type Caller struct {
	UserID     string
	Privileged bool
}

type Config struct {
	// MinMembersExclusive hides components with this many live members or fewer.
	MinMembersExclusive int
}

type ClusterUseCase struct {
	userRepo       repository.UserRepository
	connectionRepo repository.ConnectionRepository
	log            *zap.Logger
	cfg            Config
	group          singleflight.Group
}

func NewClusterUseCase(
	userRepo repository.UserRepository,
	connectionRepo repository.ConnectionRepository,
	log *zap.Logger,
	cfg Config,
) *ClusterUseCase {
	return &ClusterUseCase{
		userRepo:       userRepo,
		connectionRepo: connectionRepo,
		log:            log,
		cfg:            cfg,
	}
}

type component struct {
	cluster domain.Cluster
	members map[string]struct{}
}

type snapshot struct {
	components []component
	// live users without any connection
	singletons []*domain.User
}

// List returns the components visible to caller, largest first.
func (uc *ClusterUseCase) List(ctx context.Context, caller Caller) ([]domain.Cluster, error) {
	v, err, shared := uc.group.Do("clusters", func() (interface{}, error) {
		return uc.compute(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	if shared {
		uc.log.Debug("cluster computation shared")
	}
	snap := v.(*snapshot)

	clusters := []domain.Cluster{}
	for _, comp := range snap.components {
		if comp.cluster.MemberCount <= uc.cfg.MinMembersExclusive {
			continue
		}
		c := comp.cluster
		_, c.IsCallerMember = comp.members[caller.UserID]
		clusters = append(clusters, c)
	}
	if caller.Privileged {
		for _, u := range snap.singletons {
			clusters = append(clusters, domain.Cluster{
				RepresentativeID: u.ID,
				MemberCount:      1,
				AggregateValue:   u.Budget,
				IsCallerMember:   u.ID == caller.UserID,
			})
		}
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].MemberCount != clusters[j].MemberCount {
			return clusters[i].MemberCount > clusters[j].MemberCount
		}
		return clusters[i].RepresentativeID < clusters[j].RepresentativeID
	})
	return clusters, nil
}

func (uc *ClusterUseCase) compute(ctx context.Context) (*snapshot, error) {
	start := time.Now()
	defer func() { metrics.ClusterComputeDuration.Observe(time.Since(start).Seconds()) }()

	conns, err := uc.connectionRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}
	users, err := uc.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	byID := make(map[string]*domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	uf := graph.NewUnionFind()
	for _, c := range conns {
		uf.Union(c.UserA, c.UserB)
	}
	adj := graph.NewAdjacency(conns)
	liveDegree := func(id string) int {
		n := 0
		for _, v := range adj[id] {
			if byID[v].IsLive() {
				n++
			}
		}
		return n
	}

	snap := &snapshot{}
	for _, ids := range uf.Components() {
		comp := component{members: make(map[string]struct{}, len(ids))}
		var rep *domain.User
		for _, id := range ids {
			comp.members[id] = struct{}{}
			u := byID[id]
			if !u.IsLive() {
				continue
			}
			comp.cluster.MemberCount++
			comp.cluster.AggregateValue += u.Budget
			if rep == nil || outranks(u, rep, liveDegree) {
				rep = u
			}
		}
		if rep == nil {
			continue
		}
		comp.cluster.RepresentativeID = rep.ID
		snap.components = append(snap.components, comp)
	}

	for _, u := range users {
		if u.IsLive() && !uf.Contains(u.ID) {
			snap.singletons = append(snap.singletons, u)
		}
	}

	uc.log.Debug("clusters computed",
		zap.Int("components", len(snap.components)),
		zap.Int("singletons", len(snap.singletons)),
	)
	return snap, nil
}

// outranks orders representatives by live degree, then earliest account, then id.
func outranks(u, current *domain.User, degree func(id string) int) bool {
	du, dc := degree(u.ID), degree(current.ID)
	if du != dc {
		return du > dc
	}
	if !u.CreatedAt.Equal(current.CreatedAt) {
		return u.CreatedAt.Before(current.CreatedAt)
	}
	return u.ID < current.ID
}
