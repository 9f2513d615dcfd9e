package graph

import (
	"sort"

	"github.com/gdugdh24/handshake-backend/internal/domain"
)

// Adjacency is the undirected handshake graph with neighbour lists sorted by id.
type Adjacency map[string][]string

// NewAdjacency builds the adjacency lists for the given connections.
// Self loops and repeated pairs are ignored.
func NewAdjacency(connections []domain.Connection) Adjacency {
	seen := make(map[[2]string]struct{}, len(connections))
	adj := make(Adjacency)
	for _, c := range connections {
		a, b := c.UserA, c.UserB
		if a == b || a == "" || b == "" {
			continue
		}
		if a > b {
			a, b = b, a
		}
		key := [2]string{a, b}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	for id := range adj {
		sort.Strings(adj[id])
	}
	return adj
}

// Degree returns the number of distinct neighbours of id.
func (a Adjacency) Degree(id string) int {
	return len(a[id])
}

// Reach is a user found by BFS with its shortest hop distance and one
// shortest path from the seed (seed first, user last).
type Reach struct {
	UserID string   `json:"user_id"`
	Depth  int      `json:"depth"`
	Path   []string `json:"path"`
}

type BFSOptions struct {
	// MaxDepth <= 0 means unbounded.
	MaxDepth int
	// MaxResults <= 0 means unbounded.
	MaxResults int
	Exclude    map[string]struct{}
	// IsLive filters emitted users. Nil treats everyone as live.
	IsLive func(userID string) bool
}

// BFS walks the graph layer by layer from seed. Users are emitted the first
// time they are discovered, which is their minimum depth. Excluded and
// non-live users are filtered at emission but still act as transit hops.
// Frontiers, neighbours and each layer's emissions are ordered by id, so
// truncation by MaxResults keeps the lowest ids of the last layer reached.
func (a Adjacency) BFS(seed string, opts BFSOptions) []Reach {
	result := []Reach{}
	if _, ok := a[seed]; !ok {
		return result
	}

	parent := map[string]string{seed: ""}
	frontier := []string{seed}

	for depth := 1; len(frontier) > 0; depth++ {
		if opts.MaxDepth > 0 && depth > opts.MaxDepth {
			break
		}

		var next []string
		for _, u := range frontier {
			for _, v := range a[u] {
				if _, visited := parent[v]; visited {
					continue
				}
				parent[v] = u
				next = append(next, v)
			}
		}
		sort.Strings(next)

		for _, v := range next {
			if _, excluded := opts.Exclude[v]; excluded {
				continue
			}
			if opts.IsLive != nil && !opts.IsLive(v) {
				continue
			}
			result = append(result, Reach{UserID: v, Depth: depth, Path: pathTo(parent, v, depth)})
			if opts.MaxResults > 0 && len(result) >= opts.MaxResults {
				return result
			}
		}
		frontier = next
	}

	return result
}

// Component returns every user reachable from seed, seed included,
// regardless of exclusion or liveness.
func (a Adjacency) Component(seed string) map[string]struct{} {
	members := map[string]struct{}{seed: {}}
	queue := []string{seed}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range a[u] {
			if _, ok := members[v]; ok {
				continue
			}
			members[v] = struct{}{}
			queue = append(queue, v)
		}
	}
	return members
}

func pathTo(parent map[string]string, target string, depth int) []string {
	path := make([]string, depth+1)
	node := target
	for i := depth; i >= 0; i-- {
		path[i] = node
		node = parent[node]
	}
	return path
}
