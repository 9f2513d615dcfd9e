package graph

import (
	"context"
	"sort"

	"github.com/gdugdh24/handshake-backend/internal/domain"
)

// Cycle is a closed sequence of skill edges: each receiver gives in the next edge.
type Cycle []domain.SkillEdge

func (c Cycle) Participants() []string {
	ids := make([]string, 0, len(c))
	for _, e := range c {
		ids = append(ids, e.GiverID)
	}
	return ids
}

func (c Cycle) Contains(userID string) bool {
	for _, e := range c {
		if e.GiverID == userID {
			return true
		}
	}
	return false
}

// Key is the rotation-normalized identity of the cycle.
func (c Cycle) Key() string {
	return domain.CycleKey(c)
}

func (c Cycle) ParticipantKey() string {
	return domain.ParticipantKey(c.Participants())
}

type CycleOptions struct {
	// MaxLength caps the number of participants. Values outside
	// [MinChainLength, MaxChainLength] fall back to MaxChainLength.
	MaxLength int
	// MaxCycles stops the search once this many cycles were found. <= 0 means unbounded.
	MaxCycles int
}

type frame struct {
	node string
	via  domain.SkillEdge
	next int
}

// FindCycles enumerates simple cycles of length 2..MaxLength. Parallel edges
// between the same ordered pair collapse onto the smallest category. Each
// cycle is reported once, starting from its smallest participant.
func FindCycles(ctx context.Context, edges []domain.SkillEdge, opts CycleOptions) ([]Cycle, error) {
	maxLen := opts.MaxLength
	if maxLen < domain.MinChainLength || maxLen > domain.MaxChainLength {
		maxLen = domain.MaxChainLength
	}

	adj, nodes := collapse(edges)
	var cycles []Cycle
	full := func() bool { return opts.MaxCycles > 0 && len(cycles) >= opts.MaxCycles }

	// length 2: reverse edge lookup, one per unordered pair
	for _, a := range nodes {
		for _, ab := range adj[a] {
			b := ab.ReceiverID
			if b <= a {
				continue
			}
			if ba, ok := findEdge(adj[b], a); ok {
				cycles = append(cycles, Cycle{ab, ba})
				if full() {
					return cycles, nil
				}
			}
		}
	}

	if maxLen < 3 {
		return cycles, nil
	}

	// length 3..maxLen: explicit-stack DFS over nodes greater than the start
	for _, start := range nodes {
		if err := ctx.Err(); err != nil {
			return cycles, err
		}

		stack := []frame{{node: start}}
		onPath := map[string]struct{}{start: {}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			out := adj[top.node]
			if top.next >= len(out) {
				delete(onPath, top.node)
				stack = stack[:len(stack)-1]
				continue
			}
			e := out[top.next]
			top.next++

			v := e.ReceiverID
			if v == start {
				if len(stack) >= 3 {
					cycle := make(Cycle, 0, len(stack))
					for _, f := range stack[1:] {
						cycle = append(cycle, f.via)
					}
					cycles = append(cycles, append(cycle, e))
					if full() {
						return cycles, nil
					}
				}
				continue
			}
			if v < start || len(stack) >= maxLen {
				continue
			}
			if _, seen := onPath[v]; seen {
				continue
			}
			onPath[v] = struct{}{}
			stack = append(stack, frame{node: v, via: e})
		}
	}

	return cycles, nil
}

// collapse keeps one edge per ordered pair (smallest category) and returns
// adjacency sorted by receiver plus the sorted node list.
func collapse(edges []domain.SkillEdge) (map[string][]domain.SkillEdge, []string) {
	best := make(map[[2]string]domain.SkillEdge, len(edges))
	for _, e := range edges {
		if e.GiverID == e.ReceiverID {
			continue
		}
		key := [2]string{e.GiverID, e.ReceiverID}
		if cur, ok := best[key]; !ok || e.CategoryID < cur.CategoryID {
			best[key] = e
		}
	}

	adj := make(map[string][]domain.SkillEdge)
	nodeSet := make(map[string]struct{})
	for _, e := range best {
		adj[e.GiverID] = append(adj[e.GiverID], e)
		nodeSet[e.GiverID] = struct{}{}
		nodeSet[e.ReceiverID] = struct{}{}
	}
	for id := range adj {
		out := adj[id]
		sort.Slice(out, func(i, j int) bool { return out[i].ReceiverID < out[j].ReceiverID })
	}

	nodes := make([]string, 0, len(nodeSet))
	for id := range nodeSet {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	return adj, nodes
}

func findEdge(out []domain.SkillEdge, receiver string) (domain.SkillEdge, bool) {
	i := sort.Search(len(out), func(i int) bool { return out[i].ReceiverID >= receiver })
	if i < len(out) && out[i].ReceiverID == receiver {
		return out[i], true
	}
	return domain.SkillEdge{}, false
}
