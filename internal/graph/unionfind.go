package graph

import "sort"

// UnionFind is a disjoint-set forest over string ids. Ids are interned into an
// arena so parent and rank live in flat slices.
type UnionFind struct {
	index  map[string]int
	ids    []string
	parent []int
	rank   []int
}

func NewUnionFind() *UnionFind {
	return &UnionFind{index: make(map[string]int)}
}

// Add registers id as a singleton set if unknown and returns its arena slot.
func (uf *UnionFind) Add(id string) int {
	if i, ok := uf.index[id]; ok {
		return i
	}
	i := len(uf.ids)
	uf.index[id] = i
	uf.ids = append(uf.ids, id)
	uf.parent = append(uf.parent, i)
	uf.rank = append(uf.rank, 0)
	return i
}

func (uf *UnionFind) Len() int {
	return len(uf.ids)
}

func (uf *UnionFind) Contains(id string) bool {
	_, ok := uf.index[id]
	return ok
}

// Find returns the root id of the set holding id, or "" if id is unknown.
func (uf *UnionFind) Find(id string) string {
	i, ok := uf.index[id]
	if !ok {
		return ""
	}
	return uf.ids[uf.find(i)]
}

func (uf *UnionFind) find(i int) int {
	root := i
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	// path compression
	for uf.parent[i] != root {
		next := uf.parent[i]
		uf.parent[i] = root
		i = next
	}
	return root
}

// Union merges the sets of a and b, adding either if unknown.
// It reports whether two distinct sets were merged.
func (uf *UnionFind) Union(a, b string) bool {
	ra, rb := uf.find(uf.Add(a)), uf.find(uf.Add(b))
	if ra == rb {
		return false
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
	return true
}

func (uf *UnionFind) Connected(a, b string) bool {
	ra := uf.Find(a)
	return ra != "" && ra == uf.Find(b)
}

// Components groups every known id by root. Members are sorted by id.
func (uf *UnionFind) Components() map[string][]string {
	groups := make(map[string][]string)
	for i, id := range uf.ids {
		root := uf.ids[uf.find(i)]
		groups[root] = append(groups[root], id)
	}
	for root := range groups {
		sort.Strings(groups[root])
	}
	return groups
}
