package graph

import (
	"sort"

	"github.com/gdugdh24/handshake-backend/internal/domain"
)

// SkillGraphInput holds everything needed to derive skill edges for one network.
type SkillGraphInput struct {
	Network    map[string]struct{}
	Users      map[string]*domain.User
	Skills     []domain.UserSkill
	Categories map[int64]domain.SkillCategory
}

// BuildSkillEdges derives giver->receiver edges inside the network. A category
// must be known and not a placeholder; it either is available online or both
// users share city and country.
func BuildSkillEdges(in SkillGraphInput) []domain.SkillEdge {
	givers := make(map[int64][]string)
	receivers := make(map[int64][]string)

	for _, s := range in.Skills {
		if _, ok := in.Network[s.UserID]; !ok {
			continue
		}
		if !in.Users[s.UserID].IsLive() {
			continue
		}
		cat, ok := in.Categories[s.CategoryID]
		if !ok || cat.IsOther {
			continue
		}
		switch s.Kind {
		case domain.SkillHas:
			givers[s.CategoryID] = appendUnique(givers[s.CategoryID], s.UserID)
		case domain.SkillNeeds:
			receivers[s.CategoryID] = appendUnique(receivers[s.CategoryID], s.UserID)
		}
	}

	var edges []domain.SkillEdge
	for catID, gs := range givers {
		cat := in.Categories[catID]
		for _, g := range gs {
			for _, r := range receivers[catID] {
				if g == r {
					continue
				}
				if !cat.IsOnline && !in.Users[g].SameLocality(in.Users[r]) {
					continue
				}
				edges = append(edges, domain.SkillEdge{GiverID: g, ReceiverID: r, CategoryID: catID})
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].GiverID != edges[j].GiverID {
			return edges[i].GiverID < edges[j].GiverID
		}
		if edges[i].ReceiverID != edges[j].ReceiverID {
			return edges[i].ReceiverID < edges[j].ReceiverID
		}
		return edges[i].CategoryID < edges[j].CategoryID
	})
	return edges
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
