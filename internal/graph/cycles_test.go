package graph

import (
	"context"
	"testing"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edge(g, r string, cat int64) domain.SkillEdge {
	return domain.SkillEdge{GiverID: g, ReceiverID: r, CategoryID: cat}
}

func TestFindCycles_TwoCycleOnce(t *testing.T) {
	edges := []domain.SkillEdge{edge("B", "A", 2), edge("A", "B", 1)}

	cycles, err := FindCycles(context.Background(), edges, CycleOptions{})

	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, Cycle{edge("A", "B", 1), edge("B", "A", 2)}, cycles[0])
}

func TestFindCycles_TwoCycleCollapsesParallelCategories(t *testing.T) {
	edges := []domain.SkillEdge{edge("A", "B", 7), edge("A", "B", 3), edge("B", "A", 9), edge("B", "A", 4)}

	cycles, err := FindCycles(context.Background(), edges, CycleOptions{})

	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, Cycle{edge("A", "B", 3), edge("B", "A", 4)}, cycles[0])
}

func TestFindCycles_Triangle(t *testing.T) {
	edges := []domain.SkillEdge{edge("C", "A", 3), edge("A", "B", 1), edge("B", "C", 2)}

	cycles, err := FindCycles(context.Background(), edges, CycleOptions{})

	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, Cycle{edge("A", "B", 1), edge("B", "C", 2), edge("C", "A", 3)}, cycles[0])
}

func TestFindCycles_LengthBound(t *testing.T) {
	ring := func(n int) []domain.SkillEdge {
		ids := []string{"u1", "u2", "u3", "u4", "u5", "u6"}[:n]
		var out []domain.SkillEdge
		for i := range ids {
			out = append(out, edge(ids[i], ids[(i+1)%n], int64(i+1)))
		}
		return out
	}

	five, err := FindCycles(context.Background(), ring(5), CycleOptions{})
	require.NoError(t, err)
	require.Len(t, five, 1)
	assert.Len(t, five[0], 5)

	six, err := FindCycles(context.Background(), ring(6), CycleOptions{})
	require.NoError(t, err)
	assert.Empty(t, six, "a 6-ring exceeds the maximum chain length")

	short, err := FindCycles(context.Background(), ring(4), CycleOptions{MaxLength: 3})
	require.NoError(t, err)
	assert.Empty(t, short)
}

func TestFindCycles_NoRepeatedParticipants(t *testing.T) {
	// dense graph: every ordered pair among four users
	ids := []string{"a", "b", "c", "d"}
	var edges []domain.SkillEdge
	for i, g := range ids {
		for j, r := range ids {
			if i != j {
				edges = append(edges, edge(g, r, int64(10*i+j)))
			}
		}
	}

	cycles, err := FindCycles(context.Background(), edges, CycleOptions{})
	require.NoError(t, err)

	keys := map[string]bool{}
	for _, c := range cycles {
		assert.LessOrEqual(t, len(c), domain.MaxChainLength)
		seen := map[string]bool{}
		for i, e := range c {
			assert.False(t, seen[e.GiverID])
			seen[e.GiverID] = true
			assert.Equal(t, e.ReceiverID, c[(i+1)%len(c)].GiverID)
		}
		assert.False(t, keys[c.Key()], "cycle reported twice")
		keys[c.Key()] = true
	}
	// 6 pairs + 8 directed triangles + 6 directed 4-cycles
	assert.Len(t, cycles, 20)
}

func TestFindCycles_MaxCycles(t *testing.T) {
	edges := []domain.SkillEdge{
		edge("a", "b", 1), edge("b", "a", 1),
		edge("c", "d", 1), edge("d", "c", 1),
	}

	cycles, err := FindCycles(context.Background(), edges, CycleOptions{MaxCycles: 1})

	require.NoError(t, err)
	assert.Len(t, cycles, 1)
}

func TestFindCycles_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FindCycles(ctx, []domain.SkillEdge{edge("a", "b", 1), edge("b", "c", 1), edge("c", "a", 1)}, CycleOptions{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCycleKey_RotationInvariant(t *testing.T) {
	c := Cycle{edge("A", "B", 1), edge("B", "C", 2), edge("C", "A", 3)}
	rotated := Cycle{edge("B", "C", 2), edge("C", "A", 3), edge("A", "B", 1)}
	other := Cycle{edge("A", "C", 3), edge("C", "B", 2), edge("B", "A", 1)}

	assert.Equal(t, c.Key(), rotated.Key())
	assert.NotEqual(t, c.Key(), other.Key())
	assert.Equal(t, c.ParticipantKey(), other.ParticipantKey())
	assert.Equal(t, "A,B,C", c.ParticipantKey())
	assert.True(t, c.Contains("B"))
	assert.False(t, c.Contains("Z"))
}
