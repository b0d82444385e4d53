package graph

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkhaven/canonforge/internal/core/model"
)

func testStore() *Store {
	s := NewStore()
	n := 0
	s.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	tick := 0
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s
}

func TestEnsureGhostSynthesizes(t *testing.T) {
	s := testStore()

	ghost := s.EnsureGhost("ent-1", "saga-a", model.GhostHint{Name: "The Stranger", Type: model.TypeCharacter})
	assert.Equal(t, model.TierGhost, ghost.Tier)
	assert.Equal(t, "the stranger", ghost.NormalizedName)
	assert.Equal(t, "saga-a", ghost.ScopeID)

	// Second call returns the same node, no duplicate synthesis.
	again := s.EnsureGhost("ent-1", "saga-a", model.GhostHint{Name: "Someone Else"})
	assert.Same(t, ghost, again)
}

func TestEnsureGhostEmptyHint(t *testing.T) {
	s := testStore()
	ghost := s.EnsureGhost("0123456789abcdef", "saga-a", model.GhostHint{})
	assert.Equal(t, "unknown-01234567", ghost.Name)
	assert.Equal(t, model.TypeConcept, ghost.Type)
}

func TestNoOrphanEdges(t *testing.T) {
	s := testStore()

	s.Declare("saga-a", &model.GraphEdge{
		SourceID: "x", TargetID: "y", RelationType: "ALLY",
	}, model.GhostHint{Name: "X"}, model.GhostHint{Name: "Y"})

	for _, e := range s.Edges() {
		_, ok := s.Node(e.SourceID)
		assert.True(t, ok)
		_, ok = s.Node(e.TargetID)
		assert.True(t, ok)
	}
}

func TestHistoricEdgeVersioning(t *testing.T) {
	s := testStore()

	ally := s.Declare("saga-a", &model.GraphEdge{
		SourceID: "x", TargetID: "y", RelationType: "ALLY",
		Context: model.EdgeContext{SourceID: "doc-1", Confidence: 80},
	}, model.GhostHint{Name: "X"}, model.GhostHint{Name: "Y"})

	enemy := s.Declare("saga-a", &model.GraphEdge{
		SourceID: "x", TargetID: "y", RelationType: "ENEMY",
		Context: model.EdgeContext{SourceID: "doc-2", Confidence: 90},
	}, model.GhostHint{}, model.GhostHint{})

	// Current relationship is only ENEMY.
	active := s.Active("x")
	require.Len(t, active, 1)
	assert.Equal(t, "ENEMY", active[0].RelationType)
	assert.Equal(t, model.EdgeActive, enemy.Status)

	// Full history returns both, ordered, with the ALLY edge closed out.
	history := s.History("x", "y")
	require.Len(t, history, 2)
	assert.Equal(t, "ALLY", history[0].RelationType)
	assert.Equal(t, model.EdgeHistoric, history[0].Status)
	require.NotNil(t, history[0].ValidUntil)
	assert.Equal(t, "ENEMY", history[1].RelationType)
	assert.Equal(t, ally.ID, history[0].ID)
	assert.True(t, history[0].ValidFrom.Before(history[1].ValidFrom))
}

func TestDeclareDoesNotExpireOtherPairs(t *testing.T) {
	s := testStore()

	s.Declare("saga-a", &model.GraphEdge{SourceID: "x", TargetID: "y", RelationType: "ALLY"},
		model.GhostHint{}, model.GhostHint{})
	s.Declare("saga-a", &model.GraphEdge{SourceID: "x", TargetID: "z", RelationType: "MENTOR"},
		model.GhostHint{}, model.GhostHint{})

	assert.Len(t, s.Active("x"), 2)
}

func TestRewireLeavesNoDanglingReferences(t *testing.T) {
	s := testStore()

	s.Declare("saga-a", &model.GraphEdge{SourceID: "loser", TargetID: "y", RelationType: "ALLY"},
		model.GhostHint{Name: "Loser"}, model.GhostHint{Name: "Y"})
	s.Declare("saga-a", &model.GraphEdge{SourceID: "z", TargetID: "loser", RelationType: "RIVAL"},
		model.GhostHint{Name: "Z"}, model.GhostHint{})
	s.EnsureGhost("winner", "saga-a", model.GhostHint{Name: "Winner"})

	moved := s.Rewire("loser", "winner")
	s.RemoveNode("loser")

	assert.Equal(t, 2, moved)
	for _, e := range s.Edges() {
		assert.NotEqual(t, "loser", e.SourceID)
		assert.NotEqual(t, "loser", e.TargetID)
		_, ok := s.Node(e.SourceID)
		assert.True(t, ok)
		_, ok = s.Node(e.TargetID)
		assert.True(t, ok)
	}
	assert.Len(t, s.Active("winner"), 2)
}

func TestRewireSameIDIsNoOp(t *testing.T) {
	s := testStore()

	s.Declare("saga-a", &model.GraphEdge{SourceID: "x", TargetID: "y", RelationType: "ALLY"},
		model.GhostHint{Name: "X"}, model.GhostHint{Name: "Y"})

	moved := s.Rewire("x", "x")
	assert.Equal(t, 0, moved)

	// The node's edge index survives intact.
	assert.Len(t, s.Active("x"), 1)
	_, ok := s.Node("x")
	assert.True(t, ok)
}

func TestPutEdgeHydration(t *testing.T) {
	s := testStore()
	s.PutNode(&model.RosterEntity{ID: "a", NormalizedName: "elena", ScopeID: "saga-a", Tier: model.TierAnchor})
	s.PutNode(&model.RosterEntity{ID: "b", NormalizedName: "marcus", ScopeID: "saga-a", Tier: model.TierAnchor})

	until := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	historic := &model.GraphEdge{
		ID: "edge-0", SourceID: "a", TargetID: "b", RelationType: "STRANGER",
		ValidFrom:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil: &until, Status: model.EdgeHistoric,
	}
	active := &model.GraphEdge{
		ID: "edge-1", SourceID: "a", TargetID: "b", RelationType: "ALLY",
		ValidFrom: until, Status: model.EdgeActive,
	}
	s.PutEdge(historic)
	s.PutEdge(active)

	// Hydration never supersedes: the HISTORIC edge stays HISTORIC and the
	// ACTIVE one stays ACTIVE regardless of insertion order.
	assert.Equal(t, model.EdgeHistoric, historic.Status)
	require.Len(t, s.Active("a"), 1)
	assert.Len(t, s.History("a", "b"), 2)

	// Re-inserting the same edge id is a no-op.
	s.PutEdge(active)
	assert.Len(t, s.History("a", "b"), 2)
}

func TestNodesOutsideScope(t *testing.T) {
	s := testStore()
	s.PutNode(&model.RosterEntity{ID: "a", NormalizedName: "marcus", ScopeID: "saga-a", Tier: model.TierAnchor})
	s.PutNode(&model.RosterEntity{ID: "b", NormalizedName: "elena", ScopeID: "saga-b", Tier: model.TierAnchor})
	s.PutNode(&model.RosterEntity{ID: "c", NormalizedName: "ghostly", ScopeID: "saga-a", Tier: model.TierGhost})

	out := s.NodesOutsideScope("saga-b")
	require.Len(t, out, 1)
	assert.Equal(t, "a", out["marcus"].ID)
}
