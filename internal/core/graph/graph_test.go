package graph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commgraph/commgraph/internal/core/message"
	"github.com/commgraph/commgraph/internal/core/player"
)

func testPlayer(name, role string) *player.Player {
	return player.New(name, "general_"+role, player.Definition{
		Role:        role,
		Handler:     player.HandlerStandard,
		Permissions: message.MustPermissions([]message.Kind{message.KindRequest}, []message.Kind{message.KindResponse}),
	})
}

func TestGraph_New(t *testing.T) {
	g := New()
	start, ok := g.Node(StartID)
	require.True(t, ok)
	assert.Equal(t, NodeStart, start.Kind)
	end, ok := g.Node(EndID)
	require.True(t, ok)
	assert.True(t, end.IsEnd())
	assert.Empty(t, g.Players())
}

func TestGraph_AddPlayer(t *testing.T) {
	g := New()

	t.Run("add valid player", func(t *testing.T) {
		require.NoError(t, g.AddPlayer(testPlayer("hub", "hub"), 0))
		n, ok := g.Node("hub")
		require.True(t, ok)
		assert.True(t, n.IsPlayer())
		assert.Equal(t, "general_hub", n.Domain)
		assert.Same(t, n.Player, g.Player("hub"))
	})

	t.Run("add nil player", func(t *testing.T) {
		assert.ErrorIs(t, g.AddPlayer(nil, 0), ErrNilPlayer)
	})

	t.Run("reserved id", func(t *testing.T) {
		assert.ErrorIs(t, g.AddPlayer(testPlayer(EndID, "x"), 0), ErrReservedNodeID)
	})

	t.Run("duplicate id", func(t *testing.T) {
		assert.ErrorIs(t, g.AddPlayer(testPlayer("hub", "hub"), 0), ErrDuplicateNode)
	})

	assert.Nil(t, g.Player(StartID))
	assert.Nil(t, g.Player("ghost"))
}

func TestGraph_AddEdges(t *testing.T) {
	g := New()
	require.NoError(t, g.AddPlayer(testPlayer("a", "a"), 0))
	require.NoError(t, g.AddPlayer(testPlayer("b", "b"), 1))

	t.Run("standard edge", func(t *testing.T) {
		require.NoError(t, g.AddStandardEdge(StartID, "a", ""))
		assert.Len(t, g.StandardEdgesFrom(StartID), 1)
	})

	t.Run("duplicate standard edge", func(t *testing.T) {
		assert.ErrorIs(t, g.AddStandardEdge(StartID, "a", "again"), ErrDuplicateStandardEdge)
	})

	t.Run("decision edges may share endpoints", func(t *testing.T) {
		require.NoError(t, g.AddDecisionEdge("a", "b", &Condition{Kind: message.KindRequest}, ""))
		require.NoError(t, g.AddDecisionEdge("a", "b", &Condition{Kind: message.KindResponse}, ""))
		assert.Len(t, g.DecisionEdgesFrom("a"), 2)
		assert.True(t, g.HasDecisionKind("a", message.KindResponse))
		assert.False(t, g.HasDecisionKind("a", message.KindExecute))
	})

	t.Run("missing condition", func(t *testing.T) {
		assert.ErrorIs(t, g.AddDecisionEdge("a", "b", nil, ""), ErrMissingCondition)
	})

	t.Run("unknown condition kind", func(t *testing.T) {
		assert.ErrorIs(t, g.AddDecisionEdge("a", "b", &Condition{Kind: "NOPE"}, ""), ErrInvalidCondition)
	})

	t.Run("unknown endpoints", func(t *testing.T) {
		assert.ErrorIs(t, g.AddStandardEdge("a", "ghost", ""), ErrNodeNotFound)
		assert.ErrorIs(t, g.AddStandardEdge("ghost", "a", ""), ErrNodeNotFound)
	})

	t.Run("start and end are one way", func(t *testing.T) {
		assert.ErrorIs(t, g.AddStandardEdge("a", StartID, ""), ErrEdgeIntoStart)
		assert.ErrorIs(t, g.AddStandardEdge(EndID, "a", ""), ErrEdgeFromEnd)
	})
}

func TestCondition_Matches(t *testing.T) {
	tests := []struct {
		name     string
		cond     Condition
		kind     message.Kind
		from, to string
		want     bool
	}{
		{name: "kind only", cond: Condition{Kind: message.KindRequest}, kind: message.KindRequest, from: "x", to: "y", want: true},
		{name: "kind mismatch", cond: Condition{Kind: message.KindRequest}, kind: message.KindResponse, want: false},
		{name: "exact from", cond: Condition{Kind: message.KindRequest, AllowedFrom: []string{"hub"}}, kind: message.KindRequest, from: "hub", want: true},
		{name: "base role from", cond: Condition{Kind: message.KindRequest, AllowedFrom: []string{"worker"}}, kind: message.KindRequest, from: "worker_3", want: true},
		{name: "from rejected", cond: Condition{Kind: message.KindRequest, AllowedFrom: []string{"hub"}}, kind: message.KindRequest, from: "worker_1", want: false},
		{name: "empty to unconstrained", cond: Condition{Kind: message.KindExecute, AllowedTo: []string{"hub"}}, kind: message.KindExecute, from: "hub", to: "", want: true},
		{name: "to rejected", cond: Condition{Kind: message.KindResponse, AllowedTo: []string{"hub"}}, kind: message.KindResponse, to: "worker", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Matches(tt.kind, tt.from, tt.to))
		})
	}
}

func TestGraph_AnchorAndSequence(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddPlayer(testPlayer(id, id), 0))
	}

	assert.ErrorIs(t, g.Validate(), ErrNoAnchor)
	assert.ErrorIs(t, g.SetAnchor(EndID), ErrInvalidAnchor)
	assert.ErrorIs(t, g.SetAnchor("ghost"), ErrNodeNotFound)
	require.NoError(t, g.SetAnchor("b"))
	assert.ErrorIs(t, g.Validate(), ErrNoStartEdge)

	require.NoError(t, g.AddStandardEdge(StartID, "a", ""))
	assert.ErrorIs(t, g.Validate(), ErrAnchorNotOnStart)
	require.NoError(t, g.AddStandardEdge(StartID, "b", ""))
	assert.NoError(t, g.Validate())

	assert.ErrorIs(t, g.SetRoundRobin([]string{"a", StartID}), ErrInvalidSequence)
	require.NoError(t, g.SetRoundRobin([]string{"a", "b", "c"}))
	next, ok := g.Successor("c")
	require.True(t, ok)
	assert.Equal(t, "a", next)
	_, ok = g.Successor(EndID)
	assert.False(t, ok)
}

func TestGraph_WriteDOT(t *testing.T) {
	g := New()
	require.NoError(t, g.AddPlayer(testPlayer("solo", "solo"), 0))
	require.NoError(t, g.AddStandardEdge(StartID, "solo", ""))
	require.NoError(t, g.AddDecisionEdge("solo", "solo", &Condition{Kind: message.KindExecute}, ""))
	require.NoError(t, g.SetAnchor("solo"))

	var buf bytes.Buffer
	require.NoError(t, g.WriteDOT(&buf, "single"))
	out := buf.String()
	assert.Contains(t, out, `digraph "single" {`)
	assert.Contains(t, out, `"solo" [shape=box, label="solo (general_solo)", style=bold];`)
	assert.Contains(t, out, `"solo" -> "solo" [label="EXECUTE"];`)
	assert.Contains(t, out, `"START" -> "solo" [style=dashed];`)
}

func TestTransitionState_Clone(t *testing.T) {
	s := TransitionState{CurrentNode: "a", CurrentRoundNodes: []string{"a"}}
	c := s.Clone()
	c.CurrentRoundNodes[0] = "b"
	assert.Equal(t, "a", s.CurrentRoundNodes[0])
}
