package topology

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commgraph/commgraph/internal/core/graph"
	"github.com/commgraph/commgraph/internal/core/message"
	"github.com/commgraph/commgraph/internal/core/player"
)

var (
	talkKinds = []message.Kind{message.KindRequest, message.KindResponse}
	withExec  = []message.Kind{message.KindExecute, message.KindRequest, message.KindResponse, message.KindStatus, message.KindWriteBoard}
)

func def(role string, send ...message.Kind) player.Definition {
	return player.Definition{
		Role:        role,
		Handler:     player.HandlerStandard,
		Permissions: message.MustPermissions(send, []message.Kind{message.KindRequest, message.KindResponse, message.KindWriteBoard}),
	}
}

func roles(defs ...player.Definition) map[string]player.Definition {
	out := make(map[string]player.Definition, len(defs))
	for _, d := range defs {
		out[d.Role] = d
	}
	return out
}

func edgeKinds(g *graph.Graph, from, to string) []message.Kind {
	var out []message.Kind
	for _, e := range g.DecisionEdgesFrom(from) {
		if e.To == to {
			out = append(out, e.Condition.Kind)
		}
	}
	return out
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("STAR")
	require.NoError(t, err)
	assert.Equal(t, Star, typ)
	_, err = ParseType("ring")
	assert.ErrorIs(t, err, ErrUnknownTopology)
}

func TestNodeIDAndDomain(t *testing.T) {
	assert.Equal(t, "worker", NodeID("worker", 0, 1))
	assert.Equal(t, "worker_2", NodeID("worker", 1, 3))
	assert.Equal(t, "web", DomainFor("worker", 0, []string{"web", "db"}))
	assert.Equal(t, "db", DomainFor("worker", 1, []string{"web", "db"}))
	assert.Equal(t, "web", DomainFor("worker", 2, []string{"web", "db"}))
	assert.Equal(t, "general_worker", DomainFor("worker", 0, nil))
}

func TestValidate_RejectsUnderSpecifiedRosters(t *testing.T) {
	tests := []struct {
		name     string
		compiler Compiler
		roster   Roster
	}{
		{name: "single two roles", compiler: SingleCompiler{}, roster: Roster{"a": {Count: 1}, "b": {Count: 1}}},
		{name: "single count two", compiler: SingleCompiler{}, roster: Roster{"a": {Count: 2}}},
		{name: "single empty", compiler: SingleCompiler{}, roster: Roster{}},
		{name: "star without hub", compiler: StarCompiler{}, roster: Roster{"worker": {Count: 2}}},
		{name: "star two hubs", compiler: StarCompiler{}, roster: Roster{"hub": {Count: 2}, "worker": {Count: 1}}},
		{name: "star no spokes", compiler: StarCompiler{}, roster: Roster{"hub": {Count: 1}}},
		{name: "blackboard one participant", compiler: BlackboardCompiler{}, roster: Roster{"a": {Count: 1}}},
		{name: "blackboard empty", compiler: BlackboardCompiler{}, roster: Roster{}},
		{name: "mesh one participant", compiler: MeshCompiler{}, roster: Roster{"a": {Count: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.compiler.Validate(tt.roster)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParticipants)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.compiler.Type(), verr.Topology)

			_, err = tt.compiler.Compile(tt.roster, CompileOptions{})
			assert.ErrorIs(t, err, ErrInvalidParticipants)
		})
	}

	assert.NoError(t, MeshCompiler{}.Validate(Roster{"a": {Count: 2}}))
	assert.NoError(t, BlackboardCompiler{}.Validate(Roster{"a": {Count: 1}, "b": {Count: 1}}))
}

func TestCompile_UndefinedRole(t *testing.T) {
	_, err := MeshCompiler{}.Compile(Roster{"a": {Count: 2}}, CompileOptions{Roles: roles()})
	assert.ErrorIs(t, err, ErrUndefinedRole)
}

func TestSingle_Compile(t *testing.T) {
	d, err := SingleCompiler{}.Compile(Roster{"solo": {Count: 1, Domains: []string{"desktop"}}},
		CompileOptions{Roles: roles(def("solo", withExec...))})
	require.NoError(t, err)
	g := d.Graph

	assert.Equal(t, "solo", g.Anchor)
	assert.Equal(t, []message.Kind{message.KindExecute}, edgeKinds(g, "solo", "solo"))
	require.Len(t, g.StandardEdgesFrom(graph.StartID), 1)
	require.Len(t, g.StandardEdgesFrom("solo"), 1)
	assert.Equal(t, graph.EndID, g.StandardEdgesFrom("solo")[0].To)
	assert.Equal(t, []NodeAssignment{{NodeID: "solo", Domain: "desktop"}}, d.NodeAssignments["solo"])
	assert.NoError(t, g.Validate())
}

func TestStar_Compile(t *testing.T) {
	d, err := StarCompiler{}.Compile(
		Roster{"hub": {Count: 1}, "doer": {Count: 2, Domains: []string{"web", "db"}}, "thinker": {Count: 1}},
		CompileOptions{Roles: roles(def("hub", talkKinds...), def("doer", withExec...), def("thinker", talkKinds...))},
	)
	require.NoError(t, err)
	g := d.Graph

	assert.Equal(t, "hub", g.Anchor)
	assert.Len(t, g.Players(), 4)
	for _, spoke := range []string{"doer_1", "doer_2", "thinker"} {
		assert.ElementsMatch(t, talkKinds, edgeKinds(g, "hub", spoke), spoke)
		assert.ElementsMatch(t, talkKinds, edgeKinds(g, spoke, "hub"), spoke)
	}
	assert.Equal(t, []message.Kind{message.KindExecute}, edgeKinds(g, "doer_1", "doer_1"))
	assert.Empty(t, edgeKinds(g, "thinker", "thinker"))
	assert.Empty(t, edgeKinds(g, "doer_1", "doer_2"), "spokes never talk directly")
	assert.Equal(t, []message.Kind{message.KindStatus}, edgeKinds(g, "hub", graph.EndID))
	assert.Equal(t, "db", d.NodeAssignments["doer"][1].Domain)
	assert.NoError(t, g.Validate())
}

func TestBlackboard_Compile(t *testing.T) {
	d, err := BlackboardCompiler{}.Compile(
		Roster{"writer": {Count: 2}, "critic": {Count: 1}},
		CompileOptions{
			Roles:  roles(def("writer", withExec...), def("critic", message.KindWriteBoard, message.KindStatus)),
			Anchor: AnchorConfig{Mode: AnchorFixed, Role: "writer", Domain: "general_writer"},
		},
	)
	require.NoError(t, err)
	g := d.Graph

	assert.Equal(t, []string{"critic", "writer_1", "writer_2"}, g.RoundRobin)
	assert.Equal(t, "writer_1", g.Anchor)
	assert.Len(t, g.StandardEdgesFrom(graph.StartID), 3)
	assert.Equal(t, []message.Kind{message.KindWriteBoard}, edgeKinds(g, "critic", "writer_1"))
	assert.Equal(t, []message.Kind{message.KindWriteBoard}, edgeKinds(g, "writer_2", "critic"))
	assert.Equal(t, []message.Kind{message.KindExecute}, edgeKinds(g, "writer_2", "writer_2"))
	assert.Empty(t, edgeKinds(g, "critic", "critic"))
	for _, id := range g.RoundRobin {
		assert.Equal(t, []message.Kind{message.KindStatus}, edgeKinds(g, id, graph.EndID))
	}
	assert.NoError(t, g.Validate())
}

func TestBlackboard_ProcessMessage(t *testing.T) {
	d, err := BlackboardCompiler{}.Compile(Roster{"a": {Count: 3}},
		CompileOptions{Roles: roles(def("a", withExec...)), Rand: rand.New(rand.NewPCG(1, 2))})
	require.NoError(t, err)

	c := BlackboardCompiler{}
	rc := RoutingContext{CurrentNode: "a_3", Graph: d.Graph}
	out := c.ProcessMessage(message.Message{Kind: message.KindWriteBoard, From: "a_3", Content: "notes"}, rc)
	assert.Equal(t, "a_1", out.To)

	exec := message.Message{Kind: message.KindExecute, From: "a_3", Content: "ls"}
	assert.Equal(t, exec, c.ProcessMessage(exec, rc))
}

func TestMesh_Compile(t *testing.T) {
	d, err := MeshCompiler{}.Compile(
		Roster{"peer": {Count: 2}, "advisor": {Count: 1}},
		CompileOptions{Roles: roles(def("peer", withExec...), def("advisor", talkKinds...)), Rand: rand.New(rand.NewPCG(7, 7))},
	)
	require.NoError(t, err)
	g := d.Graph

	ids := []string{"advisor", "peer_1", "peer_2"}
	for _, from := range ids {
		for _, to := range ids {
			if from == to {
				continue
			}
			assert.ElementsMatch(t, talkKinds, edgeKinds(g, from, to), "%s -> %s", from, to)
		}
		assert.Equal(t, []message.Kind{message.KindStatus}, edgeKinds(g, from, graph.EndID))
	}
	assert.Equal(t, []message.Kind{message.KindExecute}, edgeKinds(g, "peer_1", "peer_1"))
	assert.Empty(t, edgeKinds(g, "advisor", "advisor"))
	assert.Contains(t, ids, g.Anchor)
	assert.Empty(t, g.RoundRobin)
	assert.NoError(t, g.Validate())
}

func TestSelectAnchor(t *testing.T) {
	instances, _, err := instantiate(Mesh, Roster{"a": {Count: 2, Domains: []string{"x", "y"}}, "b": {Count: 1}},
		roles(def("a", talkKinds...), def("b", talkKinds...)))
	require.NoError(t, err)

	t.Run("fixed hit", func(t *testing.T) {
		id, err := SelectAnchor(Mesh, AnchorConfig{Mode: AnchorFixed, Role: "a", Domain: "y"}, instances, nil)
		require.NoError(t, err)
		assert.Equal(t, "a_2", id)
	})

	t.Run("fixed miss lists combinations", func(t *testing.T) {
		_, err := SelectAnchor(Mesh, AnchorConfig{Mode: AnchorFixed, Role: "a", Domain: "z"}, instances, nil)
		require.ErrorIs(t, err, ErrAnchorNotFound)
		assert.Contains(t, err.Error(), "(a, x), (a, y), (b, general_b)")
	})

	t.Run("fixed needs role and domain", func(t *testing.T) {
		_, err := SelectAnchor(Mesh, AnchorConfig{Mode: AnchorFixed, Role: "a"}, instances, nil)
		assert.ErrorIs(t, err, ErrInvalidAnchorConfig)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := SelectAnchor(Mesh, AnchorConfig{Mode: "sticky"}, instances, nil)
		assert.ErrorIs(t, err, ErrInvalidAnchorConfig)
	})

	t.Run("random covers every participant", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(42, 24))
		seen := map[string]bool{}
		for i := 0; i < 200; i++ {
			id, err := SelectAnchor(Mesh, AnchorConfig{Mode: AnchorRandom}, instances, rng)
			require.NoError(t, err)
			seen[id] = true
		}
		assert.Len(t, seen, 3)
	})
}

type ringCompiler struct{ MeshCompiler }

func (ringCompiler) Type() Type { return "ring" }

func TestFactory(t *testing.T) {
	f := NewFactory()
	assert.Equal(t, []Type{Blackboard, Mesh, Single, Star}, f.Available())

	c, err := f.New(Star)
	require.NoError(t, err)
	assert.Equal(t, Star, c.Type())

	_, err = f.New("ring")
	assert.ErrorIs(t, err, ErrUnknownTopology)

	f.Register(ringCompiler{})
	c, err = f.New("ring")
	require.NoError(t, err)
	assert.Equal(t, Type("ring"), c.Type())

	c, err = New(Blackboard)
	require.NoError(t, err)
	assert.IsType(t, BlackboardCompiler{}, c)
}
