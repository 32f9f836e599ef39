// Package graph provides the interaction graph compiled from a topology:
// a flat node and edge arena with an outgoing-edge index, an anchor node
// and an optional round-robin sequence.
package graph

import (
	"fmt"

	"github.com/commgraph/commgraph/internal/core/message"
	"github.com/commgraph/commgraph/internal/core/player"
)

// Graph represents the compiled interaction graph
// PRINCIPLES:
// - KISS: Arena of nodes and edges, lookups are filtered scans
// - SRP: Only responsible for graph structure, not traversal state
// - Immutable once compiled; the engine keeps the cursor elsewhere
type Graph struct {
	Nodes      []Node   `json:"nodes"`
	Edges      []Edge   `json:"edges"`
	Anchor     string   `json:"anchor_node"`
	RoundRobin []string `json:"round_robin_sequence,omitempty"`

	index    map[string]int
	outgoing map[string][]int
}

// New creates a graph holding only the START and END nodes
func New() *Graph {
	g := &Graph{
		index:    make(map[string]int),
		outgoing: make(map[string][]int),
	}
	g.addNode(Node{ID: StartID, Kind: NodeStart})
	g.addNode(Node{ID: EndID, Kind: NodeEnd})
	return g
}

func (g *Graph) addNode(n Node) {
	g.index[n.ID] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
}

// AddPlayer adds a player node keyed by the player's name
func (g *Graph) AddPlayer(p *player.Player, roleIndex int) error {
	if p == nil {
		return ErrNilPlayer
	}
	if p.Name == "" {
		return ErrInvalidNodeID
	}
	if p.Name == StartID || p.Name == EndID {
		return fmt.Errorf("%w: %s", ErrReservedNodeID, p.Name)
	}
	if _, exists := g.index[p.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, p.Name)
	}
	g.addNode(Node{
		ID:        p.Name,
		Kind:      NodePlayer,
		Role:      p.Role,
		Domain:    p.Domain,
		RoleIndex: roleIndex,
		Player:    p,
	})
	return nil
}

// AddStandardEdge connects two nodes unconditionally. At most one standard
// edge may exist per ordered pair.
func (g *Graph) AddStandardEdge(from, to, label string) error {
	if err := g.checkEndpoints(from, to); err != nil {
		return err
	}
	for _, i := range g.outgoing[from] {
		e := g.Edges[i]
		if e.Kind == EdgeStandard && e.To == to {
			return fmt.Errorf("%w: %s -> %s", ErrDuplicateStandardEdge, from, to)
		}
	}
	g.addEdge(Edge{From: from, To: to, Kind: EdgeStandard, Label: label})
	return nil
}

// AddDecisionEdge connects two nodes under a message condition
func (g *Graph) AddDecisionEdge(from, to string, cond *Condition, label string) error {
	if cond == nil {
		return ErrMissingCondition
	}
	if !cond.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCondition, cond.Kind)
	}
	if err := g.checkEndpoints(from, to); err != nil {
		return err
	}
	g.addEdge(Edge{From: from, To: to, Kind: EdgeDecision, Condition: cond, Label: label})
	return nil
}

func (g *Graph) addEdge(e Edge) {
	g.outgoing[e.From] = append(g.outgoing[e.From], len(g.Edges))
	g.Edges = append(g.Edges, e)
}

func (g *Graph) checkEndpoints(from, to string) error {
	if !g.HasNode(from) {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if !g.HasNode(to) {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	if to == StartID {
		return ErrEdgeIntoStart
	}
	if from == EndID {
		return ErrEdgeFromEnd
	}
	return nil
}

// SetAnchor marks the node whose revisits close a round
func (g *Graph) SetAnchor(id string) error {
	n, ok := g.Node(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if !n.IsPlayer() {
		return fmt.Errorf("%w: %s", ErrInvalidAnchor, id)
	}
	g.Anchor = id
	return nil
}

// SetRoundRobin records the fixed turn order used by round-robin topologies
func (g *Graph) SetRoundRobin(ids []string) error {
	for _, id := range ids {
		n, ok := g.Node(id)
		if !ok || !n.IsPlayer() {
			return fmt.Errorf("%w: %s", ErrInvalidSequence, id)
		}
	}
	g.RoundRobin = append([]string(nil), ids...)
	return nil
}

// Successor returns the node after id in the round-robin sequence,
// wrapping around. The second result is false when id is not sequenced.
func (g *Graph) Successor(id string) (string, bool) {
	for i, n := range g.RoundRobin {
		if n == id {
			return g.RoundRobin[(i+1)%len(g.RoundRobin)], true
		}
	}
	return "", false
}

// HasNode reports whether id is a node of the graph
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Node looks up a node by id
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.Nodes[i], true
}

// Player returns the player hosted at id, or nil for START, END and
// unknown ids.
func (g *Graph) Player(id string) *player.Player {
	n, ok := g.Node(id)
	if !ok {
		return nil
	}
	return n.Player
}

// Players returns every player in insertion order
func (g *Graph) Players() []*player.Player {
	var out []*player.Player
	for i := range g.Nodes {
		if g.Nodes[i].IsPlayer() {
			out = append(out, g.Nodes[i].Player)
		}
	}
	return out
}

// DecisionEdgesFrom returns the decision edges leaving id
func (g *Graph) DecisionEdgesFrom(id string) []Edge {
	return g.edgesFrom(id, EdgeDecision)
}

// StandardEdgesFrom returns the standard edges leaving id
func (g *Graph) StandardEdgesFrom(id string) []Edge {
	return g.edgesFrom(id, EdgeStandard)
}

func (g *Graph) edgesFrom(id string, kind EdgeKind) []Edge {
	var out []Edge
	for _, i := range g.outgoing[id] {
		if g.Edges[i].Kind == kind {
			out = append(out, g.Edges[i])
		}
	}
	return out
}

// HasDecisionKind reports whether any decision edge out of id is
// conditioned on kind
func (g *Graph) HasDecisionKind(id string, kind message.Kind) bool {
	for _, e := range g.DecisionEdgesFrom(id) {
		if e.Condition.Kind == kind {
			return true
		}
	}
	return false
}

// Validate ensures the graph can be played
// PRINCIPLES:
// - SRP: Single responsibility - validation only
// - KISS: Simple validation rules, easy to understand
func (g *Graph) Validate() error {
	if g.Anchor == "" {
		return ErrNoAnchor
	}
	starts := g.StandardEdgesFrom(StartID)
	if len(starts) == 0 {
		return ErrNoStartEdge
	}
	for _, e := range starts {
		if e.To == g.Anchor {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAnchorNotOnStart, g.Anchor)
}
