package topology

import (
	"fmt"
	"sort"

	"github.com/commgraph/commgraph/internal/core/graph"
	"github.com/commgraph/commgraph/internal/core/message"
	"github.com/commgraph/commgraph/internal/core/player"
)

// instance is one compiled participant
type instance struct {
	Role   string
	Player *player.Player
	NodeAssignment
}

// sortedRoles gives a stable role order for node creation and round-robin
func sortedRoles(r Roster) []string {
	roles := make([]string, 0, len(r))
	for role := range r {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// NodeID names the index-th (0-based) instance of a role
func NodeID(role string, index, count int) string {
	if count > 1 {
		return fmt.Sprintf("%s_%d", role, index+1)
	}
	return role
}

// DomainFor picks the domain of the index-th instance: the matching declared
// domain, else the first declared one, else a generated general domain.
func DomainFor(role string, index int, domains []string) string {
	switch {
	case index < len(domains):
		return domains[index]
	case len(domains) > 0:
		return domains[0]
	default:
		return "general_" + role
	}
}

// instantiate creates one player per roster slot, in sorted role order
func instantiate(t Type, r Roster, roles map[string]player.Definition) ([]instance, map[string][]NodeAssignment, error) {
	var out []instance
	assignments := make(map[string][]NodeAssignment, len(r))
	for roleIndex, role := range sortedRoles(r) {
		def, ok := roles[role]
		if !ok {
			return nil, nil, &ValidationError{Topology: t, Reason: fmt.Sprintf("role %q is not defined", role), Err: ErrUndefinedRole}
		}
		if def.Role == "" {
			def.Role = role
		}
		a := r[role]
		for i := 0; i < a.Count; i++ {
			na := NodeAssignment{
				NodeID:    NodeID(role, i, a.Count),
				Domain:    DomainFor(role, i, a.Domains),
				RoleIndex: roleIndex,
			}
			out = append(out, instance{Role: role, Player: player.New(na.NodeID, na.Domain, def), NodeAssignment: na})
			assignments[role] = append(assignments[role], na)
		}
	}
	return out, assignments, nil
}

// newGraph adds every instance as a player node
func newGraph(instances []instance) (*graph.Graph, error) {
	g := graph.New()
	for _, in := range instances {
		if err := g.AddPlayer(in.Player, in.RoleIndex); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func nodeIDs(instances []instance) []string {
	ids := make([]string, len(instances))
	for i, in := range instances {
		ids[i] = in.NodeID
	}
	return ids
}

// edgeBuilder collects the first error of a run of edge additions
type edgeBuilder struct {
	g   *graph.Graph
	err error
}

func (b *edgeBuilder) standard(from, to, label string) {
	if b.err == nil {
		b.err = b.g.AddStandardEdge(from, to, label)
	}
}

func (b *edgeBuilder) decision(from, to string, kind message.Kind, label string) {
	if b.err == nil {
		b.err = b.g.AddDecisionEdge(from, to, &graph.Condition{Kind: kind}, label)
	}
}

// executeLoop adds the EXECUTE self-loop when the player may execute
func (b *edgeBuilder) executeLoop(in instance) {
	if in.Player.CanExecute() {
		b.decision(in.NodeID, in.NodeID, message.KindExecute, "execute actions")
	}
}

func (b *edgeBuilder) anchor(id string) {
	if b.err == nil {
		b.err = b.g.SetAnchor(id)
	}
}
