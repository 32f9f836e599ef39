package topology

import (
	"github.com/commgraph/commgraph/internal/core/graph"
	"github.com/commgraph/commgraph/internal/core/message"
)

// HubRole is the role id of the star's centre
const HubRole = "hub"

// StarCompiler builds a hub-and-spoke topology. Every role other than the
// hub is a spoke role; spokes differ only in whether they may EXECUTE.
type StarCompiler struct{}

// Type implements Compiler
func (StarCompiler) Type() Type { return Star }

// Validate requires exactly one hub and at least one spoke
func (StarCompiler) Validate(r Roster) error {
	hub, ok := r[HubRole]
	if !ok {
		return invalid(Star, "requires a %q role", HubRole)
	}
	if hub.Count != 1 {
		return invalid(Star, "requires exactly 1 hub, got %d", hub.Count)
	}
	if r.Total()-hub.Count < 1 {
		return invalid(Star, "requires at least 1 spoke participant")
	}
	return nil
}

// Compile implements Compiler
func (c StarCompiler) Compile(r Roster, opts CompileOptions) (*Description, error) {
	if err := c.Validate(r); err != nil {
		return nil, err
	}
	instances, assignments, err := instantiate(Star, r, opts.Roles)
	if err != nil {
		return nil, err
	}
	g, err := newGraph(instances)
	if err != nil {
		return nil, err
	}

	hub := assignments[HubRole][0].NodeID
	b := &edgeBuilder{g: g}
	b.standard(graph.StartID, hub, "start at hub")
	for _, in := range instances {
		if in.Role == HubRole {
			continue
		}
		spoke := in.NodeID
		b.decision(hub, spoke, message.KindRequest, "hub requests")
		b.decision(hub, spoke, message.KindResponse, "hub responds")
		b.decision(spoke, hub, message.KindRequest, "spoke requests")
		b.decision(spoke, hub, message.KindResponse, "spoke responds")
		b.executeLoop(in)
	}
	b.decision(hub, graph.EndID, message.KindStatus, "hub reports status")
	b.anchor(hub)
	if b.err != nil {
		return nil, b.err
	}
	return &Description{Type: Star, Graph: g, NodeAssignments: assignments}, nil
}

// ProcessMessage implements Compiler
func (StarCompiler) ProcessMessage(msg message.Message, _ RoutingContext) message.Message {
	return msg
}
