package topology

import (
	"github.com/commgraph/commgraph/internal/core/graph"
	"github.com/commgraph/commgraph/internal/core/message"
)

// MeshCompiler builds a full peer-to-peer topology
type MeshCompiler struct{}

// Type implements Compiler
func (MeshCompiler) Type() Type { return Mesh }

// Validate requires at least two participants in total
func (MeshCompiler) Validate(r Roster) error {
	if len(r) == 0 {
		return invalid(Mesh, "requires at least 1 participant role")
	}
	if n := r.Total(); n < 2 {
		return invalid(Mesh, "requires at least 2 participants total, got %d", n)
	}
	return nil
}

// Compile implements Compiler
func (c MeshCompiler) Compile(r Roster, opts CompileOptions) (*Description, error) {
	if err := c.Validate(r); err != nil {
		return nil, err
	}
	instances, assignments, err := instantiate(Mesh, r, opts.Roles)
	if err != nil {
		return nil, err
	}
	g, err := newGraph(instances)
	if err != nil {
		return nil, err
	}

	b := &edgeBuilder{g: g}
	for _, in := range instances {
		b.standard(graph.StartID, in.NodeID, "start")
	}
	for _, from := range instances {
		for _, to := range instances {
			if from.NodeID == to.NodeID {
				continue
			}
			b.decision(from.NodeID, to.NodeID, message.KindRequest, "peer request")
			b.decision(from.NodeID, to.NodeID, message.KindResponse, "peer response")
		}
		b.decision(from.NodeID, graph.EndID, message.KindStatus, "report status")
		b.executeLoop(from)
	}
	if b.err != nil {
		return nil, b.err
	}

	anchor, err := SelectAnchor(Mesh, opts.anchorConfig(), instances, opts.Rand)
	if err != nil {
		return nil, err
	}
	if err := g.SetAnchor(anchor); err != nil {
		return nil, err
	}
	return &Description{Type: Mesh, Graph: g, NodeAssignments: assignments}, nil
}

// ProcessMessage implements Compiler
func (MeshCompiler) ProcessMessage(msg message.Message, _ RoutingContext) message.Message {
	return msg
}
