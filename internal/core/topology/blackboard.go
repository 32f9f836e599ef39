package topology

import (
	"github.com/commgraph/commgraph/internal/core/graph"
	"github.com/commgraph/commgraph/internal/core/message"
)

// BlackboardCompiler builds a shared-memory topology where participants take
// turns in a fixed round-robin order, passing control by writing to the
// board.
type BlackboardCompiler struct{}

// Type implements Compiler
func (BlackboardCompiler) Type() Type { return Blackboard }

// Validate requires at least two participants in total
func (BlackboardCompiler) Validate(r Roster) error {
	if len(r) == 0 {
		return invalid(Blackboard, "requires at least 1 participant role")
	}
	if n := r.Total(); n < 2 {
		return invalid(Blackboard, "requires at least 2 participants total, got %d", n)
	}
	return nil
}

// Compile implements Compiler
func (c BlackboardCompiler) Compile(r Roster, opts CompileOptions) (*Description, error) {
	if err := c.Validate(r); err != nil {
		return nil, err
	}
	instances, assignments, err := instantiate(Blackboard, r, opts.Roles)
	if err != nil {
		return nil, err
	}
	g, err := newGraph(instances)
	if err != nil {
		return nil, err
	}
	sequence := nodeIDs(instances)
	if err := g.SetRoundRobin(sequence); err != nil {
		return nil, err
	}

	b := &edgeBuilder{g: g}
	for _, id := range sequence {
		b.standard(graph.StartID, id, "start")
	}
	for i, in := range instances {
		next := sequence[(i+1)%len(sequence)]
		b.decision(in.NodeID, next, message.KindWriteBoard, "write board and pass turn")
		b.decision(in.NodeID, graph.EndID, message.KindStatus, "report status")
		b.executeLoop(in)
	}
	if b.err != nil {
		return nil, b.err
	}

	anchor, err := SelectAnchor(Blackboard, opts.anchorConfig(), instances, opts.Rand)
	if err != nil {
		return nil, err
	}
	if err := g.SetAnchor(anchor); err != nil {
		return nil, err
	}
	return &Description{Type: Blackboard, Graph: g, NodeAssignments: assignments}, nil
}

// ProcessMessage routes WRITE_BOARD to the round-robin successor of the
// current node.
func (BlackboardCompiler) ProcessMessage(msg message.Message, rc RoutingContext) message.Message {
	if msg.Kind != message.KindWriteBoard || rc.Graph == nil {
		return msg
	}
	if next, ok := rc.Graph.Successor(rc.CurrentNode); ok {
		msg.To = next
	}
	return msg
}
