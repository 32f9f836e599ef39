package topology

import (
	"github.com/commgraph/commgraph/internal/core/graph"
	"github.com/commgraph/commgraph/internal/core/message"
)

// SingleCompiler builds the one-agent topology: the agent loops on EXECUTE
// and is its own anchor.
type SingleCompiler struct{}

// Type implements Compiler
func (SingleCompiler) Type() Type { return Single }

// Validate requires exactly one role with count 1
func (SingleCompiler) Validate(r Roster) error {
	if len(r) != 1 {
		return invalid(Single, "requires exactly one role, got %d", len(r))
	}
	for role, a := range r {
		if a.Count != 1 {
			return invalid(Single, "role %q must have count 1, got %d", role, a.Count)
		}
	}
	return nil
}

// Compile implements Compiler
func (c SingleCompiler) Compile(r Roster, opts CompileOptions) (*Description, error) {
	if err := c.Validate(r); err != nil {
		return nil, err
	}
	instances, assignments, err := instantiate(Single, r, opts.Roles)
	if err != nil {
		return nil, err
	}
	g, err := newGraph(instances)
	if err != nil {
		return nil, err
	}

	solo := instances[0].NodeID
	b := &edgeBuilder{g: g}
	b.standard(graph.StartID, solo, "start")
	b.decision(solo, solo, message.KindExecute, "execute actions")
	b.standard(solo, graph.EndID, "finish")
	b.anchor(solo)
	if b.err != nil {
		return nil, b.err
	}
	return &Description{Type: Single, Graph: g, NodeAssignments: assignments}, nil
}

// ProcessMessage implements Compiler
func (SingleCompiler) ProcessMessage(msg message.Message, _ RoutingContext) message.Message {
	return msg
}
