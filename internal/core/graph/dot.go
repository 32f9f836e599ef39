package graph

import (
	"bufio"
	"fmt"
	"io"
)

var dotShapes = map[NodeKind]string{
	NodeStart:  "circle",
	NodePlayer: "box",
	NodeEnd:    "doublecircle",
}

// WriteDOT renders the graph in Graphviz DOT format. The anchor node is
// drawn bold and decision edges are labelled with their condition.
func (g *Graph) WriteDOT(w io.Writer, name string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %q {\n", name)
	fmt.Fprintln(bw, "  rankdir=LR;")
	for _, n := range g.Nodes {
		label := n.ID
		if n.IsPlayer() {
			label = fmt.Sprintf("%s (%s)", n.ID, n.Domain)
		}
		style := ""
		if n.ID == g.Anchor {
			style = ", style=bold"
		}
		fmt.Fprintf(bw, "  %q [shape=%s, label=%q%s];\n", n.ID, dotShapes[n.Kind], label, style)
	}
	for _, e := range g.Edges {
		if e.Kind == EdgeDecision {
			fmt.Fprintf(bw, "  %q -> %q [label=%q];\n", e.From, e.To, e.Condition.String())
			continue
		}
		fmt.Fprintf(bw, "  %q -> %q [style=dashed];\n", e.From, e.To)
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
