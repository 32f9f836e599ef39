// Package topology compiles a declarative participant roster into an
// interaction graph for one of the supported communication patterns.
package topology

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/commgraph/commgraph/internal/core/graph"
	"github.com/commgraph/commgraph/internal/core/message"
	"github.com/commgraph/commgraph/internal/core/player"
)

// Type identifies a topology
type Type string

const (
	Single     Type = "single"
	Star       Type = "star"
	Blackboard Type = "blackboard"
	Mesh       Type = "mesh"
)

// ParseType parses a topology name, ignoring case
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case Single, Star, Blackboard, Mesh:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTopology, s)
}

// Assignment is how many instances of a role take part, and their domains
type Assignment struct {
	Count   int      `json:"count" yaml:"count" toml:"count" validate:"min=1"`
	Domains []string `json:"domains,omitempty" yaml:"domains" toml:"domains"`
}

// Roster maps role ids to their assignment
type Roster map[string]Assignment

// Total returns the number of participant instances
func (r Roster) Total() int {
	n := 0
	for _, a := range r {
		n += a.Count
	}
	return n
}

// NodeAssignment records which node hosts one instance of a role
type NodeAssignment struct {
	NodeID    string `json:"node_id"`
	Domain    string `json:"domain"`
	RoleIndex int    `json:"role_index"`
}

// Description is a compiled topology: the graph plus the per-role node map
type Description struct {
	Type            Type                        `json:"topology_type"`
	Graph           *graph.Graph                `json:"graph"`
	NodeAssignments map[string][]NodeAssignment `json:"node_assignments"`
}

// CompileOptions carries what compilation needs beyond the roster
type CompileOptions struct {
	Roles  map[string]player.Definition
	Anchor AnchorConfig
	// Rand drives random anchor selection. A nil Rand uses the global source.
	Rand *rand.Rand
}

// anchorConfig defaults an unset mode to random selection
func (o CompileOptions) anchorConfig() AnchorConfig {
	if o.Anchor.Mode == "" {
		return AnchorConfig{Mode: AnchorRandom}
	}
	return o.Anchor
}

// RoutingContext is what a compiler sees when post-processing a message
type RoutingContext struct {
	CurrentNode string
	Graph       *graph.Graph
}

// Compiler builds and routes one topology
type Compiler interface {
	Type() Type
	Validate(r Roster) error
	Compile(r Roster, opts CompileOptions) (*Description, error)
	// ProcessMessage may inject a computed target before transition
	// resolution. Most topologies return msg unchanged.
	ProcessMessage(msg message.Message, rc RoutingContext) message.Message
}
