// Package graph provides node definitions
package graph

import "github.com/commgraph/commgraph/internal/core/player"

// NodeKind represents the type of node
type NodeKind string

const (
	// NodeStart is the unique entry node
	NodeStart NodeKind = "START"
	// NodePlayer is a node bound to one player instance
	NodePlayer NodeKind = "PLAYER"
	// NodeEnd is the unique terminal node
	NodeEnd NodeKind = "END"
)

// Reserved node IDs
const (
	StartID = "START"
	EndID   = "END"
)

// Node represents a vertex in the interaction graph
// PRINCIPLES:
// - KISS: Simple node representation
// - SRP: Only responsible for node data
type Node struct {
	ID        string         `json:"id"`
	Kind      NodeKind       `json:"type"`
	Role      string         `json:"role,omitempty"`
	Domain    string         `json:"domain,omitempty"`
	RoleIndex int            `json:"role_index,omitempty"`
	Player    *player.Player `json:"-"`
}

// IsPlayer checks if node hosts a player
func (n *Node) IsPlayer() bool {
	return n.Kind == NodePlayer
}

// IsEnd checks if node is the terminal node
func (n *Node) IsEnd() bool {
	return n.Kind == NodeEnd
}
