// Package graph provides edge definitions
package graph

import (
	"fmt"
	"strings"

	"github.com/commgraph/commgraph/internal/core/message"
)

// EdgeKind represents the type of edge
type EdgeKind string

const (
	// EdgeStandard is taken when no decision edge applies
	EdgeStandard EdgeKind = "STANDARD"
	// EdgeDecision is taken only when its condition matches the sent message
	EdgeDecision EdgeKind = "DECISION"
)

// Condition gates a decision edge on the message just sent.
// Empty allow-sets accept any role.
type Condition struct {
	Kind        message.Kind `json:"type"`
	AllowedFrom []string     `json:"allowed_from_roles,omitempty"`
	AllowedTo   []string     `json:"allowed_to_roles,omitempty"`
}

// Matches evaluates the condition. Roles match an allow-set by exact id or
// by base role; an empty role is not constrained.
func (c *Condition) Matches(kind message.Kind, fromRole, toRole string) bool {
	if c.Kind != kind {
		return false
	}
	return roleAllowed(fromRole, c.AllowedFrom) && roleAllowed(toRole, c.AllowedTo)
}

func roleAllowed(role string, allowed []string) bool {
	if len(allowed) == 0 || role == "" {
		return true
	}
	base := message.BaseRole(role)
	for _, a := range allowed {
		if a == role || a == base {
			return true
		}
	}
	return false
}

func (c *Condition) String() string {
	parts := []string{string(c.Kind)}
	if len(c.AllowedFrom) > 0 {
		parts = append(parts, "from: "+strings.Join(c.AllowedFrom, ","))
	}
	if len(c.AllowedTo) > 0 {
		parts = append(parts, "to: "+strings.Join(c.AllowedTo, ","))
	}
	return strings.Join(parts, " | ")
}

// Edge represents a connection between nodes
// PRINCIPLES:
// - KISS: Simple edge representation
// - SRP: Only responsible for edge data
type Edge struct {
	From      string     `json:"from"`
	To        string     `json:"to"`
	Kind      EdgeKind   `json:"type"`
	Condition *Condition `json:"condition,omitempty"`
	Label     string     `json:"description,omitempty"`
}

// IsSelfLoop checks if edge returns to its source
func (e *Edge) IsSelfLoop() bool {
	return e.From == e.To
}

func (e *Edge) String() string {
	if e.Condition != nil {
		return fmt.Sprintf("%s -[%s]-> %s", e.From, e.Condition, e.To)
	}
	return fmt.Sprintf("%s --> %s", e.From, e.To)
}
