package services

import (
	"time"

	"github.com/commgraph/commgraph/internal/core/checkpoint"
)

// GoalRole is the author recorded for the seeded goal entry
const GoalRole = "Goal"

// Blackboard is the append-only shared memory of a blackboard episode
// PRINCIPLES:
// - KISS: A slice of entries, never edited in place
// - SRP: Stores writes, knows nothing about routing
type Blackboard struct {
	entries []checkpoint.BoardEntry
	now     func() time.Time
}

// NewBlackboard creates a board, seeding it with the goal when one is given
func NewBlackboard(goal string) *Blackboard {
	b := &Blackboard{now: time.Now}
	if goal != "" {
		b.Write(GoalRole, goal)
	}
	return b
}

// Write appends an entry
func (b *Blackboard) Write(role, content string) checkpoint.BoardEntry {
	e := checkpoint.BoardEntry{Role: role, Content: content, Timestamp: b.now()}
	b.entries = append(b.entries, e)
	return e
}

// History returns a copy of all entries in write order
func (b *Blackboard) History() []checkpoint.BoardEntry {
	return append([]checkpoint.BoardEntry(nil), b.entries...)
}

// Len returns the number of entries
func (b *Blackboard) Len() int {
	return len(b.entries)
}

// Restore replaces the board content
func (b *Blackboard) Restore(entries []checkpoint.BoardEntry) {
	b.entries = append([]checkpoint.BoardEntry(nil), entries...)
}
