// Package checkpoint provides the episode checkpoint entity and the
// persistence interface its stores implement.
package checkpoint

import (
	"time"

	"github.com/commgraph/commgraph/internal/core/graph"
	"github.com/commgraph/commgraph/internal/core/rules"
)

// Version is the snapshot layout written by this build
const Version = "1"

// Checkpoint represents a saved episode between two turns
// PRINCIPLES:
// - KISS: Simple struct with clear fields
// - SRP: Only responsible for checkpoint data structure
type Checkpoint struct {
	ID        string    `json:"id"`
	EpisodeID string    `json:"episode_id"`
	Topology  string    `json:"topology"`
	State     *State    `json:"state"`
	Metadata  Metadata  `json:"metadata"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// State is everything needed to resume an episode at a turn boundary
type State struct {
	Transition   graph.TransitionState `json:"transition" msgpack:"transition"`
	Rules        rules.State           `json:"rules" msgpack:"rules"`
	CurrentRound int                   `json:"current_round" msgpack:"current_round"`
	Turns        int                   `json:"turns" msgpack:"turns"`
	Aborted      bool                  `json:"aborted" msgpack:"aborted"`
	AbortReason  string                `json:"abort_reason,omitempty" msgpack:"abort_reason"`
	Terminated   bool                  `json:"env_terminated" msgpack:"env_terminated"`
	Players      map[string]Counters   `json:"players" msgpack:"players"`
	Rounds       []RoundCounters       `json:"rounds,omitempty" msgpack:"rounds"`
	Board        []BoardEntry          `json:"blackboard,omitempty" msgpack:"blackboard"`
	// Path lists every node visited since the episode started
	Path []string `json:"path,omitempty" msgpack:"path"`
}

// Counters are per-player turn statistics
type Counters struct {
	Requests       int `json:"requests" msgpack:"requests"`
	Parsed         int `json:"parsed" msgpack:"parsed"`
	Violated       int `json:"violated" msgpack:"violated"`
	ViolatedStreak int `json:"violated_streak" msgpack:"violated_streak"`
}

// RoundCounters are the statistics of one round
type RoundCounters struct {
	Round   int                 `json:"round" msgpack:"round"`
	Players map[string]Counters `json:"players" msgpack:"players"`
}

// BoardEntry is one blackboard write
type BoardEntry struct {
	Role      string    `json:"role_id" msgpack:"role_id"`
	Content   string    `json:"content" msgpack:"content"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

// Metadata contains additional information about a checkpoint
type Metadata struct {
	Turn   int      `json:"turn"`
	Round  int      `json:"round"`
	Source string   `json:"source"`
	Tags   []string `json:"tags,omitempty"`
}

// Validate ensures checkpoint integrity
// PRINCIPLES:
// - SRP: Single responsibility - validation only
// - KISS: Simple validation rules, easy to understand
func (c *Checkpoint) Validate() error {
	if c.ID == "" {
		return ErrInvalidCheckpointID
	}
	if c.EpisodeID == "" {
		return ErrInvalidEpisodeID
	}
	if c.State == nil {
		return ErrNilState
	}
	return nil
}
