package dto

import (
	"fmt"

	"github.com/commgraph/commgraph/internal/core/checkpoint"
	"github.com/commgraph/commgraph/internal/core/message"
)

// Limits bound an episode
type Limits struct {
	MaxRounds               int `json:"max_rounds" yaml:"max_rounds" toml:"max_rounds" env:"MAX_ROUNDS" envDefault:"1" validate:"min=1"`
	MaxTransitionsPerRound  int `json:"max_transitions_per_round" yaml:"max_transitions_per_round" toml:"max_transitions_per_round" env:"MAX_TRANSITIONS_PER_ROUND" envDefault:"10" validate:"min=1"`
	ConsecutiveViolationCap int `json:"player_consecutive_violation_limit" yaml:"player_consecutive_violation_limit" toml:"player_consecutive_violation_limit" env:"CONSECUTIVE_VIOLATION_LIMIT" envDefault:"3" validate:"min=1"`
	TotalViolationCap       int `json:"player_total_violation_limit" yaml:"player_total_violation_limit" toml:"player_total_violation_limit" env:"TOTAL_VIOLATION_LIMIT" envDefault:"5" validate:"min=1"`
}

// DefaultLimits mirrors the envDefault tags
func DefaultLimits() Limits {
	return Limits{MaxRounds: 1, MaxTransitionsPerRound: 10, ConsecutiveViolationCap: 3, TotalViolationCap: 5}
}

// Validate checks every limit is positive
func (l Limits) Validate() error {
	if l.MaxRounds < 1 || l.MaxTransitionsPerRound < 1 || l.ConsecutiveViolationCap < 1 || l.TotalViolationCap < 1 {
		return fmt.Errorf("%w: %+v", ErrInvalidLimits, l)
	}
	return nil
}

// TurnStatus is the result class of one Advance call
type TurnStatus string

const (
	TurnApplied  TurnStatus = "applied"
	TurnReprompt TurnStatus = "reprompt"
	TurnAborted  TurnStatus = "aborted"
)

// ErrorClass groups recoverable turn failures
type ErrorClass string

const (
	ClassShape                ErrorClass = "shape"
	ClassPermission           ErrorClass = "permission"
	ClassNoTransition         ErrorClass = "no_valid_transition"
	ClassCommunicationBlocked ErrorClass = "communication_blocked"
	ClassActionExecution      ErrorClass = "action_execution"
)

// Reprompt is handed back to the agent after a recoverable failure
type Reprompt struct {
	Class       ErrorClass `json:"class"`
	UserMessage string     `json:"user_message"`
	Detail      string     `json:"detail"`
	Offending   string     `json:"offending"`
}

// TurnOutcome describes what one turn did
type TurnOutcome struct {
	Status        TurnStatus     `json:"status"`
	Player        string         `json:"player"`
	Kind          message.Kind   `json:"kind,omitempty"`
	FromNode      string         `json:"from_node"`
	ToNode        string         `json:"to_node,omitempty"`
	RoundComplete bool           `json:"round_complete"`
	Observation   map[string]any `json:"observation,omitempty"`
	Reprompt      *Reprompt      `json:"reprompt,omitempty"`
	Abort         *AbortError    `json:"-"`
}

// EpisodeStatus is the round and episode state exposed to the outer loop
type EpisodeStatus struct {
	EpisodeID            string      `json:"episode_id"`
	CurrentNode          string      `json:"current_node"`
	CurrentRound         int         `json:"current_round"`
	TransitionsThisRound int         `json:"transitions_this_round"`
	RoundComplete        bool        `json:"round_complete"`
	Aborted              bool        `json:"aborted"`
	AbortReason          AbortReason `json:"abort_reason,omitempty"`
	Terminated           bool        `json:"env_terminated"`
}

// Delivery is a message routed to a player's conversation
type Delivery struct {
	From    string       `json:"from"`
	To      string       `json:"to"`
	Kind    message.Kind `json:"kind"`
	Content string       `json:"content"`
}

// Prompt is the structured context an agent receives for its turn
type Prompt struct {
	Player      string                  `json:"player"`
	Round       int                     `json:"round"`
	MaxRounds   int                     `json:"max_rounds"`
	Goal        string                  `json:"goal,omitempty"`
	Inbox       []Delivery              `json:"inbox,omitempty"`
	Observation map[string]any          `json:"observation,omitempty"`
	Board       []checkpoint.BoardEntry `json:"blackboard,omitempty"`
	Error       string                  `json:"error,omitempty"`
}

// EpisodeResult summarises a finished episode
type EpisodeResult struct {
	Status  EpisodeStatus                  `json:"status"`
	Turns   int                            `json:"turns"`
	Players map[string]checkpoint.Counters `json:"player_stats"`
	Rounds  []checkpoint.RoundCounters     `json:"round_stats"`
	Path    []string                       `json:"path"`
}
