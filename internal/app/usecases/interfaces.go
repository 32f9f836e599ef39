package usecases

import (
	"context"

	"github.com/commgraph/commgraph/internal/app/dto"
	"github.com/commgraph/commgraph/internal/core/message"
	"github.com/commgraph/commgraph/internal/core/player"
	"github.com/commgraph/commgraph/internal/core/topology"
)

// Observation is what the environment reports after executing actions
type Observation struct {
	Data map[string]any `json:"data"`
	// Done signals that the environment considers the episode over
	Done bool `json:"done"`
}

// Environment executes EXECUTE and STATUS payloads
// PRINCIPLES:
// - DIP: The orchestrator depends on this abstraction, not an environment
// - ISP: One method
type Environment interface {
	Execute(ctx context.Context, actions []message.Action) (Observation, error)
}

// Conversation receives REQUEST, RESPONSE and TASK messages so they can be
// shown to their recipient on its next turn
type Conversation interface {
	Deliver(ctx context.Context, d dto.Delivery) error
}

// Agent produces the raw text reply of a player for one turn
type Agent interface {
	Respond(ctx context.Context, p *player.Player, prompt dto.Prompt) (string, error)
}

// DescriptionRepository stores compiled topologies by name
// PRINCIPLES:
// - SRP: Only responsible for topology persistence
// - DIP: Used for dependency injection
type DescriptionRepository interface {
	Save(ctx context.Context, name string, d *topology.Description) error
	Get(ctx context.Context, name string) (*topology.Description, error)
	List(ctx context.Context) ([]string, error)
}
