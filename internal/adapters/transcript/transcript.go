// Package transcript replays a recorded episode: a scripted agent answers
// each turn with the next recorded reply and a scripted environment returns
// the next recorded observation.
package transcript

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/commgraph/commgraph/internal/app/dto"
	"github.com/commgraph/commgraph/internal/app/usecases"
	"github.com/commgraph/commgraph/internal/core/message"
	"github.com/commgraph/commgraph/internal/core/player"
)

// Errors
var (
	ErrExhausted      = errors.New("transcript exhausted")
	ErrPlayerMismatch = errors.New("transcript reply is for another player")
	ErrEmpty          = errors.New("transcript has no turns")
)

// Turn is one recorded agent reply. Player is optional; when set the reply
// is only given to that player.
type Turn struct {
	Player string `yaml:"player" json:"player,omitempty"`
	Reply  string `yaml:"reply" json:"reply"`
}

// Step is one recorded environment result
type Step struct {
	Data  map[string]any `yaml:"data" json:"data,omitempty"`
	Done  bool           `yaml:"done" json:"done,omitempty"`
	Error string         `yaml:"error" json:"error,omitempty"`
}

// Transcript is a recorded episode. JSON transcripts load as well, being
// valid YAML.
type Transcript struct {
	Goal         string `yaml:"goal" json:"goal,omitempty"`
	Category     string `yaml:"category" json:"category,omitempty"`
	TaskType     string `yaml:"task_type" json:"task_type,omitempty"`
	Turns        []Turn `yaml:"turns" json:"turns"`
	Observations []Step `yaml:"observations" json:"observations,omitempty"`
}

// Load reads a transcript file
func Load(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a transcript body, rejecting unknown keys
func Parse(data []byte) (*Transcript, error) {
	var t Transcript
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if len(t.Turns) == 0 {
		return nil, ErrEmpty
	}
	return &t, nil
}

// Agent answers turns from a transcript, in order
type Agent struct {
	mu      sync.Mutex
	turns   []Turn
	next    int
	prompts []dto.Prompt
}

var _ usecases.Agent = (*Agent)(nil)

// NewAgent creates an agent over the recorded turns
func NewAgent(turns []Turn) *Agent {
	return &Agent{turns: turns}
}

// Respond implements usecases.Agent
func (a *Agent) Respond(ctx context.Context, p *player.Player, prompt dto.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.next >= len(a.turns) {
		return "", fmt.Errorf("%w after %d turns", ErrExhausted, len(a.turns))
	}
	t := a.turns[a.next]
	if t.Player != "" && t.Player != p.Name {
		return "", fmt.Errorf("%w: turn %d is for %s, current player is %s", ErrPlayerMismatch, a.next+1, t.Player, p.Name)
	}
	a.next++
	a.prompts = append(a.prompts, prompt)
	return t.Reply, nil
}

// Remaining returns how many replies are left
func (a *Agent) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.turns) - a.next
}

// Prompts returns every prompt the agent was given
func (a *Agent) Prompts() []dto.Prompt {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]dto.Prompt(nil), a.prompts...)
}

// Environment returns recorded observations, in order. Once the recording
// runs out it reports how many actions it was handed.
type Environment struct {
	mu    sync.Mutex
	steps []Step
	next  int
	calls [][]message.Action
}

var _ usecases.Environment = (*Environment)(nil)

// NewEnvironment creates an environment over the recorded steps
func NewEnvironment(steps []Step) *Environment {
	return &Environment{steps: steps}
}

// Execute implements usecases.Environment
func (e *Environment) Execute(ctx context.Context, actions []message.Action) (usecases.Observation, error) {
	if err := ctx.Err(); err != nil {
		return usecases.Observation{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, actions)
	if e.next >= len(e.steps) {
		return usecases.Observation{Data: map[string]any{"actions": len(actions)}}, nil
	}
	s := e.steps[e.next]
	e.next++
	if s.Error != "" {
		return usecases.Observation{}, errors.New(s.Error)
	}
	return usecases.Observation{Data: s.Data, Done: s.Done}, nil
}

// Calls returns the actions of every Execute call
func (e *Environment) Calls() [][]message.Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]message.Action(nil), e.calls...)
}
