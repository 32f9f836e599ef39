package usecases

import (
	"fmt"
	"log/slog"

	"github.com/commgraph/commgraph/internal/app/dto"
	"github.com/commgraph/commgraph/internal/core/graph"
	"github.com/commgraph/commgraph/internal/core/message"
	"github.com/commgraph/commgraph/internal/core/topology"
)

// TransitionEngine moves the cursor over a compiled graph and tracks rounds.
// It owns the TransitionState and the round counter; nothing else mutates
// them. Not safe for concurrent use.
// PRINCIPLES:
// - SRP: Edge resolution and round bookkeeping only
// - KISS: Lookups are filtered scans over the graph's edge index
type TransitionEngine struct {
	graph    *graph.Graph
	topology topology.Type
	state    graph.TransitionState
	round    int
	started  bool
	log      *slog.Logger
}

// NewTransitionEngine validates g and returns an engine positioned before
// START. Call Begin to place the cursor on the anchor.
func NewTransitionEngine(g *graph.Graph, t topology.Type, log *slog.Logger) (*TransitionEngine, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph not playable: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &TransitionEngine{
		graph:    g,
		topology: t,
		state:    graph.TransitionState{CurrentNode: graph.StartID},
		log:      log,
	}, nil
}

// Begin places the cursor on the anchor. The move out of START does not
// count as a transition of the first round.
func (e *TransitionEngine) Begin() {
	e.state = graph.TransitionState{
		CurrentNode:       e.graph.Anchor,
		CurrentRoundNodes: []string{e.graph.Anchor},
	}
	e.round = 0
	e.started = true
	e.log.Debug("Episode begins at anchor", "anchor", e.graph.Anchor, "topology", e.topology)
}

// Started reports whether Begin or Restore has run
func (e *TransitionEngine) Started() bool { return e.started }

// Graph returns the compiled graph
func (e *TransitionEngine) Graph() *graph.Graph { return e.graph }

// Current returns the node id under the cursor
func (e *TransitionEngine) Current() string { return e.state.CurrentNode }

// Round returns the number of completed rounds
func (e *TransitionEngine) Round() int { return e.round }

// State returns a copy of the transition state
func (e *TransitionEngine) State() graph.TransitionState { return e.state.Clone() }

// ResolveNext picks the destination of a message sent at current.
//
// STATUS always leads to END. A message with a target needs a matching
// decision edge to that target. A message without a target whose kind
// labels some decision edge out of current needs a matching self-loop.
// Otherwise the first standard edge out of current is taken.
func (e *TransitionEngine) ResolveNext(current string, kind message.Kind, sender, target string) (string, error) {
	if kind == message.KindStatus {
		return graph.EndID, nil
	}
	violation := func(err error) error {
		return &RuleViolation{Err: err, Node: current, Kind: kind, Sender: sender, Target: target}
	}

	decisions := e.graph.DecisionEdgesFrom(current)
	if target != "" {
		for _, edge := range decisions {
			if edge.To == target && edge.Condition.Matches(kind, sender, target) {
				return target, nil
			}
		}
		return "", violation(ErrNoValidTransition)
	}

	if e.graph.HasDecisionKind(current, kind) {
		for _, edge := range decisions {
			if edge.IsSelfLoop() && edge.Condition.Matches(kind, sender, "") {
				return current, nil
			}
		}
		return "", violation(ErrNoValidSelfLoop)
	}

	if standard := e.graph.StandardEdgesFrom(current); len(standard) > 0 {
		return standard[0].To, nil
	}
	if len(decisions) > 0 {
		return "", violation(ErrNoValidSelfLoop)
	}
	return "", violation(ErrNoValidTransition)
}

// Apply moves the cursor to next and reports whether the round is complete.
// A round completes on reaching END, or on returning to the anchor after a
// non-anchor node was visited. In the single topology every arrival at the
// anchor completes the round.
func (e *TransitionEngine) Apply(next string) bool {
	e.state.CurrentRoundNodes = append(e.state.CurrentRoundNodes, next)
	e.state.TransitionsThisRound++
	e.state.CurrentNode = next

	anchor := e.graph.Anchor
	if next != anchor {
		e.state.NonAnchorVisited = true
	}
	switch {
	case next == graph.EndID:
		e.state.RoundComplete = true
	case next == anchor && (e.topology == topology.Single || e.state.NonAnchorVisited):
		e.state.RoundComplete = true
	}
	return e.state.RoundComplete
}

// StartNewRound resets the per-round tracking, keeping the cursor
func (e *TransitionEngine) StartNewRound() {
	e.state = graph.TransitionState{
		CurrentNode:       e.state.CurrentNode,
		CurrentRoundNodes: []string{e.state.CurrentNode},
	}
}

// CompleteRound counts a finished round and starts the next one. It is a
// no-op while the round is still open.
func (e *TransitionEngine) CompleteRound() bool {
	if !e.state.RoundComplete {
		return false
	}
	e.log.Info("Round complete",
		"round", e.round,
		"path", e.state.CurrentRoundNodes,
		"transitions", e.state.TransitionsThisRound)
	e.round++
	e.StartNewRound()
	return true
}

// Flags are the one-way episode flags owned by the orchestrator
type Flags struct {
	Aborted    bool
	Terminated bool
}

// Continue decides whether another turn may be played. A non-empty reason
// means the caller must abort the episode with it.
func (e *TransitionEngine) Continue(limits dto.Limits, f Flags) (bool, dto.AbortReason) {
	switch {
	case f.Aborted, f.Terminated:
		return false, ""
	case e.state.CurrentNode == graph.EndID:
		return false, ""
	case e.round >= limits.MaxRounds:
		return false, dto.AbortMaxRounds
	case e.state.TransitionsThisRound >= limits.MaxTransitionsPerRound:
		return false, dto.AbortMaxTransitions
	}
	return true, ""
}

// Restore replaces the engine state, e.g. from a checkpoint
func (e *TransitionEngine) Restore(state graph.TransitionState, round int) error {
	if !e.graph.HasNode(state.CurrentNode) {
		return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, state.CurrentNode)
	}
	e.state = state.Clone()
	e.round = round
	e.started = true
	return nil
}
