package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/commgraph/commgraph/internal/app/dto"
	"github.com/commgraph/commgraph/internal/app/services"
	"github.com/commgraph/commgraph/internal/core/checkpoint"
	"github.com/commgraph/commgraph/internal/infrastructure/metrics"
)

// Inbox hands a player the messages delivered to it since its last turn
type Inbox interface {
	Drain(player string) []dto.Delivery
}

// RunnerOptions configure a Runner
type RunnerOptions struct {
	// CheckpointEvery saves a checkpoint after every N turns. Zero saves
	// only the final state.
	CheckpointEvery int
	Checkpoints     *services.CheckpointService
	Status          *services.StatusBoard
	Inbox           Inbox
	Logger          *slog.Logger
}

// Runner drives the outer turn loop of an episode against an Agent
// PRINCIPLES:
// - SRP: Loop control, prompting and checkpoint cadence
// - DIP: The agent and the checkpoint store are injected
type Runner struct {
	o     *Orchestrator
	agent Agent
	opts  RunnerOptions
	log   *slog.Logger
}

// NewRunner creates a runner for an orchestrated episode
func NewRunner(o *Orchestrator, agent Agent, opts RunnerOptions) *Runner {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{o: o, agent: agent, opts: opts, log: log.With("episode_id", o.ID())}
}

// Run plays turns until the episode stops, then saves a final checkpoint
// when a checkpoint service is configured. Re-prompts and aborts are part of
// a normal run; only agent, delivery and storage failures are returned.
func (r *Runner) Run(ctx context.Context) (*dto.EpisodeResult, error) {
	metrics.AddActiveEpisodes(1)
	defer metrics.AddActiveEpisodes(-1)

	r.log.Info("Episode started", "anchor", r.o.Description().Graph.Anchor)
	for r.o.Continue() {
		if err := ctx.Err(); err != nil {
			return r.result(), err
		}
		if err := r.turn(ctx); err != nil {
			return r.result(), err
		}
		r.publish()
		if n := r.opts.CheckpointEvery; n > 0 && r.o.Turns()%n == 0 {
			if err := r.checkpoint(ctx, "periodic"); err != nil {
				return r.result(), err
			}
		}
	}
	r.publish()

	if err := r.checkpoint(ctx, "final"); err != nil {
		return r.result(), err
	}
	res := r.result()
	r.log.Info("Episode finished",
		"turns", res.Turns,
		"rounds", res.Status.CurrentRound,
		"aborted", res.Status.Aborted,
		"abort_reason", res.Status.AbortReason,
		"env_terminated", res.Status.Terminated)
	return res, nil
}

func (r *Runner) turn(ctx context.Context) error {
	p := r.o.CurrentPlayer()
	if p == nil {
		return dto.ErrEpisodeFinished
	}
	prompt := r.o.Prompt()
	if r.opts.Inbox != nil {
		prompt.Inbox = r.opts.Inbox.Drain(p.Name)
	}

	text, err := r.agent.Respond(ctx, p, prompt)
	if err != nil {
		return fmt.Errorf("agent %s: %w", p.Name, err)
	}

	out, err := r.o.AdvanceText(ctx, text)
	switch {
	case err == nil:
		return nil
	case out != nil && out.Status == dto.TurnReprompt:
		r.log.Debug("Re-prompting player", "player", p.Name, "class", out.Reprompt.Class)
		return nil
	case dto.IsAbort(err):
		return nil
	case errors.Is(err, dto.ErrEpisodeFinished):
		return nil
	}
	return err
}

func (r *Runner) publish() {
	if r.opts.Status != nil {
		r.opts.Status.Publish(r.o.Status())
	}
}

func (r *Runner) checkpoint(ctx context.Context, source string) error {
	if r.opts.Checkpoints == nil {
		return nil
	}
	meta := checkpoint.Metadata{Turn: r.o.Turns(), Round: r.o.Status().CurrentRound, Source: source}
	if _, err := r.opts.Checkpoints.Create(ctx, r.o.ID(), string(r.o.Description().Type), r.o.Snapshot(), meta); err != nil {
		return err
	}
	metrics.IncCheckpoints()
	return nil
}

// Resume restores the orchestrator from the newest checkpoint of its
// episode. It returns checkpoint.ErrCheckpointNotFound when there is none.
func (r *Runner) Resume(ctx context.Context) error {
	if r.opts.Checkpoints == nil {
		return checkpoint.ErrCheckpointNotFound
	}
	cp, err := r.opts.Checkpoints.Latest(ctx, r.o.ID())
	if err != nil {
		return err
	}
	if cp.Topology != string(r.o.Description().Type) {
		return fmt.Errorf("checkpoint %s is for topology %s, episode is %s", cp.ID, cp.Topology, r.o.Description().Type)
	}
	if err := r.o.Restore(cp.State); err != nil {
		return err
	}
	r.log.Info("Episode resumed", "checkpoint_id", cp.ID, "turn", cp.Metadata.Turn)
	return nil
}

func (r *Runner) result() *dto.EpisodeResult {
	players, rounds := r.o.Stats().Snapshot()
	return &dto.EpisodeResult{
		Status:  r.o.Status(),
		Turns:   r.o.Turns(),
		Players: players,
		Rounds:  rounds,
		Path:    r.o.Path(),
	}
}
