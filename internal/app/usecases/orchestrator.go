package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/commgraph/commgraph/internal/app/dto"
	"github.com/commgraph/commgraph/internal/app/services"
	"github.com/commgraph/commgraph/internal/core/checkpoint"
	"github.com/commgraph/commgraph/internal/core/message"
	"github.com/commgraph/commgraph/internal/core/player"
	"github.com/commgraph/commgraph/internal/core/rules"
	"github.com/commgraph/commgraph/internal/core/topology"
	"github.com/commgraph/commgraph/internal/infrastructure/metrics"
)

// Options configure an Orchestrator
type Options struct {
	EpisodeID         string
	Limits            dto.Limits
	Rules             rules.Config
	Policy            rules.Policy
	StructuredActions bool
	Goal              string
	Environment       Environment
	Conversation      Conversation
	// Compilers looks up the routing compiler of the description's type.
	// Nil means the built-in compilers.
	Compilers *topology.Factory
	Logger    *slog.Logger
}

// Orchestrator runs one episode turn by turn: it validates each message,
// applies the communication rule, resolves the transition and hands the
// payload to the environment, the conversation or the blackboard.
// Not safe for concurrent use; one message is in flight at a time.
// PRINCIPLES:
// - SRP: Turn sequencing only, each step is delegated
// - DIP: Environment and Conversation are injected abstractions
// - Fatal outcomes are *dto.AbortError, never a recoverable error type
type Orchestrator struct {
	id         string
	desc       *topology.Description
	compiler   topology.Compiler
	engine     *TransitionEngine
	tracker    *rules.Tracker
	applyRules bool
	stats      *services.Stats
	board      *services.Blackboard
	env        Environment
	conv       Conversation
	limits     dto.Limits
	shape      message.ShapeOptions
	goal       string
	log        *slog.Logger

	abort       *dto.AbortError
	terminated  bool
	observation map[string]any
	lastError   string
	turns       int
	path        []string
}

// NewOrchestrator prepares an episode over a compiled topology. The cursor
// is placed on the anchor; the first Advance is the anchor's turn.
func NewOrchestrator(desc *topology.Description, opts Options) (*Orchestrator, error) {
	if desc == nil || desc.Graph == nil {
		return nil, ErrNilDescription
	}
	if opts.Limits == (dto.Limits{}) {
		opts.Limits = dto.DefaultLimits()
	}
	if err := opts.Limits.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("episode_id", opts.EpisodeID, "topology", desc.Type)

	lookup := topology.New
	if opts.Compilers != nil {
		lookup = opts.Compilers.New
	}
	compiler, err := lookup(desc.Type)
	if err != nil {
		return nil, err
	}
	engine, err := NewTransitionEngine(desc.Graph, desc.Type, log)
	if err != nil {
		return nil, err
	}
	g := desc.Graph
	executeCapable := func(name string) bool {
		p := g.Player(name)
		return p != nil && p.CanExecute()
	}

	o := &Orchestrator{
		id:         opts.EpisodeID,
		desc:       desc,
		compiler:   compiler,
		engine:     engine,
		tracker:    rules.NewTracker(opts.Rules, executeCapable, log),
		applyRules: opts.Policy.Applies(string(desc.Type)),
		stats:      services.NewStats(),
		env:        opts.Environment,
		conv:       opts.Conversation,
		limits:     opts.Limits,
		shape:      message.ShapeOptions{StructuredActions: opts.StructuredActions},
		goal:       opts.Goal,
		log:        log,
	}
	if desc.Type == topology.Blackboard {
		o.board = services.NewBlackboard(opts.Goal)
	}
	engine.Begin()
	o.path = []string{engine.Current()}
	return o, nil
}

// ID returns the episode id
func (o *Orchestrator) ID() string { return o.id }

// Description returns the compiled topology
func (o *Orchestrator) Description() *topology.Description { return o.desc }

// Tracker exposes the communication rule state
func (o *Orchestrator) Tracker() *rules.Tracker { return o.tracker }

// Stats exposes the per-player counters
func (o *Orchestrator) Stats() *services.Stats { return o.stats }

// Board returns the blackboard, or nil outside the blackboard topology
func (o *Orchestrator) Board() *services.Blackboard { return o.board }

// Turns returns the number of Advance calls that reached a player
func (o *Orchestrator) Turns() int { return o.turns }

// Path returns every node visited since the episode began
func (o *Orchestrator) Path() []string { return append([]string(nil), o.path...) }

// CurrentPlayer returns the player whose turn it is, or nil at END
func (o *Orchestrator) CurrentPlayer() *player.Player {
	return o.desc.Graph.Player(o.engine.Current())
}

// Continue closes a completed round and reports whether another turn may
// be played. Reaching a round or transition limit aborts the episode.
func (o *Orchestrator) Continue() bool {
	if o.engine.CompleteRound() {
		metrics.IncRounds()
	}
	ok, reason := o.engine.Continue(o.limits, Flags{Aborted: o.abort != nil, Terminated: o.terminated})
	if reason != "" {
		o.setAbort(&dto.AbortError{Reason: reason, Detail: o.limitDetail(reason)})
	}
	return ok
}

func (o *Orchestrator) limitDetail(reason dto.AbortReason) string {
	switch reason {
	case dto.AbortMaxRounds:
		return fmt.Sprintf("maximum rounds %d reached", o.limits.MaxRounds)
	case dto.AbortMaxTransitions:
		return fmt.Sprintf("maximum transitions per round %d reached", o.limits.MaxTransitionsPerRound)
	}
	return ""
}

// Advance plays one turn from an already extracted JSON object
func (o *Orchestrator) Advance(ctx context.Context, raw map[string]any) (*dto.TurnOutcome, error) {
	p, out, err := o.startTurn()
	if p == nil {
		return out, err
	}
	return o.advance(ctx, p, out, raw, offending(raw))
}

// AdvanceText plays one turn from the agent's raw reply, extracting the
// JSON object from its code block first
func (o *Orchestrator) AdvanceText(ctx context.Context, text string) (*dto.TurnOutcome, error) {
	p, out, err := o.startTurn()
	if p == nil {
		return out, err
	}
	raw, err := message.ExtractObject(text)
	if err != nil {
		return o.reprompt(out, dto.ClassShape, err, text)
	}
	return o.advance(ctx, p, out, raw, text)
}

func (o *Orchestrator) startTurn() (*player.Player, *dto.TurnOutcome, error) {
	if !o.engine.Started() {
		return nil, nil, ErrNotStarted
	}
	if !o.Continue() {
		if o.abort != nil {
			return nil, &dto.TurnOutcome{Status: dto.TurnAborted, FromNode: o.engine.Current(), Abort: o.abort}, o.abort
		}
		return nil, nil, dto.ErrEpisodeFinished
	}
	p := o.CurrentPlayer()
	if p == nil {
		return nil, nil, dto.ErrEpisodeFinished
	}
	o.turns++
	o.stats.RecordRequest(p.Name, o.engine.Round())
	return p, &dto.TurnOutcome{Player: p.Name, FromNode: o.engine.Current()}, nil
}

func (o *Orchestrator) advance(ctx context.Context, p *player.Player, out *dto.TurnOutcome, raw map[string]any, original string) (*dto.TurnOutcome, error) {
	// 1. shape
	msg, err := message.ValidateShape(raw, o.shape)
	if err != nil {
		return o.reprompt(out, dto.ClassShape, err, original)
	}
	out.Kind = msg.Kind
	if err := message.CheckFrom(msg, p.Name); err != nil {
		return o.reprompt(out, dto.ClassShape, err, original)
	}

	// 2. permissions
	if err := p.CheckSend(msg.Kind); err != nil {
		return o.reprompt(out, dto.ClassPermission, err, original)
	}
	if msg.HasTarget() {
		if target := o.recipient(msg.To); target != nil {
			if err := target.CheckReceive(msg.Kind); err != nil {
				return o.reprompt(out, dto.ClassPermission, err, original)
			}
		}
	}

	// 3. communication rule
	if o.applyRules {
		if err := o.tracker.RecordAndCheck(p.Name, msg.Kind, msg.To); err != nil {
			var blocked *rules.BlockedError
			if errors.As(err, &blocked) && blocked.Abort {
				o.stats.RecordViolation(p.Name, o.engine.Round())
				metrics.IncViolation(string(dto.ClassCommunicationBlocked))
				return o.abortTurn(out, &dto.AbortError{
					Reason: dto.AbortCommunicationBlocked,
					Detail: fmt.Sprintf("player %s reached %d blocked attempts", p.Name, blocked.Violations),
					Cause:  err,
				})
			}
			return o.reprompt(out, dto.ClassCommunicationBlocked, err, original)
		}
	}

	// 4. topology routing
	current := o.engine.Current()
	msg = o.compiler.ProcessMessage(msg, topology.RoutingContext{CurrentNode: current, Graph: o.desc.Graph})

	// 5. transition
	next, err := o.engine.ResolveNext(current, msg.Kind, p.Name, msg.To)
	if err != nil {
		return o.reprompt(out, dto.ClassNoTransition, err, original)
	}

	// 6a. environment actions; a failure leaves the cursor on the sender
	if msg.Kind.IsAction() {
		obs, err := o.execute(ctx, msg.Payload())
		if err != nil {
			return o.reprompt(out, dto.ClassActionExecution, err, original)
		}
		o.observe(p, msg, out, obs)
	}

	out.RoundComplete = o.engine.Apply(next)
	out.ToNode = next
	o.path = append(o.path, next)
	metrics.IncTransitions()
	o.log.Info("Transition applied",
		"player", p.Name, "kind", msg.Kind, "from", current, "to", next, "round_complete", out.RoundComplete)

	// 6b. conversation and blackboard
	deliverErr := o.dispatch(ctx, p, msg)

	// 7. success bookkeeping
	o.stats.RecordParsed(p.Name, o.engine.Round())
	if o.applyRules {
		o.updateRules(p.Name, msg)
	}
	o.lastError = ""
	out.Status = dto.TurnApplied
	metrics.IncTurn(string(dto.TurnApplied))
	metrics.IncMessage(string(msg.Kind))
	return out, deliverErr
}

// recipient returns the player a target names. A bare role name stands for
// the first instance of that role.
func (o *Orchestrator) recipient(to string) *player.Player {
	g := o.desc.Graph
	if p := g.Player(to); p != nil {
		return p
	}
	for _, p := range g.Players() {
		if p.Role == to {
			return p
		}
	}
	return nil
}

func (o *Orchestrator) updateRules(sender string, msg message.Message) {
	_, wasBlocked := o.tracker.BlockedTarget(sender)
	_, targetWasBlocked := o.tracker.BlockedTarget(msg.To)
	o.tracker.UpdateAfterSuccess(sender, msg.Kind, msg.To)
	if _, ok := o.tracker.BlockedTarget(sender); ok && !wasBlocked {
		metrics.IncBlocks()
	}
	if msg.To == "" {
		return
	}
	if _, ok := o.tracker.BlockedTarget(msg.To); ok && !targetWasBlocked {
		metrics.IncBlocks()
	}
}

// observe records a successful environment observation
func (o *Orchestrator) observe(p *player.Player, msg message.Message, out *dto.TurnOutcome, obs Observation) {
	out.Observation = obs.Data
	if msg.Kind == message.KindExecute {
		o.observation = obs.Data
	}
	if obs.Done {
		o.terminated = true
		o.log.Info("Environment signaled termination", "player", p.Name)
	}
}

// dispatch hands a non-action payload to the conversation or the
// blackboard. A returned error is a delivery failure.
func (o *Orchestrator) dispatch(ctx context.Context, p *player.Player, msg message.Message) error {
	switch msg.Kind {
	case message.KindRequest, message.KindResponse, message.KindTask:
		if o.conv == nil {
			return nil
		}
		d := dto.Delivery{From: p.Name, To: msg.To, Kind: msg.Kind, Content: msg.Content}
		if err := o.conv.Deliver(ctx, d); err != nil {
			o.log.Error("Delivery failed", "from", d.From, "to", d.To, "kind", d.Kind, "error", err)
			return fmt.Errorf("deliver %s to %s: %w", d.Kind, d.To, err)
		}
	case message.KindWriteBoard:
		if o.board != nil {
			o.board.Write(p.Name, msg.Content)
			o.log.Debug("Blackboard write", "player", p.Name, "entries", o.board.Len())
		}
	}
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, actions []message.Action) (Observation, error) {
	if len(actions) == 0 {
		return Observation{}, &ActionError{Failure: ActionEmpty}
	}
	if o.env == nil {
		return Observation{}, &ActionError{Failure: ActionFailed, Cause: errors.New("no environment configured")}
	}
	obs, err := o.env.Execute(ctx, actions)
	if err != nil {
		return Observation{}, &ActionError{Failure: ActionFailed, Cause: err}
	}
	if obs.Data == nil {
		return Observation{}, &ActionError{Failure: ActionNoObservation}
	}
	return obs, nil
}

// reprompt records a recoverable failure and converts it into a re-prompt,
// or into an abort once the player's violation limits are reached
func (o *Orchestrator) reprompt(out *dto.TurnOutcome, class dto.ErrorClass, err error, original string) (*dto.TurnOutcome, error) {
	o.stats.RecordViolation(out.Player, o.engine.Round())
	metrics.IncViolation(string(class))

	userMsg := message.UserMessage(err)
	out.Status = dto.TurnReprompt
	out.Reprompt = &dto.Reprompt{Class: class, UserMessage: userMsg, Detail: err.Error(), Offending: original}
	o.lastError = userMsg
	o.log.Warn("Turn rejected", "player", out.Player, "class", class, "error", err)

	if abort := o.stats.CheckLimits(out.Player, o.limits); abort != nil {
		abort.Cause = err
		return o.abortTurn(out, abort)
	}
	metrics.IncTurn(string(dto.TurnReprompt))
	return out, err
}

func (o *Orchestrator) abortTurn(out *dto.TurnOutcome, ae *dto.AbortError) (*dto.TurnOutcome, error) {
	o.setAbort(ae)
	out.Status = dto.TurnAborted
	out.Abort = ae
	metrics.IncTurn(string(dto.TurnAborted))
	return out, ae
}

func (o *Orchestrator) setAbort(ae *dto.AbortError) {
	if o.abort != nil {
		return
	}
	o.abort = ae
	metrics.IncAbort(string(ae.Reason))
	o.log.Warn("Episode aborted", "reason", ae.Reason, "detail", ae.Detail)
}

// Status reports the round and episode flags
func (o *Orchestrator) Status() dto.EpisodeStatus {
	st := o.engine.State()
	s := dto.EpisodeStatus{
		EpisodeID:            o.id,
		CurrentNode:          st.CurrentNode,
		CurrentRound:         o.engine.Round(),
		TransitionsThisRound: st.TransitionsThisRound,
		RoundComplete:        st.RoundComplete,
		Aborted:              o.abort != nil,
		Terminated:           o.terminated,
	}
	if o.abort != nil {
		s.AbortReason = o.abort.Reason
	}
	return s
}

// Prompt assembles the turn context of the current player, without inbox
func (o *Orchestrator) Prompt() dto.Prompt {
	pr := dto.Prompt{
		Round:       o.engine.Round(),
		MaxRounds:   o.limits.MaxRounds,
		Goal:        o.goal,
		Observation: o.observation,
		Error:       o.lastError,
	}
	if p := o.CurrentPlayer(); p != nil {
		pr.Player = p.Name
		if !p.ReceivesGoal {
			pr.Goal = ""
		}
	}
	if o.board != nil {
		pr.Board = o.board.History()
	}
	return pr
}

// Snapshot captures everything needed to resume at this turn boundary
func (o *Orchestrator) Snapshot() *checkpoint.State {
	players, rounds := o.stats.Snapshot()
	s := &checkpoint.State{
		Transition:   o.engine.State(),
		Rules:        o.tracker.Snapshot(),
		CurrentRound: o.engine.Round(),
		Turns:        o.turns,
		Aborted:      o.abort != nil,
		Terminated:   o.terminated,
		Players:      players,
		Rounds:       rounds,
		Path:         o.Path(),
	}
	if o.abort != nil {
		s.AbortReason = string(o.abort.Reason)
	}
	if o.board != nil {
		s.Board = o.board.History()
	}
	return s
}

// Restore resumes from a snapshot taken on the same topology
func (o *Orchestrator) Restore(s *checkpoint.State) error {
	if s == nil {
		return checkpoint.ErrNilState
	}
	if err := o.engine.Restore(s.Transition, s.CurrentRound); err != nil {
		return err
	}
	o.tracker.Restore(s.Rules)
	o.stats.Restore(s.Players, s.Rounds)
	o.abort = nil
	if s.Aborted {
		o.abort = &dto.AbortError{Reason: dto.AbortReason(s.AbortReason), Detail: "restored from checkpoint"}
	}
	o.terminated = s.Terminated
	o.turns = s.Turns
	if o.board != nil {
		o.board.Restore(s.Board)
	}
	// checkpoints without a path only know the current round
	o.path = append([]string(nil), s.Path...)
	if len(o.path) == 0 {
		o.path = append(o.path, s.Transition.CurrentRoundNodes...)
	}
	return nil
}

func offending(raw map[string]any) string {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%v", raw)
	}
	return string(b)
}
