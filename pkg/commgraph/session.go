package commgraph

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"

	graphrepo "github.com/commgraph/commgraph/internal/adapters/repository/graph"
	"github.com/commgraph/commgraph/internal/adapters/repository/memory"
	"github.com/commgraph/commgraph/internal/adapters/repository/postgres"
	"github.com/commgraph/commgraph/internal/adapters/repository/sqlite"
	"github.com/commgraph/commgraph/internal/app/dto"
	"github.com/commgraph/commgraph/internal/app/services"
	"github.com/commgraph/commgraph/internal/app/usecases"
	"github.com/commgraph/commgraph/internal/config"
	"github.com/commgraph/commgraph/internal/core/checkpoint"
	"github.com/commgraph/commgraph/internal/core/topology"
)

// Re-export the types callers need to drive a session
type (
	Description   = topology.Description
	Selection     = config.Selection
	Settings      = config.Settings
	Agent         = usecases.Agent
	Environment   = usecases.Environment
	Observation   = usecases.Observation
	EpisodeResult = dto.EpisodeResult
	EpisodeStatus = dto.EpisodeStatus
)

// Options configure a Session. Only ConfigPath is required.
type Options struct {
	ConfigPath string
	Selection  Selection
	// Settings default to config.DefaultSettings when zero
	Settings    *Settings
	EpisodeID   string
	Goal        string
	Environment Environment
	// Status is shared between sessions of one process; a new board is
	// created when nil
	Status *services.StatusBoard
	// Compilers resolves the routing compiler for descriptions of custom
	// topology types; nil means the built-in compilers
	Compilers *topology.Factory
	Rand      *rand.Rand
	Logger    *slog.Logger
}

// Session is one episode over a compiled topology
type Session struct {
	id       string
	desc     *Description
	settings Settings
	o        *usecases.Orchestrator
	mailbox  *services.Mailbox
	status   *services.StatusBoard
	cps      *services.CheckpointService
	graphs   *graphrepo.InMemoryDescriptionRepository
	closer   func() error
	log      *slog.Logger
}

// NewSession loads the topology file, compiles it for the selection and
// opens the configured checkpoint store
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	f, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	desc, err := f.Compile(opts.Selection, opts.Rand)
	if err != nil {
		return nil, err
	}
	return NewSessionFromDescription(ctx, desc, opts)
}

// NewSessionFromDescription builds a session over an already compiled
// topology; opts.ConfigPath and opts.Selection are ignored
func NewSessionFromDescription(ctx context.Context, desc *Description, opts Options) (*Session, error) {
	settings := config.DefaultSettings()
	if opts.Settings != nil {
		settings = *opts.Settings
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	id := opts.EpisodeID
	if id == "" {
		id = uuid.NewString()
	}

	saver, closer, err := OpenSaver(ctx, settings.Storage)
	if err != nil {
		return nil, err
	}

	mailbox := services.NewMailbox()
	o, err := usecases.NewOrchestrator(desc, usecases.Options{
		EpisodeID:         id,
		Limits:            settings.Limits,
		Rules:             settings.Rules,
		Policy:            settings.Policy,
		StructuredActions: settings.StructuredActions,
		Goal:              opts.Goal,
		Environment:       opts.Environment,
		Conversation:      mailbox,
		Compilers:         opts.Compilers,
		Logger:            log,
	})
	if err != nil {
		_ = closer()
		return nil, err
	}

	graphs := graphrepo.NewInMemoryDescriptionRepository()
	if err := graphs.Save(ctx, id, desc); err != nil {
		_ = closer()
		return nil, err
	}

	status := opts.Status
	if status == nil {
		status = services.NewStatusBoard()
	}
	status.Publish(o.Status())

	return &Session{
		id:       id,
		desc:     desc,
		settings: settings,
		o:        o,
		mailbox:  mailbox,
		status:   status,
		cps:      services.NewCheckpointService(saver, log),
		graphs:   graphs,
		closer:   closer,
		log:      log.With("episode_id", id),
	}, nil
}

// OpenSaver opens the checkpoint store named by the storage settings. The
// returned close function releases it.
func OpenSaver(ctx context.Context, s config.Storage) (checkpoint.Saver, func() error, error) {
	pipeline, err := s.Pipeline()
	if err != nil {
		return nil, nil, err
	}
	switch s.Driver {
	case "", "memory":
		saver := memory.NewSaver(memory.Config{Pipeline: pipeline})
		return saver, saver.Close, nil
	case "sqlite":
		saver, err := sqlite.Open(ctx, s.DSN, pipeline)
		if err != nil {
			return nil, nil, err
		}
		return saver, saver.Close, nil
	case "postgres":
		saver, err := postgres.Connect(ctx, s.DSN, pipeline)
		if err != nil {
			return nil, nil, err
		}
		return saver, func() error { saver.Close(); return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", s.Driver)
}

// ID returns the episode id
func (s *Session) ID() string { return s.id }

// Description returns the compiled topology
func (s *Session) Description() *Description { return s.desc }

// Graphs returns the repository the session's topology is registered in
func (s *Session) Graphs() usecases.DescriptionRepository { return s.graphs }

// Status returns the latest episode status
func (s *Session) Status() EpisodeStatus { return s.o.Status() }

// StatusBoard returns the board the session publishes to
func (s *Session) StatusBoard() *services.StatusBoard { return s.status }

// Orchestrator exposes the turn engine for callers that drive turns
// themselves
func (s *Session) Orchestrator() *usecases.Orchestrator { return s.o }

func (s *Session) runner(agent Agent) *usecases.Runner {
	return usecases.NewRunner(s.o, agent, usecases.RunnerOptions{
		CheckpointEvery: s.settings.CheckpointEvery,
		Checkpoints:     s.cps,
		Status:          s.status,
		Inbox:           s.mailbox,
		Logger:          s.log,
	})
}

// Run plays the episode to its end against agent
func (s *Session) Run(ctx context.Context, agent Agent) (*EpisodeResult, error) {
	return s.runner(agent).Run(ctx)
}

// Resume restores the newest checkpoint of the episode, then plays on
func (s *Session) Resume(ctx context.Context, agent Agent) (*EpisodeResult, error) {
	r := s.runner(agent)
	if err := r.Resume(ctx); err != nil {
		return nil, err
	}
	return r.Run(ctx)
}

// Checkpoints lists the saved checkpoint ids of the episode, newest first
func (s *Session) Checkpoints(ctx context.Context) ([]string, error) {
	return s.cps.List(ctx, s.id)
}

// Close releases the checkpoint store
func (s *Session) Close() error {
	return s.closer()
}
