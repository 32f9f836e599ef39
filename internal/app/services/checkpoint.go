package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/commgraph/commgraph/internal/core/checkpoint"
)

// CheckpointService stores and retrieves episode checkpoints
// PRINCIPLES:
// - SRP: Manages checkpoint operations for episodes
// - DIP: Depends on checkpoint.Saver abstraction
type CheckpointService struct {
	saver checkpoint.Saver
	log   *slog.Logger
	now   func() time.Time
}

// NewCheckpointService creates a new checkpoint service
func NewCheckpointService(saver checkpoint.Saver, log *slog.Logger) *CheckpointService {
	if log == nil {
		log = slog.Default()
	}
	return &CheckpointService{saver: saver, log: log, now: time.Now}
}

// Create saves the episode state and returns the new checkpoint ID
func (s *CheckpointService) Create(ctx context.Context, episodeID, topology string, state *checkpoint.State, meta checkpoint.Metadata) (string, error) {
	cp := &checkpoint.Checkpoint{
		ID:        uuid.NewString(),
		EpisodeID: episodeID,
		Topology:  topology,
		State:     state,
		Metadata:  meta,
		Timestamp: s.now(),
		Version:   checkpoint.Version,
	}
	if err := cp.Validate(); err != nil {
		return "", err
	}
	if err := s.saver.Save(ctx, cp); err != nil {
		return "", fmt.Errorf("failed to save checkpoint: %w", err)
	}
	s.log.Debug("Checkpoint saved", "checkpoint_id", cp.ID, "episode_id", episodeID, "turn", meta.Turn, "round", meta.Round)
	return cp.ID, nil
}

// Load returns a checkpoint by ID
func (s *CheckpointService) Load(ctx context.Context, id string) (*checkpoint.Checkpoint, error) {
	cp, err := s.saver.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", id, err)
	}
	return cp, nil
}

// Latest returns the newest checkpoint of an episode
func (s *CheckpointService) Latest(ctx context.Context, episodeID string) (*checkpoint.Checkpoint, error) {
	cps, err := s.saver.List(ctx, checkpoint.Filter{EpisodeID: episodeID, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if len(cps) == 0 {
		return nil, checkpoint.ErrCheckpointNotFound
	}
	return cps[0], nil
}

// List returns the checkpoint IDs of an episode, newest first
func (s *CheckpointService) List(ctx context.Context, episodeID string) ([]string, error) {
	cps, err := s.saver.List(ctx, checkpoint.Filter{EpisodeID: episodeID, Limit: 100})
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	ids := make([]string, 0, len(cps))
	for _, cp := range cps {
		ids = append(ids, cp.ID)
	}
	return ids, nil
}
