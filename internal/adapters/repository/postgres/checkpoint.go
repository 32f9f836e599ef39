package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commgraph/commgraph/internal/core/checkpoint"
	"github.com/commgraph/commgraph/pkg/serialization"
)

// CheckpointSaver implements checkpoint.Saver for PostgreSQL
type CheckpointSaver struct {
	pool      *pgxpool.Pool
	pipeline  *serialization.Pipeline
	tableName string
}

// Connect opens a pool for dsn and prepares the checkpoint table
func Connect(ctx context.Context, dsn string, pipeline *serialization.Pipeline) (*CheckpointSaver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	s := NewCheckpointSaver(pool, pipeline)
	if err := s.CreateTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewCheckpointSaver creates a new PostgreSQL checkpoint saver
func NewCheckpointSaver(pool *pgxpool.Pool, pipeline *serialization.Pipeline) *CheckpointSaver {
	if pipeline == nil {
		pipeline = serialization.Default()
	}
	return &CheckpointSaver{
		pool:      pool,
		pipeline:  pipeline,
		tableName: "checkpoints",
	}
}

// Save stores a checkpoint, replacing one with the same ID
func (s *CheckpointSaver) Save(ctx context.Context, cp *checkpoint.Checkpoint) error {
	if cp == nil {
		return checkpoint.ErrInvalidCheckpointID
	}
	if err := cp.Validate(); err != nil {
		return err
	}

	data, err := s.pipeline.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint state: %w", err)
	}
	metadataJSON, err := json.Marshal(cp.Metadata)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, episode_id, topology, state, codec, metadata, timestamp, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			codec = EXCLUDED.codec,
			metadata = EXCLUDED.metadata,
			timestamp = EXCLUDED.timestamp
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		cp.ID, cp.EpisodeID, cp.Topology, data, s.pipeline.Name(), metadataJSON, cp.Timestamp, cp.Version)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by ID
func (s *CheckpointSaver) Load(ctx context.Context, id string) (*checkpoint.Checkpoint, error) {
	if id == "" {
		return nil, checkpoint.ErrInvalidCheckpointID
	}

	query := fmt.Sprintf(`
		SELECT id, episode_id, topology, state, codec, metadata, timestamp, version
		FROM %s
		WHERE id = $1
	`, s.tableName)

	cp, err := s.scan(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkpoint.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return cp, nil
}

// List retrieves checkpoints matching the filter, newest first
func (s *CheckpointSaver) List(ctx context.Context, filter checkpoint.Filter) ([]*checkpoint.Checkpoint, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []*checkpoint.Checkpoint
	for rows.Next() {
		cp, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}

// Delete removes a checkpoint by ID
func (s *CheckpointSaver) Delete(ctx context.Context, id string) error {
	if id == "" {
		return checkpoint.ErrInvalidCheckpointID
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	if result.RowsAffected() == 0 {
		return checkpoint.ErrCheckpointNotFound
	}
	return nil
}

// CreateTables creates the checkpoint table and its indexes
func (s *CheckpointSaver) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(64) PRIMARY KEY,
			episode_id VARCHAR(64) NOT NULL,
			topology VARCHAR(32) NOT NULL,
			state BYTEA NOT NULL,
			codec VARCHAR(32) NOT NULL,
			metadata JSONB,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			version VARCHAR(16) NOT NULL DEFAULT '1'
		);

		CREATE INDEX IF NOT EXISTS idx_%s_episode_id ON %s (episode_id);
		CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s (timestamp);
	`, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (s *CheckpointSaver) scan(row pgx.Row) (*checkpoint.Checkpoint, error) {
	var (
		cp           checkpoint.Checkpoint
		data         []byte
		codec        string
		metadataJSON []byte
	)
	if err := row.Scan(&cp.ID, &cp.EpisodeID, &cp.Topology, &data, &codec, &metadataJSON, &cp.Timestamp, &cp.Version); err != nil {
		return nil, err
	}
	if codec != s.pipeline.Name() {
		return nil, fmt.Errorf("checkpoint %s was written with %s, saver reads %s", cp.ID, codec, s.pipeline.Name())
	}
	cp.State = &checkpoint.State{}
	if err := s.pipeline.Unmarshal(data, cp.State); err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint state: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to deserialize metadata: %w", err)
		}
	}
	return &cp, nil
}

// buildListQuery constructs the SQL query for listing checkpoints
func (s *CheckpointSaver) buildListQuery(filter checkpoint.Filter) (string, []any) {
	query := fmt.Sprintf("SELECT id, episode_id, topology, state, codec, metadata, timestamp, version FROM %s WHERE 1=1", s.tableName)
	args := make([]any, 0)
	argCount := 0

	if filter.EpisodeID != "" {
		argCount++
		query += fmt.Sprintf(" AND episode_id = $%d", argCount)
		args = append(args, filter.EpisodeID)
	}
	if filter.Since != nil {
		argCount++
		query += fmt.Sprintf(" AND timestamp > $%d", argCount)
		args = append(args, *filter.Since)
	}
	if filter.Before != nil {
		argCount++
		query += fmt.Sprintf(" AND timestamp < $%d", argCount)
		args = append(args, *filter.Before)
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if filter.Limit > 0 {
		argCount++
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		argCount++
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	return query, args
}

// Close closes the connection pool
func (s *CheckpointSaver) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
