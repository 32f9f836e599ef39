package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commgraph/commgraph/internal/core/checkpoint"
	"github.com/commgraph/commgraph/internal/core/graph"
	"github.com/commgraph/commgraph/internal/core/rules"
	"github.com/commgraph/commgraph/pkg/serialization"
)

func newTestSaver(t *testing.T, pipeline *serialization.Pipeline) *CheckpointSaver {
	t.Helper()
	saver, err := Open(context.Background(), ":memory:", pipeline)
	require.NoError(t, err)
	t.Cleanup(func() { _ = saver.Close() })
	return saver
}

func testCheckpoint(id, episode string, ts time.Time) *checkpoint.Checkpoint {
	return &checkpoint.Checkpoint{
		ID:        id,
		EpisodeID: episode,
		Topology:  "blackboard",
		State: &checkpoint.State{
			Transition: graph.TransitionState{
				CurrentNode:          "writer_1",
				CurrentRoundNodes:    []string{"writer_0", "writer_1"},
				NonAnchorVisited:     true,
				TransitionsThisRound: 2,
			},
			Rules:        rules.State{Violations: map[string]int{"writer_0": 1}},
			CurrentRound: 2,
			Board:        []checkpoint.BoardEntry{{Role: "Goal", Content: "draft a plan", Timestamp: ts}},
		},
		Metadata:  checkpoint.Metadata{Turn: 7, Round: 2, Source: "test", Tags: []string{"auto"}},
		Timestamp: ts,
		Version:   checkpoint.Version,
	}
}

func TestSQLiteCheckpointSaver(t *testing.T) {
	ctx := context.Background()
	saver := newTestSaver(t, nil)
	cp := testCheckpoint("test-1", "ep-1", time.Now())

	require.NoError(t, saver.Save(ctx, cp))

	loaded, err := saver.Load(ctx, "test-1")
	require.NoError(t, err)
	assert.Equal(t, cp.ID, loaded.ID)
	assert.Equal(t, cp.EpisodeID, loaded.EpisodeID)
	assert.Equal(t, cp.Topology, loaded.Topology)
	assert.Equal(t, cp.State.Transition, loaded.State.Transition)
	assert.Equal(t, cp.State.Rules.Violations, loaded.State.Rules.Violations)
	assert.Equal(t, "draft a plan", loaded.State.Board[0].Content)
	assert.Equal(t, cp.Metadata, loaded.Metadata)
	assert.True(t, cp.Timestamp.Equal(loaded.Timestamp))

	cp.State.CurrentRound = 3
	require.NoError(t, saver.Save(ctx, cp))
	loaded, err = saver.Load(ctx, "test-1")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.State.CurrentRound)

	checkpoints, err := saver.List(ctx, checkpoint.Filter{EpisodeID: "ep-1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, "test-1", checkpoints[0].ID)

	require.NoError(t, saver.Delete(ctx, "test-1"))
	_, err = saver.Load(ctx, "test-1")
	assert.ErrorIs(t, err, checkpoint.ErrCheckpointNotFound)
	assert.ErrorIs(t, saver.Delete(ctx, "test-1"), checkpoint.ErrCheckpointNotFound)
}

func TestSQLiteCheckpointSaver_ListOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	saver := newTestSaver(t, nil)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		require.NoError(t, saver.Save(ctx, testCheckpoint(fmt.Sprintf("cp-%d", i), "ep", base.Add(time.Duration(i)*time.Minute))))
	}

	ids := func(cps []*checkpoint.Checkpoint) []string {
		out := make([]string, 0, len(cps))
		for _, cp := range cps {
			out = append(out, cp.ID)
		}
		return out
	}

	all, err := saver.List(ctx, checkpoint.Filter{EpisodeID: "ep"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cp-3", "cp-2", "cp-1", "cp-0"}, ids(all))

	page, err := saver.List(ctx, checkpoint.Filter{EpisodeID: "ep", Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"cp-2", "cp-1"}, ids(page))

	tail, err := saver.List(ctx, checkpoint.Filter{EpisodeID: "ep", Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"cp-0"}, ids(tail))

	_, err = saver.List(ctx, checkpoint.Filter{Offset: -1})
	assert.ErrorIs(t, err, checkpoint.ErrInvalidOffset)
}

func TestSQLiteCheckpointSaver_CodecMismatch(t *testing.T) {
	ctx := context.Background()
	jsonPipeline, err := serialization.NewPipeline(serialization.JSON(), serialization.CompressionNone)
	require.NoError(t, err)

	writer := newTestSaver(t, jsonPipeline)
	require.NoError(t, writer.Save(ctx, testCheckpoint("cp", "ep", time.Now())))

	reader := NewCheckpointSaver(writer.db, serialization.Default())
	_, err = reader.Load(ctx, "cp")
	assert.Error(t, err)
}

func TestSQLiteCheckpointSaver_Errors(t *testing.T) {
	ctx := context.Background()
	saver := &CheckpointSaver{pipeline: serialization.Default(), tableName: "checkpoints"}

	assert.Equal(t, checkpoint.ErrInvalidCheckpointID, saver.Save(ctx, nil))

	_, err := saver.Load(ctx, "")
	assert.Equal(t, checkpoint.ErrInvalidCheckpointID, err)

	assert.Equal(t, checkpoint.ErrInvalidCheckpointID, saver.Delete(ctx, ""))
}

func TestWithTableName(t *testing.T) {
	saver := NewCheckpointSaver(nil, nil)
	assert.Equal(t, "episodes_cp", saver.WithTableName("episodes_cp").tableName)
	assert.Equal(t, "episodes_cp", saver.WithTableName("x; DROP TABLE y").tableName)
}
