package services

import (
	"context"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memory "github.com/commgraph/commgraph/internal/adapters/repository/memory"
	"github.com/commgraph/commgraph/internal/app/dto"
	"github.com/commgraph/commgraph/internal/core/checkpoint"
	"github.com/commgraph/commgraph/internal/core/graph"
	"github.com/commgraph/commgraph/internal/core/message"
)

func TestBlackboard(t *testing.T) {
	b := NewBlackboard("find the bug")
	require.Equal(t, 1, b.Len())
	assert.Equal(t, GoalRole, b.History()[0].Role)

	b.Write("writer_0", "first idea")
	b.Write("writer_1", "second idea")

	h := b.History()
	require.Len(t, h, 3)
	assert.Equal(t, "writer_0", h[1].Role)
	assert.Equal(t, "second idea", h[2].Content)

	h[1].Content = "mutated"
	assert.Equal(t, "first idea", b.History()[1].Content)

	empty := NewBlackboard("")
	assert.Equal(t, 0, empty.Len())
	empty.Restore(h[:1])
	assert.Equal(t, 1, empty.Len())
}

func TestStats_LimitsAndStreak(t *testing.T) {
	limits := dto.Limits{MaxRounds: 1, MaxTransitionsPerRound: 10, ConsecutiveViolationCap: 3, TotalViolationCap: 5}
	s := NewStats()

	s.RecordViolation("hub", 0)
	s.RecordViolation("hub", 0)
	assert.Nil(t, s.CheckLimits("hub", limits))

	s.RecordParsed("hub", 0)
	assert.Equal(t, 0, s.Player("hub").ViolatedStreak)
	assert.Equal(t, 2, s.Player("hub").Violated)

	s.RecordViolation("hub", 0)
	s.RecordViolation("hub", 1)
	assert.Nil(t, s.CheckLimits("hub", limits))

	s.RecordViolation("hub", 1)
	abort := s.CheckLimits("hub", limits)
	require.NotNil(t, abort)
	assert.Equal(t, dto.AbortConsecutiveViolations, abort.Reason)

	t.Run("total cap", func(t *testing.T) {
		s := NewStats()
		for i := 0; i < 5; i++ {
			s.RecordViolation("spoke", 0)
			if i%2 == 1 {
				s.RecordParsed("spoke", 0)
			}
		}
		abort := s.CheckLimits("spoke", limits)
		require.NotNil(t, abort)
		assert.Equal(t, dto.AbortTotalViolations, abort.Reason)
	})

	t.Run("unknown player", func(t *testing.T) {
		assert.Nil(t, NewStats().CheckLimits("nobody", limits))
	})
}

func TestStats_SnapshotRestore(t *testing.T) {
	s := NewStats()
	s.RecordRequest("a", 0)
	s.RecordParsed("a", 0)
	s.RecordRequest("a", 1)
	s.RecordViolation("b", 1)

	players, rounds := s.Snapshot()
	require.Len(t, rounds, 2)
	assert.Equal(t, 0, rounds[0].Round)
	assert.Equal(t, 2, players["a"].Requests)

	restored := NewStats()
	restored.Restore(players, rounds)
	p2, r2 := restored.Snapshot()
	assert.Equal(t, players, p2)
	assert.Equal(t, rounds, r2)
}

func TestCheckpointService(t *testing.T) {
	ctx := context.Background()
	saver := memory.Default()
	svc := NewCheckpointService(saver, slogt.New(t))

	clock := time.Now()
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	state := &checkpoint.State{Transition: graph.TransitionState{CurrentNode: "hub"}}
	first, err := svc.Create(ctx, "ep-1", "star", state, checkpoint.Metadata{Turn: 1})
	require.NoError(t, err)
	second, err := svc.Create(ctx, "ep-1", "star", state, checkpoint.Metadata{Turn: 2})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	latest, err := svc.Latest(ctx, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)
	assert.Equal(t, 2, latest.Metadata.Turn)

	ids, err := svc.List(ctx, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, []string{second, first}, ids)

	loaded, err := svc.Load(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "hub", loaded.State.Transition.CurrentNode)

	_, err = svc.Latest(ctx, "missing")
	assert.ErrorIs(t, err, checkpoint.ErrCheckpointNotFound)

	_, err = svc.Create(ctx, "", "star", state, checkpoint.Metadata{})
	assert.ErrorIs(t, err, checkpoint.ErrInvalidEpisodeID)
}

func TestStatusBoard(t *testing.T) {
	b := NewStatusBoard()
	b.Publish(dto.EpisodeStatus{EpisodeID: "b", CurrentNode: "hub"})
	b.Publish(dto.EpisodeStatus{EpisodeID: "a", CurrentNode: "END"})
	b.Publish(dto.EpisodeStatus{EpisodeID: "b", CurrentNode: "spoke_0"})

	s, ok := b.Get("b")
	require.True(t, ok)
	assert.Equal(t, "spoke_0", s.CurrentNode)

	list := b.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].EpisodeID)

	b.Remove("a")
	_, ok = b.Get("a")
	assert.False(t, ok)
}

func TestMailbox(t *testing.T) {
	ctx := context.Background()
	m := NewMailbox()

	require.NoError(t, m.Deliver(ctx, dto.Delivery{From: "hub", To: "worker_1", Kind: message.KindRequest, Content: "go"}))
	require.NoError(t, m.Deliver(ctx, dto.Delivery{From: "hub", Kind: message.KindTask, Content: "everyone"}))
	require.NoError(t, m.Deliver(ctx, dto.Delivery{From: "worker_2", To: "worker_1", Kind: message.KindResponse, Content: "done"}))
	assert.Equal(t, 2, m.Pending("worker_1"))

	got := m.Drain("worker_1")
	require.Len(t, got, 3)
	assert.Equal(t, "go", got[0].Content)
	assert.Equal(t, "done", got[1].Content)
	assert.Equal(t, "everyone", got[2].Content)
	assert.Zero(t, m.Pending("worker_1"))
	assert.Empty(t, m.Drain("worker_1"), "broadcasts are shown once")

	assert.Empty(t, m.Drain("hub"), "senders do not see their own broadcast")

	got = m.Drain("worker_2")
	require.Len(t, got, 1)
	assert.Equal(t, message.KindTask, got[0].Kind)
}
