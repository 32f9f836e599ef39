package graphrepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commgraph/commgraph/internal/app/usecases"
	"github.com/commgraph/commgraph/internal/core/graph"
	"github.com/commgraph/commgraph/internal/core/message"
	"github.com/commgraph/commgraph/internal/core/player"
	"github.com/commgraph/commgraph/internal/core/topology"
)

var _ usecases.DescriptionRepository = (*InMemoryDescriptionRepository)(nil)

func meshDescription(t *testing.T) *topology.Description {
	t.Helper()
	def := player.Definition{
		Role:        "peer",
		Handler:     player.HandlerStandard,
		Permissions: message.MustPermissions([]message.Kind{message.KindRequest, message.KindResponse}, []message.Kind{message.KindRequest, message.KindResponse}),
	}
	d, err := topology.MeshCompiler{}.Compile(
		topology.Roster{"peer": {Count: 3}},
		topology.CompileOptions{Roles: map[string]player.Definition{"peer": def}},
	)
	require.NoError(t, err)
	return d
}

func TestInMemoryDescriptionRepository_Get_NotFound(t *testing.T) {
	repo := NewInMemoryDescriptionRepository()

	d, err := repo.Get(context.Background(), "does-not-exist")
	assert.Nil(t, d)
	assert.ErrorIs(t, err, topology.ErrDescriptionNotFound)
}

func TestInMemoryDescriptionRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryDescriptionRepository()
	d := meshDescription(t)

	require.NoError(t, repo.Save(ctx, "triad", d))
	require.NoError(t, repo.Save(ctx, "alpha", d))

	loaded, err := repo.Get(ctx, "triad")
	require.NoError(t, err)
	assert.Same(t, d, loaded)

	names, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "triad"}, names)
}

func TestInMemoryDescriptionRepository_SaveInvalid(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryDescriptionRepository()

	err := repo.Save(ctx, "nil", nil)
	require.Error(t, err)

	err = repo.Save(ctx, "no-anchor", &topology.Description{Type: topology.Mesh, Graph: graph.New()})
	assert.ErrorIs(t, err, graph.ErrNoAnchor)

	names, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}
