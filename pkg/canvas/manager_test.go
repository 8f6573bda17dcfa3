package canvas

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/persistence"
)

func TestManagerOpenReusesCanvas(t *testing.T) {
	mem := persistence.NewMemoryStore()
	m := NewManager(Options{Store: mem})
	ctx := context.Background()

	a, err := m.Open(ctx, "alpha")
	require.NoError(t, err)
	again, err := m.Open(ctx, "alpha")
	require.NoError(t, err)
	assert.Same(t, a, again)

	_, err = m.Open(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, m.IDs())

	_, err = m.Open(ctx, "bad id")
	assert.ErrorIs(t, err, ErrInvalidID)

	n, err := a.AddNode(graph.KindGeneric, nil)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	_, ok := mem.Node(n.ID)
	assert.True(t, ok, "close flushes pending writes")

	_, err = m.Open(ctx, "alpha")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManagerEvict(t *testing.T) {
	m := NewManager(Options{})
	defer m.Close()

	c, err := m.Open(context.Background(), "alpha")
	require.NoError(t, err)
	require.NoError(t, m.Evict("alpha"))
	require.NoError(t, m.Evict("alpha"))

	_, ok := m.Get("alpha")
	assert.False(t, ok)
	_, err = c.AddNode(graph.KindGeneric, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManagerSharesStoreAcrossCanvases(t *testing.T) {
	mem := persistence.NewMemoryStore()
	m := NewManager(Options{Store: mem})

	a, err := m.Open(context.Background(), "alpha")
	require.NoError(t, err)
	_, err = a.AddNode(graph.KindGeneric, nil)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	m2 := NewManager(Options{Store: mem})
	defer m2.Close()
	b, err := m2.Open(context.Background(), "beta")
	require.NoError(t, err)
	assert.Empty(t, b.Nodes())

	a2, err := m2.Open(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Len(t, a2.Nodes(), 1)
}
