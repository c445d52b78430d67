package graphdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddNodes(ctx,
		[]Attributes{{"label": "person", "name": "Ada"}, {"name": "engine"}},
		[]string{"ada", "engine"}))
	_, err := s.ConnectNodes(ctx, "ada", "engine", "designed", Attributes{"year": 1837})
	require.NoError(t, err)

	kg, err := s.Snapshot(ctx)
	require.NoError(t, err)

	require.Len(t, kg.Nodes, 2)
	assert.Equal(t, "ada", kg.Nodes[0].ID)
	assert.Equal(t, "person", kg.Nodes[0].Label)
	assert.Equal(t, "", kg.Nodes[1].Label)

	require.Len(t, kg.Edges, 1)
	assert.Equal(t, "designed", kg.Edges[0].Label)
	assert.Equal(t, int64(1837), kg.Edges[0].Properties["year"])
}

func TestLoadIntoEmptyStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	kg := &KnowledgeGraph{
		Nodes: []Node{
			{ID: "a", Label: "city", Attributes: Attributes{"name": "Lyon"}},
			{ID: "b"},
		},
		Edges: []Edge{{Source: "a", Target: "b", Label: "near"}},
	}
	require.NoError(t, s.Load(ctx, kg, LoadOptions{}))

	a, err := s.FindNode(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, Attributes{"id": "a", "label": "city", "name": "Lyon"}, a)

	path, err := s.Traverse(ctx, "a", TraverseOptions{Direction: Outbound})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, path.IDs())

	assert.Nil(t, kg.Nodes[0].Attributes["label"], "input nodes are not modified")
}

func TestLoadMergesWithoutOverride(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertNode(ctx, "a", Attributes{"kept": true, "n": 1}))
	require.NoError(t, s.UpsertNode(ctx, "other", Attributes{}))

	require.NoError(t, s.Load(ctx, &KnowledgeGraph{
		Nodes: []Node{{ID: "a", Attributes: Attributes{"n": 2}}},
	}, LoadOptions{}))

	a, err := s.FindNode(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, Attributes{"id": "a", "kept": true, "n": int64(2)}, a)

	n, err := s.CountNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLoadOverride(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddNodes(ctx, []Attributes{{}, {}}, []string{"old1", "old2"}))
	_, err := s.ConnectNodes(ctx, "old1", "old2", "", nil)
	require.NoError(t, err)

	require.NoError(t, s.Load(ctx, &KnowledgeGraph{
		Nodes: []Node{{ID: "new"}},
	}, LoadOptions{Override: true}))

	ids, err := s.NodeIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids)

	edges, err := s.CountEdges(ctx)
	require.NoError(t, err)
	assert.Zero(t, edges)
}

func TestSnapshotLoadRoundTrip(t *testing.T) {
	src := newTestStore(t)
	dst := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, src.AddNodes(ctx,
		[]Attributes{{"label": "x", "deep": map[string]any{"k": []any{"v"}}}, {}},
		[]string{"1", "2"}))
	require.NoError(t, src.ConnectManyNodes(ctx, []string{"1", "2"}, []string{"2", "1"}, []string{"fwd", "back"}, nil))

	kg, err := src.Snapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, dst.Load(ctx, kg, LoadOptions{Override: true}))

	again, err := dst.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, kg, again)
}
