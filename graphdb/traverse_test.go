package graphdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(t *testing.T, s *Store, pairs ...[2]string) {
	t.Helper()
	ctx := context.Background()
	for _, p := range pairs {
		for _, id := range p {
			require.NoError(t, s.UpsertNode(ctx, id, Attributes{"name": id}))
		}
		_, err := s.ConnectNodes(ctx, p[0], p[1], "", Attributes{"from": p[0]})
		require.NoError(t, err)
	}
}

func TestTraverseIsSingleHop(t *testing.T) {
	s := newTestStore(t)
	chain(t, s, [2]string{"A", "B"}, [2]string{"B", "C"})

	path, err := s.Traverse(context.Background(), "A", TraverseOptions{Direction: Outbound})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, path.IDs())
}

func TestTraverseStopsAtTarget(t *testing.T) {
	s := newTestStore(t)
	chain(t, s, [2]string{"A", "B"}, [2]string{"A", "C"}, [2]string{"A", "D"})

	path, err := s.Traverse(context.Background(), "A", TraverseOptions{Target: "C", Direction: Outbound})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, path.IDs())
}

func TestTraverseDeduplicates(t *testing.T) {
	s := newTestStore(t)
	chain(t, s, [2]string{"A", "B"}, [2]string{"A", "B"}, [2]string{"B", "A"})

	path, err := s.Traverse(context.Background(), "A", TraverseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, path.IDs())
}

func TestTraverseBothDirections(t *testing.T) {
	s := newTestStore(t)
	chain(t, s, [2]string{"A", "B"}, [2]string{"C", "A"})
	ctx := context.Background()

	path, err := s.Traverse(ctx, "A", TraverseOptions{Direction: Both})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, path.IDs())

	path, err = s.Traverse(ctx, "A", TraverseOptions{Direction: Inbound})
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, path.IDs())
}

func TestTraverseWithBodies(t *testing.T) {
	s := newTestStore(t)
	chain(t, s, [2]string{"A", "B"}, [2]string{"A", "C"})

	path, err := s.Traverse(context.Background(), "A", TraverseOptions{Target: "B", Direction: Outbound, WithBodies: true})
	require.NoError(t, err)
	require.Len(t, path, 2)

	assert.Equal(t, "B", path[0].ID)
	assert.Equal(t, "->", path[0].Marker)
	assert.JSONEq(t, `{"from":"A"}`, path[0].Body)

	assert.Equal(t, "B", path[1].ID)
	assert.Equal(t, "()", path[1].Marker)
	assert.JSONEq(t, `{"id":"B","name":"B"}`, path[1].Body)
}

func TestTraverseWithBodiesInbound(t *testing.T) {
	s := newTestStore(t)
	chain(t, s, [2]string{"C", "A"})

	path, err := s.Traverse(context.Background(), "A", TraverseOptions{Direction: Inbound, WithBodies: true})
	require.NoError(t, err)
	require.Len(t, path, 2)
	assert.Equal(t, "<-", path[0].Marker)
	assert.Equal(t, "()", path[1].Marker)
	assert.Equal(t, "C", path[1].ID)
}

func TestTraverseUnknownSource(t *testing.T) {
	s := newTestStore(t)

	path, err := s.Traverse(context.Background(), "ghost", TraverseOptions{Target: "nowhere"})
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestNeighborsDanglingEdge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ConnectNodes(ctx, "A", "missing", "", nil)
	require.NoError(t, err)

	rows, err := s.FindOutboundNeighbors(ctx, "A", true)
	require.NoError(t, err)
	require.Len(t, rows, 1, "no node row for a target that does not exist")
	assert.Equal(t, Adjacency{ID: "missing", Marker: "->", Body: "{}"}, rows[0])

	rows, err = s.FindInboundNeighbors(ctx, "missing", false)
	require.NoError(t, err)
	assert.Equal(t, []Adjacency{{ID: "A", Marker: "<-", Body: "{}"}}, rows)
}

func TestWalk(t *testing.T) {
	s := newTestStore(t)
	chain(t, s,
		[2]string{"A", "B"}, [2]string{"B", "C"}, [2]string{"C", "D"},
		[2]string{"A", "C"}, [2]string{"E", "A"})
	ctx := context.Background()

	steps, err := s.Walk(ctx, "A", WalkOptions{Direction: Outbound, MaxDepth: 2})
	require.NoError(t, err)
	assert.Equal(t, []WalkStep{{"A", 0}, {"B", 1}, {"C", 1}, {"D", 2}}, steps)

	steps, err = s.Walk(ctx, "A", WalkOptions{Direction: Inbound})
	require.NoError(t, err)
	assert.Equal(t, []WalkStep{{"A", 0}, {"E", 1}}, steps)

	steps, err = s.Walk(ctx, "D", WalkOptions{Direction: Both, MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, []WalkStep{{"D", 0}, {"C", 1}}, steps)
}
