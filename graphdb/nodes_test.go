package graphdb

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNodeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	data := Attributes{
		"name":  "Ada",
		"born":  1815,
		"tags":  []any{"math", "engines"},
		"inner": map[string]any{"city": "London"},
	}
	id, err := s.AddNode(ctx, data, "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", id)

	got, err := s.FindNode(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, Attributes{
		"id":    "ada",
		"name":  "Ada",
		"born":  int64(1815),
		"tags":  []any{"math", "engines"},
		"inner": map[string]any{"city": "London"},
	}, got)

	_, injected := data["id"]
	assert.False(t, injected, "caller's map must not be modified")
}

func TestAddNodeGeneratesID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddNode(ctx, Attributes{"x": 1}, "")
	require.NoError(t, err)
	require.Len(t, id, 36)

	got, err := s.FindNode(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got["id"])
}

func TestFindMissingNode(t *testing.T) {
	s := newTestStore(t)

	got, err := s.FindNode(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUpsertMerges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertNode(ctx, "n", Attributes{"a": 1, "b": 2}))
	require.NoError(t, s.UpsertNode(ctx, "n", Attributes{"b": 3, "c": 4}))

	got, err := s.FindNode(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, Attributes{"id": "n", "a": int64(1), "b": int64(3), "c": int64(4)}, got)

	n, err := s.CountNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpsertNodesBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddNode(ctx, Attributes{"v": 1, "w": "keep"}, "one")
	require.NoError(t, err)
	require.NoError(t, s.UpsertNodes(ctx,
		[]Attributes{{"v": 2}, {"v": 3}},
		[]string{"one", "two"}))

	one, err := s.FindNode(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, int64(2), one["v"])
	assert.Equal(t, "keep", one["w"])

	two, err := s.FindNode(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, int64(3), two["v"])
}

func TestBatchLengthMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var qerr *QueryError
	err := s.AddNodes(ctx, []Attributes{{}, {}}, []string{"a"})
	require.ErrorAs(t, err, &qerr)

	err = s.UpsertNodes(ctx, []Attributes{{}}, nil)
	require.ErrorAs(t, err, &qerr)

	err = s.ConnectManyNodes(ctx, []string{"a", "b"}, []string{"c"}, nil, nil)
	require.ErrorAs(t, err, &qerr)
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddNodes(ctx, []Attributes{{}, {}, {}}, []string{"a", "b", "c"}))
	require.NoError(t, s.ConnectManyNodes(ctx,
		[]string{"a", "c", "b"},
		[]string{"b", "a", "c"},
		[]string{"ab", "ca", "bc"}, nil))

	require.NoError(t, s.RemoveNode(ctx, "a"))

	got, err := s.FindNode(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got)

	edges, err := s.GetConnections(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, edges)

	n, err := s.CountEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only b->c survives")
}

func TestRemoveNodes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddNodes(ctx, []Attributes{{}, {}, {}}, []string{"a", "b", "c"}))
	require.NoError(t, s.ConnectManyNodes(ctx, []string{"a", "b"}, []string{"b", "c"}, nil, nil))

	require.NoError(t, s.RemoveNodes(ctx, []string{"a", "b", "missing"}))

	ids, err := s.NodeIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids)

	n, err := s.CountEdges(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBatchIsAllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.AddNodes(ctx,
		[]Attributes{{"ok": true}, {"bad": math.NaN()}},
		[]string{"first", "second"})
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)

	err = s.AddNodes(ctx, []Attributes{{}, {}}, []string{"dup", "dup"})
	require.ErrorAs(t, err, &txErr)

	n, err := s.CountNodes(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChainRollsBackTogether(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Atomic(ctx, Chain(
		AddNodeOp(Attributes{}, "a"),
		ConnectNodesOp("a", "b", "", nil),
		func(ctx context.Context, cur Cursor) error { return boom },
	))
	require.ErrorIs(t, err, boom)

	nodes, err := s.CountNodes(ctx)
	require.NoError(t, err)
	edges, err := s.CountEdges(ctx)
	require.NoError(t, err)
	assert.Zero(t, nodes)
	assert.Zero(t, edges)

	require.NoError(t, s.Atomic(ctx, Chain(
		AddNodeOp(Attributes{}, "a"),
		UpsertNodeOp("a", Attributes{"v": 1}),
		RemoveNodeOp("gone"),
	)))
	got, err := s.FindNode(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got["v"])
}

func TestAtomicPanicRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		s.Atomic(ctx, func(ctx context.Context, cur Cursor) error {
			if err := AddNodeOp(Attributes{}, "a")(ctx, cur); err != nil {
				return err
			}
			panic("work exploded")
		})
	})

	n, err := s.CountNodes(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNestedAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Atomic(ctx, func(ctx context.Context, cur Cursor) error {
		return s.Atomic(ctx, AddNodeOp(Attributes{}, "inner"))
	})
	require.ErrorIs(t, err, ErrNestedAtomic)

	_, err = s.FindNode(context.Background(), "inner")
	require.NoError(t, err)
}

func TestConnectionsOneWay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.ConnectNodes(ctx, "a", "b", "knows", Attributes{"since": 2020})
	require.NoError(t, err)
	_, err = s.ConnectNodes(ctx, "c", "a", "", nil)
	require.NoError(t, err)

	out, err := s.GetConnectionsOneWay(ctx, "a", Outbound)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, Edge{ID: id, Source: "a", Target: "b", Label: "knows", Properties: Attributes{"since": int64(2020)}}, out[0])

	in, err := s.GetConnectionsOneWay(ctx, "a", Inbound)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "c", in[0].Source)
	assert.Equal(t, Attributes{}, in[0].Properties)

	both, err := s.GetConnectionsOneWay(ctx, "a", Both)
	require.NoError(t, err)
	assert.Len(t, both, 2)
}
