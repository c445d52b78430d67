package graphdb

import (
	"context"
	"maps"

	"github.com/google/uuid"
)

// withID returns a copy of data carrying id under "id".
func withID(id string, data Attributes) Attributes {
	out := make(Attributes, len(data)+1)
	maps.Copy(out, data)
	out["id"] = id
	return out
}

func insertNode(ctx context.Context, cur Cursor, id string, data Attributes) error {
	if id == "" {
		id = uuid.New().String()
	}

	body, err := encodeAttributes(withID(id, data))
	if err != nil {
		return err
	}

	_, err = cur.ExecContext(ctx, queryInsertNode, body)
	return err
}

func upsertNode(ctx context.Context, cur Cursor, id string, data Attributes) error {
	current, err := findNode(ctx, cur, id)
	if err != nil {
		return err
	}

	if len(current) == 0 {
		return insertNode(ctx, cur, id, data)
	}

	// shallow merge, new keys win
	maps.Copy(current, data)

	body, err := encodeAttributes(withID(id, current))
	if err != nil {
		return err
	}

	_, err = cur.ExecContext(ctx, queryUpdateNode, body, id)
	return err
}

func deleteNode(ctx context.Context, cur Cursor, id string) error {
	if _, err := cur.ExecContext(ctx, queryDeleteEdgesOfNode, id, id); err != nil {
		return err
	}

	_, err := cur.ExecContext(ctx, queryDeleteNode, id)
	return err
}

// AddNodeOp inserts one node. An empty id is replaced with a generated UUID.
func AddNodeOp(data Attributes, id string) Work {
	return func(ctx context.Context, cur Cursor) error {
		return insertNode(ctx, cur, id, data)
	}
}

func AddNodesOp(data []Attributes, ids []string) Work {
	return func(ctx context.Context, cur Cursor) error {
		if len(data) != len(ids) {
			return queryErrorf("%d nodes but %d ids", len(data), len(ids))
		}

		for i := range ids {
			if err := insertNode(ctx, cur, ids[i], data[i]); err != nil {
				return err
			}
		}
		return nil
	}
}

func UpsertNodeOp(id string, data Attributes) Work {
	return func(ctx context.Context, cur Cursor) error {
		return upsertNode(ctx, cur, id, data)
	}
}

func UpsertNodesOp(data []Attributes, ids []string) Work {
	return func(ctx context.Context, cur Cursor) error {
		if len(data) != len(ids) {
			return queryErrorf("%d nodes but %d ids", len(data), len(ids))
		}

		for i := range ids {
			if err := upsertNode(ctx, cur, ids[i], data[i]); err != nil {
				return err
			}
		}
		return nil
	}
}

// RemoveNodeOp deletes every edge touching id, then the node itself.
func RemoveNodeOp(id string) Work {
	return func(ctx context.Context, cur Cursor) error {
		return deleteNode(ctx, cur, id)
	}
}

func RemoveNodesOp(ids []string) Work {
	return func(ctx context.Context, cur Cursor) error {
		for _, id := range ids {
			if _, err := cur.ExecContext(ctx, queryDeleteEdgesOfNode, id, id); err != nil {
				return err
			}
		}
		for _, id := range ids {
			if _, err := cur.ExecContext(ctx, queryDeleteNode, id); err != nil {
				return err
			}
		}
		return nil
	}
}

// AddNode inserts data under id and returns the id used.
func (s *Store) AddNode(ctx context.Context, data Attributes, id string) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}

	if err := s.Atomic(ctx, AddNodeOp(data, id)); err != nil {
		return "", err
	}

	return id, nil
}

func (s *Store) AddNodes(ctx context.Context, data []Attributes, ids []string) error {
	return s.Atomic(ctx, AddNodesOp(data, ids))
}

func (s *Store) UpsertNode(ctx context.Context, id string, data Attributes) error {
	return s.Atomic(ctx, UpsertNodeOp(id, data))
}

func (s *Store) UpsertNodes(ctx context.Context, data []Attributes, ids []string) error {
	return s.Atomic(ctx, UpsertNodesOp(data, ids))
}

func (s *Store) RemoveNode(ctx context.Context, id string) error {
	return s.Atomic(ctx, RemoveNodeOp(id))
}

func (s *Store) RemoveNodes(ctx context.Context, ids []string) error {
	return s.Atomic(ctx, RemoveNodesOp(ids))
}

// NodeIDs lists every node identifier in storage order.
func (s *Store) NodeIDs(ctx context.Context) ([]string, error) {
	return view(ctx, s, func(ctx context.Context, cur Cursor) ([]string, error) {
		return scanStrings(ctx, cur, queryNodeIDs)
	})
}

func (s *Store) CountNodes(ctx context.Context) (int, error) {
	return count(ctx, s, queryCountNodes)
}

func count(ctx context.Context, s *Store, query string) (int, error) {
	return view(ctx, s, func(ctx context.Context, cur Cursor) (int, error) {
		var n int
		err := cur.QueryRowContext(ctx, query).Scan(&n)
		return n, err
	})
}
