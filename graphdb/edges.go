package graphdb

import (
	"context"
)

func insertEdge(ctx context.Context, cur Cursor, source, target, label string, props Attributes) (int64, error) {
	body, err := encodeAttributes(props)
	if err != nil {
		return 0, err
	}

	result, err := cur.ExecContext(ctx, queryInsertEdge, source, target, label, body)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// ConnectNodesOp appends a directed edge. Endpoints are not checked.
func ConnectNodesOp(source, target, label string, props Attributes) Work {
	return func(ctx context.Context, cur Cursor) error {
		_, err := insertEdge(ctx, cur, source, target, label, props)
		return err
	}
}

// ConnectManyNodesOp appends one edge per position. labels and props may be
// nil; otherwise every slice must be as long as sources.
func ConnectManyNodesOp(sources, targets, labels []string, props []Attributes) Work {
	return func(ctx context.Context, cur Cursor) error {
		if len(targets) != len(sources) ||
			(labels != nil && len(labels) != len(sources)) ||
			(props != nil && len(props) != len(sources)) {
			return queryErrorf("edge batch lengths differ: %d sources, %d targets, %d labels, %d properties",
				len(sources), len(targets), len(labels), len(props))
		}

		for i := range sources {
			var label string
			if labels != nil {
				label = labels[i]
			}
			var p Attributes
			if props != nil {
				p = props[i]
			}

			if _, err := insertEdge(ctx, cur, sources[i], targets[i], label, p); err != nil {
				return err
			}
		}
		return nil
	}
}

// ConnectNodes appends a directed edge and returns its id.
func (s *Store) ConnectNodes(ctx context.Context, source, target, label string, props Attributes) (int64, error) {
	var id int64
	err := s.Atomic(ctx, func(ctx context.Context, cur Cursor) error {
		var err error
		id, err = insertEdge(ctx, cur, source, target, label, props)
		return err
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (s *Store) ConnectManyNodes(ctx context.Context, sources, targets, labels []string, props []Attributes) error {
	return s.Atomic(ctx, ConnectManyNodesOp(sources, targets, labels, props))
}

// GetConnections returns every edge where id is the source or the target.
func (s *Store) GetConnections(ctx context.Context, id string) ([]Edge, error) {
	return view(ctx, s, func(ctx context.Context, cur Cursor) ([]Edge, error) {
		return scanEdges(ctx, cur, queryEdgesOfNode, id, id)
	})
}

// GetConnectionsOneWay returns the inbound or outbound edges of id. Both is
// treated like GetConnections.
func (s *Store) GetConnectionsOneWay(ctx context.Context, id string, dir Direction) ([]Edge, error) {
	return view(ctx, s, func(ctx context.Context, cur Cursor) ([]Edge, error) {
		switch dir {
		case Inbound:
			return scanEdges(ctx, cur, queryEdgesInbound, id)
		case Outbound:
			return scanEdges(ctx, cur, queryEdgesOutbound, id)
		default:
			return scanEdges(ctx, cur, queryEdgesOfNode, id, id)
		}
	})
}

func (s *Store) CountEdges(ctx context.Context) (int, error) {
	return count(ctx, s, queryCountEdges)
}

func scanEdges(ctx context.Context, cur Cursor, query string, args ...any) ([]Edge, error) {
	rows, err := cur.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		var props string
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.Label, &props); err != nil {
			return nil, err
		}

		e.Properties, err = decodeAttributes(props)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}

	return edges, rows.Err()
}
