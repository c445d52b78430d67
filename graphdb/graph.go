package graphdb

import (
	"context"
	"fmt"
)

func scanNodes(ctx context.Context, cur Cursor) ([]Node, error) {
	rows, err := cur.QueryContext(ctx, queryAllNodes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}

		attrs, err := decodeAttributes(body)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}

		node := Node{ID: id, Attributes: attrs}
		if label, ok := attrs["label"].(string); ok {
			node.Label = label
		}
		nodes = append(nodes, node)
	}

	return nodes, rows.Err()
}

// Snapshot reads every node and edge into a KnowledgeGraph in one read
// transaction.
func (s *Store) Snapshot(ctx context.Context) (*KnowledgeGraph, error) {
	return view(ctx, s, func(ctx context.Context, cur Cursor) (*KnowledgeGraph, error) {
		nodes, err := scanNodes(ctx, cur)
		if err != nil {
			return nil, err
		}

		edges, err := scanEdges(ctx, cur, queryAllEdges)
		if err != nil {
			return nil, err
		}

		return &KnowledgeGraph{Nodes: nodes, Edges: edges}, nil
	})
}

// LoadOp writes kg as one unit: nodes are upserted (label stored in the body),
// edges appended. With Override the existing graph and its embeddings are
// cleared first.
func LoadOp(kg *KnowledgeGraph, opts LoadOptions) Work {
	return func(ctx context.Context, cur Cursor) error {
		if opts.Override {
			if err := clearGraph(ctx, cur); err != nil {
				return err
			}
		}

		for _, n := range kg.Nodes {
			attrs := make(Attributes, len(n.Attributes)+1)
			for k, v := range n.Attributes {
				attrs[k] = v
			}
			if n.Label != "" {
				attrs["label"] = n.Label
			}

			if err := upsertNode(ctx, cur, n.ID, attrs); err != nil {
				return fmt.Errorf("node %s: %w", n.ID, err)
			}
		}

		for _, e := range kg.Edges {
			if _, err := insertEdge(ctx, cur, e.Source, e.Target, e.Label, e.Properties); err != nil {
				return fmt.Errorf("edge %s->%s: %w", e.Source, e.Target, err)
			}
		}

		return nil
	}
}

func clearGraph(ctx context.Context, cur Cursor) error {
	queries := []string{queryDeleteEdges, queryDeleteNodes}

	width, err := vectorWidth(ctx, cur)
	if err != nil {
		return err
	}
	if width > 0 {
		queries = append(queries, queryDeleteAllNodeVec, queryDeleteAllNodeMetas, queryDeleteAllEdgeVec, queryDeleteAllEdgeMetas)
	}

	for _, q := range queries {
		if _, err := cur.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Load(ctx context.Context, kg *KnowledgeGraph, opts LoadOptions) error {
	return s.Atomic(ctx, LoadOp(kg, opts))
}
