package graphdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/ncruces"
)

func serializeEmbedding(embedding []float32) ([]byte, error) {
	return sqlite_vec.SerializeFloat32(embedding)
}

// SetEmbedder enables the embedding layer, creating its tables for vectors of
// dims dimensions. The node/edge store works without it. When the tables
// already exist their width wins: dims <= 0 adopts it and any other value
// must match it.
func (s *Store) SetEmbedder(e Embedder, dims int) error {
	err := s.Atomic(context.Background(), func(ctx context.Context, cur Cursor) error {
		existing, err := vectorWidth(ctx, cur)
		if err != nil {
			return err
		}

		switch {
		case existing > 0 && dims <= 0:
			dims = existing
		case existing > 0 && dims != existing:
			return fmt.Errorf("%w: tables hold %d, requested %d", ErrDimensionMismatch, existing, dims)
		case dims <= 0:
			dims = DefaultVectorDimensions
		}

		_, err = cur.ExecContext(ctx, vecSchema(dims))
		return err
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.embedder = e
	s.dims = dims
	s.mu.Unlock()

	return nil
}

var vectorWidthPattern = regexp.MustCompile(`FLOAT\[(\d+)\]`)

// vectorWidth reads the declared width of an existing nodes_embedding table,
// or 0 when the embedding layer has never been created.
func vectorWidth(ctx context.Context, cur Cursor) (int, error) {
	var ddl string
	err := cur.QueryRowContext(ctx, queryVectorTableSQL).Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	m := vectorWidthPattern.FindStringSubmatch(ddl)
	if m == nil {
		return 0, fmt.Errorf("unrecognised embedding table definition: %s", ddl)
	}
	return strconv.Atoi(m[1])
}

func (s *Store) HasEmbedder() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embedder != nil
}

// Dimensions reports the vector width the embedding tables were created with,
// or 0 before SetEmbedder.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

func (s *Store) currentEmbedder() (Embedder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.embedder == nil {
		return nil, ErrNoEmbedder
	}
	return s.embedder, nil
}

func embed(ctx context.Context, e Embedder, text string) ([]byte, error) {
	vector, err := e.Embed(ctx, text)
	if err != nil {
		return nil, &EmbeddingProviderError{Err: err}
	}

	blob, err := serializeEmbedding(vector)
	if err != nil {
		return nil, err
	}

	return blob, nil
}

func nextSequence(ctx context.Context, cur Cursor, query string) (int64, error) {
	var next int64
	err := cur.QueryRowContext(ctx, query).Scan(&next)
	return next, err
}

func insertNodeEmbedding(ctx context.Context, cur Cursor, e Embedder, id string, attrs Attributes) error {
	metadata, err := encodeAttributes(withID(id, attrs))
	if err != nil {
		return err
	}

	seq, err := nextSequence(ctx, cur, queryNextNodeSequence)
	if err != nil {
		return err
	}

	blob, err := embed(ctx, e, metadata)
	if err != nil {
		return err
	}

	if _, err := cur.ExecContext(ctx, queryInsertNodeVec, seq, blob); err != nil {
		return err
	}

	_, err = cur.ExecContext(ctx, queryInsertNodeVecMeta, seq, id, metadata)
	return err
}

// edgePayload is the document an edge embedding is computed from.
type edgePayload struct {
	SourceID   string `json:"source_id"`
	TargetID   string `json:"target_id"`
	Label      string `json:"label"`
	Attributes string `json:"attributes"`
}

func insertEdgeEmbedding(ctx context.Context, cur Cursor, e Embedder, edgeID int64, source, target, label string, attrs Attributes) error {
	attrJSON, err := encodeAttributes(attrs)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(edgePayload{SourceID: source, TargetID: target, Label: label, Attributes: attrJSON})
	if err != nil {
		return err
	}

	seq, err := nextSequence(ctx, cur, queryNextEdgeSequence)
	if err != nil {
		return err
	}

	blob, err := embed(ctx, e, string(payload))
	if err != nil {
		return err
	}

	if _, err := cur.ExecContext(ctx, queryInsertEdgeVec, seq, blob); err != nil {
		return err
	}

	_, err = cur.ExecContext(ctx, queryInsertEdgeVecMeta, seq, edgeID, source, target, label, attrJSON)
	return err
}

// AddNodeEmbedding embeds the node payload (attrs with id injected) and stores
// the vector under the next sequence id.
func (s *Store) AddNodeEmbedding(ctx context.Context, id string, attrs Attributes) error {
	e, err := s.currentEmbedder()
	if err != nil {
		return err
	}

	return s.Atomic(ctx, func(ctx context.Context, cur Cursor) error {
		return insertNodeEmbedding(ctx, cur, e, id, attrs)
	})
}

func (s *Store) AddNodeEmbeddings(ctx context.Context, ids []string, attrs []Attributes) error {
	e, err := s.currentEmbedder()
	if err != nil {
		return err
	}

	return s.Atomic(ctx, func(ctx context.Context, cur Cursor) error {
		if len(ids) != len(attrs) {
			return queryErrorf("%d ids but %d attribute sets", len(ids), len(attrs))
		}
		for i := range ids {
			if err := insertNodeEmbedding(ctx, cur, e, ids[i], attrs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) AddEdgeEmbedding(ctx context.Context, edgeID int64, source, target, label string, attrs Attributes) error {
	e, err := s.currentEmbedder()
	if err != nil {
		return err
	}

	return s.Atomic(ctx, func(ctx context.Context, cur Cursor) error {
		return insertEdgeEmbedding(ctx, cur, e, edgeID, source, target, label, attrs)
	})
}

// AddEdgeEmbeddings embeds each edge in one unit.
func (s *Store) AddEdgeEmbeddings(ctx context.Context, edges []Edge) error {
	e, err := s.currentEmbedder()
	if err != nil {
		return err
	}

	return s.Atomic(ctx, func(ctx context.Context, cur Cursor) error {
		for _, edge := range edges {
			if err := insertEdgeEmbedding(ctx, cur, e, edge.ID, edge.Source, edge.Target, edge.Label, edge.Properties); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteNodeEmbedding(ctx context.Context, id string) error {
	if _, err := s.currentEmbedder(); err != nil {
		return err
	}

	return s.Atomic(ctx, func(ctx context.Context, cur Cursor) error {
		if _, err := cur.ExecContext(ctx, queryDeleteNodeVec, id); err != nil {
			return err
		}
		_, err := cur.ExecContext(ctx, queryDeleteNodeVecMeta, id)
		return err
	})
}

func (s *Store) DeleteEdgeEmbedding(ctx context.Context, edgeIDs []int64) error {
	if _, err := s.currentEmbedder(); err != nil {
		return err
	}

	return s.Atomic(ctx, func(ctx context.Context, cur Cursor) error {
		for _, id := range edgeIDs {
			if _, err := cur.ExecContext(ctx, queryDeleteEdgeVec, id); err != nil {
				return err
			}
			if _, err := cur.ExecContext(ctx, queryDeleteEdgeVecMeta, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// NodeEmbeddings returns the stored embeddings of one node, oldest first.
func (s *Store) NodeEmbeddings(ctx context.Context, id string) ([]EmbeddingRecord, error) {
	if _, err := s.currentEmbedder(); err != nil {
		return nil, err
	}

	return view(ctx, s, func(ctx context.Context, cur Cursor) ([]EmbeddingRecord, error) {
		rows, err := cur.QueryContext(ctx, queryNodeEmbeddings, id)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []EmbeddingRecord
		for rows.Next() {
			var r EmbeddingRecord
			var vector string
			if err := rows.Scan(&r.SequenceID, &r.OwnerID, &vector, &r.Metadata); err != nil {
				return nil, err
			}
			if err := json.Unmarshal([]byte(vector), &r.Vector); err != nil {
				return nil, fmt.Errorf("decode embedding %d: %w", r.SequenceID, err)
			}
			out = append(out, r)
		}

		return out, rows.Err()
	})
}

// ReindexNodeEmbeddings drops every node embedding and recomputes one per
// node from its current body.
func (s *Store) ReindexNodeEmbeddings(ctx context.Context) (int, error) {
	e, err := s.currentEmbedder()
	if err != nil {
		return 0, err
	}

	var n int
	err = s.Atomic(ctx, func(ctx context.Context, cur Cursor) error {
		nodes, err := scanNodes(ctx, cur)
		if err != nil {
			return err
		}

		if _, err := cur.ExecContext(ctx, queryDeleteAllNodeVec); err != nil {
			return err
		}
		if _, err := cur.ExecContext(ctx, queryDeleteAllNodeMetas); err != nil {
			return err
		}

		for _, node := range nodes {
			if err := insertNodeEmbedding(ctx, cur, e, node.ID, node.Attributes); err != nil {
				return err
			}
		}
		n = len(nodes)
		return nil
	})

	return n, err
}

type vectorSearchData struct {
	Column     string
	Descending bool
}

var sortColumns = map[SortKey]string{
	SortDistance:   "v.distance",
	SortSequenceID: "m.sequence_id",
	SortOwnerID:    "m.owner_id",
}

func (o SearchOptions) limit() int {
	if o.Limit <= 0 {
		return 10
	}
	return o.Limit
}

// keep applies the strict threshold and the limit to candidates in rank order.
func keep[T any](candidates []T, distance func(T) float64, opts SearchOptions) []T {
	out := make([]T, 0, len(candidates))
	for _, c := range candidates {
		if opts.Threshold != nil && !(distance(c) < *opts.Threshold) {
			continue
		}
		out = append(out, c)
	}

	if len(out) > opts.limit() {
		out = out[:opts.limit()]
	}
	return out
}

// VectorSearchNode ranks node embeddings against text. It returns nil when
// the store holds no candidates at all, and an empty slice when candidates
// exist but none pass the threshold.
func (s *Store) VectorSearchNode(ctx context.Context, text string, opts SearchOptions) ([]NodeMatch, error) {
	e, err := s.currentEmbedder()
	if err != nil {
		return nil, err
	}

	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = SortDistance
	}
	column, ok := sortColumns[sortBy]
	if !ok {
		return nil, queryErrorf("unknown sort column %q", opts.SortBy)
	}

	query, err := render("vector-search-node", vectorSearchData{Column: column, Descending: opts.Descending})
	if err != nil {
		return nil, err
	}

	blob, err := embed(ctx, e, text)
	if err != nil {
		return nil, err
	}

	return view(ctx, s, func(ctx context.Context, cur Cursor) ([]NodeMatch, error) {
		rows, err := cur.QueryContext(ctx, query, blob, opts.limit())
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var matches []NodeMatch
		for rows.Next() {
			var m NodeMatch
			var metadata string
			if err := rows.Scan(&m.SequenceID, &m.OwnerID, &metadata, &m.Distance); err != nil {
				return nil, err
			}
			if m.Attributes, err = decodeAttributes(metadata); err != nil {
				return nil, err
			}
			matches = append(matches, m)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}

		if len(matches) == 0 {
			return nil, nil
		}

		return keep(matches, func(m NodeMatch) float64 { return m.Distance }, opts), nil
	})
}

// VectorSearchEdge ranks edge embeddings by distance only; SortBy must be
// empty or SortDistance.
func (s *Store) VectorSearchEdge(ctx context.Context, text string, opts SearchOptions) ([]EdgeMatch, error) {
	e, err := s.currentEmbedder()
	if err != nil {
		return nil, err
	}

	if opts.SortBy != "" && opts.SortBy != SortDistance {
		return nil, queryErrorf("edge search sorts by distance only, got %q", opts.SortBy)
	}

	query := queryVectorSearchEdge
	if opts.Descending {
		query = queryVectorSearchEdgeDesc
	}

	blob, err := embed(ctx, e, text)
	if err != nil {
		return nil, err
	}

	return view(ctx, s, func(ctx context.Context, cur Cursor) ([]EdgeMatch, error) {
		rows, err := cur.QueryContext(ctx, query, blob, opts.limit())
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var matches []EdgeMatch
		for rows.Next() {
			var m EdgeMatch
			var metadata string
			if err := rows.Scan(&m.SequenceID, &m.EdgeID, &m.Source, &m.Target, &m.Label, &metadata, &m.Distance); err != nil {
				return nil, err
			}
			if m.Attributes, err = decodeAttributes(metadata); err != nil {
				return nil, err
			}
			matches = append(matches, m)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}

		if len(matches) == 0 {
			return nil, nil
		}

		return keep(matches, func(m EdgeMatch) float64 { return m.Distance }, opts), nil
	})
}

// VectorSearchNodeFromMultiDB is the similarity-only node search used when
// ranking across several stores.
func (s *Store) VectorSearchNodeFromMultiDB(ctx context.Context, text string, threshold *float64, limit int) ([]Similarity, error) {
	return s.similar(ctx, querySimilaritySearchNode, text, threshold, limit)
}

func (s *Store) VectorSearchEdgeFromMultiDB(ctx context.Context, text string, threshold *float64, limit int) ([]Similarity, error) {
	return s.similar(ctx, querySimilaritySearchEdge, text, threshold, limit)
}

func (s *Store) similar(ctx context.Context, query, text string, threshold *float64, limit int) ([]Similarity, error) {
	e, err := s.currentEmbedder()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 1
	}
	opts := SearchOptions{Threshold: threshold, Limit: limit}

	blob, err := embed(ctx, e, text)
	if err != nil {
		return nil, err
	}

	return view(ctx, s, func(ctx context.Context, cur Cursor) ([]Similarity, error) {
		rows, err := cur.QueryContext(ctx, query, blob, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []Similarity
		for rows.Next() {
			var sim Similarity
			if err := rows.Scan(&sim.OwnerID, &sim.Distance); err != nil {
				return nil, err
			}
			out = append(out, sim)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}

		if len(out) == 0 {
			return nil, nil
		}

		return keep(out, func(s Similarity) float64 { return s.Distance }, opts), nil
	})
}

// SearchStores runs the similarity-only node search on every store and merges
// the results by raw distance. Similarity.Store is the index into stores.
// Stores without embeddings are skipped.
func SearchStores(ctx context.Context, stores []*Store, text string, threshold *float64, limit int) ([]Similarity, error) {
	var merged []Similarity

	for i, s := range stores {
		if !s.HasEmbedder() {
			continue
		}

		results, err := s.VectorSearchNodeFromMultiDB(ctx, text, threshold, limit)
		if err != nil {
			return nil, fmt.Errorf("store %d: %w", i, err)
		}
		for _, r := range results {
			r.Store = i
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].Distance < merged[b].Distance
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	return merged, nil
}
