package graphdb

import (
	"context"
	"slices"
)

// terminator marks a neighbor's own node row in an adjacency result.
const terminator = "()"

type neighborsData struct {
	Outbound   bool
	Inbound    bool
	WithBodies bool
}

func neighborsQuery(dir Direction, withBodies bool) (string, error) {
	return render("neighbors", neighborsData{
		Outbound:   dir == Both || dir == Outbound,
		Inbound:    dir == Both || dir == Inbound,
		WithBodies: withBodies,
	})
}

func neighbors(ctx context.Context, cur Cursor, id string, dir Direction, withBodies bool) ([]Adjacency, error) {
	query, err := neighborsQuery(dir, withBodies)
	if err != nil {
		return nil, err
	}

	rows, err := cur.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Adjacency
	for rows.Next() {
		var a Adjacency
		if err := rows.Scan(&a.ID, &a.Marker, &a.Body); err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	return out, rows.Err()
}

// Neighbors returns the one-hop adjacency rows of id. With bodies, each edge
// row is followed by the neighbor's node row (marker "()").
func (s *Store) Neighbors(ctx context.Context, id string, dir Direction, withBodies bool) ([]Adjacency, error) {
	return view(ctx, s, func(ctx context.Context, cur Cursor) ([]Adjacency, error) {
		return neighbors(ctx, cur, id, dir, withBodies)
	})
}

func (s *Store) FindOutboundNeighbors(ctx context.Context, id string, withBodies bool) ([]Adjacency, error) {
	return s.Neighbors(ctx, id, Outbound, withBodies)
}

func (s *Store) FindInboundNeighbors(ctx context.Context, id string, withBodies bool) ([]Adjacency, error) {
	return s.Neighbors(ctx, id, Inbound, withBodies)
}

// Traverse walks the one-hop frontier of source. It does not recurse; callers
// wanting deeper walks re-invoke it from the frontier or use Walk.
//
// Without bodies the path holds each new neighbor once and stops after
// appending opts.Target. With bodies every adjacency row is appended and the
// walk stops at the target's node row.
func (s *Store) Traverse(ctx context.Context, source string, opts TraverseOptions) (Path, error) {
	return view(ctx, s, func(ctx context.Context, cur Cursor) (Path, error) {
		rows, err := neighbors(ctx, cur, source, opts.Direction, opts.WithBodies)
		if err != nil {
			return nil, err
		}

		return walkFrontier(rows, opts), nil
	})
}

func walkFrontier(rows []Adjacency, opts TraverseOptions) Path {
	path := Path{}
	var visited []string

	for _, row := range rows {
		if opts.WithBodies {
			path = append(path, PathStep(row))
			if opts.Target != "" && row.ID == opts.Target && row.Marker == terminator {
				break
			}
			continue
		}

		if slices.Contains(visited, row.ID) {
			continue
		}
		visited = append(visited, row.ID)
		path = append(path, PathStep{ID: row.ID})

		if opts.Target != "" && row.ID == opts.Target {
			break
		}
	}

	return path
}

type walkData struct {
	Outbound bool
	Inbound  bool
}

// Walk is the multi-hop counterpart of Traverse: a breadth-first walk up to
// MaxDepth hops, each node reported once at its shallowest depth. The source
// is included at depth 0.
func (s *Store) Walk(ctx context.Context, source string, opts WalkOptions) ([]WalkStep, error) {
	depth := opts.MaxDepth
	if depth < 1 {
		depth = 3
	}

	query, err := render("walk", walkData{
		Outbound: opts.Direction == Both || opts.Direction == Outbound,
		Inbound:  opts.Direction == Both || opts.Direction == Inbound,
	})
	if err != nil {
		return nil, err
	}

	return view(ctx, s, func(ctx context.Context, cur Cursor) ([]WalkStep, error) {
		rows, err := cur.QueryContext(ctx, query, source, depth)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var steps []WalkStep
		for rows.Next() {
			var step WalkStep
			if err := rows.Scan(&step.ID, &step.Depth); err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}

		return steps, rows.Err()
	})
}
