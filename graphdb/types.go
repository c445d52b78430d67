package graphdb

import (
	"context"
	"database/sql"
	"sync"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Store struct {
	db     *sql.DB
	single bool

	mu       sync.RWMutex
	embedder Embedder
	dims     int
}

// Attributes is the JSON payload carried by nodes and edges.
type Attributes map[string]any

type Node struct {
	ID         string     `json:"id" yaml:"id"`
	Label      string     `json:"label" yaml:"label"`
	Attributes Attributes `json:"attributes" yaml:"attributes"`
}

type Edge struct {
	ID         int64      `json:"id,omitempty" yaml:"id,omitempty"`
	Source     string     `json:"source" yaml:"source"`
	Target     string     `json:"target" yaml:"target"`
	Label      string     `json:"label" yaml:"label"`
	Properties Attributes `json:"properties" yaml:"properties"`
}

// KnowledgeGraph is an in-memory view of the store used for import and export.
type KnowledgeGraph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

type EmbeddingRecord struct {
	SequenceID int64
	OwnerID    string
	Vector     []float32
	Metadata   string
}

type Direction int

const (
	Both Direction = iota
	Outbound
	Inbound
)

func (d Direction) String() string {
	switch d {
	case Outbound:
		return "outbound"
	case Inbound:
		return "inbound"
	default:
		return "both"
	}
}

// Adjacency is one row of a neighbor query. Marker is "->" for an outbound
// edge, "<-" for an inbound edge and "()" for the neighbor's own node row.
type Adjacency struct {
	ID     string
	Marker string
	Body   string
}

// PathStep is one entry of a traversal path. Marker and Body are only set
// when the traversal was asked for bodies.
type PathStep struct {
	ID     string
	Marker string
	Body   string
}

type Path []PathStep

func (p Path) IDs() []string {
	ids := make([]string, 0, len(p))
	for _, step := range p {
		ids = append(ids, step.ID)
	}
	return ids
}

type TraverseOptions struct {
	Target     string // empty means exhaust the one-hop frontier
	Direction  Direction
	WithBodies bool
}

type WalkOptions struct {
	Direction Direction
	MaxDepth  int // default 3
}

type WalkStep struct {
	ID    string
	Depth int
}

type SortKey string

const (
	SortDistance   SortKey = "distance"
	SortSequenceID SortKey = "sequence_id"
	SortOwnerID    SortKey = "owner_id"
)

type SearchOptions struct {
	Threshold  *float64 // candidates must have distance strictly below this
	Descending bool
	Limit      int
	SortBy     SortKey
}

type NodeMatch struct {
	SequenceID int64
	OwnerID    string
	Attributes Attributes
	Distance   float64
}

type EdgeMatch struct {
	SequenceID int64
	EdgeID     int64
	Source     string
	Target     string
	Label      string
	Attributes Attributes
	Distance   float64
}

// Similarity is the raw-distance result shape used when ranking across stores.
type Similarity struct {
	OwnerID  string
	Distance float64
	Store    int
}

type LoadOptions struct {
	Override bool // remove every existing node and edge first
}
