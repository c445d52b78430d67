package graphdb

import "fmt"

const DefaultVectorDimensions = 768

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
    body TEXT,
    id   TEXT GENERATED ALWAYS AS (json_extract(body, '$.id')) VIRTUAL NOT NULL UNIQUE
);

CREATE INDEX IF NOT EXISTS idx_nodes_id ON nodes(id);

CREATE TABLE IF NOT EXISTS edges (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    source     TEXT NOT NULL,
    target     TEXT NOT NULL,
    label      TEXT NOT NULL DEFAULT '',
    properties TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);
`

const vecSchemaTemplate = `
CREATE VIRTUAL TABLE IF NOT EXISTS nodes_embedding USING vec0(
    sequence_id INTEGER PRIMARY KEY,
    embedding FLOAT[%[1]d]
);

CREATE TABLE IF NOT EXISTS nodes_embedding_meta (
    sequence_id INTEGER PRIMARY KEY,
    owner_id    TEXT NOT NULL,
    metadata    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_embedding_owner ON nodes_embedding_meta(owner_id);

CREATE VIRTUAL TABLE IF NOT EXISTS relationship_embedding USING vec0(
    sequence_id INTEGER PRIMARY KEY,
    embedding FLOAT[%[1]d]
);

CREATE TABLE IF NOT EXISTS relationship_embedding_meta (
    sequence_id INTEGER PRIMARY KEY,
    edge_id     INTEGER NOT NULL,
    source      TEXT NOT NULL,
    target      TEXT NOT NULL,
    label       TEXT NOT NULL DEFAULT '',
    metadata    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_relationship_embedding_edge ON relationship_embedding_meta(edge_id);
`

func vecSchema(dims int) string {
	return fmt.Sprintf(vecSchemaTemplate, dims)
}
