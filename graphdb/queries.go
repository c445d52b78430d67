package graphdb

const (
	queryInsertNode  = `INSERT INTO nodes (body) VALUES (json(?))`
	queryUpdateNode  = `UPDATE nodes SET body = json(?) WHERE id = ?`
	queryDeleteNode  = `DELETE FROM nodes WHERE id = ?`
	queryNodeIDs     = `SELECT id FROM nodes`
	queryAllNodes    = `SELECT id, body FROM nodes`
	queryCountNodes  = `SELECT COUNT(*) FROM nodes`
	queryDeleteNodes = `DELETE FROM nodes`

	queryInsertEdge         = `INSERT INTO edges (source, target, label, properties) VALUES (?, ?, ?, json(?))`
	queryDeleteEdgesOfNode  = `DELETE FROM edges WHERE source = ? OR target = ?`
	queryEdgesOfNode        = `SELECT id, source, target, label, properties FROM edges WHERE source = ? OR target = ? ORDER BY id`
	queryEdgesInbound       = `SELECT id, source, target, label, properties FROM edges WHERE target = ? ORDER BY id`
	queryEdgesOutbound      = `SELECT id, source, target, label, properties FROM edges WHERE source = ? ORDER BY id`
	queryAllEdges           = `SELECT id, source, target, label, properties FROM edges ORDER BY id`
	queryCountEdges         = `SELECT COUNT(*) FROM edges`
	queryDeleteEdges        = `DELETE FROM edges`
	queryNextNodeSequence   = `SELECT COALESCE(MAX(sequence_id), 0) + 1 FROM nodes_embedding_meta`
	queryNextEdgeSequence   = `SELECT COALESCE(MAX(sequence_id), 0) + 1 FROM relationship_embedding_meta`
	queryInsertNodeVec      = `INSERT INTO nodes_embedding (sequence_id, embedding) VALUES (?, ?)`
	queryInsertNodeVecMeta  = `INSERT INTO nodes_embedding_meta (sequence_id, owner_id, metadata) VALUES (?, ?, ?)`
	queryInsertEdgeVec      = `INSERT INTO relationship_embedding (sequence_id, embedding) VALUES (?, ?)`
	queryInsertEdgeVecMeta  = `INSERT INTO relationship_embedding_meta (sequence_id, edge_id, source, target, label, metadata) VALUES (?, ?, ?, ?, ?, ?)`
	queryDeleteNodeVec      = `DELETE FROM nodes_embedding WHERE sequence_id IN (SELECT sequence_id FROM nodes_embedding_meta WHERE owner_id = ?)`
	queryDeleteNodeVecMeta  = `DELETE FROM nodes_embedding_meta WHERE owner_id = ?`
	queryDeleteEdgeVec      = `DELETE FROM relationship_embedding WHERE sequence_id IN (SELECT sequence_id FROM relationship_embedding_meta WHERE edge_id = ?)`
	queryDeleteEdgeVecMeta  = `DELETE FROM relationship_embedding_meta WHERE edge_id = ?`
	queryDeleteAllNodeVec   = `DELETE FROM nodes_embedding`
	queryDeleteAllNodeMetas = `DELETE FROM nodes_embedding_meta`
	queryDeleteAllEdgeVec   = `DELETE FROM relationship_embedding`
	queryDeleteAllEdgeMetas = `DELETE FROM relationship_embedding_meta`
	queryVectorTableSQL     = `SELECT sql FROM sqlite_master WHERE name = 'nodes_embedding'`
	queryNodeEmbeddings     = `SELECT m.sequence_id, m.owner_id, vec_to_json(v.embedding), m.metadata FROM nodes_embedding_meta m JOIN nodes_embedding v ON v.sequence_id = m.sequence_id WHERE m.owner_id = ? ORDER BY m.sequence_id`
)

// The two edge search shapes differ only in sort direction.
const (
	queryVectorSearchEdge = `
		SELECT m.sequence_id, m.edge_id, m.source, m.target, m.label, m.metadata, v.distance
		FROM relationship_embedding v
		JOIN relationship_embedding_meta m ON m.sequence_id = v.sequence_id
		WHERE v.embedding MATCH ?
		  AND k = ?
		ORDER BY v.distance ASC`

	queryVectorSearchEdgeDesc = `
		SELECT m.sequence_id, m.edge_id, m.source, m.target, m.label, m.metadata, v.distance
		FROM relationship_embedding v
		JOIN relationship_embedding_meta m ON m.sequence_id = v.sequence_id
		WHERE v.embedding MATCH ?
		  AND k = ?
		ORDER BY v.distance DESC`

	querySimilaritySearchNode = `
		SELECT m.owner_id, v.distance
		FROM nodes_embedding v
		JOIN nodes_embedding_meta m ON m.sequence_id = v.sequence_id
		WHERE v.embedding MATCH ?
		  AND k = ?
		ORDER BY v.distance`

	querySimilaritySearchEdge = `
		SELECT CAST(m.edge_id AS TEXT), v.distance
		FROM relationship_embedding v
		JOIN relationship_embedding_meta m ON m.sequence_id = v.sequence_id
		WHERE v.embedding MATCH ?
		  AND k = ?
		ORDER BY v.distance`
)
