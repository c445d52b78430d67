package graphdb

import (
	"strings"
	"sync"
	"text/template"
)

// Fragment sources are parsed on first use and cached for the life of the
// process. Entries are never replaced once stored.
var fragmentSources = map[string]string{
	"search-where": `
{{- if .Joiner}}{{.Joiner}} {{end}}
{{- if .IDLookup}}nodes.id = ?
{{- else if .Tree}}{{if .Key}}(json_tree.key = ? AND {{end}}json_tree.value {{.Predicate}} ?{{if .Key}}){{end}}
{{- else}}json_extract(nodes.body, ?) {{.Predicate}} ?
{{- end}}`,

	"search-node": `SELECT {{if .Tree}}DISTINCT {{end}}nodes.{{.Result}} FROM nodes
{{- if .Tree}}, json_tree(nodes.body{{if .Key}}, ?{{end}}){{end}}
{{- if .Clauses}} WHERE {{join .Clauses " "}}{{end}}`,

	"neighbors": `SELECT x, marker, obj FROM (
{{- if .Outbound}}
    SELECT e.id AS seq, 0 AS part, e.target AS x, '->' AS marker, e.properties AS obj FROM edges e WHERE e.source = ?1
{{- if .WithBodies}}
    UNION ALL
    SELECT e.id AS seq, 1 AS part, n.id AS x, '()' AS marker, n.body AS obj FROM edges e JOIN nodes n ON n.id = e.target WHERE e.source = ?1
{{- end}}
{{- end}}
{{- if and .Outbound .Inbound}}
    UNION ALL
{{- end}}
{{- if .Inbound}}
    SELECT e.id AS seq, 2 AS part, e.source AS x, '<-' AS marker, e.properties AS obj FROM edges e WHERE e.target = ?1
{{- if .WithBodies}}
    UNION ALL
    SELECT e.id AS seq, 3 AS part, n.id AS x, '()' AS marker, n.body AS obj FROM edges e JOIN nodes n ON n.id = e.source WHERE e.target = ?1
{{- end}}
{{- end}}
) ORDER BY seq, part`,

	"walk": `WITH RECURSIVE walk(x, depth) AS (
    SELECT ?1, 0
{{- if .Outbound}}
    UNION
    SELECT e.target, w.depth + 1 FROM edges e JOIN walk w ON e.source = w.x WHERE w.depth < ?2
{{- end}}
{{- if .Inbound}}
    UNION
    SELECT e.source, w.depth + 1 FROM edges e JOIN walk w ON e.target = w.x WHERE w.depth < ?2
{{- end}}
)
SELECT x, MIN(depth) AS depth FROM walk GROUP BY x ORDER BY depth, x`,

	"vector-search-node": `
		SELECT m.sequence_id, m.owner_id, m.metadata, v.distance
		FROM nodes_embedding v
		JOIN nodes_embedding_meta m ON m.sequence_id = v.sequence_id
		WHERE v.embedding MATCH ?
		  AND k = ?
		ORDER BY {{.Column}} {{if .Descending}}DESC{{else}}ASC{{end}}`,
}

var (
	fragments sync.Map // name -> *template.Template

	fragmentFuncs = template.FuncMap{"join": strings.Join}
)

func fragment(name string) *template.Template {
	if t, ok := fragments.Load(name); ok {
		return t.(*template.Template)
	}

	src, ok := fragmentSources[name]
	if !ok {
		panic("graphdb: unknown query fragment " + name)
	}

	t := template.Must(template.New(name).Funcs(fragmentFuncs).Parse(src))
	actual, _ := fragments.LoadOrStore(name, t)

	return actual.(*template.Template)
}

func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := fragment(name).Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
