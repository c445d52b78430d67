package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, db string, args ...string) string {
	t.Helper()
	t.Setenv("GRAPHLITE_CONFIG", "")
	t.Setenv("EMBEDDER_PROVIDER", "")

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--db", db}, args...))
	require.NoError(t, cmd.ExecuteContext(context.Background()), strings.Join(args, " "))
	return out.String()
}

func TestNodeCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")

	id := strings.TrimSpace(run(t, db, "node", "add", "--id", "ada", `{"name":"Ada","born":1815}`))
	assert.Equal(t, "ada", id)

	generated := strings.TrimSpace(run(t, db, "node", "add", `{"name":"anon"}`))
	assert.Len(t, generated, 36)

	out := run(t, db, "node", "upsert", "ada", `{"field":"math"}`)
	var merged map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &merged))
	assert.Equal(t, "Ada", merged["name"])
	assert.Equal(t, "math", merged["field"])

	ids := strings.Fields(run(t, db, "node", "ids"))
	assert.ElementsMatch(t, []string{"ada", generated}, ids)

	found := strings.Fields(run(t, db, "find", "--where", "born<1900", "--ids"))
	assert.Equal(t, []string{"ada"}, found)

	run(t, db, "node", "rm", generated)
	assert.Equal(t, "{}\n", run(t, db, "node", "get", generated))
}

func TestGraphCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")

	for _, id := range []string{"a", "b", "c"} {
		run(t, db, "node", "add", "--id", id, `{}`)
	}
	run(t, db, "connect", "a", "b", "--label", "next")
	run(t, db, "connect", "b", "c", "--label", "next")

	assert.Equal(t, []string{"b"}, strings.Fields(run(t, db, "traverse", "a", "--direction", "out")))

	walk := run(t, db, "walk", "a", "--depth", "2")
	assert.Equal(t, "0\ta\n1\tb\n2\tc\n", walk)

	var edges []map[string]any
	require.NoError(t, json.Unmarshal([]byte(run(t, db, "edges", "b")), &edges))
	assert.Len(t, edges, 2)
}

func TestExportImportYAML(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	file := filepath.Join(dir, "graph.yaml")

	run(t, src, "node", "add", "--id", "x", `{"label":"thing","size":3}`)
	run(t, src, "node", "add", "--id", "y", `{}`)
	run(t, src, "connect", "x", "y", "--props", `{"w":0.5}`)
	run(t, src, "export", "-o", file)

	run(t, dst, "node", "add", "--id", "old", `{}`)
	run(t, dst, "import", file, "--override")

	assert.ElementsMatch(t, []string{"x", "y"}, strings.Fields(run(t, dst, "node", "ids")))

	var node map[string]any
	require.NoError(t, json.Unmarshal([]byte(run(t, dst, "node", "get", "x")), &node))
	assert.Equal(t, "thing", node["label"])
	assert.EqualValues(t, 3, node["size"])
}
