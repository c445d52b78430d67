package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GRAPHLITE_DB", "GRAPHLITE_CONFIG",
		"EMBEDDER_PROVIDER", "EMBEDDER_URL", "EMBEDDER_MODEL", "EMBEDDER_DIMENSIONS",
		"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_USE_SSL",
		"BACKUP_BUCKET", "BACKUP_SCHEDULE", "BACKUP_KEEP",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "graphlite.db", cfg.DBPath)
	assert.Equal(t, "", cfg.Embedder.Provider)
	assert.Equal(t, 0, cfg.Embedder.Dimensions)
	assert.Equal(t, "localhost:9000", cfg.Storage.Endpoint)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, "graphlite-backups", cfg.Backup.Bucket)
	assert.Equal(t, "0 3 * * *", cfg.Backup.Schedule)
	assert.Equal(t, 7, cfg.Backup.Keep)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRAPHLITE_DB", "/data/graph.db")
	t.Setenv("EMBEDDER_PROVIDER", "ollama")
	t.Setenv("EMBEDDER_DIMENSIONS", "384")
	t.Setenv("MINIO_ACCESS_KEY", "access")
	t.Setenv("MINIO_SECRET_KEY", "secret")
	t.Setenv("BACKUP_KEEP", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/graph.db", cfg.DBPath)
	assert.Equal(t, "ollama", cfg.Embedder.Provider)
	assert.Equal(t, 384, cfg.Embedder.Dimensions)
	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, 3, cfg.Backup.Keep)
}

func TestLoadInvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMBEDDER_DIMENSIONS", "wide")

	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("BACKUP_KEEP", "-1")

	_, err = Load()
	assert.Error(t, err)
}

func TestLoadFileOverlay(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRAPHLITE_DB", "from-env.db")
	t.Setenv("EMBEDDER_MODEL", "env-model")

	path := filepath.Join(t.TempDir(), "graphlite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: from-file.db
embedder:
  provider: ollama
  dimensions: 3
storage:
  access_key: a
  secret_key: b
backup:
  schedule: "@hourly"
`), 0o644))
	t.Setenv("GRAPHLITE_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file.db", cfg.DBPath)
	assert.Equal(t, "ollama", cfg.Embedder.Provider)
	assert.Equal(t, "env-model", cfg.Embedder.Model, "keys absent from the file keep their env value")
	assert.Equal(t, 3, cfg.Embedder.Dimensions)
	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, "@hourly", cfg.Backup.Schedule)
	assert.Equal(t, 7, cfg.Backup.Keep)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRAPHLITE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
