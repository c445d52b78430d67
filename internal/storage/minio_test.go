package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c, err := NewClient(Config{
		Endpoint:  "localhost:9000",
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "graphlite-backups",
	})
	require.NoError(t, err)
	assert.Equal(t, "graphlite-backups", c.Bucket())
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

func TestNewClientBadEndpoint(t *testing.T) {
	_, err := NewClient(Config{Endpoint: "http://localhost:9000/path", Bucket: "b"})
	assert.Error(t, err)
}
