package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bowerhall/graphlite/graphdb/ollama"
)

func TestNew(t *testing.T) {
	e, err := New(Config{Provider: "ollama", Model: "all-minilm"})
	require.NoError(t, err)
	require.IsType(t, &ollama.Embedder{}, e)
	assert.Equal(t, "all-minilm", e.(*ollama.Embedder).Model())

	e, err = New(Config{})
	require.NoError(t, err)
	assert.Nil(t, e)

	_, err = New(Config{Provider: "word2vec"})
	assert.Error(t, err)
}
