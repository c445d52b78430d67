package embedder

import (
	"fmt"

	"github.com/bowerhall/graphlite/graphdb"
	"github.com/bowerhall/graphlite/graphdb/ollama"
)

type Config struct {
	Provider string
	BaseURL  string
	Model    string
}

// New returns the configured provider, or nil when none is configured.
func New(cfg Config) (graphdb.Embedder, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewEmbedder(cfg.BaseURL, cfg.Model), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedder provider: %s", cfg.Provider)
	}
}
