package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bowerhall/graphlite/graphdb"
	"github.com/bowerhall/graphlite/internal/config"
	"github.com/bowerhall/graphlite/internal/embedder"
	"github.com/bowerhall/graphlite/internal/logger"
)

// app carries what every subcommand needs once the root has run.
type app struct {
	dbPath  string
	cfgFile string

	cfg   *config.Config
	store *graphdb.Store
	out   io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "graphlite",
		Short: "A graph store on SQLite with JSON bodies and vector search",
		Long: `graphlite keeps nodes and edges as JSON documents in one SQLite file,
answers attribute and neighborhood queries, and ranks nodes and edges by
embedding similarity when an embedder is configured.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database file (default $GRAPHLITE_DB or graphlite.db)")
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file (default $GRAPHLITE_CONFIG)")

	root.AddCommand(newInitCmd(a))
	root.AddCommand(newNodeCmd(a))
	root.AddCommand(newConnectCmd(a))
	root.AddCommand(newEdgesCmd(a))
	root.AddCommand(newFindCmd(a))
	root.AddCommand(newNeighborsCmd(a))
	root.AddCommand(newTraverseCmd(a))
	root.AddCommand(newWalkCmd(a))
	root.AddCommand(newEmbedCmd(a))
	root.AddCommand(newSearchCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newImportCmd(a))
	root.AddCommand(newBackupCmd(a))

	return root
}

func (a *app) open() error {
	if a.cfgFile != "" {
		os.Setenv("GRAPHLITE_CONFIG", a.cfgFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	a.cfg = cfg

	store, err := openStore(cfg, cfg.DBPath)
	if err != nil {
		return err
	}
	a.store = store

	return nil
}

func openStore(cfg *config.Config, path string) (*graphdb.Store, error) {
	store, err := graphdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	logger.Debug("store opened", "path", path)

	emb, err := embedder.New(embedder.Config{
		Provider: cfg.Embedder.Provider,
		BaseURL:  cfg.Embedder.BaseURL,
		Model:    cfg.Embedder.Model,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	if emb != nil {
		if err := store.SetEmbedder(emb, cfg.Embedder.Dimensions); err != nil {
			store.Close()
			return nil, fmt.Errorf("enable embeddings: %w", err)
		}
		logger.Debug("embeddings enabled", "provider", cfg.Embedder.Provider, "dimensions", store.Dimensions())
	}

	return store, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Info("database ready", "path", a.cfg.DBPath, "embeddings", a.store.HasEmbedder())
			return nil
		},
	}
}
