package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bowerhall/graphlite/graphdb"
	"github.com/bowerhall/graphlite/internal/logger"
)

func newEmbedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Compute and manage embeddings (needs EMBEDDER_PROVIDER)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "node <id>...",
		Short: "Embed the current body of each node",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs := make([]graphdb.Attributes, 0, len(args))
			for _, id := range args {
				body, err := a.store.FindNode(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(body) == 0 {
					return fmt.Errorf("node %s not found", id)
				}
				attrs = append(attrs, body)
			}

			if err := a.store.AddNodeEmbeddings(cmd.Context(), args, attrs); err != nil {
				return err
			}
			logger.Info("nodes embedded", "count", len(args))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "edges <node-id>",
		Short: "Embed every edge touching a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			edges, err := a.store.GetConnections(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if err := a.store.AddEdgeEmbeddings(cmd.Context(), edges); err != nil {
				return err
			}
			logger.Info("edges embedded", "node", args[0], "count", len(edges))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <node-id>",
		Short: "Delete a node's embeddings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.DeleteNodeEmbedding(cmd.Context(), args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm-edge <edge-id>...",
		Short: "Delete edge embeddings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("edge id %q: %w", arg, err)
				}
				ids = append(ids, id)
			}
			return a.store.DeleteEdgeEmbedding(cmd.Context(), ids)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <node-id>",
		Short: "Print a node's stored embeddings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.store.NodeEmbeddings(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if records == nil {
				records = []graphdb.EmbeddingRecord{}
			}
			return a.print(records)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reindex",
		Short: "Rebuild every node embedding from the current bodies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.store.ReindexNodeEmbeddings(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("embeddings rebuilt", "nodes", n)
			return nil
		},
	})

	return cmd
}

type searchFlags struct {
	threshold float64
	limit     int
	desc      bool
	sortBy    string
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "keep results with distance strictly below this")
	cmd.Flags().IntVar(&f.limit, "limit", 10, "maximum number of results")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
	cmd.Flags().StringVar(&f.sortBy, "sort", "distance", "distance, sequence_id or owner_id")
}

func (f *searchFlags) options(cmd *cobra.Command) graphdb.SearchOptions {
	opts := graphdb.SearchOptions{
		Limit:      f.limit,
		Descending: f.desc,
		SortBy:     graphdb.SortKey(f.sortBy),
	}
	if cmd.Flags().Changed("threshold") {
		t := f.threshold
		opts.Threshold = &t
	}
	return opts
}

func newSearchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Rank nodes or edges by embedding distance to a text",
	}

	var nodeFlags searchFlags
	nodes := &cobra.Command{
		Use:   "nodes <text>",
		Short: "Search node embeddings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := a.store.VectorSearchNode(cmd.Context(), args[0], nodeFlags.options(cmd))
			if err != nil {
				return err
			}
			if matches == nil {
				logger.Info("no node embeddings stored")
				matches = []graphdb.NodeMatch{}
			}
			return a.print(matches)
		},
	}
	nodeFlags.register(nodes)

	var edgeFlags searchFlags
	edges := &cobra.Command{
		Use:   "edges <text>",
		Short: "Search edge embeddings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := a.store.VectorSearchEdge(cmd.Context(), args[0], edgeFlags.options(cmd))
			if err != nil {
				return err
			}
			if matches == nil {
				logger.Info("no edge embeddings stored")
				matches = []graphdb.EdgeMatch{}
			}
			return a.print(matches)
		},
	}
	edgeFlags.register(edges)

	var (
		storeFlags searchFlags
		others     []string
	)
	stores := &cobra.Command{
		Use:   "stores <text>",
		Short: "Search node embeddings across this and other databases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all := []*graphdb.Store{a.store}
			for _, path := range others {
				s, err := openStore(a.cfg, path)
				if err != nil {
					return err
				}
				defer s.Close()
				all = append(all, s)
			}

			opts := storeFlags.options(cmd)
			results, err := graphdb.SearchStores(cmd.Context(), all, args[0], opts.Threshold, opts.Limit)
			if err != nil {
				return err
			}

			for _, r := range results {
				path := a.cfg.DBPath
				if r.Store > 0 {
					path = others[r.Store-1]
				}
				fmt.Fprintf(a.out, "%.6f\t%s\t%s\n", r.Distance, path, r.OwnerID)
			}
			return nil
		},
	}
	storeFlags.register(stores)
	stores.Flags().StringArrayVar(&others, "store", nil, "additional database file (repeatable)")

	cmd.AddCommand(nodes, edges, stores)
	return cmd
}
