package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bowerhall/graphlite/graphdb"
	"github.com/bowerhall/graphlite/internal/logger"
)

func newNodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Add, update, read and remove nodes",
	}

	cmd.AddCommand(newNodeAddCmd(a))
	cmd.AddCommand(newNodeUpsertCmd(a))
	cmd.AddCommand(newNodeGetCmd(a))
	cmd.AddCommand(newNodeRemoveCmd(a))
	cmd.AddCommand(newNodeIDsCmd(a))

	return cmd
}

func newNodeAddCmd(a *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "add [json]",
		Short: "Insert a node; a UUID is generated when --id is empty",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body string
			if len(args) == 1 {
				body = args[0]
			}
			attrs, err := parseAttributes(body)
			if err != nil {
				return err
			}

			id, err := a.store.AddNode(cmd.Context(), attrs, id)
			if err != nil {
				return err
			}

			logger.Debug("node added", "id", id)
			fmt.Fprintln(a.out, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "node id")
	return cmd
}

func newNodeUpsertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upsert <id> <json>",
		Short: "Insert a node or merge attributes into an existing one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseAttributes(args[1])
			if err != nil {
				return err
			}

			if err := a.store.UpsertNode(cmd.Context(), args[0], attrs); err != nil {
				return err
			}

			current, err := a.store.FindNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(current)
		},
	}
}

func newNodeGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print a node's attributes ({} when absent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := a.store.FindNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(attrs)
		},
	}
}

func newNodeRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Remove nodes and every edge touching them",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.RemoveNodes(cmd.Context(), args); err != nil {
				return err
			}
			logger.Info("nodes removed", "count", len(args))
			return nil
		},
	}
}

func newNodeIDsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ids",
		Short: "List every node id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.store.NodeIDs(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(a.out, id)
			}
			return nil
		},
	}
}

func newConnectCmd(a *app) *cobra.Command {
	var label, props string

	cmd := &cobra.Command{
		Use:   "connect <source> <target>",
		Short: "Add a directed edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseAttributes(props)
			if err != nil {
				return err
			}

			id, err := a.store.ConnectNodes(cmd.Context(), args[0], args[1], label, attrs)
			if err != nil {
				return err
			}

			fmt.Fprintln(a.out, strconv.FormatInt(id, 10))
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "edge label")
	cmd.Flags().StringVar(&props, "props", "", "edge properties as a JSON object")
	return cmd
}

func newEdgesCmd(a *app) *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "edges <id>",
		Short: "List the edges of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := parseDirection(direction)
			if err != nil {
				return err
			}

			edges, err := a.store.GetConnectionsOneWay(cmd.Context(), args[0], dir)
			if err != nil {
				return err
			}
			if edges == nil {
				edges = []graphdb.Edge{}
			}
			return a.print(edges)
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "both", "both, out or in")
	return cmd
}

func newFindCmd(a *app) *cobra.Command {
	var (
		where    []string
		not      []string
		matchAny bool
		tree     bool
		treeKey  string
		idsOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Search node bodies",
		Long: `Search node bodies with conditions of the form key<op>value, where op is
one of = != < <= > >= ~ (LIKE) or * (GLOB). Values are read as JSON when
they parse, so age>30 compares numbers and name=ada compares strings.

With --tree every nested value is searched; a condition's key then names
the nested entry to match, and --tree-key narrows the search to one subtree.`,
		Example: `  graphlite find --where 'type=person' --where 'age>=30'
  graphlite find --where 'name~%ada%' --not 'retired=true' --ids
  graphlite find --tree --where 'city=London'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := buildQuery(where, not, matchAny)
			if err != nil {
				return err
			}
			if tree {
				q.Tree = true
				q.Key = treeKey
				for i := range q.Clauses {
					q.Clauses[i].Tree = true
				}
			}

			if idsOnly {
				ids, err := a.store.FindNodeIDs(cmd.Context(), q)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(a.out, id)
				}
				return nil
			}

			it, err := a.store.FindNodes(cmd.Context(), q)
			if err != nil {
				return err
			}
			for attrs, err := range it.All() {
				if err != nil {
					return err
				}
				if err := a.print(attrs); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&where, "where", nil, "condition to match (repeatable)")
	cmd.Flags().StringArrayVar(&not, "not", nil, "condition that must not match (repeatable)")
	cmd.Flags().BoolVar(&matchAny, "any", false, "join --where conditions with OR instead of AND")
	cmd.Flags().BoolVar(&tree, "tree", false, "search nested values")
	cmd.Flags().StringVar(&treeKey, "tree-key", "", "limit --tree to this key or JSON path")
	cmd.Flags().BoolVar(&idsOnly, "ids", false, "print ids only")
	return cmd
}
