package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bowerhall/graphlite/graphdb"
	"github.com/bowerhall/graphlite/internal/logger"
)

func newNeighborsCmd(a *app) *cobra.Command {
	var (
		direction string
		bodies    bool
	)

	cmd := &cobra.Command{
		Use:   "neighbors <id>",
		Short: "List the one-hop neighborhood of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := parseDirection(direction)
			if err != nil {
				return err
			}

			rows, err := a.store.Neighbors(cmd.Context(), args[0], dir, bodies)
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Fprintf(a.out, "%s\t%s\t%s\n", r.ID, r.Marker, r.Body)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "both", "both, out or in")
	cmd.Flags().BoolVar(&bodies, "bodies", false, "include node bodies")
	return cmd
}

func newTraverseCmd(a *app) *cobra.Command {
	var (
		target    string
		direction string
		bodies    bool
	)

	cmd := &cobra.Command{
		Use:   "traverse <source>",
		Short: "Walk the one-hop frontier of a node, stopping at --target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := parseDirection(direction)
			if err != nil {
				return err
			}

			path, err := a.store.Traverse(cmd.Context(), args[0], graphdb.TraverseOptions{
				Target:     target,
				Direction:  dir,
				WithBodies: bodies,
			})
			if err != nil {
				return err
			}

			if !bodies {
				fmt.Fprintln(a.out, strings.Join(path.IDs(), "\n"))
				return nil
			}
			for _, step := range path {
				fmt.Fprintf(a.out, "%s\t%s\t%s\n", step.ID, step.Marker, step.Body)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "stop once this node is reached")
	cmd.Flags().StringVar(&direction, "direction", "both", "both, out or in")
	cmd.Flags().BoolVar(&bodies, "bodies", false, "include edge properties and node bodies")
	return cmd
}

func newWalkCmd(a *app) *cobra.Command {
	var (
		direction string
		depth     int
	)

	cmd := &cobra.Command{
		Use:   "walk <source>",
		Short: "List every node within --depth hops",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := parseDirection(direction)
			if err != nil {
				return err
			}

			steps, err := a.store.Walk(cmd.Context(), args[0], graphdb.WalkOptions{Direction: dir, MaxDepth: depth})
			if err != nil {
				return err
			}
			for _, s := range steps {
				fmt.Fprintf(a.out, "%d\t%s\n", s.Depth, s.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "out", "both, out or in")
	cmd.Flags().IntVar(&depth, "depth", 3, "maximum number of hops")
	return cmd
}

type format string

const (
	formatJSON format = "json"
	formatYAML format = "yaml"
)

func formatOf(name, explicit string) (format, error) {
	if explicit == "" {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".yaml", ".yml":
			return formatYAML, nil
		default:
			return formatJSON, nil
		}
	}

	switch f := format(strings.ToLower(explicit)); f {
	case formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or yaml)", explicit)
	}
}

func encodeGraph(kg *graphdb.KnowledgeGraph, f format) ([]byte, error) {
	if f == formatYAML {
		return yaml.Marshal(kg)
	}
	return json.MarshalIndent(kg, "", "  ")
}

func decodeGraph(data []byte, f format) (*graphdb.KnowledgeGraph, error) {
	var kg graphdb.KnowledgeGraph
	if f == formatYAML {
		if err := yaml.Unmarshal(data, &kg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		return &kg, nil
	}

	if err := json.Unmarshal(data, &kg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &kg, nil
}

func newExportCmd(a *app) *cobra.Command {
	var output, fmtName string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every node and edge as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatOf(output, fmtName)
			if err != nil {
				return err
			}

			kg, err := a.store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			data, err := encodeGraph(kg, f)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err := a.out.Write(data)
				return err
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			logger.Info("graph exported", "file", output, "nodes", len(kg.Nodes), "edges", len(kg.Edges))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&fmtName, "format", "", "json or yaml (default from the file extension)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var (
		fmtName  string
		override bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load nodes and edges from a JSON or YAML export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatOf(args[0], fmtName)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			kg, err := decodeGraph(data, f)
			if err != nil {
				return err
			}

			if err := a.store.Load(cmd.Context(), kg, graphdb.LoadOptions{Override: override}); err != nil {
				return err
			}

			logger.Info("graph imported", "file", args[0], "nodes", len(kg.Nodes), "edges", len(kg.Edges), "override", override)
			return nil
		},
	}

	cmd.Flags().StringVar(&fmtName, "format", "", "json or yaml (default from the file extension)")
	cmd.Flags().BoolVar(&override, "override", false, "remove the existing graph first")
	return cmd
}
