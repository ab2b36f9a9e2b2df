package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"relmatch/internal/config"
	"relmatch/internal/graph"
	"relmatch/internal/loader"
	"relmatch/internal/query"
	"relmatch/internal/shape"
	"relmatch/internal/storage"
)

func connect(ctx context.Context) (*query.Neo4jProvider, config.Config, error) {
	cfg := config.LoadConfig()
	if cfg.Neo4jURI == "" {
		return nil, cfg, errors.New("NEO4J_URI environment variable is not set")
	}

	provider, err := query.NewNeo4jProvider(ctx, cfg)
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}
	return provider, cfg, nil
}

func newQueryCmd() *cobra.Command {
	var (
		shapesPath string
		limit      int
		exists     bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Find stored relationships matching each shape",
		RunE: func(cmd *cobra.Command, args []string) error {
			shapes, err := shape.Load(shapesPath)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			provider, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer provider.Close(context.Background())

			if exists {
				found, err := findShapesPresent(ctx, provider, shapes)
				if err != nil {
					return err
				}
				return printJSON(found)
			}

			result, err := findShapeMatches(ctx, provider, shapes, limit)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}

	cmd.Flags().StringVar(&shapesPath, "shapes", "", "Shape file (YAML or JSON)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Result limit per shape (0 for no limit)")
	cmd.Flags().BoolVar(&exists, "exists", false, "Only report whether each shape has a match")
	_ = cmd.MarkFlagRequired("shapes")

	return cmd
}

func newLoadCmd() *cobra.Command {
	var (
		input string
		wipe  bool
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load relationships from a JSONL file into Neo4j",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("failed to open input file: %w", err)
			}
			defer f.Close()

			rels, err := storage.ReadAll(f)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			provider, cfg, err := connect(ctx)
			if err != nil {
				return err
			}
			defer provider.Close(context.Background())

			l := loader.NewNeo4jLoader(provider.Driver(), cfg.Neo4jDatabase)
			if wipe {
				zap.S().Warnf("Wiping database %s", cfg.Neo4jDatabase)
				if err := l.Wipe(ctx); err != nil {
					return err
				}
			}

			if err := l.BatchLoadRelationships(ctx, rels); err != nil {
				return err
			}
			zap.S().Infof("Loaded %d relationships from %s", len(rels), input)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Input JSONL file of relationships")
	cmd.Flags().BoolVar(&wipe, "wipe", false, "Delete all data before loading")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		relType string
		output  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export relationships from Neo4j to a JSONL file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			provider, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer provider.Close(context.Background())

			out, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			w := storage.NewRelationshipWriter(out)

			n, err := exportRelationships(ctx, provider, relType, limit, w)
			if closeErr := w.Close(); err == nil && closeErr != nil {
				err = fmt.Errorf("failed to close output file: %w", closeErr)
			}
			if err != nil {
				return err
			}

			zap.S().Infof("Exported %d relationships to %s", n, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&relType, "type", "", "Relationship type to export (empty for all)")
	cmd.Flags().StringVar(&output, "output", "relationships.jsonl", "Output file path")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum relationships to export (0 for no limit)")

	return cmd
}

// findShapeMatches returns up to limit stored matches per shape, keyed by
// shape name.
func findShapeMatches(ctx context.Context, provider query.GraphProvider, shapes []shape.Shape, limit int) (map[string][]*graph.Relationship, error) {
	result := make(map[string][]*graph.Relationship, len(shapes))
	for _, s := range shapes {
		matches, err := provider.FindMatches(ctx, s.Matcher(), limit)
		if err != nil {
			return nil, fmt.Errorf("shape %s: %w", s.Name, err)
		}
		zap.S().Debugf("Shape %s matched %d relationships", s.Name, len(matches))
		result[s.Name] = matches
	}
	return result, nil
}

// findShapesPresent reports, per shape name, whether any stored relationship
// matches.
func findShapesPresent(ctx context.Context, provider query.GraphProvider, shapes []shape.Shape) (map[string]bool, error) {
	result := make(map[string]bool, len(shapes))
	for _, s := range shapes {
		ok, err := provider.Exists(ctx, s.Matcher())
		if err != nil {
			return nil, fmt.Errorf("shape %s: %w", s.Name, err)
		}
		result[s.Name] = ok
	}
	return result, nil
}

func exportRelationships(ctx context.Context, provider query.GraphProvider, relType string, limit int, w *storage.RelationshipWriter) (int, error) {
	rels, err := provider.Relationships(ctx, relType, limit)
	if err != nil {
		return 0, err
	}
	for _, rel := range rels {
		if err := w.Write(rel); err != nil {
			return 0, fmt.Errorf("failed to write relationship: %w", err)
		}
	}
	return len(rels), nil
}
