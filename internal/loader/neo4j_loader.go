package loader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"relmatch/internal/graph"
	"relmatch/internal/set"
)

var (
	// ErrEmptyType is returned for a relationship without a type.
	ErrEmptyType = errors.New("empty relationship type")
	// ErrEmptyLabel is returned for a node carrying an empty label.
	ErrEmptyLabel = errors.New("empty label")
)

// Neo4jLoader handles batch loading of relationships into Neo4j.
type Neo4jLoader struct {
	Driver neo4j.DriverWithContext
	DBName string
}

// NewNeo4jLoader creates a new loader instance.
func NewNeo4jLoader(driver neo4j.DriverWithContext, dbName string) *Neo4jLoader {
	return &Neo4jLoader{
		Driver: driver,
		DBName: dbName,
	}
}

// batchKey identifies relationships that can share one UNWIND query.
type batchKey struct {
	startLabels string
	relType     string
	endLabels   string
}

// BatchLoadRelationships creates every relationship together with fresh start
// and end nodes, using one UNWIND query per (start labels, type, end labels).
func (l *Neo4jLoader) BatchLoadRelationships(ctx context.Context, rels []*graph.Relationship) error {
	if len(rels) == 0 {
		return nil
	}

	batches, err := groupRelationships(rels)
	if err != nil {
		return err
	}

	session := l.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: l.DBName})
	defer session.Close(ctx)

	for key, batch := range batches {
		query := buildRelationshipQuery(key)
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return tx.Run(ctx, query, map[string]any{"batch": batch})
		})
		if err != nil {
			return fmt.Errorf("failed to load relationships of type %s: %w", key.relType, err)
		}
		zap.S().Debugf("Loaded %d %s relationships", len(batch), key.relType)
	}

	return nil
}

// Wipe deletes all data from the database.
func (l *Neo4jLoader) Wipe(ctx context.Context) error {
	session := l.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: l.DBName})
	defer session.Close(ctx)

	query := buildWipeQuery()
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, nil)
	})
	if err != nil {
		return fmt.Errorf("failed to wipe database: %w", err)
	}
	return nil
}

// Helpers extracted for testing
func groupRelationships(rels []*graph.Relationship) (map[batchKey][]map[string]any, error) {
	batches := make(map[batchKey][]map[string]any)
	for _, r := range rels {
		if err := checkLoadable(r); err != nil {
			return nil, fmt.Errorf("relationship %s: %w", r, err)
		}
		key := batchKey{
			startLabels: labelPattern(r.Start.LabelSet()),
			relType:     r.Type,
			endLabels:   labelPattern(r.End.LabelSet()),
		}

		row := map[string]any{
			"start": properties(r.Start),
			"end":   properties(r.End),
		}
		batches[key] = append(batches[key], row)
	}
	return batches, nil
}

// checkLoadable rejects relationships Neo4j cannot store as written.
func checkLoadable(r *graph.Relationship) error {
	if r.Type == "" {
		return ErrEmptyType
	}
	if r.Start.LabelSet().Contains("") {
		return fmt.Errorf("start node: %w", ErrEmptyLabel)
	}
	if r.End.LabelSet().Contains("") {
		return fmt.Errorf("end node: %w", ErrEmptyLabel)
	}
	return nil
}

func properties(n *graph.Node) map[string]any {
	props := make(map[string]any, len(n.Properties))
	for k, v := range n.Properties {
		props[k] = graph.NormalizeValue(v)
	}
	return props
}

func buildRelationshipQuery(key batchKey) string {
	return fmt.Sprintf(`
			UNWIND $batch AS row
			CREATE (s%s)
			SET s = row.start
			CREATE (e%s)
			SET e = row.end
			CREATE (s)-[:%s]->(e)
		`, key.startLabels, key.endLabels, quote(key.relType))
}

func buildWipeQuery() string {
	return "MATCH (n) DETACH DELETE n"
}

func labelPattern(labels set.Set[string]) string {
	sorted := labels.ToSlice()
	sort.Strings(sorted)

	var b strings.Builder
	for _, l := range sorted {
		b.WriteString(":")
		b.WriteString(quote(l))
	}
	return b.String()
}

// quote backtick-quotes a label or relationship type, doubling embedded
// backticks.
func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
