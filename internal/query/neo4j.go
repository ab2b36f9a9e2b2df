package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"relmatch/internal/config"
	"relmatch/internal/graph"
	"relmatch/internal/matcher"
	"relmatch/internal/set"
)

// Neo4jProvider implements GraphProvider using the official Neo4j Go driver.
type Neo4jProvider struct {
	driver neo4j.DriverWithContext
	dbName string
}

// NewNeo4jProvider creates a new connection to Neo4j.
func NewNeo4jProvider(ctx context.Context, cfg config.Config) (*Neo4jProvider, error) {
	auth := neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, "")

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify connectivity to neo4j: %w", err)
	}

	return NewNeo4jProviderWithDriver(driver, cfg.Neo4jDatabase), nil
}

// NewNeo4jProviderWithDriver wraps an existing driver.
func NewNeo4jProviderWithDriver(driver neo4j.DriverWithContext, dbName string) *Neo4jProvider {
	return &Neo4jProvider{
		driver: driver,
		dbName: dbName,
	}
}

// Driver exposes the underlying driver, e.g. to share it with a loader.
func (p *Neo4jProvider) Driver() neo4j.DriverWithContext {
	return p.driver
}

// Close closes the Neo4j driver connection.
func (p *Neo4jProvider) Close(ctx context.Context) error {
	return p.driver.Close(ctx)
}

// Relationships returns up to limit relationships of relType.
func (p *Neo4jProvider) Relationships(ctx context.Context, relType string, limit int) ([]*graph.Relationship, error) {
	query := buildRelationshipsQuery(relType, limit)

	result, err := neo4j.ExecuteQuery(ctx, p.driver, query, map[string]any{
		"limit": limit,
	}, neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(p.dbName))
	if err != nil {
		return nil, fmt.Errorf("failed to execute Relationships query: %w", err)
	}

	rels := make([]*graph.Relationship, 0, len(result.Records))
	for _, record := range result.Records {
		rel, err := relationshipFromRecord(record)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

// FindMatches returns up to limit stored relationships accepted by m. A limit
// <= 0 means no limit.
//
// The Cypher query pre-filters on type, labels and property values; m makes
// the final decision, since Cypher equality is looser than structural
// equality (1 = 1.0 holds in Cypher).
func (p *Neo4jProvider) FindMatches(ctx context.Context, m *matcher.Matcher, limit int) ([]*graph.Relationship, error) {
	if m.Type() == "" {
		// Neo4j relationships always have a type.
		return []*graph.Relationship{}, nil
	}

	query := buildMatchQuery(m)
	params := matchParams(m)

	session := p.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: p.dbName,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	matches, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		found := make([]*graph.Relationship, 0)
		for result.Next(ctx) {
			rel, err := relationshipFromRecord(result.Record())
			if err != nil {
				return nil, err
			}
			if !m.Matches(rel) {
				zap.S().Debugf("Candidate %s passed the query filter but not the matcher", rel)
				continue
			}
			found = append(found, rel)
			if limit > 0 && len(found) >= limit {
				return found, nil
			}
		}
		return found, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute FindMatches query: %w", err)
	}

	return matches.([]*graph.Relationship), nil
}

// Exists reports whether any stored relationship is accepted by m.
func (p *Neo4jProvider) Exists(ctx context.Context, m *matcher.Matcher) (bool, error) {
	matches, err := p.FindMatches(ctx, m, 1)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

func relationshipFromRecord(record *neo4j.Record) (*graph.Relationship, error) {
	start, _, err := neo4j.GetRecordValue[neo4j.Node](record, "s")
	if err != nil {
		return nil, fmt.Errorf("failed to get start node from record: %w", err)
	}
	rel, _, err := neo4j.GetRecordValue[neo4j.Relationship](record, "r")
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship from record: %w", err)
	}
	end, _, err := neo4j.GetRecordValue[neo4j.Node](record, "e")
	if err != nil {
		return nil, fmt.Errorf("failed to get end node from record: %w", err)
	}
	return fromDriver(start, rel, end), nil
}

func fromDriver(start neo4j.Node, rel neo4j.Relationship, end neo4j.Node) *graph.Relationship {
	return &graph.Relationship{
		ID:    rel.ElementId,
		Type:  rel.Type,
		Start: fromDriverNode(start),
		End:   fromDriverNode(end),
	}
}

func fromDriverNode(n neo4j.Node) *graph.Node {
	node := graph.NewNode(n.Labels, n.Props)
	node.ID = n.ElementId
	return node
}

func buildRelationshipsQuery(relType string, limit int) string {
	rel := "r"
	if relType != "" {
		rel = "r:" + quote(relType)
	}
	query := fmt.Sprintf(`
		MATCH (s)-[%s]->(e)
		RETURN s, r, e
	`, rel)
	if limit > 0 {
		query += "LIMIT $limit\n"
	}
	return query
}

// buildMatchQuery narrows candidates to the matcher's type, exact label sets
// and exact property key sets with equal values.
func buildMatchQuery(m *matcher.Matcher) string {
	return fmt.Sprintf(`
		MATCH (s%s)-[r:%s]->(e%s)
		WHERE size(labels(s)) = $startLabelCount
		  AND size(labels(e)) = $endLabelCount
		  AND size(keys(s)) = size(keys($startProps))
		  AND size(keys(e)) = size(keys($endProps))
		  AND all(k IN keys($startProps) WHERE s[k] = $startProps[k])
		  AND all(k IN keys($endProps) WHERE e[k] = $endProps[k])
		RETURN s, r, e
	`, labelPattern(m.Start().LabelSet()), quote(m.Type()), labelPattern(m.End().LabelSet()))
}

func matchParams(m *matcher.Matcher) map[string]any {
	return map[string]any{
		"startLabelCount": m.Start().LabelSet().Len(),
		"endLabelCount":   m.End().LabelSet().Len(),
		"startProps":      propsParam(m.Start()),
		"endProps":        propsParam(m.End()),
	}
}

func propsParam(n *graph.Node) map[string]any {
	props := make(map[string]any, len(n.Properties))
	for k, v := range n.Properties {
		props[k] = graph.NormalizeValue(v)
	}
	return props
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

// quote backtick-quotes a label or relationship type for use in Cypher,
// doubling embedded backticks.
func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
