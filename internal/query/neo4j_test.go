package query

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"relmatch/internal/config"
	"relmatch/internal/graph"
	"relmatch/internal/matcher"
)

func entityMatcher() *matcher.Matcher {
	return matcher.New(
		graph.NewNode([]string{"Person"}, map[string]any{"id": 1234}),
		graph.NewNode([]string{"Organisation"}, map[string]any{"name": "Neo4j"}),
		"ENTITY",
	)
}

func TestBuildRelationshipsQuery(t *testing.T) {
	query := buildRelationshipsQuery("ENTITY", 10)
	if !strings.Contains(query, "MATCH (s)-[r:`ENTITY`]->(e)") {
		t.Errorf("Missing typed MATCH clause: %s", query)
	}
	if !strings.Contains(query, "LIMIT $limit") {
		t.Error("Missing LIMIT clause")
	}

	query = buildRelationshipsQuery("", 0)
	if !strings.Contains(query, "MATCH (s)-[r]->(e)") {
		t.Errorf("Expected untyped MATCH clause: %s", query)
	}
	if strings.Contains(query, "LIMIT") {
		t.Error("Unexpected LIMIT clause without a limit")
	}
}

func TestBuildMatchQuery(t *testing.T) {
	query := buildMatchQuery(entityMatcher())

	if !strings.Contains(query, "MATCH (s:`Person`)-[r:`ENTITY`]->(e:`Organisation`)") {
		t.Errorf("Missing MATCH clause with labels and type: %s", query)
	}
	for _, clause := range []string{
		"size(labels(s)) = $startLabelCount",
		"size(keys(e)) = size(keys($endProps))",
		"all(k IN keys($startProps) WHERE s[k] = $startProps[k])",
		"RETURN s, r, e",
	} {
		if !strings.Contains(query, clause) {
			t.Errorf("Missing clause %q", clause)
		}
	}
}

func TestBuildMatchQuery_EscapesNames(t *testing.T) {
	m := matcher.New(
		graph.NewNode([]string{"B", "A`) DETACH DELETE (x"}, nil),
		graph.NewNode(nil, nil),
		"REL`]->()",
	)
	query := buildMatchQuery(m)

	assert.Contains(t, query, "(s:`A``) DETACH DELETE (x`:`B`)")
	assert.Contains(t, query, "[r:`REL``]->()`]")
	assert.Contains(t, query, "->(e)")
}

func TestMatchParams(t *testing.T) {
	params := matchParams(entityMatcher())

	assert.Equal(t, 1, params["startLabelCount"])
	assert.Equal(t, 1, params["endLabelCount"])
	assert.Equal(t, map[string]any{"id": int64(1234)}, params["startProps"])
	assert.Equal(t, map[string]any{"name": "Neo4j"}, params["endProps"])
}

func TestFromDriver(t *testing.T) {
	start := neo4j.Node{ElementId: "4:db:1", Labels: []string{"Person"}, Props: map[string]any{"id": int64(1234)}}
	end := neo4j.Node{ElementId: "4:db:2", Labels: []string{"Organisation"}, Props: map[string]any{"name": "Neo4j"}}
	rel := neo4j.Relationship{
		ElementId:      "5:db:9",
		StartElementId: "4:db:1",
		EndElementId:   "4:db:2",
		Type:           "ENTITY",
	}

	got := fromDriver(start, rel, end)

	assert.Equal(t, "5:db:9", got.ID)
	assert.Equal(t, "4:db:1", got.Start.ID)
	assert.Equal(t, "4:db:2", got.End.ID)
	assert.True(t, entityMatcher().Matches(got))
	assert.False(t, entityMatcher().Matches(fromDriver(end, rel, start)))
}

func getProvider(t *testing.T) *Neo4jProvider {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set, skipping integration test")
	}

	cfg := config.Config{
		Neo4jURI:      uri,
		Neo4jUser:     os.Getenv("NEO4J_USER"),
		Neo4jPassword: os.Getenv("NEO4J_PASSWORD"),
		Neo4jDatabase: config.LoadConfig().Neo4jDatabase,
	}

	provider, err := NewNeo4jProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return provider
}

func run(t *testing.T, p *Neo4jProvider, query string) {
	_, err := neo4j.ExecuteQuery(context.Background(), p.driver, query, nil,
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(p.dbName))
	if err != nil {
		t.Fatalf("Failed to run %q: %v", query, err)
	}
}

func cleanup(t *testing.T, p *Neo4jProvider) {
	_, err := neo4j.ExecuteQuery(context.Background(), p.driver, `
		MATCH (n) WHERE n.fixture = 'relmatch_test' DETACH DELETE n
	`, nil, neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(p.dbName))
	if err != nil {
		t.Logf("Failed to cleanup: %v", err)
	}
}

func TestNeo4jConnection(t *testing.T) {
	p := getProvider(t)
	defer p.Close(context.Background())
}

func TestFindMatches(t *testing.T) {
	p := getProvider(t)
	ctx := context.Background()
	defer p.Close(ctx)
	defer cleanup(t, p)

	run(t, p, `
		CREATE (p:Person {id: 4321, fixture: 'relmatch_test'})
		CREATE (q:Person {id: 4322, fixture: 'relmatch_test'})
		CREATE (o:Organisation {name: 'Neo4jTest', fixture: 'relmatch_test'})
		CREATE (p)-[:ENTITY]->(o)
		CREATE (q)-[:ENTITY]->(o)
		CREATE (o)-[:ENTITY]->(p)
	`)

	m := matcher.New(
		graph.NewNode([]string{"Person"}, map[string]any{"id": 4321, "fixture": "relmatch_test"}),
		graph.NewNode([]string{"Organisation"}, map[string]any{"name": "Neo4jTest", "fixture": "relmatch_test"}),
		"ENTITY",
	)

	matches, err := p.FindMatches(ctx, m, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.NotEmpty(t, matches[0].ID)

	exists, err := p.Exists(ctx, m)
	require.NoError(t, err)
	assert.True(t, exists)

	reversed := matcher.New(m.End(), m.Start(), "ENTITY")
	matches, err = p.FindMatches(ctx, reversed, 0)
	require.NoError(t, err)
	assert.Len(t, matches, 1, "the reverse edge exists as its own relationship")

	other := matcher.New(m.Start(), m.End(), "BLAH")
	exists, err = p.Exists(ctx, other)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRelationships(t *testing.T) {
	p := getProvider(t)
	ctx := context.Background()
	defer p.Close(ctx)
	defer cleanup(t, p)

	run(t, p, `
		CREATE (a:TestNode {name: 'A', fixture: 'relmatch_test'})
		CREATE (b:TestNode {name: 'B', fixture: 'relmatch_test'})
		CREATE (a)-[:RELMATCH_TEST_REL]->(b)
	`)

	rels, err := p.Relationships(ctx, "RELMATCH_TEST_REL", 10)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "A", rels[0].Start.Properties["name"])
	assert.Equal(t, "B", rels[0].End.Properties["name"])
}
