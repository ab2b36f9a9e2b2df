package query

import (
	"context"

	"relmatch/internal/graph"
	"relmatch/internal/matcher"
)

// GraphProvider defines the interface for fetching candidate relationships
// from a graph database.
type GraphProvider interface {
	// Lifecycle
	Close(ctx context.Context) error

	// Relationships returns up to limit relationships of relType. An empty
	// relType matches any type; a limit <= 0 means no limit.
	Relationships(ctx context.Context, relType string, limit int) ([]*graph.Relationship, error)

	// FindMatches returns up to limit stored relationships accepted by m.
	FindMatches(ctx context.Context, m *matcher.Matcher, limit int) ([]*graph.Relationship, error)

	// Exists reports whether any stored relationship is accepted by m.
	Exists(ctx context.Context, m *matcher.Matcher) (bool, error)
}
