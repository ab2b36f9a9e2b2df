// Package matcher decides whether a relationship has an expected shape: a
// fixed start node, end node and relationship type.
package matcher

import (
	"fmt"

	"relmatch/internal/graph"
)

// Matcher holds an expected (start, end, type) triple. It is immutable after
// construction and safe for concurrent use.
type Matcher struct {
	start   *graph.Node
	end     *graph.Node
	relType string
}

// New creates a Matcher for relationships of type relType from start to end.
// Any relType is accepted, including the empty string. start and end must
// not be nil.
func New(start, end *graph.Node, relType string) *Matcher {
	if start == nil || end == nil {
		panic("matcher: expected start and end nodes must not be nil")
	}
	return &Matcher{
		start:   start,
		end:     end,
		relType: relType,
	}
}

// Matches reports whether candidate has the expected type, a start node
// structurally equal to the expected start and an end node structurally
// equal to the expected end. Direction matters: a reversed candidate does
// not match.
//
// candidate and its Start and End nodes must not be nil.
func (m *Matcher) Matches(candidate *graph.Relationship) bool {
	if candidate == nil || candidate.Start == nil || candidate.End == nil {
		panic("matcher: candidate relationship must have start and end nodes")
	}
	return candidate.Type == m.relType &&
		m.start.Equal(candidate.Start) &&
		m.end.Equal(candidate.End)
}

// Start returns the expected start node. Callers must not modify it.
func (m *Matcher) Start() *graph.Node { return m.start }

// End returns the expected end node. Callers must not modify it.
func (m *Matcher) End() *graph.Node { return m.end }

// Type returns the expected relationship type.
func (m *Matcher) Type() string { return m.relType }

func (m *Matcher) String() string {
	return fmt.Sprintf("%s-[:%s]->%s", m.start, m.relType, m.end)
}
