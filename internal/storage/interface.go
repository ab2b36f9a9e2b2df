package storage

import "relmatch/internal/graph"

// Emitter receives scan results.
type Emitter interface {
	// EmitMatch records that rel matched the named shape.
	EmitMatch(shape string, rel *graph.Relationship) error
	// EmitMiss records that rel matched no shape.
	EmitMiss(rel *graph.Relationship) error
	Close() error
}
