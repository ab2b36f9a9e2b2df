package storage

import (
	"encoding/json"
	"errors"
	"io"
	"sync"

	"relmatch/internal/graph"
)

// resultRecord is one line of a combined scan report. Shape is empty for misses.
type resultRecord struct {
	Shape        string              `json:"shape,omitempty"`
	Relationship *graph.Relationship `json:"relationship"`
}

// JSONLEmitter implements Emitter by writing matches and misses to a single
// JSONL stream.
type JSONLEmitter struct {
	w       io.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONLEmitter creates a new JSONLEmitter writing to w.
func NewJSONLEmitter(w io.Writer) *JSONLEmitter {
	return &JSONLEmitter{
		w:       w,
		encoder: json.NewEncoder(w),
	}
}

// EmitMatch writes {"shape": ..., "relationship": ...}.
func (e *JSONLEmitter) EmitMatch(shape string, rel *graph.Relationship) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encoder.Encode(resultRecord{Shape: shape, Relationship: rel})
}

// EmitMiss writes {"relationship": ...}.
func (e *JSONLEmitter) EmitMiss(rel *graph.Relationship) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encoder.Encode(resultRecord{Relationship: rel})
}

// Close closes the underlying writer if it implements io.Closer.
func (e *JSONLEmitter) Close() error {
	if c, ok := e.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SplitJSONLEmitter implements Emitter writing matches and misses to separate
// streams. Misses are written as plain relationship records so the miss file
// can be scanned again.
type SplitJSONLEmitter struct {
	matchEncoder *json.Encoder
	misses       *RelationshipWriter
	matchCloser  io.Closer
	mu           sync.Mutex
}

// NewSplitJSONLEmitter creates a new SplitJSONLEmitter.
func NewSplitJSONLEmitter(matchW, missW io.Writer) *SplitJSONLEmitter {
	s := &SplitJSONLEmitter{
		matchEncoder: json.NewEncoder(matchW),
		misses:       NewRelationshipWriter(missW),
	}
	if c, ok := matchW.(io.Closer); ok {
		s.matchCloser = c
	}
	return s
}

func (e *SplitJSONLEmitter) EmitMatch(shape string, rel *graph.Relationship) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matchEncoder.Encode(resultRecord{Shape: shape, Relationship: rel})
}

func (e *SplitJSONLEmitter) EmitMiss(rel *graph.Relationship) error {
	return e.misses.Write(rel)
}

func (e *SplitJSONLEmitter) Close() error {
	var errs []error
	if e.matchCloser != nil {
		errs = append(errs, e.matchCloser.Close())
	}
	errs = append(errs, e.misses.Close())
	return errors.Join(errs...)
}

// RelationshipWriter writes plain relationship records, one per line, in the
// format JSONLReader reads.
type RelationshipWriter struct {
	w       io.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

func NewRelationshipWriter(w io.Writer) *RelationshipWriter {
	return &RelationshipWriter{
		w:       w,
		encoder: json.NewEncoder(w),
	}
}

func (rw *RelationshipWriter) Write(rel *graph.Relationship) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.encoder.Encode(rel)
}

// Close closes the underlying writer if it implements io.Closer.
func (rw *RelationshipWriter) Close() error {
	if c, ok := rw.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
