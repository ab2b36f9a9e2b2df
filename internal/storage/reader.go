package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"relmatch/internal/graph"
)

// ErrMalformedRecord is returned for a record that decodes but is missing a
// required part of a relationship.
var ErrMalformedRecord = errors.New("malformed relationship record")

const maxLineSize = 10 * 1024 * 1024

// JSONLReader reads relationship records, one JSON object per line:
//
//	{"type": "ENTITY", "start": {"labels": [...], "properties": {...}}, "end": {...}}
//
// Numbers are decoded exactly and normalised with graph.NormalizeValue.
type JSONLReader struct {
	scanner *bufio.Scanner
	line    int
}

func NewJSONLReader(r io.Reader) *JSONLReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &JSONLReader{scanner: scanner}
}

// Next returns the next relationship, or io.EOF when the input is exhausted.
// Blank lines are skipped.
func (r *JSONLReader) Next() (*graph.Relationship, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()

		var rec graph.Relationship
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("line %d: failed to decode relationship: %w", r.line, err)
		}
		if rec.Start == nil {
			return nil, fmt.Errorf("line %d: missing start node: %w", r.line, ErrMalformedRecord)
		}
		if rec.End == nil {
			return nil, fmt.Errorf("line %d: missing end node: %w", r.line, ErrMalformedRecord)
		}

		if err := checkProperties(rec.Start); err != nil {
			return nil, fmt.Errorf("line %d: start node: %w", r.line, err)
		}
		if err := checkProperties(rec.End); err != nil {
			return nil, fmt.Errorf("line %d: end node: %w", r.line, err)
		}

		return &graph.Relationship{
			ID:    rec.ID,
			Type:  rec.Type,
			Start: rebuild(rec.Start),
			End:   rebuild(rec.End),
		}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: failed to read input: %w", r.line+1, err)
	}
	return nil, io.EOF
}

// Line is the number of the last line read.
func (r *JSONLReader) Line() int {
	return r.line
}

// ReadAll reads every relationship from r.
func ReadAll(r io.Reader) ([]*graph.Relationship, error) {
	reader := NewJSONLReader(r)
	var rels []*graph.Relationship
	for {
		rel, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return rels, nil
		}
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
}

func rebuild(n *graph.Node) *graph.Node {
	out := graph.NewNode(n.Labels, n.Properties)
	out.ID = n.ID
	return out
}

func checkProperties(n *graph.Node) error {
	for k, v := range n.Properties {
		if err := graph.CheckValue(v); err != nil {
			return fmt.Errorf("property %q: %w", k, err)
		}
	}
	return nil
}
