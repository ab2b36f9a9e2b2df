package shape

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"relmatch/internal/graph"
	"relmatch/internal/matcher"
)

// integerLiteral matches plain integers that yaml.v3 resolves to float64
// once they overflow uint64.
var integerLiteral = regexp.MustCompile(`^[-+]?[0-9][0-9_]*$`)

// ErrNoShapes is returned when a shape file declares no shapes.
var ErrNoShapes = errors.New("no shapes defined")

// Shape is a named expected relationship.
type Shape struct {
	Name  string
	Type  string
	Start *graph.Node
	End   *graph.Node
}

// Matcher builds the Matcher for this shape.
func (s Shape) Matcher() *matcher.Matcher {
	return matcher.New(s.Start, s.End, s.Type)
}

type shapeFile struct {
	Shapes []shapeRecord `yaml:"shapes"`
}

type shapeRecord struct {
	Name  string      `yaml:"name"`
	Type  string      `yaml:"type"`
	Start *nodeRecord `yaml:"start"`
	End   *nodeRecord `yaml:"end"`
}

type nodeRecord struct {
	Labels     []string             `yaml:"labels"`
	Properties map[string]yaml.Node `yaml:"properties"`
}

// Load reads shapes from a YAML (or JSON) file.
func Load(path string) ([]Shape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shape file: %w", err)
	}
	shapes, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return shapes, nil
}

// Parse decodes shapes from YAML or JSON. Unknown fields, duplicate mapping
// keys (including duplicate property keys) and duplicate shape names are
// rejected.
func Parse(data []byte) ([]Shape, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f shapeFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoShapes
		}
		return nil, fmt.Errorf("failed to decode shapes: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, fmt.Errorf("failed to decode shapes: %w", err)
		}
		return nil, errors.New("shape file must contain a single YAML document")
	}
	if len(f.Shapes) == 0 {
		return nil, ErrNoShapes
	}

	seen := make(map[string]bool, len(f.Shapes))
	shapes := make([]Shape, 0, len(f.Shapes))
	for i, rec := range f.Shapes {
		if rec.Name == "" {
			return nil, fmt.Errorf("shape #%d: missing name", i+1)
		}
		if seen[rec.Name] {
			return nil, fmt.Errorf("shape %q: duplicate name", rec.Name)
		}
		seen[rec.Name] = true

		if rec.Start == nil {
			return nil, fmt.Errorf("shape %q: missing start", rec.Name)
		}
		if rec.End == nil {
			return nil, fmt.Errorf("shape %q: missing end", rec.Name)
		}
		if rec.Type == "" {
			zap.S().Warnf("shape %q has an empty relationship type", rec.Name)
		}

		start, err := rec.Start.node()
		if err != nil {
			return nil, fmt.Errorf("shape %q: start: %w", rec.Name, err)
		}
		end, err := rec.End.node()
		if err != nil {
			return nil, fmt.Errorf("shape %q: end: %w", rec.Name, err)
		}

		shapes = append(shapes, Shape{
			Name:  rec.Name,
			Type:  rec.Type,
			Start: start,
			End:   end,
		})
	}
	return shapes, nil
}

func (r *nodeRecord) node() (*graph.Node, error) {
	props := make(map[string]any, len(r.Properties))
	for k := range r.Properties {
		n := r.Properties[k]
		v, err := propertyValue(&n)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		props[k] = v
	}
	return graph.NewNode(r.Labels, props), nil
}

// propertyValue decodes a property, rejecting maps and integer literals
// outside the int64 range. yaml.v3 would otherwise turn those integers into
// uint64 or float64.
func propertyValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return propertyValue(n.Alias)
	case yaml.MappingNode:
		return nil, fmt.Errorf("map values are not supported: %w", graph.ErrUnsupportedValue)
	case yaml.SequenceNode:
		list := make([]any, len(n.Content))
		for i, c := range n.Content {
			v, err := propertyValue(c)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			list[i] = v
		}
		return list, nil
	}

	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	_, isFloat := v.(float64)
	if n.ShortTag() == "!!int" || (isFloat && n.Style&yaml.TaggedStyle == 0 && integerLiteral.MatchString(n.Value)) {
		switch v.(type) {
		case int, int64:
		default:
			return nil, fmt.Errorf("integer %s outside int64 range: %w", n.Value, graph.ErrUnsupportedValue)
		}
	}
	return v, nil
}
