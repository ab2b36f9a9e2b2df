package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"relmatch/internal/set"
)

// Node is a labelled, property-bearing graph vertex. Nodes are compared
// structurally: the ID is a storage identity and never takes part in Equal.
type Node struct {
	ID         string         `json:"id,omitempty"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// NewNode copies labels and properties into a new Node. Labels are
// de-duplicated and sorted; property values are normalised (see NormalizeValue).
func NewNode(labels []string, props map[string]any) *Node {
	s := set.SetOf(labels...)
	sorted := s.ToSlice()
	sort.Strings(sorted)

	properties := make(map[string]any, len(props))
	for k, v := range props {
		properties[k] = NormalizeValue(v)
	}

	return &Node{
		Labels:     sorted,
		Properties: properties,
	}
}

// LabelSet returns the node's labels as an unordered set.
func (n *Node) LabelSet() set.Set[string] {
	return set.SetOf(n.Labels...)
}

// Equal reports whether n and other have the same label set and the same
// property keys with equal values.
func (n *Node) Equal(other *Node) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	if len(n.Properties) != len(other.Properties) {
		return false
	}
	for k, v := range n.Properties {
		ov, ok := other.Properties[k]
		if !ok || !ValueEqual(v, ov) {
			return false
		}
	}
	return n.LabelSet().Equal(other.LabelSet())
}

// String renders the node in Cypher pattern form, e.g. (:Person {id: 1234}).
func (n *Node) String() string {
	if n == nil {
		return "()"
	}
	labels := n.LabelSet().ToSlice()
	sort.Strings(labels)

	var b strings.Builder
	b.WriteString("(")
	for _, l := range labels {
		b.WriteString(":")
		b.WriteString(l)
	}
	if len(n.Properties) > 0 {
		keys := make([]string, 0, len(n.Properties))
		for k := range n.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		if len(labels) > 0 {
			b.WriteString(" ")
		}
		b.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", k, formatValue(n.Properties[k]))
		}
		b.WriteString("}")
	}
	b.WriteString(")")
	return b.String()
}

// MarshalJSON writes floats with a fractional part or exponent so that a
// float property such as 1234.0 reads back as a float, not an integer.
func (n Node) MarshalJSON() ([]byte, error) {
	type node Node
	out := node(n)
	if n.Properties != nil {
		out.Properties = make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			out.Properties[k] = jsonValue(v)
		}
	}
	return json.Marshal(out)
}

// Relationship is a directed, typed edge from Start to End.
type Relationship struct {
	ID    string `json:"id,omitempty"`
	Type  string `json:"type"`
	Start *Node  `json:"start"`
	End   *Node  `json:"end"`
}

func NewRelationship(start, end *Node, relType string) *Relationship {
	return &Relationship{
		Type:  relType,
		Start: start,
		End:   end,
	}
}

// Reversed returns a copy of r pointing the other way.
func (r *Relationship) Reversed() *Relationship {
	return &Relationship{
		ID:    r.ID,
		Type:  r.Type,
		Start: r.End,
		End:   r.Start,
	}
}

func (r *Relationship) String() string {
	return fmt.Sprintf("%s-[:%s]->%s", r.Start, r.Type, r.End)
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case float64:
		return floatNumber(x)
	case float32:
		return floatNumber(float64(x))
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonValue(e)
		}
		return out
	}
	return v
}

func floatNumber(f float64) any {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		// left for the encoder to reject
		return f
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return json.Number(s)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", x)
	}
}
