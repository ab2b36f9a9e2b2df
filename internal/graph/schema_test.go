package graph

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func person(id int64) *Node {
	return NewNode([]string{"Person"}, map[string]any{"id": id})
}

func TestNewNode_CopiesAndNormalizes(t *testing.T) {
	labels := []string{"Person", "Human", "Person"}
	props := map[string]any{"id": 1234, "score": float32(0.5), "tags": []string{"a", "b"}}

	n := NewNode(labels, props)

	assert.Equal(t, []string{"Human", "Person"}, n.Labels)
	assert.Equal(t, int64(1234), n.Properties["id"])
	assert.Equal(t, float64(0.5), n.Properties["score"])
	assert.Equal(t, []any{"a", "b"}, n.Properties["tags"])

	// Mutating the inputs must not leak into the node.
	labels[0] = "Changed"
	props["id"] = 1
	assert.Equal(t, []string{"Human", "Person"}, n.Labels)
	assert.Equal(t, int64(1234), n.Properties["id"])
}

func TestNode_Equal(t *testing.T) {
	tests := []struct {
		name  string
		a, b  *Node
		equal bool
	}{
		{
			name:  "independently constructed",
			a:     person(1234),
			b:     person(1234),
			equal: true,
		},
		{
			name:  "different property value",
			a:     person(1234),
			b:     person(1235),
			equal: false,
		},
		{
			name:  "different property key",
			a:     NewNode([]string{"Person"}, map[string]any{"id": 1234}),
			b:     NewNode([]string{"Person"}, map[string]any{"uid": 1234}),
			equal: false,
		},
		{
			name:  "extra property",
			a:     NewNode([]string{"Person"}, map[string]any{"id": 1234}),
			b:     NewNode([]string{"Person"}, map[string]any{"id": 1234, "name": "Ann"}),
			equal: false,
		},
		{
			name:  "different label",
			a:     NewNode([]string{"Organisation"}, map[string]any{"id": 1234}),
			b:     NewNode([]string{"Human"}, map[string]any{"id": 1234}),
			equal: false,
		},
		{
			name:  "label order and duplicates ignored",
			a:     &Node{Labels: []string{"B", "A", "A"}, Properties: map[string]any{}},
			b:     &Node{Labels: []string{"A", "B"}},
			equal: true,
		},
		{
			name:  "integer kinds compare by value",
			a:     &Node{Labels: []string{"Person"}, Properties: map[string]any{"id": int32(1234)}},
			b:     &Node{Labels: []string{"Person"}, Properties: map[string]any{"id": uint16(1234)}},
			equal: true,
		},
		{
			name:  "json number against int",
			a:     &Node{Labels: []string{"Person"}, Properties: map[string]any{"id": json.Number("1234")}},
			b:     person(1234),
			equal: true,
		},
		{
			name:  "int is not float",
			a:     &Node{Properties: map[string]any{"v": 1}},
			b:     &Node{Properties: map[string]any{"v": 1.0}},
			equal: false,
		},
		{
			name:  "id is ignored",
			a:     &Node{ID: "4:abc:1", Labels: []string{"Person"}, Properties: map[string]any{"id": 1}},
			b:     &Node{ID: "4:abc:2", Labels: []string{"Person"}, Properties: map[string]any{"id": 1}},
			equal: true,
		},
		{
			name:  "nil against node",
			a:     nil,
			b:     person(1),
			equal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
			assert.Equal(t, tt.equal, tt.b.Equal(tt.a), "equality must be symmetric")
		})
	}
}

func TestValueEqual_Lists(t *testing.T) {
	assert.True(t, ValueEqual([]int{1, 2}, []any{int64(1), int64(2)}))
	assert.False(t, ValueEqual([]int{1, 2}, []any{int64(2), int64(1)}))
	assert.False(t, ValueEqual([]string{"a"}, "a"))
	assert.False(t, ValueEqual("a", []string{"a"}))
	assert.True(t, ValueEqual([]byte("abc"), []byte("abc")))
}

func TestNormalizeValue_JSONNumber(t *testing.T) {
	assert.Equal(t, int64(42), NormalizeValue(json.Number("42")))
	assert.Equal(t, 4.5, NormalizeValue(json.Number("4.5")))
}

func TestNode_String(t *testing.T) {
	n := NewNode([]string{"Organisation"}, map[string]any{"name": "Neo4j", "founded": 2007})
	assert.Equal(t, `(:Organisation {founded: 2007, name: "Neo4j"})`, n.String())
	assert.Equal(t, "()", NewNode(nil, nil).String())
}

func TestRelationship_ReversedAndString(t *testing.T) {
	start := person(1234)
	end := NewNode([]string{"Organisation"}, map[string]any{"name": "Neo4j"})
	rel := NewRelationship(start, end, "ENTITY")

	rev := rel.Reversed()
	require.NotNil(t, rev)
	assert.Same(t, end, rev.Start)
	assert.Same(t, start, rev.End)
	assert.Equal(t, "ENTITY", rev.Type)
	assert.Same(t, start, rel.Start, "Reversed must not mutate the receiver")

	assert.Equal(t, `(:Person {id: 1234})-[:ENTITY]->(:Organisation {name: "Neo4j"})`, rel.String())
}

func TestNode_MarshalJSON_KeepsFloatKind(t *testing.T) {
	n := NewNode([]string{"Person"}, map[string]any{
		"id":     1234,
		"score":  1234.0,
		"ratio":  0.25,
		"large":  1e21,
		"series": []any{1, 2.0},
	})

	data, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"labels":["Person"],"properties":{"id":1234,"score":1234.0,"ratio":0.25,"large":1e+21,"series":[1,2.0]}}`,
		string(data))
	assert.Contains(t, string(data), `"score":1234.0`)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var back Node
	require.NoError(t, dec.Decode(&back))
	assert.True(t, n.Equal(NewNode(back.Labels, back.Properties)))
	assert.Equal(t, 1234.0, n.Properties["score"], "marshalling must not mutate the node")
}

func TestCheckValue(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		wantErr string
	}{
		{name: "int64 max", value: json.Number("9223372036854775807")},
		{name: "float literal", value: json.Number("9223372036854775808.0")},
		{name: "exponent", value: json.Number("1e30")},
		{name: "uint64 in range", value: uint64(42)},
		{name: "string", value: "9223372036854775808"},
		{name: "nil", value: nil},
		{name: "bytes", value: []byte("abc")},
		{name: "json integer overflow", value: json.Number("9223372036854775808"), wantErr: "integer 9223372036854775808 outside int64 range"},
		{name: "negative overflow", value: json.Number("-9223372036854775809"), wantErr: "outside int64 range"},
		{name: "uint64 overflow", value: uint64(math.MaxInt64) + 1, wantErr: "outside int64 range"},
		{name: "map", value: map[string]any{"a": 1}, wantErr: "map values are not supported"},
		{name: "nested in list", value: []any{1, map[string]int{"a": 1}}, wantErr: "element 1: map values are not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckValue(tt.value)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.ErrorIs(t, err, ErrUnsupportedValue)
		})
	}
}
