package workflow

import (
	"encoding/json"
	"sort"
)

// Ref is a connection from a node input to the output slot of an upstream
// node. In workflow JSON a reference is encoded as a two-element array
// ["node_id", slot]; everything else is a literal value.
type Ref struct {
	Node string // Upstream node ID
	Slot int    // Output slot index on the upstream node
}

// Node is a single step in a workflow graph. Inputs maps input names to
// either literal values (string, bool, [json.Number]) or references encoded
// as two-element arrays (see [ParseRef]).
//
// The zero value is an empty node with no inputs.
type Node struct {
	ClassType string         // Node type (e.g., "KSampler", "CheckpointLoaderSimple")
	Title     string         // Optional display title from node metadata
	Inputs    map[string]any // Input name -> literal or reference
}

// Graph maps node IDs to nodes. Node IDs are arbitrary non-empty strings;
// workflow files typically use decimal integers ("3", "17") but nothing
// depends on that.
//
// Graph is not safe for concurrent mutation without external synchronization.
type Graph map[string]Node

// ParseRef reports whether v is a node reference and returns it if so.
// A value is a reference iff it is a two-element array whose first element
// is a string and whose second element is an integral number. Any other
// shape is a literal, never an error.
func ParseRef(v any) (Ref, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return Ref{}, false
	}
	id, ok := arr[0].(string)
	if !ok {
		return Ref{}, false
	}
	slot, ok := asSlot(arr[1])
	if !ok {
		return Ref{}, false
	}
	return Ref{Node: id, Slot: slot}, true
}

// asSlot coerces a decoded JSON number to an output slot index.
func asSlot(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
			return int(f), true
		}
	case float64:
		if n == float64(int64(n)) {
			return int(n), true
		}
	case int:
		return n, true
	}
	return 0, false
}

// Input returns the raw input value for name, which may be a literal or a
// reference. The second return is false if the input does not exist.
func (n Node) Input(name string) (any, bool) {
	v, ok := n.Inputs[name]
	return v, ok
}

// Literal returns the input value for name if it exists and is not a
// reference. Capture rules read literals only; referenced values belong to
// the upstream node and are captured there.
func (n Node) Literal(name string) (any, bool) {
	v, ok := n.Inputs[name]
	if !ok {
		return nil, false
	}
	if _, isRef := ParseRef(v); isRef {
		return nil, false
	}
	return v, true
}

// RefInput returns the reference stored in the named input, if any.
func (n Node) RefInput(name string) (Ref, bool) {
	v, ok := n.Inputs[name]
	if !ok {
		return Ref{}, false
	}
	return ParseRef(v)
}

// InputNames returns the node's input names in sorted order. Iterating
// inputs through this method keeps traversal and capture deterministic
// across runs.
func (n Node) InputNames() []string {
	names := make([]string, 0, len(n.Inputs))
	for name := range n.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Refs returns all references held by the node's inputs, in sorted
// input-name order.
func (n Node) Refs() []Ref {
	var refs []Ref
	for _, name := range n.InputNames() {
		if ref, ok := ParseRef(n.Inputs[name]); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// Values supplies the input values a node was actually invoked with.
// Execution front-ends that intercept live calls can hand the resolved
// arguments through this; [Graph] itself implements it with the static
// literals from the workflow file.
type Values interface {
	// InputValues returns the input map for a node ID, or nil if the node
	// is unknown. Entries may be literals only; references are omitted.
	InputValues(id string) map[string]any
}

// InputValues returns the literal inputs of a node, with references
// stripped. This is the static fallback for [Values] when no live call
// data is available.
func (g Graph) InputValues(id string) map[string]any {
	n, ok := g[id]
	if !ok {
		return nil
	}
	vals := make(map[string]any, len(n.Inputs))
	for name, v := range n.Inputs {
		if _, isRef := ParseRef(v); isRef {
			continue
		}
		vals[name] = v
	}
	return vals
}

// IDs returns all node IDs in sorted order.
func (g Graph) IDs() []string {
	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Upstream resolves a reference to its source node. The second return is
// false if the referenced node does not exist in the graph.
func (g Graph) Upstream(ref Ref) (Node, bool) {
	n, ok := g[ref.Node]
	return n, ok
}
