package capture

import (
	"sort"

	"github.com/metastamp/metastamp/pkg/rules"
	"github.com/metastamp/metastamp/pkg/trace"
	"github.com/metastamp/metastamp/pkg/workflow"
)

// Entry is one captured value with its provenance: which node produced it,
// from which input (or rule strategy), and at what trace distance.
// Distance is -1 until [Filter] annotates the entry against a trace tree.
type Entry struct {
	Node     string // Node ID the value came from
	Source   string // Input name, "selector", "recovered", or "inline"
	Value    any    // Captured value, already formatted if the rule formats
	Distance int    // Trace distance of the node, -1 when unfiltered
}

// Captured holds everything the engine extracted, keyed by capture field.
// Entries per field are ordered by trace distance (ascending, ties by node
// ID), so index 0 is the occurrence closest to the trace start.
type Captured map[rules.Field][]Entry

// First returns the first entry for a field.
func (c Captured) First(field rules.Field) (Entry, bool) {
	entries := c[field]
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[0], true
}

// Value returns the first captured value for a field.
func (c Captured) Value(field rules.Field) (any, bool) {
	e, ok := c.First(field)
	if !ok {
		return nil, ok
	}
	return e.Value, true
}

// String returns the first captured value rendered in canonical text form.
func (c Captured) String(field rules.Field) (string, bool) {
	v, ok := c.Value(field)
	if !ok {
		return "", false
	}
	return workflow.Display(v), true
}

// Strings renders every captured value for a field, in entry order.
func (c Captured) Strings(field rules.Field) []string {
	entries := c[field]
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = workflow.Display(e.Value)
	}
	return out
}

// Has reports whether any entry exists for the field.
func (c Captured) Has(field rules.Field) bool {
	return len(c[field]) > 0
}

// Fields returns the fields that captured at least one entry, in the
// canonical field declaration order.
func (c Captured) Fields() []rules.Field {
	var out []rules.Field
	for _, f := range rules.Fields() {
		if len(c[f]) > 0 {
			out = append(out, f)
		}
	}
	return out
}

// Filter keeps only the entries whose node is in the trace tree, annotates
// each with the node's distance, and sorts every field's list by ascending
// distance. The sort is stable, so equidistant entries keep their capture
// order and index 0 is always the occurrence nearest the trace start. The
// input map is left untouched.
func Filter(c Captured, t trace.Tree) Captured {
	out := make(Captured, len(c))
	for field, entries := range c {
		kept := make([]Entry, 0, len(entries))
		for _, e := range entries {
			node, ok := t[e.Node]
			if !ok {
				continue
			}
			e.Distance = node.Distance
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			continue
		}
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].Distance < kept[j].Distance })
		out[field] = kept
	}
	return out
}
