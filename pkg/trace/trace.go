package trace

import (
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/metastamp/metastamp/pkg/workflow"
)

// Entry records one node reached during an upstream trace: its BFS
// distance from the start node and its class type.
type Entry struct {
	Distance  int    // Hops from the start node (start = 0)
	ClassType string // Node class, copied from the graph for convenience
}

// Tree is the result of an upstream trace, mapping reached node IDs to
// their entries. A node reachable along several paths keeps the distance
// of its first discovery, which BFS guarantees is minimal.
type Tree map[string]Entry

// IDs returns the reached node IDs in sorted order.
func (t Tree) IDs() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Ordered returns the reached node IDs sorted by distance, then by ID.
// This is the canonical iteration order for capture and display.
func (t Tree) Ordered() []string {
	ids := t.IDs()
	sort.SliceStable(ids, func(i, j int) bool {
		return t[ids[i]].Distance < t[ids[j]].Distance
	})
	return ids
}

// Filter returns the subset of the tree whose class type is in classes.
func (t Tree) Filter(classes ...string) Tree {
	want := make(map[string]bool, len(classes))
	for _, c := range classes {
		want[c] = true
	}
	out := make(Tree)
	for id, e := range t {
		if want[e.ClassType] {
			out[id] = e
		}
	}
	return out
}

// Run walks the graph upstream from start, following input references
// breadth-first, and returns the distance tree. Cycles are handled by
// visiting each node at most once. A missing start node yields an empty
// tree with a warning rather than an error: downstream stages degrade to
// capturing nothing.
func Run(g workflow.Graph, start string, logger *log.Logger) Tree {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	tree := make(Tree)
	startNode, ok := g[start]
	if !ok {
		logger.Warn("trace start node not found", "node", start)
		return tree
	}

	tree[start] = Entry{Distance: 0, ClassType: startNode.ClassType}
	queue := []string{start}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		dist := tree[id].Distance

		for _, ref := range g[id].Refs() {
			if _, seen := tree[ref.Node]; seen {
				continue
			}
			next, ok := g[ref.Node]
			if !ok {
				logger.Debug("skipping dangling reference", "from", id, "to", ref.Node)
				continue
			}
			tree[ref.Node] = Entry{Distance: dist + 1, ClassType: next.ClassType}
			queue = append(queue, ref.Node)
		}
	}

	logger.Debug("trace complete", "start", start, "reached", len(tree))
	return tree
}
