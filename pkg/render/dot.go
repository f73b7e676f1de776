package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/metastamp/metastamp/pkg/trace"
	"github.com/metastamp/metastamp/pkg/workflow"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes trace distances and literal input values in node
	// labels and names the feeding input on each edge. When false, only
	// the node ID, class and title are shown.
	Detailed bool
	// Full draws the entire graph, greying out nodes the trace did not
	// reach. When false, only traced nodes and the edges between them
	// appear.
	Full bool
}

// maxLabelValue caps literal values in detailed labels; prompts run to
// hundreds of characters.
const maxLabelValue = 40

// ToDOT converts a traced workflow to Graphviz DOT format for node-link
// visualization. The resulting DOT string can be rendered with
// [RenderSVG] or [RenderPNG].
//
// Edges point in data-flow direction, from the referenced upstream node
// to the node holding the reference, so loaders sit at the top and the
// trace start at the bottom. The start node is drawn highlighted;
// untraced nodes (with [Options.Full]) are dashed and grey.
func ToDOT(g workflow.Graph, t trace.Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph workflow {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	ids := t.Ordered()
	if opts.Full {
		ids = fullOrder(g, t)
	}
	for _, id := range ids {
		label := fmtLabel(id, g[id], t, opts.Detailed)
		attrs := fmtAttrs(id, t, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, id := range ids {
		writeEdges(&buf, g, t, id, opts)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// fullOrder lists traced nodes first in trace order, then the untraced
// remainder sorted by ID.
func fullOrder(g workflow.Graph, t trace.Tree) []string {
	ids := t.Ordered()
	for _, id := range g.IDs() {
		if _, ok := t[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func fmtLabel(id string, n workflow.Node, t trace.Tree, detailed bool) string {
	lines := []string{id, n.ClassType}
	if n.Title != "" && n.Title != n.ClassType {
		lines = append(lines, n.Title)
	}
	if !detailed {
		return strings.Join(lines, "\n")
	}

	if e, ok := t[id]; ok {
		lines = append(lines, fmt.Sprintf("distance: %d", e.Distance))
	}
	for _, name := range n.InputNames() {
		v, ok := n.Literal(name)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, truncValue(workflow.Display(v))))
	}
	return strings.Join(lines, "\n")
}

func fmtAttrs(id string, t trace.Tree, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	e, traced := t[id]
	switch {
	case traced && e.Distance == 0:
		attrs = append(attrs, "fillcolor=lightblue")
	case !traced:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=grey30")
	}
	return attrs
}

func writeEdges(buf *bytes.Buffer, g workflow.Graph, t trace.Tree, id string, opts Options) {
	n := g[id]
	for _, name := range n.InputNames() {
		ref, ok := n.RefInput(name)
		if !ok {
			continue
		}
		if _, exists := g[ref.Node]; !exists {
			continue
		}
		_, fromTraced := t[ref.Node]
		_, toTraced := t[id]
		if !opts.Full && (!fromTraced || !toTraced) {
			continue
		}

		var attrs []string
		if opts.Detailed {
			attrs = append(attrs, fmt.Sprintf("label=%q", name), "fontsize=14")
		}
		if !fromTraced || !toTraced {
			attrs = append(attrs, "color=grey", "style=dashed")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(buf, "  %q -> %q;\n", ref.Node, id)
			continue
		}
		fmt.Fprintf(buf, "  %q -> %q [%s];\n", ref.Node, id, strings.Join(attrs, ", "))
	}
}

func truncValue(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= maxLabelValue {
		return s
	}
	return string(r[:maxLabelValue-3]) + "..."
}
