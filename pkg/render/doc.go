// Package render draws traced workflows as node-link diagrams.
//
// # Overview
//
// The package converts a workflow graph together with its trace tree
// into Graphviz DOT source, then renders the source in-process:
//
//	dot := render.ToDOT(g, tree, render.Options{})
//	svg, err := render.RenderSVG(dot)
//	png, err := render.RenderPNG(dot)
//
// Traced nodes appear as rounded boxes connected by arrows in data-flow
// direction, with the trace start node highlighted. [Options.Full] adds
// the untraced remainder of the graph greyed out, which makes it easy to
// see what a capture will and will not look at.
//
// # DOT Format
//
// The [ToDOT] function produces plain Graphviz DOT source that can be:
//
//   - Rendered directly via [RenderSVG] or [RenderPNG]
//   - Saved and processed with external Graphviz tools
//   - Customized before rendering
//
// Output is deterministic: nodes are emitted in trace order (distance,
// then ID) and edges in sorted input-name order.
//
// # Dependencies
//
// Rendering uses [github.com/goccy/go-graphviz], which runs Graphviz
// in-process. No external tools are required for SVG or PNG output.
package render
