package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metastamp/metastamp/pkg/errors"
	"github.com/metastamp/metastamp/pkg/pipeline"
	"github.com/metastamp/metastamp/pkg/render"
	"github.com/metastamp/metastamp/pkg/trace"
	"github.com/metastamp/metastamp/pkg/workflow"
)

// traceOpts holds the command-line flags for the trace command.
type traceOpts struct {
	start     string
	format    string
	output    string
	detailed  bool
	full      bool
	ruleFiles []string
}

// traceCommand creates the trace command for inspecting the traversal.
func (c *CLI) traceCommand() *cobra.Command {
	o := &traceOpts{}

	cmd := &cobra.Command{
		Use:   "trace [workflow.json]",
		Short: "Show the upstream subgraph behind a save node",
		Long: `Show the upstream subgraph behind a save node.

The trace command walks the workflow upstream from the save node, the
same traversal capture uses, and shows which nodes were reached and at
what distance. The sampler that selection would pick is marked.

The default table output goes to stdout. --format dot emits Graphviz
DOT; svg and png render the diagram to a file next to the input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTrace(cmd, args[0], o)
		},
	}

	cmd.Flags().StringVarP(&o.start, "start", "s", "", "save/anchor node ID (default: the sole save node)")
	cmd.Flags().StringVarP(&o.format, "format", "f", "table", "output format: table, dot, svg, png")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (default: stdout, or input name for svg/png)")
	cmd.Flags().BoolVar(&o.detailed, "detailed", false, "include distances and input values in diagram labels")
	cmd.Flags().BoolVar(&o.full, "full", false, "draw unreached nodes too, greyed out")
	cmd.Flags().StringArrayVar(&o.ruleFiles, "rules", nil, "extra rule file (TOML, repeatable)")

	return cmd
}

// runTrace traces the workflow and writes the result in the requested
// format.
func (c *CLI) runTrace(cmd *cobra.Command, input string, o *traceOpts) error {
	g, err := workflow.DecodeFile(input)
	if err != nil {
		return err
	}

	start := o.start
	if start == "" {
		start, err = pipeline.FindStart(g)
		if err != nil {
			return err
		}
	}
	table, err := c.buildTable(o.ruleFiles)
	if err != nil {
		return err
	}

	tree := trace.Run(g, start, c.Logger)
	samplerID, found := trace.FindSampler(tree, trace.SelectFarthest, "", table, c.Logger)
	if !found {
		samplerID = ""
	}

	switch o.format {
	case "table":
		out, err := openOutput(o.output)
		if err != nil {
			return err
		}
		defer out.Close()
		writeTraceTable(out, g, tree, start, samplerID)
		return nil
	case "dot":
		dot := render.ToDOT(g, tree, render.Options{Detailed: o.detailed, Full: o.full})
		out, err := openOutput(o.output)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.WriteString(out, dot)
		return err
	case "svg", "png":
		return c.renderTrace(cmd, input, o, g, tree)
	default:
		return errors.New(errors.ErrCodeInvalidInput, "invalid format %q (want table, dot, svg, or png)", o.format)
	}
}

// renderTrace renders the traced subgraph through Graphviz and writes
// the image file.
func (c *CLI) renderTrace(cmd *cobra.Command, input string, o *traceOpts, g workflow.Graph, tree trace.Tree) error {
	dot := render.ToDOT(g, tree, render.Options{Detailed: o.detailed, Full: o.full})

	spinner := newSpinner(cmd.Context(), fmt.Sprintf("Rendering %s...", o.format))
	var (
		data []byte
		err  error
	)
	if o.format == "svg" {
		data, err = render.RenderSVG(dot)
	} else {
		data, err = render.RenderPNG(dot)
	}
	if err != nil {
		spinner.StopWithError("Rendering failed")
		return err
	}
	spinner.Stop()

	output := o.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "." + o.format
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Rendered trace (%d nodes)", len(tree))
	printFile(output)
	return nil
}

// writeTraceTable prints the reached nodes in capture order, one line
// per node with its distance from the start.
func writeTraceTable(w io.Writer, g workflow.Graph, tree trace.Tree, start, samplerID string) {
	fmt.Fprintln(w, StyleTitle.Render(fmt.Sprintf("Trace from node %s", start)))
	for _, id := range tree.Ordered() {
		e := tree[id]
		line := fmt.Sprintf("  %s  %-6s %s",
			StyleNumber.Render(fmt.Sprintf("%3d", e.Distance)), id, e.ClassType)
		if title := g[id].Title; title != "" && title != e.ClassType {
			line += StyleDim.Render(" · " + title)
		}
		if id == samplerID {
			line += "  " + StyleHighlight.Render("← sampler")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "\n%d nodes reached\n", len(tree))
}

// nopCloser wraps an io.Writer with a no-op Close method, making
// os.Stdout usable where a WriteCloser is needed.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path. An empty path
// means stdout; otherwise the file is created, overwriting if present.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
