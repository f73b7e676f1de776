package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/metastamp/metastamp/pkg/diag"
	"github.com/metastamp/metastamp/pkg/encode"
	"github.com/metastamp/metastamp/pkg/hashes"
	"github.com/metastamp/metastamp/pkg/params"
	"github.com/metastamp/metastamp/pkg/pipeline"
	"github.com/metastamp/metastamp/pkg/trace"
	"github.com/metastamp/metastamp/pkg/workflow"
)

// captureOpts holds the command-line flags for the capture command.
type captureOpts struct {
	start      string
	selectMode string
	node       string

	ruleFiles []string
	modelsDir string
	roots     []string
	noHash    bool
	noSidecar bool
	hashLog   string

	civitai     bool
	multiline   bool
	guidanceCFG bool
	noLoras     bool
	hashDetail  string
	version     string

	jpegBudget int
	output     string
	showDiag   bool
}

// captureCommand creates the capture command, the main entry point.
func (c *CLI) captureCommand() *cobra.Command {
	o := &captureOpts{}

	cmd := &cobra.Command{
		Use:   "capture [workflow.json]",
		Short: "Capture generation parameters from a workflow",
		Long: `Capture generation parameters from a workflow.

The capture command traces the workflow upstream from its save node,
selects the sampler that produced the image, evaluates the capture rules
for every traced node, and prints the resulting parameter block.

With --models-dir (or model roots in the config file), resource names are
resolved to files and hashed; digests are cached in .sha256 sidecar files
next to the models so multi-gigabyte files are read once.

By default the block is encoded for a PNG text chunk, which has no size
limit. --jpeg-budget encodes against a bounded JPEG Exif segment instead
and walks the fallback ladder (drop workflow payload, trim to essential
keys, bare comment marker) until the block fits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCapture(cmd, args[0], o)
		},
	}

	cmd.Flags().StringVarP(&o.start, "start", "s", "", "save/anchor node ID (default: the sole save node)")
	cmd.Flags().StringVar(&o.selectMode, "select", "farthest", "sampler selection: farthest, nearest, node")
	cmd.Flags().StringVar(&o.node, "node", "", "explicit sampler node ID (implies --select node)")
	cmd.Flags().StringArrayVar(&o.ruleFiles, "rules", nil, "extra rule file (TOML, repeatable)")
	cmd.Flags().StringVar(&o.modelsDir, "models-dir", "", "models directory for hash resolution")
	cmd.Flags().StringArrayVar(&o.roots, "root", nil, "extra model root as kind=dir (repeatable)")
	cmd.Flags().BoolVar(&o.noHash, "no-hash", false, "skip resource hashing entirely")
	cmd.Flags().BoolVar(&o.noSidecar, "no-sidecar", false, "do not write .sha256 sidecar files")
	cmd.Flags().StringVar(&o.hashLog, "hash-log", "", "hash lookup logging: silent, filename, path, detailed, debug")
	cmd.Flags().BoolVar(&o.civitai, "civitai", false, "use Civitai sampler display names")
	cmd.Flags().BoolVar(&o.multiline, "multiline", false, "render one key per line")
	cmd.Flags().BoolVar(&o.guidanceCFG, "guidance-as-cfg", false, "report distilled guidance through the CFG scale key")
	cmd.Flags().BoolVar(&o.noLoras, "no-lora-summary", false, "omit the LoRAs summary key")
	cmd.Flags().StringVar(&o.hashDetail, "hash-detail", "", "digest detail: full, names")
	cmd.Flags().StringVar(&o.version, "version-tag", "", "override the Version value in the block")
	cmd.Flags().IntVar(&o.jpegBudget, "jpeg-budget", 0, "encode for a JPEG Exif segment of this many bytes")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "write the parameter block to a file")
	cmd.Flags().BoolVar(&o.showDiag, "diag", false, "print recorded diagnostics")

	return cmd
}

// runCapture assembles the pipeline from flags and config and executes it.
func (c *CLI) runCapture(cmd *cobra.Command, input string, o *captureOpts) error {
	raw, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read workflow: %w", err)
	}
	g, err := workflow.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode workflow %s: %w", input, err)
	}

	selection, err := trace.ParseSelection(o.selectMode)
	if err != nil {
		return err
	}
	table, err := c.buildTable(o.ruleFiles)
	if err != nil {
		return err
	}
	resolver, err := c.newResolver(o)
	if err != nil {
		return err
	}
	popts, err := c.paramsOptions(o)
	if err != nil {
		return err
	}

	var sink encode.Sink = encode.PNGSink{}
	if o.jpegBudget > 0 {
		// The raw workflow JSON rides along in the Exif segment until
		// the reduced stage drops it.
		sink = &encode.JPEGSink{MaxSegment: o.jpegBudget, Aux: raw}
	}

	var events *diag.List
	if o.showDiag {
		events = diag.NewList()
		diag.SetRecorder(events)
		defer diag.Reset()
	}

	runner := pipeline.NewRunner(table, resolver, c.Logger)

	spinner := newSpinner(cmd.Context(), "Capturing parameters...")
	res, err := runner.Execute(cmd.Context(), g, pipeline.Options{
		Start:          o.start,
		Selection:      selection,
		Node:           o.node,
		VerboseHashLog: resolver != nil && resolver.Verbosity >= hashes.VerbosityDebug,
		Params:         popts,
		Sink:           sink,
	})
	if err != nil {
		spinner.StopWithError("Capture failed")
		return err
	}
	spinner.Stop()

	if o.output != "" {
		if err := os.WriteFile(o.output, []byte(res.Text+"\n"), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		printSuccess("Captured parameters from %s", input)
		printFile(o.output)
		printStats(res.Stats.TracedCount, res.Stats.EntryCount, stageLabel(res.Stage), res.Stage != encode.StageNone)
		if events != nil {
			printDiag(events)
		}
		printNewline()
		printNextStep("Inspect the trace", fmt.Sprintf("%s trace %s", appName, input))
		return nil
	}

	if res.Text == "" {
		printWarning("No stage fit the %d-byte budget; metadata dropped", o.jpegBudget)
		for _, a := range res.Attempts {
			printDetail("%s: %d bytes over budget %d", a.Stage, a.Size, a.Budget)
		}
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	if events != nil {
		for _, e := range events.Events() {
			c.Logger.Debug("diagnostic", "kind", e.Kind, "msg", e.Message)
		}
	}
	return nil
}

// newResolver builds the hash resolver for a capture run, or nil when
// hashing is disabled.
func (c *CLI) newResolver(o *captureOpts) (*hashes.Resolver, error) {
	if o.noHash {
		return nil, nil
	}
	loc, err := c.newLocator(o.modelsDir, o.roots)
	if err != nil {
		return nil, err
	}
	verbosity := o.hashLog
	if verbosity == "" {
		verbosity = c.Config.HashLog
	}
	v, err := hashes.ParseVerbosity(verbosity)
	if err != nil {
		return nil, err
	}
	r := hashes.NewResolver(loc, c.Logger)
	r.Sidecars = !o.noSidecar
	r.Verbosity = v
	return r, nil
}

// paramsOptions merges serialization options from config and flags.
// Boolean flags accumulate (a flag can enable but not disable a config
// value); string flags override.
func (c *CLI) paramsOptions(o *captureOpts) (params.Options, error) {
	cfg := c.Config
	opts := params.Options{
		Civitai:       o.civitai || cfg.Civitai,
		Multiline:     o.multiline || cfg.Multiline,
		GuidanceAsCFG: o.guidanceCFG || cfg.GuidanceAsCFG,
		Version:       firstNonEmpty(o.version, cfg.Version),
	}

	summary, err := parseLoraSummary(cfg.LoraSummary)
	if err != nil {
		return opts, err
	}
	if o.noLoras {
		summary = params.LoraSummaryOff
	}
	opts.LoraSummary = summary

	detail, err := parseHashDetail(firstNonEmpty(o.hashDetail, cfg.HashDetail))
	if err != nil {
		return opts, err
	}
	opts.HashDetail = detail

	return opts, nil
}

// stageLabel names the encode outcome for display: "full" when no
// fallback was needed, the stage name otherwise.
func stageLabel(s encode.Stage) string {
	if s == encode.StageNone {
		return "full"
	}
	return s.String()
}

// printDiag prints the recorded diagnostic events.
func printDiag(events *diag.List) {
	if events.Len() == 0 {
		printDetail("no diagnostics")
		return
	}
	printWarning("%d diagnostics recorded", events.Len())
	for _, e := range events.Events() {
		printDetail("[%s] %s", e.Kind, e.Message)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
