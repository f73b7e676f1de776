package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/metastamp/metastamp/pkg/capture"
	"github.com/metastamp/metastamp/pkg/encode"
	"github.com/metastamp/metastamp/pkg/hashes"
	"github.com/metastamp/metastamp/pkg/resources"
	"github.com/metastamp/metastamp/pkg/rules"
	"github.com/metastamp/metastamp/pkg/trace"
	"github.com/metastamp/metastamp/pkg/workflow"
)

// Runner encapsulates pipeline execution over a fixed rule table and
// hash resolver. Build it once, run it per image: the resolver's memo
// cache then amortizes file hashing across a batch.
//
// The Runner stores no per-run state. It is safe to reuse sequentially;
// the hash resolver is not safe for concurrent use.
type Runner struct {
	Table  rules.Table
	Hashes *hashes.Resolver
	Logger *log.Logger
}

// NewRunner creates a runner with the given rule table and resolver.
// If table is nil, the builtin rules are used.
// If resolver is nil, hashing is disabled and hash fields come out N/A.
func NewRunner(table rules.Table, resolver *hashes.Resolver, logger *log.Logger) *Runner {
	if table == nil {
		table = rules.Builtin()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Table:  table,
		Hashes: resolver,
		Logger: logger,
	}
}

// Execute runs the complete trace → capture → collect → encode pipeline.
func (r *Runner) Execute(ctx context.Context, g workflow.Graph, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	start := opts.Start
	if start == "" {
		found, err := FindStart(g)
		if err != nil {
			return nil, err
		}
		start = found
	}

	opts.Logger.Debug("starting capture run",
		"run", opts.RunID,
		"start", start,
		"selection", opts.Selection)

	result := &Result{
		RunID: opts.RunID,
		Start: start,
		Stage: encode.StageNone,
	}
	result.Stats.NodeCount = len(g)

	// Stage 1: Trace
	traceStart := time.Now()
	tree := trace.Run(g, start, opts.Logger)
	samplerID, found := trace.FindSampler(tree, opts.Selection, opts.Node, r.Table, opts.Logger)
	result.Tree = tree
	result.SamplerID = samplerID
	result.Stats.TraceTime = time.Since(traceStart)
	result.Stats.TracedCount = len(tree)

	opts.Logger.Info("traced workflow",
		"start", start,
		"nodes", len(tree),
		"sampler", samplerOrNone(samplerID, found),
		"duration", result.Stats.TraceTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: Capture
	captureStart := time.Now()
	engine, err := capture.New(r.Table, r.Hashes, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	engine.VerboseHashLog = opts.VerboseHashLog
	captured := engine.Run(g, opts.Values, tree, samplerID)
	result.Captured = captured
	result.Stats.CaptureTime = time.Since(captureStart)
	result.Stats.EntryCount = countEntries(captured)

	opts.Logger.Info("captured parameters",
		"fields", len(captured),
		"entries", result.Stats.EntryCount,
		"duration", result.Stats.CaptureTime)

	// Stage 3: Collect resources
	collectStart := time.Now()
	collector := resources.NewCollector(r.Hashes, opts.Logger)
	result.Loras = collector.Loras(captured)
	result.Embeddings = collector.Embeddings(captured)
	result.Stats.CollectTime = time.Since(collectStart)
	result.Stats.LoraCount = len(result.Loras)
	result.Stats.EmbeddingCount = len(result.Embeddings)

	opts.Logger.Info("collected resources",
		"loras", len(result.Loras),
		"embeddings", len(result.Embeddings),
		"duration", result.Stats.CollectTime)

	// Stage 4: Encode
	encodeStart := time.Now()
	enc, err := encode.Encode(captured, result.Loras, result.Embeddings, opts.Params, opts.Sink)
	result.Stats.EncodeTime = time.Since(encodeStart)
	if enc != nil {
		result.Text = enc.Text
		result.Stage = enc.Stage
		result.Attempts = enc.Attempts
	}
	if err != nil {
		// A blown size budget degrades the output, it must not fail the
		// save. The encoder already left a diag record.
		opts.Logger.Warn("metadata dropped",
			"sink", opts.Sink.Name(),
			"reason", err)
		return result, nil
	}

	opts.Logger.Info("encoded parameters",
		"sink", opts.Sink.Name(),
		"stage", result.Stage,
		"bytes", len(result.Text),
		"duration", result.Stats.EncodeTime)

	return result, nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func countEntries(c capture.Captured) int {
	n := 0
	for _, entries := range c {
		n += len(entries)
	}
	return n
}

func samplerOrNone(id string, found bool) string {
	if !found {
		return "none"
	}
	return id
}
