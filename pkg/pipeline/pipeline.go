// Package pipeline chains the capture stages into a single entry point.
//
// The stages mirror what a save hook inside an image-generation host has
// to do: trace the workflow graph upstream from the save node, pick the
// sampler that produced the image, capture parameters with the rule
// table, collect LoRA and embedding records, and encode the parameter
// text against the target container's size budget. CLI and embedding
// hosts both run the same pipeline so behavior cannot drift between
// entry points.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(table, resolver, logger)
//	opts := pipeline.Options{
//	    Selection: trace.SelectFarthest,
//	    Sink:      encode.PNGSink{},
//	}
//	result, err := runner.Execute(ctx, graph, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Text)
//
// Capture problems never fail Execute: missing nodes, unresolved
// resources, and rule panics degrade the output and leave a record in
// the diag stream, but the caller always gets a Result back. Only
// invalid options, an invalid rule table, or a workflow without a
// usable start node return an error.
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/metastamp/metastamp/pkg/capture"
	"github.com/metastamp/metastamp/pkg/encode"
	"github.com/metastamp/metastamp/pkg/errors"
	"github.com/metastamp/metastamp/pkg/params"
	"github.com/metastamp/metastamp/pkg/resources"
	"github.com/metastamp/metastamp/pkg/trace"
	"github.com/metastamp/metastamp/pkg/workflow"
)

// Options contains all configuration for one capture run.
type Options struct {
	// Trace options
	Start     string          // save/anchor node ID; empty means discover via FindStart
	Selection trace.Selection // sampler choice among multiple candidates
	Node      string          // explicit sampler node ID, implies SelectByID

	// Capture options
	Values workflow.Values // live input values; nil falls back to graph literals
	// VerboseHashLog forces hash resolution for values that do not look
	// like file references, matching the most talkative log level.
	VerboseHashLog bool

	// Serialization options
	Params params.Options

	// Encode options. A nil Sink means an unbounded PNG text chunk.
	Sink encode.Sink

	// Runtime options
	RunID  string // correlates log lines across a batch; generated when empty
	Logger *log.Logger

	validated bool
}

// ValidateAndSetDefaults checks option consistency and fills defaults.
// Idempotent: later calls are no-ops.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Node != "" {
		o.Selection = trace.SelectByID
	}
	if o.Selection == trace.SelectByID && o.Node == "" {
		return errors.New(errors.ErrCodeInvalidSelection, "selection %q requires a node ID", o.Selection)
	}
	if o.Sink == nil {
		o.Sink = encode.PNGSink{}
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	o.Params = o.Params.WithDefaults()
	o.validated = true
	return nil
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this run in logs, for correlating batch output.
	RunID string

	// Start is the node the trace anchored on, after discovery.
	Start string

	// SamplerID is the selected sampler node, empty when none was found.
	SamplerID string

	// Tree is the traced upstream subgraph with distances.
	Tree trace.Tree

	// Captured holds every parameter entry the rules produced.
	Captured capture.Captured

	// Loras and Embeddings are the deduplicated resource records.
	Loras      []resources.LoraRecord
	Embeddings []resources.EmbeddingRecord

	// Text is the final parameter block, possibly degraded by the size
	// fallback ladder. Empty when even the smallest stage did not fit.
	Text string

	// Stage is the fallback stage that produced Text. StageNone means
	// the full text fit without fallback.
	Stage encode.Stage

	// Attempts lists every stage trial the encoder made.
	Attempts []encode.Attempt

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount      int // nodes in the workflow graph
	TracedCount    int // nodes reached by the trace
	EntryCount     int // captured parameter entries
	LoraCount      int
	EmbeddingCount int
	TraceTime      time.Duration
	CaptureTime    time.Duration
	CollectTime    time.Duration
	EncodeTime     time.Duration
}
