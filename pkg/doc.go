// Package pkg provides the core libraries for metastamp parameter capture.
//
// # Overview
//
// Metastamp extracts the generation parameters behind an image produced by a
// node-graph workflow engine (ComfyUI and compatible hosts) and serializes
// them as the stable-diffusion-webui parameter block that image viewers,
// organizers, and model-sharing sites already parse. The pkg directory is
// organized into five main areas:
//
//  1. [workflow] / [rules] - Input model (graph decoding, capture rule tables)
//  2. [trace] / [capture] - Traversal and rule evaluation
//  3. [hashes] / [resources] - Resource resolution, digests, LoRA/embedding extraction
//  4. [params] / [encode] - Serialization and container size fallback
//  5. [pipeline] - Orchestration (trace → capture → collect → encode)
//
// # Architecture
//
// The typical data flow through metastamp:
//
//	Workflow JSON (API format)
//	         ↓
//	    [trace] package (breadth-first upstream walk from the save node)
//	         ↓
//	    [capture] package (rule evaluation per traced node)
//	         ↓
//	    [resources] package (LoRA and embedding extraction)
//	         ↓
//	    [params] + [encode] packages (ordered text block, size fallback)
//	         ↓
//	    Parameter text for PNG/JPEG metadata
//
// # Quick Start
//
// Capture the parameter block from a workflow file:
//
//	import (
//	    "context"
//	    "github.com/metastamp/metastamp/pkg/pipeline"
//	    "github.com/metastamp/metastamp/pkg/workflow"
//	)
//
//	// 1. Decode the workflow
//	g, _ := workflow.DecodeFile("workflow.json")
//
//	// 2. Run the pipeline with defaults (builtin rules, no hashing)
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, _ := runner.Execute(context.Background(), g, pipeline.Options{})
//
//	// 3. The block is ready for a PNG text chunk
//	fmt.Println(res.Text)
//
// # Main Packages
//
// ## Input Model
//
// [workflow] - The node-graph input model. Decodes the engine's API-format
// JSON into a Graph of nodes, class types, and input references, preserving
// numeric fidelity with json.Number. Also defines the Values interface for
// hosts that carry resolved input values separately from the graph.
//
// [rules] - Declarative capture rules. A Table maps node class types to the
// inputs each parameter field is read from, with four capture strategies
// (field, fields, prefix, selector) plus named validators and formatters.
// The builtin table covers the stock node library; TOML files extend it.
//
// ## Traversal & Capture
//
// [trace] - Breadth-first upstream traversal. Walks input references from
// the save node, records each reached node's hop distance, and selects the
// sampler (farthest, nearest, or explicit) that anchors parameter capture.
//
// [capture] - The rule evaluation engine. Visits traced nodes in distance
// order, applies the rule table, resolves hashes for resource fields, and
// accumulates captured values per field with nearest-node-wins conflicts.
//
// ## Resources
//
// [hashes] - Resource location and digests. Maps bare resource names to
// files under per-kind model roots, computes truncated SHA-256 digests, and
// caches them in .sha256 sidecar files so multi-gigabyte checkpoints are
// read once. Misses are remembered per run and logged once.
//
// [resources] - LoRA and embedding extraction from captured values,
// including strength pairs and prompt-embedded <lora:name:strength> tags.
//
// ## Serialization
//
// [params] - The ordered parameter block serializer: positive prompt,
// "Negative prompt:", then the fixed key order ending in Version. Handles
// Civitai sampler naming, guidance-as-CFG, LoRA summaries, and hash maps.
//
// [encode] - Container-aware encoding with a size-reduction ladder. PNG
// text chunks take the block whole; bounded JPEG Exif segments fall back
// through reduced payloads down to a bare comment marker, recording every
// attempt.
//
// ## Infrastructure
//
// [pipeline] - Complete capture pipeline (trace → capture → collect →
// encode) used by the CLI and embeddable in hosts. An encode failure never
// fails the run; the image save always proceeds.
//
// [render] - Graphviz DOT conversion and SVG/PNG rendering of traced
// workflows for inspection.
//
// [diag] - Diagnostic event recording. Packages report dropped values,
// unresolved resources, and fallback stages through a process-wide recorder
// hosts can swap in.
//
// [errors] - Coded errors shared by all packages, with wrap helpers that
// preserve codes across package boundaries.
//
// [buildinfo] - Build-time version stamping via ldflags, and the default
// generator stamp for parameter blocks.
//
// # Common Workflows
//
// Extend the rule table for custom nodes:
//
//	custom, _ := rules.FromTOML("my-nodes.toml")
//	table := rules.Merge(rules.Builtin(), custom)
//	runner := pipeline.NewRunner(table, nil, logger)
//
// Resolve hashes against a models directory:
//
//	loc := hashes.NewDirLocator("/srv/comfy/models")
//	resolver := hashes.NewResolver(loc, logger)
//	runner := pipeline.NewRunner(nil, resolver, logger)
//
// Encode for a bounded JPEG segment:
//
//	res, _ := runner.Execute(ctx, g, pipeline.Options{
//	    Sink: &encode.JPEGSink{MaxSegment: 60000, Aux: rawWorkflowJSON},
//	})
//	// res.Stage reports which ladder stage fit; res.Attempts lists the trials.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...            # All tests
//	go test ./pkg/capture/...    # Specific package
//	go test -run Example         # Examples only
//
// [workflow]: https://pkg.go.dev/github.com/metastamp/metastamp/pkg/workflow
// [rules]: https://pkg.go.dev/github.com/metastamp/metastamp/pkg/rules
// [trace]: https://pkg.go.dev/github.com/metastamp/metastamp/pkg/trace
// [capture]: https://pkg.go.dev/github.com/metastamp/metastamp/pkg/capture
// [hashes]: https://pkg.go.dev/github.com/metastamp/metastamp/pkg/hashes
// [resources]: https://pkg.go.dev/github.com/metastamp/metastamp/pkg/resources
// [params]: https://pkg.go.dev/github.com/metastamp/metastamp/pkg/params
// [encode]: https://pkg.go.dev/github.com/metastamp/metastamp/pkg/encode
// [pipeline]: https://pkg.go.dev/github.com/metastamp/metastamp/pkg/pipeline
// [render]: https://pkg.go.dev/github.com/metastamp/metastamp/pkg/render
// [diag]: https://pkg.go.dev/github.com/metastamp/metastamp/pkg/diag
// [errors]: https://pkg.go.dev/github.com/metastamp/metastamp/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/metastamp/metastamp/pkg/buildinfo
package pkg
