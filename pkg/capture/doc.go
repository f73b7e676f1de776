// Package capture extracts generation parameters from traced workflows by
// evaluating declarative rules.
//
// # Overview
//
// The [Engine] walks a trace in distance order and applies the rule
// table's strategies to each node: single inputs, alternative input
// names, input-name prefixes, or selectors. Accepted values land in a
// [Captured] map keyed by field, each entry tagged with the node, source
// input, and trace distance it came from. Multiple nodes may contribute
// to the same field; entry order follows the trace, so the first entry is
// the occurrence closest to the trace start.
//
// # Formatters
//
// Rules reference formatters by name; the engine owns the registry
// because the hash formatters need its resolver. calc_model_hash,
// calc_lora_hash, calc_vae_hash, calc_unet_hash and calc_embedding_hash
// resolve resource names to truncated digests (or the N/A marker),
// round2 normalizes floats, basename strips paths and extensions.
// Unknown formatter names fail [New] so rule-file typos surface at
// startup rather than as silently missing parameters.
//
// # Failure Containment
//
// A selector is the only rule strategy running arbitrary code, so it is
// the only place a rule can blow up. Panics and errors there are logged
// and converted into skipped captures; one bad rule never aborts the
// whole extraction.
//
// # Prompt Recovery
//
// Prompt rules validate by walking conditioning back to the selected
// sampler. When no sampler was found that validation cannot succeed, so
// after the rule pass the engine re-evaluates prompt rules without
// validators and assigns the first distinct text as positive and the
// second as negative. Workflows with unusual samplers still get their
// prompts this way.
package capture
