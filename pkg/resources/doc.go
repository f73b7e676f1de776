// Package resources assembles the LoRA and embedding lists for parameter
// output.
//
// LoRA references reach a workflow by two routes: loader nodes captured
// through rules, and inline <lora:name:strength> tags embedded in prompt
// text. [Collector.Loras] merges both, resolving digests for tag-sourced
// names, and deduplicates case- and extension-insensitively with a
// preference for records that carry a real digest. Embeddings work the
// same way via loader captures and embedding: tokens in prompts.
//
// Captured LoRA fields arrive as parallel lists (names, digests,
// strengths) that are zipped index by index; unequal lengths truncate to
// the shortest present list with a debug note. Blank and purely numeric
// names are dropped wherever they enter, since they cannot identify a
// resource file.
package resources
