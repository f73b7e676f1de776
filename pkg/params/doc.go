// Package params serializes captured generation parameters into the
// ordered key/value block embedded in image metadata.
//
// # Overview
//
// [Build] turns a [capture.Captured] map plus collected LoRA and
// embedding records into a [Block]: the positive prompt, an optional
// negative prompt line, and an ordered list of Key: Value pairs.
// Well-known keys (Steps, Sampler, CFG scale, Seed, Size, Model, ...)
// come first in a fixed order, followed by numbered resource groups,
// any remaining keys alphabetically, and the LoRAs, Hashes and Version
// trailers.
//
// [SamplerDisplayName] maps raw sampler and scheduler identifiers to
// the display convention used by model-sharing sites when
// [Options].Civitai is set; otherwise it joins them mechanically.
//
// [Block.Render] produces the final text with either comma-separated
// pairs on a single line or one pair per line.
package params
