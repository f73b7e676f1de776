package params

import (
	"os"
	"strings"

	"github.com/metastamp/metastamp/pkg/buildinfo"
)

// EnvNoLoraSummary suppresses the LoRAs summary key when set (any
// non-empty value). An explicit [LoraSummaryOn] or [LoraSummaryOff]
// overrides the environment.
const EnvNoLoraSummary = "METASTAMP_NO_LORA_SUMMARY"

// LoraSummaryMode controls the LoRAs summary key.
type LoraSummaryMode int

const (
	// LoraSummaryAuto emits the summary unless the environment suppresses
	// it. This is the default.
	LoraSummaryAuto LoraSummaryMode = iota
	// LoraSummaryOn always emits the summary.
	LoraSummaryOn
	// LoraSummaryOff never emits the summary.
	LoraSummaryOff
)

// HashDetail controls how much digest information the block carries.
type HashDetail int

const (
	// HashesFull emits per-resource hash keys and the Hashes JSON map.
	HashesFull HashDetail = iota
	// HashesNamesOnly emits resource names but no digests at all.
	HashesNamesOnly
)

// Options configures parameter block construction and rendering.
type Options struct {
	// Civitai maps sampler and scheduler identifiers to the display names
	// model-sharing sites index ("dpmpp_2m"+"karras" -> "DPM++ 2M Karras").
	Civitai bool
	// Multiline renders one Key: Value pair per line instead of the
	// single comma-joined line.
	Multiline bool
	// GuidanceAsCFG reports distilled-guidance workflows (Flux) through
	// the CFG scale key: the Guidance value replaces CFG scale and the
	// separate Guidance key disappears.
	GuidanceAsCFG bool
	// LoraSummary controls the LoRAs summary key.
	LoraSummary LoraSummaryMode
	// HashDetail selects full digests or names only.
	HashDetail HashDetail
	// Version is the trailing Version value. Empty means the build stamp.
	Version string
}

// WithDefaults resolves unset options, consulting the environment for the
// LoRA summary.
func (o Options) WithDefaults() Options {
	if o.Version == "" {
		o.Version = buildinfo.Stamp()
	}
	if o.LoraSummary == LoraSummaryAuto {
		if os.Getenv(EnvNoLoraSummary) != "" {
			o.LoraSummary = LoraSummaryOff
		} else {
			o.LoraSummary = LoraSummaryOn
		}
	}
	return o
}

// Block is an ordered parameter block: the prompt header plus Key: Value
// pairs in final display order. A non-empty Secondary prompt switches the
// header into dual-encoder mode, where both prompts carry labels.
type Block struct {
	Positive  string
	Secondary string
	Negative  string

	keys   []string
	values map[string]string
}

// NewBlock returns an empty block.
func NewBlock() *Block {
	return &Block{values: make(map[string]string)}
}

// Set appends a key (or overwrites its value, keeping position). Empty
// values are dropped.
func (b *Block) Set(key, value string) {
	if value == "" {
		return
	}
	if _, ok := b.values[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.values[key] = value
}

// Delete removes a key and its position.
func (b *Block) Delete(key string) {
	if _, ok := b.values[key]; !ok {
		return
	}
	delete(b.values, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
}

// Get returns a value by key.
func (b *Block) Get(key string) (string, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Keys returns the keys in display order. The slice is shared; callers
// must not modify it.
func (b *Block) Keys() []string { return b.keys }

// Len returns the number of Key: Value pairs (prompts not counted).
func (b *Block) Len() int { return len(b.keys) }

// Render renders the block in the generation-parameters text layout: the
// positive prompt unlabeled on top (or both prompts labeled in
// dual-encoder mode), the negative prompt behind its label, then the
// pairs either comma-joined on one line or one per line. The negative
// line appears whenever any prompt does, empty if no negative survived,
// so the label always separates prompts from pairs. Blank lines a
// multi-line prompt smuggles in are collapsed.
func (b *Block) Render(multiline bool) string {
	var lines []string
	switch {
	case b.Secondary != "":
		lines = append(lines, "Clip prompt: "+b.Positive, "T5 prompt: "+b.Secondary)
	case b.Positive != "":
		lines = append(lines, b.Positive)
	}
	if len(lines) > 0 || b.Negative != "" {
		lines = append(lines, "Negative prompt: "+b.Negative)
	}

	pairs := make([]string, 0, len(b.keys))
	for _, k := range b.keys {
		pairs = append(pairs, k+": "+b.values[k])
	}
	if len(pairs) > 0 {
		if multiline {
			lines = append(lines, pairs...)
		} else {
			lines = append(lines, strings.Join(pairs, ", "))
		}
	}

	out := strings.Join(lines, "\n")
	for strings.Contains(out, "\n\n") {
		out = strings.ReplaceAll(out, "\n\n", "\n")
	}
	return out
}
