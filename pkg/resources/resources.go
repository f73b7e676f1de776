package resources

import (
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/metastamp/metastamp/pkg/capture"
	"github.com/metastamp/metastamp/pkg/diag"
	"github.com/metastamp/metastamp/pkg/hashes"
	"github.com/metastamp/metastamp/pkg/rules"
	"github.com/metastamp/metastamp/pkg/workflow"
)

// LoraRecord is one LoRA application: its name, truncated digest, and the
// model/clip strengths. Nil strengths mean the workflow did not state
// them; output omits those keys instead of inventing defaults.
type LoraRecord struct {
	Name          string
	Hash          string
	StrengthModel *float64
	StrengthClip  *float64
}

// EmbeddingRecord is one textual-inversion embedding reference.
type EmbeddingRecord struct {
	Name string
	Hash string
}

// Collector assembles resource records from captured fields and prompt
// text. The resolver fills digests for names that arrive without one
// (inline tags, embedding tokens) and may be nil.
type Collector struct {
	Hashes *hashes.Resolver
	Logger *log.Logger
}

// NewCollector builds a collector; a nil logger discards.
func NewCollector(resolver *hashes.Resolver, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Collector{Hashes: resolver, Logger: logger}
}

// Loras builds the deduplicated LoRA list from the captured loader
// fields. Inline prompt tags arrive here as entries the capture engine
// synthesized, so no separate text scan happens at this stage.
func (c *Collector) Loras(captured capture.Captured) []LoraRecord {
	return Dedupe(c.zipLoras(captured))
}

// Embeddings builds the deduplicated embedding list from captured fields
// and embedding: tokens in prompt text.
func (c *Collector) Embeddings(captured capture.Captured) []EmbeddingRecord {
	var records []EmbeddingRecord

	names := captured.Strings(rules.FieldEmbeddingName)
	hashList := captured.Strings(rules.FieldEmbeddingHash)
	for i, name := range names {
		if !usableName(name) {
			continue
		}
		rec := EmbeddingRecord{Name: name}
		if i < len(hashList) {
			rec.Hash = hashList[i]
		} else {
			rec.Hash = c.hash(hashes.KindEmbedding, name)
		}
		records = append(records, rec)
	}

	for _, text := range promptTexts(captured) {
		for _, name := range ParseEmbeddingTokens(text) {
			records = append(records, EmbeddingRecord{
				Name: name,
				Hash: c.hash(hashes.KindEmbedding, name),
			})
		}
	}
	return DedupeEmbeddings(records)
}

// zipLoras pairs the parallel captured LoRA lists index by index. Lists of
// unequal length are truncated to the shortest present list; that only
// happens with inconsistent multi-slot rules, so it warrants a debug note
// but not an error. Records arriving without a digest are resolved here,
// against the raw captured name, before any display formatting can touch
// it.
func (c *Collector) zipLoras(captured capture.Captured) []LoraRecord {
	names := captured.Strings(rules.FieldLoraName)
	hashList := captured.Strings(rules.FieldLoraHash)
	model := captured[rules.FieldLoraStrengthModel]
	clip := captured[rules.FieldLoraStrengthClip]

	n := len(names)
	for _, l := range []int{len(hashList), len(model), len(clip)} {
		if l > 0 && l < n {
			n = l
		}
	}
	if n < len(names) {
		c.Logger.Debug("lora lists unequal, truncating",
			"names", len(names), "hashes", len(hashList),
			"strength_model", len(model), "strength_clip", len(clip))
		diag.Record(diag.KindListMismatch, "lora lists unequal, truncating",
			"names", len(names), "kept", n)
	}

	records := make([]LoraRecord, 0, n)
	for i := 0; i < n; i++ {
		// A name holding several inline tags is a raw text field that
		// slipped past the structured capture path; re-parse it instead of
		// keeping it as one bogus record.
		if capture.CountInlineLoras(names[i]) >= 2 {
			c.Logger.Debug("re-parsing aggregated lora blob", "index", i)
			for _, rec := range ParseInline(names[i]) {
				rec.Hash = c.hash(hashes.KindLora, rec.Name)
				records = append(records, rec)
			}
			continue
		}
		if !usableName(names[i]) {
			continue
		}
		rec := LoraRecord{Name: names[i]}
		if i < len(hashList) {
			rec.Hash = hashList[i]
		}
		if !hasDigest(rec.Hash) {
			rec.Hash = c.hash(hashes.KindLora, names[i])
		}
		if i < len(model) {
			if f, ok := workflow.Float(model[i].Value); ok {
				rec.StrengthModel = &f
			}
		}
		if i < len(clip) {
			if f, ok := workflow.Float(clip[i].Value); ok {
				rec.StrengthClip = &f
			}
		}
		records = append(records, rec)
	}
	return records
}

// hash resolves a digest when a resolver is wired, N/A otherwise.
func (c *Collector) hash(kind hashes.Kind, name string) string {
	if c.Hashes == nil {
		return hashes.NotAvailable
	}
	return c.Hashes.Hash(kind, name)
}

// promptTexts returns the positive and negative prompt texts that will be
// rendered, skipping absent ones.
func promptTexts(captured capture.Captured) []string {
	var texts []string
	for _, f := range []rules.Field{rules.FieldPositivePrompt, rules.FieldNegativePrompt} {
		if s, ok := captured.String(f); ok && s != "" {
			texts = append(texts, s)
		}
	}
	return texts
}

// usableName rejects names that cannot identify a resource: blank strings,
// the none/n-a placeholder tokens, and bare numbers (symptoms of a rule
// reading the wrong input).
func usableName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "none") || strings.EqualFold(name, "n/a") {
		return false
	}
	if _, err := strconv.ParseFloat(name, 64); err == nil {
		return false
	}
	return true
}

// dedupeKey folds case and a known resource extension, so the same file
// referenced as Detail.safetensors and detail matches.
func dedupeKey(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, ext := range []string{".safetensors", ".sft", ".ckpt", ".pt", ".pth", ".bin", ".gguf"} {
		if strings.HasSuffix(lower, ext) {
			return strings.TrimSuffix(lower, ext)
		}
	}
	return lower
}

// hasDigest reports whether a record carries a real digest.
func hasDigest(hash string) bool {
	return hash != "" && hash != hashes.NotAvailable
}

// Dedupe collapses records naming the same LoRA, case- and
// extension-insensitively. The first occurrence keeps its position; a
// later duplicate only contributes its digest or strengths when the kept
// record lacks them. Dedupe is idempotent.
func Dedupe(records []LoraRecord) []LoraRecord {
	var out []LoraRecord
	index := make(map[string]int)
	for _, rec := range records {
		key := dedupeKey(rec.Name)
		at, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, rec)
			continue
		}
		kept := &out[at]
		if !hasDigest(kept.Hash) && hasDigest(rec.Hash) {
			kept.Hash = rec.Hash
		}
		if kept.StrengthModel == nil {
			kept.StrengthModel = rec.StrengthModel
		}
		if kept.StrengthClip == nil {
			kept.StrengthClip = rec.StrengthClip
		}
	}
	return out
}

// DedupeEmbeddings collapses duplicate embedding references, preferring
// records with a real digest.
func DedupeEmbeddings(records []EmbeddingRecord) []EmbeddingRecord {
	var out []EmbeddingRecord
	index := make(map[string]int)
	for _, rec := range records {
		key := dedupeKey(rec.Name)
		at, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, rec)
			continue
		}
		if !hasDigest(out[at].Hash) && hasDigest(rec.Hash) {
			out[at].Hash = rec.Hash
		}
	}
	return out
}
