package params

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/metastamp/metastamp/pkg/capture"
	"github.com/metastamp/metastamp/pkg/hashes"
	"github.com/metastamp/metastamp/pkg/resources"
	"github.com/metastamp/metastamp/pkg/rules"
	"github.com/metastamp/metastamp/pkg/workflow"
)

// Display keys in their priority order. Keys not listed in priorityKeys
// sort alphabetically after the LoRA and embedding groups.
const (
	KeySteps     = "Steps"
	KeySampler   = "Sampler"
	KeyCFGScale  = "CFG scale"
	KeyGuidance  = "Guidance"
	KeyDenoise   = "Denoise"
	KeySeed      = "Seed"
	KeySize      = "Size"
	KeyModel     = "Model"
	KeyModelHash = "Model hash"
	KeyVAE       = "VAE"
	KeyVAEHash   = "VAE hash"
	KeyClipSkip  = "Clip skip"
	KeyLoras     = "LoRAs"
	KeyHashes    = "Hashes"
	KeyVersion   = "Version"
)

// priorityKeys is the fixed front section of the block.
var priorityKeys = []string{
	KeySteps, KeySampler, KeyCFGScale, KeyGuidance, KeyDenoise,
	KeySeed, KeySize, KeyModel, KeyModelHash,
	"Weight dtype", "Max shift", "Base shift", "Shift",
	KeyClipSkip, KeyVAE, KeyVAEHash,
	"Start step", "End step",
}

// degenerateNegatives are negative-prompt values that mean "no negative
// prompt", compared after trimming and lowercasing.
var degenerateNegatives = map[string]bool{
	"": true, "none": true, "(none)": true,
}

// Build assembles the ordered parameter block from captured fields and
// collected resources.
func Build(captured capture.Captured, loras []resources.LoraRecord, embeds []resources.EmbeddingRecord, opts Options) *Block {
	opts = opts.WithDefaults()
	b := NewBlock()
	setPrompts(b, captured)

	staging := frontSection(captured, opts)
	for _, key := range priorityKeys {
		if v, ok := staging[key]; ok {
			b.Set(key, v)
		}
	}

	for i, rec := range loras {
		prefix := fmt.Sprintf("Lora_%d ", i)
		b.Set(prefix+"Model name", rec.Name)
		if opts.HashDetail == HashesFull {
			b.Set(prefix+"Model hash", rec.Hash)
		}
		if rec.StrengthModel != nil {
			b.Set(prefix+"Strength model", formatStrength(*rec.StrengthModel))
		}
		if rec.StrengthClip != nil {
			b.Set(prefix+"Strength clip", formatStrength(*rec.StrengthClip))
		}
	}

	for i, rec := range embeds {
		prefix := fmt.Sprintf("Embedding_%d ", i)
		b.Set(prefix+"name", rec.Name)
		if opts.HashDetail == HashesFull {
			b.Set(prefix+"hash", rec.Hash)
		}
	}

	rest := restSection(captured)
	restKeys := make([]string, 0, len(rest))
	for k := range rest {
		restKeys = append(restKeys, k)
	}
	sort.Strings(restKeys)
	for _, k := range restKeys {
		b.Set(k, rest[k])
	}

	if opts.LoraSummary == LoraSummaryOn && len(loras) > 0 {
		b.Set(KeyLoras, loraSummary(loras))
	}
	if opts.HashDetail == HashesFull {
		if v := hashesJSON(captured, loras, embeds); v != "" {
			b.Set(KeyHashes, v)
		}
	}
	b.Set(KeyVersion, opts.Version)
	return b
}

// setPrompts fills the prompt header. A distinct secondary text-encoder
// prompt switches on dual-encoder labeling; a secondary prompt without a
// primary one is promoted to the primary slot. Degenerate negatives
// (blank, "none", "(none)", or echoing the positive) are dropped.
func setPrompts(b *Block, captured capture.Captured) {
	pos, _ := captured.String(rules.FieldPositivePrompt)
	pos = strings.TrimSpace(pos)
	t5, _ := captured.String(rules.FieldT5Prompt)
	t5 = strings.TrimSpace(t5)

	switch {
	case pos == "":
		b.Positive = t5
	case t5 != "" && t5 != pos:
		b.Positive = pos
		b.Secondary = t5
	default:
		b.Positive = pos
	}

	neg, ok := captured.String(rules.FieldNegativePrompt)
	if !ok {
		return
	}
	folded := strings.ToLower(strings.TrimSpace(neg))
	if degenerateNegatives[folded] || folded == strings.ToLower(b.Positive) {
		return
	}
	b.Negative = strings.TrimSpace(neg)
}

// frontSection maps captured fields onto the priority display keys.
func frontSection(captured capture.Captured, opts Options) map[string]string {
	out := make(map[string]string)
	set := func(key string, field rules.Field) {
		if v, ok := captured.String(field); ok {
			out[key] = v
		}
	}

	set(KeySteps, rules.FieldSteps)
	set(KeySeed, rules.FieldSeed)
	set(KeyDenoise, rules.FieldDenoise)
	set("Shift", rules.FieldShift)
	set("Max shift", rules.FieldMaxShift)
	set("Base shift", rules.FieldBaseShift)
	set("Weight dtype", rules.FieldWeightDtype)
	set("Start step", rules.FieldStartStep)
	set("End step", rules.FieldEndStep)

	sampler, _ := captured.String(rules.FieldSamplerName)
	scheduler, _ := captured.String(rules.FieldScheduler)
	if name := SamplerDisplayName(sampler, scheduler, opts.Civitai); name != "" {
		out[KeySampler] = name
	}

	set(KeyCFGScale, rules.FieldCFG)
	if g, ok := captured.String(rules.FieldGuidance); ok {
		if opts.GuidanceAsCFG {
			out[KeyCFGScale] = g
		} else {
			out[KeyGuidance] = g
		}
	}

	if w, ok := captured.String(rules.FieldImageWidth); ok {
		if h, ok := captured.String(rules.FieldImageHeight); ok {
			out[KeySize] = w + "x" + h
		}
	}

	// The checkpoint is the model; diffusion-model loaders take its place
	// in UNet-only workflows.
	if name, ok := captured.String(rules.FieldModelName); ok {
		out[KeyModel] = displayModelName(name)
		if hash, ok := hashValue(captured, rules.FieldModelHash); ok {
			out[KeyModelHash] = hash
		}
	} else if name, ok := captured.String(rules.FieldUNetName); ok {
		out[KeyModel] = displayModelName(name)
		if hash, ok := hashValue(captured, rules.FieldUNetHash); ok {
			out[KeyModelHash] = hash
		}
	}

	if name, ok := captured.String(rules.FieldVAEName); ok {
		out[KeyVAE] = displayModelName(name)
		if hash, ok := hashValue(captured, rules.FieldVAEHash); ok {
			out[KeyVAEHash] = hash
		}
	}

	if v, ok := captured.Value(rules.FieldClipSkip); ok {
		if n, ok := workflow.Int(v); ok && n != 0 {
			if n < 0 {
				n = -n
			}
			out[KeyClipSkip] = strconv.Itoa(n)
		}
	}

	if opts.HashDetail == HashesNamesOnly {
		delete(out, KeyModelHash)
		delete(out, KeyVAEHash)
	}
	return out
}

// restSection holds captured fields without a priority slot; they sort
// alphabetically behind the resource groups.
func restSection(captured capture.Captured) map[string]string {
	out := make(map[string]string)
	if names := captured.Strings(rules.FieldClipModelName); len(names) > 0 {
		display := make([]string, len(names))
		for i, n := range names {
			display[i] = displayModelName(n)
		}
		out["CLIP model"] = strings.Join(display, ", ")
	}
	return out
}

// hashValue reads a captured hash, dropping the unresolved marker so the
// block never claims "Model hash: N/A".
func hashValue(captured capture.Captured, field rules.Field) (string, bool) {
	v, ok := captured.String(field)
	if !ok || v == hashes.NotAvailable || v == "" {
		return "", false
	}
	return v, true
}

// displayModelName strips directories and the file extension.
func displayModelName(name string) string {
	base := filepath.Base(filepath.FromSlash(name))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// formatStrength renders a strength without trailing zeros.
func formatStrength(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// loraSummary is the LoRAs key value: "name: str_<strength>" tokens,
// the strength part omitted when the workflow did not state one.
func loraSummary(loras []resources.LoraRecord) string {
	parts := make([]string, 0, len(loras))
	for _, rec := range loras {
		name := displayModelName(rec.Name)
		if rec.StrengthModel != nil {
			parts = append(parts, name+": str_"+formatStrength(*rec.StrengthModel))
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ", ")
}

// hashesJSON builds the Hashes key: a compact JSON object in the resource
// indexing convention ("model", "vae", "lora:name", "embed:name").
// Unresolved digests stay out; an empty map renders nothing.
func hashesJSON(captured capture.Captured, loras []resources.LoraRecord, embeds []resources.EmbeddingRecord) string {
	m := make(map[string]string)

	if v, ok := hashValue(captured, rules.FieldModelHash); ok {
		m["model"] = v
	} else if v, ok := hashValue(captured, rules.FieldUNetHash); ok {
		m["model"] = v
	}
	if v, ok := hashValue(captured, rules.FieldVAEHash); ok {
		m["vae"] = v
	}
	for _, rec := range loras {
		if rec.Hash != "" && rec.Hash != hashes.NotAvailable {
			m["lora:"+displayModelName(rec.Name)] = rec.Hash
		}
	}
	for _, rec := range embeds {
		if rec.Hash != "" && rec.Hash != hashes.NotAvailable {
			m["embed:"+displayModelName(rec.Name)] = rec.Hash
		}
	}

	if len(m) == 0 {
		return ""
	}
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}
