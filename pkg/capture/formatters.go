package capture

import (
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/metastamp/metastamp/pkg/hashes"
	"github.com/metastamp/metastamp/pkg/rules"
	"github.com/metastamp/metastamp/pkg/workflow"
)

// formatterFunc transforms a captured value. Returning false drops the
// capture entirely.
type formatterFunc func(v any) (any, bool)

// formatterRegistry binds the named formatters rule tables can reference.
// Hash formatters close over the engine's resolver; the second map keys
// their names to the resource kind they resolve, which [Engine.applyFormat]
// consults for its gating.
func (e *Engine) formatterRegistry() (map[string]formatterFunc, map[string]hashes.Kind) {
	kinds := map[string]hashes.Kind{
		"calc_model_hash":     hashes.KindCheckpoint,
		"calc_lora_hash":      hashes.KindLora,
		"calc_vae_hash":       hashes.KindVAE,
		"calc_unet_hash":      hashes.KindUNet,
		"calc_embedding_hash": hashes.KindEmbedding,
	}
	formatters := map[string]formatterFunc{
		"round2":   formatRound2,
		"basename": formatBasename,
	}
	for name, kind := range kinds {
		formatters[name] = e.hashFormatter(kind)
	}
	return formatters, kinds
}

// FormatterNames returns the names rule files may use in format fields.
func (e *Engine) FormatterNames() []string {
	names := make([]string, 0, len(e.formatters))
	for name := range e.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// applyFormat runs the rule's formatter with the hash-specific gates: a
// hash formatter on a name field is suppressed (the name passes through
// unhashed), and values that do not look like file references skip
// resolution entirely unless VerboseHashLog forces it. Other formatters
// run as named; an empty name passes the value through.
func (e *Engine) applyFormat(field rules.Field, name string, v any) (any, bool) {
	if name == "" {
		return v, true
	}
	if _, isHash := e.hashKinds[name]; isHash {
		if !field.IsHash() {
			e.logger.Debug("hash formatter suppressed for name field",
				"field", field, "format", name)
			return v, true
		}
		if s, ok := workflow.Str(v); ok && !hashes.IsModelPath(s) && !e.VerboseHashLog {
			e.logger.Debug("value does not name a file, skipping hash",
				"field", field, "value", s)
			return hashes.NotAvailable, true
		}
	}
	return e.formatters[name](v)
}

// hashFormatter resolves a resource name to its truncated digest. Values
// that are not strings cannot name files and come out as the N/A marker,
// keeping hash fields present but unresolved.
func (e *Engine) hashFormatter(kind hashes.Kind) formatterFunc {
	return func(v any) (any, bool) {
		name, ok := workflow.Str(v)
		if !ok {
			return hashes.NotAvailable, true
		}
		if e.resolver == nil {
			return hashes.NotAvailable, true
		}
		return e.resolver.Hash(kind, name), true
	}
}

// formatRound2 rounds numeric values to two decimals and renders them
// without trailing zeros. Non-numeric values drop.
func formatRound2(v any) (any, bool) {
	f, ok := workflow.Float(v)
	if !ok {
		return nil, false
	}
	rounded := math.Round(f*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64), true
}

// formatBasename strips directories and the extension from a resource
// name, the display form used for models in parameter output.
func formatBasename(v any) (any, bool) {
	s, ok := workflow.Str(v)
	if !ok {
		return nil, false
	}
	base := filepath.Base(filepath.FromSlash(s))
	return strings.TrimSuffix(base, filepath.Ext(base)), true
}
