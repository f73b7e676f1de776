package capture

import (
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/metastamp/metastamp/pkg/diag"
	stamperrors "github.com/metastamp/metastamp/pkg/errors"
	"github.com/metastamp/metastamp/pkg/hashes"
	"github.com/metastamp/metastamp/pkg/rules"
	"github.com/metastamp/metastamp/pkg/trace"
	"github.com/metastamp/metastamp/pkg/workflow"
)

// Engine applies a rule table to a workflow and collects parameter values.
// Build one with [New]; the zero value is not usable.
type Engine struct {
	table      rules.Table
	resolver   *hashes.Resolver
	logger     *log.Logger
	formatters map[string]formatterFunc
	hashKinds  map[string]hashes.Kind

	// VerboseHashLog forces hash formatters to resolve values that do not
	// look like file references. Off, such values come out as N/A without
	// touching the filesystem.
	VerboseHashLog bool
}

// New validates the table against the formatter registry and returns an
// engine. A nil resolver disables hashing: hash formatters then yield
// [hashes.NotAvailable] without touching the filesystem. A nil logger
// discards.
func New(table rules.Table, resolver *hashes.Resolver, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{table: table, resolver: resolver, logger: logger}
	e.formatters, e.hashKinds = e.formatterRegistry()

	for _, class := range table.Classes() {
		for field, rule := range table[class] {
			if rule.Format == "" {
				continue
			}
			if _, ok := e.formatters[rule.Format]; !ok {
				return nil, stamperrors.New(stamperrors.ErrCodeInvalidRule,
					"class %q field %q: unknown formatter %q (available: %v)",
					class, field, rule.Format, e.FormatterNames())
			}
		}
	}
	return e, nil
}

// Run captures parameter values for a traced workflow: a whole-graph pass
// ([All]) trimmed to the trace ([Filter]), then the recovery passes for
// prompts and inline LoRA tags. vals supplies call-time input values; nil
// falls back to the graph's literals. samplerID is the node selected by
// [trace.FindSampler]; it anchors the prompt validators and may be empty.
func (e *Engine) Run(g workflow.Graph, vals workflow.Values, t trace.Tree, samplerID string) Captured {
	if vals == nil {
		vals = g
	}
	captured := Filter(e.All(g, vals, samplerID), t)
	e.recoverEncoderPrompts(g, vals, t, captured)
	e.recoverPrompts(g, vals, t, captured)
	e.recoverInlineLoras(g, vals, t, captured)
	return captured
}

// All captures from every graph node whose class has rules, regardless of
// trace membership. Entries carry distance -1 until [Filter] annotates
// them. Nodes are visited in sorted ID order, so equal-distance entries
// stay deterministic after filtering.
func (e *Engine) All(g workflow.Graph, vals workflow.Values, samplerID string) Captured {
	if vals == nil {
		vals = g
	}
	captured := make(Captured)
	for _, id := range g.IDs() {
		e.captureNode(captured, g, vals, id, samplerID)
	}
	return captured
}

func (e *Engine) captureNode(captured Captured, g workflow.Graph, vals workflow.Values, id, samplerID string) {
	classRules, ok := e.table.RulesFor(g[id].ClassType)
	if !ok {
		return
	}
	ctx := rules.Context{Graph: g, NodeID: id, Node: g[id], Inputs: vals.InputValues(id), SamplerID: samplerID}

	for _, field := range rules.Fields() {
		rule, ok := classRules[field]
		if !ok {
			continue
		}
		for _, cv := range e.evaluate(ctx, rule) {
			if rule.Validate != nil && !rule.Validate(ctx, cv.value) {
				e.logger.Debug("value rejected by validator",
					"node", id, "field", field, "source", cv.source)
				continue
			}
			value, ok := e.applyFormat(field, rule.Format, cv.value)
			if !ok {
				e.logger.Debug("formatter yielded nothing",
					"node", id, "field", field, "format", rule.Format)
				continue
			}
			captured[field] = append(captured[field], Entry{
				Node:     id,
				Source:   cv.source,
				Value:    value,
				Distance: -1,
			})
		}
	}
}

// candidate is an unvalidated, unformatted value produced by a rule.
type candidate struct {
	source string
	value  any
}

// evaluate runs a rule's capture strategy against the context node.
func (e *Engine) evaluate(ctx rules.Context, rule rules.Rule) []candidate {
	switch rule.Kind() {
	case rules.KindField:
		if v, ok := ctx.Input(rule.Field); ok {
			return expand(rule.Field, v)
		}
	case rules.KindFields:
		for _, name := range rule.Fields {
			if v, ok := ctx.Input(name); ok {
				return expand(name, v)
			}
		}
	case rules.KindPrefix:
		var out []candidate
		for _, name := range ctx.InputNames() {
			if !strings.HasPrefix(name, rule.Prefix) {
				continue
			}
			v, ok := ctx.Input(name)
			if !ok || isPlaceholder(v) {
				continue
			}
			out = append(out, expand(name, v)...)
		}
		return out
	case rules.KindSelect:
		if v, ok := e.runSelector(ctx, rule.Select); ok && v != nil {
			return expand("selector", v)
		}
	}
	return nil
}

// expand splits list values into one candidate per element; scalars pass
// through. Stacker-style nodes hand whole lists back from a single input.
func expand(source string, v any) []candidate {
	list, ok := v.([]any)
	if !ok {
		return []candidate{{source: source, value: v}}
	}
	out := make([]candidate, 0, len(list))
	for _, item := range list {
		out = append(out, candidate{source: source, value: item})
	}
	return out
}

// isPlaceholder reports whether a value is the "None" sentinel multi-slot
// loaders leave in unused slots.
func isPlaceholder(v any) bool {
	s, ok := workflow.Str(v)
	return ok && strings.EqualFold(strings.TrimSpace(s), "none")
}

// runSelector invokes a selector, converting panics and errors into
// skipped captures. Selectors are the only rule strategy running
// arbitrary code, so this is the containment boundary.
func (e *Engine) runSelector(ctx rules.Context, sel rules.SelectFunc) (v any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("selector panicked",
				"node", ctx.NodeID, "class", ctx.Node.ClassType,
				"error", stamperrors.New(stamperrors.ErrCodeRuleEval, "selector panic: %v", r))
			diag.Record(diag.KindRuleEval, "selector panicked",
				"node", ctx.NodeID, "class", ctx.Node.ClassType)
			v, ok = nil, false
		}
	}()

	v, err := sel(ctx)
	if err != nil {
		e.logger.Debug("selector failed", "node", ctx.NodeID, "error", err)
		return nil, false
	}
	return v, true
}

// altClipInputs and altT5Inputs are the per-encoder text inputs that
// dual-tokenizer nodes split a prompt across. The clip side feeds the
// positive prompt, the t5 side the secondary prompt.
var (
	altClipInputs = []string{"clip_l", "clip_g", "text_g", "text_l"}
	altT5Inputs   = []string{"t5xxl", "t5"}
)

// recoverEncoderPrompts back-fills prompt fields from the alternate input
// names of dual-tokenizer text encoders the rule table does not cover.
// Traced nodes are scanned nearest first; the first non-blank text per
// side wins.
func (e *Engine) recoverEncoderPrompts(g workflow.Graph, vals workflow.Values, t trace.Tree, captured Captured) {
	needPos := !captured.Has(rules.FieldPositivePrompt)
	needT5 := !captured.Has(rules.FieldT5Prompt)
	if !needPos && !needT5 {
		return
	}

	for _, id := range t.Ordered() {
		if !strings.Contains(g[id].ClassType, "TextEncode") {
			continue
		}
		inputs := vals.InputValues(id)
		if needPos {
			if name, text, ok := firstText(inputs, altClipInputs); ok {
				captured[rules.FieldPositivePrompt] = []Entry{
					{Node: id, Source: name, Value: text, Distance: t[id].Distance},
				}
				e.logger.Debug("positive prompt recovered from encoder input", "node", id, "input", name)
				needPos = false
			}
		}
		if needT5 {
			if name, text, ok := firstText(inputs, altT5Inputs); ok {
				captured[rules.FieldT5Prompt] = []Entry{
					{Node: id, Source: name, Value: text, Distance: t[id].Distance},
				}
				e.logger.Debug("secondary prompt recovered from encoder input", "node", id, "input", name)
				needT5 = false
			}
		}
		if !needPos && !needT5 {
			return
		}
	}
}

// firstText returns the first of the named inputs holding non-blank text.
func firstText(inputs map[string]any, names []string) (string, string, bool) {
	for _, name := range names {
		if s, ok := workflow.Str(inputs[name]); ok && strings.TrimSpace(s) != "" {
			return name, s, true
		}
	}
	return "", "", false
}

// recoverPrompts back-fills prompt fields when conditioning could not be
// traced to a sampler (no sampler selected, or exotic wiring). Candidate
// texts are re-evaluated without validators from every traced node that
// carries a positive-prompt rule; the first distinct text becomes the
// positive prompt and the second the negative.
func (e *Engine) recoverPrompts(g workflow.Graph, vals workflow.Values, t trace.Tree, captured Captured) {
	if captured.Has(rules.FieldPositivePrompt) {
		return
	}

	var texts []Entry
	seen := make(map[string]bool)
	for _, id := range t.Ordered() {
		classRules, ok := e.table.RulesFor(t[id].ClassType)
		if !ok {
			continue
		}
		rule, ok := classRules[rules.FieldPositivePrompt]
		if !ok {
			continue
		}
		ctx := rules.Context{Graph: g, NodeID: id, Node: g[id], Inputs: vals.InputValues(id)}
		for _, cv := range e.evaluate(ctx, rule) {
			s, ok := workflow.Str(cv.value)
			if !ok || strings.TrimSpace(s) == "" || seen[strings.TrimSpace(s)] {
				continue
			}
			seen[strings.TrimSpace(s)] = true
			texts = append(texts, Entry{Node: id, Source: "recovered", Value: s, Distance: t[id].Distance})
		}
	}

	if len(texts) == 0 {
		return
	}
	e.logger.Debug("prompts recovered without conditioning trace", "candidates", len(texts))
	captured[rules.FieldPositivePrompt] = texts[:1]
	if len(texts) > 1 && !captured.Has(rules.FieldNegativePrompt) {
		captured[rules.FieldNegativePrompt] = texts[1:2]
	}
}

// recoverInlineLoras synthesizes LoRA entries from <lora:...> tags when no
// loader node captured any. Already-captured string values are scanned
// first; if none carry tags, every string-valued graph input is scanned as
// a last resort. Entries are tagged "inline" and deduplicated by
// (name, model strength, clip strength). The per-field lists stay parallel
// because [InlineLora.Strengths] defaults absent strengths.
func (e *Engine) recoverInlineLoras(g workflow.Graph, vals workflow.Values, t trace.Tree, captured Captured) {
	if captured.Has(rules.FieldLoraName) {
		return
	}

	type tagKey struct {
		name   string
		sm, sc float64
	}
	seen := make(map[tagKey]bool)
	var tags []InlineLora
	var nodes []string

	scan := func(node string, v any) {
		s, ok := workflow.Str(v)
		if !ok {
			return
		}
		for _, tag := range ParseInlineLoras(s) {
			sm, sc := tag.Strengths()
			k := tagKey{name: tag.Name, sm: sm, sc: sc}
			if seen[k] {
				continue
			}
			seen[k] = true
			tags = append(tags, tag)
			nodes = append(nodes, node)
		}
	}

	for _, field := range rules.Fields() {
		for _, entry := range captured[field] {
			scan(entry.Node, entry.Value)
		}
	}
	if len(tags) == 0 {
		for _, id := range g.IDs() {
			inputs := vals.InputValues(id)
			for _, name := range sortedNames(inputs) {
				scan(id, inputs[name])
			}
		}
	}
	if len(tags) == 0 {
		return
	}

	e.logger.Debug("loras recovered from inline tags", "count", len(tags))
	for i, tag := range tags {
		distance := -1
		if entry, ok := t[nodes[i]]; ok {
			distance = entry.Distance
		}
		sm, sc := tag.Strengths()
		captured[rules.FieldLoraName] = append(captured[rules.FieldLoraName],
			Entry{Node: nodes[i], Source: "inline", Value: tag.Name, Distance: distance})
		captured[rules.FieldLoraStrengthModel] = append(captured[rules.FieldLoraStrengthModel],
			Entry{Node: nodes[i], Source: "inline", Value: sm, Distance: distance})
		captured[rules.FieldLoraStrengthClip] = append(captured[rules.FieldLoraStrengthClip],
			Entry{Node: nodes[i], Source: "inline", Value: sc, Distance: distance})
	}
}

func sortedNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
