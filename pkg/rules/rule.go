package rules

import (
	"sort"

	stamperrors "github.com/metastamp/metastamp/pkg/errors"
	"github.com/metastamp/metastamp/pkg/workflow"
)

// Context carries everything a selector or validator may inspect: the node
// being captured, its resolved input values, the full graph, and the
// selected sampler node (empty when no sampler was located).
type Context struct {
	Graph  workflow.Graph
	NodeID string
	Node   workflow.Node
	// Inputs holds the node's call-time input values with references
	// stripped, as supplied by the graph provider. Capture strategies read
	// values from here; topology checks go through Node and Graph.
	Inputs    map[string]any
	SamplerID string
}

// Input returns the named resolved input value.
func (c Context) Input(name string) (any, bool) {
	v, ok := c.Inputs[name]
	return v, ok
}

// InputNames returns the resolved input names in sorted order, keeping
// prefix enumeration deterministic.
func (c Context) InputNames() []string {
	names := make([]string, 0, len(c.Inputs))
	for name := range c.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectFunc computes a capture value programmatically when no single input
// holds it. Returning a nil value (or an error) yields nothing for the rule.
// Selectors cannot be expressed in TOML rule files; they exist only in the
// built-in table.
type SelectFunc func(ctx Context) (any, error)

// ValidateFunc gates a captured value. Returning false drops the value
// silently; rules without a validator accept everything.
type ValidateFunc func(ctx Context, v any) bool

// Kind identifies which capture strategy a rule uses.
type Kind int

const (
	// KindInvalid marks a rule with zero or multiple strategies set.
	KindInvalid Kind = iota
	// KindField captures the literal value of one named input.
	KindField
	// KindFields tries several input names and captures the first literal
	// present. Used for classes that renamed an input across versions.
	KindFields
	// KindPrefix captures every input whose name starts with the prefix, in
	// sorted input-name order. Used for multi-slot loaders (lora_01..lora_04).
	KindPrefix
	// KindSelect runs a [SelectFunc].
	KindSelect
)

// String returns the kind's rule-file spelling.
func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindFields:
		return "fields"
	case KindPrefix:
		return "prefix"
	case KindSelect:
		return "selector"
	}
	return "invalid"
}

// Rule describes how one parameter field is captured from nodes of a class.
// Exactly one of Field, Fields, Prefix, or Select must be set.
type Rule struct {
	Field  string     // Input name to read
	Fields []string   // Alternative input names, first literal present wins
	Prefix string     // Input name prefix, all matches captured
	Select SelectFunc // Programmatic capture

	// Validate drops values it rejects. Optional.
	Validate ValidateFunc
	// Format names a formatter the capture engine applies to accepted
	// values (e.g. "calc_model_hash", "round2"). Optional.
	Format string
}

// Kind reports the rule's capture strategy, or [KindInvalid] if the rule
// sets none or several of them.
func (r Rule) Kind() Kind {
	k, n := KindInvalid, 0
	if r.Field != "" {
		k, n = KindField, n+1
	}
	if len(r.Fields) > 0 {
		k, n = KindFields, n+1
	}
	if r.Prefix != "" {
		k, n = KindPrefix, n+1
	}
	if r.Select != nil {
		k, n = KindSelect, n+1
	}
	if n != 1 {
		return KindInvalid
	}
	return k
}

// ClassRules maps capture fields to their rules for one node class.
type ClassRules map[Field]Rule

// Table maps node class types to their capture rules.
type Table map[string]ClassRules

// Classes returns the class types covered by the table, sorted.
func (t Table) Classes() []string {
	classes := make([]string, 0, len(t))
	for c := range t {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes
}

// RulesFor returns the rules for a class type.
func (t Table) RulesFor(classType string) (ClassRules, bool) {
	cr, ok := t[classType]
	return cr, ok
}

// IsSampler reports whether the table's rules mark a class as sampler-like:
// the class captures a sampler name, or captures both steps and CFG. This
// implements the trace package's Classifier and only runs when the curated
// sampler registry matched nothing.
func (t Table) IsSampler(classType string) bool {
	cr, ok := t[classType]
	if !ok {
		return false
	}
	if _, ok := cr[FieldSamplerName]; ok {
		return true
	}
	_, steps := cr[FieldSteps]
	_, cfg := cr[FieldCFG]
	return steps && cfg
}

// Validate checks every rule in the table: fields must be known and each
// rule must use exactly one capture strategy.
func (t Table) Validate() error {
	for _, class := range t.Classes() {
		for field, rule := range t[class] {
			if !field.Valid() {
				return stamperrors.New(stamperrors.ErrCodeInvalidRule,
					"class %q: unknown capture field %q", class, field)
			}
			if rule.Kind() == KindInvalid {
				return stamperrors.New(stamperrors.ErrCodeInvalidRule,
					"class %q field %q: rule must set exactly one of field, fields, prefix, selector", class, field)
			}
		}
	}
	return nil
}

// Merge overlays tables left to right: a later table's rule replaces an
// earlier rule for the same (class, field) pair, while untouched fields of
// the class survive. User rule files therefore extend the built-in table
// instead of replacing whole classes.
func Merge(tables ...Table) Table {
	out := make(Table)
	for _, t := range tables {
		for class, cr := range t {
			dst, ok := out[class]
			if !ok {
				dst = make(ClassRules, len(cr))
				out[class] = dst
			}
			for field, rule := range cr {
				dst[field] = rule
			}
		}
	}
	return out
}
