// Package rules declares which workflow inputs hold generation parameters
// and how to read them.
//
// # Overview
//
// A [Table] maps node class types to per-field capture rules. Each [Rule]
// uses one of four strategies: a single input name ([KindField]), a list
// of alternative names ([KindFields]), an input-name prefix matching
// multi-slot loaders ([KindPrefix]), or a programmatic selector
// ([KindSelect]). Rules optionally gate values through a named validator
// and tag them with a formatter the capture engine applies.
//
// # Built-in Table and Rule Files
//
// [Builtin] covers the stock node classes. User rule files extend it:
//
//	custom, err := rules.FromTOML("rules.toml")
//	if err != nil {
//		return err
//	}
//	table := rules.Merge(rules.Builtin(), custom)
//
// [Merge] overlays per (class, field), so a file carrying a single rule
// changes exactly that rule and nothing else.
//
// # Validators
//
// Named validators drop captured values that fail their check. The prompt
// validators walk the graph to decide whether a text node feeds the
// sampler's positive or negative conditioning; is_resource rejects blank
// and "None" placeholder names from multi-slot loaders. [ValidatorNames]
// lists what rule files can reference.
//
// # Sampler Heuristic
//
// [Table.IsSampler] marks a class sampler-like when its rules capture a
// sampler name, or both steps and CFG. The trace package consults this
// only after its curated registry matched nothing, so rule files can make
// custom sampler nodes selectable.
package rules
