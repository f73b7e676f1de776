package rules

import (
	"sort"
	"strings"

	"github.com/metastamp/metastamp/pkg/workflow"
)

// validators is the registry of named validators available to both the
// built-in table and TOML rule files.
var validators = map[string]ValidateFunc{
	"nonempty":           validateNonempty,
	"is_resource":        validateResource,
	"is_positive_prompt": validatePositivePrompt,
	"is_negative_prompt": validateNegativePrompt,
}

// LookupValidator resolves a validator name from a rule file.
func LookupValidator(name string) (ValidateFunc, bool) {
	v, ok := validators[name]
	return v, ok
}

// ValidatorNames returns the registered validator names, sorted.
func ValidatorNames() []string {
	names := make([]string, 0, len(validators))
	for name := range validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validateNonempty accepts strings with non-blank content and any
// non-string value.
func validateNonempty(_ Context, v any) bool {
	if s, ok := workflow.Str(v); ok {
		return strings.TrimSpace(s) != ""
	}
	return v != nil
}

// validateResource accepts resource names that actually point at a file:
// blank strings and the conventional "None" placeholder of multi-slot
// loaders are rejected.
func validateResource(_ Context, v any) bool {
	s, ok := workflow.Str(v)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	return s != "" && !strings.EqualFold(s, "None")
}

// validatePositivePrompt accepts text nodes wired into the sampler's
// positive conditioning. Samplers without a separate positive input
// (guider-based custom samplers) are walked through their guider and
// conditioning inputs instead.
func validatePositivePrompt(ctx Context, v any) bool {
	if !validateNonempty(ctx, v) {
		return false
	}
	return feedsSamplerInput(ctx, "positive", "guider", "conditioning")
}

// validateNegativePrompt accepts text nodes wired into the sampler's
// negative conditioning.
func validateNegativePrompt(ctx Context, v any) bool {
	if !validateNonempty(ctx, v) {
		return false
	}
	return feedsSamplerInput(ctx, "negative")
}

// feedsSamplerInput reports whether the context node is reachable upstream
// from the first of the named sampler inputs that holds a reference. With
// no sampler selected nothing is reachable and the engine's dual-prompt
// fallback takes over.
func feedsSamplerInput(ctx Context, inputs ...string) bool {
	sampler, ok := ctx.Graph[ctx.SamplerID]
	if ctx.SamplerID == "" || !ok {
		return false
	}

	for _, input := range inputs {
		ref, ok := sampler.RefInput(input)
		if !ok {
			continue
		}
		if reachable(ctx.Graph, ref.Node, ctx.NodeID) {
			return true
		}
		// The input exists and is wired; a miss here is authoritative.
		return false
	}
	return false
}

// reachable walks upstream from node `from` looking for `target`.
func reachable(g workflow.Graph, from, target string) bool {
	if from == target {
		return true
	}
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, ref := range g[id].Refs() {
			if ref.Node == target {
				return true
			}
			if seen[ref.Node] {
				continue
			}
			if _, ok := g[ref.Node]; !ok {
				continue
			}
			seen[ref.Node] = true
			queue = append(queue, ref.Node)
		}
	}
	return false
}
