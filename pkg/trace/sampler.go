package trace

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Selection chooses between multiple sampler nodes found in a trace.
type Selection int

const (
	// SelectFarthest picks the sampler with the greatest distance from the
	// start node. In multi-pass workflows this is the first sampling pass,
	// whose parameters describe the base generation. This is the default.
	SelectFarthest Selection = iota
	// SelectNearest picks the sampler closest to the start node, i.e. the
	// final sampling pass before the image was saved.
	SelectNearest
	// SelectByID picks an explicitly named node, bypassing classification.
	SelectByID
)

// String returns the selection's flag spelling.
func (s Selection) String() string {
	switch s {
	case SelectFarthest:
		return "farthest"
	case SelectNearest:
		return "nearest"
	case SelectByID:
		return "node"
	}
	return fmt.Sprintf("Selection(%d)", int(s))
}

// ParseSelection converts a flag value to a [Selection].
func ParseSelection(s string) (Selection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "farthest":
		return SelectFarthest, nil
	case "nearest":
		return SelectNearest, nil
	case "node", "id", "byid":
		return SelectByID, nil
	}
	return SelectFarthest, fmt.Errorf("unknown sampler selection %q (want farthest, nearest, or node)", s)
}

// Classifier reports whether a node class should be treated as a sampler.
// The rules package implements this from its capture table: a class with a
// sampler-name rule, or with both steps and CFG rules, samples.
type Classifier interface {
	IsSampler(classType string) bool
}

// samplerClasses is the curated registry of node classes known to perform
// sampling. Registry hits take precedence over [Classifier] heuristics, so
// adding a class here pins its role even if its capture rules are sparse.
var samplerClasses = map[string]bool{
	"KSampler":                   true,
	"KSamplerAdvanced":           true,
	"KSampler (Efficient)":       true,
	"SamplerCustom":              true,
	"SamplerCustomAdvanced":      true,
	"FaceDetailer":               true,
	"UltimateSDUpscale":          true,
	"UltimateSDUpscaleNoUpscale": true,
}

// KnownSampler reports whether classType is in the curated sampler registry.
func KnownSampler(classType string) bool {
	return samplerClasses[classType]
}

// FindSampler locates the sampler node controlling the traced generation.
//
// For [SelectByID], explicit names the node directly; it must be present in
// the tree and pass the registry or classifier check, so a typo'd ID and a
// non-sampler node are both rejected. Otherwise candidates are gathered in
// two passes: first from the curated registry, then, only if the registry
// matched nothing, from the classifier heuristic. Among candidates the
// selection picks by distance, with ties broken by ascending node ID.
//
// The second return is false when no sampler could be located; the tree is
// still usable for class-filtered capture.
func FindSampler(t Tree, sel Selection, explicit string, clf Classifier, logger *log.Logger) (string, bool) {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	if sel == SelectByID {
		entry, ok := t[explicit]
		if !ok {
			logger.Warn("requested sampler node not in trace", "node", explicit)
			return "", false
		}
		if !samplerClasses[entry.ClassType] && (clf == nil || !clf.IsSampler(entry.ClassType)) {
			logger.Warn("requested node is not a sampler", "node", explicit, "class", entry.ClassType)
			return "", false
		}
		return explicit, true
	}

	candidates := collect(t, func(e Entry) bool { return samplerClasses[e.ClassType] })
	if len(candidates) == 0 && clf != nil {
		candidates = collect(t, func(e Entry) bool { return clf.IsSampler(e.ClassType) })
		if len(candidates) > 0 {
			logger.Debug("sampler found by rule heuristic", "candidates", len(candidates))
		}
	}
	if len(candidates) == 0 {
		logger.Debug("no sampler node in trace", "nodes", len(t))
		return "", false
	}

	best := candidates[0]
	for _, id := range candidates[1:] {
		switch sel {
		case SelectNearest:
			if t[id].Distance < t[best].Distance {
				best = id
			}
		default:
			if t[id].Distance > t[best].Distance {
				best = id
			}
		}
	}
	logger.Debug("sampler selected", "node", best, "class", t[best].ClassType, "distance", t[best].Distance)
	return best, true
}

// collect returns the IDs of tree entries passing the predicate, in sorted
// ID order so distance ties resolve deterministically.
func collect(t Tree, keep func(Entry) bool) []string {
	var ids []string
	for _, id := range t.IDs() {
		if keep(t[id]) {
			ids = append(ids, id)
		}
	}
	return ids
}
