package pipeline

import (
	"sort"
	"strings"

	"github.com/metastamp/metastamp/pkg/errors"
	"github.com/metastamp/metastamp/pkg/workflow"
)

// saveClasses are node classes that write the generated image out. A
// workflow normally has exactly one, and it anchors the default trace.
var saveClasses = map[string]bool{
	"SaveImage":          true,
	"SaveImageWebsocket": true,
	"SaveAnimatedPNG":    true,
	"SaveAnimatedWEBP":   true,
	"SaveImageExtended":  true,
	"Image Saver":        true,
}

// FindStart discovers the trace anchor for a workflow: the single
// save-class node. When the curated classes match nothing, any class
// containing "Save" counts as a candidate. Zero or multiple candidates
// are an error; the caller must then name the start node explicitly.
func FindStart(g workflow.Graph) (string, error) {
	var ids []string
	for id, node := range g {
		if saveClasses[node.ClassType] {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		for id, node := range g {
			if strings.Contains(node.ClassType, "Save") {
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)

	switch len(ids) {
	case 0:
		return "", errors.New(errors.ErrCodeNodeNotFound, "workflow has no save node; name the start node explicitly")
	case 1:
		return ids[0], nil
	default:
		return "", errors.New(errors.ErrCodeInvalidWorkflow,
			"workflow has %d save nodes (%s); name the start node explicitly",
			len(ids), strings.Join(ids, ", "))
	}
}
