package trace

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/metastamp/metastamp/pkg/workflow"
)

// ref builds the two-element array form of a node reference.
func ref(id string) []any {
	return []any{id, json.Number("0")}
}

// node builds a workflow node with the given class and inputs.
func node(class string, inputs map[string]any) workflow.Node {
	if inputs == nil {
		inputs = map[string]any{}
	}
	return workflow.Node{ClassType: class, Inputs: inputs}
}

// linearGraph is save -> sampler -> loader.
func linearGraph() workflow.Graph {
	return workflow.Graph{
		"9": node("SaveImage", map[string]any{"images": ref("3")}),
		"3": node("KSampler", map[string]any{"model": ref("4"), "steps": json.Number("20")}),
		"4": node("CheckpointLoaderSimple", map[string]any{"ckpt_name": "base.safetensors"}),
	}
}

func TestRunDistances(t *testing.T) {
	tree := Run(linearGraph(), "9", nil)

	want := Tree{
		"9": {Distance: 0, ClassType: "SaveImage"},
		"3": {Distance: 1, ClassType: "KSampler"},
		"4": {Distance: 2, ClassType: "CheckpointLoaderSimple"},
	}
	if !reflect.DeepEqual(tree, want) {
		t.Errorf("Run() = %+v, want %+v", tree, want)
	}
}

func TestRunMissingStart(t *testing.T) {
	tree := Run(linearGraph(), "99", nil)
	if len(tree) != 0 {
		t.Errorf("Run(missing start) = %d nodes, want empty tree", len(tree))
	}
}

func TestRunDiamondKeepsMinimalDistance(t *testing.T) {
	// save -> {a, b} -> shared: shared is reachable at distance 2 both ways
	// and also directly at distance 1 from save.
	g := workflow.Graph{
		"save":   node("SaveImage", map[string]any{"x": ref("a"), "y": ref("b"), "z": ref("shared")}),
		"a":      node("A", map[string]any{"in": ref("shared")}),
		"b":      node("B", map[string]any{"in": ref("shared")}),
		"shared": node("Shared", nil),
	}

	tree := Run(g, "save", nil)
	if got := tree["shared"].Distance; got != 1 {
		t.Errorf("shared distance = %d, want 1 (first discovery wins)", got)
	}
	if len(tree) != 4 {
		t.Errorf("Run() reached %d nodes, want 4", len(tree))
	}
}

func TestRunCycleTerminates(t *testing.T) {
	g := workflow.Graph{
		"1": node("A", map[string]any{"in": ref("2")}),
		"2": node("B", map[string]any{"in": ref("3")}),
		"3": node("C", map[string]any{"in": ref("1")}),
	}

	tree := Run(g, "1", nil)
	want := Tree{
		"1": {Distance: 0, ClassType: "A"},
		"2": {Distance: 1, ClassType: "B"},
		"3": {Distance: 2, ClassType: "C"},
	}
	if !reflect.DeepEqual(tree, want) {
		t.Errorf("Run(cycle) = %+v, want %+v", tree, want)
	}
}

func TestRunSkipsDanglingRefs(t *testing.T) {
	g := workflow.Graph{
		"1": node("A", map[string]any{"in": ref("gone"), "ok": ref("2")}),
		"2": node("B", nil),
	}

	tree := Run(g, "1", nil)
	if len(tree) != 2 {
		t.Errorf("Run() reached %d nodes, want 2", len(tree))
	}
	if _, ok := tree["gone"]; ok {
		t.Error("dangling reference target appeared in tree")
	}
}

func TestTreeOrdered(t *testing.T) {
	tree := Tree{
		"7":  {Distance: 2},
		"10": {Distance: 1},
		"3":  {Distance: 1},
		"9":  {Distance: 0},
	}

	got := tree.Ordered()
	want := []string{"9", "10", "3", "7"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Ordered() = %v, want %v", got, want)
	}
}

func TestTreeFilter(t *testing.T) {
	tree := Run(linearGraph(), "9", nil)

	got := tree.Filter("KSampler")
	if len(got) != 1 {
		t.Fatalf("Filter(KSampler) = %d nodes, want 1", len(got))
	}
	if _, ok := got["3"]; !ok {
		t.Error("Filter(KSampler) missing node 3")
	}
}
