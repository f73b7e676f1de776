// Package workflow models node-based generation workflows as directed
// graphs of typed nodes.
//
// # Overview
//
// A workflow file maps node IDs to node objects. Each node carries a
// class_type naming its operation and an inputs map whose values are
// either literals (strings, numbers, booleans) or references to the
// output slot of another node, encoded as two-element ["id", slot]
// arrays. Edges point from consumers to producers: following references
// walks upstream toward loaders and primitive values.
//
// # Basic Usage
//
// Decode a workflow with [DecodeFile] and inspect nodes directly:
//
//	g, err := workflow.DecodeFile("prompt.json")
//	if err != nil {
//		return err
//	}
//	n := g["3"]
//	steps, _ := workflow.Int(n.Inputs["steps"])
//
// Use [ParseRef] (or [Node.RefInput]) to distinguish references from
// literals, and [Node.Literal] when only literal values are wanted.
//
// # Value Handling
//
// Decoding preserves JSON numbers as [encoding/json.Number] so 64-bit
// seeds keep their exact digits. The [Str], [Float], [Int], and [Bool]
// helpers coerce raw input values; [Display] renders a literal in its
// canonical text form for parameter output.
//
// # Robustness
//
// Malformed reference shapes are treated as literal values, never errors.
// Top-level entries without a class_type (client IDs, UI extras) are
// skipped, and the API envelope layout with nodes nested under a "prompt"
// key is unwrapped automatically.
package workflow
