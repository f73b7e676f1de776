package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrNotObject is returned by [Decode] when the top-level JSON value is
	// not an object. Workflow files always map node IDs to node objects.
	ErrNotObject = errors.New("workflow root must be a JSON object")
)

// nodeJSON is the wire shape of a single node entry. Entries missing
// class_type (client state, UI extras) are skipped during decoding.
type nodeJSON struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
	Meta      struct {
		Title string `json:"title"`
	} `json:"_meta"`
}

// Decode reads a workflow graph from JSON. Numbers are preserved as
// [json.Number] so 64-bit seeds survive without float rounding.
//
// Two layouts are accepted: the bare node map used by exported prompt
// files, and the API envelope where the nodes sit under a "prompt" key
// alongside client metadata. Entries that are not node-shaped (no
// class_type) are skipped rather than treated as errors.
func Decode(r io.Reader) (Graph, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode workflow: %w", io.ErrUnexpectedEOF)
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("decode workflow: %w", ErrNotObject)
		}
		return nil, fmt.Errorf("decode workflow: %w", err)
	}

	g := decodeNodes(raw)
	if len(g) == 0 {
		// API envelope: {"prompt": {...}, "client_id": ..., "extra_data": ...}
		if inner, ok := raw["prompt"]; ok {
			var innerRaw map[string]json.RawMessage
			if err := unmarshalNumber(inner, &innerRaw); err == nil {
				g = decodeNodes(innerRaw)
			}
		}
	}
	return g, nil
}

// DecodeFile reads a workflow graph from a JSON file.
func DecodeFile(path string) (Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workflow: %w", err)
	}
	defer f.Close()

	g, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return g, nil
}

// decodeNodes collects every node-shaped entry from a raw object map.
func decodeNodes(raw map[string]json.RawMessage) Graph {
	g := make(Graph)
	for id, msg := range raw {
		if id == "" {
			continue
		}
		var nj nodeJSON
		if err := unmarshalNumber(msg, &nj); err != nil || nj.ClassType == "" {
			continue
		}
		n := Node{ClassType: nj.ClassType, Title: nj.Meta.Title, Inputs: nj.Inputs}
		if n.Inputs == nil {
			n.Inputs = map[string]any{}
		}
		g[id] = n
	}
	return g
}

// unmarshalNumber is json.Unmarshal with UseNumber semantics, so nested
// input values keep their exact decimal representation.
func unmarshalNumber(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
