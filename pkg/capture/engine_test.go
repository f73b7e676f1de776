package capture

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	stamperrors "github.com/metastamp/metastamp/pkg/errors"
	"github.com/metastamp/metastamp/pkg/hashes"
	"github.com/metastamp/metastamp/pkg/rules"
	"github.com/metastamp/metastamp/pkg/trace"
	"github.com/metastamp/metastamp/pkg/workflow"
)

func ref(id string) []any {
	return []any{id, json.Number("0")}
}

func writeTestFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

// sdxlGraph is a minimal but complete text-to-image workflow.
func sdxlGraph() workflow.Graph {
	return workflow.Graph{
		"9": {ClassType: "SaveImage", Inputs: map[string]any{"images": ref("8")}},
		"8": {ClassType: "VAEDecode", Inputs: map[string]any{"samples": ref("3"), "vae": ref("4")}},
		"3": {ClassType: "KSampler", Inputs: map[string]any{
			"model":        ref("10"),
			"positive":     ref("6"),
			"negative":     ref("7"),
			"latent_image": ref("5"),
			"seed":         json.Number("42"),
			"steps":        json.Number("20"),
			"cfg":          json.Number("7.0"),
			"sampler_name": "dpmpp_2m",
			"scheduler":    "karras",
			"denoise":      json.Number("1.0"),
		}},
		"10": {ClassType: "LoraLoader", Inputs: map[string]any{
			"model":          ref("4"),
			"clip":           ref("4"),
			"lora_name":      "detail.safetensors",
			"strength_model": json.Number("0.8"),
			"strength_clip":  json.Number("0.75"),
		}},
		"4": {ClassType: "CheckpointLoaderSimple", Inputs: map[string]any{
			"ckpt_name": "sd_xl_base_1.0.safetensors",
		}},
		"6": {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "a castle at dawn", "clip": ref("10")}},
		"7": {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "blurry, low quality", "clip": ref("10")}},
		"5": {ClassType: "EmptyLatentImage", Inputs: map[string]any{
			"width":  json.Number("1024"),
			"height": json.Number("1024"),
		}},
	}
}

// runCapture traces from the save node, selects the sampler, and runs the
// engine with the built-in table.
func runCapture(t *testing.T, g workflow.Graph, resolver *hashes.Resolver) Captured {
	t.Helper()
	e, err := New(rules.Builtin(), resolver, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tree := trace.Run(g, "9", nil)
	sampler, _ := trace.FindSampler(tree, trace.SelectFarthest, "", rules.Builtin(), nil)
	return e.Run(g, nil, tree, sampler)
}

func TestEngineCapturesSamplerFields(t *testing.T) {
	captured := runCapture(t, sdxlGraph(), nil)

	want := map[rules.Field]string{
		rules.FieldSteps:       "20",
		rules.FieldCFG:         "7",
		rules.FieldSamplerName: "dpmpp_2m",
		rules.FieldScheduler:   "karras",
		rules.FieldSeed:        "42",
		rules.FieldDenoise:     "1",
		rules.FieldModelName:   "sd_xl_base_1.0.safetensors",
		rules.FieldImageWidth:  "1024",
		rules.FieldImageHeight: "1024",
	}
	for field, wantVal := range want {
		got, ok := captured.String(field)
		if !ok || got != wantVal {
			t.Errorf("captured %s = %q, %v, want %q", field, got, ok, wantVal)
		}
	}
}

func TestEngineSplitsPrompts(t *testing.T) {
	captured := runCapture(t, sdxlGraph(), nil)

	if got, _ := captured.String(rules.FieldPositivePrompt); got != "a castle at dawn" {
		t.Errorf("positive prompt = %q, want castle text", got)
	}
	if got, _ := captured.String(rules.FieldNegativePrompt); got != "blurry, low quality" {
		t.Errorf("negative prompt = %q, want blurry text", got)
	}

	// The positive text must not bleed into the negative entries.
	for _, e := range captured[rules.FieldNegativePrompt] {
		if e.Value == "a castle at dawn" {
			t.Error("positive text captured as negative")
		}
	}
}

func TestEngineCapturesLora(t *testing.T) {
	captured := runCapture(t, sdxlGraph(), nil)

	if got, _ := captured.String(rules.FieldLoraName); got != "detail.safetensors" {
		t.Errorf("lora name = %q, want detail.safetensors", got)
	}
	if got, _ := captured.String(rules.FieldLoraStrengthModel); got != "0.8" {
		t.Errorf("lora strength = %q, want 0.8", got)
	}
	// No resolver wired: hashes surface as N/A rather than vanishing.
	if got, _ := captured.String(rules.FieldLoraHash); got != hashes.NotAvailable {
		t.Errorf("lora hash = %q, want %q", got, hashes.NotAvailable)
	}
}

func TestEngineHashesThroughResolver(t *testing.T) {
	models := t.TempDir()
	path := filepath.Join(models, "checkpoints", "sd_xl_base_1.0.safetensors")
	writeTestFile(t, path, []byte("checkpoint weights"))

	resolver := hashes.NewResolver(hashes.NewDirLocator(models), nil)
	captured := runCapture(t, sdxlGraph(), resolver)

	got, ok := captured.String(rules.FieldModelHash)
	if !ok {
		t.Fatal("model hash not captured")
	}
	if len(got) != 10 || got == hashes.NotAvailable {
		t.Errorf("model hash = %q, want 10-char digest", got)
	}
}

func TestEngineRejectsPlaceholderLora(t *testing.T) {
	g := sdxlGraph()
	n := g["10"]
	n.Inputs["lora_name"] = "None"
	g["10"] = n

	captured := runCapture(t, g, nil)
	if captured.Has(rules.FieldLoraName) {
		t.Error("placeholder lora name captured, want rejected")
	}
	if captured.Has(rules.FieldLoraHash) {
		t.Error("placeholder lora hash captured, want rejected")
	}
}

func TestEngineRejectsNumericLoraName(t *testing.T) {
	g := sdxlGraph()
	n := g["10"]
	n.Inputs["lora_name"] = json.Number("3")
	g["10"] = n

	captured := runCapture(t, g, nil)
	if captured.Has(rules.FieldLoraName) {
		t.Error("numeric lora name captured, want rejected")
	}
}

func TestEnginePrefixRule(t *testing.T) {
	table := rules.Table{
		"LoRA Stacker": {
			rules.FieldLoraName: {Prefix: "lora_name"},
		},
	}
	g := workflow.Graph{
		"1": {ClassType: "LoRA Stacker", Inputs: map[string]any{
			"lora_name_2": "second.safetensors",
			"lora_name_1": "first.safetensors",
			"lora_wt_1":   json.Number("0.5"),
		}},
	}

	e, err := New(table, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	captured := e.Run(g, nil, trace.Run(g, "1", nil), "")

	got := captured.Strings(rules.FieldLoraName)
	if len(got) != 2 || got[0] != "first.safetensors" || got[1] != "second.safetensors" {
		t.Errorf("prefix capture = %v, want [first second] in input order", got)
	}
}

func TestEngineFieldsRule(t *testing.T) {
	table := rules.Table{
		"Resize": {
			rules.FieldImageWidth: {Fields: []string{"width", "empty_latent_width"}},
		},
	}
	g := workflow.Graph{
		"1": {ClassType: "Resize", Inputs: map[string]any{"empty_latent_width": json.Number("512")}},
	}

	e, err := New(table, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	captured := e.Run(g, nil, trace.Run(g, "1", nil), "")

	if got, _ := captured.String(rules.FieldImageWidth); got != "512" {
		t.Errorf("fields capture = %q, want 512 from fallback name", got)
	}
}

func TestEngineSelectorPanicContained(t *testing.T) {
	table := rules.Table{
		"Boom": {
			rules.FieldSteps: {Select: func(rules.Context) (any, error) {
				panic("rule bug")
			}},
		},
		"Fine": {
			rules.FieldCFG: {Field: "cfg"},
		},
	}
	g := workflow.Graph{
		"1": {ClassType: "Boom", Inputs: map[string]any{"x": ref("2")}},
		"2": {ClassType: "Fine", Inputs: map[string]any{"cfg": json.Number("5")}},
	}

	e, err := New(table, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	captured := e.Run(g, nil, trace.Run(g, "1", nil), "")

	if captured.Has(rules.FieldSteps) {
		t.Error("panicking selector produced a value")
	}
	if got, _ := captured.String(rules.FieldCFG); got != "5" {
		t.Errorf("capture after panic = %q, want 5 (other rules unaffected)", got)
	}
}

func TestEngineSelectorError(t *testing.T) {
	table := rules.Table{
		"Err": {
			rules.FieldSteps: {Select: func(rules.Context) (any, error) {
				return nil, errors.New("nope")
			}},
		},
	}
	g := workflow.Graph{"1": {ClassType: "Err", Inputs: map[string]any{}}}

	e, err := New(table, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if captured := e.Run(g, nil, trace.Run(g, "1", nil), ""); captured.Has(rules.FieldSteps) {
		t.Error("failing selector produced a value")
	}
}

func TestEngineUnknownFormatter(t *testing.T) {
	table := rules.Table{
		"X": {rules.FieldSteps: {Field: "steps", Format: "frobnicate"}},
	}

	_, err := New(table, nil, nil)
	if err == nil {
		t.Fatal("New() error = nil, want unknown formatter error")
	}
	if got := stamperrors.GetCode(err); got != stamperrors.ErrCodeInvalidRule {
		t.Errorf("error code = %v, want %v", got, stamperrors.ErrCodeInvalidRule)
	}
}

func TestEnginePromptRecoveryNoSampler(t *testing.T) {
	// No sampler anywhere: validators cannot anchor, recovery takes over.
	g := workflow.Graph{
		"9": {ClassType: "SaveImage", Inputs: map[string]any{"a": ref("6"), "b": ref("7")}},
		"6": {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "a fox"}},
		"7": {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "ugly"}},
	}

	e, err := New(rules.Builtin(), nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	captured := e.Run(g, nil, trace.Run(g, "9", nil), "")

	if got, _ := captured.String(rules.FieldPositivePrompt); got != "a fox" {
		t.Errorf("recovered positive = %q, want a fox", got)
	}
	if got, _ := captured.String(rules.FieldNegativePrompt); got != "ugly" {
		t.Errorf("recovered negative = %q, want ugly", got)
	}
	if e, _ := captured.First(rules.FieldPositivePrompt); e.Source != "recovered" {
		t.Errorf("recovered entry source = %q, want recovered", e.Source)
	}
}

func TestEngineRecoverySingleText(t *testing.T) {
	g := workflow.Graph{
		"9": {ClassType: "SaveImage", Inputs: map[string]any{"a": ref("6")}},
		"6": {ClassType: "CLIPTextEncode", Inputs: map[string]any{"text": "a fox"}},
	}

	e, _ := New(rules.Builtin(), nil, nil)
	captured := e.Run(g, nil, trace.Run(g, "9", nil), "")

	if got, _ := captured.String(rules.FieldPositivePrompt); got != "a fox" {
		t.Errorf("recovered positive = %q, want a fox", got)
	}
	if captured.Has(rules.FieldNegativePrompt) {
		t.Error("negative prompt invented from single text")
	}
}

func TestEngineEntryOrdering(t *testing.T) {
	// Two checkpoints at different distances: the nearer one must come
	// first in the entry list.
	g := workflow.Graph{
		"9": {ClassType: "SaveImage", Inputs: map[string]any{"in": ref("5")}},
		"5": {ClassType: "CheckpointLoaderSimple", Inputs: map[string]any{
			"ckpt_name": "near.safetensors", "prev": ref("4"),
		}},
		"4": {ClassType: "CheckpointLoaderSimple", Inputs: map[string]any{
			"ckpt_name": "far.safetensors",
		}},
	}

	e, _ := New(rules.Builtin(), nil, nil)
	captured := e.Run(g, nil, trace.Run(g, "9", nil), "")

	got := captured.Strings(rules.FieldModelName)
	if len(got) != 2 || got[0] != "near.safetensors" || got[1] != "far.safetensors" {
		t.Errorf("model entries = %v, want [near far] by distance", got)
	}
}

func TestEngineDropsUntracedNodes(t *testing.T) {
	// A loader dangling outside the save node's upstream cone must not
	// leak into the result.
	g := sdxlGraph()
	g["99"] = workflow.Node{ClassType: "CheckpointLoaderSimple", Inputs: map[string]any{
		"ckpt_name": "orphan.safetensors",
	}}

	captured := runCapture(t, g, nil)
	for _, name := range captured.Strings(rules.FieldModelName) {
		if name == "orphan.safetensors" {
			t.Error("untraced loader captured")
		}
	}
}

func TestFilter(t *testing.T) {
	tree := trace.Tree{
		"9": {Distance: 0, ClassType: "SaveImage"},
		"5": {Distance: 1, ClassType: "LoraLoader"},
		"4": {Distance: 2, ClassType: "LoraLoader"},
	}
	all := Captured{
		rules.FieldLoraName: {
			{Node: "4", Value: "far.safetensors", Distance: -1},
			{Node: "99", Value: "orphan.safetensors", Distance: -1},
			{Node: "5", Value: "near.safetensors", Distance: -1},
		},
		rules.FieldSteps: {
			{Node: "99", Value: json.Number("20"), Distance: -1},
		},
	}

	got := Filter(all, tree)

	names := got[rules.FieldLoraName]
	if len(names) != 2 || names[0].Value != "near.safetensors" || names[1].Value != "far.safetensors" {
		t.Errorf("Filter() names = %+v, want [near far] by distance", names)
	}
	if names[0].Distance != 1 || names[1].Distance != 2 {
		t.Errorf("Filter() distances = %d, %d, want 1, 2", names[0].Distance, names[1].Distance)
	}
	if got.Has(rules.FieldSteps) {
		t.Error("Filter() kept a field with only out-of-tree entries")
	}
	// The input must keep its unfiltered distances.
	if all[rules.FieldLoraName][0].Distance != -1 {
		t.Error("Filter() mutated its input")
	}
}

func TestEnginePrefixSkipsPlaceholder(t *testing.T) {
	table := rules.Table{
		"LoRA Stacker": {
			rules.FieldLoraName: {Prefix: "lora_name"},
		},
	}
	g := workflow.Graph{
		"1": {ClassType: "LoRA Stacker", Inputs: map[string]any{
			"lora_name_1": "first.safetensors",
			"lora_name_2": "None",
			"lora_name_3": "third.safetensors",
		}},
	}

	e, err := New(table, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	captured := e.Run(g, nil, trace.Run(g, "1", nil), "")

	got := captured.Strings(rules.FieldLoraName)
	if len(got) != 2 || got[0] != "first.safetensors" || got[1] != "third.safetensors" {
		t.Errorf("prefix capture = %v, want None slot skipped", got)
	}
}

func TestEngineExpandsListValues(t *testing.T) {
	table := rules.Table{
		"Stack": {
			rules.FieldLoraName: {Field: "lora_names"},
		},
	}
	g := workflow.Graph{
		"1": {ClassType: "Stack", Inputs: map[string]any{
			"lora_names": []any{"a.safetensors", "b.safetensors"},
		}},
	}

	e, err := New(table, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	captured := e.Run(g, nil, trace.Run(g, "1", nil), "")

	got := captured.Strings(rules.FieldLoraName)
	if len(got) != 2 || got[0] != "a.safetensors" || got[1] != "b.safetensors" {
		t.Errorf("list capture = %v, want one entry per element", got)
	}
}

func TestEngineHashSuppressedForNameField(t *testing.T) {
	// A hash formatter on a name field keeps the name instead of hashing.
	table := rules.Table{
		"Loader": {
			rules.FieldModelName: {Field: "ckpt_name", Format: "calc_model_hash"},
		},
	}
	g := workflow.Graph{
		"1": {ClassType: "Loader", Inputs: map[string]any{"ckpt_name": "base.safetensors"}},
	}

	e, err := New(table, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	captured := e.Run(g, nil, trace.Run(g, "1", nil), "")

	if got, _ := captured.String(rules.FieldModelName); got != "base.safetensors" {
		t.Errorf("name field = %q, want raw name with hash formatter suppressed", got)
	}
}

func TestEngineHashGateBareToken(t *testing.T) {
	models := t.TempDir()
	writeTestFile(t, filepath.Join(models, "checkpoints", "plain.safetensors"), []byte("weights"))
	table := rules.Table{
		"Loader": {
			rules.FieldModelHash: {Field: "ckpt_name", Format: "calc_model_hash"},
		},
	}
	g := workflow.Graph{
		"1": {ClassType: "Loader", Inputs: map[string]any{"ckpt_name": "plain"}},
	}

	// "plain" has no separator and no model extension: the gate skips
	// resolution entirely.
	e, err := New(table, hashes.NewResolver(hashes.NewDirLocator(models), nil), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	captured := e.Run(g, nil, trace.Run(g, "1", nil), "")
	if got, _ := captured.String(rules.FieldModelHash); got != hashes.NotAvailable {
		t.Errorf("gated hash = %q, want %q", got, hashes.NotAvailable)
	}

	// Verbose hash logging forces the lookup; extension probing finds the
	// file.
	e, err = New(table, hashes.NewResolver(hashes.NewDirLocator(models), nil), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	e.VerboseHashLog = true
	captured = e.Run(g, nil, trace.Run(g, "1", nil), "")
	if got, _ := captured.String(rules.FieldModelHash); len(got) != 10 || got == hashes.NotAvailable {
		t.Errorf("forced hash = %q, want 10-char digest", got)
	}
}

func TestEngineEncoderPromptRecovery(t *testing.T) {
	// A dual-tokenizer encoder class the table does not know: the
	// alternate input names fill both prompt fields.
	g := workflow.Graph{
		"9": {ClassType: "SaveImage", Inputs: map[string]any{"images": ref("6")}},
		"6": {ClassType: "CLIPTextEncodeHunyuan", Inputs: map[string]any{
			"clip_l": "a castle at dawn",
			"t5xxl":  "castle, dawn, mist",
		}},
	}

	e, _ := New(rules.Builtin(), nil, nil)
	captured := e.Run(g, nil, trace.Run(g, "9", nil), "")

	if got, _ := captured.String(rules.FieldPositivePrompt); got != "a castle at dawn" {
		t.Errorf("recovered positive = %q, want clip_l text", got)
	}
	if got, _ := captured.String(rules.FieldT5Prompt); got != "castle, dawn, mist" {
		t.Errorf("recovered secondary = %q, want t5xxl text", got)
	}
	if entry, _ := captured.First(rules.FieldPositivePrompt); entry.Source != "clip_l" {
		t.Errorf("recovered source = %q, want clip_l", entry.Source)
	}
}

func TestEngineInlineLoraRecovery(t *testing.T) {
	g := sdxlGraph()
	delete(g, "10") // no loader node
	n := g["3"]
	n.Inputs["model"] = ref("4")
	g["3"] = n
	n = g["6"]
	n.Inputs["text"] = "a castle <lora:painterly:0.7> at dawn <lora:painterly:0.7>"
	g["6"] = n

	captured := runCapture(t, g, nil)

	names := captured.Strings(rules.FieldLoraName)
	if len(names) != 1 || names[0] != "painterly" {
		t.Fatalf("inline names = %v, want deduplicated [painterly]", names)
	}
	if entry, _ := captured.First(rules.FieldLoraName); entry.Source != "inline" {
		t.Errorf("inline source = %q, want inline", entry.Source)
	}
	if got, _ := captured.String(rules.FieldLoraStrengthModel); got != "0.7" {
		t.Errorf("inline model strength = %q, want 0.7", got)
	}
	// The clip strength follows the model strength when the tag omits it.
	if got, _ := captured.String(rules.FieldLoraStrengthClip); got != "0.7" {
		t.Errorf("inline clip strength = %q, want 0.7", got)
	}
}

func TestEngineInlineRecoveryLastResort(t *testing.T) {
	// The tag sits in an input no rule captures; the raw-input scan must
	// still find it.
	g := workflow.Graph{
		"9": {ClassType: "SaveImage", Inputs: map[string]any{"images": ref("2")}},
		"2": {ClassType: "ImageBlend", Inputs: map[string]any{
			"note": "styled with <lora:grain:0.4:0.2>",
		}},
	}

	e, _ := New(rules.Builtin(), nil, nil)
	captured := e.Run(g, nil, trace.Run(g, "9", nil), "")

	if got, _ := captured.String(rules.FieldLoraName); got != "grain" {
		t.Errorf("last-resort inline name = %q, want grain", got)
	}
	if got, _ := captured.String(rules.FieldLoraStrengthClip); got != "0.2" {
		t.Errorf("last-resort clip strength = %q, want 0.2", got)
	}
}

func TestEngineInlineRecoverySkippedWithLoader(t *testing.T) {
	// Structured loader entries exist: prompt tags must be ignored.
	g := sdxlGraph()
	n := g["6"]
	n.Inputs["text"] = "a castle <lora:painterly:0.7>"
	g["6"] = n

	captured := runCapture(t, g, nil)

	names := captured.Strings(rules.FieldLoraName)
	if len(names) != 1 || names[0] != "detail.safetensors" {
		t.Errorf("lora names = %v, want loader entry only", names)
	}
}
