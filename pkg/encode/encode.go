package encode

import (
	"strings"

	"github.com/metastamp/metastamp/pkg/capture"
	"github.com/metastamp/metastamp/pkg/diag"
	stamperrors "github.com/metastamp/metastamp/pkg/errors"
	"github.com/metastamp/metastamp/pkg/params"
	"github.com/metastamp/metastamp/pkg/resources"
)

// Stage identifies one step of the size-reduction ladder. StageNone is a
// result tag only: it marks an encode that fit at full fidelity without
// any fallback.
type Stage int

const (
	StageNone Stage = iota
	StageFull
	StageReducedExif
	StageMinimal
	StageComMarker
)

// String returns the stage name used in logs and diagnostics.
func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageFull:
		return "full"
	case StageReducedExif:
		return "reduced-exif"
	case StageMinimal:
		return "minimal"
	case StageComMarker:
		return "com-marker"
	default:
		return "unknown"
	}
}

// Sink models a metadata container: which stages it supports, its byte
// budget, and how many bytes a parameter text occupies once wrapped in
// the container's framing at a given stage.
type Sink interface {
	// Name identifies the container for logs.
	Name() string
	// Budget is the byte limit for the encoded metadata. Zero or
	// negative means unlimited.
	Budget() int
	// EncodedSize returns the bytes the container needs to carry the
	// given parameter text at the given stage, framing included.
	EncodedSize(stage Stage, text string) int
	// Stages lists the supported stages, largest first.
	Stages() []Stage
}

// Attempt records one stage trial.
type Attempt struct {
	Stage  Stage
	Size   int
	Budget int
	OK     bool
}

// Result is the outcome of an encode: the text to embed, the fallback
// stage that produced it (StageNone when the full text fit), and every
// attempt made along the way.
type Result struct {
	Text     string
	Stage    Stage
	Attempts []Attempt
}

// truncationMarker is the single line appended when the com-marker stage
// has to cut the text. It is never written twice.
const truncationMarker = "..."

// Encode serializes the captured parameters and walks the sink's stage
// ladder until one fits the budget. Every attempt is recorded; the first
// fitting stage wins. When even the last stage cannot fit, the returned
// error carries ErrCodeSizeBudget and the Result still holds the
// attempts for diagnostics.
func Encode(captured capture.Captured, loras []resources.LoraRecord, embeds []resources.EmbeddingRecord, opts params.Options, sink Sink) (*Result, error) {
	opts = opts.WithDefaults()
	full := params.Build(captured, loras, embeds, opts)

	res := &Result{Stage: StageNone}
	budget := sink.Budget()
	for _, stage := range sink.Stages() {
		text := stageText(stage, full, opts, sink, budget)
		size := sink.EncodedSize(stage, text)
		ok := budget <= 0 || size <= budget
		res.Attempts = append(res.Attempts, Attempt{Stage: stage, Size: size, Budget: budget, OK: ok})
		if !ok {
			continue
		}
		res.Text = text
		if stage != StageFull {
			res.Stage = stage
			diag.Record(diag.KindFallbackStage, "metadata reduced to fit budget",
				"sink", sink.Name(), "stage", stage.String(), "size", size, "budget", budget)
		}
		return res, nil
	}
	diag.Record(diag.KindFallbackStage, "no stage fits budget",
		"sink", sink.Name(), "budget", budget)
	return res, stamperrors.New(stamperrors.ErrCodeSizeBudget,
		"no %s stage fits %d bytes", sink.Name(), budget)
}

// stageText renders the parameter text for one stage. Full and
// reduced-exif share the complete block (the reduction happens in the
// container framing); minimal trims to the essential keys; com-marker
// additionally truncates to whatever the budget leaves after framing.
func stageText(stage Stage, full *params.Block, opts params.Options, sink Sink, budget int) string {
	switch stage {
	case StageMinimal:
		return minimalBlock(full).Render(opts.Multiline)
	case StageComMarker:
		text := minimalBlock(full).Render(opts.Multiline)
		if budget <= 0 {
			return text
		}
		return truncate(text, budget-sink.EncodedSize(stage, ""))
	default:
		return full.Render(opts.Multiline)
	}
}

// minimalKeys is the allowlist the minimal stage keeps. Numbered LoRA
// and embedding keys survive by prefix.
var minimalKeys = map[string]bool{
	params.KeySteps:     true,
	params.KeySampler:   true,
	params.KeyCFGScale:  true,
	params.KeySeed:      true,
	params.KeyModel:     true,
	params.KeyModelHash: true,
	params.KeyVAE:       true,
	params.KeyVAEHash:   true,
	params.KeySize:      true,
	params.KeyDenoise:   true,
}

func minimalBlock(full *params.Block) *params.Block {
	out := params.NewBlock()
	out.Positive = full.Positive
	out.Secondary = full.Secondary
	out.Negative = full.Negative
	for _, key := range full.Keys() {
		if !minimalKeys[key] && !strings.HasPrefix(key, "Lora_") && !strings.HasPrefix(key, "Embedding_") {
			continue
		}
		if v, ok := full.Get(key); ok {
			out.Set(key, v)
		}
	}
	return out
}

// truncate cuts text to limit bytes, preferring a line boundary, and
// appends the truncation marker once.
func truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(text) <= limit {
		return text
	}
	cut := limit - len(truncationMarker) - 1
	if cut <= 0 {
		return truncationMarker[:min(len(truncationMarker), limit)]
	}
	head := text[:cut]
	if i := strings.LastIndexByte(head, '\n'); i > 0 {
		head = head[:i]
	}
	if strings.HasSuffix(head, "\n"+truncationMarker) {
		return head
	}
	return head + "\n" + truncationMarker
}
