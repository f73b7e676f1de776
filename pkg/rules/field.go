package rules

// Field names one generation parameter a capture rule can produce. The
// string values double as the keys accepted in TOML rule files.
type Field string

const (
	FieldModelName     Field = "MODEL_NAME"
	FieldModelHash     Field = "MODEL_HASH"
	FieldVAEName       Field = "VAE_NAME"
	FieldVAEHash       Field = "VAE_HASH"
	FieldUNetName      Field = "UNET_NAME"
	FieldUNetHash      Field = "UNET_HASH"
	FieldClipModelName Field = "CLIP_MODEL_NAME"

	FieldSteps       Field = "STEPS"
	FieldCFG         Field = "CFG"
	FieldSamplerName Field = "SAMPLER_NAME"
	FieldScheduler   Field = "SCHEDULER"
	FieldSeed        Field = "SEED"
	FieldDenoise     Field = "DENOISE"
	FieldClipSkip    Field = "CLIP_SKIP"
	FieldGuidance    Field = "GUIDANCE"
	FieldShift       Field = "SHIFT"
	FieldMaxShift    Field = "MAX_SHIFT"
	FieldBaseShift   Field = "BASE_SHIFT"
	FieldWeightDtype Field = "WEIGHT_DTYPE"
	FieldStartStep   Field = "START_STEP"
	FieldEndStep     Field = "END_STEP"

	FieldPositivePrompt Field = "POSITIVE_PROMPT"
	FieldNegativePrompt Field = "NEGATIVE_PROMPT"
	FieldT5Prompt       Field = "T5_PROMPT"

	FieldImageWidth  Field = "IMAGE_WIDTH"
	FieldImageHeight Field = "IMAGE_HEIGHT"

	FieldLoraName          Field = "LORA_NAME"
	FieldLoraHash          Field = "LORA_HASH"
	FieldLoraStrengthModel Field = "LORA_STRENGTH_MODEL"
	FieldLoraStrengthClip  Field = "LORA_STRENGTH_CLIP"
	FieldEmbeddingName     Field = "EMBEDDING_NAME"
	FieldEmbeddingHash     Field = "EMBEDDING_HASH"
)

// allFields enumerates every valid field, in declaration order.
var allFields = []Field{
	FieldModelName, FieldModelHash, FieldVAEName, FieldVAEHash,
	FieldUNetName, FieldUNetHash, FieldClipModelName,
	FieldSteps, FieldCFG, FieldSamplerName, FieldScheduler, FieldSeed,
	FieldDenoise, FieldClipSkip, FieldGuidance, FieldShift, FieldMaxShift,
	FieldBaseShift, FieldWeightDtype, FieldStartStep, FieldEndStep,
	FieldPositivePrompt, FieldNegativePrompt, FieldT5Prompt,
	FieldImageWidth, FieldImageHeight,
	FieldLoraName, FieldLoraHash, FieldLoraStrengthModel,
	FieldLoraStrengthClip, FieldEmbeddingName, FieldEmbeddingHash,
}

var fieldSet = func() map[Field]bool {
	m := make(map[Field]bool, len(allFields))
	for _, f := range allFields {
		m[f] = true
	}
	return m
}()

// hashPairs associates resource-name fields with their hash fields. The
// serializer uses the pairing to suppress hash output in names-only mode,
// and the capture engine uses it to pick the hash kind for a name.
var hashPairs = map[Field]Field{
	FieldModelName:     FieldModelHash,
	FieldVAEName:       FieldVAEHash,
	FieldUNetName:      FieldUNetHash,
	FieldLoraName:      FieldLoraHash,
	FieldEmbeddingName: FieldEmbeddingHash,
}

// Fields returns all valid capture fields in declaration order. The
// returned slice is shared; callers must not modify it.
func Fields() []Field { return allFields }

// Valid reports whether f names a known capture field.
func (f Field) Valid() bool { return fieldSet[f] }

// IsHash reports whether f is a resource-hash field.
func (f Field) IsHash() bool {
	for _, h := range hashPairs {
		if f == h {
			return true
		}
	}
	return false
}

// HashField returns the hash field paired with a resource-name field.
func (f Field) HashField() (Field, bool) {
	h, ok := hashPairs[f]
	return h, ok
}

// NameField returns the resource-name field paired with a hash field.
func (f Field) NameField() (Field, bool) {
	for name, h := range hashPairs {
		if h == f {
			return name, true
		}
	}
	return "", false
}
