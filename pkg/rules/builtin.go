package rules

import (
	"strings"

	"github.com/metastamp/metastamp/pkg/workflow"
)

// Builtin returns the built-in capture table covering the stock node
// classes plus a handful of widespread custom ones. The table is rebuilt
// on every call so callers can mutate their copy freely.
//
// Formatter names used here (calc_model_hash, calc_vae_hash,
// calc_lora_hash, calc_unet_hash, round2) are resolved by the capture
// engine, which owns the hash resolver.
func Builtin() Table {
	return Table{
		// ----- Checkpoint / model loaders -----
		"CheckpointLoaderSimple": {
			FieldModelName: {Field: "ckpt_name"},
			FieldModelHash: {Field: "ckpt_name", Format: "calc_model_hash"},
		},
		"CheckpointLoader": {
			FieldModelName: {Field: "ckpt_name"},
			FieldModelHash: {Field: "ckpt_name", Format: "calc_model_hash"},
		},
		"unCLIPCheckpointLoader": {
			FieldModelName: {Field: "ckpt_name"},
			FieldModelHash: {Field: "ckpt_name", Format: "calc_model_hash"},
		},
		"UNETLoader": {
			FieldUNetName:    {Field: "unet_name"},
			FieldUNetHash:    {Field: "unet_name", Format: "calc_unet_hash"},
			FieldWeightDtype: {Field: "weight_dtype"},
		},
		"VAELoader": {
			FieldVAEName: {Field: "vae_name"},
			FieldVAEHash: {Field: "vae_name", Format: "calc_vae_hash"},
		},
		"CLIPLoader": {
			FieldClipModelName: {Field: "clip_name"},
		},
		"DualCLIPLoader": {
			FieldClipModelName: {Fields: []string{"clip_name1", "clip_name2"}},
		},
		"TripleCLIPLoader": {
			FieldClipModelName: {Fields: []string{"clip_name1", "clip_name2", "clip_name3"}},
		},

		// ----- LoRA loaders -----
		"LoraLoader": {
			FieldLoraName:          {Field: "lora_name", Validate: validateResource},
			FieldLoraHash:          {Field: "lora_name", Validate: validateResource, Format: "calc_lora_hash"},
			FieldLoraStrengthModel: {Field: "strength_model"},
			FieldLoraStrengthClip:  {Field: "strength_clip"},
		},
		"LoraLoaderModelOnly": {
			FieldLoraName:          {Field: "lora_name", Validate: validateResource},
			FieldLoraHash:          {Field: "lora_name", Validate: validateResource, Format: "calc_lora_hash"},
			FieldLoraStrengthModel: {Field: "strength_model"},
		},
		// Multi-slot stacker: inputs are lora_name_1..n / lora_wt_1..n or
		// lora_01..lora_04 depending on version, hence the prefixes.
		"LoRA Stacker": {
			FieldLoraName:          {Prefix: "lora_name", Validate: validateResource},
			FieldLoraHash:          {Prefix: "lora_name", Validate: validateResource, Format: "calc_lora_hash"},
			FieldLoraStrengthModel: {Prefix: "lora_wt"},
		},

		// ----- Samplers -----
		"KSampler": {
			FieldSteps:       {Field: "steps"},
			FieldCFG:         {Field: "cfg"},
			FieldSamplerName: {Field: "sampler_name"},
			FieldScheduler:   {Field: "scheduler"},
			FieldSeed:        {Field: "seed"},
			FieldDenoise:     {Field: "denoise"},
		},
		"KSamplerAdvanced": {
			FieldSteps:       {Field: "steps"},
			FieldCFG:         {Field: "cfg"},
			FieldSamplerName: {Field: "sampler_name"},
			FieldScheduler:   {Field: "scheduler"},
			FieldSeed:        {Field: "noise_seed"},
			FieldStartStep:   {Field: "start_at_step"},
			FieldEndStep:     {Field: "end_at_step"},
		},
		"KSampler (Efficient)": {
			FieldSteps:       {Field: "steps"},
			FieldCFG:         {Field: "cfg"},
			FieldSamplerName: {Field: "sampler_name"},
			FieldScheduler:   {Field: "scheduler"},
			FieldSeed:        {Field: "seed"},
			FieldDenoise:     {Field: "denoise"},
		},
		"SamplerCustom": {
			FieldCFG:  {Field: "cfg"},
			FieldSeed: {Field: "noise_seed"},
		},
		"KSamplerSelect": {
			FieldSamplerName: {Field: "sampler_name"},
		},
		"BasicScheduler": {
			FieldSteps:     {Field: "steps"},
			FieldScheduler: {Field: "scheduler"},
			FieldDenoise:   {Field: "denoise"},
		},
		"RandomNoise": {
			FieldSeed: {Field: "noise_seed"},
		},
		"CFGGuider": {
			FieldCFG: {Field: "cfg"},
		},

		// ----- Prompts -----
		"CLIPTextEncode": {
			FieldPositivePrompt: {Field: "text", Validate: validatePositivePrompt},
			FieldNegativePrompt: {Field: "text", Validate: validateNegativePrompt},
		},
		"CLIPTextEncodeSDXL": {
			FieldPositivePrompt: {Select: selectSDXLText, Validate: validatePositivePrompt},
			FieldNegativePrompt: {Select: selectSDXLText, Validate: validateNegativePrompt},
		},
		"CLIPTextEncodeFlux": {
			FieldPositivePrompt: {Field: "clip_l", Validate: validatePositivePrompt},
			FieldT5Prompt:       {Field: "t5xxl", Validate: validateNonempty},
			FieldGuidance:       {Field: "guidance"},
		},

		// ----- Conditioning / model patches -----
		"FluxGuidance": {
			FieldGuidance: {Field: "guidance"},
		},
		"ModelSamplingFlux": {
			FieldMaxShift:    {Field: "max_shift"},
			FieldBaseShift:   {Field: "base_shift"},
			FieldImageWidth:  {Field: "width"},
			FieldImageHeight: {Field: "height"},
		},
		"ModelSamplingSD3": {
			FieldShift: {Field: "shift"},
		},
		"CLIPSetLastLayer": {
			FieldClipSkip: {Field: "stop_at_clip_layer"},
		},

		// ----- Latents -----
		"EmptyLatentImage": {
			FieldImageWidth:  {Field: "width"},
			FieldImageHeight: {Field: "height"},
		},
		"EmptySD3LatentImage": {
			FieldImageWidth:  {Field: "width"},
			FieldImageHeight: {Field: "height"},
		},

		// ----- Kitchen-sink loaders -----
		"Efficient Loader": {
			FieldModelName:         {Field: "ckpt_name"},
			FieldModelHash:         {Field: "ckpt_name", Format: "calc_model_hash"},
			FieldVAEName:           {Field: "vae_name", Validate: validateResource},
			FieldVAEHash:           {Field: "vae_name", Validate: validateResource, Format: "calc_vae_hash"},
			FieldClipSkip:          {Field: "clip_skip"},
			FieldLoraName:          {Field: "lora_name", Validate: validateResource},
			FieldLoraHash:          {Field: "lora_name", Validate: validateResource, Format: "calc_lora_hash"},
			FieldLoraStrengthModel: {Field: "lora_model_strength"},
			FieldLoraStrengthClip:  {Field: "lora_clip_strength"},
			FieldPositivePrompt:    {Field: "positive", Validate: validateNonempty},
			FieldNegativePrompt:    {Field: "negative", Validate: validateNonempty},
			FieldImageWidth:        {Field: "empty_latent_width"},
			FieldImageHeight:       {Field: "empty_latent_height"},
		},
	}
}

// selectSDXLText joins the g and l text inputs of SDXL encode nodes. Equal
// texts collapse to one; a lone non-empty side passes through.
func selectSDXLText(ctx Context) (any, error) {
	g, _ := workflow.Str(orEmpty(ctx.Input("text_g")))
	l, _ := workflow.Str(orEmpty(ctx.Input("text_l")))
	g, l = strings.TrimSpace(g), strings.TrimSpace(l)

	switch {
	case g == "" && l == "":
		return nil, nil
	case g == "" || g == l:
		return l, nil
	case l == "":
		return g, nil
	}
	return g + ", " + l, nil
}

// orEmpty collapses the two-value Literal form to a plain value.
func orEmpty(v any, ok bool) any {
	if !ok {
		return ""
	}
	return v
}
