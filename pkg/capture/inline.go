package capture

import (
	"regexp"
	"strconv"
	"strings"
)

// inlineLoraRe matches inline LoRA tags: <lora:name>, <lora:name:0.8>,
// and <lora:name:0.8:0.6> with separate model and clip strengths.
var inlineLoraRe = regexp.MustCompile(`<lora:([^:<>]+)(?::([^:<>]+))?(?::([^:<>]+))?>`)

// InlineLora is one <lora:...> tag parsed from prompt text. Nil strengths
// mean the tag did not state them; [InlineLora.Strengths] applies the
// conventional defaults.
type InlineLora struct {
	Name          string
	StrengthModel *float64
	StrengthClip  *float64
}

// Strengths returns the tag's strengths with defaults applied: a bare tag
// applies at full strength, and the clip strength follows the model
// strength unless stated separately.
func (l InlineLora) Strengths() (model, clip float64) {
	model = 1
	if l.StrengthModel != nil {
		model = *l.StrengthModel
	}
	clip = model
	if l.StrengthClip != nil {
		clip = *l.StrengthClip
	}
	return model, clip
}

// ParseInlineLoras extracts the inline LoRA tags from text, in order of
// appearance. Tags with an implausible name or an unparseable strength
// are skipped.
func ParseInlineLoras(text string) []InlineLora {
	var tags []InlineLora
	for _, m := range inlineLoraRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if !plausibleTagName(name) {
			continue
		}
		tag := InlineLora{Name: name}
		if m[2] != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(m[2]), 64)
			if err != nil {
				continue
			}
			tag.StrengthModel = &f
		}
		if m[3] != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(m[3]), 64)
			if err != nil {
				continue
			}
			tag.StrengthClip = &f
		}
		tags = append(tags, tag)
	}
	return tags
}

// CountInlineLoras returns how many parseable <lora:...> tags text holds.
func CountInlineLoras(text string) int {
	return len(inlineLoraRe.FindAllString(text, -1))
}

// plausibleTagName rejects tag names that cannot identify a file: blanks,
// bare numbers, and placeholder tokens.
func plausibleTagName(name string) bool {
	if name == "" || strings.EqualFold(name, "none") || strings.EqualFold(name, "n/a") {
		return false
	}
	if _, err := strconv.ParseFloat(name, 64); err == nil {
		return false
	}
	return true
}
