package resources

import (
	"regexp"
	"strings"

	"github.com/metastamp/metastamp/pkg/capture"
)

// embeddingTokenRe matches embedding references in prompt text, both the
// bare embedding:name form and the parenthesized weighted variant.
var embeddingTokenRe = regexp.MustCompile(`embedding:([^\s,()<>:]+)`)

// ParseInline extracts LoRA records from inline prompt tags. Tags with an
// unusable name or an unparseable strength are skipped; a tag without
// strengths yields nil strengths, letting output omit them.
func ParseInline(text string) []LoraRecord {
	var records []LoraRecord
	for _, tag := range capture.ParseInlineLoras(text) {
		if !usableName(tag.Name) {
			continue
		}
		records = append(records, LoraRecord{
			Name:          tag.Name,
			StrengthModel: tag.StrengthModel,
			StrengthClip:  tag.StrengthClip,
		})
	}
	return records
}

// ParseEmbeddingTokens extracts embedding names referenced in prompt text.
func ParseEmbeddingTokens(text string) []string {
	var names []string
	for _, m := range embeddingTokenRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if usableName(name) {
			names = append(names, name)
		}
	}
	return names
}
