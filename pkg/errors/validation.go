package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateResourceName validates a model/LoRA/VAE/embedding name before it is
// handed to the filesystem locator. It rejects names that could be used for
// path traversal.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., leading /)
//   - No null bytes
//   - Maximum length of 256 characters
//
// Subdirectory-qualified names ("sdxl/base.safetensors") are allowed; workflow
// authors routinely organize models into folders.
func ValidateResourceName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "resource name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "resource name too long (max 256 characters)")
	}

	// Check for control characters and null bytes
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "resource name contains invalid control characters")
		}
	}

	// Check for path traversal patterns
	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "resource name contains invalid characters: %q", pattern)
		}
	}

	if strings.HasPrefix(name, "/") {
		return New(ErrCodeInvalidInput, "resource name must be relative (cannot start with /)")
	}

	return nil
}

// classNameRegex matches node class type names as ComfyUI and common
// third-party packs register them: word characters plus spaces, parentheses,
// dots and dashes ("KSampler (Efficient)", "easy fullLoader").
var classNameRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_ ().+/-]*$`)

// ValidateClassName validates a node class type used as a rule-table key.
// Rule sources are rejected at load time if they declare rules for a class
// name no node system could register.
func ValidateClassName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidRule, "class name cannot be empty")
	}

	if len(name) > 200 {
		return New(ErrCodeInvalidRule, "class name too long (max 200 characters)")
	}

	if !classNameRegex.MatchString(name) {
		return New(ErrCodeInvalidRule, "invalid class name: %q", name)
	}

	return nil
}

// ValidateNodeID validates a workflow node identifier. ComfyUI prompt JSON
// keys nodes by decimal strings, but third-party hosts may use arbitrary
// tokens, so anything short and printable is accepted.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "node id cannot be empty")
	}

	if len(id) > 64 {
		return New(ErrCodeInvalidInput, "node id too long (max 64 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "node id contains whitespace or control characters")
		}
	}

	return nil
}
