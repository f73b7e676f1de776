package errors

import (
	"testing"
)

func TestValidateResourceName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "model.safetensors", false},
		{"valid with dash", "my-lora.safetensors", false},
		{"valid with underscore", "my_lora", false},
		{"valid subdirectory", "sdxl/base_1.0.safetensors", false},
		{"valid with spaces", "detail tweaker.safetensors", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"path traversal ..", "foo/../bar", true},
		{"path traversal //", "foo//bar", true},
		{"absolute path", "/etc/passwd", true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateResourceName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateResourceName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateClassName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"stock class", "KSampler", false},
		{"advanced class", "KSamplerAdvanced", false},
		{"parenthesized pack", "KSampler (Efficient)", false},
		{"lowercase pack", "easy fullLoader", false},
		{"dotted", "Sampler.Custom", false},

		{"empty", "", true},
		{"leading space", " KSampler", true},
		{"tab", "K\tSampler", true},
		{"braces", "KSampler{}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateClassName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateClassName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNodeID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"numeric", "42", false},
		{"uuid-ish", "a1b2-c3d4", false},
		{"named", "save_image", false},

		{"empty", "", true},
		{"space", "4 2", true},
		{"newline", "4\n2", true},
		{"too long", string(make([]byte, 100)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
