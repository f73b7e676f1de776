package hashes

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// digestOf is the full hex SHA-256 of content.
func digestOf(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// newTestResolver builds a resolver over a models dir with one checkpoint.
func newTestResolver(t *testing.T, content []byte) (*Resolver, string) {
	t.Helper()
	models := t.TempDir()
	path := filepath.Join(models, "checkpoints", "base.safetensors")
	writeFile(t, path, content)
	return NewResolver(NewDirLocator(models), nil), path
}

func TestResolverHash(t *testing.T) {
	content := []byte("model weights")
	r, path := newTestResolver(t, content)

	want := digestOf(content)[:10]
	if got := r.Hash(KindCheckpoint, "base.safetensors"); got != want {
		t.Errorf("Hash() = %q, want %q", got, want)
	}

	// The full digest must land in the sidecar next to the model.
	sidecar := strings.TrimSuffix(path, ".safetensors") + ".sha256"
	data, err := os.ReadFile(sidecar)
	if err != nil {
		t.Fatalf("sidecar not written: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != digestOf(content) {
		t.Errorf("sidecar = %q, want full digest %q", got, digestOf(content))
	}
}

func TestResolverMemoizes(t *testing.T) {
	content := []byte("model weights")
	r, path := newTestResolver(t, content)

	first := r.Hash(KindCheckpoint, "base.safetensors")

	// Change the file and its sidecar; the memo must still answer.
	writeFile(t, path, []byte("different"))
	if err := os.Remove(strings.TrimSuffix(path, ".safetensors") + ".sha256"); err != nil {
		t.Fatal(err)
	}
	if got := r.Hash(KindCheckpoint, "base.safetensors"); got != first {
		t.Errorf("memoized Hash() = %q, want %q", got, first)
	}

	// After Reset the changed content is re-hashed.
	r.Reset()
	want := digestOf([]byte("different"))[:10]
	if got := r.Hash(KindCheckpoint, "base.safetensors"); got != want {
		t.Errorf("Hash() after Reset = %q, want %q", got, want)
	}
}

func TestResolverReadsSidecar(t *testing.T) {
	r, path := newTestResolver(t, []byte("model weights"))

	// Pre-seed a sidecar with a digest that does not match the content;
	// the resolver must trust it and skip hashing.
	fake := strings.Repeat("ab", 32)
	sidecar := strings.TrimSuffix(path, ".safetensors") + ".sha256"
	writeFile(t, sidecar, []byte(fake+"\n"))

	if got := r.Hash(KindCheckpoint, "base.safetensors"); got != fake[:10] {
		t.Errorf("Hash() = %q, want sidecar prefix %q", got, fake[:10])
	}
}

func TestResolverIgnoresCorruptSidecar(t *testing.T) {
	content := []byte("model weights")
	r, path := newTestResolver(t, content)

	sidecar := strings.TrimSuffix(path, ".safetensors") + ".sha256"
	writeFile(t, sidecar, []byte("not a digest"))

	want := digestOf(content)[:10]
	if got := r.Hash(KindCheckpoint, "base.safetensors"); got != want {
		t.Errorf("Hash() with corrupt sidecar = %q, want %q", got, want)
	}
	// The corrupt sidecar is replaced by the real digest.
	data, err := os.ReadFile(sidecar)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(data)); got != digestOf(content) {
		t.Errorf("sidecar after rehash = %q, want %q", got, digestOf(content))
	}
}

func TestResolverMissingFile(t *testing.T) {
	r := NewResolver(NewDirLocator(t.TempDir()), nil)

	if got := r.Hash(KindCheckpoint, "absent.safetensors"); got != NotAvailable {
		t.Errorf("Hash(absent) = %q, want %q", got, NotAvailable)
	}
	// Misses are memoized too.
	if got := r.Hash(KindCheckpoint, "absent.safetensors"); got != NotAvailable {
		t.Errorf("repeat Hash(absent) = %q, want %q", got, NotAvailable)
	}
}

func TestResolverRejectsBadNames(t *testing.T) {
	r := NewResolver(NewDirLocator(t.TempDir()), nil)

	for _, name := range []string{"", "   ", "../../etc/passwd", "a//b"} {
		if got := r.Hash(KindCheckpoint, name); got != NotAvailable {
			t.Errorf("Hash(%q) = %q, want %q", name, got, NotAvailable)
		}
	}
}

func TestResolverSidecarsDisabled(t *testing.T) {
	r, path := newTestResolver(t, []byte("model weights"))
	r.Sidecars = false

	r.Hash(KindCheckpoint, "base.safetensors")

	sidecar := strings.TrimSuffix(path, ".safetensors") + ".sha256"
	if _, err := os.Stat(sidecar); !os.IsNotExist(err) {
		t.Errorf("sidecar written despite Sidecars=false (stat err = %v)", err)
	}
}

func TestResolverNormalizesNames(t *testing.T) {
	content := []byte("model weights")
	r, _ := newTestResolver(t, content)

	want := digestOf(content)[:10]
	for _, name := range []string{`"base.safetensors"`, " base.safetensors "} {
		if got := r.Hash(KindCheckpoint, name); got != want {
			t.Errorf("Hash(%q) = %q, want %q", name, got, want)
		}
	}
	// All spellings share one memo entry.
	if len(r.memo) != 1 {
		t.Errorf("memo has %d entries, want 1", len(r.memo))
	}
}

func TestResolverVerbosityStable(t *testing.T) {
	content := []byte("model weights")
	want := digestOf(content)[:10]

	// Every verbosity level must return identical hashes and misses.
	levels := []Verbosity{VerbositySilent, VerbosityFilename, VerbosityPath, VerbosityDetailed, VerbosityDebug}
	for _, v := range levels {
		t.Run(v.String(), func(t *testing.T) {
			r, _ := newTestResolver(t, content)
			r.Verbosity = v
			if got := r.Hash(KindCheckpoint, "base.safetensors"); got != want {
				t.Errorf("Hash() = %q, want %q", got, want)
			}
			if got := r.Hash(KindCheckpoint, "absent.safetensors"); got != NotAvailable {
				t.Errorf("Hash(absent) = %q, want %q", got, NotAvailable)
			}
		})
	}
}

func TestParseVerbosity(t *testing.T) {
	tests := []struct {
		input   string
		want    Verbosity
		wantErr bool
	}{
		{"", VerbositySilent, false},
		{"silent", VerbositySilent, false},
		{"filename", VerbosityFilename, false},
		{"PATH", VerbosityPath, false},
		{"detailed", VerbosityDetailed, false},
		{"debug", VerbosityDebug, false},
		{"shout", VerbositySilent, true},
	}

	for _, tt := range tests {
		got, err := ParseVerbosity(tt.input)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseVerbosity(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseVerbosity(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestResolverNilLocator(t *testing.T) {
	r := NewResolver(nil, nil)
	if got := r.Hash(KindCheckpoint, "base.safetensors"); got != NotAvailable {
		t.Errorf("Hash() with nil locator = %q, want %q", got, NotAvailable)
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	content := []byte("some content")
	writeFile(t, path, content)

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}
	if got != digestOf(content) {
		t.Errorf("HashFile() = %q, want %q", got, digestOf(content))
	}

	if _, err := HashFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("HashFile(absent) error = nil, want error")
	}
}

func TestSidecarPath(t *testing.T) {
	tests := []struct {
		resource string
		want     string
	}{
		{"model.safetensors", "model.sha256"},
		{"dir/model.ckpt", "dir/model.sha256"},
		{"noext", "noext.sha256"},
	}

	for _, tt := range tests {
		t.Run(tt.resource, func(t *testing.T) {
			if got := sidecarPath(tt.resource); got != tt.want {
				t.Errorf("sidecarPath(%q) = %q, want %q", tt.resource, got, tt.want)
			}
		})
	}
}
