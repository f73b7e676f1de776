package hashes

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Kind names a resource category. Kinds select which directories a
// [Locator] probes and which hash formatter a capture rule applies.
type Kind string

const (
	KindCheckpoint Kind = "checkpoint"
	KindLora       Kind = "lora"
	KindVAE        Kind = "vae"
	KindEmbedding  Kind = "embedding"
	KindUNet       Kind = "unet"
	KindCLIP       Kind = "clip"
)

// Kinds returns all resource kinds in stable order.
func Kinds() []Kind {
	return []Kind{KindCheckpoint, KindLora, KindVAE, KindEmbedding, KindUNet, KindCLIP}
}

// probeExts are the file extensions tried when a resource name carries
// none. Embedding references in prompt text habitually omit the extension.
var probeExts = []string{".safetensors", ".sft", ".ckpt", ".pt", ".pth", ".bin", ".gguf"}

// NormalizeName strips the decorations prompt text wraps around resource
// names: surrounding quotes, the "embedding:" reference prefix, and the
// attention-syntax escapes ("my \(fancy\) lora"). The result is what the
// file on disk is actually called.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	for _, q := range []byte{'"', '\''} {
		if len(name) >= 2 && name[0] == q && name[len(name)-1] == q {
			name = name[1 : len(name)-1]
			break
		}
	}
	if rest, ok := cutPrefixFold(name, "embedding:"); ok {
		name = rest
	}
	name = strings.NewReplacer(`\(`, "(", `\)`, ")").Replace(name)
	return strings.TrimSpace(name)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

// IsModelPath reports whether a value plausibly names a model file rather
// than arbitrary text: it carries a path separator or ends in one of the
// well-known resource extensions. Capture uses this to avoid probing the
// filesystem for every free-form string a rule happens to match.
func IsModelPath(name string) bool {
	if strings.ContainsAny(name, `/\`) {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range probeExts {
		if ext == e {
			return true
		}
	}
	return false
}

// Locator finds the file backing a named resource.
type Locator interface {
	// Locate returns the path of the resource file, or false if the name
	// cannot be resolved to an existing file.
	Locate(kind Kind, name string) (string, bool)
}

// CandidateLister is implemented by locators that can report which paths
// they would probe for a name. The resolver consults it for its detailed
// logging levels; location itself never requires it.
type CandidateLister interface {
	Candidates(kind Kind, name string) []string
}

// DirLocator resolves resource names against per-kind directory roots,
// mirroring the conventional models/ layout: names may carry relative
// subdirectories ("xl/base.safetensors") and may omit the extension.
type DirLocator struct {
	Roots map[Kind][]string
}

// NewDirLocator builds a locator over the standard models directory
// layout. Both the legacy and current directory names for UNet and CLIP
// models are probed.
func NewDirLocator(modelsDir string) *DirLocator {
	j := func(sub string) string { return filepath.Join(modelsDir, sub) }
	return &DirLocator{Roots: map[Kind][]string{
		KindCheckpoint: {j("checkpoints")},
		KindLora:       {j("loras")},
		KindVAE:        {j("vae")},
		KindEmbedding:  {j("embeddings")},
		KindUNet:       {j("diffusion_models"), j("unet")},
		KindCLIP:       {j("text_encoders"), j("clip")},
	}}
}

// AddRoot appends an extra search root for a kind.
func (l *DirLocator) AddRoot(kind Kind, dir string) {
	if l.Roots == nil {
		l.Roots = make(map[Kind][]string)
	}
	l.Roots[kind] = append(l.Roots[kind], dir)
}

// Locate searches the kind's roots for the named file. The name is
// normalized first, so quoted and "embedding:"-prefixed spellings resolve
// to the same file. A name with an extension must match exactly; an
// extension-less name is probed against the well-known resource extensions.
func (l *DirLocator) Locate(kind Kind, name string) (string, bool) {
	for _, candidate := range l.Candidates(kind, name) {
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Candidates returns every path Locate would probe for name, in probe
// order, without checking existence.
func (l *DirLocator) Candidates(kind Kind, name string) []string {
	name = filepath.FromSlash(NormalizeName(name))
	var paths []string
	for _, root := range l.Roots[kind] {
		candidate := filepath.Join(root, name)
		paths = append(paths, candidate)
		if filepath.Ext(name) != "" {
			continue
		}
		for _, ext := range probeExts {
			paths = append(paths, candidate+ext)
		}
	}
	return paths
}

// KindsCovered returns the kinds this locator has roots for, sorted.
func (l *DirLocator) KindsCovered() []Kind {
	kinds := make([]Kind, 0, len(l.Roots))
	for k := range l.Roots {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

var (
	_ Locator         = (*DirLocator)(nil)
	_ CandidateLister = (*DirLocator)(nil)
)
