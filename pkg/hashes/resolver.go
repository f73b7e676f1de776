package hashes

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/metastamp/metastamp/pkg/diag"
	stamperrors "github.com/metastamp/metastamp/pkg/errors"
)

// NotAvailable is returned by [Resolver.Hash] when a resource cannot be
// located, read, or sensibly hashed. Parameter output prints it verbatim.
const NotAvailable = "N/A"

// shortLen is the truncated hash length used in parameter output, matching
// the AutoV2 convention of model-sharing sites.
const shortLen = 10

// SidecarExt is appended to a resource's path (extension stripped) to name
// the cached-digest file alongside it.
const SidecarExt = ".sha256"

// Resolver computes truncated SHA-256 digests of resource files, caching
// results in memory and in sidecar files next to the resources.
//
// Hashing multi-gigabyte model files is expensive, so three layers avoid
// repeat work: an in-memory memo per (kind, name), a sidecar file holding
// the full digest, and once-per-name miss logging so a missing model warns
// a single time per run. Resolver is not safe for concurrent use.
type Resolver struct {
	Locator   Locator
	Logger    *log.Logger
	Sidecars  bool      // write sidecar files after hashing (reading always on)
	Verbosity Verbosity // lookup logging detail; never affects hash values

	memo   map[string]string
	warned map[string]bool
}

// NewResolver builds a resolver over the locator. Sidecar writing is
// enabled by default; a nil logger discards.
func NewResolver(loc Locator, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Resolver{
		Locator:  loc,
		Logger:   logger,
		Sidecars: true,
		memo:     make(map[string]string),
		warned:   make(map[string]bool),
	}
}

// Hash returns the truncated digest for a named resource, or
// [NotAvailable]. The name is normalized first, so quoted and
// "embedding:"-prefixed spellings share one lookup. Results, including
// misses, are memoized until [Reset].
func (r *Resolver) Hash(kind Kind, name string) string {
	name = NormalizeName(name)
	key := string(kind) + "/" + name
	if v, ok := r.memo[key]; ok {
		if r.Verbosity >= VerbosityDebug {
			r.Logger.Debug("hash memo hit", "kind", kind, "name", name)
		}
		return v
	}
	v := r.resolve(kind, name)
	r.memo[key] = v
	return v
}

// Reset clears the in-memory memo and the once-per-name log suppression.
// Sidecar files stay; delete them to force re-hashing of changed files.
func (r *Resolver) Reset() {
	r.memo = make(map[string]string)
	r.warned = make(map[string]bool)
}

func (r *Resolver) resolve(kind Kind, name string) string {
	if err := stamperrors.ValidateResourceName(name); err != nil {
		r.warnOnce(diag.KindUnresolvedResource, "invalid:"+name,
			"resource name not hashable", "kind", kind, "name", name, "reason", err)
		return NotAvailable
	}
	if r.Locator == nil {
		return NotAvailable
	}

	path, ok := r.Locator.Locate(kind, name)
	if !ok {
		r.warnOnce(diag.KindUnresolvedResource, "miss:"+string(kind)+"/"+name,
			"resource file not found", "kind", kind, "name", name)
		if r.Verbosity >= VerbosityDetailed {
			r.Logger.Info("resource lookup failed", "kind", kind, "name", name,
				"candidates", r.candidates(kind, name))
		}
		return NotAvailable
	}

	if full, ok := readSidecar(sidecarPath(path)); ok {
		r.logLookup(kind, name, path, full[:shortLen], "sidecar")
		return full[:shortLen]
	}

	full, err := HashFile(path)
	if err != nil {
		r.warnOnce(diag.KindUnresolvedResource, "read:"+path,
			"resource file not readable", "kind", kind, "path", path, "error", err)
		return NotAvailable
	}
	r.logLookup(kind, name, path, full[:shortLen], "file")

	if r.Sidecars {
		if err := writeSidecar(sidecarPath(path), full); err != nil {
			r.warnOnce(diag.KindSidecarWrite, "sidecar:"+path, "sidecar write failed",
				"path", sidecarPath(path), "error",
				stamperrors.Wrap(stamperrors.ErrCodeSidecarWrite, err, "write sidecar"))
		}
	}
	return full[:shortLen]
}

// logLookup emits the per-resource line the configured verbosity asks
// for. Misses and errors go through warnOnce instead; this covers the
// successful path only.
func (r *Resolver) logLookup(kind Kind, name, path, short, source string) {
	switch r.Verbosity {
	case VerbositySilent:
	case VerbosityFilename:
		r.Logger.Info("resource hashed", "kind", kind, "file", filepath.Base(path))
	case VerbosityPath:
		r.Logger.Info("resource hashed", "kind", kind, "path", path)
	case VerbosityDetailed:
		r.Logger.Info("resource hashed", "kind", kind, "path", path,
			"candidates", r.candidates(kind, name))
	case VerbosityDebug:
		r.Logger.Info("resource hashed", "kind", kind, "path", path, "hash", short,
			"source", source, "candidates", r.candidates(kind, name))
	}
}

// candidates asks the locator which paths it probes, when it can say.
func (r *Resolver) candidates(kind Kind, name string) []string {
	if cl, ok := r.Locator.(CandidateLister); ok {
		return cl.Candidates(kind, name)
	}
	return nil
}

// warnOnce logs at warn level and records a diagnostic the first time key
// is seen, then stays quiet.
func (r *Resolver) warnOnce(kind diag.Kind, key, msg string, kv ...any) {
	if r.warned[key] {
		return
	}
	r.warned[key] = true
	r.Logger.Warn(msg, kv...)
	diag.Record(kind, msg, kv...)
}

// HashFile streams a file through SHA-256 and returns the full lowercase
// hex digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// sidecarPath maps a resource path to its digest sidecar: the extension is
// replaced, so model.safetensors and model.sha256 sit side by side.
func sidecarPath(resource string) string {
	return strings.TrimSuffix(resource, filepath.Ext(resource)) + SidecarExt
}

// readSidecar loads a previously written digest. Anything that is not a
// full 64-char hex digest is ignored as corrupt.
func readSidecar(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	digest := strings.ToLower(strings.TrimSpace(string(data)))
	if len(digest) != sha256.Size*2 || !isHex(digest) {
		return "", false
	}
	return digest, true
}

func writeSidecar(path, digest string) error {
	return os.WriteFile(path, []byte(digest+"\n"), 0o644)
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
