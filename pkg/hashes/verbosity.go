package hashes

import (
	"fmt"
	"strings"
)

// Verbosity selects how much detail resource lookups log. It shapes
// diagnostics only; resolved hash values are identical at every level.
type Verbosity int

const (
	// VerbositySilent suppresses per-lookup logging entirely. This is the
	// default.
	VerbositySilent Verbosity = iota
	// VerbosityFilename logs resolved lookups with the file's base name.
	VerbosityFilename
	// VerbosityPath logs the full resolved path.
	VerbosityPath
	// VerbosityDetailed adds the candidate paths probed during location,
	// on hits and on misses.
	VerbosityDetailed
	// VerbosityDebug additionally reports hash values, cache hits, and
	// sidecar hits.
	VerbosityDebug
)

// String returns the verbosity's flag spelling.
func (v Verbosity) String() string {
	switch v {
	case VerbositySilent:
		return "silent"
	case VerbosityFilename:
		return "filename"
	case VerbosityPath:
		return "path"
	case VerbosityDetailed:
		return "detailed"
	case VerbosityDebug:
		return "debug"
	}
	return fmt.Sprintf("Verbosity(%d)", int(v))
}

// ParseVerbosity converts a flag value to a [Verbosity]. The empty string
// parses as [VerbositySilent].
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "silent", "off":
		return VerbositySilent, nil
	case "filename", "file":
		return VerbosityFilename, nil
	case "path", "full":
		return VerbosityPath, nil
	case "detailed", "candidates":
		return VerbosityDetailed, nil
	case "debug", "all":
		return VerbosityDebug, nil
	}
	return VerbositySilent, fmt.Errorf("unknown hash verbosity %q (want silent, filename, path, detailed, or debug)", s)
}
