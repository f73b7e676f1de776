// Package hashes resolves named model resources to truncated content
// digests.
//
// # Overview
//
// Parameter blocks identify models by short SHA-256 digests (the AutoV2
// convention: first 10 hex characters). Computing those digests means
// finding the file a workflow input names and streaming it through
// SHA-256, which for checkpoint files is gigabytes of IO. This package
// provides the [Locator] abstraction for the finding and [Resolver] for
// the hashing, with aggressive caching around both.
//
// # Caching
//
// Three layers keep repeat runs cheap:
//
//   - An in-memory memo per (kind, name), including misses, cleared by
//     [Resolver.Reset].
//   - Sidecar files: after hashing model.safetensors the full digest is
//     written to model.sha256 beside it, and future runs read that
//     instead of the model file.
//   - Once-per-name warnings, so a workflow referencing a missing model
//     logs a single warning instead of one per captured field.
//
// Unresolvable names yield [NotAvailable], which parameter output prints
// verbatim; a missing model never fails a capture.
//
// # Lookup
//
// [DirLocator] implements the conventional models/ directory layout with
// one or more roots per [Kind]. Names may carry subdirectories and may
// omit the file extension, in which case the well-known resource
// extensions are probed.
package hashes
