// Package trace walks workflow graphs upstream from a terminal node and
// answers which nodes fed into it, at what distance.
//
// # Overview
//
// Generation metadata lives scattered across a workflow: the sampler holds
// steps and CFG, loaders hold model names, text encoders hold prompts. The
// trace anchors all of them to one terminal node (typically the image save
// node) by running a breadth-first walk over input references. The result
// is a [Tree] mapping each reachable node to its hop distance.
//
// Distances matter because workflows can contain several samplers: a
// hires-fix pipeline runs a base pass and a refinement pass. [FindSampler]
// picks between them by distance ([SelectFarthest] for the base pass,
// [SelectNearest] for the final pass) or by explicit node ID
// ([SelectByID]).
//
// # Sampler Classification
//
// Classification runs in two passes. A curated registry of known sampler
// classes is consulted first; only when it matches nothing does the
// [Classifier] heuristic run, which lets capture-rule tables nominate
// custom sampler nodes without touching the registry.
//
// # Degradation
//
// A missing start node produces an empty tree plus a warning, never an
// error. Dangling references are skipped. Both choices keep partially
// broken workflows processable: whatever was reachable still gets
// captured.
package trace
