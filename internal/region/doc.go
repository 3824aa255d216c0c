// Package region classifies byte ranges of a ROM image as empty padding or
// candidate-worthy data, so the scan orchestrator can skip decode attempts
// on filler.
//
// The detector slides a fixed-size window across the image and scores each
// window with cheap heuristics: Shannon entropy over the byte histogram,
// zero-byte percentage, distinct byte count, and coverage by canonical
// filler patterns. Windows that fail every emptiness check are merged into
// half-open ScanRanges handed to the orchestrator.
//
// Analyses are cached per (offset, size) in a fixed-capacity LRU so
// repeated scans over the same image are cheap. The cache tolerates
// concurrent readers; a duplicate recomputation race between two callers
// is acceptable and resolves to identical entries.
package region
