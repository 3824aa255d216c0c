// Package model defines the data structures shared between the scan
// orchestrator, the result cache, and the report writers.
//
// This package contains the following main types:
//   - SpriteCandidate: One plausible sprite location found in a ROM
//   - ScanReport: The aggregate result of one ROM scan session
//   - ScanState: The lifecycle state a scan ended in
//
// The types here are plain data: construction has no side effects, and a
// SpriteCandidate is immutable once the orchestrator emits it.
package model
