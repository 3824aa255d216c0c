// Package score classifies successfully-decompressed buffers as plausible
// sprite tile data or decode noise.
//
// Brute-force offset scanning produces far more accidental decompression
// successes than real sprite starts, so every survivor passes through a
// cheap structural check: the first tiles are graded for reasonable ink
// coverage and byte-pair variety, and the accumulated grade is normalized
// to a quality score in [0, 1]. Acceptance is a configurable threshold,
// not a hard gate.
package score
