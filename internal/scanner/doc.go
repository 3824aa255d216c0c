// Package scanner orchestrates full ROM scans. It combines the
// empty-region detector, the external codec pool, and the candidate
// scorer into one pass over a ROM image.
//
// A scan walks the ROM in five stages:
//  1. Map empty regions and build optimized scan ranges
//  2. Generate candidate offsets per range at a fixed stride, padded
//     around range boundaries so compressed streams straddling a
//     window edge are still probed
//  3. Submit one ordered batch per range to the codec pool
//  4. Score successful decompressions and keep those above threshold
//  5. Optionally hint a sprite palette per candidate from a
//     synchronized OAM snapshot
//
// Scans are cooperative with context cancellation, checked between
// batches. With a scan database attached, progress is checkpointed per
// range and completed scans answer from cache without touching the
// codec pool.
package scanner
