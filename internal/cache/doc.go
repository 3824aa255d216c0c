// Package cache provides SQLite-based persistence for scan results, so
// long brute-force scans are resumable and completed scans answer from
// disk instead of re-probing the codec.
//
// This package implements the ScanDB, which stores:
//   - Scan progress checkpoints (last offset scanned, completion flag)
//   - Accepted sprite candidates per scan session
//
// Entries are keyed by the SHA-256 of the ROM content plus a hash of the
// scan parameters, never by file path: cached results survive codec pool
// restarts, ROM file moves, and renames, and go stale only when the bytes
// or the scan configuration actually change.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package cache
