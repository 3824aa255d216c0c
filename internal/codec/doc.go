// Package codec supplies decompressed bytes for (source, offset) pairs
// through an external, opaque HAL-style compression tool, amortizing
// process start cost across thousands of speculative decode attempts.
//
// The pool holds a fixed number of persistent worker processes, one
// logical channel per slot, speaking a length-prefixed request/response
// protocol over stdin/stdout. The codec's internal algorithm is never
// implemented here; the only assumption is the external contract: the
// tool answers quickly, failing fast on offsets that hold no valid
// compressed stream.
//
// Batch results are index-aligned with the submitted requests regardless
// of completion order. Callers zip offsets to results by position, so this
// ordering guarantee is load-bearing.
//
// A worker that hangs or crashes on garbage input is detected via a
// liveness timeout, killed, and respawned into the same slot; only the
// request that triggered the crash is marked failed. The pool itself
// caches nothing: result caching keyed by content hash belongs to the
// caller so it survives pool restarts.
package codec
