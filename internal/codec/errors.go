package codec

import "errors"

// Pool-level errors. Expected decode failures (garbage offsets) are not
// errors: they come back as Result values with Success=false, since they
// are the common case during brute-force scanning, not an exceptional one.
//
// Design decision: We use package-level sentinel errors so callers can
// branch with errors.Is rather than matching message strings. Only
// resource-level failures (missing tool, dead process, closed pool)
// surface as errors.
var (
	// ErrCodecUnavailable is returned at pool construction when the
	// external codec tool is missing or not executable, and by every
	// subsequent call on a pool that failed construction.
	ErrCodecUnavailable = errors.New("codec tool unavailable")

	// ErrPoolClosed is returned when a decode is requested after
	// Shutdown.
	ErrPoolClosed = errors.New("codec pool is closed")

	// ErrWorkerCrashed indicates a worker process died or exceeded the
	// liveness timeout while serving a request. The pool respawns the
	// worker; the triggering request is marked failed.
	ErrWorkerCrashed = errors.New("codec worker crashed")

	// ErrResponseTooLarge is returned when a worker announces a payload
	// beyond the protocol limit, which indicates a corrupt stream.
	ErrResponseTooLarge = errors.New("codec response exceeds protocol limit")
)
