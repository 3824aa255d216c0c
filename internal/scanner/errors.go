package scanner

import "errors"

// Scan errors returned by the orchestrator.
var (
	// ErrROMTooSmall is returned when the ROM is smaller than a single
	// tile. Nothing useful can be scanned in such a file.
	ErrROMTooSmall = errors.New("rom too small: needs at least one 32-byte tile")

	// ErrScanInProgress is returned when Scan is called while another
	// scan is already running on the same orchestrator.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrBadSnapshot is returned when a supplied OAM or CGRAM snapshot
	// has the wrong size.
	ErrBadSnapshot = errors.New("snapshot has wrong size")
)
