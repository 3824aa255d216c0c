package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoROM is returned when no ROM path is specified.
	// This error occurs when the positional ROM argument is missing.
	ErrNoROM = errors.New("no ROM specified: provide a path to a ROM image")

	// ErrNoCodecTool is returned when the codec tool name is empty.
	// All decompression runs in external worker processes, so a tool
	// name is always required.
	ErrNoCodecTool = errors.New("no codec tool specified: provide a decompressor binary via --codec")

	// ErrInvalidStride is returned when the scan stride is not positive.
	// A stride of zero would probe the same offset forever.
	ErrInvalidStride = errors.New("invalid stride: must be positive")

	// ErrInvalidWorkers is returned when the worker count is negative.
	// Use 0 to size the pool from the CPU count.
	ErrInvalidWorkers = errors.New("invalid worker count: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	// A timeout of zero or negative would kill workers before they answer.
	ErrInvalidTimeout = errors.New("invalid request timeout: must be positive")

	// ErrInvalidRegionSize is returned when the region window size is not
	// positive. Empty-region analysis needs a non-empty window.
	ErrInvalidRegionSize = errors.New("invalid region size: must be positive")

	// ErrInvalidMinGap is returned when the range-merge gap is negative.
	// Use 0 to disable gap merging.
	ErrInvalidMinGap = errors.New("invalid minimum gap size: must be non-negative")

	// ErrInvalidThreshold is returned when the quality threshold is
	// outside [0,1]. Quality scores are normalized to that range.
	ErrInvalidThreshold = errors.New("invalid quality threshold: must be between 0 and 1")

	// ErrIncompleteSnapshot is returned when only one of the OAM and CGRAM
	// snapshot paths is given. Palette hinting needs both tables.
	ErrIncompleteSnapshot = errors.New("incomplete snapshot: --oam and --cgram must be given together")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
