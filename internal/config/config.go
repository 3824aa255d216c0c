package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen based on typical SNES ROM layouts and the
// behavior of the HAL decompressor on real cartridge images.
const (
	// DefaultCodecTool is the external decompressor binary searched on PATH.
	// The exhal tool decodes the HAL compression format used by the target
	// ROMs. It is spawned as a pool of persistent worker processes.
	DefaultCodecTool = "exhal-worker"

	// DefaultStride of 64 bytes is the candidate offset step within a scan
	// range. HAL-compressed sprite sheets in practice start on small
	// alignments, so a finer stride mostly wastes decode attempts while a
	// coarser stride risks skipping real sheets. Users can override this
	// via the --stride CLI flag.
	DefaultStride = 64

	// DefaultWorkers of 0 means use runtime.NumCPU() capped by the pool.
	// Decompression is CPU-bound in the worker process, so one worker per
	// core is the sweet spot.
	DefaultWorkers = 0

	// DefaultRequestTimeout bounds a single decompression attempt.
	// A healthy worker answers in milliseconds even for worst-case input;
	// anything slower means the worker is wedged and must be respawned.
	DefaultRequestTimeout = 5 * time.Second

	// DefaultRegionSize is the window size for empty-region analysis.
	// 4KB matches the granularity at which ROM fillers appear (bank
	// padding, erased flash sectors) without fragmenting the range map.
	DefaultRegionSize = 4096

	// DefaultMinGapSize is the empty gap below which adjacent scan ranges
	// are merged. Small holes inside otherwise dense data are cheaper to
	// scan through than to route around.
	DefaultMinGapSize = 8192

	// DefaultQualityThreshold is the minimum quality score for a
	// decompressed payload to be reported as a sprite candidate.
	// 0.3 keeps most real sheets while rejecting text, code, and music
	// data that happen to decompress cleanly.
	DefaultQualityThreshold = 0.3

	// DefaultEntropyThreshold marks a region empty when its Shannon entropy
	// falls below this value. Uniform filler sits near 0 bits/byte while
	// even sparse real data exceeds 1.
	DefaultEntropyThreshold = 1.0

	// DefaultZeroThreshold marks a region empty when this fraction of its
	// bytes is zero. Erased ROM areas are typically all 0x00.
	DefaultZeroThreshold = 0.9

	// DefaultPatternThreshold marks a region empty when its filler pattern
	// score exceeds this value.
	DefaultPatternThreshold = 0.8

	// DefaultMaxUniqueBytes marks a region empty when it contains at most
	// this many distinct byte values. Real graphics data uses far more.
	DefaultMaxUniqueBytes = 8

	// DefaultYCutoff is the OAM Y coordinate at or above which a sprite is
	// considered offscreen. 224 is the visible height of the standard
	// SNES display mode.
	DefaultYCutoff = 224

	// AppName is the application name used for XDG directory paths.
	AppName = "spritescan"
)

// Config holds all configuration options for spritescan.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., RegionConfig, CodecConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// ROMPath is the path of the ROM image to scan.
	ROMPath string

	// CodecTool is the name or path of the external decompressor binary.
	// The tool must speak the worker protocol on stdin/stdout.
	CodecTool string

	// CodecArgs are extra arguments passed to every worker process.
	CodecArgs []string

	// Workers is the number of persistent decompressor processes.
	// Zero means one worker per CPU core, capped by the pool.
	Workers int

	// Stride is the byte step between candidate offsets within a scan range.
	Stride int

	// RequestTimeout bounds a single decompression attempt. A worker that
	// exceeds it is killed and respawned.
	RequestTimeout time.Duration

	// RegionSize is the window size in bytes for empty-region analysis.
	RegionSize int

	// MinGapSize is the empty gap in bytes below which adjacent scan
	// ranges are merged into one.
	MinGapSize int

	// EntropyThreshold classifies a region as empty when its Shannon
	// entropy in bits per byte falls below this value.
	EntropyThreshold float64

	// ZeroThreshold classifies a region as empty when this fraction of
	// its bytes is zero.
	ZeroThreshold float64

	// PatternThreshold classifies a region as empty when its filler
	// pattern score exceeds this value.
	PatternThreshold float64

	// MaxUniqueBytes classifies a region as empty when it contains at
	// most this many distinct byte values.
	MaxUniqueBytes int

	// QualityThreshold is the minimum quality score for a decompressed
	// payload to be kept as a sprite candidate.
	QualityThreshold float64

	// YCutoff is the OAM Y coordinate at or above which sprites are
	// treated as offscreen when computing palette hints.
	YCutoff int

	// OAMPath is an optional path to a 544-byte OAM snapshot used for
	// palette hinting. Empty disables hinting.
	OAMPath string

	// CGRAMPath is an optional path to a 512-byte CGRAM snapshot used
	// together with OAMPath for palette hinting.
	CGRAMPath string

	// VRAMPath is an optional path to a 65536-byte VRAM snapshot
	// captured alongside OAM and CGRAM. Requires both OAMPath and
	// CGRAMPath.
	VRAMPath string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable
	// format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// CacheDir is the directory for the resumable scan database.
	// Defaults to the XDG data directory.
	CacheDir string

	// NoCache disables the scan database entirely. Scans always start
	// from scratch and results are not persisted.
	NoCache bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .spritescan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., thresholds, stride).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		CodecTool:        DefaultCodecTool,
		Workers:          DefaultWorkers,
		Stride:           DefaultStride,
		RequestTimeout:   DefaultRequestTimeout,
		RegionSize:       DefaultRegionSize,
		MinGapSize:       DefaultMinGapSize,
		EntropyThreshold: DefaultEntropyThreshold,
		ZeroThreshold:    DefaultZeroThreshold,
		PatternThreshold: DefaultPatternThreshold,
		MaxUniqueBytes:   DefaultMaxUniqueBytes,
		QualityThreshold: DefaultQualityThreshold,
		YCutoff:          DefaultYCutoff,
		CacheDir:         XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for spritescan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/spritescan
// On macOS: ~/Library/Application Support/spritescan
// On Windows: %LOCALAPPDATA%\spritescan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for spritescan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/spritescan
// On macOS: ~/Library/Application Support/spritescan
// On Windows: %APPDATA%\spritescan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any scanning begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have a ROM to scan
	if c.ROMPath == "" {
		return ErrNoROM
	}

	// A codec tool is required; decompression happens out of process
	if c.CodecTool == "" {
		return ErrNoCodecTool
	}

	// Stride must be positive; zero stride would never advance
	if c.Stride <= 0 {
		return ErrInvalidStride
	}

	// Workers may be zero (auto) but never negative
	if c.Workers < 0 {
		return ErrInvalidWorkers
	}

	// Timeout must be positive; zero timeout would kill healthy workers
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	// Region size must be positive to form analysis windows
	if c.RegionSize <= 0 {
		return ErrInvalidRegionSize
	}

	// MinGapSize must be non-negative; zero disables gap merging
	if c.MinGapSize < 0 {
		return ErrInvalidMinGap
	}

	// Quality threshold is a [0,1] score
	if c.QualityThreshold < 0 || c.QualityThreshold > 1 {
		return ErrInvalidThreshold
	}

	// Snapshot paths come as a pair; OAM without CGRAM cannot be rendered
	if (c.OAMPath == "") != (c.CGRAMPath == "") {
		return ErrIncompleteSnapshot
	}
	if c.VRAMPath != "" && c.OAMPath == "" {
		return ErrIncompleteSnapshot
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
