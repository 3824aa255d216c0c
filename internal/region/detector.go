package region

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Default detector thresholds. These were calibrated against one specific
// ROM; treat them as starting points, not ground truth, and override them
// via configuration when a ROM uses unusual padding.
const (
	// DefaultEntropyThreshold marks a window empty when its Shannon
	// entropy falls below this value. Real graphics data rarely drops
	// under 1 bit per byte; padding and fill patterns almost always do.
	DefaultEntropyThreshold = 1.0

	// DefaultZeroThreshold marks a window empty when more than this
	// fraction of its bytes are 0x00.
	DefaultZeroThreshold = 0.9

	// DefaultPatternThreshold marks a window empty when a filler pattern
	// covers more than this fraction of it.
	DefaultPatternThreshold = 0.8

	// DefaultMaxUniqueBytes marks a window empty when it contains at most
	// this many distinct byte values.
	DefaultMaxUniqueBytes = 8

	// DefaultRegionSize is the analysis window size. 4 KiB is small
	// enough to isolate padding runs and large enough to keep the
	// per-window cost negligible.
	DefaultRegionSize = 4096

	// DefaultCacheSize bounds the analysis LRU. At the default window
	// size this covers a 256 MiB image without eviction.
	DefaultCacheSize = 65536

	// periodLength is the repeating-period length probed by the
	// arbitrary-pattern check.
	periodLength = 4

	// periodMinCoverage is the minimum coverage for an arbitrary 4-byte
	// period to count as a filler pattern.
	periodMinCoverage = 0.9

	// fillerChunk is the length of the alternating canonical fillers.
	fillerChunk = 16
)

// Config holds the emptiness thresholds for a Detector.
type Config struct {
	// EntropyThreshold is the Shannon entropy (bits per byte, 0-8) below
	// which a window is empty.
	EntropyThreshold float64

	// ZeroThreshold is the zero-byte fraction (0-1) above which a window
	// is empty.
	ZeroThreshold float64

	// PatternThreshold is the filler-pattern coverage (0-1) above which a
	// window is empty.
	PatternThreshold float64

	// MaxUniqueBytes is the distinct-byte count at or below which a
	// window is empty.
	MaxUniqueBytes int

	// RegionSize is the analysis window size in bytes.
	RegionSize int
}

// DefaultConfig returns the default detector thresholds.
func DefaultConfig() Config {
	return Config{
		EntropyThreshold: DefaultEntropyThreshold,
		ZeroThreshold:    DefaultZeroThreshold,
		PatternThreshold: DefaultPatternThreshold,
		MaxUniqueBytes:   DefaultMaxUniqueBytes,
		RegionSize:       DefaultRegionSize,
	}
}

// RegionAnalysis is the classification of one analysis window.
type RegionAnalysis struct {
	// Offset is the window start within the image.
	Offset int `json:"offset"`

	// Size is the window length in bytes.
	Size int `json:"size"`

	// IsEmpty reports whether the window is padding.
	IsEmpty bool `json:"is_empty"`

	// Entropy is the Shannon entropy of the byte histogram, 0-8.
	Entropy float64 `json:"entropy"`

	// ZeroPercentage is the fraction of 0x00 bytes, 0-1.
	ZeroPercentage float64 `json:"zero_percentage"`

	// UniqueByteCount is the number of distinct byte values, 0-256.
	UniqueByteCount int `json:"unique_byte_count"`

	// PatternScore is the best filler-pattern coverage, 0-1.
	PatternScore float64 `json:"pattern_score"`

	// Reason is a diagnostic string naming the check that classified the
	// window, or "data" when none matched.
	Reason string `json:"reason"`
}

// ScanRange is a half-open [Start, End) byte interval worth probing.
type ScanRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Size returns the range length in bytes. Inverted ranges report zero.
func (r ScanRange) Size() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// String renders the range in the hex form used throughout logs.
func (r ScanRange) String() string {
	return fmt.Sprintf("[0x%X, 0x%X)", r.Start, r.End)
}

// cacheKey identifies one cached analysis.
type cacheKey struct {
	offset int
	size   int
}

// Detector classifies windows of a ROM image as empty or candidate-worthy.
//
// The zero value is not usable; create instances with New. A single
// Detector is safe for concurrent use: the only mutable state is the
// analysis cache, and the underlying LRU serializes access internally.
type Detector struct {
	config    Config
	cacheSize int
	cache     *lru.Cache[cacheKey, RegionAnalysis]
}

// Option configures a Detector.
type Option func(*Detector)

// WithConfig replaces the default thresholds.
func WithConfig(config Config) Option {
	return func(d *Detector) {
		d.config = config
	}
}

// WithCacheSize overrides the analysis cache capacity.
// Non-positive values keep the default.
func WithCacheSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.cacheSize = n
		}
	}
}

// New creates a Detector with the given options.
func New(opts ...Option) *Detector {
	d := &Detector{
		config:    DefaultConfig(),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.config.RegionSize <= 0 {
		d.config.RegionSize = DefaultRegionSize
	}

	// Capacity is positive, so construction cannot fail.
	cache, err := lru.New[cacheKey, RegionAnalysis](d.cacheSize)
	if err != nil {
		panic(err)
	}
	d.cache = cache

	return d
}

// Config returns the thresholds the detector was built with.
func (d *Detector) Config() Config {
	return d.config
}

// ClearCache drops every cached analysis. Call it after the underlying
// image bytes change; offsets alone do not identify content.
func (d *Detector) ClearCache() {
	d.cache.Purge()
}

// AnalyzeRegion classifies one window of image data starting at the given
// offset. The emptiness checks run in a fixed order and the first match
// wins: entropy, zero percentage, unique byte count, pattern coverage.
// Results are cached by (offset, len(data)).
func (d *Detector) AnalyzeRegion(data []byte, offset int) RegionAnalysis {
	key := cacheKey{offset: offset, size: len(data)}
	if cached, ok := d.cache.Get(key); ok {
		return cached
	}

	analysis := d.analyze(data, offset)
	d.cache.Add(key, analysis)
	return analysis
}

// analyze computes a fresh RegionAnalysis.
func (d *Detector) analyze(data []byte, offset int) RegionAnalysis {
	analysis := RegionAnalysis{
		Offset: offset,
		Size:   len(data),
		Reason: "data",
	}
	if len(data) == 0 {
		analysis.IsEmpty = true
		analysis.Reason = "zero-length region"
		return analysis
	}

	var histogram [256]int
	zeros := 0
	for _, b := range data {
		histogram[b]++
		if b == 0 {
			zeros++
		}
	}

	unique := 0
	for _, count := range histogram {
		if count > 0 {
			unique++
		}
	}

	analysis.Entropy = shannonEntropy(histogram, len(data))
	analysis.ZeroPercentage = float64(zeros) / float64(len(data))
	analysis.UniqueByteCount = unique
	analysis.PatternScore = patternScore(data)

	switch {
	case analysis.Entropy < d.config.EntropyThreshold:
		analysis.IsEmpty = true
		analysis.Reason = fmt.Sprintf("low entropy (%.2f < %.2f)",
			analysis.Entropy, d.config.EntropyThreshold)
	case analysis.ZeroPercentage > d.config.ZeroThreshold:
		analysis.IsEmpty = true
		analysis.Reason = fmt.Sprintf("zero-filled (%.0f%% zeros)",
			analysis.ZeroPercentage*100)
	case analysis.UniqueByteCount <= d.config.MaxUniqueBytes:
		analysis.IsEmpty = true
		analysis.Reason = fmt.Sprintf("low byte diversity (%d unique bytes)",
			analysis.UniqueByteCount)
	case analysis.PatternScore > d.config.PatternThreshold:
		analysis.IsEmpty = true
		analysis.Reason = fmt.Sprintf("filler pattern (%.0f%% coverage)",
			analysis.PatternScore*100)
	}

	return analysis
}

// ScanRegions sweeps the analysis window across the full image and merges
// consecutive non-empty windows into candidate ranges. The final window is
// truncated to the remaining length. Identical input bytes always produce
// an identical range set.
//
// A sprite whose compressed stream straddles a window boundary can sit in
// a window classified empty on one side. The detector does not correct for
// this; callers should pad candidate generation a few window widths around
// range boundaries.
func (d *Detector) ScanRegions(data []byte) []ScanRange {
	if len(data) == 0 {
		return nil
	}

	var ranges []ScanRange
	current := ScanRange{Start: -1}

	for start := 0; start < len(data); start += d.config.RegionSize {
		end := min(start+d.config.RegionSize, len(data))
		analysis := d.AnalyzeRegion(data[start:end], start)

		if analysis.IsEmpty {
			if current.Start >= 0 {
				ranges = append(ranges, current)
				current = ScanRange{Start: -1}
			}
			continue
		}

		if current.Start < 0 {
			current = ScanRange{Start: start, End: end}
		} else {
			current.End = end
		}
	}
	if current.Start >= 0 {
		ranges = append(ranges, current)
	}

	return ranges
}

// OptimizedScanRanges merges adjacent candidate ranges whose separating
// gap is smaller than minGapSize, bounding the number of distinct ranges
// handed to the orchestrator. A non-positive minGapSize returns the raw
// range set. The output is non-overlapping and ascending-sorted.
func (d *Detector) OptimizedScanRanges(data []byte, minGapSize int) []ScanRange {
	ranges := d.ScanRegions(data)
	if minGapSize <= 0 || len(ranges) < 2 {
		return ranges
	}

	merged := []ScanRange{ranges[0]}
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.Start-last.End < minGapSize {
			last.End = r.End
		} else {
			merged = append(merged, r)
		}
	}
	return merged
}

// shannonEntropy computes the Shannon entropy in bits per byte from a byte
// histogram. A single repeated byte scores exactly 0; uniformly random
// data approaches 8.
func shannonEntropy(histogram [256]int, total int) float64 {
	if total == 0 {
		return 0
	}

	entropy := 0.0
	for _, count := range histogram {
		if count == 0 {
			continue
		}
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// patternScore returns the best coverage fraction of the region by a
// filler pattern: one of the four canonical fillers, or an arbitrary
// 4-byte repeating period when that covers at least 90% of the region.
func patternScore(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	best := 0.0
	for _, filler := range canonicalFillers() {
		if coverage := patternCoverage(data, filler); coverage > best {
			best = coverage
		}
	}

	if len(data) >= periodLength {
		if coverage := patternCoverage(data, data[:periodLength]); coverage >= periodMinCoverage && coverage > best {
			best = coverage
		}
	}

	return best
}

// canonicalFillers returns the filler patterns seen in practice: solid
// 0x00, solid 0xFF, and the two 16-byte alternating fills.
func canonicalFillers() [4][]byte {
	var zero, ones, zeroOnes, onesZero [fillerChunk * 2]byte
	for i := range fillerChunk {
		ones[i] = 0xFF
		ones[fillerChunk+i] = 0xFF
		zeroOnes[fillerChunk+i] = 0xFF
		onesZero[i] = 0xFF
	}
	return [4][]byte{zero[:], ones[:], zeroOnes[:], onesZero[:]}
}

// patternCoverage returns the fraction of data matched by repeating the
// pattern from the start of the region.
func patternCoverage(data, pattern []byte) float64 {
	if len(pattern) == 0 {
		return 0
	}
	matched := 0
	for i, b := range data {
		if b == pattern[i%len(pattern)] {
			matched++
		}
	}
	return float64(matched) / float64(len(data))
}
