package model

import (
	"fmt"
	"sort"
	"time"
)

// ScanState is the lifecycle state a scan session ended in.
type ScanState int

// Scan session states. A session starts Idle, moves to Scanning when the
// first range is submitted, and finishes in exactly one of the three
// terminal states.
const (
	ScanStateIdle ScanState = iota
	ScanStateScanning
	ScanStateCompleted
	ScanStateCancelled
	ScanStateFailed
)

// String returns a human-readable state name.
func (s ScanState) String() string {
	switch s {
	case ScanStateIdle:
		return "idle"
	case ScanStateScanning:
		return "scanning"
	case ScanStateCompleted:
		return "completed"
	case ScanStateCancelled:
		return "cancelled"
	case ScanStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so states render as names
// in JSON reports.
func (s ScanState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so written reports
// decode back into the model type that produced them.
func (s *ScanState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = ScanStateIdle
	case "scanning":
		*s = ScanStateScanning
	case "completed":
		*s = ScanStateCompleted
	case "cancelled":
		*s = ScanStateCancelled
	case "failed":
		*s = ScanStateFailed
	default:
		return fmt.Errorf("unknown scan state %q", text)
	}
	return nil
}

// ScanReport is the aggregate result of one ROM scan session.
type ScanReport struct {
	// ROMPath is the scanned file.
	ROMPath string `json:"rom_path"`

	// ROMHash is the SHA-256 of the ROM content, hex-encoded. Cache
	// entries key on this rather than the path.
	ROMHash string `json:"rom_hash"`

	// ROMSize is the ROM length in bytes.
	ROMSize int `json:"rom_size"`

	// State is the terminal state of the session.
	State ScanState `json:"state"`

	// RangesScanned is the number of optimized scan ranges processed.
	RangesScanned int `json:"ranges_scanned"`

	// OffsetsProbed is the number of decode attempts submitted.
	OffsetsProbed int `json:"offsets_probed"`

	// Resumed reports whether the session continued from cached
	// progress instead of starting fresh.
	Resumed bool `json:"resumed,omitempty"`

	// StartedAt is when the scan began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock scan time.
	Duration time.Duration `json:"duration"`

	// Error holds the failure description when State is failed.
	Error string `json:"error,omitempty"`

	// Candidates are the accepted sprite locations, deduplicated and
	// ascending by offset.
	Candidates []SpriteCandidate `json:"candidates"`
}

// NewScanReport creates a report for the given ROM with the clock
// started.
func NewScanReport(romPath string) *ScanReport {
	return &ScanReport{
		ROMPath:   romPath,
		State:     ScanStateIdle,
		StartedAt: time.Now(),
	}
}

// AddCandidates appends candidates, then deduplicates by offset (keeping
// the higher quality score) and restores ascending offset order.
func (r *ScanReport) AddCandidates(candidates ...SpriteCandidate) {
	r.Candidates = append(r.Candidates, candidates...)

	byOffset := make(map[int64]SpriteCandidate, len(r.Candidates))
	for _, c := range r.Candidates {
		if prev, ok := byOffset[c.Offset]; !ok || c.QualityScore > prev.QualityScore {
			byOffset[c.Offset] = c
		}
	}

	r.Candidates = r.Candidates[:0]
	for _, c := range byOffset {
		r.Candidates = append(r.Candidates, c)
	}
	sort.Slice(r.Candidates, func(i, j int) bool {
		return r.Candidates[i].Offset < r.Candidates[j].Offset
	})
}

// BestCandidate returns the highest-scoring candidate, or nil when none
// were found.
func (r *ScanReport) BestCandidate() *SpriteCandidate {
	var best *SpriteCandidate
	for i := range r.Candidates {
		if best == nil || r.Candidates[i].QualityScore > best.QualityScore {
			best = &r.Candidates[i]
		}
	}
	return best
}
