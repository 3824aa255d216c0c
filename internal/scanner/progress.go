package scanner

// Progress is a point-in-time snapshot of a running scan, emitted after
// each batch.
type Progress struct {
	// OffsetsProbed is the number of decode attempts submitted so far.
	OffsetsProbed int

	// TotalOffsets is the number of decode attempts the whole scan
	// will submit.
	TotalOffsets int

	// RangesDone is the number of scan ranges fully processed.
	RangesDone int

	// TotalRanges is the number of optimized scan ranges.
	TotalRanges int

	// CandidatesFound is the number of candidates accepted so far.
	CandidatesFound int
}

// emitProgress sends a progress event without blocking. A slow or absent
// consumer never stalls the scan; dropped events are fine because each
// event carries absolute counters.
func (o *Orchestrator) emitProgress(p Progress) {
	if o.progress == nil {
		return
	}
	select {
	case o.progress <- p:
	default:
	}
}
