package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nao1215/spritescan/internal/cache"
	"github.com/nao1215/spritescan/internal/codec"
	"github.com/nao1215/spritescan/internal/model"
	"github.com/nao1215/spritescan/internal/region"
	"github.com/nao1215/spritescan/internal/score"
	"github.com/nao1215/spritescan/internal/snes"
)

// Scan parameter defaults.
const (
	// DefaultStride is the byte step between candidate offsets within a
	// scan range.
	DefaultStride = 64

	// boundaryPadWindows is how many region windows to pad around each
	// scan range. A compressed stream can start inside an "empty" window
	// and extend into real data, so the probe area extends beyond the
	// detected range boundaries.
	boundaryPadWindows = 2
)

// decompressor is the slice of the codec pool the orchestrator needs.
// Declared here so tests can inject a fake pool.
type decompressor interface {
	DecompressBatch(ctx context.Context, requests []codec.Request) ([]codec.Result, error)
}

// Snapshot is an optional synchronized memory capture used for palette
// hinting. OAM must be 544 bytes and CGRAM 512 bytes.
type Snapshot struct {
	// OAM is the object attribute memory table.
	OAM []byte

	// CGRAM is the color palette memory. Not used for hinting itself
	// but validated here so rendering tools downstream can trust it.
	CGRAM []byte

	// VRAM is the tile pattern memory captured alongside OAM and CGRAM.
	// Optional; validated when present for the same reason as CGRAM.
	VRAM []byte
}

// Orchestrator runs full ROM scans. It is safe for a single scan at a
// time; concurrent Scan calls on the same instance return
// ErrScanInProgress.
type Orchestrator struct {
	pool     decompressor
	detector *region.Detector
	scorer   *score.Scorer
	db       *cache.ScanDB
	logger   *slog.Logger
	progress chan<- Progress
	snapshot *Snapshot

	stride     int
	minGapSize int
	yCutoff    int

	mu       sync.Mutex
	state    model.ScanState
	scanning bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDetector sets the empty-region detector. Defaults to one with
// default thresholds.
func WithDetector(d *region.Detector) Option {
	return func(o *Orchestrator) {
		o.detector = d
	}
}

// WithScorer sets the candidate scorer. Defaults to one with the default
// threshold.
func WithScorer(s *score.Scorer) Option {
	return func(o *Orchestrator) {
		o.scorer = s
	}
}

// WithStride sets the byte step between candidate offsets.
func WithStride(stride int) Option {
	return func(o *Orchestrator) {
		if stride > 0 {
			o.stride = stride
		}
	}
}

// WithMinGapSize sets the empty gap below which adjacent scan ranges are
// merged.
func WithMinGapSize(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.minGapSize = n
		}
	}
}

// WithCache attaches a scan database for resumable scans.
func WithCache(db *cache.ScanDB) Option {
	return func(o *Orchestrator) {
		o.db = db
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithProgress attaches a progress event channel. Sends are non-blocking.
func WithProgress(ch chan<- Progress) Option {
	return func(o *Orchestrator) {
		o.progress = ch
	}
}

// WithSnapshot attaches a synchronized OAM/CGRAM capture for palette
// hinting.
func WithSnapshot(snap Snapshot) Option {
	return func(o *Orchestrator) {
		o.snapshot = &snap
	}
}

// WithYCutoff sets the OAM Y coordinate at and beyond which sprites are
// treated as offscreen during palette hinting.
func WithYCutoff(cutoff int) Option {
	return func(o *Orchestrator) {
		o.yCutoff = cutoff
	}
}

// New creates an Orchestrator driving the given codec pool.
func New(pool decompressor, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		pool:       pool,
		stride:     DefaultStride,
		minGapSize: region.DefaultRegionSize * boundaryPadWindows,
		yCutoff:    snes.DefaultYCutoff,
		state:      model.ScanStateIdle,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.detector == nil {
		o.detector = region.New()
	}
	if o.scorer == nil {
		o.scorer = score.New()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if o.snapshot != nil {
		if len(o.snapshot.OAM) != snes.OAMSize {
			return nil, fmt.Errorf("%w: oam is %d bytes, want %d", ErrBadSnapshot, len(o.snapshot.OAM), snes.OAMSize)
		}
		if len(o.snapshot.CGRAM) != snes.CGRAMSize {
			return nil, fmt.Errorf("%w: cgram is %d bytes, want %d", ErrBadSnapshot, len(o.snapshot.CGRAM), snes.CGRAMSize)
		}
		if o.snapshot.VRAM != nil && len(o.snapshot.VRAM) != snes.VRAMSize {
			return nil, fmt.Errorf("%w: vram is %d bytes, want %d", ErrBadSnapshot, len(o.snapshot.VRAM), snes.VRAMSize)
		}
	}

	return o, nil
}

// State returns the current scan lifecycle state.
func (o *Orchestrator) State() model.ScanState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// setState moves the orchestrator to a new lifecycle state.
func (o *Orchestrator) setState(s model.ScanState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Scan runs a full scan of the ROM at romPath. The returned report is
// always non-nil; on failure its State is Failed and the error is also
// returned.
func (o *Orchestrator) Scan(ctx context.Context, romPath string) (*model.ScanReport, error) {
	o.mu.Lock()
	if o.scanning {
		o.mu.Unlock()
		return nil, ErrScanInProgress
	}
	o.scanning = true
	o.state = model.ScanStateScanning
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.scanning = false
		o.mu.Unlock()
	}()

	report := model.NewScanReport(romPath)
	report.State = model.ScanStateScanning

	rom, err := os.ReadFile(romPath) //nolint:gosec // User-provided ROM path is intentional
	if err != nil {
		return o.fail(report, fmt.Errorf("read rom: %w", err))
	}
	if len(rom) < snes.BytesPerTile {
		return o.fail(report, fmt.Errorf("%w: %d bytes", ErrROMTooSmall, len(rom)))
	}

	sum := sha256.Sum256(rom)
	report.ROMHash = hex.EncodeToString(sum[:])
	report.ROMSize = len(rom)

	paramsHash := o.paramsHash()

	// A finished session answers from cache without spawning a single
	// decode.
	resume, err := o.loadCheckpoint(ctx, report, paramsHash)
	if err != nil {
		o.logger.Warn("scan cache unavailable", "error", err)
	}
	if resume != nil && resume.Completed {
		report.AddCandidates(resume.Candidates...)
		report.Resumed = true
		report.Duration = time.Since(report.StartedAt)
		report.State = model.ScanStateCompleted
		o.setState(model.ScanStateCompleted)
		return report, nil
	}

	// The analysis cache is keyed by offset and size only; a previous
	// scan of a different image would answer for this one.
	o.detector.ClearCache()

	ranges := o.detector.OptimizedScanRanges(rom, o.minGapSize)
	total := o.countOffsets(ranges, len(rom))

	var resumeOffset int64 = -1
	if resume != nil {
		report.AddCandidates(resume.Candidates...)
		report.Resumed = true
		resumeOffset = resume.LastOffset
		o.logger.Info("resuming scan", "last_offset", resumeOffset, "cached_candidates", len(resume.Candidates))
	}

	o.logger.Info("scan started",
		"rom", romPath,
		"rom_size", int64(len(rom)),
		"ranges", len(ranges),
		"total_offsets", total,
	)

	probed := 0
	lastProbed := resumeOffset
	if lastProbed < 0 {
		lastProbed = 0
	}
	for i, rng := range ranges {
		// Cooperative cancellation, checked between batches so a
		// running batch always finishes cleanly.
		select {
		case <-ctx.Done():
			return o.cancel(report, paramsHash, lastProbed, ctx.Err())
		default:
		}

		offsets := o.rangeOffsets(rng, len(rom))
		requests := make([]codec.Request, 0, len(offsets))
		for _, off := range offsets {
			if off <= resumeOffset {
				continue
			}
			requests = append(requests, codec.Request{Source: romPath, Offset: off})
		}
		if len(requests) == 0 {
			report.RangesScanned++
			continue
		}

		// A cancellation arriving while a batch is in flight surfaces
		// as the batch error; that is still a cancel, not a failure.
		results, err := o.pool.DecompressBatch(ctx, requests)
		if err != nil {
			if isCancellation(err) {
				return o.cancel(report, paramsHash, lastProbed, err)
			}
			return o.fail(report, fmt.Errorf("range %s: %w", rng, err))
		}
		results, err = o.retryCrashed(ctx, requests, results)
		if err != nil {
			if isCancellation(err) {
				return o.cancel(report, paramsHash, lastProbed, err)
			}
			return o.fail(report, fmt.Errorf("range %s retry: %w", rng, err))
		}

		report.AddCandidates(o.collectCandidates(requests, results)...)
		probed += len(requests)
		report.OffsetsProbed = probed
		report.RangesScanned++

		if len(offsets) > 0 && offsets[len(offsets)-1] > lastProbed {
			lastProbed = offsets[len(offsets)-1]
		}
		o.saveCheckpoint(report, paramsHash, lastProbed, false)
		o.emitProgress(Progress{
			OffsetsProbed:   probed,
			TotalOffsets:    total,
			RangesDone:      i + 1,
			TotalRanges:     len(ranges),
			CandidatesFound: len(report.Candidates),
		})
	}

	o.hintPalettes(report)

	report.Duration = time.Since(report.StartedAt)
	report.State = model.ScanStateCompleted
	o.setState(model.ScanStateCompleted)
	o.saveCheckpoint(report, paramsHash, int64(len(rom)), true)

	o.logger.Info("scan completed",
		"offsets_probed", probed,
		"candidates", len(report.Candidates),
		"duration", report.Duration,
	)
	return report, nil
}

// isCancellation reports whether an error is context cancellation or
// expiry rather than a real decode-pipeline fault.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// cancel marks the report cancelled and checkpoints partial progress so
// a later run resumes instead of starting over.
func (o *Orchestrator) cancel(report *model.ScanReport, paramsHash string, lastOffset int64, err error) (*model.ScanReport, error) {
	report.Duration = time.Since(report.StartedAt)
	report.State = model.ScanStateCancelled
	o.setState(model.ScanStateCancelled)
	o.saveCheckpoint(report, paramsHash, lastOffset, false)
	return report, err
}

// fail marks the report failed and records the error.
func (o *Orchestrator) fail(report *model.ScanReport, err error) (*model.ScanReport, error) {
	report.Duration = time.Since(report.StartedAt)
	report.State = model.ScanStateFailed
	report.Error = err.Error()
	o.setState(model.ScanStateFailed)
	o.logger.Error("scan failed", "rom", report.ROMPath, "error", err)
	return report, err
}

// rangeOffsets produces the candidate offsets for one scan range, padded
// around the boundaries and clamped to the ROM.
func (o *Orchestrator) rangeOffsets(rng region.ScanRange, romSize int) []int64 {
	pad := o.detector.Config().RegionSize * boundaryPadWindows
	start := rng.Start - pad
	if start < 0 {
		start = 0
	}
	end := rng.End + pad
	if end > romSize {
		end = romSize
	}

	offsets := make([]int64, 0, (end-start)/o.stride+1)
	for off := start; off < end; off += o.stride {
		offsets = append(offsets, int64(off))
	}
	return offsets
}

// countOffsets is the total number of decode attempts across all ranges.
func (o *Orchestrator) countOffsets(ranges []region.ScanRange, romSize int) int {
	total := 0
	for _, rng := range ranges {
		total += len(o.rangeOffsets(rng, romSize))
	}
	return total
}

// retryCrashed resubmits, once, the requests whose workers crashed.
// Plain decode failures are final; a crash says nothing about the data.
func (o *Orchestrator) retryCrashed(ctx context.Context, requests []codec.Request, results []codec.Result) ([]codec.Result, error) {
	var crashedIdx []int
	for i, res := range results {
		if res.Crashed {
			crashedIdx = append(crashedIdx, i)
		}
	}
	if len(crashedIdx) == 0 {
		return results, nil
	}

	o.logger.Warn("retrying crashed requests", "count", len(crashedIdx))
	retry := make([]codec.Request, len(crashedIdx))
	for i, idx := range crashedIdx {
		retry[i] = requests[idx]
	}

	retried, err := o.pool.DecompressBatch(ctx, retry)
	if err != nil {
		return nil, err
	}
	for i, idx := range crashedIdx {
		results[idx] = retried[i]
	}
	return results, nil
}

// collectCandidates scores successful decompressions and keeps those
// above the acceptance threshold.
func (o *Orchestrator) collectCandidates(requests []codec.Request, results []codec.Result) []model.SpriteCandidate {
	var candidates []model.SpriteCandidate
	for i, res := range results {
		if !res.Success {
			continue
		}
		// Same strict boundary as Scorer.Accept.
		quality := o.scorer.Score(res.Data)
		if quality <= o.scorer.Threshold() {
			continue
		}
		candidates = append(candidates, model.SpriteCandidate{
			Offset:           requests[i].Offset,
			DecompressedSize: len(res.Data),
			CompressedSize:   res.CompressedSize,
			TileCount:        snes.TileCount(len(res.Data)),
			QualityScore:     quality,
		})
		o.logger.Debug("candidate accepted",
			"offset", requests[i].Offset,
			"size", int64(len(res.Data)),
			"quality", quality,
		)
	}
	return candidates
}

// hintPalettes assigns a PaletteHint to each candidate by majority vote
// of the palettes used by onscreen OAM entries whose tile number falls
// inside the candidate's tile range.
func (o *Orchestrator) hintPalettes(report *model.ScanReport) {
	if o.snapshot == nil {
		return
	}

	active := snes.ActiveOAMEntries(o.snapshot.OAM, o.yCutoff)
	if len(active) == 0 {
		return
	}

	for i := range report.Candidates {
		votes := make(map[int]int)
		for _, entry := range active {
			if entry.Tile < report.Candidates[i].TileCount {
				votes[entry.Palette]++
			}
		}
		best, bestCount := 0, 0
		for palette, count := range votes {
			if count > bestCount || (count == bestCount && palette < best) {
				best, bestCount = palette, count
			}
		}
		if bestCount > 0 {
			hint := best
			report.Candidates[i].PaletteHint = &hint
		}
	}
}

// paramsHash fingerprints the scan parameters that change which offsets
// get probed or which results get kept. Cached sessions are only valid
// for identical parameters.
func (o *Orchestrator) paramsHash() string {
	cfg := o.detector.Config()
	sum := sha256.Sum256(fmt.Appendf(nil, "stride=%d gap=%d region=%d entropy=%g zero=%g pattern=%g unique=%d threshold=%g",
		o.stride, o.minGapSize, cfg.RegionSize,
		cfg.EntropyThreshold, cfg.ZeroThreshold, cfg.PatternThreshold, cfg.MaxUniqueBytes,
		o.scorer.Threshold(),
	))
	return hex.EncodeToString(sum[:])
}

// loadCheckpoint loads cached progress, if a database is attached.
func (o *Orchestrator) loadCheckpoint(ctx context.Context, report *model.ScanReport, paramsHash string) (*cache.Progress, error) {
	if o.db == nil {
		return nil, nil
	}
	return o.db.LoadProgress(ctx, report.ROMHash, paramsHash)
}

// saveCheckpoint persists progress, if a database is attached. Failures
// are logged, not fatal: the scan result itself is unaffected.
func (o *Orchestrator) saveCheckpoint(report *model.ScanReport, paramsHash string, lastOffset int64, completed bool) {
	if o.db == nil {
		return
	}
	// Fresh context: checkpoints should still land when the scan
	// context was cancelled.
	err := o.db.SaveProgress(context.Background(), report.ROMHash, paramsHash, cache.Progress{
		LastOffset: lastOffset,
		Completed:  completed,
		Candidates: report.Candidates,
	})
	if err != nil {
		o.logger.Warn("failed to save scan checkpoint", "last_offset", lastOffset, "error", err)
	}
}
