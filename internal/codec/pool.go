package codec

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pool defaults.
const (
	// DefaultRequestTimeout is the per-request liveness timeout. The
	// codec contract requires sub-millisecond failure on garbage input,
	// so a worker still silent after this long is hung.
	DefaultRequestTimeout = 5 * time.Second

	// maxDefaultWorkers caps the CPU-derived default pool size; decode
	// throughput flattens past this point while process overhead keeps
	// growing.
	maxDefaultWorkers = 8
)

// Request identifies one speculative decode attempt: a source file and a
// byte offset within it.
type Request struct {
	// Source is the path of the ROM image to decode from.
	Source string

	// Offset is the byte offset of the suspected compressed stream.
	Offset int64
}

// Result is the outcome of one decode attempt. Data is non-empty iff
// Success is true.
type Result struct {
	// Success reports whether the codec produced output.
	Success bool

	// Data is the decompressed payload.
	Data []byte

	// CompressedSize is the number of source bytes the codec consumed,
	// when known.
	CompressedSize int

	// FailureReason describes why the decode failed.
	FailureReason string

	// Crashed reports that the failure came from a worker crash or
	// liveness timeout rather than a clean codec rejection. Callers may
	// retry such requests once; clean failures are final.
	Crashed bool
}

// Pool is a fixed-size pool of persistent codec worker processes.
//
// All methods are safe for concurrent use. The pool holds no result
// state: identical requests after a restart hit the external tool again.
type Pool struct {
	factory workerFactory
	size    int
	timeout time.Duration
	logger  *slog.Logger

	// slots hands out idle workers; capacity == size.
	slots chan worker

	// stop is closed by Shutdown so blocked slot acquirers fail fast.
	stop chan struct{}

	// mu guards closed and live. live tracks every worker not yet
	// closed, including checked-out ones, so Shutdown can guarantee
	// zero leaked processes.
	mu     sync.Mutex
	closed bool
	live   map[worker]struct{}
}

// Option configures a Pool.
type Option func(*Pool)

// WithWorkers sets the number of worker processes.
// Non-positive values keep the default.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithRequestTimeout sets the per-request liveness timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// NewPool creates a pool running the codec tool at the given path. The
// path is resolved like a shell would; a missing or non-executable tool
// fails construction with ErrCodecUnavailable. Extra arguments are passed
// to every worker process ahead of the protocol handshake.
func NewPool(codecPath string, codecArgs []string, opts ...Option) (*Pool, error) {
	resolved, err := exec.LookPath(codecPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCodecUnavailable, codecPath, err)
	}

	p, err := newPool(func(logger *slog.Logger) (worker, error) {
		return startProcessWorker(resolved, codecArgs, logger)
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodecUnavailable, err)
	}
	return p, nil
}

// newPool builds a pool over an arbitrary worker factory and eagerly
// spawns every slot, so construction surfaces a broken codec immediately.
func newPool(factory workerFactory, opts ...Option) (*Pool, error) {
	p := &Pool{
		factory: factory,
		size:    min(runtime.NumCPU(), maxDefaultWorkers),
		timeout: DefaultRequestTimeout,
		live:    make(map[worker]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.slots = make(chan worker, p.size)
	p.stop = make(chan struct{})

	for range p.size {
		w, err := factory(p.logger)
		if err != nil {
			_ = p.Shutdown()
			return nil, fmt.Errorf("spawn worker: %w", err)
		}
		p.track(w)
		p.slots <- w
	}

	p.logger.Debug("codec pool ready", "workers", p.size)
	return p, nil
}

// Size returns the number of worker slots.
func (p *Pool) Size() int {
	return p.size
}

// Decompress runs a single blocking decode attempt.
func (p *Pool) Decompress(ctx context.Context, source string, offset int64) (Result, error) {
	results, err := p.DecompressBatch(ctx, []Request{{Source: source, Offset: offset}})
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// DecompressBatch dispatches all requests across the worker slots and
// returns results index-aligned with the input regardless of completion
// order. Identical requests within the batch are sent to the external
// tool once and fanned out to every requesting index.
//
// Decode failures come back as Result values; the returned error is
// non-nil only for pool-level conditions (closed pool, cancelled
// context). On cancellation, already-dispatched requests finish and the
// rest are marked failed.
func (p *Pool) DecompressBatch(ctx context.Context, requests []Request) ([]Result, error) {
	results := make([]Result, len(requests))
	if len(requests) == 0 {
		return results, nil
	}
	if p.isClosed() {
		for i := range results {
			results[i] = Result{FailureReason: ErrPoolClosed.Error()}
		}
		return results, ErrPoolClosed
	}

	// In-flight deduplication: duplicate external-process invocations
	// are forbidden even though duplicate cache lookups elsewhere are
	// tolerated.
	indexes := make(map[Request][]int, len(requests))
	order := make([]Request, 0, len(requests))
	for i, req := range requests {
		if _, seen := indexes[req]; !seen {
			order = append(order, req)
		}
		indexes[req] = append(indexes[req], i)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, req := range order {
		g.Go(func() error {
			var w worker
			select {
			case w = <-p.slots:
			case <-p.stop:
				return ErrPoolClosed
			case <-gctx.Done():
				return gctx.Err()
			}

			result := p.runOn(gctx, w, req)

			mu.Lock()
			for _, i := range indexes[req] {
				results[i] = result
			}
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		// Cancelled mid-batch: mark requests that never ran.
		mu.Lock()
		for i := range results {
			if !results[i].Success && results[i].FailureReason == "" {
				results[i] = Result{FailureReason: err.Error()}
			}
		}
		mu.Unlock()
	}
	return results, err
}

// runOn executes one request on a checked-out worker and returns the slot
// (or its replacement) to the pool.
func (p *Pool) runOn(ctx context.Context, w worker, req Request) Result {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	result, err := w.decompress(reqCtx, req)
	cancel()

	if err == nil {
		p.release(w)
		return result
	}

	// The worker is gone. Mark this request failed and respawn into the
	// same slot; unrelated in-flight requests are untouched.
	p.logger.Warn("codec worker lost",
		"offset", req.Offset,
		"error", err,
	)
	p.discard(w)
	p.respawn()

	return Result{FailureReason: err.Error(), Crashed: true}
}

// release returns a healthy worker to the slot channel, closing it
// instead when the pool shut down while it was checked out.
func (p *Pool) release(w worker) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		p.discard(w)
		return
	}
	p.slots <- w
}

// discard closes a worker and forgets it.
func (p *Pool) discard(w worker) {
	p.mu.Lock()
	delete(p.live, w)
	p.mu.Unlock()
	_ = w.close()
}

// respawn refills one slot after a crash. A failed spawn fills the slot
// with a dead placeholder instead of shrinking the pool, so slot capacity
// stays invariant and the next request through that slot retries the
// spawn.
func (p *Pool) respawn() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	w, err := p.factory(p.logger)
	if err != nil {
		p.logger.Error("codec worker respawn failed", "error", err)
		p.release(deadWorker{err: err})
		return
	}
	p.track(w)

	p.mu.Lock()
	if p.closed {
		delete(p.live, w)
		p.mu.Unlock()
		_ = w.close()
		return
	}
	p.mu.Unlock()
	p.slots <- w
}

// track records a live worker for Shutdown.
func (p *Pool) track(w worker) {
	p.mu.Lock()
	p.live[w] = struct{}{}
	p.mu.Unlock()
}

// isClosed reports whether Shutdown ran.
func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Shutdown stops every worker process: a quit message first, then a
// bounded wait, then a kill for stragglers. It closes checked-out workers
// too, so no child process survives it. Shutdown is idempotent and safe
// to call from any goroutine; in-flight requests on closed workers fail
// as crashes without respawn.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.stop)
	workers := make([]worker, 0, len(p.live))
	for w := range p.live {
		workers = append(workers, w)
	}
	p.live = make(map[worker]struct{})
	p.mu.Unlock()

	var firstErr error
	for _, w := range workers {
		if err := w.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	// Drain idle slots so blocked acquirers fail fast instead of
	// waiting forever.
	for {
		select {
		case <-p.slots:
		default:
			p.logger.Debug("codec pool shut down", "workers_stopped", len(workers))
			return firstErr
		}
	}
}
