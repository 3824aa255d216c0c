package codec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeWorker is a scripted in-process worker for pool tests.
type fakeWorker struct {
	mu       sync.Mutex
	closed   bool
	handle   func(req Request) (Result, error)
	calls    *atomic.Int64
	closeLog *atomic.Int64
}

func (f *fakeWorker) decompress(ctx context.Context, req Request) (Result, error) {
	if f.calls != nil {
		f.calls.Add(1)
	}
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("%w: %v", ErrWorkerCrashed, ctx.Err())
	default:
	}
	return f.handle(req)
}

func (f *fakeWorker) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		if f.closeLog != nil {
			f.closeLog.Add(1)
		}
	}
	return nil
}

func (f *fakeWorker) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// newFakePool builds a pool whose workers all share one handler.
func newFakePool(t *testing.T, workers int, handle func(req Request) (Result, error)) (*Pool, *atomic.Int64) {
	t.Helper()

	var spawns atomic.Int64
	pool, err := newPool(func(*slog.Logger) (worker, error) {
		spawns.Add(1)
		return &fakeWorker{handle: handle}, nil
	}, WithWorkers(workers))
	if err != nil {
		t.Fatalf("newPool failed: %v", err)
	}
	t.Cleanup(func() { _ = pool.Shutdown() })

	return pool, &spawns
}

// TestDecompressBatchOrdering tests the index-alignment guarantee.
func TestDecompressBatchOrdering(t *testing.T) {
	t.Parallel()

	// The handler makes low offsets slow, so later requests finish
	// first in wall-clock time.
	pool, _ := newFakePool(t, 4, func(req Request) (Result, error) {
		if req.Offset == 0 {
			time.Sleep(50 * time.Millisecond)
		}
		return Result{Success: true, Data: []byte{byte(req.Offset)}}, nil
	})

	requests := []Request{
		{Source: "rom", Offset: 0},
		{Source: "rom", Offset: 1},
		{Source: "rom", Offset: 2},
	}
	results, err := pool.DecompressBatch(context.Background(), requests)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	for i, result := range results {
		if !result.Success {
			t.Fatalf("result %d failed: %s", i, result.FailureReason)
		}
		if result.Data[0] != byte(i) {
			t.Errorf("result %d holds data for offset %d: not index-aligned", i, result.Data[0])
		}
	}
}

// TestDecompressBatchValidOffsets tests a mixed batch through a small pool.
func TestDecompressBatchValidOffsets(t *testing.T) {
	t.Parallel()

	valid := map[int64]bool{2: true, 5: true, 8: true}
	pool, _ := newFakePool(t, 2, func(req Request) (Result, error) {
		if valid[req.Offset] {
			return Result{Success: true, Data: make([]byte, 512), CompressedSize: 128}, nil
		}
		return Result{FailureReason: "no compressed data at offset"}, nil
	})

	requests := make([]Request, 10)
	for i := range requests {
		requests[i] = Request{Source: "rom", Offset: int64(i)}
	}

	results, err := pool.DecompressBatch(context.Background(), requests)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}

	for i, result := range results {
		want := valid[int64(i)]
		if result.Success != want {
			t.Errorf("offset %d: expected success=%v, got %v (%s)",
				i, want, result.Success, result.FailureReason)
		}
		if !result.Success && len(result.Data) != 0 {
			t.Errorf("offset %d: failed result carries data", i)
		}
	}
}

// TestDecompressBatchDeduplication tests in-flight request dedup.
func TestDecompressBatchDeduplication(t *testing.T) {
	t.Parallel()

	var invocations atomic.Int64
	pool, _ := newFakePool(t, 4, func(req Request) (Result, error) {
		invocations.Add(1)
		return Result{Success: true, Data: []byte{0xAB}}, nil
	})

	requests := []Request{
		{Source: "rom", Offset: 7},
		{Source: "rom", Offset: 7},
		{Source: "rom", Offset: 9},
		{Source: "rom", Offset: 7},
	}
	results, err := pool.DecompressBatch(context.Background(), requests)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if got := invocations.Load(); got != 2 {
		t.Errorf("expected 2 codec invocations for 2 unique requests, got %d", got)
	}
	for i, result := range results {
		if !result.Success {
			t.Errorf("result %d not fanned out: %s", i, result.FailureReason)
		}
	}
}

// TestWorkerCrashRespawn tests crash isolation and slot respawn.
func TestWorkerCrashRespawn(t *testing.T) {
	t.Parallel()

	pool, spawns := newFakePool(t, 2, func(req Request) (Result, error) {
		if req.Offset == 3 {
			return Result{}, fmt.Errorf("%w: process exited", ErrWorkerCrashed)
		}
		return Result{Success: true, Data: []byte{0x01}}, nil
	})

	requests := make([]Request, 6)
	for i := range requests {
		requests[i] = Request{Source: "rom", Offset: int64(i)}
	}
	results, err := pool.DecompressBatch(context.Background(), requests)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	for i, result := range results {
		if i == 3 {
			if result.Success {
				t.Error("expected crashing request marked failed")
			}
			if !result.Crashed {
				t.Error("expected crash flagged on result")
			}
			continue
		}
		if !result.Success {
			t.Errorf("unrelated request %d affected by crash: %s", i, result.FailureReason)
		}
		if result.Crashed {
			t.Errorf("request %d wrongly flagged as crashed", i)
		}
	}

	// Initial 2 workers plus 1 respawn for the lost slot.
	if got := spawns.Load(); got != 3 {
		t.Errorf("expected 3 spawns (2 initial + 1 respawn), got %d", got)
	}
}

// TestShutdown tests process cleanup guarantees.
func TestShutdown(t *testing.T) {
	t.Parallel()

	t.Run("closes every worker", func(t *testing.T) {
		t.Parallel()

		var closes atomic.Int64
		var workers []*fakeWorker
		var mu sync.Mutex

		pool, err := newPool(func(*slog.Logger) (worker, error) {
			w := &fakeWorker{
				handle:   func(Request) (Result, error) { return Result{Success: true, Data: []byte{1}}, nil },
				closeLog: &closes,
			}
			mu.Lock()
			workers = append(workers, w)
			mu.Unlock()
			return w, nil
		}, WithWorkers(3))
		if err != nil {
			t.Fatalf("newPool failed: %v", err)
		}

		if err := pool.Shutdown(); err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}

		if got := closes.Load(); got != 3 {
			t.Errorf("expected 3 workers closed, got %d", got)
		}
		for i, w := range workers {
			if !w.isClosed() {
				t.Errorf("worker %d still live after shutdown", i)
			}
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		pool, _ := newFakePool(t, 2, func(Request) (Result, error) {
			return Result{Success: true, Data: []byte{1}}, nil
		})

		if err := pool.Shutdown(); err != nil {
			t.Fatalf("first shutdown failed: %v", err)
		}
		if err := pool.Shutdown(); err != nil {
			t.Fatalf("second shutdown failed: %v", err)
		}
	})

	t.Run("requests after shutdown short-circuit", func(t *testing.T) {
		t.Parallel()

		pool, _ := newFakePool(t, 2, func(Request) (Result, error) {
			return Result{Success: true, Data: []byte{1}}, nil
		})
		_ = pool.Shutdown()

		_, err := pool.Decompress(context.Background(), "rom", 0)
		if !errors.Is(err, ErrPoolClosed) {
			t.Errorf("expected ErrPoolClosed, got %v", err)
		}
	})
}

// TestDecompressBatchCancellation tests cooperative cancellation.
func TestDecompressBatchCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	occupied := make(chan struct{})
	pool, _ := newFakePool(t, 1, func(req Request) (Result, error) {
		if req.Offset == -1 {
			close(occupied)
			<-release
		}
		return Result{Success: true, Data: []byte{1}}, nil
	})

	// Occupy the only worker with a blocking request so the batch is
	// provably still queued when the cancellation fires.
	blockerDone := make(chan struct{})
	go func() {
		defer close(blockerDone)
		_, _ = pool.Decompress(context.Background(), "rom", -1)
	}()
	<-occupied

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var results []Result
	var batchErr error
	go func() {
		defer close(done)
		requests := make([]Request, 4)
		for i := range requests {
			requests[i] = Request{Source: "rom", Offset: int64(i)}
		}
		results, batchErr = pool.DecompressBatch(ctx, requests)
	}()

	// Let the batch requests queue behind the occupied worker, then
	// cancel and unblock it.
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(release)
	<-done
	<-blockerDone

	if batchErr == nil {
		t.Fatal("expected batch error after cancellation")
	}
	if len(results) != 4 {
		t.Fatalf("expected full result slice, got %d", len(results))
	}
	for i, result := range results[1:] {
		if result.Success {
			t.Errorf("result %d succeeded after cancellation", i+1)
		}
		if result.FailureReason == "" {
			t.Errorf("result %d missing failure reason", i+1)
		}
	}
}

// TestNewPoolSpawnFailure tests construction against a broken factory.
func TestNewPoolSpawnFailure(t *testing.T) {
	t.Parallel()

	spawnErr := errors.New("exec format error")
	_, err := newPool(func(*slog.Logger) (worker, error) {
		return nil, spawnErr
	}, WithWorkers(2))

	if !errors.Is(err, spawnErr) {
		t.Errorf("expected spawn error surfaced, got %v", err)
	}
}

// TestNewPoolMissingTool tests the public constructor against a missing
// codec binary.
func TestNewPoolMissingTool(t *testing.T) {
	t.Parallel()

	_, err := NewPool("definitely-not-a-real-codec-tool", nil)
	if !errors.Is(err, ErrCodecUnavailable) {
		t.Errorf("expected ErrCodecUnavailable, got %v", err)
	}
}
