package codec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

// worker is one logical channel to a codec process. Implementations are
// not safe for concurrent use; the pool serializes access per slot.
type worker interface {
	// decompress runs one request to completion or liveness timeout.
	// A dead or hung worker returns an error wrapping ErrWorkerCrashed
	// and must not be reused.
	decompress(ctx context.Context, req Request) (Result, error)

	// close shuts the worker down, forcibly if necessary. Idempotent.
	close() error
}

// workerFactory spawns a fresh worker for a pool slot.
type workerFactory func(logger *slog.Logger) (worker, error)

// deadWorker fills a pool slot when a respawn fails. Every request
// through it reports a crash, which prompts another spawn attempt.
type deadWorker struct {
	err error
}

func (d deadWorker) decompress(context.Context, Request) (Result, error) {
	return Result{}, fmt.Errorf("%w: slot has no process: %v", ErrWorkerCrashed, d.err)
}

func (d deadWorker) close() error { return nil }

// processWorker drives one persistent external codec process over
// stdin/stdout pipes.
type processWorker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// workerStopTimeout is how long close waits for a clean exit before
// killing the process.
const workerStopTimeout = 2 * time.Second

// startProcessWorker launches the codec tool and wires up its pipes.
func startProcessWorker(path string, args []string, logger *slog.Logger) (worker, error) {
	cmd := exec.Command(path, args...) //nolint:gosec // Codec path comes from operator configuration
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open codec stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open codec stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start codec process: %w", err)
	}

	logger.Debug("codec worker started", "pid", cmd.Process.Pid)

	return &processWorker{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		logger: logger,
	}, nil
}

// decompress sends the request and waits for the response, bounded by the
// context deadline. Pipes have no deadlines of their own, so the exchange
// runs in a goroutine and a timeout kills the process; the abandoned
// goroutine then unblocks on the closed pipe.
func (w *processWorker) decompress(ctx context.Context, req Request) (Result, error) {
	type exchange struct {
		result Result
		err    error
	}
	done := make(chan exchange, 1)

	go func() {
		if err := writeDecompressRequest(w.stdin, req); err != nil {
			done <- exchange{err: err}
			return
		}
		result, err := readResult(w.stdout)
		done <- exchange{result: result, err: err}
	}()

	select {
	case ex := <-done:
		if ex.err != nil {
			// Pipe or protocol failure means the process state is
			// unknown; condemn the worker.
			w.kill()
			return Result{}, fmt.Errorf("%w: %v", ErrWorkerCrashed, ex.err)
		}
		return ex.result, nil

	case <-ctx.Done():
		w.logger.Warn("codec worker unresponsive, killing",
			"pid", w.cmd.Process.Pid,
			"offset", req.Offset,
		)
		w.kill()
		return Result{}, fmt.Errorf("%w: %v", ErrWorkerCrashed, ctx.Err())
	}
}

// close asks the worker to exit, waits briefly, and kills stragglers.
// Safe to call multiple times and after a kill.
func (w *processWorker) close() error {
	w.closeOnce.Do(func() {
		// Best effort: a crashed worker has a broken pipe already.
		_ = writeQuitRequest(w.stdin)
		_ = w.stdin.Close()

		waited := make(chan error, 1)
		go func() { waited <- w.cmd.Wait() }()

		select {
		case err := <-waited:
			w.closeErr = err
		case <-time.After(workerStopTimeout):
			w.logger.Warn("codec worker did not exit, killing", "pid", w.cmd.Process.Pid)
			_ = w.cmd.Process.Kill()
			w.closeErr = <-waited
		}
	})
	return w.closeErr
}

// kill terminates the process immediately and reaps it.
func (w *processWorker) kill() {
	_ = w.cmd.Process.Kill()
	_ = w.close()
}
