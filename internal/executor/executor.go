// Package executor runs a batch of named tasks concurrently under a worker
// cap and collects their results by name. A batch timeout bounds how long
// the caller waits, not how long tasks run: work still in flight when the
// timeout fires is reported as timed out and left to finish on its own.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrTimedOut reports a task that was still running when the batch wait
// ended.
var ErrTimedOut = errors.New("executor: task did not finish before the batch timeout")

// Task is one unit of work. Names key the result map, so duplicates
// overwrite each other (last write wins).
type Task struct {
	Name string
	Fn   func(ctx context.Context) (any, error)
}

// Result is the outcome of one task.
type Result struct {
	Name    string
	Value   any
	Err     error
	Elapsed time.Duration
}

// Pool executes task batches with a bounded number of concurrent workers.
// It holds no per-batch state and is safe for concurrent use.
type Pool struct {
	maxWorkers int
	logger     *slog.Logger
}

// New returns a Pool running at most maxWorkers tasks at once. Values below
// one fall back to three workers.
func New(maxWorkers int, logger *slog.Logger) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{maxWorkers: maxWorkers, logger: logger}
}

// Execute runs every task and returns results keyed by task name. The map
// always has an entry per distinct name: tasks cut off by the timeout or by
// ctx carry the corresponding error. A timeout of zero or less means wait
// for everything.
//
// Tasks receive the caller's ctx as-is. Execute never cancels them; a task
// that ignores ctx runs to completion even after its result is discarded.
func (p *Pool) Execute(ctx context.Context, tasks []Task, timeout time.Duration) map[string]Result {
	out := make(map[string]Result, len(tasks))
	if len(tasks) == 0 {
		return out
	}

	workers := p.maxWorkers
	if len(tasks) < workers {
		workers = len(tasks)
	}
	sem := make(chan struct{}, workers)

	// Buffered to the batch size so stragglers finishing after the caller
	// stopped waiting never block.
	results := make(chan Result, len(tasks))

	for _, task := range tasks {
		go func(t Task) {
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- p.run(ctx, t)
		}(task)
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for received := 0; received < len(tasks); received++ {
		select {
		case res := <-results:
			out[res.Name] = res
		case <-timeoutCh:
			p.logger.Warn("executor: batch timed out",
				"timeout", timeout, "finished", received, "total", len(tasks))
			p.fillMissing(out, tasks, ErrTimedOut)
			return out
		case <-ctx.Done():
			p.fillMissing(out, tasks, ctx.Err())
			return out
		}
	}
	return out
}

// run executes a single task, converting panics into errors so one broken
// task cannot take down the batch.
func (p *Pool) run(ctx context.Context, t Task) (res Result) {
	res.Name = t.Name
	start := time.Now()
	defer func() {
		res.Elapsed = time.Since(start)
		if r := recover(); r != nil {
			p.logger.Error("executor: task panicked", "task", t.Name, "panic", r)
			res.Err = fmt.Errorf("executor: task %q panicked: %v", t.Name, r)
			res.Value = nil
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	res.Value, res.Err = t.Fn(ctx)
	return res
}

// fillMissing records cause for every task that has not reported yet.
func (p *Pool) fillMissing(out map[string]Result, tasks []Task, cause error) {
	for _, t := range tasks {
		if _, ok := out[t.Name]; !ok {
			out[t.Name] = Result{
				Name: t.Name,
				Err:  fmt.Errorf("executor: task %q: %w", t.Name, cause),
			}
		}
	}
}
