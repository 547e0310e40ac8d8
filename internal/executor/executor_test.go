package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinsa-ai/shinsa/internal/testutil"
)

func TestPool_ExecuteAll(t *testing.T) {
	p := New(3, testutil.TestLogger())

	out := p.Execute(context.Background(), []Task{
		{Name: "quality", Fn: func(context.Context) (any, error) { return 8.5, nil }},
		{Name: "compliance", Fn: func(context.Context) (any, error) { return "clean", nil }},
		{Name: "engagement", Fn: func(context.Context) (any, error) { return 7, nil }},
	}, 0)

	require.Len(t, out, 3)
	assert.Equal(t, 8.5, out["quality"].Value)
	assert.Equal(t, "clean", out["compliance"].Value)
	assert.Equal(t, 7, out["engagement"].Value)
	for name, res := range out {
		assert.NoError(t, res.Err, name)
		assert.Equal(t, name, res.Name)
	}
}

func TestPool_ExecuteEmpty(t *testing.T) {
	p := New(3, testutil.TestLogger())

	out := p.Execute(context.Background(), nil, time.Second)
	assert.Empty(t, out)
}

func TestPool_WorkerCap(t *testing.T) {
	p := New(2, testutil.TestLogger())

	var running, peak atomic.Int32
	task := Task{Name: "", Fn: func(context.Context) (any, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return nil, nil
	}}

	tasks := make([]Task, 4)
	for i := range tasks {
		tasks[i] = task
		tasks[i].Name = string(rune('a' + i))
	}
	p.Execute(context.Background(), tasks, 0)

	assert.LessOrEqual(t, peak.Load(), int32(2), "worker cap exceeded")
}

func TestPool_TasksRunConcurrently(t *testing.T) {
	p := New(3, testutil.TestLogger())

	// Each task blocks until all three have started, so the batch can only
	// complete inside the timeout if the pool really runs them in parallel.
	var started sync.WaitGroup
	started.Add(3)
	tasks := make([]Task, 3)
	for i := range tasks {
		tasks[i] = Task{Name: string(rune('a' + i)), Fn: func(context.Context) (any, error) {
			started.Done()
			started.Wait()
			return nil, nil
		}}
	}

	out := p.Execute(context.Background(), tasks, 2*time.Second)
	require.Len(t, out, 3)
	for name, res := range out {
		assert.NoError(t, res.Err, name)
	}
}

func TestPool_TaskError(t *testing.T) {
	p := New(3, testutil.TestLogger())

	errEval := errors.New("model unreachable")
	out := p.Execute(context.Background(), []Task{
		{Name: "quality", Fn: func(context.Context) (any, error) { return nil, errEval }},
		{Name: "compliance", Fn: func(context.Context) (any, error) { return "ok", nil }},
	}, 0)

	assert.ErrorIs(t, out["quality"].Err, errEval)
	assert.NoError(t, out["compliance"].Err)
	assert.Equal(t, "ok", out["compliance"].Value)
}

func TestPool_PanicIsolation(t *testing.T) {
	p := New(3, testutil.TestLogger())

	out := p.Execute(context.Background(), []Task{
		{Name: "broken", Fn: func(context.Context) (any, error) { panic("nil descriptor") }},
		{Name: "fine", Fn: func(context.Context) (any, error) { return 9.0, nil }},
	}, 0)

	require.Error(t, out["broken"].Err)
	assert.Contains(t, out["broken"].Err.Error(), "panicked")
	assert.Contains(t, out["broken"].Err.Error(), "nil descriptor")
	assert.Nil(t, out["broken"].Value)
	assert.Equal(t, 9.0, out["fine"].Value)
}

func TestPool_TimeoutReportsStragglers(t *testing.T) {
	p := New(3, testutil.TestLogger())

	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	out := p.Execute(context.Background(), []Task{
		{Name: "fast", Fn: func(context.Context) (any, error) { return "done", nil }},
		{Name: "stuck", Fn: func(context.Context) (any, error) {
			<-release
			return "late", nil
		}},
	}, 50*time.Millisecond)

	assert.Less(t, time.Since(start), time.Second, "timeout should bound the wait")
	assert.Equal(t, "done", out["fast"].Value)
	require.Error(t, out["stuck"].Err)
	assert.ErrorIs(t, out["stuck"].Err, ErrTimedOut)
	assert.Nil(t, out["stuck"].Value)
}

func TestPool_ContextCancelled(t *testing.T) {
	p := New(3, testutil.TestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := p.Execute(ctx, []Task{
		{Name: "quality", Fn: func(context.Context) (any, error) { return 1.0, nil }},
		{Name: "engagement", Fn: func(context.Context) (any, error) { return 2.0, nil }},
	}, time.Second)

	require.Len(t, out, 2)
	for name, res := range out {
		assert.ErrorIs(t, res.Err, context.Canceled, name)
	}
}

func TestPool_DuplicateNamesLastWriteWins(t *testing.T) {
	p := New(1, testutil.TestLogger())

	out := p.Execute(context.Background(), []Task{
		{Name: "quality", Fn: func(context.Context) (any, error) { return "first", nil }},
		{Name: "quality", Fn: func(context.Context) (any, error) { return "second", nil }},
	}, 0)

	require.Len(t, out, 1)
	assert.Contains(t, []any{"first", "second"}, out["quality"].Value)
}

func TestPool_ElapsedRecorded(t *testing.T) {
	p := New(1, testutil.TestLogger())

	out := p.Execute(context.Background(), []Task{
		{Name: "slowish", Fn: func(context.Context) (any, error) {
			time.Sleep(10 * time.Millisecond)
			return nil, nil
		}},
	}, 0)

	assert.GreaterOrEqual(t, out["slowish"].Elapsed, 10*time.Millisecond)
}
