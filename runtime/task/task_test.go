package task

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJoinReturnsResult(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	tk := SpawnOn(p, Pooled, func() int { return 41 + 1 })
	require.Equal(t, 42, tk.Join())
	require.True(t, tk.Finished())
}

func TestJoinStealsQueuedTaskInline(t *testing.T) {
	// One worker, blocked on a gate, so the second task must still be
	// queued when Join arrives, so Join has to run it on this goroutine.
	p := NewPool(1)
	defer p.Close()

	gate := make(chan struct{})
	blocker := SpawnOn(p, Pooled, func() struct{} {
		<-gate
		return struct{}{}
	})

	var ran atomic.Int32
	stealme := SpawnOn(p, Pooled, func() int {
		ran.Add(1)
		return 7
	})

	require.Equal(t, 7, stealme.Join())
	require.Equal(t, int32(1), ran.Load(), "steal must run the closure exactly once")

	// Joining again must not run the closure a second time.
	require.Equal(t, 7, stealme.Join())
	require.Equal(t, int32(1), ran.Load())

	close(gate)
	blocker.Join()
}

func TestJoinWaitsForRunningTask(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	started := make(chan struct{})
	gate := make(chan struct{})
	tk := SpawnOn(p, Pooled, func() int {
		close(started)
		<-gate
		return 9
	})

	<-started // task is now running on a worker, not stealable
	require.False(t, tk.Finished())

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(gate)
	}()
	require.Equal(t, 9, tk.Join())
	require.True(t, tk.Finished())
}

func TestNestedEnqueueAndJoin(t *testing.T) {
	// A task that spawns and joins its own descendants must complete even
	// when the pool has a single worker: every nested Join either steals
	// inline or waits on work that can make progress.
	p := NewPool(1)
	defer p.Close()

	var depth func(n int) int
	depth = func(n int) int {
		if n == 0 {
			return 0
		}
		child := SpawnOn(p, Pooled, func() int { return depth(n - 1) })
		return child.Join() + 1
	}

	root := SpawnOn(p, Pooled, func() int { return depth(5) })
	require.Equal(t, 5, root.Join())
}

func TestManyTasksAllComplete(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	const n = 200
	var sum atomic.Int64
	tasks := make([]*Task[int], n)
	for i := 0; i < n; i++ {
		i := i
		tasks[i] = SpawnOn(p, Pooled, func() int {
			sum.Add(1)
			return i
		})
	}
	for i, tk := range tasks {
		require.Equal(t, i, tk.Join())
	}
	require.Equal(t, int64(n), sum.Load())
	require.Equal(t, 0, p.queueLen())
}

func TestIndependentMode(t *testing.T) {
	tk := SpawnOn(Shared(), Independent, func() string { return "done" })
	require.Equal(t, "done", tk.Join())
	require.True(t, tk.Finished())
	require.Equal(t, "done", tk.Join())
}

func TestSpawnOnClosedPoolRunsInline(t *testing.T) {
	p := NewPool(1)
	p.Close()

	tk := SpawnOn(p, Pooled, func() int { return 3 })
	require.True(t, tk.Finished())
	require.Equal(t, 3, tk.Join())
}

func TestSpawnCtx(t *testing.T) {
	tk, err := SpawnCtx(context.Background(), func() int { return 1 })
	require.NoError(t, err)
	require.Equal(t, 1, tk.Join())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tk, err = SpawnCtx(ctx, func() int { return 2 })
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, tk)
}

func TestConcurrentJoiners(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	tk := SpawnOn(p, Pooled, func() int { return 11 })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.Equal(t, 11, tk.Join())
		}()
	}
	wg.Wait()
}
