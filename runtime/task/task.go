package task

import (
	"context"
	"sync"
	"sync/atomic"
)

// Mode selects how a task is scheduled.
type Mode int

const (
	// Pooled runs the task on the shared FIFO worker pool. Default.
	Pooled Mode = iota
	// Independent runs the task on its own dedicated goroutine, joined
	// directly rather than through the pool's finished set.
	Independent
)

// Task is a handle to one unit of parallel work producing an R. A task is
// constructed and scheduled in one step by [Spawn] and its variants, and
// runs exactly once: either on a worker, on a dedicated goroutine, or
// inline on the first goroutine to call Join before a worker picked it up.
type Task[R any] struct {
	id     uint64
	pool   *Pool
	mode   Mode
	result R

	done   chan struct{} // Independent mode completion
	once   sync.Once     // first Join wins; later Joins are no-ops
	joined atomic.Bool
}

// Spawn schedules fn on the shared pool.
func Spawn[R any](fn func() R) *Task[R] {
	return SpawnOn(Shared(), Pooled, fn)
}

// SpawnCtx schedules fn on the shared pool unless ctx is already done, in
// which case nothing is enqueued and the context error is returned. A task
// that has started is never cancelled; the context gates admission only.
func SpawnCtx[R any](ctx context.Context, fn func() R) (*Task[R], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Spawn(fn), nil
}

// SpawnOn schedules fn on the given pool in the given mode.
func SpawnOn[R any](p *Pool, mode Mode, fn func() R) *Task[R] {
	t := &Task[R]{id: newID(), pool: p, mode: mode}

	if mode == Independent {
		t.done = make(chan struct{})
		go func() {
			t.result = fn()
			close(t.done)
		}()
		return t
	}

	if !p.add(t.id, func() { t.result = fn() }) {
		// Pool already closed: run on the caller so the task still
		// happens-before its Join.
		t.result = fn()
		t.joined.Store(true)
	}
	return t
}

// Join waits for the task and returns its result. If the task is still
// queued, the calling goroutine steals it and runs it inline. This is
// what lets a worker join its own descendants without deadlocking the
// pool. Calling Join again returns the same result without waiting.
func (t *Task[R]) Join() R {
	t.once.Do(func() {
		if t.joined.Load() {
			return
		}
		if t.mode == Independent {
			<-t.done
		} else {
			t.pool.runOrWait(t.id)
		}
		t.joined.Store(true)
	})
	return t.result
}

// Finished reports whether the task has completed, without waiting. A
// joined task always reports true, even after its finished-set entry was
// consumed by the Join.
func (t *Task[R]) Finished() bool {
	if t.joined.Load() {
		return true
	}
	if t.mode == Independent {
		select {
		case <-t.done:
			return true
		default:
			return false
		}
	}
	return t.pool.isFinished(t.id)
}
