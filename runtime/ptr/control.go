package ptr

import (
	"sync"

	"github.com/elekiengine/elekicore/internal/tracelog"
)

// control is the per-payload metadata shared by every smart pointer that
// refers to one payload: the payload itself, the strong count, the deleter,
// and the head of the circular weak-reference list.
//
// The block is retired exactly once, after the strong count reaches zero
// and every weak node has had its control pointer nulled. The mutex guards
// the strong count, the payload pointer, and the list links; the deleter is
// never invoked while it is held.
type control[T any] struct {
	mu       sync.Mutex
	payload  *T
	strong   int
	deleter  func(*T)
	weakHead *weakNode[T]
}

func newControl[T any](payload *T, deleter func(*T)) *control[T] {
	return &control[T]{payload: payload, strong: 1, deleter: deleter}
}

// incStrong adds one owner. Returns false when the payload is already gone,
// which callers treat as a failed clone.
func (cb *control[T]) incStrong() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.strong == 0 {
		return false
	}
	cb.strong++
	return true
}

// decStrong removes one owner. When the count hits zero it detaches every
// weak node (nulling its control pointer so later dereferences observe nil)
// and then runs the deleter outside the lock.
func (cb *control[T]) decStrong() {
	cb.mu.Lock()
	if cb.strong == 0 {
		cb.mu.Unlock()
		tracelog.Errorf("ptr: drop on already-released owner")
		return
	}
	cb.strong--
	if cb.strong > 0 {
		cb.mu.Unlock()
		return
	}

	payload := cb.payload
	deleter := cb.deleter
	cb.payload = nil
	cb.deleter = nil

	// Notify every outstanding weak reference before the block is retired.
	if head := cb.weakHead; head != nil {
		n := head
		for {
			next := n.next
			n.cb.Store(nil)
			n.prev, n.next = nil, nil
			if next == head {
				break
			}
			n = next
		}
		cb.weakHead = nil
	}
	cb.mu.Unlock()

	if deleter != nil && payload != nil {
		deleter(payload)
	}
}

// get returns the payload while at least one owner is alive.
func (cb *control[T]) get() (*T, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.strong == 0 || cb.payload == nil {
		return nil, false
	}
	return cb.payload, true
}

// spliceWeak links n into the circular list, before the current head.
// Caller must not already hold cb.mu.
func (cb *control[T]) spliceWeak(n *weakNode[T]) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.strong == 0 {
		// Owner already gone; the weak reference starts out detached.
		n.cb.Store(nil)
		return
	}
	if cb.weakHead == nil {
		n.prev, n.next = n, n
		cb.weakHead = n
		return
	}
	head := cb.weakHead
	n.prev = head.prev
	n.next = head
	head.prev.next = n
	head.prev = n
}

// unlinkWeak removes n from the circular list. Safe to call after the
// owner has already detached the list; the node's nulled control pointer
// makes that case a no-op at the call site.
func (cb *control[T]) unlinkWeak(n *weakNode[T]) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if n.cb.Load() != cb {
		// Detached by the owner between the caller's load and this lock.
		return
	}
	if n.next == n {
		cb.weakHead = nil
	} else {
		n.prev.next = n.next
		n.next.prev = n.prev
		if cb.weakHead == n {
			cb.weakHead = n.next
		}
	}
	n.prev, n.next = nil, nil
	n.cb.Store(nil)
}

// weakCount reports the number of live weak references, for tests.
func (cb *control[T]) weakCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.weakHead == nil {
		return 0
	}
	count := 1
	for n := cb.weakHead.next; n != cb.weakHead; n = n.next {
		count++
	}
	return count
}
