package fairlock

import (
	"sync"
	"sync/atomic"
)

type waiterRole uint8

const (
	roleReader waiterRole = iota
	roleWriter
)

func (r waiterRole) String() string {
	if r == roleWriter {
		return "writer"
	}
	return "reader"
}

// waiter is the queue node of one blocked goroutine.
//
// A goroutine sits in at most one queue at a time, so a record taken from
// waiterPool is never shared. next is rewritten by the queue under the
// owning lock's mutex.
type waiter struct {
	next *waiter
	sig  chan struct{}
	id   uint64
	role waiterRole
}

var waiterIDs atomic.Uint64

// waiterPool caches waiter records across lock operations. Goroutines have
// no thread-local storage; the pool is the runtime's per-P cache and gives
// the same reuse without a keyed registry.
var waiterPool = sync.Pool{New: func() any {
	return &waiter{
		sig: make(chan struct{}, 1),
		id:  waiterIDs.Add(1),
	}
}}

func getWaiter(role waiterRole) *waiter {
	w := waiterPool.Get().(*waiter)
	w.role = role
	w.next = nil
	return w
}

func putWaiter(w *waiter) {
	w.next = nil
	waiterPool.Put(w)
}

// wake hands a token to w. A token already pending is enough: the waiter
// re-checks its position every time it wakes.
func (w *waiter) wake() {
	select {
	case w.sig <- struct{}{}:
	default:
	}
}

func (w *waiter) wait() {
	<-w.sig
}

// drain discards a token that arrived after the waiter already saw its
// grant. Must be called once w is off every queue.
func (w *waiter) drain() {
	select {
	case <-w.sig:
	default:
	}
}
