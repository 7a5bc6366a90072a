package fairlock

import (
	"sync"
	"sync/atomic"
)

// FairRWLock is a reader-writer lock that grants access in strict arrival
// order once anyone has had to wait.
//
// sync.RWMutex prefers writers, and many spin RW locks prefer readers;
// either way one class can starve the other. FairRWLock never lets a
// newcomer overtake a queued request: as soon as the wait queue is
// non-empty, every arrival queues behind it, whatever its role.
//
// Implementation:
//   - Fast path: a single CAS on a packed state word (write flag, reader
//     count, queue length). Taken only when the queue is empty.
//   - Slow path: an internal TicketLock guards a FIFO of waiter records.
//     Each waiter parks on its own signal and proceeds only when it is the
//     head of the queue. A reader leaving the queue wakes the next record
//     when it is a reader too, so a run of queued readers is admitted as
//     one batch.
//
// The zero value is an unlocked lock. A FairRWLock must not be copied after
// first use. Misuse (releasing an unheld lock, destroying a busy lock)
// panics.
type FairRWLock struct {
	_     noCopy
	state atomic.Uint64
	mu    TicketLock
	q     waitQueue
}

// Snapshot is a consistent view of a FairRWLock taken under its internal
// mutex.
type Snapshot struct {
	WriteHeld     bool
	Readers       uint32
	Queued        uint32
	QueueLen      int
	QueuedReaders int
	QueuedWriters int
}

// Init resets rw to the idle state. It is only needed to reuse a lock
// after Destroy; the zero value is ready to use.
func (rw *FairRWLock) Init() {
	rw.mu.Lock()
	s := rw.load()
	if s&^stDestroyed != 0 || !rw.q.empty() {
		rw.mu.Unlock()
		fatal("fairlock: Init of busy FairRWLock")
	}
	rw.q = waitQueue{}
	rw.state.Store(0)
	rw.mu.Unlock()
}

// Destroy marks rw as unusable. The lock must be idle: no readers, no
// writer, no waiters. Destroying a busy lock would strand its waiters
// forever, so it panics instead.
func (rw *FairRWLock) Destroy() {
	rw.mu.Lock()
	s := rw.load()
	switch {
	case s.destroyed():
		rw.mu.Unlock()
		fatal("fairlock: Destroy of destroyed FairRWLock")
	case s != 0:
		rw.mu.Unlock()
		fatal("fairlock: Destroy of busy FairRWLock")
	}
	rw.state.Store(uint64(stDestroyed))
	trace("destroy", nil, stDestroyed)
	rw.mu.Unlock()
}

// RLock acquires rw for reading.
func (rw *FairRWLock) RLock() {
	if rw.tryRLockFast() {
		return
	}
	rw.acquireSlow(roleReader)
}

// TryRLock acquires rw for reading only if that needs no waiting. It fails
// while any request is queued, even if readers could share the lock.
func (rw *FairRWLock) TryRLock() bool {
	return rw.tryRLockFast()
}

// RUnlock releases one read hold. When the last reader leaves and requests
// are queued, the queue head is woken.
func (rw *FairRWLock) RUnlock() {
	rw.mu.Lock()
	for {
		s := rw.load()
		if s.readers() == 0 {
			rw.mu.Unlock()
			fatal("fairlock: RUnlock of unlocked FairRWLock")
		}
		n := s.removeReader()
		if !rw.cas(s, n) {
			continue
		}
		trace("runlock", nil, n)
		if n.readers() == 0 && n.queued() > 0 {
			rw.q.head.wake()
		}
		break
	}
	rw.mu.Unlock()
}

// Lock acquires rw for writing.
func (rw *FairRWLock) Lock() {
	if rw.tryLockFast() {
		return
	}
	rw.acquireSlow(roleWriter)
}

// TryLock acquires rw for writing only if it is completely free and
// nobody is queued.
func (rw *FairRWLock) TryLock() bool {
	return rw.tryLockFast()
}

// Unlock releases the write hold and wakes the queue head, if any.
func (rw *FairRWLock) Unlock() {
	rw.mu.Lock()
	for {
		s := rw.load()
		if !s.writeHeld() {
			rw.mu.Unlock()
			fatal("fairlock: Unlock of unlocked FairRWLock")
		}
		n := s.clearWrite()
		if !rw.cas(s, n) {
			continue
		}
		trace("unlock", nil, n)
		if n.queued() > 0 {
			rw.q.head.wake()
		}
		break
	}
	rw.mu.Unlock()
}

// RLocker returns a sync.Locker that calls RLock and RUnlock.
func (rw *FairRWLock) RLocker() sync.Locker {
	return (*rlocker)(rw)
}

type rlocker FairRWLock

func (r *rlocker) Lock()   { (*FairRWLock)(r).RLock() }
func (r *rlocker) Unlock() { (*FairRWLock)(r).RUnlock() }

// Snapshot returns the current counters together with the live queue
// length. Queued and QueueLen always agree.
func (rw *FairRWLock) Snapshot() Snapshot {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	s := rw.load()
	r, w := rw.q.count()
	return Snapshot{
		WriteHeld:     s.writeHeld(),
		Readers:       s.readers(),
		Queued:        s.queued(),
		QueueLen:      r + w,
		QueuedReaders: r,
		QueuedWriters: w,
	}
}

func (rw *FairRWLock) load() lockState {
	return lockState(rw.state.Load())
}

func (rw *FairRWLock) cas(o, n lockState) bool {
	return rw.state.CompareAndSwap(uint64(o), uint64(n))
}

func (rw *FairRWLock) tryRLockFast() bool {
	for {
		s := rw.load()
		if !s.readable() {
			return false
		}
		if rw.cas(s, s.addReader()) {
			return true
		}
	}
}

func (rw *FairRWLock) tryLockFast() bool {
	for {
		s := rw.load()
		if !s.writable() {
			return false
		}
		if rw.cas(s, s.setWrite()) {
			return true
		}
	}
}

// acquireSlow queues the caller and blocks until its request is granted.
func (rw *FairRWLock) acquireSlow(role waiterRole) {
	rw.mu.Lock()
	w := rw.enqueue(role)
	if w == nil {
		rw.mu.Unlock()
		return
	}
	rw.awaitGrant(w)
	rw.grant(w)
	rw.mu.Unlock()
	putWaiter(w)
}

// enqueue re-checks the fast condition under the mutex and either takes
// the lock (returning nil) or bumps the queue count and links a waiter at
// the tail. Must hold rw.mu.
func (rw *FairRWLock) enqueue(role waiterRole) *waiter {
	for {
		s := rw.load()
		if s.destroyed() {
			rw.mu.Unlock()
			fatal("fairlock: use of destroyed FairRWLock")
		}
		if role == roleReader && s.readable() {
			if rw.cas(s, s.addReader()) {
				trace("rlock", nil, s.addReader())
				return nil
			}
			continue
		}
		if role == roleWriter && s.writable() {
			if rw.cas(s, s.setWrite()) {
				trace("lock", nil, s.setWrite())
				return nil
			}
			continue
		}
		if rw.cas(s, s.addQueued()) {
			w := getWaiter(role)
			rw.q.push(w)
			trace("enqueue", w, s.addQueued())
			return w
		}
	}
}

// awaitGrant parks w until it is the queue head and its role can be
// admitted. Wakes that find w elsewhere in the queue, or the lock still
// taken, go back to sleep. Must hold rw.mu; holds it again on return.
func (rw *FairRWLock) awaitGrant(w *waiter) {
	for {
		rw.mu.Unlock()
		w.wait()
		rw.mu.Lock()
		if rw.q.head != w {
			continue
		}
		s := rw.load()
		if s.writeHeld() || (w.role == roleWriter && s.readers() > 0) {
			continue
		}
		return
	}
}

// grant unlinks the head w, passes the wake on to a following reader and
// commits w's hold. Must hold rw.mu.
func (rw *FairRWLock) grant(w *waiter) {
	rw.q.pop()
	if w.role == roleReader && w.next != nil && w.next.role == roleReader {
		w.next.wake()
	}
	for {
		s := rw.load()
		n := s.removeQueued()
		if w.role == roleReader {
			n = n.addReader()
		} else {
			n = n.setWrite()
		}
		if rw.cas(s, n) {
			trace("grant", w, n)
			break
		}
	}
	w.drain()
}
