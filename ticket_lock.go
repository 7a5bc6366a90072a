package fairlock

import (
	"sync/atomic"
)

// TicketLock is a FIFO spin lock.
//
// Goroutines enter in the order they called Lock, so the slow path of
// FairRWLock is first come, first served all the way down: queue position
// is decided by who took a ticket first, not by who won a race on a
// barging mutex.
//
// Critical sections guarded by a TicketLock must be short and must not
// block; waiters spin with backoff rather than park.
type TicketLock struct {
	_       noCopy
	next    atomic.Uint32
	serving atomic.Uint32
}

// Lock takes a ticket and waits until it is served.
func (m *TicketLock) Lock() {
	my := m.next.Add(1) - 1
	var spins int
	for m.serving.Load() != my {
		delay(&spins)
	}
}

// TryLock takes the lock only if nobody holds or awaits it.
func (m *TicketLock) TryLock() bool {
	s := m.serving.Load()
	return m.next.CompareAndSwap(s, s+1)
}

// Unlock serves the next ticket.
func (m *TicketLock) Unlock() {
	m.serving.Add(1)
}
