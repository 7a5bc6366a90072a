package fairlock

import (
	"unsafe"

	"github.com/llxisdsh/pb"

	"github.com/llxisdsh/fairlock/internal/opt"
)

// FairRWLockGroup provides a FairRWLock per key.
//
// Features:
//   - Lock/Unlock for exclusive access, RLock/RUnlock for shared access.
//   - Per-key FIFO fairness, keys never contend with each other.
//   - Entries are created on first use and removed once no goroutine holds
//     or waits for the key.
//
// Usage:
//
//	var dbs FairRWLockGroup[string]
//
//	dbs.RLock("orders")
//	query(orders)
//	dbs.RUnlock("orders")
//
//	dbs.Lock("orders")
//	reindex(orders)
//	dbs.Unlock("orders")
//
// Releasing a key that is not held panics, like releasing a FairRWLock.
type FairRWLockGroup[K comparable] struct {
	_ noCopy
	m pb.MapOf[K, *fairGroupEntry]
}

// fairGroupEntry is padded to a cache line so hot neighboring keys do not
// share one. ref counts holders and waiters and is only touched inside
// ProcessEntry.
type fairGroupEntry struct {
	mu  FairRWLock
	ref int32
	_   [(opt.CacheLineSize - unsafe.Sizeof(struct {
		mu  FairRWLock
		ref int32
	}{})%opt.CacheLineSize) % opt.CacheLineSize]byte
}

func (g *FairRWLockGroup[K]) Lock(k K) {
	g.retain(k).mu.Lock()
}

func (g *FairRWLockGroup[K]) Unlock(k K) {
	g.lookup(k).mu.Unlock()
	g.release(k)
}

func (g *FairRWLockGroup[K]) RLock(k K) {
	g.retain(k).mu.RLock()
}

func (g *FairRWLockGroup[K]) RUnlock(k K) {
	g.lookup(k).mu.RUnlock()
	g.release(k)
}

// TryLock locks k for writing if that needs no waiting.
func (g *FairRWLockGroup[K]) TryLock(k K) bool {
	if g.retain(k).mu.TryLock() {
		return true
	}
	g.release(k)
	return false
}

// TryRLock locks k for reading if that needs no waiting.
func (g *FairRWLockGroup[K]) TryRLock(k K) bool {
	if g.retain(k).mu.TryRLock() {
		return true
	}
	g.release(k)
	return false
}

// Snapshot returns the state of k's lock. ok is false when no goroutine
// holds or waits for k.
func (g *FairRWLockGroup[K]) Snapshot(k K) (s Snapshot, ok bool) {
	e, ok := g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *fairGroupEntry]) (*pb.EntryOf[K, *fairGroupEntry], *fairGroupEntry, bool) {
			if l == nil {
				return nil, nil, false
			}
			l.Value.ref++
			return l, l.Value, true
		},
	)
	if !ok {
		return Snapshot{}, false
	}
	s = e.mu.Snapshot()
	g.release(k)
	return s, true
}

func (g *FairRWLockGroup[K]) retain(k K) *fairGroupEntry {
	e, _ := g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *fairGroupEntry]) (*pb.EntryOf[K, *fairGroupEntry], *fairGroupEntry, bool) {
			if l != nil {
				l.Value.ref++
				return l, l.Value, true
			}
			v := &fairGroupEntry{ref: 1}
			return &pb.EntryOf[K, *fairGroupEntry]{Value: v}, v, false
		},
	)
	return e
}

func (g *FairRWLockGroup[K]) lookup(k K) *fairGroupEntry {
	e, ok := g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *fairGroupEntry]) (*pb.EntryOf[K, *fairGroupEntry], *fairGroupEntry, bool) {
			if l == nil {
				return nil, nil, false
			}
			return l, l.Value, true
		},
	)
	if !ok {
		fatal("fairlock: unlock of unlocked FairRWLockGroup key")
	}
	return e
}

func (g *FairRWLockGroup[K]) release(k K) {
	_, ok := g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *fairGroupEntry]) (*pb.EntryOf[K, *fairGroupEntry], *fairGroupEntry, bool) {
			if l == nil {
				return nil, nil, false
			}
			l.Value.ref--
			if l.Value.ref <= 0 {
				return nil, l.Value, true
			}
			return l, l.Value, true
		},
	)
	if !ok {
		fatal("fairlock: unlock of unlocked FairRWLockGroup key")
	}
}
