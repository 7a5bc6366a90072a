package fairlock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFairRWLockGroup_Basic(t *testing.T) {
	var g FairRWLockGroup[string]
	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)

	// Concurrent readers
	for range n {
		go func() {
			defer wg.Done()
			g.RLock("key")
			time.Sleep(time.Microsecond)
			g.RUnlock("key")
		}()
	}
	wg.Wait()

	// Writer exclusion
	g.Lock("key")
	done := make(chan struct{})
	go func() {
		g.RLock("key") // Should block
		close(done)
		g.RUnlock("key")
	}()
	mustBlock(t, done, "RLock while Lock held")
	g.Unlock("key")
	mustFinish(t, done, "RLock after Unlock")
}

func TestFairRWLockGroup_KeysIndependent(t *testing.T) {
	var g FairRWLockGroup[int]
	g.Lock(1)
	if !g.TryLock(2) {
		t.Fatal("key 2 blocked by key 1")
	}
	if g.TryRLock(1) {
		t.Fatal("TryRLock succeeded on write-held key")
	}
	g.Unlock(2)
	g.Unlock(1)
}

func TestFairRWLockGroup_RefCounting(t *testing.T) {
	var g FairRWLockGroup[int]

	g.RLock(1)
	s, ok := g.Snapshot(1)
	require.True(t, ok, "entry should exist after RLock")
	require.Equal(t, uint32(1), s.Readers)

	g.RUnlock(1)
	_, ok = g.Snapshot(1)
	require.False(t, ok, "entry should be removed after RUnlock")

	// A failed TryLock must not leave an entry behind.
	g.RLock(2)
	require.False(t, g.TryLock(2))
	g.RUnlock(2)
	_, ok = g.Snapshot(2)
	require.False(t, ok)
}

// Waiters keep the entry alive, so a key is never deleted while someone is
// queued on it.
func TestFairRWLockGroup_WaitersKeepEntry(t *testing.T) {
	var g FairRWLockGroup[string]
	g.Lock("db")
	done := make(chan struct{})
	go func() {
		g.Lock("db")
		g.Unlock("db")
		close(done)
	}()
	waitFor(t, "writer to queue", func() bool {
		s, ok := g.Snapshot("db")
		return ok && s.Queued == 1
	})
	g.Unlock("db")
	mustFinish(t, done, "queued writer")
	_, ok := g.Snapshot("db")
	require.False(t, ok)
}

func TestFairRWLockGroup_UnlockUnknown(t *testing.T) {
	var g FairRWLockGroup[string]
	require.PanicsWithValue(t, "fairlock: unlock of unlocked FairRWLockGroup key", func() {
		g.Unlock("missing")
	})
	require.PanicsWithValue(t, "fairlock: unlock of unlocked FairRWLockGroup key", func() {
		g.RUnlock("missing")
	})
}
