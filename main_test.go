package fairlock

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

// Every test must leave no goroutine parked on a waiter signal.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// waitQueued polls until at least n requests are queued on rw.
func waitQueued(t *testing.T, rw *FairRWLock, n uint32) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		s := rw.Snapshot()
		if s.Queued >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d queued, have %+v", n, s)
		}
		time.Sleep(time.Millisecond)
	}
}

// waitFor polls cond until it holds.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func mustBlock(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
		t.Fatalf("%s did not block", what)
	case <-time.After(20 * time.Millisecond):
	}
}

func mustFinish(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("%s did not finish", what)
	}
}
