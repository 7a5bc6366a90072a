//go:build fairlock_trace

package fairlock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTrace_SlowPathEvents(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetTraceLogger(zap.New(core))
	defer SetTraceLogger(nil)

	var rw FairRWLock
	rw.Lock()
	done := make(chan struct{})
	go func() {
		rw.RLock()
		rw.RUnlock()
		close(done)
	}()
	waitQueued(t, &rw, 1)
	rw.Unlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader not granted")
	}

	require.NotZero(t, logs.FilterMessage("enqueue").Len())
	grants := logs.FilterMessage("grant").All()
	require.Len(t, grants, 1)
	require.Equal(t, "reader", grants[0].ContextMap()["role"])
}
