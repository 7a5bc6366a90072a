package fairlock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockState_Fields(t *testing.T) {
	var s lockState
	require.True(t, s.readable())
	require.True(t, s.writable())

	s = s.addReader().addReader().addQueued()
	require.Equal(t, uint32(2), s.readers())
	require.Equal(t, uint32(1), s.queued())
	require.False(t, s.writeHeld())
	require.False(t, s.readable(), "queued waiter must gate new readers")
	require.False(t, s.writable())

	s = s.removeReader().removeReader().removeQueued()
	require.Equal(t, lockState(0), s)

	s = s.setWrite()
	require.True(t, s.writeHeld())
	require.Zero(t, s.readers())
	require.False(t, s.readable())
	require.Equal(t, lockState(0), s.clearWrite())
}

func TestLockState_FieldsDoNotOverlap(t *testing.T) {
	require.Zero(t, stWriteHeld&stReaderMask)
	require.Zero(t, stReaderMask&stQueuedMask)
	require.Zero(t, stQueuedMask&stDestroyed)
	require.Equal(t, ^lockState(0), stWriteHeld|stReaderMask|stQueuedMask|stDestroyed)
}

func TestLockState_Full(t *testing.T) {
	s := stReaderMask | stQueuedMask
	require.Equal(t, uint32(maxReaders), s.readers())
	require.Equal(t, uint32(maxQueued), s.queued())
	require.False(t, s.writeHeld())
	require.False(t, s.destroyed())
}

func TestLockState_Overflow(t *testing.T) {
	require.PanicsWithValue(t, "fairlock: too many readers", func() {
		stReaderMask.addReader()
	})
	require.PanicsWithValue(t, "fairlock: too many waiters", func() {
		stQueuedMask.addQueued()
	})
}

func TestLockState_Destroyed(t *testing.T) {
	s := stDestroyed
	require.True(t, s.destroyed())
	require.False(t, s.readable())
	require.False(t, s.writable())
}
