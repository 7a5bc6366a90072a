package fairlock

// lockState is the packed state word of a FairRWLock.
//
// Layout (LSB first):
//
//	bit  0      write held
//	bits 1-31   active readers
//	bits 32-62  queued waiters
//	bit  63     destroyed
//
// Both counters are far wider than any realistic number of goroutines.
// Reaching the maximum is a caller bug and is reported through fatal.
type lockState uint64

const (
	stWriteHeld lockState = 1

	stReaderShift = 1
	stReaderBits  = 31
	stReaderUnit  = lockState(1) << stReaderShift
	stReaderMask  = lockState(1<<stReaderBits-1) << stReaderShift

	stQueuedShift = stReaderShift + stReaderBits
	stQueuedBits  = 31
	stQueuedUnit  = lockState(1) << stQueuedShift
	stQueuedMask  = lockState(1<<stQueuedBits-1) << stQueuedShift

	stDestroyed lockState = 1 << 63

	maxReaders = 1<<stReaderBits - 1
	maxQueued  = 1<<stQueuedBits - 1
)

func (s lockState) writeHeld() bool { return s&stWriteHeld != 0 }
func (s lockState) destroyed() bool { return s&stDestroyed != 0 }
func (s lockState) readers() uint32 { return uint32((s & stReaderMask) >> stReaderShift) }
func (s lockState) queued() uint32  { return uint32((s & stQueuedMask) >> stQueuedShift) }

// readable reports whether a reader may be granted without queuing:
// nobody writes and nobody waits.
func (s lockState) readable() bool {
	return s&(stWriteHeld|stQueuedMask|stDestroyed) == 0
}

// writable reports whether a writer may be granted without queuing.
func (s lockState) writable() bool {
	return s == 0
}

func (s lockState) addReader() lockState {
	if s.readers() == maxReaders {
		fatal("fairlock: too many readers")
	}
	return s + stReaderUnit
}

func (s lockState) removeReader() lockState {
	return s - stReaderUnit
}

func (s lockState) addQueued() lockState {
	if s.queued() == maxQueued {
		fatal("fairlock: too many waiters")
	}
	return s + stQueuedUnit
}

func (s lockState) removeQueued() lockState {
	return s - stQueuedUnit
}

func (s lockState) setWrite() lockState   { return s | stWriteHeld }
func (s lockState) clearWrite() lockState { return s &^ stWriteHeld }
