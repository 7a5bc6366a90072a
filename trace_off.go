//go:build !fairlock_trace

package fairlock

// trace is compiled out unless built with -tags=fairlock_trace.
//
//go:nosplit
func trace(string, *waiter, lockState) {}
