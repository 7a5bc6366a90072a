//go:build race

package opt

// Race reports whether the race detector is enabled. Tests use it to
// shrink iteration counts.
const Race = true
