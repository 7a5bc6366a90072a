// Command fairlock-soak stresses FairRWLock with random read/write cycles
// and exits non-zero if any lock invariant breaks.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
