package lib

/* thread.go contains functions useful for multi-threading. */

import (
	"fmt"
	"runtime"
)

// SetThreads lets covint use n cores and returns n. A non-positive n means
// every core.
func SetThreads(n int) (int, error) {
	if n <= 0 { n = runtime.NumCPU() }
	if n > runtime.NumCPU() {
		return 0, fmt.Errorf("%d threads requested, but your system only "+
			"has %d cores. If you want covint to use every core, set "+
			"Threads = -1", n, runtime.NumCPU())
	}

	runtime.GOMAXPROCS(n)
	return n, nil
}
