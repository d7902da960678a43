package sim

import "sync/atomic"

// stopRequested is shared by every simulation in the process.
var stopRequested atomic.Bool

// RequestStop asks the running simulation to stop at its next tick. Safe
// from any goroutine, including signal handlers.
func RequestStop() { stopRequested.Store(true) }

// StopRequested reports whether a stop is pending.
func StopRequested() bool { return stopRequested.Load() }

func consumeStop() bool { return stopRequested.Swap(false) }
