//go:build darwin
// +build darwin

package processhardening

import (
	"syscall"

	"github.com/extimsu/securestore/internal/tlog"
)

// rlimitMemlock is darwin's RLIMIT_MEMLOCK resource number, which the
// syscall package does not export.
const rlimitMemlock = 6

// HardenProcess disables core dumps and raises RLIMIT_MEMLOCK so a later
// internal/memprotect.LockMemory call on the wrapping key doesn't silently
// fail under a restrictive default memlock limit.
func (ph *ProcessHardening) HardenProcess() {
	if !ph.enabled {
		return
	}

	ph.disableCoreDumps()
	ph.raiseMemlockLimit()

	tlog.Debug.Printf("processhardening: core dumps disabled, memlock floor %d bytes (darwin)", MinMemlockBytes)
}

func (ph *ProcessHardening) disableCoreDumps() {
	_ = syscall.Setrlimit(syscall.RLIMIT_CORE, &syscall.Rlimit{Cur: 0, Max: 0})
}

// raiseMemlockLimit raises RLIMIT_MEMLOCK's soft limit to MinMemlockBytes
// (capped at the hard limit).
func (ph *ProcessHardening) raiseMemlockLimit() {
	var rlim syscall.Rlimit
	if err := syscall.Getrlimit(rlimitMemlock, &rlim); err != nil {
		return
	}
	want := uint64(MinMemlockBytes)
	if rlim.Max != syscall.RLIM_INFINITY && want > rlim.Max {
		want = rlim.Max
	}
	if rlim.Cur >= want {
		return
	}
	rlim.Cur = want
	_ = syscall.Setrlimit(rlimitMemlock, &rlim)
}
