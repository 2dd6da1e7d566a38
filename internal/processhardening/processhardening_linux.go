//go:build linux
// +build linux

package processhardening

import (
	"syscall"

	"github.com/extimsu/securestore/internal/tlog"
)

// rlimitMemlock is Linux's RLIMIT_MEMLOCK resource number (8 on the
// common ABIs), and rlimInfinity its RLIM_INFINITY as a uint64; the
// syscall package does not export usable forms of either on every
// architecture.
const (
	rlimitMemlock = 8
	rlimInfinity  = ^uint64(0)
)

// HardenProcess disables core dumps and raises RLIMIT_MEMLOCK so a later
// internal/memprotect.LockMemory call on the wrapping key doesn't silently
// fail on distros that default unprivileged processes to a tiny memlock
// limit.
func (ph *ProcessHardening) HardenProcess() {
	if !ph.enabled {
		return
	}

	ph.setDumpable(false)
	ph.disableCoreDumps()
	ph.raiseMemlockLimit()

	tlog.Debug.Printf("processhardening: core dumps disabled, memlock floor %d bytes (linux)", MinMemlockBytes)
}

func (ph *ProcessHardening) setDumpable(dumpable bool) {
	_ = prctl(syscall.PR_SET_DUMPABLE, boolToInt(dumpable), 0, 0, 0)
}

func (ph *ProcessHardening) disableCoreDumps() {
	_ = syscall.Setrlimit(syscall.RLIMIT_CORE, &syscall.Rlimit{Cur: 0, Max: 0})
}

// raiseMemlockLimit raises RLIMIT_MEMLOCK's soft limit to MinMemlockBytes
// (capped at the hard limit), so mlock of a cryptocore.KeyLen-sized key
// doesn't fail with EPERM under a restrictive default.
func (ph *ProcessHardening) raiseMemlockLimit() {
	var rlim syscall.Rlimit
	if err := syscall.Getrlimit(rlimitMemlock, &rlim); err != nil {
		return
	}
	want := uint64(MinMemlockBytes)
	if rlim.Max != rlimInfinity && want > rlim.Max {
		want = rlim.Max
	}
	if rlim.Cur >= want {
		return
	}
	rlim.Cur = want
	_ = syscall.Setrlimit(rlimitMemlock, &rlim)
}

func prctl(option int, arg2, arg3, arg4, arg5 uintptr) error {
	_, _, errno := syscall.Syscall6(syscall.SYS_PRCTL, uintptr(option), arg2, arg3, arg4, arg5, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func boolToInt(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}
