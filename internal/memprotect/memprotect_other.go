//go:build !linux && !darwin

package memprotect

import (
	"unsafe"

	"github.com/extimsu/securestore/internal/tlog"
)

// LockMemory has no mlock/madvise equivalent wired up for this platform.
// The key is still tracked so UnlockMemory/SecureWipeEnhanced behave
// consistently; the caller just gets no swap/core-dump guarantee.
func (mp *MemoryProtection) LockMemory(data []byte) bool {
	if !mp.enabled || len(data) == 0 {
		return false
	}

	ptr := unsafe.Pointer(&data[0])
	mp.locked = append(mp.locked, ptr)
	tlog.Debug.Printf("memprotect: memory locking not supported on this platform, tracking %d bytes at %p", len(data), ptr)
	return false
}

// UnlockMemory drops the tracking entry LockMemory recorded.
func (mp *MemoryProtection) UnlockMemory(data []byte) {
	if len(data) == 0 {
		return
	}

	ptr := unsafe.Pointer(&data[0])
	for i, p := range mp.locked {
		if p == ptr {
			mp.locked = append(mp.locked[:i], mp.locked[i+1:]...)
			break
		}
	}
}
