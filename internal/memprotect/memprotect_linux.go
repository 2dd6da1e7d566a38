//go:build linux
// +build linux

package memprotect

import (
	"syscall"
	"unsafe"

	"github.com/extimsu/securestore/internal/tlog"
)

// madvDontdump is Linux's MADV_DONTDUMP advice value, which the syscall
// package does not export on every architecture.
const madvDontdump = 0x10

// LockMemory mlocks data (the wrapping key, always
// cryptocore.KeyLen bytes — never large enough to need page-aligned
// allocation of its own) and marks it MADV_DONTDUMP so a crash dump never
// contains it. Returns true on success; failure is logged, not fatal,
// since a store should still function without the lock, just with a
// smaller margin against swap.
func (mp *MemoryProtection) LockMemory(data []byte) bool {
	if !mp.enabled || len(data) == 0 {
		return false
	}

	ptr := unsafe.Pointer(&data[0])
	size := uintptr(len(data))

	if err := mlock(ptr, size); err != nil {
		tlog.Debug.Printf("memprotect: mlock failed: %v", err)
	}
	if err := madvise(ptr, size, madvDontdump); err != nil {
		tlog.Debug.Printf("memprotect: madvise MADV_DONTDUMP failed: %v", err)
	}

	mp.locked = append(mp.locked, ptr)
	tlog.Debug.Printf("memprotect: locked %d bytes at %p", len(data), ptr)
	return true
}

// UnlockMemory reverses LockMemory.
func (mp *MemoryProtection) UnlockMemory(data []byte) {
	if len(data) == 0 {
		return
	}

	ptr := unsafe.Pointer(&data[0])
	if err := munlock(ptr, uintptr(len(data))); err != nil {
		tlog.Debug.Printf("memprotect: munlock failed: %v", err)
	}

	for i, p := range mp.locked {
		if p == ptr {
			mp.locked = append(mp.locked[:i], mp.locked[i+1:]...)
			break
		}
	}
}

func mlock(ptr unsafe.Pointer, size uintptr) error {
	_, _, errno := syscall.Syscall(syscall.SYS_MLOCK, uintptr(ptr), size, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func munlock(ptr unsafe.Pointer, size uintptr) error {
	_, _, errno := syscall.Syscall(syscall.SYS_MUNLOCK, uintptr(ptr), size, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func madvise(ptr unsafe.Pointer, size uintptr, advice int) error {
	_, _, errno := syscall.Syscall(syscall.SYS_MADVISE, uintptr(ptr), size, uintptr(advice))
	if errno != 0 {
		return errno
	}
	return nil
}
