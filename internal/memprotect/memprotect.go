// Package memprotect keeps a Store's wrapping key off the swap device and
// out of core dumps for as long as it's held in memory, and wipes it with
// random data (not a deterministic fill, which would still show up as
// recognizable bytes in a memory snapshot) once Store.Close releases it.
// The subkeys internal/filenameauth derives are not locked here.
package memprotect

import (
	"crypto/rand"
	"runtime"
	"unsafe"

	"github.com/extimsu/securestore/internal/tlog"
)

// MemoryProtection tracks the key-sized buffers locked on behalf of one
// Store so they can all be accounted for at Store.Close time.
type MemoryProtection struct {
	locked  []unsafe.Pointer
	enabled bool
}

// New returns a MemoryProtection with locking enabled.
func New() *MemoryProtection {
	return &MemoryProtection{enabled: true}
}

// Disable turns locking off, for tests run without the platform
// privileges mlock requires.
func (mp *MemoryProtection) Disable() {
	mp.enabled = false
}

// IsEnabled reports whether locking is active.
func (mp *MemoryProtection) IsEnabled() bool {
	return mp.enabled
}

// SecureRandom overwrites data with fresh CSPRNG output. Falls back to a
// counter pattern only if crypto/rand itself is broken, in which case the
// process is already in a degraded state worth surfacing, not one worth
// hiding behind a silent zero-fill.
func (mp *MemoryProtection) SecureRandom(data []byte) {
	if len(data) == 0 {
		return
	}
	defer runtime.KeepAlive(data)

	if _, err := rand.Read(data); err != nil {
		tlog.Warn.Printf("memprotect: crypto/rand failed (%v), overwriting with a counter pattern", err)
		for i := range data {
			data[i] = byte(i % 256)
		}
	}
}

// SecureWipeEnhanced overwrites data with random bytes and unlocks it.
// Called once, at Store.Close, on the wrapping key.
func (mp *MemoryProtection) SecureWipeEnhanced(data []byte) {
	if len(data) == 0 {
		return
	}
	mp.SecureRandom(data)
	mp.UnlockMemory(data)
}
