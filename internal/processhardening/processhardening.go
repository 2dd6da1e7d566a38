// Package processhardening reduces the chance that a compromised or
// crashed securestore process leaks key material through OS-level
// channels — core dumps and unbounded swap of mlock'd memory — that
// internal/memprotect's own in-process wiping can't reach.
package processhardening

// MinMemlockBytes is the floor HardenProcess tries to raise RLIMIT_MEMLOCK
// to, sized for the wrapping key plus a handful of HKDF-derived subkeys
// (internal/memprotect locks one cryptocore.KeyLen-sized key at a time, but
// a process may hold several handles' worth across its lifetime). Most
// distros default unprivileged RLIMIT_MEMLOCK to 64KiB; this equals that,
// and HardenProcess caps the request at the hard limit, so raising the
// soft limit never requires elevated privilege.
const MinMemlockBytes = 1 << 16 // 64KiB

// ProcessHardening applies OS-level hardening to the running process.
type ProcessHardening struct {
	enabled bool
}

// New returns a ProcessHardening with hardening enabled.
func New() *ProcessHardening {
	return &ProcessHardening{enabled: true}
}

// Disable turns hardening off, for tests that need core dumps or relaxed
// rlimits.
func (ph *ProcessHardening) Disable() {
	ph.enabled = false
}

// IsEnabled reports whether hardening is active.
func (ph *ProcessHardening) IsEnabled() bool {
	return ph.enabled
}
