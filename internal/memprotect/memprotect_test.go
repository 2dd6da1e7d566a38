package memprotect

import (
	"bytes"
	"testing"
)

func TestLockUnlockRoundTrip(t *testing.T) {
	mp := New()
	if !mp.IsEnabled() {
		t.Error("memory protection should be enabled by default")
	}

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	// Locking may fail on platforms/CI without the right privilege; that's
	// not an error this package surfaces, so only exercise the call path.
	mp.LockMemory(key)
	mp.UnlockMemory(key)
}

func TestLockMemoryDisabled(t *testing.T) {
	mp := New()
	mp.Disable()

	if mp.IsEnabled() {
		t.Error("should report disabled after Disable")
	}
	if mp.LockMemory(make([]byte, 32)) {
		t.Error("LockMemory should report failure once disabled")
	}
}

func TestLockMemoryEmptyData(t *testing.T) {
	mp := New()

	if mp.LockMemory(nil) {
		t.Error("locking nil should fail")
	}
	if mp.LockMemory([]byte{}) {
		t.Error("locking empty data should fail")
	}
	// Must not panic.
	mp.UnlockMemory(nil)
	mp.SecureRandom(nil)
	mp.SecureWipeEnhanced(nil)
}

func TestSecureWipeEnhancedOverwritesAndUnlocks(t *testing.T) {
	mp := New()
	key := bytes.Repeat([]byte{0xAB}, 32)
	original := append([]byte(nil), key...)

	mp.LockMemory(key)
	mp.SecureWipeEnhanced(key)

	if bytes.Equal(key, original) {
		t.Error("SecureWipeEnhanced left the key unchanged")
	}
}

func BenchmarkLockUnlock(b *testing.B) {
	mp := New()
	key := make([]byte, 32)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mp.LockMemory(key)
		mp.UnlockMemory(key)
	}
}
