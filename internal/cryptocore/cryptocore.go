// Package cryptocore provides the AEAD primitive used to encrypt and
// authenticate meta and block slots, plus the helpers (random bytes, key
// derivation) that the rest of securestore builds on.
package cryptocore

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"log"

	"golang.org/x/crypto/hkdf"

	"github.com/extimsu/securestore/internal/tlog"
)

const (
	// KeyLen is the length of all derived keys (AES-256).
	KeyLen = 32
	// IVLen is the nonce length used for every AEAD operation (AES-GCM
	// standard nonce size).
	IVLen = 12
	// AuthTagLen is the GCM authentication tag length.
	AuthTagLen = 16
)

// CryptoCore bundles the AEAD cipher bound to one key (an FEK, a wrapping
// key, or a filename-auth MAC key). One instance is created per key; the
// key should be wiped via Wipe() once the instance is no longer needed.
type CryptoCore struct {
	IVLen   int
	backend *OptimizedBackend
	key     []byte
}

// New builds a CryptoCore over the given key. key must be KeyLen bytes.
func New(key []byte) *CryptoCore {
	if len(key) != KeyLen {
		log.Panicf("cryptocore.New: wrong key length %d, want %d", len(key), KeyLen)
	}
	backend, err := NewOptimizedBackend(key)
	if err != nil {
		log.Panicf("cryptocore.New: %v", err)
	}
	return &CryptoCore{
		IVLen:   IVLen,
		backend: backend,
		key:     key,
	}
}

// Seal encrypts and authenticates plaintext, returning ciphertext||tag
// when dst is nil, or that data appended to dst. The nonce is not
// included; callers store it themselves.
func (c *CryptoCore) Seal(dst, nonce, plaintext, aData []byte) []byte {
	return c.backend.Seal(dst, nonce, plaintext, aData)
}

// Open verifies and decrypts ciphertext (without the nonce prefix).
func (c *CryptoCore) Open(dst, nonce, ciphertext, aData []byte) ([]byte, error) {
	return c.backend.Open(dst, nonce, ciphertext, aData)
}

// Wipe overwrites the held key with zeros. The CryptoCore must not be used
// afterwards.
func (c *CryptoCore) Wipe() {
	SecureZero(c.key)
	c.backend.Wipe()
	c.backend = nil
	c.key = nil
}

// RandBytes returns n bytes from the system CSPRNG. Once
// InitAdaptivePrefetcher has been called, nonces and other small random
// values are served from its background-refilled buffer instead of a
// direct crypto/rand.Reader call, which matters under the nonce-per-
// block traffic a full object write generates. Panics if the read fails,
// which should only happen if the OS entropy source is broken.
func RandBytes(n int) []byte {
	if adaptivePrefetcher != nil && n <= MaxPrefetchSize {
		return AdaptiveRead(n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		tlog.Fatal.Printf("RandBytes: %v", err)
		log.Panic(err)
	}
	return b
}

// HKDFDerive derives a subkey of length outLen from inputKey using
// HKDF-SHA256 with info as the context string. Used to split one master
// key into independent-looking subkeys (filename-auth MAC key, etc.)
// without storing each one separately.
func HKDFDerive(inputKey []byte, info []byte, outLen int) []byte {
	r := hkdf.New(sha256.New, inputKey, nil, info)
	out := make([]byte, outLen)
	if _, err := io.ReadFull(r, out); err != nil {
		log.Panicf("HKDFDerive: %v", err)
	}
	return out
}

// constantTimeCompare is a thin wrapper kept for callers that want the
// intent ("this is a MAC compare") spelled out at the call site.
func constantTimeCompare(a, b []byte) bool {
	return hmac.Equal(a, b)
}
