// Package exitcodes defines process exit codes for cmd/securestore.
package exitcodes

import (
	"errors"

	"github.com/extimsu/securestore/internal/store"
)

const (
	// Success means no error.
	Success = 0
	// Usage means wrong CLI usage.
	Usage = 1
	// OutOfMemory means a ciphertext scratch allocation failed.
	OutOfMemory = 12
	// ScryptParams means the scrypt or Argon2id KDF parameters in a config
	// file are below the hardcoded minimums.
	ScryptParams = 6
	// LoadConf means the config file could not be loaded.
	LoadConf = 23
	// PasswordIncorrect means the supplied passphrase did not unlock the
	// master key.
	PasswordIncorrect = 10
	// OpenStore means Open/Create against the backing store failed for a
	// reason other than the more specific codes below.
	OpenStore = 24
	// ItemNotFound means the store reported store.ErrItemNotFound (for
	// example an absent meta slot). An object the transport cannot open
	// at all maps to OpenStore.
	ItemNotFound = 25
	// CorruptObject means block or meta decryption failed (AEAD tag
	// mismatch, unexpected short read).
	CorruptObject = 26
)

// Err2Exit maps an error returned by pkg/securestore or internal/store to
// a process exit code, dispatching on the sentinel kinds store.errors.go
// wraps every such error in.
func Err2Exit(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, store.ErrBadParameters):
		return Usage
	case errors.Is(err, store.ErrOutOfMemory):
		return OutOfMemory
	case errors.Is(err, store.ErrItemNotFound):
		return ItemNotFound
	case errors.Is(err, store.ErrCorruptObject):
		return CorruptObject
	default:
		return OpenStore
	}
}
