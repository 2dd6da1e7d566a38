package store

import (
	"errors"
	"fmt"
)

// Sentinel error kinds (spec §7). Every error this package returns
// wraps exactly one of these, so callers can dispatch on it with
// errors.Is regardless of which operation produced it.
var (
	// ErrBadParameters covers a null/empty name, a name longer than
	// NameMax, an invalid seek whence, a resulting position beyond
	// TeeDataMaxPosition, or a write that would exceed MaxFileSize.
	ErrBadParameters = errors.New("store: bad parameters")
	// ErrOutOfMemory covers allocation failure of ciphertext scratch.
	ErrOutOfMemory = errors.New("store: out of memory")
	// ErrCorruptObject covers a meta counter read of fewer than 4
	// bytes, an AEAD tag mismatch, or an unexpected short read where
	// data was required.
	ErrCorruptObject = errors.New("store: corrupt object")
	// ErrItemNotFound signals a block or meta slot absent on the medium.
	// The out-of-place writer's read-modify-write path treats an absent
	// block as zero-fill, and Read and VerifyBlock report an absent block
	// as ErrCorruptObject instead; Open returns ErrItemNotFound when the
	// active meta slot is absent.
	ErrItemNotFound = errors.New("store: item not found")
	// ErrGeneric covers RPC transport failures.
	ErrGeneric = errors.New("store: generic transport failure")
)

// wrap attaches an operation name and, optionally, an underlying cause
// to one of the sentinel kinds above. The result satisfies
// errors.Is(result, kind) and, when cause is non-nil,
// errors.Is(result, cause) as well.
func wrap(kind error, op string, cause error) error {
	if cause != nil {
		return fmt.Errorf("store: %s: %w: %w", op, kind, cause)
	}
	return fmt.Errorf("store: %s: %w", op, kind)
}
