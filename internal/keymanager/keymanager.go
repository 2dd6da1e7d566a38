// Package keymanager implements the key-manager contract that
// internal/store treats as an external collaborator: FEK generation,
// per-block header framing, and AEAD encrypt/decrypt. It is built on
// internal/cryptocore (AES-256-GCM, adapted from the teacher's
// OptimizedBackend/SIMDOptimizedGCM) rather than on anything FUSE- or
// mount-shaped, since this key manager never sees a plaintext page
// larger than one fixed-size object block.
package keymanager

import (
	"errors"
	"fmt"

	"github.com/extimsu/securestore/internal/cryptocore"
)

// FileType distinguishes the meta region from a data block, mirroring
// the META_FILE/BLOCK_FILE distinction in the on-medium layout (spec
// §3.1). Both currently carry the same header overhead; the type is
// threaded through anyway because it is folded into the AEAD associated
// data, binding a ciphertext to the slot kind it was written for.
type FileType int

const (
	// MetaFile identifies a meta-slot ciphertext.
	MetaFile FileType = iota
	// BlockFile identifies a data-block-slot ciphertext.
	BlockFile
)

func (ft FileType) String() string {
	switch ft {
	case MetaFile:
		return "META_FILE"
	case BlockFile:
		return "BLOCK_FILE"
	default:
		return "UNKNOWN_FILE_TYPE"
	}
}

// ErrCorruptCiphertext is returned by DecryptFile when the ciphertext is
// too short to contain a header, or the AEAD tag does not verify.
var ErrCorruptCiphertext = errors.New("keymanager: corrupt ciphertext")

// HeaderSize returns the number of bytes of framing overhead
// (nonce + authentication tag) that EncryptFile adds around a plaintext
// of file type ft. Both file types carry the same overhead today; the
// function still takes ft to match the key-manager contract's shape and
// leave room for a future type that frames differently.
func HeaderSize(_ FileType) int {
	return cryptocore.IVLen + cryptocore.AuthTagLen
}

// Manager generates FEKs and performs AEAD framing for one owning
// session. The owner id is folded into every AEAD associated-data
// string, so a ciphertext generated by one owner cannot be swapped in
// for another owner's ciphertext even if the FEK were somehow shared.
type Manager struct {
	ownerID []byte
}

// New returns a Manager bound to ownerID (the "current session's UUID"
// of spec §3.4).
func New(ownerID string) *Manager {
	return &Manager{ownerID: []byte(ownerID)}
}

// GenerateFEK returns a fresh, random file encryption key bound to this
// manager's owner id (the binding is enforced at Encrypt/Decrypt time
// via associated data, not by mixing the owner id into key material).
func (m *Manager) GenerateFEK() []byte {
	return cryptocore.RandBytes(cryptocore.KeyLen)
}

func (m *Manager) associatedData(ft FileType) []byte {
	ad := make([]byte, 0, 1+len(m.ownerID))
	ad = append(ad, byte(ft))
	ad = append(ad, m.ownerID...)
	return ad
}

// EncryptFile frames and AEAD-encrypts pt under fek, returning
// nonce || ciphertext || tag. fek must be cryptocore.KeyLen bytes.
func (m *Manager) EncryptFile(ft FileType, pt []byte, fek []byte) ([]byte, error) {
	if len(fek) != cryptocore.KeyLen {
		return nil, fmt.Errorf("keymanager: bad FEK length %d, want %d", len(fek), cryptocore.KeyLen)
	}
	core := cryptocore.New(fek)
	nonce := cryptocore.RandBytes(cryptocore.IVLen)

	out := make([]byte, 0, cryptocore.IVLen+len(pt)+cryptocore.AuthTagLen)
	out = append(out, nonce...)
	out = core.Seal(out, nonce, pt, m.associatedData(ft))
	return out, nil
}

// DecryptFile verifies and decrypts a buffer produced by EncryptFile
// under fek. Any length or tag mismatch is reported as
// ErrCorruptCiphertext; the core maps that to its CorruptObject error
// kind.
func (m *Manager) DecryptFile(ft FileType, ct []byte, fek []byte) ([]byte, error) {
	if len(fek) != cryptocore.KeyLen {
		return nil, fmt.Errorf("keymanager: bad FEK length %d, want %d", len(fek), cryptocore.KeyLen)
	}
	if len(ct) < cryptocore.IVLen+cryptocore.AuthTagLen {
		return nil, ErrCorruptCiphertext
	}
	nonce := ct[:cryptocore.IVLen]
	sealed := ct[cryptocore.IVLen:]

	core := cryptocore.New(fek)
	pt, err := core.Open(nil, nonce, sealed, m.associatedData(ft))
	if err != nil {
		return nil, ErrCorruptCiphertext
	}
	return pt, nil
}
