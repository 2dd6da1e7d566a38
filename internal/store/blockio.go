package store

import (
	"context"
	"fmt"

	"github.com/extimsu/securestore/internal/keymanager"
	"github.com/extimsu/securestore/internal/rpc"
	"github.com/extimsu/securestore/internal/tlog"
)

// encryptAndWrite AEAD-encrypts plaintext under key and RPC-writes the
// result at offset in fd. It is used for both meta slots (ft=MetaFile,
// key=the store's wrapping key) and block slots (ft=BlockFile, key=the
// file's FEK).
func encryptAndWrite(ctx context.Context, t rpc.Transport, fd rpc.Fd, km *keymanager.Manager, ft keymanager.FileType, offset int64, plaintext, key []byte) error {
	ct, err := km.EncryptFile(ft, plaintext, key)
	if err != nil {
		// The only way EncryptFile fails in this implementation is a
		// malformed key, which indicates scratch state the core could
		// not assemble correctly — closest sibling to the spec's
		// allocation-failure OutOfMemory kind.
		return wrap(ErrOutOfMemory, "encrypt_and_write", err)
	}
	n, err := t.Write(ctx, fd, ct, offset)
	if err != nil {
		return wrap(ErrGeneric, "encrypt_and_write", err)
	}
	if n != len(ct) {
		return wrap(ErrGeneric, "encrypt_and_write", fmt.Errorf("short write: got %d, want %d", n, len(ct)))
	}
	return nil
}

// readAndDecrypt RPC-reads header_size(ft)+outSize bytes at offset and
// AEAD-decrypts them under key. A zero-length RPC read is reported as
// ErrItemNotFound ("absent block"); callers outside the out-of-place
// writer's read-modify-write path decide what that means for them (see
// fileops.go's handling of in-range absent blocks).
func readAndDecrypt(ctx context.Context, t rpc.Transport, fd rpc.Fd, km *keymanager.Manager, ft keymanager.FileType, offset int64, outSize int, key []byte) ([]byte, error) {
	total := keymanager.HeaderSize(ft) + outSize
	buf := make([]byte, total)

	n, err := t.Read(ctx, fd, buf, offset)
	if err != nil {
		return nil, wrap(ErrGeneric, "read_and_decrypt", err)
	}
	if n == 0 {
		return nil, ErrItemNotFound
	}
	if n < total {
		return nil, wrap(ErrCorruptObject, "read_and_decrypt", fmt.Errorf("short read: got %d, want %d", n, total))
	}

	pt, err := km.DecryptFile(ft, buf, key)
	if err != nil {
		tlog.Debug.Printf("store: read_and_decrypt: AEAD verify failed at offset %d: %v", offset, err)
		return nil, wrap(ErrCorruptObject, "read_and_decrypt", err)
	}
	return pt, nil
}
