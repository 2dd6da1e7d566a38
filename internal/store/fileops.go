package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/extimsu/securestore/internal/keymanager"
	"github.com/extimsu/securestore/internal/rpc"
)

// Seek whence values.
const (
	SeekSet = iota
	SeekCur
	SeekEnd
)

// Seek repositions the handle's cursor and returns the new position.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case SeekSet:
		newPos = offset
	case SeekCur:
		newPos = h.pos + offset
	case SeekEnd:
		newPos = int64(h.meta.Info.Length) + offset
	default:
		return 0, wrap(ErrBadParameters, "seek", fmt.Errorf("invalid whence %d", whence))
	}
	if newPos < 0 {
		newPos = 0
	}
	if newPos > TeeDataMaxPosition {
		return 0, wrap(ErrBadParameters, "seek", fmt.Errorf("position %d exceeds max %d", newPos, TeeDataMaxPosition))
	}
	h.pos = newPos
	return newPos, nil
}

// Read reads into buf starting at the cursor, returning the number of
// bytes actually read. A cursor already past the logical length, or a
// request that would overflow, reads zero bytes without error — not a
// short-read error, an ordinary empty read. The cursor advances by
// exactly the number of bytes returned.
func (h *Handle) Read(ctx context.Context, buf []byte) (int, error) {
	length := int64(h.meta.Info.Length)
	if h.pos > length {
		return 0, nil
	}

	want := int64(len(buf))
	if h.pos+want < h.pos {
		return 0, nil
	}
	if h.pos+want > length {
		want = length - h.pos
	}
	total := int(want)

	pos := h.pos
	read := 0
	for read < total {
		n := blockOf(pos)
		offsetInBlock := int(pos % BlockSize)
		chunk := BlockSize - offsetInBlock
		if chunk > total-read {
			chunk = total - read
		}

		block, err := readAndDecrypt(ctx, h.transport, h.fd, h.km, keymanager.BlockFile, blockSlotOffset(h.meta.Info.BackupVersionTable, n, true), BlockSize, h.meta.Info.EncryptedFEK)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				// In-range absent block: by the time a block number is
				// < length, a real slot must exist (zero-fill during
				// extension always writes one) — its absence signals
				// medium corruption, not a hole.
				h.pos = pos
				return read, wrap(ErrCorruptObject, "read", fmt.Errorf("block %d absent", n))
			}
			h.pos = pos
			return read, err
		}

		copy(buf[read:read+chunk], block[offsetInBlock:offsetInBlock+chunk])
		pos += int64(chunk)
		read += chunk
	}

	h.pos = pos
	return read, nil
}

// Write writes buf at the cursor, extending the file with zero fill
// first if the cursor is past the current length, then staging and
// committing the write as one atomic generation. On any failure pos is
// left as it was on entry. A zero-fill extension is committed as its own
// generation before the write is staged and stays committed if the write
// then fails; apart from that, meta is left as it was on entry.
func (h *Handle) Write(ctx context.Context, buf []byte) (int, error) {
	n := len(buf)
	if n == 0 {
		return 0, nil
	}
	if h.pos+int64(n) < h.pos || h.pos+int64(n) > MaxFileSize {
		return 0, wrap(ErrBadParameters, "write", fmt.Errorf("write of %d bytes at pos %d exceeds MAX_FILE_SIZE", n, h.pos))
	}

	if h.pos > int64(h.meta.Info.Length) {
		if err := h.ftruncateInternal(ctx, uint32(h.pos)); err != nil {
			return 0, err
		}
	}

	staged := h.meta.clone()
	if err := outOfPlaceWrite(ctx, h.transport, h.fd, h.km, h.meta.Info.EncryptedFEK, h.pos, buf, n, &staged); err != nil {
		return 0, err
	}
	if err := commit(ctx, h, &staged); err != nil {
		return 0, err
	}

	h.pos += int64(n)
	return n, nil
}

// ftruncateInternal is the internal ftruncate of spec §4.F: it stages a
// new length, zero-fills any newly exposed range via outOfPlaceWrite,
// and commits. It never touches h.pos.
func (h *Handle) ftruncateInternal(ctx context.Context, newLen uint32) error {
	if int64(newLen) > MaxFileSize {
		return wrap(ErrBadParameters, "truncate", fmt.Errorf("length %d exceeds MAX_FILE_SIZE", newLen))
	}

	staged := h.meta.clone()
	oldLen := staged.Info.Length
	staged.Info.Length = newLen

	if newLen > oldLen {
		extLen := int(newLen - oldLen)
		if err := outOfPlaceWrite(ctx, h.transport, h.fd, h.km, h.meta.Info.EncryptedFEK, int64(oldLen), nil, extLen, &staged); err != nil {
			return err
		}
	}

	return commit(ctx, h, &staged)
}

// Truncate sets the logical length to newLen, zero-filling when
// extending. Shrinking only shortens the reported length; stale block
// copies beyond it remain on the medium, unreferenced until overwritten.
func (h *Handle) Truncate(ctx context.Context, newLen uint32) error {
	return h.ftruncateInternal(ctx, newLen)
}

// Fsync forwards to the RPC transport's fsync on the underlying fd.
func (h *Handle) Fsync(ctx context.Context) error {
	if err := h.transport.Fsync(ctx, h.fd); err != nil {
		return wrap(ErrGeneric, "fsync", err)
	}
	return nil
}

// Rename renames oldName to newName via the RPC transport. No
// encryption concerns apply; open handles on either name are not
// invalidated (spec §9).
func Rename(ctx context.Context, t rpc.Transport, oldName, newName string, overwrite bool) error {
	if err := t.Rename(ctx, oldName, newName, overwrite); err != nil {
		return wrap(ErrGeneric, "rename", err)
	}
	return nil
}

// Remove deletes name via the RPC transport.
func Remove(ctx context.Context, t rpc.Transport, name string) error {
	if err := t.Remove(ctx, name); err != nil {
		return wrap(ErrGeneric, "remove", err)
	}
	return nil
}
