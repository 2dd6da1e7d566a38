package store

import (
	"context"
	"errors"

	"github.com/extimsu/securestore/internal/keymanager"
	"github.com/extimsu/securestore/internal/rpc"
)

// outOfPlaceWrite performs a read-modify-write over the byte range
// [pos, pos+length) against stagedMeta (a caller-owned mutable copy of
// the handle's current meta), writing each touched block to its
// inactive physical copy and flipping that block's bit in
// stagedMeta.Info.BackupVersionTable. src == nil zero-fills the range
// instead of copying from a source buffer, which is how truncate-extend
// reuses this same path. The medium's active copies are untouched until
// the caller commits stagedMeta, so a failure partway through leaves
// the prior generation fully intact — only now-unreferenced inactive
// slots may hold partial writes.
func outOfPlaceWrite(ctx context.Context, t rpc.Transport, fd rpc.Fd, km *keymanager.Manager, fek []byte, pos int64, src []byte, length int, stagedMeta *FileMeta) error {
	cur := pos
	remaining := length

	for remaining > 0 {
		n := blockOf(cur)
		offsetInBlock := int(cur % BlockSize)
		chunk := BlockSize - offsetInBlock
		if chunk > remaining {
			chunk = remaining
		}

		block, err := readAndDecrypt(ctx, t, fd, km, keymanager.BlockFile, blockSlotOffset(stagedMeta.Info.BackupVersionTable, n, true), BlockSize, fek)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				block = make([]byte, BlockSize)
			} else {
				return err
			}
		}

		if src == nil {
			for i := 0; i < chunk; i++ {
				block[offsetInBlock+i] = 0
			}
		} else {
			copy(block[offsetInBlock:offsetInBlock+chunk], src[:chunk])
			src = src[chunk:]
		}

		if err := encryptAndWrite(ctx, t, fd, km, keymanager.BlockFile, blockSlotOffset(stagedMeta.Info.BackupVersionTable, n, false), block, fek); err != nil {
			return err
		}
		setBackupBit(stagedMeta.Info.BackupVersionTable, n, 1-backupBit(stagedMeta.Info.BackupVersionTable, n))

		cur += int64(chunk)
		remaining -= chunk
	}

	if uint32(cur) > stagedMeta.Info.Length {
		stagedMeta.Info.Length = uint32(cur)
	}
	return nil
}
