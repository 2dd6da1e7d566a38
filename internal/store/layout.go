// Package store implements the atomic, authenticated, encrypted
// single-file storage backend: on-medium layout and commit protocol
// (this file), block I/O (blockio.go), meta management (meta.go), the
// out-of-place writer (writer.go), handle lifecycle (handle.go), public
// file operations (fileops.go), and atomic commit (commit.go).
//
// Every operation here is single-threaded with respect to a given
// Handle: the package spawns no goroutines and takes no locks. Callers
// are responsible for serializing concurrent access to the same
// Handle, and for not opening the same named object twice concurrently.
package store

import (
	"github.com/extimsu/securestore/internal/cryptocore"
	"github.com/extimsu/securestore/internal/keymanager"
)

const (
	// BlockSize is the size of one logical data block in bytes.
	BlockSize = 256
	blockShift = 8

	// NumBlocksPerFile bounds how many data blocks one object may hold;
	// it sizes the backup-version-table bitmap and, with BlockSize,
	// MaxFileSize.
	NumBlocksPerFile = 4096
	// MaxFileSize is the largest logical length a file may have.
	MaxFileSize = BlockSize * NumBlocksPerFile

	// FEKSize is the length of a file encryption key.
	FEKSize = cryptocore.KeyLen

	// bvtWords is the number of 32-bit words in backup_version_table,
	// one bit per block, little-endian bit order within each word.
	bvtWords = (NumBlocksPerFile + 31) / 32

	// NameMax bounds an object name's length (NUL not counted, unlike
	// the TEE_FS_NAME_MAX convention it mirrors).
	NameMax = 255

	// TeeDataMaxPosition bounds the read/write cursor independently of
	// any one file's length.
	TeeDataMaxPosition int64 = 0x7fffffff
)

// infoSize is the fixed plaintext length of one serialized FileMeta:
// 4 bytes counter + 4 bytes length + bvtWords*4 bytes bitmap + FEKSize
// bytes FEK.
var infoSize = 4 + 4 + bvtWords*4 + FEKSize

// metaSize (M in spec §3.1) and blockRaw (B) are the on-medium sizes of
// one meta slot and one block slot respectively, header included.
var (
	metaSize  = int64(keymanager.HeaderSize(keymanager.MetaFile)) + int64(infoSize)
	blockRaw  = int64(keymanager.HeaderSize(keymanager.BlockFile)) + int64(BlockSize)
)

// blockOf maps a logical byte position to a block number.
func blockOf(pos int64) uint32 {
	return uint32(pos >> blockShift)
}

// activeMetaOffset returns the raw medium offset of the meta slot
// selected by counter's parity.
func activeMetaOffset(counter uint32) int64 {
	return 4 + int64(counter&1)*metaSize
}

// inactiveMetaOffset returns the raw medium offset of the meta slot NOT
// selected by counter's parity — the slot a commit stages into.
func inactiveMetaOffset(counter uint32) int64 {
	return 4 + int64((^counter)&1)*metaSize
}

// backupBit returns the bit of bvt that selects block n's active copy.
func backupBit(bvt []uint32, n uint32) uint32 {
	return (bvt[n/32] >> (n % 32)) & 1
}

// setBackupBit sets block n's selector bit in bvt to bit (0 or 1).
func setBackupBit(bvt []uint32, n uint32, bit uint32) {
	word, shift := n/32, n%32
	if bit != 0 {
		bvt[word] |= 1 << shift
	} else {
		bvt[word] &^= 1 << shift
	}
}

// blockSlotOffset returns the raw medium offset of block n's active
// copy (wantActive) or inactive copy (!wantActive), given bvt.
//
// Each block has two physical copies at slot indices 2n and 2n+1;
// backupBit(bvt, n) names which index (0 or 1, added to 2n) is
// currently active, so the active copy is always at index 2n+backupBit
// and the inactive one at index 2n+(1-backupBit).
func blockSlotOffset(bvt []uint32, n uint32, wantActive bool) int64 {
	bit := backupBit(bvt, n)
	idx := uint32(2) * n
	if wantActive {
		idx += bit
	} else {
		idx += 1 - bit
	}
	return 4 + 2*metaSize + int64(idx)*blockRaw
}

// allOnesBvt returns a fresh backup-version-table with every bit set,
// so the first write to any block targets physical copy 0 (the inactive
// copy while the bit is 1) and flips the bit to 0, making copy 0 active.
func allOnesBvt() []uint32 {
	bvt := make([]uint32, bvtWords)
	for i := range bvt {
		bvt[i] = 0xffffffff
	}
	return bvt
}
