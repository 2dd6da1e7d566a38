package store

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/extimsu/securestore/internal/keymanager"
	"github.com/extimsu/securestore/internal/rpc"
)

// FileInfo is the plaintext payload carried inside one meta slot.
type FileInfo struct {
	// Length is the logical file length in bytes.
	Length uint32
	// BackupVersionTable has one bit per block (bvtWords 32-bit little-
	// endian words); bit n selects which physical copy of block n is
	// active.
	BackupVersionTable []uint32
	// EncryptedFEK is the file's encryption key. It is "encrypted" in
	// the sense that the meta slot containing it is itself AEAD-sealed
	// under the store's wrapping key (see create_meta/read_meta_file);
	// there is no second encryption layer applied to this field alone.
	EncryptedFEK []byte
}

// FileMeta is one generation of a file's meta: the counter value it was
// tagged with, plus the FileInfo payload.
type FileMeta struct {
	// Counter is the generation number embedded inside the meta,
	// distinct from (and not cross-checked against) the on-disk meta
	// counter word — see the Open Question this implementation
	// resolved in DESIGN.md.
	Counter uint32
	Info    FileInfo
}

// clone returns a deep copy of m, safe to stage and mutate without
// aliasing m's slices.
func (m FileMeta) clone() FileMeta {
	bvt := append([]uint32(nil), m.Info.BackupVersionTable...)
	fek := append([]byte(nil), m.Info.EncryptedFEK...)
	return FileMeta{
		Counter: m.Counter,
		Info: FileInfo{
			Length:             m.Info.Length,
			BackupVersionTable: bvt,
			EncryptedFEK:       fek,
		},
	}
}

func serializeMeta(m *FileMeta) []byte {
	buf := make([]byte, infoSize)
	binary.LittleEndian.PutUint32(buf[0:4], m.Counter)
	binary.LittleEndian.PutUint32(buf[4:8], m.Info.Length)
	off := 8
	for _, w := range m.Info.BackupVersionTable {
		binary.LittleEndian.PutUint32(buf[off:off+4], w)
		off += 4
	}
	copy(buf[off:], m.Info.EncryptedFEK)
	return buf
}

func deserializeMeta(data []byte) (*FileMeta, error) {
	if len(data) != infoSize {
		return nil, wrap(ErrCorruptObject, "deserialize_meta", fmt.Errorf("got %d bytes, want %d", len(data), infoSize))
	}
	m := &FileMeta{}
	m.Counter = binary.LittleEndian.Uint32(data[0:4])
	m.Info.Length = binary.LittleEndian.Uint32(data[4:8])
	m.Info.BackupVersionTable = make([]uint32, bvtWords)
	off := 8
	for i := range m.Info.BackupVersionTable {
		m.Info.BackupVersionTable[i] = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}
	m.Info.EncryptedFEK = append([]byte(nil), data[off:off+FEKSize]...)
	return m, nil
}

// readMetaCounter reads the 4-byte little-endian generation counter at
// offset 0.
func readMetaCounter(ctx context.Context, t rpc.Transport, fd rpc.Fd) (uint32, error) {
	buf := make([]byte, 4)
	n, err := t.Read(ctx, fd, buf, 0)
	if err != nil {
		return 0, wrap(ErrGeneric, "read_meta_counter", err)
	}
	if n < 4 {
		return 0, wrap(ErrCorruptObject, "read_meta_counter", fmt.Errorf("got %d bytes, want 4", n))
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// writeMetaCounter writes counter as 4 little-endian bytes at offset 0.
func writeMetaCounter(ctx context.Context, t rpc.Transport, fd rpc.Fd, counter uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, counter)
	n, err := t.Write(ctx, fd, buf, 0)
	if err != nil {
		return wrap(ErrGeneric, "write_meta_counter", err)
	}
	if n != 4 {
		return wrap(ErrGeneric, "write_meta_counter", fmt.Errorf("short write: got %d, want 4", n))
	}
	return nil
}

// readMetaFile reads and decrypts the meta slot active under counter's
// parity.
func readMetaFile(ctx context.Context, t rpc.Transport, fd rpc.Fd, km *keymanager.Manager, counter uint32, wrappingKey []byte) (*FileMeta, error) {
	pt, err := readAndDecrypt(ctx, t, fd, km, keymanager.MetaFile, activeMetaOffset(counter), infoSize, wrappingKey)
	if err != nil {
		return nil, err
	}
	return deserializeMeta(pt)
}

// writeMetaFile encrypts and writes meta into the slot inactive under
// counter's parity.
func writeMetaFile(ctx context.Context, t rpc.Transport, fd rpc.Fd, km *keymanager.Manager, counter uint32, meta *FileMeta, wrappingKey []byte) error {
	return encryptAndWrite(ctx, t, fd, km, keymanager.MetaFile, inactiveMetaOffset(counter), serializeMeta(meta), wrappingKey)
}
