package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/extimsu/securestore/internal/cryptocore"
	"github.com/extimsu/securestore/internal/keymanager"
	"github.com/extimsu/securestore/internal/rpc"
)

func newTestStore(t *testing.T) (context.Context, rpc.Transport, *keymanager.Manager, []byte) {
	t.Helper()
	dir := t.TempDir()
	transport := rpc.NewLocalTransport(dir)
	km := keymanager.New("test-owner")
	wrappingKey := cryptocore.RandBytes(cryptocore.KeyLen)
	return context.Background(), transport, km, wrappingKey
}

// S1: create-write-read.
func TestCreateWriteRead(t *testing.T) {
	ctx, transport, km, wk := newTestStore(t)

	h, err := Create(ctx, transport, km, wk, "a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h.Close(ctx)

	n, err := h.Write(ctx, []byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}

	if _, err := h.Seek(0, SeekSet); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 5)
	n, err = h.Read(ctx, buf)
	if err != nil || n != 5 {
		t.Fatalf("Read: n=%d err=%v", n, err)
	}
	if string(buf) != "hello" {
		t.Fatalf("Read returned %q, want %q", buf, "hello")
	}
	if h.Length() != 5 {
		t.Fatalf("Length() = %d, want 5", h.Length())
	}
}

// S2: a write spanning a block boundary reads back as zeros then data.
func TestCrossBlockWrite(t *testing.T) {
	ctx, transport, km, wk := newTestStore(t)

	h, err := Create(ctx, transport, km, wk, "a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h.Close(ctx)

	if _, err := h.Seek(250, SeekSet); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	payload := bytes.Repeat([]byte{0x41}, 20)
	if _, err := h.Write(ctx, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := h.Seek(0, SeekSet); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 270)
	n, err := h.Read(ctx, buf)
	if err != nil || n != 270 {
		t.Fatalf("Read: n=%d err=%v", n, err)
	}
	for i := 0; i < 250; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, buf[i])
		}
	}
	for i := 250; i < 270; i++ {
		if buf[i] != 0x41 {
			t.Fatalf("byte %d = %#x, want 0x41", i, buf[i])
		}
	}
}

// S3: truncate-extend reads back as zeros.
func TestTruncateExtend(t *testing.T) {
	ctx, transport, km, wk := newTestStore(t)

	h, err := Create(ctx, transport, km, wk, "a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h.Close(ctx)

	if err := h.Truncate(ctx, 1000); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	if h.Length() != 1000 {
		t.Fatalf("Length() = %d, want 1000", h.Length())
	}

	buf := make([]byte, 1000)
	n, err := h.Read(ctx, buf)
	if err != nil || n != 1000 {
		t.Fatalf("Read: n=%d err=%v", n, err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, b)
		}
	}
}

// S4: seek past end then write extends with zero fill in between.
func TestSeekPastEndThenWrite(t *testing.T) {
	ctx, transport, km, wk := newTestStore(t)

	h, err := Create(ctx, transport, km, wk, "a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h.Close(ctx)

	if _, err := h.Seek(300, SeekSet); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if _, err := h.Write(ctx, []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if h.Length() != 301 {
		t.Fatalf("Length() = %d, want 301", h.Length())
	}

	if _, err := h.Seek(0, SeekSet); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 301)
	if _, err := h.Read(ctx, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := 0; i < 300; i++ {
		if buf[i] != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, buf[i])
		}
	}
	if buf[300] != 'x' {
		t.Fatalf("byte 300 = %q, want 'x'", buf[300])
	}
}

// S5: a crash that drops the counter write after the new meta/block
// slots are persisted must leave the pre-write generation observable on
// reopen.
func TestReopenAfterCrashMidCommit(t *testing.T) {
	dir := t.TempDir()
	inner := rpc.NewLocalTransport(dir)
	ft := &rpc.FaultTransport{Inner: inner}
	km := keymanager.New("test-owner")
	wk := cryptocore.RandBytes(cryptocore.KeyLen)
	ctx := context.Background()

	h, err := Create(ctx, ft, km, wk, "a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := h.Write(ctx, []byte("hello")); err != nil {
		t.Fatalf("initial Write: %v", err)
	}
	if err := h.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Create issued 2 writes (meta slot, counter) and the first Write
	// issued 3 more (block slot, meta slot, counter), for 5 total so far.
	// The next Write issues #6 (block slot), #7 (meta slot) and #8
	// (counter); drop #8 so it looks like the process died after the
	// block and meta slot were written but before the counter was.
	ft.DropWriteAfter = 8
	h2, err := Open(ctx, ft, km, wk, "a")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := h2.Write(ctx, []byte("WORLD")); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	h2.Close(ctx)

	ft.DropWriteAfter = 0
	h3, err := Open(ctx, ft, km, wk, "a")
	if err != nil {
		t.Fatalf("reopen after crash: %v", err)
	}
	defer h3.Close(ctx)

	if h3.Length() != 5 {
		t.Fatalf("post-crash Length() = %d, want 5 (pre-write length)", h3.Length())
	}
	buf := make([]byte, 5)
	if _, err := h3.Read(ctx, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf) != "hello" {
		t.Fatalf("post-crash contents = %q, want %q", buf, "hello")
	}
}

// S6: flipping a byte in the active copy of block 0 is detected as
// corruption on the next read crossing that block.
func TestTamperDetected(t *testing.T) {
	dir := t.TempDir()
	transport := rpc.NewLocalTransport(dir)
	km := keymanager.New("test-owner")
	wk := cryptocore.RandBytes(cryptocore.KeyLen)
	ctx := context.Background()

	h, err := Create(ctx, transport, km, wk, "a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := h.Write(ctx, bytes.Repeat([]byte{0x42}, BlockSize)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := h.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := filepath.Join(dir, "a")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// Flip a byte well inside the first block slot region, past the
	// counter and both meta slots.
	off := 4 + 2*metaSize + 10
	raw[off] ^= 0xff
	if err := os.WriteFile(path, raw, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	h2, err := Open(ctx, transport, km, wk, "a")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer h2.Close(ctx)

	buf := make([]byte, BlockSize)
	_, err = h2.Read(ctx, buf)
	if !errors.Is(err, ErrCorruptObject) {
		t.Fatalf("Read after tamper: err=%v, want ErrCorruptObject", err)
	}
}

func TestWriteThenReadIdentity(t *testing.T) {
	ctx, transport, km, wk := newTestStore(t)

	h, err := Create(ctx, transport, km, wk, "a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h.Close(ctx)

	ranges := []struct {
		pos int64
		n   int
	}{
		{0, 10}, {100, 50}, {1000, 300}, {BlockSize - 3, 6},
	}
	for _, r := range ranges {
		payload := bytes.Repeat([]byte{byte(r.pos)}, r.n)
		if _, err := h.Seek(r.pos, SeekSet); err != nil {
			t.Fatalf("Seek: %v", err)
		}
		if _, err := h.Write(ctx, payload); err != nil {
			t.Fatalf("Write at %d: %v", r.pos, err)
		}
	}
	for _, r := range ranges {
		payload := bytes.Repeat([]byte{byte(r.pos)}, r.n)
		if _, err := h.Seek(r.pos, SeekSet); err != nil {
			t.Fatalf("Seek: %v", err)
		}
		buf := make([]byte, r.n)
		if _, err := h.Read(ctx, buf); err != nil {
			t.Fatalf("Read at %d: %v", r.pos, err)
		}
		if !bytes.Equal(buf, payload) {
			t.Fatalf("range at %d: got %v, want %v", r.pos, buf, payload)
		}
	}
}

func TestBackupBitTogglesExactlyOneBlock(t *testing.T) {
	ctx, transport, km, wk := newTestStore(t)

	h, err := Create(ctx, transport, km, wk, "a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h.Close(ctx)

	before := h.BackupBitsSet()
	if _, err := h.Write(ctx, []byte{1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	after := h.BackupBitsSet()
	if after != before-1 {
		t.Fatalf("BackupBitsSet before=%d after=%d, want exactly one bit cleared", before, after)
	}
}

func TestCounterParityAfterCommit(t *testing.T) {
	ctx, transport, km, wk := newTestStore(t)

	h, err := Create(ctx, transport, km, wk, "a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h.Close(ctx)

	before := h.MetaCounter()
	if _, err := h.Write(ctx, []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	after := h.MetaCounter()
	if after&1 != (before&1)^1 {
		t.Fatalf("MetaCounter parity did not flip: before=%d after=%d", before, after)
	}
}

func TestBadParameters(t *testing.T) {
	ctx, transport, km, wk := newTestStore(t)

	if _, err := Create(ctx, transport, km, wk, ""); !errors.Is(err, ErrBadParameters) {
		t.Fatalf("Create(\"\"): err=%v, want ErrBadParameters", err)
	}

	h, err := Create(ctx, transport, km, wk, "a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h.Close(ctx)

	if _, err := h.Seek(0, 99); !errors.Is(err, ErrBadParameters) {
		t.Fatalf("Seek bad whence: err=%v, want ErrBadParameters", err)
	}
	if _, err := h.Seek(TeeDataMaxPosition+1, SeekSet); !errors.Is(err, ErrBadParameters) {
		t.Fatalf("Seek beyond max: err=%v, want ErrBadParameters", err)
	}
}
