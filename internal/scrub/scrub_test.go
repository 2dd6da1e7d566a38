package scrub

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extimsu/securestore/internal/cryptocore"
	"github.com/extimsu/securestore/internal/keymanager"
	"github.com/extimsu/securestore/internal/rpc"
	"github.com/extimsu/securestore/internal/store"
)

func TestScanCleanObjectFindsNothing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	transport := rpc.NewLocalTransport(dir)
	km := keymanager.New("owner")
	wk := cryptocore.RandBytes(cryptocore.KeyLen)

	h, err := store.Create(ctx, transport, km, wk, "a")
	require.NoError(t, err)
	defer h.Close(ctx)

	_, err = h.Write(ctx, []byte("a clean object across a couple of blocks"))
	require.NoError(t, err)

	report, err := Scan(ctx, h, nil)
	require.NoError(t, err)
	assert.Empty(t, report.TamperedBlocks)
	assert.EqualValues(t, -1, report.FirstTamper)
	assert.Equal(t, h.NumBlocksInUse(), report.BlocksScanned)
}

func TestScanEmptyObjectScansZeroBlocks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	transport := rpc.NewLocalTransport(dir)
	km := keymanager.New("owner")
	wk := cryptocore.RandBytes(cryptocore.KeyLen)

	h, err := store.Create(ctx, transport, km, wk, "a")
	require.NoError(t, err)
	defer h.Close(ctx)

	report, err := Scan(ctx, h, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), report.BlocksScanned)
}

func TestScanDetectsTamperedBlock(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	transport := rpc.NewLocalTransport(dir)
	km := keymanager.New("owner")
	wk := cryptocore.RandBytes(cryptocore.KeyLen)

	h, err := store.Create(ctx, transport, km, wk, "a")
	require.NoError(t, err)

	payload := make([]byte, store.BlockSize*3)
	for i := range payload {
		payload[i] = byte(i)
	}
	_, err = h.Write(ctx, payload)
	require.NoError(t, err)
	require.NoError(t, h.Close(ctx))

	path := filepath.Join(dir, "a")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-10] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0600))

	h2, err := store.Open(ctx, transport, km, wk, "a")
	require.NoError(t, err)
	defer h2.Close(ctx)

	report, err := Scan(ctx, h2, nil)
	require.Error(t, err)
	assert.NotEmpty(t, report.TamperedBlocks)
	assert.GreaterOrEqual(t, report.FirstTamper, int64(0))
}
