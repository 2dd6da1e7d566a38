package securestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extimsu/securestore/internal/cryptocore"
	"github.com/extimsu/securestore/internal/keymanager"
	"github.com/extimsu/securestore/internal/rpc"
)

func newTestStore(t *testing.T, name string) (context.Context, *Store) {
	t.Helper()
	transport := rpc.NewLocalTransport(t.TempDir())
	km := keymanager.New("test-owner")
	wrapKey := cryptocore.RandBytes(cryptocore.KeyLen)
	return context.Background(), New(name, transport, km, wrapKey)
}

func TestCreateWriteReadCloseTracking(t *testing.T) {
	ctx, s := newTestStore(t, "test")
	defer s.Close()

	f, err := s.Create(ctx, "a")
	require.NoError(t, err)

	_, err = f.Write(ctx, []byte("hello"))
	require.NoError(t, err)

	status, err := s.Status("")
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, "a", status[0].Name)
	assert.EqualValues(t, 5, status[0].Length)

	require.NoError(t, f.Close(ctx))

	status, err = s.Status("")
	require.NoError(t, err)
	assert.Len(t, status, 0)
}

func TestStatusFiltersByStoreName(t *testing.T) {
	ctx, s := newTestStore(t, "test")
	defer s.Close()

	f, err := s.Create(ctx, "a")
	require.NoError(t, err)
	defer f.Close(ctx)

	status, err := s.Status("not-this-store")
	require.NoError(t, err)
	assert.Len(t, status, 0)

	status, err = s.Status("test")
	require.NoError(t, err)
	assert.Len(t, status, 1)
}

func TestRenamedObjectOpensUnderNewName(t *testing.T) {
	ctx, s := newTestStore(t, "test")
	defer s.Close()

	f, err := s.Create(ctx, "a")
	require.NoError(t, err)
	_, err = f.Write(ctx, []byte("payload"))
	require.NoError(t, err)
	require.NoError(t, f.Close(ctx))

	require.NoError(t, s.Rename(ctx, "a", "b", false))

	f2, err := s.Open(ctx, "b")
	require.NoError(t, err)
	defer f2.Close(ctx)

	buf := make([]byte, 7)
	n, err := f2.Read(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(buf[:n]))
}

func TestMultiRegistryAggregatesAcrossStores(t *testing.T) {
	ctx1, s1 := newTestStore(t, "store-1")
	defer s1.Close()
	ctx2, s2 := newTestStore(t, "store-2")
	defer s2.Close()

	f1, err := s1.Create(ctx1, "x")
	require.NoError(t, err)
	defer f1.Close(ctx1)
	f2, err := s2.Create(ctx2, "y")
	require.NoError(t, err)
	defer f2.Close(ctx2)

	reg := NewMultiRegistry()
	reg.Add(s1)
	reg.Add(s2)

	status, err := reg.Status("")
	require.NoError(t, err)
	assert.Len(t, status, 2)
}
