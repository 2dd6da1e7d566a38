package rpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalTransportReadPastEOFIsZeroLength(t *testing.T) {
	ctx := context.Background()
	tr := NewLocalTransport(t.TempDir())

	fd, err := tr.Open(ctx, "a", true)
	require.NoError(t, err)
	defer tr.Close(ctx, fd)

	_, err = tr.Write(ctx, fd, []byte("hi"), 0)
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := tr.Read(ctx, fd, buf, 100)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestLocalTransportWriteThenReadRoundTrips(t *testing.T) {
	ctx := context.Background()
	tr := NewLocalTransport(t.TempDir())

	fd, err := tr.Open(ctx, "a", true)
	require.NoError(t, err)
	defer tr.Close(ctx, fd)

	payload := []byte("round trip payload")
	n, err := tr.Write(ctx, fd, payload, 5)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	buf := make([]byte, len(payload))
	n, err = tr.Read(ctx, fd, buf, 5)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)
}

func TestLocalTransportOpenCreateRejectsExisting(t *testing.T) {
	ctx := context.Background()
	tr := NewLocalTransport(t.TempDir())

	fd, err := tr.Open(ctx, "a", true)
	require.NoError(t, err)
	tr.Close(ctx, fd)

	_, err = tr.Open(ctx, "a", true)
	require.Error(t, err)
}

func TestLocalTransportRenameRespectsOverwrite(t *testing.T) {
	ctx := context.Background()
	tr := NewLocalTransport(t.TempDir())

	fd, err := tr.Open(ctx, "a", true)
	require.NoError(t, err)
	tr.Close(ctx, fd)
	fd, err = tr.Open(ctx, "b", true)
	require.NoError(t, err)
	tr.Close(ctx, fd)

	err = tr.Rename(ctx, "a", "b", false)
	require.Error(t, err)

	err = tr.Rename(ctx, "a", "b", true)
	require.NoError(t, err)
}
