package rpc

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/extimsu/securestore/internal/tlog"
)

// LocalTransport implements Transport against real files in a root
// directory on the local filesystem. Each named object maps to one file
// inside the root; ReadAt/WriteAt give it exactly the best-effort,
// byte-addressable behavior the core assumes (short reads at EOF,
// zero-length reads over a hole past EOF, no locking between calls).
type LocalTransport struct {
	root string

	mu   sync.Mutex
	fds  map[Fd]*os.File
	next Fd
}

// NewLocalTransport returns a transport rooted at dir. dir must already
// exist.
func NewLocalTransport(dir string) *LocalTransport {
	return &LocalTransport{
		root: dir,
		fds:  make(map[Fd]*os.File),
		next: 1,
	}
}

func (t *LocalTransport) path(name string) string {
	return filepath.Join(t.root, name)
}

// Open implements Transport.
func (t *LocalTransport) Open(_ context.Context, name string, create bool) (Fd, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(t.path(name), flags, 0600)
	if err != nil {
		return InvalidFd, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.next
	t.next++
	t.fds[fd] = f
	return fd, nil
}

func (t *LocalTransport) file(fd Fd) (*os.File, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.fds[fd]
	return f, ok
}

// Read implements Transport. A read past the end of the file returns
// (0, nil), matching the "absent block" contract the block-I/O layer
// relies on.
func (t *LocalTransport) Read(_ context.Context, fd Fd, buf []byte, offset int64) (int, error) {
	f, ok := t.file(fd)
	if !ok {
		return 0, os.ErrClosed
	}
	n, err := f.ReadAt(buf, offset)
	if err != nil {
		// io.EOF (possibly with a partial read) is the normal way a
		// short or absent read surfaces from ReadAt; it is not a
		// transport failure.
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		return n, err
	}
	return n, nil
}

// Write implements Transport.
func (t *LocalTransport) Write(_ context.Context, fd Fd, buf []byte, offset int64) (int, error) {
	f, ok := t.file(fd)
	if !ok {
		return 0, os.ErrClosed
	}
	return f.WriteAt(buf, offset)
}

// Close implements Transport.
func (t *LocalTransport) Close(_ context.Context, fd Fd) error {
	t.mu.Lock()
	f, ok := t.fds[fd]
	if ok {
		delete(t.fds, fd)
	}
	t.mu.Unlock()
	if !ok {
		return nil
	}
	return f.Close()
}

// Fsync implements Transport.
func (t *LocalTransport) Fsync(_ context.Context, fd Fd) error {
	f, ok := t.file(fd)
	if !ok {
		return os.ErrClosed
	}
	return f.Sync()
}

// Rename implements Transport.
func (t *LocalTransport) Rename(_ context.Context, oldName, newName string, overwrite bool) error {
	newPath := t.path(newName)
	if !overwrite {
		if _, err := os.Stat(newPath); err == nil {
			return os.ErrExist
		}
	}
	return os.Rename(t.path(oldName), newPath)
}

// Remove implements Transport.
func (t *LocalTransport) Remove(_ context.Context, name string) error {
	err := os.Remove(t.path(name))
	if err != nil && !os.IsNotExist(err) {
		tlog.Warn.Printf("rpc: remove %q failed: %v", name, err)
	}
	return err
}
