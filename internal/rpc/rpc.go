// Package rpc models the remote-procedure-call transport that carries
// securestore's ciphertext to and from the untrusted normal-world medium.
// The contract is deliberately thin and best-effort: callers must not
// assume a read returns the number of bytes requested, and a zero-length
// read is a valid response for a hole or a past-EOF offset, not an error.
package rpc

import "context"

// Fd is an opaque handle into an open medium object. InvalidFd (-1)
// means "unset", mirroring the core's use of fd=-1 before open.
type Fd int

// InvalidFd is the value an unset or closed Fd holds.
const InvalidFd Fd = -1

// Transport is the RPC contract consumed by internal/store. Every method
// is a suspension point: the calling goroutine may block here, but the
// transport itself must not spawn goroutines or hold locks across calls
// on behalf of the caller.
type Transport interface {
	// Open opens (or, if create, creates) the object named "name" and
	// returns a handle to it. An existing object is truncated to its
	// current size, never implicitly reset.
	Open(ctx context.Context, name string, create bool) (Fd, error)

	// Read reads up to len(buf) bytes starting at "offset" into buf and
	// returns how many bytes were actually read. A return of n <
	// len(buf) with a nil error is a short read, not EOF signaling: it
	// may mean the medium object is shorter than offset+len(buf), or
	// that the underlying transport chose to split the response. A
	// read entirely past the end of the object returns (0, nil).
	Read(ctx context.Context, fd Fd, buf []byte, offset int64) (int, error)

	// Write writes buf at "offset", extending the medium object with
	// implicit zero bytes if offset is beyond the current size. Returns
	// the number of bytes actually written; a short write without an
	// error is possible and must be treated as a transport-level
	// failure by the caller (the core does not retry partial writes).
	Write(ctx context.Context, fd Fd, buf []byte, offset int64) (int, error)

	// Close releases fd. Idempotent on an already-closed or invalid fd.
	Close(ctx context.Context, fd Fd) error

	// Fsync flushes any transport-side cache for fd to stable storage.
	Fsync(ctx context.Context, fd Fd) error

	// Rename renames "oldName" to "newName". If overwrite is false and
	// newName already exists, Rename fails without touching either
	// object.
	Rename(ctx context.Context, oldName, newName string, overwrite bool) error

	// Remove deletes the object named "name".
	Remove(ctx context.Context, name string) error
}
