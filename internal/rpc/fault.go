package rpc

import (
	"context"
	"errors"
)

// ErrInjectedFault is returned by FaultTransport when a configured fault
// fires.
var ErrInjectedFault = errors.New("rpc: injected fault")

// FaultTransport wraps another Transport and lets tests inject crash
// behavior at precise call boundaries, to drive spec scenarios like
// "crash after the new block slot and meta slot are written but before
// the counter is". It forwards everything to the wrapped transport and
// only perturbs the calls selected by FailWriteAfter/DropWriteAfter/DropFsync.
type FaultTransport struct {
	Inner Transport

	// writeCalls counts Write invocations across the whole transport.
	writeCalls int

	// FailWriteAfter, if > 0, makes the FailWriteAfter-th Write call
	// (1-indexed) silently truncate to TruncateWriteTo bytes instead of
	// writing the full buffer, simulating a torn write. A value of 0
	// disables the fault.
	FailWriteAfter int
	// TruncateWriteTo is how many bytes of the targeted write actually
	// reach the medium.
	TruncateWriteTo int

	// DropWriteAfter, if > 0, makes the DropWriteAfter-th Write call
	// (1-indexed) a no-op that reports success without writing
	// anything, simulating a write that never reached the medium.
	DropWriteAfter int

	// DropFsync makes every Fsync call a no-op success, simulating a
	// transport whose write cache was never actually flushed.
	DropFsync bool
}

// Open implements Transport.
func (f *FaultTransport) Open(ctx context.Context, name string, create bool) (Fd, error) {
	return f.Inner.Open(ctx, name, create)
}

// Read implements Transport.
func (f *FaultTransport) Read(ctx context.Context, fd Fd, buf []byte, offset int64) (int, error) {
	return f.Inner.Read(ctx, fd, buf, offset)
}

// Write implements Transport, applying whichever fault is armed for this
// call number.
func (f *FaultTransport) Write(ctx context.Context, fd Fd, buf []byte, offset int64) (int, error) {
	f.writeCalls++
	n := f.writeCalls

	if f.DropWriteAfter > 0 && n == f.DropWriteAfter {
		return len(buf), nil
	}
	if f.FailWriteAfter > 0 && n == f.FailWriteAfter {
		trunc := f.TruncateWriteTo
		if trunc > len(buf) {
			trunc = len(buf)
		}
		if trunc > 0 {
			if _, err := f.Inner.Write(ctx, fd, buf[:trunc], offset); err != nil {
				return 0, err
			}
		}
		return trunc, nil
	}
	return f.Inner.Write(ctx, fd, buf, offset)
}

// Close implements Transport.
func (f *FaultTransport) Close(ctx context.Context, fd Fd) error {
	return f.Inner.Close(ctx, fd)
}

// Fsync implements Transport.
func (f *FaultTransport) Fsync(ctx context.Context, fd Fd) error {
	if f.DropFsync {
		return nil
	}
	return f.Inner.Fsync(ctx, fd)
}

// Rename implements Transport.
func (f *FaultTransport) Rename(ctx context.Context, oldName, newName string, overwrite bool) error {
	return f.Inner.Rename(ctx, oldName, newName, overwrite)
}

// Remove implements Transport.
func (f *FaultTransport) Remove(ctx context.Context, name string) error {
	return f.Inner.Remove(ctx, name)
}

// Reset clears the call counter, so the same FaultTransport can be armed
// again for a second scenario.
func (f *FaultTransport) Reset() {
	f.writeCalls = 0
}
