// Package securestore is the thin public vtable wiring spec.md called
// out of scope: it wraps a store.Handle behind a stable File
// type, and tracks every open Store so internal/ctlsocksrv can report
// status without reaching into store internals.
package securestore

import (
	"context"
	"sync"
	"time"

	"github.com/extimsu/securestore/internal/ctlsock"
	"github.com/extimsu/securestore/internal/filenameauth"
	"github.com/extimsu/securestore/internal/keymanager"
	"github.com/extimsu/securestore/internal/memprotect"
	"github.com/extimsu/securestore/internal/rpc"
	"github.com/extimsu/securestore/internal/store"
)

// File is an open object. It forwards every call to the underlying
// store.Handle; it exists so callers depend on pkg/securestore rather
// than reaching into internal/store directly.
type File struct {
	h          *store.Handle
	s          *Store
	logicalName string
	commitTime time.Time
}

// Read implements the file-ops contract's read(h, buf, &len).
func (f *File) Read(ctx context.Context, buf []byte) (int, error) {
	return f.h.Read(ctx, buf)
}

// Write implements write(h, buf, len).
func (f *File) Write(ctx context.Context, buf []byte) (int, error) {
	n, err := f.h.Write(ctx, buf)
	if err == nil {
		f.commitTime = now()
	}
	return n, err
}

// Seek implements seek(h, off, whence).
func (f *File) Seek(offset int64, whence int) (int64, error) {
	return f.h.Seek(offset, whence)
}

// Truncate implements truncate(h, len).
func (f *File) Truncate(ctx context.Context, newLen uint32) error {
	err := f.h.Truncate(ctx, newLen)
	if err == nil {
		f.commitTime = now()
	}
	return err
}

// Fsync implements fsync(h).
func (f *File) Fsync(ctx context.Context) error {
	return f.h.Fsync(ctx)
}

// Close implements close(handle) and deregisters the file from its
// Store's status registry.
func (f *File) Close(ctx context.Context) error {
	f.s.forget(f)
	return f.h.Close(ctx)
}

// Length returns the file's current logical length.
func (f *File) Length() uint32 { return f.h.Length() }

// Handle exposes the underlying store.Handle, for callers that need
// capabilities pkg/securestore doesn't forward (internal/scrub's
// VerifyBlock, in particular).
func (f *File) Handle() *store.Handle { return f.h }

// now returns the current wall-clock time, recorded as a File's commit
// time. It is a plain function; tests cannot replace it.
func now() time.Time { return time.Now() }

// Store owns one RPC transport and key manager, and tracks every File
// opened through it for status reporting.
type Store struct {
	name      string
	transport rpc.Transport
	km        *keymanager.Manager
	wrapKey   []byte
	fa        *filenameauth.FilenameAuth
	mp        *memprotect.MemoryProtection

	mu    sync.Mutex
	files map[*File]struct{}
}

// New returns a Store named name (used only for status reporting),
// backed by transport, authenticating objects for km's owner id, with
// meta slots wrapped under wrapKey (the store's master key, derived by
// internal/configfile from an operator passphrase). Object names are
// suffixed with an HMAC over wrapKey before they reach the transport.
// Open does not verify that suffix, and the AEAD associated data binds
// only file type and owner, not name, so an object moved on the medium
// to another name's wire name opens without error under that name.
func New(name string, transport rpc.Transport, km *keymanager.Manager, wrapKey []byte) *Store {
	mp := memprotect.New()
	mp.LockMemory(wrapKey)
	return &Store{
		name:      name,
		transport: transport,
		km:        km,
		wrapKey:   wrapKey,
		fa:        filenameauth.New(wrapKey, true),
		mp:        mp,
		files:     make(map[*File]struct{}),
	}
}

// Create implements create(name).
func (s *Store) Create(ctx context.Context, name string) (*File, error) {
	wireName, err := s.fa.AuthenticateFilename(name)
	if err != nil {
		return nil, err
	}
	h, err := store.Create(ctx, s.transport, s.km, s.wrapKey, wireName)
	if err != nil {
		return nil, err
	}
	return s.track(h, name), nil
}

// Open implements open(name).
func (s *Store) Open(ctx context.Context, name string) (*File, error) {
	wireName, err := s.fa.AuthenticateFilename(name)
	if err != nil {
		return nil, err
	}
	h, err := store.Open(ctx, s.transport, s.km, s.wrapKey, wireName)
	if err != nil {
		return nil, err
	}
	return s.track(h, name), nil
}

// Rename implements rename(old, new, overwrite), re-authenticating both
// names before they reach the transport.
func (s *Store) Rename(ctx context.Context, oldName, newName string, overwrite bool) error {
	oldWire, err := s.fa.AuthenticateFilename(oldName)
	if err != nil {
		return err
	}
	newWire, err := s.fa.AuthenticateFilename(newName)
	if err != nil {
		return err
	}
	return store.Rename(ctx, s.transport, oldWire, newWire, overwrite)
}

// Remove implements remove(name).
func (s *Store) Remove(ctx context.Context, name string) error {
	wireName, err := s.fa.AuthenticateFilename(name)
	if err != nil {
		return err
	}
	return store.Remove(ctx, s.transport, wireName)
}

// Close wipes the store's wrapping key and filename-auth MAC key. Files
// still open through s remain usable; no further Create, Open, Rename,
// or Remove calls should be made on s afterward.
func (s *Store) Close() {
	s.fa.Wipe()
	s.mp.SecureWipeEnhanced(s.wrapKey)
}

func (s *Store) track(h *store.Handle, logicalName string) *File {
	f := &File{h: h, s: s, logicalName: logicalName, commitTime: now()}
	s.mu.Lock()
	s.files[f] = struct{}{}
	s.mu.Unlock()
	return f
}

func (s *Store) forget(f *File) {
	s.mu.Lock()
	delete(s.files, f)
	s.mu.Unlock()
}

// Status implements ctlsocksrv.Registry: a snapshot of every currently
// open File's object, or nothing if this Store's name doesn't match a
// non-empty filter.
func (s *Store) Status(filter string) ([]ctlsock.StoreStatus, error) {
	if filter != "" && filter != s.name {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ctlsock.StoreStatus, 0, len(s.files))
	for f := range s.files {
		out = append(out, ctlsock.StoreStatus{
			Name:              f.logicalName,
			MetaCounter:       f.h.MetaCounter(),
			Length:            f.h.Length(),
			OpenHandles:       1,
			BackupBitsFlipped: f.h.BackupBitsSet(),
			LastCommitAt:      f.commitTime.Unix(),
		})
	}
	return out, nil
}

// MultiRegistry fans Status out across several Stores, for a process
// that has more than one store open at once.
type MultiRegistry struct {
	mu     sync.Mutex
	stores map[string]*Store
}

// NewMultiRegistry returns an empty MultiRegistry.
func NewMultiRegistry() *MultiRegistry {
	return &MultiRegistry{stores: make(map[string]*Store)}
}

// Add registers s under its name, so it shows up in subsequent Status
// calls.
func (r *MultiRegistry) Add(s *Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[s.name] = s
}

// Remove deregisters the store named name.
func (r *MultiRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, name)
}

// Status implements ctlsocksrv.Registry.
func (r *MultiRegistry) Status(filter string) ([]ctlsock.StoreStatus, error) {
	r.mu.Lock()
	stores := make([]*Store, 0, len(r.stores))
	if filter == "" {
		for _, s := range r.stores {
			stores = append(stores, s)
		}
	} else if s, ok := r.stores[filter]; ok {
		stores = append(stores, s)
	}
	r.mu.Unlock()

	var out []ctlsock.StoreStatus
	for _, s := range stores {
		st, err := s.Status("")
		if err != nil {
			return nil, err
		}
		out = append(out, st...)
	}
	return out, nil
}
