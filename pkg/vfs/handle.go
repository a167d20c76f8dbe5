package vfs

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FileHandle is the opaque, fixed-size identifier handed to NFS clients.
// Clients must treat the bytes as opaque; internally each handle is a
// table-assigned UUID so values are never reused for a different path within
// one server run. Handles are valid only for the lifetime of the process.
type FileHandle []byte

// HandleSize is the wire size of every handle issued by this server.
const HandleSize = 16

// rootID is the well-known root handle value, assigned at startup. The zero
// UUID can never collide with an allocated one (v4 UUIDs carry version bits).
var rootID = uuid.UUID{}

// RootHandle returns the well-known handle of the virtual root directory.
func RootHandle() FileHandle {
	h := make(FileHandle, HandleSize)
	copy(h, rootID[:])
	return h
}

// handleRecord is the table's view of one issued handle.
type handleRecord struct {
	virtualPath string
	mountIndex  int

	// stale is set by Invalidate and never cleared; the record is kept so
	// Resolve can distinguish a removed entity from a handle that was never
	// issued. Remove+recreate at the same path allocates a fresh handle, so
	// a stale handle can never resolve to the successor.
	stale bool
}

// HandleTable is the bidirectional mapping between opaque file handles and
// virtual paths. It is the only state shared across client connections; every
// mutation (allocate, invalidate, rename) is atomic under a single mutex so
// the de-duplication invariant holds under concurrent access.
//
// Invariants:
//   - HandleFor is idempotent: the same live path always yields the same handle
//   - an issued handle never resolves to a different entity; after the entity
//     is removed it resolves to ErrStaleHandle, never to a successor
//   - handle values are never reallocated within one process run
type HandleTable struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*handleRecord
	byPath  map[string]uuid.UUID
}

// NewHandleTable creates a table pre-seeded with the root handle for "/".
func NewHandleTable() *HandleTable {
	t := &HandleTable{
		records: make(map[uuid.UUID]*handleRecord),
		byPath:  make(map[string]uuid.UUID),
	}
	t.records[rootID] = &handleRecord{virtualPath: "/", mountIndex: -1}
	t.byPath["/"] = rootID
	return t
}

// HandleFor returns the handle for a virtual path, allocating one on first
// sight. Repeated calls with the same live path return the same handle.
func (t *HandleTable) HandleFor(virtualPath string, mountIndex int) FileHandle {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.byPath[virtualPath]; ok {
		return handleBytes(id)
	}

	id := uuid.New()
	t.records[id] = &handleRecord{
		virtualPath: virtualPath,
		mountIndex:  mountIndex,
	}
	t.byPath[virtualPath] = id
	return handleBytes(id)
}

// Resolve maps an issued handle back to its virtual path and mount index.
// It fails with ErrBadHandle for malformed or never-issued handles and with
// ErrStaleHandle once the named entity has been invalidated.
func (t *HandleTable) Resolve(handle FileHandle) (string, int, error) {
	id, err := parseHandle(handle)
	if err != nil {
		return "", -1, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.records[id]
	if !ok {
		return "", -1, newError(ErrBadHandle, "handle was never issued", "")
	}
	if rec.stale {
		return "", -1, newError(ErrStaleHandle, "stale file handle", rec.virtualPath)
	}
	return rec.virtualPath, rec.mountIndex, nil
}

// Invalidate marks the handle for a removed path stale, along with every
// handle under it (directory removal orphans previously issued descendants).
// A later HandleFor on the same path allocates a fresh handle.
func (t *HandleTable) Invalidate(virtualPath string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.invalidateLocked(virtualPath)
	prefix := strings.TrimSuffix(virtualPath, "/") + "/"
	for p := range t.byPath {
		if strings.HasPrefix(p, prefix) {
			t.invalidateLocked(p)
		}
	}
}

func (t *HandleTable) invalidateLocked(virtualPath string) {
	id, ok := t.byPath[virtualPath]
	if !ok {
		return
	}
	if rec := t.records[id]; rec != nil {
		rec.stale = true
	}
	delete(t.byPath, virtualPath)
}

// Rename re-keys the handle for oldPath to newPath in place, preserving the
// handle value so clients holding it see no spurious staleness. A handle
// already issued for newPath is invalidated first (overwrite semantics).
// Handles for entries under a renamed directory are re-keyed as well.
func (t *HandleTable) Rename(oldPath, newPath string, newMountIndex int) {
	if oldPath == newPath {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.invalidateLocked(newPath)
	t.rekeyLocked(oldPath, newPath, newMountIndex)

	oldPrefix := strings.TrimSuffix(oldPath, "/") + "/"
	newPrefix := strings.TrimSuffix(newPath, "/") + "/"
	var moves [][2]string
	for p := range t.byPath {
		if strings.HasPrefix(p, oldPrefix) {
			moves = append(moves, [2]string{p, newPrefix + p[len(oldPrefix):]})
		}
	}
	for _, mv := range moves {
		t.invalidateLocked(mv[1])
		t.rekeyLocked(mv[0], mv[1], newMountIndex)
	}
}

func (t *HandleTable) rekeyLocked(oldPath, newPath string, mountIndex int) {
	id, ok := t.byPath[oldPath]
	if !ok {
		return
	}
	rec := t.records[id]
	if rec == nil || rec.stale {
		return
	}
	delete(t.byPath, oldPath)
	rec.virtualPath = newPath
	rec.mountIndex = mountIndex
	t.byPath[newPath] = id
}

// Len reports the number of issued handles, including stale ones. Stale
// records are retained on purpose: they let Resolve distinguish "stale"
// from "never issued" for the process lifetime.
func (t *HandleTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

func handleBytes(id uuid.UUID) FileHandle {
	h := make(FileHandle, HandleSize)
	copy(h, id[:])
	return h
}

func parseHandle(handle FileHandle) (uuid.UUID, error) {
	if len(handle) != HandleSize {
		return uuid.UUID{}, newError(ErrBadHandle, "malformed file handle", "")
	}
	id, err := uuid.FromBytes(handle)
	if err != nil {
		return uuid.UUID{}, newError(ErrBadHandle, "malformed file handle", "")
	}
	return id, nil
}
