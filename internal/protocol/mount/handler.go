// Package mount implements the MOUNT version 3 side protocol (RFC 1813
// Appendix I). Clients call MNT to exchange an export path for the root
// file handle of that export; everything afterwards travels over the NFS
// program by handle. The handler also keeps the informational mount table
// that DUMP, UMNT and UMNTALL operate on.
package mount

import (
	"net"
	"sync"

	"github.com/benignx/nfsmirror/pkg/vfs"
)

// Handler serves the MOUNT program against the shared dispatcher.
type Handler struct {
	vfs *vfs.VFS

	// mu guards the mount table. The table is informational only (RFC 1813
	// allows it to be stale), so UMNT of an unknown entry is not an error.
	mu     sync.Mutex
	mounts []mountRecord
}

type mountRecord struct {
	client string
	dir    string
}

// NewHandler builds the MOUNT program handler.
func NewHandler(v *vfs.VFS) *Handler {
	return &Handler{vfs: v}
}

// Null does nothing; clients use it to probe connectivity.
func (h *Handler) Null() ([]byte, error) {
	return []byte{}, nil
}

// recordMount notes a successful MNT. Duplicate entries are collapsed so a
// client remounting after a crash does not grow the table.
func (h *Handler) recordMount(client, dir string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, rec := range h.mounts {
		if rec.client == client && rec.dir == dir {
			return
		}
	}
	h.mounts = append(h.mounts, mountRecord{client: client, dir: dir})
}

func (h *Handler) removeMount(client, dir string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.mounts[:0]
	for _, rec := range h.mounts {
		if rec.client == client && rec.dir == dir {
			continue
		}
		kept = append(kept, rec)
	}
	h.mounts = kept
}

func (h *Handler) removeAllMounts(client string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := 0
	kept := h.mounts[:0]
	for _, rec := range h.mounts {
		if rec.client == client {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	h.mounts = kept
	return removed
}

func (h *Handler) listMounts() []mountRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]mountRecord, len(h.mounts))
	copy(out, h.mounts)
	return out
}

// clientHost strips the port from a client network address. DUMP entries and
// the mount table key on the host, not the ephemeral source port.
func clientHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// mountStatus translates a dispatcher error into a MOUNT status code.
func mountStatus(err error) uint32 {
	switch vfs.CodeOf(err) {
	case vfs.ErrNotFound:
		return MountErrNoEnt
	case vfs.ErrNotDirectory:
		return MountErrNotDir
	case vfs.ErrAccessDenied, vfs.ErrReadOnly:
		return MountErrAccess
	case vfs.ErrInvalidPath:
		return MountErrInval
	case vfs.ErrNotSupported:
		return MountErrNotSupp
	default:
		return MountErrIO
	}
}
