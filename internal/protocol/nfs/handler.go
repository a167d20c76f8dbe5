// Package nfs implements the NFS version 3 procedures (RFC 1813) on top of
// the vfs dispatcher. Each procedure lives in its own file with its request
// decoder, handler and response encoder; the connection layer wires them to
// incoming RPC calls.
package nfs

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/pkg/vfs"
)

// Handler serves the NFSv3 program against a single shared dispatcher.
type Handler struct {
	vfs *vfs.VFS

	// writeVerf is the per-boot write/cookie verifier. A client that sees
	// it change knows every unstable write must be resent.
	writeVerf [8]byte
}

// NewHandler builds the NFS program handler.
func NewHandler(v *vfs.VFS) *Handler {
	h := &Handler{vfs: v}
	binary.BigEndian.PutUint64(h.writeVerf[:], uint64(time.Now().UnixNano()))
	return h
}

// Null does nothing; clients use it to probe connectivity.
// RFC 1813 Section 3.3.0
func (h *Handler) Null() ([]byte, error) {
	return []byte{}, nil
}

// postOp fetches current attributes for optional post-op fields. Failures
// just omit the attributes; the operation's own status already tells the
// client what happened.
func (h *Handler) postOp(ctx context.Context, client string, handle []byte) *types.FileAttr {
	attr, err := h.vfs.GetAttr(ctx, client, handle)
	if err != nil {
		return nil
	}
	return types.FromVFS(attr)
}

// wccBefore captures pre-op wcc attributes for a directory about to change.
func (h *Handler) wccBefore(ctx context.Context, client string, handle []byte) *types.WccAttr {
	attr, err := h.vfs.GetAttr(ctx, client, handle)
	if err != nil {
		return nil
	}
	return types.WccFrom(attr)
}
