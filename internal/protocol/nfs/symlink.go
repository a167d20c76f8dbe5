package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
	"github.com/benignx/nfsmirror/pkg/vfs"
)

// SymlinkRequest represents a SYMLINK request
type SymlinkRequest struct {
	DirHandle []byte
	Name      string
	Set       *vfs.SetAttr
	Target    string
}

// SymlinkResponse represents a SYMLINK response
type SymlinkResponse struct {
	Status uint32
	Handle []byte
	Attr   *types.FileAttr
	Before *types.WccAttr
	After  *types.FileAttr
}

// Symlink creates a symbolic link.
// RFC 1813 Section 3.3.10
func (h *Handler) Symlink(ctx context.Context, client string, req *SymlinkRequest) (*SymlinkResponse, error) {
	before := h.wccBefore(ctx, client, req.DirHandle)

	handle, attr, err := h.vfs.Symlink(ctx, client, req.DirHandle, req.Name, req.Target)
	after := h.postOp(ctx, client, req.DirHandle)
	if err != nil {
		logger.Debug("SYMLINK %q -> %q in %x: %v", req.Name, req.Target, req.DirHandle, err)
		return &SymlinkResponse{Status: StatusOf(err), Before: before, After: after}, nil
	}

	return &SymlinkResponse{
		Status: NFS3OK,
		Handle: handle,
		Attr:   types.FromVFS(attr),
		Before: before,
		After:  after,
	}, nil
}

func DecodeSymlinkRequest(data []byte) (*SymlinkRequest, error) {
	reader := bytes.NewReader(data)
	handle, name, err := xdr.DecodeDirOpArgs(reader)
	if err != nil {
		return nil, err
	}
	set, err := decodeSattr3(reader)
	if err != nil {
		return nil, err
	}
	target, err := xdr.DecodeString(reader)
	if err != nil {
		return nil, fmt.Errorf("read target: %w", err)
	}
	return &SymlinkRequest{DirHandle: handle, Name: name, Set: set, Target: target}, nil
}

func (resp *SymlinkResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeUint32(&buf, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}

	if resp.Status == NFS3OK {
		if err := xdr.EncodePostOpHandle(&buf, resp.Handle); err != nil {
			return nil, fmt.Errorf("encode handle: %w", err)
		}
		if err := xdr.EncodePostOpAttr(&buf, resp.Attr); err != nil {
			return nil, fmt.Errorf("encode attr: %w", err)
		}
	}
	if err := xdr.EncodeWccData(&buf, resp.Before, resp.After); err != nil {
		return nil, fmt.Errorf("encode wcc data: %w", err)
	}
	return buf.Bytes(), nil
}
