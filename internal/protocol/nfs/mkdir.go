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

// MkdirRequest represents a MKDIR request
type MkdirRequest struct {
	DirHandle []byte
	Name      string
	Set       *vfs.SetAttr
}

// MkdirResponse represents a MKDIR response
type MkdirResponse struct {
	Status uint32
	Handle []byte
	Attr   *types.FileAttr
	Before *types.WccAttr
	After  *types.FileAttr
}

// Mkdir creates a directory.
// RFC 1813 Section 3.3.9
func (h *Handler) Mkdir(ctx context.Context, client string, req *MkdirRequest) (*MkdirResponse, error) {
	before := h.wccBefore(ctx, client, req.DirHandle)

	handle, attr, err := h.vfs.Mkdir(ctx, client, req.DirHandle, req.Name, req.Set)
	after := h.postOp(ctx, client, req.DirHandle)
	if err != nil {
		logger.Debug("MKDIR %q in %x: %v", req.Name, req.DirHandle, err)
		return &MkdirResponse{Status: StatusOf(err), Before: before, After: after}, nil
	}

	return &MkdirResponse{
		Status: NFS3OK,
		Handle: handle,
		Attr:   types.FromVFS(attr),
		Before: before,
		After:  after,
	}, nil
}

func DecodeMkdirRequest(data []byte) (*MkdirRequest, error) {
	reader := bytes.NewReader(data)
	handle, name, err := xdr.DecodeDirOpArgs(reader)
	if err != nil {
		return nil, err
	}
	set, err := decodeSattr3(reader)
	if err != nil {
		return nil, err
	}
	return &MkdirRequest{DirHandle: handle, Name: name, Set: set}, nil
}

func (resp *MkdirResponse) Encode() ([]byte, error) {
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
