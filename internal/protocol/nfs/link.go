package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// LinkRequest represents a LINK request
type LinkRequest struct {
	Handle    []byte
	DirHandle []byte
	Name      string
}

// LinkResponse represents a LINK response
type LinkResponse struct {
	Status uint32
	Attr   *types.FileAttr
	Before *types.WccAttr
	After  *types.FileAttr
}

// Link creates a hard link; both ends must live on the same mount.
// RFC 1813 Section 3.3.15
func (h *Handler) Link(ctx context.Context, client string, req *LinkRequest) (*LinkResponse, error) {
	before := h.wccBefore(ctx, client, req.DirHandle)

	attr, err := h.vfs.Link(ctx, client, req.Handle, req.DirHandle, req.Name)
	after := h.postOp(ctx, client, req.DirHandle)
	if err != nil {
		logger.Debug("LINK %q in %x: %v", req.Name, req.DirHandle, err)
		return &LinkResponse{
			Status: StatusOf(err),
			Attr:   h.postOp(ctx, client, req.Handle),
			Before: before,
			After:  after,
		}, nil
	}

	return &LinkResponse{
		Status: NFS3OK,
		Attr:   types.FromVFS(attr),
		Before: before,
		After:  after,
	}, nil
}

func DecodeLinkRequest(data []byte) (*LinkRequest, error) {
	reader := bytes.NewReader(data)
	handle, err := xdr.DecodeFileHandle(reader)
	if err != nil {
		return nil, err
	}
	dirHandle, name, err := xdr.DecodeDirOpArgs(reader)
	if err != nil {
		return nil, err
	}
	return &LinkRequest{Handle: handle, DirHandle: dirHandle, Name: name}, nil
}

func (resp *LinkResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeUint32(&buf, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}
	if err := xdr.EncodePostOpAttr(&buf, resp.Attr); err != nil {
		return nil, fmt.Errorf("encode attr: %w", err)
	}
	if err := xdr.EncodeWccData(&buf, resp.Before, resp.After); err != nil {
		return nil, fmt.Errorf("encode wcc data: %w", err)
	}
	return buf.Bytes(), nil
}
