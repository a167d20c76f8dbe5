package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// RemoveRequest represents a REMOVE request
type RemoveRequest struct {
	DirHandle []byte
	Name      string
}

// RemoveResponse represents a REMOVE response
type RemoveResponse struct {
	Status uint32
	Before *types.WccAttr
	After  *types.FileAttr
}

// Remove deletes a file entry from a directory.
// RFC 1813 Section 3.3.12
func (h *Handler) Remove(ctx context.Context, client string, req *RemoveRequest) (*RemoveResponse, error) {
	before := h.wccBefore(ctx, client, req.DirHandle)

	err := h.vfs.Remove(ctx, client, req.DirHandle, req.Name)
	after := h.postOp(ctx, client, req.DirHandle)
	if err != nil {
		logger.Debug("REMOVE %q in %x: %v", req.Name, req.DirHandle, err)
	}
	return &RemoveResponse{Status: StatusOf(err), Before: before, After: after}, nil
}

func DecodeRemoveRequest(data []byte) (*RemoveRequest, error) {
	handle, name, err := xdr.DecodeDirOpArgs(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &RemoveRequest{DirHandle: handle, Name: name}, nil
}

func (resp *RemoveResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeUint32(&buf, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}
	if err := xdr.EncodeWccData(&buf, resp.Before, resp.After); err != nil {
		return nil, fmt.Errorf("encode wcc data: %w", err)
	}
	return buf.Bytes(), nil
}
