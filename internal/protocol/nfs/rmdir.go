package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// RmdirRequest represents a RMDIR request
type RmdirRequest struct {
	DirHandle []byte
	Name      string
}

// RmdirResponse represents a RMDIR response
type RmdirResponse struct {
	Status uint32
	Before *types.WccAttr
	After  *types.FileAttr
}

// Rmdir deletes an empty subdirectory.
// RFC 1813 Section 3.3.13
func (h *Handler) Rmdir(ctx context.Context, client string, req *RmdirRequest) (*RmdirResponse, error) {
	before := h.wccBefore(ctx, client, req.DirHandle)

	err := h.vfs.Rmdir(ctx, client, req.DirHandle, req.Name)
	after := h.postOp(ctx, client, req.DirHandle)
	if err != nil {
		logger.Debug("RMDIR %q in %x: %v", req.Name, req.DirHandle, err)
	}
	return &RmdirResponse{Status: StatusOf(err), Before: before, After: after}, nil
}

func DecodeRmdirRequest(data []byte) (*RmdirRequest, error) {
	handle, name, err := xdr.DecodeDirOpArgs(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &RmdirRequest{DirHandle: handle, Name: name}, nil
}

func (resp *RmdirResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeUint32(&buf, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}
	if err := xdr.EncodeWccData(&buf, resp.Before, resp.After); err != nil {
		return nil, fmt.Errorf("encode wcc data: %w", err)
	}
	return buf.Bytes(), nil
}
