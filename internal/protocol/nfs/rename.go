package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// RenameRequest represents a RENAME request
type RenameRequest struct {
	FromDirHandle []byte
	FromName      string
	ToDirHandle   []byte
	ToName        string
}

// RenameResponse represents a RENAME response
type RenameResponse struct {
	Status     uint32
	FromBefore *types.WccAttr
	FromAfter  *types.FileAttr
	ToBefore   *types.WccAttr
	ToAfter    *types.FileAttr
}

// Rename moves an entry between directories. Moves that would cross mount
// entries are rejected with NFS3ERR_XDEV; the client falls back to
// copy-and-remove.
// RFC 1813 Section 3.3.14
func (h *Handler) Rename(ctx context.Context, client string, req *RenameRequest) (*RenameResponse, error) {
	fromBefore := h.wccBefore(ctx, client, req.FromDirHandle)
	toBefore := h.wccBefore(ctx, client, req.ToDirHandle)

	err := h.vfs.Rename(ctx, client, req.FromDirHandle, req.FromName, req.ToDirHandle, req.ToName)
	if err != nil {
		logger.Debug("RENAME %q -> %q: %v", req.FromName, req.ToName, err)
	}

	return &RenameResponse{
		Status:     StatusOf(err),
		FromBefore: fromBefore,
		FromAfter:  h.postOp(ctx, client, req.FromDirHandle),
		ToBefore:   toBefore,
		ToAfter:    h.postOp(ctx, client, req.ToDirHandle),
	}, nil
}

func DecodeRenameRequest(data []byte) (*RenameRequest, error) {
	reader := bytes.NewReader(data)
	fromHandle, fromName, err := xdr.DecodeDirOpArgs(reader)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	toHandle, toName, err := xdr.DecodeDirOpArgs(reader)
	if err != nil {
		return nil, fmt.Errorf("read destination: %w", err)
	}
	return &RenameRequest{
		FromDirHandle: fromHandle,
		FromName:      fromName,
		ToDirHandle:   toHandle,
		ToName:        toName,
	}, nil
}

func (resp *RenameResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeUint32(&buf, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}
	if err := xdr.EncodeWccData(&buf, resp.FromBefore, resp.FromAfter); err != nil {
		return nil, fmt.Errorf("encode source wcc: %w", err)
	}
	if err := xdr.EncodeWccData(&buf, resp.ToBefore, resp.ToAfter); err != nil {
		return nil, fmt.Errorf("encode destination wcc: %w", err)
	}
	return buf.Bytes(), nil
}
