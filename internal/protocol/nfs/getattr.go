package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// GetAttrRequest represents a GETATTR request
type GetAttrRequest struct {
	Handle []byte
}

// GetAttrResponse represents a GETATTR response
type GetAttrResponse struct {
	Status uint32
	Attr   *types.FileAttr // only present if Status == NFS3OK
}

// GetAttr returns the attributes for a filesystem object.
// RFC 1813 Section 3.3.1
func (h *Handler) GetAttr(ctx context.Context, client string, req *GetAttrRequest) (*GetAttrResponse, error) {
	attr, err := h.vfs.GetAttr(ctx, client, req.Handle)
	if err != nil {
		logger.Debug("GETATTR %x: %v", req.Handle, err)
		return &GetAttrResponse{Status: StatusOf(err)}, nil
	}
	return &GetAttrResponse{Status: NFS3OK, Attr: types.FromVFS(attr)}, nil
}

func DecodeGetAttrRequest(data []byte) (*GetAttrRequest, error) {
	handle, err := xdr.DecodeFileHandle(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &GetAttrRequest{Handle: handle}, nil
}

func (resp *GetAttrResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeUint32(&buf, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}
	if resp.Status != NFS3OK {
		return buf.Bytes(), nil
	}
	if err := xdr.EncodeFileAttr(&buf, resp.Attr); err != nil {
		return nil, fmt.Errorf("encode attr: %w", err)
	}
	return buf.Bytes(), nil
}
