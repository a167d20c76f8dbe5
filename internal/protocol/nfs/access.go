package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// AccessRequest represents an ACCESS request
type AccessRequest struct {
	Handle []byte
	Access uint32
}

// AccessResponse represents an ACCESS response
type AccessResponse struct {
	Status uint32
	Attr   *types.FileAttr
	Access uint32 // granted subset, only present if Status == NFS3OK
}

// Access reports which of the requested operation classes the policy allows.
// RFC 1813 Section 3.3.4
func (h *Handler) Access(ctx context.Context, client string, req *AccessRequest) (*AccessResponse, error) {
	granted, attr, err := h.vfs.Access(ctx, client, req.Handle, req.Access)
	if err != nil {
		logger.Debug("ACCESS %x: %v", req.Handle, err)
		return &AccessResponse{Status: StatusOf(err)}, nil
	}
	return &AccessResponse{Status: NFS3OK, Attr: types.FromVFS(attr), Access: granted}, nil
}

func DecodeAccessRequest(data []byte) (*AccessRequest, error) {
	reader := bytes.NewReader(data)
	handle, err := xdr.DecodeFileHandle(reader)
	if err != nil {
		return nil, err
	}
	access, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read access mask: %w", err)
	}
	return &AccessRequest{Handle: handle, Access: access}, nil
}

func (resp *AccessResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeUint32(&buf, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}
	if err := xdr.EncodePostOpAttr(&buf, resp.Attr); err != nil {
		return nil, fmt.Errorf("encode attr: %w", err)
	}
	if resp.Status != NFS3OK {
		return buf.Bytes(), nil
	}
	if err := xdr.EncodeUint32(&buf, resp.Access); err != nil {
		return nil, fmt.Errorf("write access mask: %w", err)
	}
	return buf.Bytes(), nil
}
