package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// ReadLinkRequest represents a READLINK request
type ReadLinkRequest struct {
	Handle []byte
}

// ReadLinkResponse represents a READLINK response
type ReadLinkResponse struct {
	Status uint32
	Attr   *types.FileAttr
	Target string // only present if Status == NFS3OK
}

// ReadLink returns the stored target of a symbolic link.
// RFC 1813 Section 3.3.5
func (h *Handler) ReadLink(ctx context.Context, client string, req *ReadLinkRequest) (*ReadLinkResponse, error) {
	target, err := h.vfs.Readlink(ctx, client, req.Handle)
	attr := h.postOp(ctx, client, req.Handle)
	if err != nil {
		logger.Debug("READLINK %x: %v", req.Handle, err)
		return &ReadLinkResponse{Status: StatusOf(err), Attr: attr}, nil
	}
	return &ReadLinkResponse{Status: NFS3OK, Attr: attr, Target: target}, nil
}

func DecodeReadLinkRequest(data []byte) (*ReadLinkRequest, error) {
	handle, err := xdr.DecodeFileHandle(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &ReadLinkRequest{Handle: handle}, nil
}

func (resp *ReadLinkResponse) Encode() ([]byte, error) {
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
	if err := xdr.EncodeString(&buf, resp.Target); err != nil {
		return nil, fmt.Errorf("encode target: %w", err)
	}
	return buf.Bytes(), nil
}
