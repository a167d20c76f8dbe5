package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// LookupRequest represents a LOOKUP request
type LookupRequest struct {
	DirHandle []byte
	Name      string
}

// LookupResponse represents a LOOKUP response
type LookupResponse struct {
	Status  uint32
	Handle  []byte          // only present if Status == NFS3OK
	Attr    *types.FileAttr // optional object attributes
	DirAttr *types.FileAttr // optional directory attributes (both arms)
}

// Lookup resolves one name inside a directory to its handle.
// RFC 1813 Section 3.3.3
func (h *Handler) Lookup(ctx context.Context, client string, req *LookupRequest) (*LookupResponse, error) {
	handle, attr, err := h.vfs.Lookup(ctx, client, req.DirHandle, req.Name)
	dirAttr := h.postOp(ctx, client, req.DirHandle)
	if err != nil {
		logger.Debug("LOOKUP %q in %x: %v", req.Name, req.DirHandle, err)
		return &LookupResponse{Status: StatusOf(err), DirAttr: dirAttr}, nil
	}

	return &LookupResponse{
		Status:  NFS3OK,
		Handle:  handle,
		Attr:    types.FromVFS(attr),
		DirAttr: dirAttr,
	}, nil
}

func DecodeLookupRequest(data []byte) (*LookupRequest, error) {
	handle, name, err := xdr.DecodeDirOpArgs(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &LookupRequest{DirHandle: handle, Name: name}, nil
}

func (resp *LookupResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeUint32(&buf, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}

	if resp.Status != NFS3OK {
		if err := xdr.EncodePostOpAttr(&buf, resp.DirAttr); err != nil {
			return nil, fmt.Errorf("encode dir attr: %w", err)
		}
		return buf.Bytes(), nil
	}

	if err := xdr.EncodeOpaque(&buf, resp.Handle); err != nil {
		return nil, fmt.Errorf("encode handle: %w", err)
	}
	if err := xdr.EncodePostOpAttr(&buf, resp.Attr); err != nil {
		return nil, fmt.Errorf("encode attr: %w", err)
	}
	if err := xdr.EncodePostOpAttr(&buf, resp.DirAttr); err != nil {
		return nil, fmt.Errorf("encode dir attr: %w", err)
	}
	return buf.Bytes(), nil
}
