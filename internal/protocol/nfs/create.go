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

// CreateRequest represents a CREATE request
type CreateRequest struct {
	DirHandle []byte
	Name      string
	Mode      uint32
	Set       *vfs.SetAttr

	// Verf holds the client verifier for EXCLUSIVE creates; the local
	// filesystem has nowhere to persist it, so exclusivity is enforced
	// through O_EXCL alone.
	Verf [8]byte
}

// CreateResponse represents a CREATE response
type CreateResponse struct {
	Status uint32
	Handle []byte
	Attr   *types.FileAttr
	Before *types.WccAttr
	After  *types.FileAttr
}

// Create makes a regular file.
// RFC 1813 Section 3.3.8
func (h *Handler) Create(ctx context.Context, client string, req *CreateRequest) (*CreateResponse, error) {
	before := h.wccBefore(ctx, client, req.DirHandle)

	exclusive := req.Mode != CreateUnchecked
	handle, attr, err := h.vfs.Create(ctx, client, req.DirHandle, req.Name, req.Set, exclusive)
	after := h.postOp(ctx, client, req.DirHandle)
	if err != nil {
		logger.Debug("CREATE %q in %x: %v", req.Name, req.DirHandle, err)
		return &CreateResponse{Status: StatusOf(err), Before: before, After: after}, nil
	}

	return &CreateResponse{
		Status: NFS3OK,
		Handle: handle,
		Attr:   types.FromVFS(attr),
		Before: before,
		After:  after,
	}, nil
}

func DecodeCreateRequest(data []byte) (*CreateRequest, error) {
	reader := bytes.NewReader(data)
	handle, name, err := xdr.DecodeDirOpArgs(reader)
	if err != nil {
		return nil, err
	}

	mode, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read create mode: %w", err)
	}

	req := &CreateRequest{DirHandle: handle, Name: name, Mode: mode}
	switch mode {
	case CreateUnchecked, CreateGuarded:
		if req.Set, err = decodeSattr3(reader); err != nil {
			return nil, err
		}
	case CreateExclusive:
		if _, err := reader.Read(req.Verf[:]); err != nil {
			return nil, fmt.Errorf("read create verifier: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown create mode %d", mode)
	}
	return req, nil
}

func (resp *CreateResponse) Encode() ([]byte, error) {
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
