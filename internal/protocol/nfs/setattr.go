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

// SetAttrRequest represents a SETATTR request
type SetAttrRequest struct {
	Handle []byte
	Set    *vfs.SetAttr

	// Guard, when non-nil, makes the update conditional on the object's
	// current ctime (sattrguard3).
	Guard *types.TimeVal
}

// SetAttrResponse represents a SETATTR response
type SetAttrResponse struct {
	Status uint32
	Before *types.WccAttr
	After  *types.FileAttr
}

// SetAttr changes attributes of a filesystem object.
// RFC 1813 Section 3.3.2
func (h *Handler) SetAttr(ctx context.Context, client string, req *SetAttrRequest) (*SetAttrResponse, error) {
	before := h.wccBefore(ctx, client, req.Handle)

	if req.Guard != nil {
		cur, err := h.vfs.GetAttr(ctx, client, req.Handle)
		if err != nil {
			return &SetAttrResponse{Status: StatusOf(err), Before: before}, nil
		}
		if types.TimeFrom(cur.Ctime) != *req.Guard {
			return &SetAttrResponse{
				Status: NFS3ErrNotSync,
				Before: before,
				After:  types.FromVFS(cur),
			}, nil
		}
	}

	attr, err := h.vfs.SetAttr(ctx, client, req.Handle, req.Set)
	if err != nil {
		logger.Debug("SETATTR %x: %v", req.Handle, err)
		return &SetAttrResponse{
			Status: StatusOf(err),
			Before: before,
			After:  h.postOp(ctx, client, req.Handle),
		}, nil
	}

	return &SetAttrResponse{Status: NFS3OK, Before: before, After: types.FromVFS(attr)}, nil
}

func DecodeSetAttrRequest(data []byte) (*SetAttrRequest, error) {
	reader := bytes.NewReader(data)
	handle, err := xdr.DecodeFileHandle(reader)
	if err != nil {
		return nil, err
	}
	set, err := decodeSattr3(reader)
	if err != nil {
		return nil, err
	}

	req := &SetAttrRequest{Handle: handle, Set: set}

	guarded, err := xdr.DecodeBool(reader)
	if err != nil {
		return nil, fmt.Errorf("read guard flag: %w", err)
	}
	if guarded {
		seconds, err := xdr.DecodeUint32(reader)
		if err != nil {
			return nil, fmt.Errorf("read guard ctime: %w", err)
		}
		nseconds, err := xdr.DecodeUint32(reader)
		if err != nil {
			return nil, fmt.Errorf("read guard ctime: %w", err)
		}
		req.Guard = &types.TimeVal{Seconds: seconds, Nseconds: nseconds}
	}
	return req, nil
}

func (resp *SetAttrResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeUint32(&buf, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}
	if err := xdr.EncodeWccData(&buf, resp.Before, resp.After); err != nil {
		return nil, fmt.Errorf("encode wcc data: %w", err)
	}
	return buf.Bytes(), nil
}
