package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// WriteRequest represents a WRITE request
type WriteRequest struct {
	Handle []byte
	Offset uint64
	Count  uint32
	Stable uint32
	Data   []byte
}

// WriteResponse represents a WRITE response
type WriteResponse struct {
	Status    uint32
	Before    *types.WccAttr
	After     *types.FileAttr
	Count     uint32
	Committed uint32
	Verf      [8]byte
}

// Write stores file data at the requested offset. Stability above
// WriteUnstable is honored with an fsync before the reply, so the committed
// level always matches what the client asked for.
// RFC 1813 Section 3.3.7
func (h *Handler) Write(ctx context.Context, client string, req *WriteRequest) (*WriteResponse, error) {
	before := h.wccBefore(ctx, client, req.Handle)

	data := req.Data
	if uint32(len(data)) > req.Count {
		data = data[:req.Count]
	}

	sync := req.Stable != WriteUnstable
	attr, written, err := h.vfs.Write(ctx, client, req.Handle, req.Offset, data, sync)
	if err != nil {
		logger.Debug("WRITE %x offset=%d count=%d: %v", req.Handle, req.Offset, req.Count, err)
		return &WriteResponse{
			Status: StatusOf(err),
			Before: before,
			After:  h.postOp(ctx, client, req.Handle),
			Verf:   h.writeVerf,
		}, nil
	}

	committed := uint32(WriteUnstable)
	if sync {
		committed = req.Stable
	}
	return &WriteResponse{
		Status:    NFS3OK,
		Before:    before,
		After:     types.FromVFS(attr),
		Count:     written,
		Committed: committed,
		Verf:      h.writeVerf,
	}, nil
}

func DecodeWriteRequest(data []byte) (*WriteRequest, error) {
	reader := bytes.NewReader(data)
	handle, err := xdr.DecodeFileHandle(reader)
	if err != nil {
		return nil, err
	}
	offset, err := xdr.DecodeUint64(reader)
	if err != nil {
		return nil, fmt.Errorf("read offset: %w", err)
	}
	count, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	stable, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read stability: %w", err)
	}
	payload, err := xdr.DecodeOpaque(reader)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	return &WriteRequest{
		Handle: handle,
		Offset: offset,
		Count:  count,
		Stable: stable,
		Data:   payload,
	}, nil
}

func (resp *WriteResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeUint32(&buf, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}
	if err := xdr.EncodeWccData(&buf, resp.Before, resp.After); err != nil {
		return nil, fmt.Errorf("encode wcc data: %w", err)
	}
	if resp.Status != NFS3OK {
		return buf.Bytes(), nil
	}

	if err := xdr.EncodeUint32(&buf, resp.Count); err != nil {
		return nil, fmt.Errorf("write count: %w", err)
	}
	if err := xdr.EncodeUint32(&buf, resp.Committed); err != nil {
		return nil, fmt.Errorf("write committed: %w", err)
	}
	buf.Write(resp.Verf[:])
	return buf.Bytes(), nil
}
