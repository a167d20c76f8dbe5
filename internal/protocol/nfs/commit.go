package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// CommitRequest represents a COMMIT request
type CommitRequest struct {
	Handle []byte
	Offset uint64
	Count  uint32
}

// CommitResponse represents a COMMIT response
type CommitResponse struct {
	Status uint32
	Before *types.WccAttr
	After  *types.FileAttr
	Verf   [8]byte
}

// Commit flushes previously written data to stable storage. The offset and
// count are advisory; the whole file is synced.
// RFC 1813 Section 3.3.21
func (h *Handler) Commit(ctx context.Context, client string, req *CommitRequest) (*CommitResponse, error) {
	before := h.wccBefore(ctx, client, req.Handle)

	attr, err := h.vfs.Commit(ctx, client, req.Handle)
	if err != nil {
		logger.Debug("COMMIT %x: %v", req.Handle, err)
		return &CommitResponse{
			Status: StatusOf(err),
			Before: before,
			After:  h.postOp(ctx, client, req.Handle),
			Verf:   h.writeVerf,
		}, nil
	}
	return &CommitResponse{
		Status: NFS3OK,
		Before: before,
		After:  types.FromVFS(attr),
		Verf:   h.writeVerf,
	}, nil
}

func DecodeCommitRequest(data []byte) (*CommitRequest, error) {
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
	return &CommitRequest{Handle: handle, Offset: offset, Count: count}, nil
}

func (resp *CommitResponse) Encode() ([]byte, error) {
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
	buf.Write(resp.Verf[:])
	return buf.Bytes(), nil
}
