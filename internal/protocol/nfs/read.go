package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// ReadRequest represents a READ request
type ReadRequest struct {
	Handle []byte
	Offset uint64
	Count  uint32
}

// ReadResponse represents a READ response
type ReadResponse struct {
	Status uint32
	Attr   *types.FileAttr
	Data   []byte // only present if Status == NFS3OK
	EOF    bool
}

// Read returns up to Count bytes of file data from Offset.
// RFC 1813 Section 3.3.6
func (h *Handler) Read(ctx context.Context, client string, req *ReadRequest) (*ReadResponse, error) {
	data, eof, err := h.vfs.Read(ctx, client, req.Handle, req.Offset, req.Count)
	attr := h.postOp(ctx, client, req.Handle)
	if err != nil {
		logger.Debug("READ %x offset=%d count=%d: %v", req.Handle, req.Offset, req.Count, err)
		return &ReadResponse{Status: StatusOf(err), Attr: attr}, nil
	}
	return &ReadResponse{Status: NFS3OK, Attr: attr, Data: data, EOF: eof}, nil
}

func DecodeReadRequest(data []byte) (*ReadRequest, error) {
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
	return &ReadRequest{Handle: handle, Offset: offset, Count: count}, nil
}

func (resp *ReadResponse) Encode() ([]byte, error) {
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

	if err := xdr.EncodeUint32(&buf, uint32(len(resp.Data))); err != nil {
		return nil, fmt.Errorf("write count: %w", err)
	}
	if err := xdr.EncodeBool(&buf, resp.EOF); err != nil {
		return nil, fmt.Errorf("write eof: %w", err)
	}
	if err := xdr.EncodeOpaque(&buf, resp.Data); err != nil {
		return nil, fmt.Errorf("encode data: %w", err)
	}
	return buf.Bytes(), nil
}
