package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// FsStatRequest represents a FSSTAT request
type FsStatRequest struct {
	Handle []byte
}

// FsStatResponse represents a FSSTAT response
type FsStatResponse struct {
	Status     uint32
	Attr       *types.FileAttr
	TotalBytes uint64
	FreeBytes  uint64
	AvailBytes uint64
	TotalFiles uint64
	FreeFiles  uint64
	AvailFiles uint64
	Invarsec   uint32
}

// FsStat reports dynamic usage of the filesystem backing the handle.
// RFC 1813 Section 3.3.18
func (h *Handler) FsStat(ctx context.Context, client string, req *FsStatRequest) (*FsStatResponse, error) {
	stat, attr, err := h.vfs.StatFS(ctx, client, req.Handle)
	if err != nil {
		logger.Debug("FSSTAT %x: %v", req.Handle, err)
		return &FsStatResponse{Status: StatusOf(err), Attr: h.postOp(ctx, client, req.Handle)}, nil
	}
	return &FsStatResponse{
		Status:     NFS3OK,
		Attr:       types.FromVFS(attr),
		TotalBytes: stat.TotalBytes,
		FreeBytes:  stat.FreeBytes,
		AvailBytes: stat.AvailBytes,
		TotalFiles: stat.TotalFiles,
		FreeFiles:  stat.FreeFiles,
		AvailFiles: stat.AvailFiles,
	}, nil
}

func DecodeFsStatRequest(data []byte) (*FsStatRequest, error) {
	handle, err := xdr.DecodeFileHandle(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &FsStatRequest{Handle: handle}, nil
}

func (resp *FsStatResponse) Encode() ([]byte, error) {
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

	for _, v := range []uint64{
		resp.TotalBytes, resp.FreeBytes, resp.AvailBytes,
		resp.TotalFiles, resp.FreeFiles, resp.AvailFiles,
	} {
		if err := xdr.EncodeUint64(&buf, v); err != nil {
			return nil, err
		}
	}
	if err := xdr.EncodeUint32(&buf, resp.Invarsec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
