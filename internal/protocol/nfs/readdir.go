package nfs

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// ReadDirRequest represents a READDIR request
type ReadDirRequest struct {
	DirHandle  []byte
	Cookie     uint64
	CookieVerf [8]byte
	Count      uint32
}

// ReadDirEntry is one entry3 on the wire.
type ReadDirEntry struct {
	FileID uint64
	Name   string
	Cookie uint64
}

// ReadDirResponse represents a READDIR response
type ReadDirResponse struct {
	Status     uint32
	DirAttr    *types.FileAttr
	CookieVerf [8]byte
	Entries    []ReadDirEntry
	EOF        bool
}

// ReadDir returns a page of directory entries.
// RFC 1813 Section 3.3.16
func (h *Handler) ReadDir(ctx context.Context, client string, req *ReadDirRequest) (*ReadDirResponse, error) {
	maxEntries := entryBudget(req.Count, 32)
	verifier := binary.BigEndian.Uint64(req.CookieVerf[:])

	result, err := h.vfs.ReadDir(ctx, client, req.DirHandle, req.Cookie, verifier, maxEntries, false)
	dirAttr := h.postOp(ctx, client, req.DirHandle)
	if err != nil {
		logger.Debug("READDIR %x cookie=%d: %v", req.DirHandle, req.Cookie, err)
		return &ReadDirResponse{Status: StatusOf(err), DirAttr: dirAttr}, nil
	}

	resp := &ReadDirResponse{Status: NFS3OK, DirAttr: dirAttr, EOF: result.EOF}
	binary.BigEndian.PutUint64(resp.CookieVerf[:], result.Verifier)
	for _, e := range result.Entries {
		resp.Entries = append(resp.Entries, ReadDirEntry{
			FileID: e.FileID,
			Name:   e.Name,
			Cookie: e.Cookie,
		})
	}
	return resp, nil
}

// entryBudget estimates how many entries fit the client's byte budget,
// clamped to keep one reply bounded either way.
func entryBudget(count uint32, perEntry uint32) int {
	if count == 0 {
		return 256
	}
	n := int(count / perEntry)
	if n < 8 {
		return 8
	}
	if n > 4096 {
		return 4096
	}
	return n
}

func DecodeReadDirRequest(data []byte) (*ReadDirRequest, error) {
	reader := bytes.NewReader(data)
	handle, err := xdr.DecodeFileHandle(reader)
	if err != nil {
		return nil, err
	}
	cookie, err := xdr.DecodeUint64(reader)
	if err != nil {
		return nil, fmt.Errorf("read cookie: %w", err)
	}
	req := &ReadDirRequest{DirHandle: handle, Cookie: cookie}
	if _, err := reader.Read(req.CookieVerf[:]); err != nil {
		return nil, fmt.Errorf("read cookie verifier: %w", err)
	}
	if req.Count, err = xdr.DecodeUint32(reader); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	return req, nil
}

func (resp *ReadDirResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeUint32(&buf, resp.Status); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}
	if err := xdr.EncodePostOpAttr(&buf, resp.DirAttr); err != nil {
		return nil, fmt.Errorf("encode dir attr: %w", err)
	}
	if resp.Status != NFS3OK {
		return buf.Bytes(), nil
	}

	buf.Write(resp.CookieVerf[:])
	for _, e := range resp.Entries {
		if err := xdr.EncodeBool(&buf, true); err != nil {
			return nil, err
		}
		if err := xdr.EncodeUint64(&buf, e.FileID); err != nil {
			return nil, err
		}
		if err := xdr.EncodeString(&buf, e.Name); err != nil {
			return nil, fmt.Errorf("encode name %q: %w", e.Name, err)
		}
		if err := xdr.EncodeUint64(&buf, e.Cookie); err != nil {
			return nil, err
		}
	}
	if err := xdr.EncodeBool(&buf, false); err != nil {
		return nil, err
	}
	if err := xdr.EncodeBool(&buf, resp.EOF); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
