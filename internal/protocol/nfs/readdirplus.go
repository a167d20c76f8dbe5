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

// ReadDirPlusRequest represents a READDIRPLUS request
type ReadDirPlusRequest struct {
	DirHandle  []byte
	Cookie     uint64
	CookieVerf [8]byte
	DirCount   uint32
	MaxCount   uint32
}

// ReadDirPlusEntry is one entryplus3 on the wire.
type ReadDirPlusEntry struct {
	FileID uint64
	Name   string
	Cookie uint64
	Attr   *types.FileAttr
	Handle []byte
}

// ReadDirPlusResponse represents a READDIRPLUS response
type ReadDirPlusResponse struct {
	Status     uint32
	DirAttr    *types.FileAttr
	CookieVerf [8]byte
	Entries    []ReadDirPlusEntry
	EOF        bool
}

// ReadDirPlus returns a page of directory entries with their handles and
// attributes, saving the client a LOOKUP per entry.
// RFC 1813 Section 3.3.17
func (h *Handler) ReadDirPlus(ctx context.Context, client string, req *ReadDirPlusRequest) (*ReadDirPlusResponse, error) {
	maxEntries := entryBudget(req.DirCount, 32)
	verifier := binary.BigEndian.Uint64(req.CookieVerf[:])

	result, err := h.vfs.ReadDir(ctx, client, req.DirHandle, req.Cookie, verifier, maxEntries, true)
	dirAttr := h.postOp(ctx, client, req.DirHandle)
	if err != nil {
		logger.Debug("READDIRPLUS %x cookie=%d: %v", req.DirHandle, req.Cookie, err)
		return &ReadDirPlusResponse{Status: StatusOf(err), DirAttr: dirAttr}, nil
	}

	resp := &ReadDirPlusResponse{Status: NFS3OK, DirAttr: dirAttr, EOF: result.EOF}
	binary.BigEndian.PutUint64(resp.CookieVerf[:], result.Verifier)
	for _, e := range result.Entries {
		resp.Entries = append(resp.Entries, ReadDirPlusEntry{
			FileID: e.FileID,
			Name:   e.Name,
			Cookie: e.Cookie,
			Attr:   types.FromVFS(e.Attr),
			Handle: e.Handle,
		})
	}
	return resp, nil
}

func DecodeReadDirPlusRequest(data []byte) (*ReadDirPlusRequest, error) {
	reader := bytes.NewReader(data)
	handle, err := xdr.DecodeFileHandle(reader)
	if err != nil {
		return nil, err
	}
	cookie, err := xdr.DecodeUint64(reader)
	if err != nil {
		return nil, fmt.Errorf("read cookie: %w", err)
	}
	req := &ReadDirPlusRequest{DirHandle: handle, Cookie: cookie}
	if _, err := reader.Read(req.CookieVerf[:]); err != nil {
		return nil, fmt.Errorf("read cookie verifier: %w", err)
	}
	if req.DirCount, err = xdr.DecodeUint32(reader); err != nil {
		return nil, fmt.Errorf("read dircount: %w", err)
	}
	if req.MaxCount, err = xdr.DecodeUint32(reader); err != nil {
		return nil, fmt.Errorf("read maxcount: %w", err)
	}
	return req, nil
}

func (resp *ReadDirPlusResponse) Encode() ([]byte, error) {
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
		if err := xdr.EncodePostOpAttr(&buf, e.Attr); err != nil {
			return nil, fmt.Errorf("encode entry attr: %w", err)
		}
		if err := xdr.EncodePostOpHandle(&buf, e.Handle); err != nil {
			return nil, fmt.Errorf("encode entry handle: %w", err)
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
