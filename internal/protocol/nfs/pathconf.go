package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// PathConfRequest represents a PATHCONF request
type PathConfRequest struct {
	Handle []byte
}

// PathConfResponse represents a PATHCONF response
type PathConfResponse struct {
	Status          uint32
	Attr            *types.FileAttr
	LinkMax         uint32
	NameMax         uint32
	NoTrunc         bool
	ChownRestricted bool
	CaseInsensitive bool
	CasePreserving  bool
}

// PathConf reports POSIX pathconf values for the handle's filesystem.
// RFC 1813 Section 3.3.20
func (h *Handler) PathConf(ctx context.Context, client string, req *PathConfRequest) (*PathConfResponse, error) {
	conf, attr, err := h.vfs.Conf(ctx, client, req.Handle)
	if err != nil {
		logger.Debug("PATHCONF %x: %v", req.Handle, err)
		return &PathConfResponse{Status: StatusOf(err), Attr: h.postOp(ctx, client, req.Handle)}, nil
	}
	return &PathConfResponse{
		Status:          NFS3OK,
		Attr:            types.FromVFS(attr),
		LinkMax:         conf.LinkMax,
		NameMax:         conf.NameMax,
		NoTrunc:         conf.NoTrunc,
		ChownRestricted: conf.ChownRestricted,
		CaseInsensitive: conf.CaseInsensitive,
		CasePreserving:  conf.CasePreserving,
	}, nil
}

func DecodePathConfRequest(data []byte) (*PathConfRequest, error) {
	handle, err := xdr.DecodeFileHandle(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &PathConfRequest{Handle: handle}, nil
}

func (resp *PathConfResponse) Encode() ([]byte, error) {
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

	if err := xdr.EncodeUint32(&buf, resp.LinkMax); err != nil {
		return nil, err
	}
	if err := xdr.EncodeUint32(&buf, resp.NameMax); err != nil {
		return nil, err
	}
	for _, b := range []bool{resp.NoTrunc, resp.ChownRestricted, resp.CaseInsensitive, resp.CasePreserving} {
		if err := xdr.EncodeBool(&buf, b); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
