package nfs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// FsInfoRequest represents a FSINFO request
type FsInfoRequest struct {
	Handle []byte
}

// FsInfoResponse represents a FSINFO response
type FsInfoResponse struct {
	Status      uint32
	Attr        *types.FileAttr
	RtMax       uint32
	RtPref      uint32
	RtMult      uint32
	WtMax       uint32
	WtPref      uint32
	WtMult      uint32
	DtPref      uint32
	MaxFileSize uint64
	TimeDelta   types.TimeVal
	Properties  uint32
}

// FsInfo reports the server's static limits and capabilities.
// RFC 1813 Section 3.3.19
func (h *Handler) FsInfo(ctx context.Context, client string, req *FsInfoRequest) (*FsInfoResponse, error) {
	info, attr, err := h.vfs.Info(ctx, client, req.Handle)
	if err != nil {
		logger.Debug("FSINFO %x: %v", req.Handle, err)
		return &FsInfoResponse{Status: StatusOf(err), Attr: h.postOp(ctx, client, req.Handle)}, nil
	}

	return &FsInfoResponse{
		Status:      NFS3OK,
		Attr:        types.FromVFS(attr),
		RtMax:       info.ReadMax,
		RtPref:      info.ReadPref,
		RtMult:      info.ReadMult,
		WtMax:       info.WriteMax,
		WtPref:      info.WritePref,
		WtMult:      info.WriteMult,
		DtPref:      info.DirPref,
		MaxFileSize: info.MaxFileSize,
		TimeDelta: types.TimeVal{
			Seconds:  uint32(info.TimeDelta.Seconds()),
			Nseconds: uint32(info.TimeDelta.Nanoseconds() % 1e9),
		},
		Properties: FSFLink | FSFSymlink | FSFHomogeneous | FSFCanSetTime,
	}, nil
}

func DecodeFsInfoRequest(data []byte) (*FsInfoRequest, error) {
	handle, err := xdr.DecodeFileHandle(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &FsInfoRequest{Handle: handle}, nil
}

func (resp *FsInfoResponse) Encode() ([]byte, error) {
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

	for _, v := range []uint32{
		resp.RtMax, resp.RtPref, resp.RtMult,
		resp.WtMax, resp.WtPref, resp.WtMult,
		resp.DtPref,
	} {
		if err := xdr.EncodeUint32(&buf, v); err != nil {
			return nil, err
		}
	}
	if err := xdr.EncodeUint64(&buf, resp.MaxFileSize); err != nil {
		return nil, err
	}
	if err := xdr.EncodeTime(&buf, resp.TimeDelta); err != nil {
		return nil, err
	}
	if err := xdr.EncodeUint32(&buf, resp.Properties); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
