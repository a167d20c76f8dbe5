package mount

import (
	"bytes"
	"context"
	"fmt"

	xdr2 "github.com/rasky/go-xdr/xdr2"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
	"github.com/benignx/nfsmirror/internal/protocol/rpc"
)

// MntRequest represents a MNT request
type MntRequest struct {
	DirPath string
}

// MntResponse represents a MNT response
type MntResponse struct {
	Status      uint32
	FileHandle  []byte
	AuthFlavors []int32
}

// Mnt exchanges an export path for its root file handle. The allow-list is
// enforced here, before any path resolution happens; denied clients learn
// nothing about the namespace.
func (h *Handler) Mnt(ctx context.Context, client string, req *MntRequest) (*MntResponse, error) {
	if !h.vfs.Policy().ClientAllowed(client) {
		logger.Warn("MNT %q denied for client %s", req.DirPath, client)
		return &MntResponse{Status: MountErrAccess}, nil
	}

	handle, _, err := h.vfs.Locate(ctx, client, req.DirPath)
	if err != nil {
		logger.Debug("MNT %q from %s: %v", req.DirPath, client, err)
		return &MntResponse{Status: mountStatus(err)}, nil
	}

	h.recordMount(clientHost(client), req.DirPath)
	logger.Info("MNT %q granted to client %s", req.DirPath, client)

	return &MntResponse{
		Status:      MountOK,
		FileHandle:  handle,
		AuthFlavors: []int32{rpc.AuthNone, rpc.AuthSys},
	}, nil
}

func DecodeMntRequest(data []byte) (*MntRequest, error) {
	req := &MntRequest{}
	if _, err := xdr2.Unmarshal(bytes.NewReader(data), req); err != nil {
		return nil, fmt.Errorf("unmarshal mnt request: %w", err)
	}
	return req, nil
}

func (resp *MntResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.EncodeUint32(&buf, resp.Status); err != nil {
		return nil, err
	}
	if resp.Status != MountOK {
		return buf.Bytes(), nil
	}

	if err := xdr.EncodeOpaque(&buf, resp.FileHandle); err != nil {
		return nil, err
	}
	if err := xdr.EncodeUint32(&buf, uint32(len(resp.AuthFlavors))); err != nil {
		return nil, err
	}
	for _, flavor := range resp.AuthFlavors {
		if err := xdr.EncodeUint32(&buf, uint32(flavor)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
