package mount

import (
	"bytes"
	"fmt"

	xdr2 "github.com/rasky/go-xdr/xdr2"

	"github.com/benignx/nfsmirror/internal/logger"
)

// UmntRequest represents an UMNT request
type UmntRequest struct {
	DirPath string
}

// UmntResponse represents an UMNT response (void)
type UmntResponse struct{}

// Umnt drops one mount table entry. The procedure returns void, so an
// unknown entry is acknowledged the same as a known one.
func (h *Handler) Umnt(client string, req *UmntRequest) (*UmntResponse, error) {
	h.removeMount(clientHost(client), req.DirPath)
	logger.Info("UMNT %q from client %s", req.DirPath, client)
	return &UmntResponse{}, nil
}

func DecodeUmntRequest(data []byte) (*UmntRequest, error) {
	req := &UmntRequest{}
	if _, err := xdr2.Unmarshal(bytes.NewReader(data), req); err != nil {
		return nil, fmt.Errorf("unmarshal umnt request: %w", err)
	}
	return req, nil
}

func (resp *UmntResponse) Encode() ([]byte, error) {
	return []byte{}, nil
}
