package mount

import "github.com/benignx/nfsmirror/internal/logger"

// UmntAllRequest represents an UMNTALL request (no arguments)
type UmntAllRequest struct{}

// UmntAllResponse represents an UMNTALL response (void)
type UmntAllResponse struct{}

// UmntAll drops every mount table entry belonging to the calling client.
// Clients send it on boot to clear records left by a crash.
func (h *Handler) UmntAll(client string, req *UmntAllRequest) (*UmntAllResponse, error) {
	removed := h.removeAllMounts(clientHost(client))
	logger.Info("UMNTALL from client %s: removed %d entries", client, removed)
	return &UmntAllResponse{}, nil
}

func DecodeUmntAllRequest(data []byte) (*UmntAllRequest, error) {
	return &UmntAllRequest{}, nil
}

func (resp *UmntAllResponse) Encode() ([]byte, error) {
	return []byte{}, nil
}
