package mount

import (
	"bytes"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// ExportRequest represents an EXPORT request (no arguments)
type ExportRequest struct{}

// ExportResponse represents an EXPORT response
type ExportResponse struct {
	Entries []ExportEntry
}

// ExportEntry is one exportnode in the EXPORT list.
type ExportEntry struct {
	Directory string
	Groups    []string
}

// Export lists the mountable paths: the composed root plus every configured
// mount target. Groups carry the allow-list; an empty list means every
// client may mount.
func (h *Handler) Export(client string, req *ExportRequest) (*ExportResponse, error) {
	groups := h.vfs.Policy().AllowedNetworks()

	mounts := h.vfs.Registry().Mounts()
	entries := make([]ExportEntry, 0, len(mounts)+1)
	entries = append(entries, ExportEntry{Directory: "/", Groups: groups})
	for _, m := range mounts {
		if m.Target == "/" {
			continue
		}
		entries = append(entries, ExportEntry{Directory: m.Target, Groups: groups})
	}

	logger.Debug("EXPORT from %s: %d entries", client, len(entries))
	return &ExportResponse{Entries: entries}, nil
}

func DecodeExportRequest(data []byte) (*ExportRequest, error) {
	return &ExportRequest{}, nil
}

func (resp *ExportResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	for _, entry := range resp.Entries {
		if err := xdr.EncodeBool(&buf, true); err != nil {
			return nil, err
		}
		if err := xdr.EncodeString(&buf, entry.Directory); err != nil {
			return nil, err
		}
		for _, group := range entry.Groups {
			if err := xdr.EncodeBool(&buf, true); err != nil {
				return nil, err
			}
			if err := xdr.EncodeString(&buf, group); err != nil {
				return nil, err
			}
		}
		if err := xdr.EncodeBool(&buf, false); err != nil {
			return nil, err
		}
	}
	if err := xdr.EncodeBool(&buf, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
