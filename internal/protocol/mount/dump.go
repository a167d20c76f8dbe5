package mount

import (
	"bytes"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
)

// DumpRequest represents a DUMP request (no arguments)
type DumpRequest struct{}

// DumpResponse represents a DUMP response
type DumpResponse struct {
	Entries []DumpEntry
}

// DumpEntry is one mountbody in the DUMP mount list.
type DumpEntry struct {
	Hostname  string
	Directory string
}

// Dump returns the informational mount table: which clients MNT'd which
// export paths. Entries can be stale when a client vanished without UMNT.
func (h *Handler) Dump(client string, req *DumpRequest) (*DumpResponse, error) {
	records := h.listMounts()
	entries := make([]DumpEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, DumpEntry{Hostname: rec.client, Directory: rec.dir})
	}

	logger.Debug("DUMP from %s: %d entries", client, len(entries))
	return &DumpResponse{Entries: entries}, nil
}

func DecodeDumpRequest(data []byte) (*DumpRequest, error) {
	return &DumpRequest{}, nil
}

func (resp *DumpResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	for _, entry := range resp.Entries {
		if err := xdr.EncodeBool(&buf, true); err != nil {
			return nil, err
		}
		if err := xdr.EncodeString(&buf, entry.Hostname); err != nil {
			return nil, err
		}
		if err := xdr.EncodeString(&buf, entry.Directory); err != nil {
			return nil, err
		}
	}
	if err := xdr.EncodeBool(&buf, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
