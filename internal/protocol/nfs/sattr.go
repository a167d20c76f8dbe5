package nfs

import (
	"fmt"
	"io"
	"time"

	"github.com/benignx/nfsmirror/internal/protocol/nfs/xdr"
	"github.com/benignx/nfsmirror/pkg/vfs"
)

// decodeSattr3 decodes the sattr3 structure (RFC 1813 Section 2.3.7): each
// attribute is preceded by a presence flag, the timestamps by a three-way
// discriminant (don't change / server time / client time).
func decodeSattr3(reader io.Reader) (*vfs.SetAttr, error) {
	set := &vfs.SetAttr{}

	present, err := xdr.DecodeBool(reader)
	if err != nil {
		return nil, fmt.Errorf("read mode flag: %w", err)
	}
	if present {
		mode, err := xdr.DecodeUint32(reader)
		if err != nil {
			return nil, fmt.Errorf("read mode: %w", err)
		}
		set.Mode = &mode
	}

	if present, err = xdr.DecodeBool(reader); err != nil {
		return nil, fmt.Errorf("read uid flag: %w", err)
	} else if present {
		uid, err := xdr.DecodeUint32(reader)
		if err != nil {
			return nil, fmt.Errorf("read uid: %w", err)
		}
		set.UID = &uid
	}

	if present, err = xdr.DecodeBool(reader); err != nil {
		return nil, fmt.Errorf("read gid flag: %w", err)
	} else if present {
		gid, err := xdr.DecodeUint32(reader)
		if err != nil {
			return nil, fmt.Errorf("read gid: %w", err)
		}
		set.GID = &gid
	}

	if present, err = xdr.DecodeBool(reader); err != nil {
		return nil, fmt.Errorf("read size flag: %w", err)
	} else if present {
		size, err := xdr.DecodeUint64(reader)
		if err != nil {
			return nil, fmt.Errorf("read size: %w", err)
		}
		set.Size = &size
	}

	if set.Atime, err = decodeSetTime(reader); err != nil {
		return nil, fmt.Errorf("read atime: %w", err)
	}
	if set.Mtime, err = decodeSetTime(reader); err != nil {
		return nil, fmt.Errorf("read mtime: %w", err)
	}

	return set, nil
}

// decodeSetTime decodes one set_atime/set_mtime union arm; nil means the
// timestamp is left unchanged.
func decodeSetTime(reader io.Reader) (*time.Time, error) {
	how, err := xdr.DecodeUint32(reader)
	if err != nil {
		return nil, err
	}
	switch how {
	case timeDontChange:
		return nil, nil
	case timeSetToServerTime:
		now := time.Now()
		return &now, nil
	case timeSetToClientTime:
		seconds, err := xdr.DecodeUint32(reader)
		if err != nil {
			return nil, err
		}
		nseconds, err := xdr.DecodeUint32(reader)
		if err != nil {
			return nil, err
		}
		t := time.Unix(int64(seconds), int64(nseconds))
		return &t, nil
	default:
		return nil, fmt.Errorf("unknown time discriminant %d", how)
	}
}
