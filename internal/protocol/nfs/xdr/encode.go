package xdr

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
)

// EncodeUint32 writes one XDR unsigned integer.
func EncodeUint32(buf *bytes.Buffer, v uint32) error {
	return binary.Write(buf, binary.BigEndian, v)
}

// EncodeUint64 writes one XDR unsigned hyper.
func EncodeUint64(buf *bytes.Buffer, v uint64) error {
	return binary.Write(buf, binary.BigEndian, v)
}

// EncodeBool writes an XDR boolean as a full word.
func EncodeBool(buf *bytes.Buffer, v bool) error {
	var word uint32
	if v {
		word = 1
	}
	return EncodeUint32(buf, word)
}

// EncodeOpaque writes XDR variable-length opaque data with its length word
// and padding to a 4-byte boundary.
func EncodeOpaque(buf *bytes.Buffer, data []byte) error {
	length := uint32(len(data))
	if err := EncodeUint32(buf, length); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := buf.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	for i := uint32(0); i < (4-(length%4))%4; i++ {
		if err := buf.WriteByte(0); err != nil {
			return fmt.Errorf("write padding: %w", err)
		}
	}
	return nil
}

// EncodeString writes an XDR string; same wire form as opaque data.
func EncodeString(buf *bytes.Buffer, s string) error {
	return EncodeOpaque(buf, []byte(s))
}

// EncodeTime writes an nfstime3 value.
func EncodeTime(buf *bytes.Buffer, t types.TimeVal) error {
	if err := EncodeUint32(buf, t.Seconds); err != nil {
		return err
	}
	return EncodeUint32(buf, t.Nseconds)
}

// EncodeFileAttr writes a complete fattr3 structure.
func EncodeFileAttr(buf *bytes.Buffer, attr *types.FileAttr) error {
	fields := []any{
		attr.Type, attr.Mode, attr.Nlink, attr.UID, attr.GID,
		attr.Size, attr.Used, attr.Rdev.Major, attr.Rdev.Minor,
		attr.Fsid, attr.Fileid,
	}
	for _, field := range fields {
		if err := binary.Write(buf, binary.BigEndian, field); err != nil {
			return err
		}
	}
	for _, t := range []types.TimeVal{attr.Atime, attr.Mtime, attr.Ctime} {
		if err := EncodeTime(buf, t); err != nil {
			return err
		}
	}
	return nil
}

// EncodePostOpAttr writes a post_op_attr: a presence flag, then the fattr3
// when attributes are available (RFC 1813 Section 2.6).
func EncodePostOpAttr(buf *bytes.Buffer, attr *types.FileAttr) error {
	if attr == nil {
		return EncodeBool(buf, false)
	}
	if err := EncodeBool(buf, true); err != nil {
		return err
	}
	return EncodeFileAttr(buf, attr)
}

// EncodePostOpHandle writes a post_op_fh3: a presence flag, then the handle.
func EncodePostOpHandle(buf *bytes.Buffer, handle []byte) error {
	if len(handle) == 0 {
		return EncodeBool(buf, false)
	}
	if err := EncodeBool(buf, true); err != nil {
		return err
	}
	return EncodeOpaque(buf, handle)
}

// EncodeWccData writes a wcc_data pair: optional pre-op attributes followed
// by optional post-op attributes (RFC 1813 Section 2.6).
func EncodeWccData(buf *bytes.Buffer, before *types.WccAttr, after *types.FileAttr) error {
	if before == nil {
		if err := EncodeBool(buf, false); err != nil {
			return err
		}
	} else {
		if err := EncodeBool(buf, true); err != nil {
			return err
		}
		if err := EncodeUint64(buf, before.Size); err != nil {
			return err
		}
		if err := EncodeTime(buf, before.Mtime); err != nil {
			return err
		}
		if err := EncodeTime(buf, before.Ctime); err != nil {
			return err
		}
	}
	return EncodePostOpAttr(buf, after)
}
