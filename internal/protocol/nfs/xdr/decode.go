package xdr

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxOpaqueLength protects the decoder against hostile length words; no
// single opaque field in NFSv3 traffic legitimately exceeds the server's
// maximum transfer size.
const maxOpaqueLength = 2 * 1024 * 1024

// DecodeUint32 reads one XDR unsigned integer.
func DecodeUint32(reader io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// DecodeUint64 reads one XDR unsigned hyper.
func DecodeUint64(reader io.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(reader, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// DecodeBool reads an XDR boolean (a full word; anything non-zero is true).
func DecodeBool(reader io.Reader) (bool, error) {
	v, err := DecodeUint32(reader)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// DecodeOpaque decodes XDR variable-length opaque data: a length word, the
// bytes, then padding to the next 4-byte boundary (RFC 4506 Section 4.10).
func DecodeOpaque(reader io.Reader) ([]byte, error) {
	length, err := DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	if length > maxOpaqueLength {
		return nil, fmt.Errorf("opaque length %d exceeds maximum %d", length, maxOpaqueLength)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	if padding := (4 - (length % 4)) % 4; padding > 0 {
		if _, err := io.CopyN(io.Discard, reader, int64(padding)); err != nil {
			return nil, fmt.Errorf("skip padding: %w", err)
		}
	}
	return data, nil
}

// DecodeString decodes an XDR string; same wire form as opaque data,
// interpreted as UTF-8 (RFC 4506 Section 4.11).
func DecodeString(reader io.Reader) (string, error) {
	data, err := DecodeOpaque(reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeFileHandle decodes an nfs_fh3: opaque data capped at the protocol's
// 64-byte handle limit.
func DecodeFileHandle(reader io.Reader) ([]byte, error) {
	handle, err := DecodeOpaque(reader)
	if err != nil {
		return nil, fmt.Errorf("read handle: %w", err)
	}
	if len(handle) > 64 {
		return nil, fmt.Errorf("handle of %d bytes exceeds NFS3 limit", len(handle))
	}
	return handle, nil
}

// DecodeDirOpArgs decodes a diropargs3: the parent directory handle plus an
// entry name.
func DecodeDirOpArgs(reader io.Reader) ([]byte, string, error) {
	handle, err := DecodeFileHandle(reader)
	if err != nil {
		return nil, "", err
	}
	name, err := DecodeString(reader)
	if err != nil {
		return nil, "", fmt.Errorf("read name: %w", err)
	}
	return handle, name, nil
}
