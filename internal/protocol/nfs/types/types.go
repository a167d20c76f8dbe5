// Package types holds the NFSv3 wire structures shared between the xdr codec
// helpers and the procedure implementations.
package types

import (
	"time"

	"github.com/benignx/nfsmirror/pkg/vfs"
)

// TimeVal is the nfstime3 structure (RFC 1813 Section 2.2.2).
type TimeVal struct {
	Seconds  uint32
	Nseconds uint32
}

// SpecData is the specdata3 device-number pair.
type SpecData struct {
	Major uint32
	Minor uint32
}

// FileAttr is the fattr3 structure (RFC 1813 Section 2.3.1).
type FileAttr struct {
	Type   uint32
	Mode   uint32
	Nlink  uint32
	UID    uint32
	GID    uint32
	Size   uint64
	Used   uint64
	Rdev   SpecData
	Fsid   uint64
	Fileid uint64
	Atime  TimeVal
	Mtime  TimeVal
	Ctime  TimeVal
}

// WccAttr is the wcc_attr subset (size, mtime, ctime) captured before a
// modifying operation.
type WccAttr struct {
	Size  uint64
	Mtime TimeVal
	Ctime TimeVal
}

// TimeFrom converts a local timestamp to nfstime3.
func TimeFrom(t time.Time) TimeVal {
	return TimeVal{
		Seconds:  uint32(t.Unix()),
		Nseconds: uint32(t.Nanosecond()),
	}
}

// FromVFS translates dispatcher attributes into the fattr3 wire form.
func FromVFS(attr *vfs.FileAttr) *FileAttr {
	if attr == nil {
		return nil
	}
	return &FileAttr{
		Type:   uint32(attr.Type),
		Mode:   attr.Mode,
		Nlink:  attr.Nlink,
		UID:    attr.UID,
		GID:    attr.GID,
		Size:   attr.Size,
		Used:   attr.Used,
		Rdev:   SpecData{Major: attr.RdevMajor, Minor: attr.RdevMinor},
		Fsid:   attr.FSID,
		Fileid: attr.FileID,
		Atime:  TimeFrom(attr.Atime),
		Mtime:  TimeFrom(attr.Mtime),
		Ctime:  TimeFrom(attr.Ctime),
	}
}

// WccFrom captures the wcc_attr subset of a full attribute set; nil in, nil
// out (the pre-op attributes are optional on the wire).
func WccFrom(attr *vfs.FileAttr) *WccAttr {
	if attr == nil {
		return nil
	}
	return &WccAttr{
		Size:  attr.Size,
		Mtime: TimeFrom(attr.Mtime),
		Ctime: TimeFrom(attr.Ctime),
	}
}
