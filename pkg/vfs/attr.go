package vfs

import (
	"crypto/sha256"
	"encoding/binary"
	"os"
	"syscall"
	"time"
)

// FileType mirrors the NFSv3 ftype3 enumeration so the protocol layer can
// transmit it without translation.
type FileType uint32

const (
	FileTypeRegular   FileType = 1
	FileTypeDirectory FileType = 2
	FileTypeBlockDev  FileType = 3
	FileTypeCharDev   FileType = 4
	FileTypeSymlink   FileType = 5
	FileTypeSocket    FileType = 6
	FileTypeFIFO      FileType = 7
)

// FileAttr is the dispatcher's attribute representation, translated from
// local filesystem metadata on every read (attributes are never cached; the
// local filesystem is the source of truth).
type FileAttr struct {
	Type      FileType
	Mode      uint32
	Nlink     uint32
	UID       uint32
	GID       uint32
	Size      uint64
	Used      uint64
	RdevMajor uint32
	RdevMinor uint32
	FSID      uint64
	FileID    uint64
	Atime     time.Time
	Mtime     time.Time
	Ctime     time.Time
}

// SetAttr carries the attributes a client asked to change; nil fields were
// not requested. Any non-nil field makes the SETATTR a mutating operation.
type SetAttr struct {
	Mode  *uint32
	UID   *uint32
	GID   *uint32
	Size  *uint64
	Atime *time.Time
	Mtime *time.Time
}

// Empty reports whether no attribute change was requested.
func (s *SetAttr) Empty() bool {
	return s == nil ||
		(s.Mode == nil && s.UID == nil && s.GID == nil &&
			s.Size == nil && s.Atime == nil && s.Mtime == nil)
}

// FileID derives the 64-bit file identifier (inode number) from a handle.
// Every layer must use this derivation so directory entries and attributes
// report consistent inode numbers; first 8 bytes of SHA-256 over the handle.
func FileID(handle FileHandle) uint64 {
	if len(handle) == 0 {
		return 0
	}
	sum := sha256.Sum256(handle)
	return binary.BigEndian.Uint64(sum[:8])
}

// fileAttrFromInfo translates an os.FileInfo into the dispatcher's attribute
// representation. Ownership, link count and timestamps come from the
// underlying stat structure.
func fileAttrFromInfo(info os.FileInfo, fileid uint64, mountIndex int) *FileAttr {
	attr := &FileAttr{
		Type:   fileTypeOf(info.Mode()),
		Mode:   uint32(info.Mode().Perm()),
		Nlink:  1,
		Size:   uint64(info.Size()),
		Used:   uint64(info.Size()),
		FSID:   uint64(mountIndex + 1),
		FileID: fileid,
		Atime:  info.ModTime(),
		Mtime:  info.ModTime(),
		Ctime:  info.ModTime(),
	}

	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		attr.Nlink = uint32(st.Nlink)
		attr.UID = st.Uid
		attr.GID = st.Gid
		attr.Used = uint64(st.Blocks) * 512
		attr.RdevMajor = uint32(st.Rdev >> 8)
		attr.RdevMinor = uint32(st.Rdev & 0xff)
		attr.Atime = time.Unix(st.Atim.Sec, st.Atim.Nsec)
		attr.Ctime = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}

	return attr
}

func fileTypeOf(mode os.FileMode) FileType {
	switch {
	case mode.IsDir():
		return FileTypeDirectory
	case mode&os.ModeSymlink != 0:
		return FileTypeSymlink
	case mode&os.ModeDevice != 0 && mode&os.ModeCharDevice != 0:
		return FileTypeCharDev
	case mode&os.ModeDevice != 0:
		return FileTypeBlockDev
	case mode&os.ModeSocket != 0:
		return FileTypeSocket
	case mode&os.ModeNamedPipe != 0:
		return FileTypeFIFO
	default:
		return FileTypeRegular
	}
}

// syntheticDirAttr describes a directory that exists only in the composed
// namespace (the virtual root and intermediate mount-target segments).
func syntheticDirAttr(fileid uint64, bootTime time.Time) *FileAttr {
	return &FileAttr{
		Type:   FileTypeDirectory,
		Mode:   0555,
		Nlink:  2,
		UID:    uint32(os.Getuid()),
		GID:    uint32(os.Getgid()),
		Size:   4096,
		Used:   4096,
		FileID: fileid,
		Atime:  bootTime,
		Mtime:  bootTime,
		Ctime:  bootTime,
	}
}
