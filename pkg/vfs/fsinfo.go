package vfs

import (
	"context"
	"time"

	"golang.org/x/sys/unix"
)

// FSStat reports dynamic filesystem usage for the mount owning the handle.
// Synthetic directories report the filesystem of the first configured mount,
// since the virtual root has no backing store of its own.
type FSStat struct {
	TotalBytes uint64
	FreeBytes  uint64
	AvailBytes uint64
	TotalFiles uint64
	FreeFiles  uint64
	AvailFiles uint64
}

// FSInfo reports the server's static transfer limits and capabilities.
type FSInfo struct {
	ReadMax     uint32
	ReadPref    uint32
	ReadMult    uint32
	WriteMax    uint32
	WritePref   uint32
	WriteMult   uint32
	DirPref     uint32
	MaxFileSize uint64
	TimeDelta   time.Duration
}

// PathConf reports POSIX pathconf values for the mount owning the handle.
type PathConf struct {
	LinkMax         uint32
	NameMax         uint32
	NoTrunc         bool
	ChownRestricted bool
	CaseInsensitive bool
	CasePreserving  bool
}

const (
	// Matches the transfer sizes the Linux client negotiates comfortably
	// over TCP.
	maxTransferSize  = 1 << 20
	prefTransferSize = 1 << 17
	dirReadPref      = 1 << 13
)

// StatFS returns usage statistics for the filesystem backing the handle.
func (v *VFS) StatFS(ctx context.Context, client string, h FileHandle) (*FSStat, *FileAttr, error) {
	n, err := v.resolveHandle(h)
	if err != nil {
		return nil, nil, err
	}
	if err := v.check(ctx, client, n, OpRead); err != nil {
		return nil, nil, err
	}
	attr, err := v.attr(n)
	if err != nil {
		return nil, nil, err
	}

	var st unix.Statfs_t
	if err := unix.Statfs(v.statfsPath(n), &st); err != nil {
		return nil, nil, mapOSError(err, n.virtualPath)
	}

	bsize := uint64(st.Bsize)
	return &FSStat{
		TotalBytes: st.Blocks * bsize,
		FreeBytes:  st.Bfree * bsize,
		AvailBytes: st.Bavail * bsize,
		TotalFiles: st.Files,
		FreeFiles:  st.Ffree,
		AvailFiles: st.Ffree,
	}, attr, nil
}

// Info returns the static server limits advertised by FSINFO.
func (v *VFS) Info(ctx context.Context, client string, h FileHandle) (*FSInfo, *FileAttr, error) {
	n, err := v.resolveHandle(h)
	if err != nil {
		return nil, nil, err
	}
	if err := v.check(ctx, client, n, OpRead); err != nil {
		return nil, nil, err
	}
	attr, err := v.attr(n)
	if err != nil {
		return nil, nil, err
	}

	return &FSInfo{
		ReadMax:     maxTransferSize,
		ReadPref:    prefTransferSize,
		ReadMult:    4096,
		WriteMax:    maxTransferSize,
		WritePref:   prefTransferSize,
		WriteMult:   4096,
		DirPref:     dirReadPref,
		MaxFileSize: 1<<63 - 1,
		TimeDelta:   time.Nanosecond,
	}, attr, nil
}

// Conf returns pathconf values for the filesystem backing the handle.
func (v *VFS) Conf(ctx context.Context, client string, h FileHandle) (*PathConf, *FileAttr, error) {
	n, err := v.resolveHandle(h)
	if err != nil {
		return nil, nil, err
	}
	if err := v.check(ctx, client, n, OpRead); err != nil {
		return nil, nil, err
	}
	attr, err := v.attr(n)
	if err != nil {
		return nil, nil, err
	}

	var st unix.Statfs_t
	nameMax := uint32(255)
	if err := unix.Statfs(v.statfsPath(n), &st); err == nil && st.Namelen > 0 {
		nameMax = uint32(st.Namelen)
	}

	return &PathConf{
		LinkMax:         32000,
		NameMax:         nameMax,
		NoTrunc:         true,
		ChownRestricted: true,
		CaseInsensitive: false,
		CasePreserving:  true,
	}, attr, nil
}

// statfsPath picks the real path to run statfs against. Synthetic
// directories fall back to the first mount's source.
func (v *VFS) statfsPath(n *node) string {
	if !n.synthetic {
		return n.realPath
	}
	return v.registry.Mounts()[0].Source
}
