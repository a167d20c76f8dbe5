package vfs

import (
	"context"
	"io"
	"os"

	"github.com/benignx/nfsmirror/internal/logger"
)

// Read returns up to count bytes from the file at the given offset.
// Reads at or past end-of-file return zero bytes with eof=true; partial reads
// near the end return fewer bytes than requested without error.
func (v *VFS) Read(ctx context.Context, client string, h FileHandle, offset uint64, count uint32) ([]byte, bool, error) {
	n, err := v.resolveHandle(h)
	if err != nil {
		return nil, false, err
	}
	if err := v.check(ctx, client, n, OpRead); err != nil {
		return nil, false, err
	}
	if n.synthetic {
		return nil, false, newError(ErrIsDirectory, "cannot read a directory", n.virtualPath)
	}

	f, err := os.Open(n.realPath)
	if err != nil {
		return nil, false, mapOSError(err, n.virtualPath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, false, mapOSError(err, n.virtualPath)
	}
	if info.IsDir() {
		return nil, false, newError(ErrIsDirectory, "cannot read a directory", n.virtualPath)
	}

	size := uint64(info.Size())
	if offset >= size {
		return []byte{}, true, nil
	}

	// The count is client-supplied; clamp it to the advertised transfer
	// maximum and to what the file can still yield so one request cannot
	// force an arbitrarily large allocation.
	if count > maxTransferSize {
		count = maxTransferSize
	}
	if remaining := size - offset; uint64(count) > remaining {
		count = uint32(remaining)
	}

	buf := make([]byte, count)
	read, err := f.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return nil, false, mapOSError(err, n.virtualPath)
	}

	eof := offset+uint64(read) >= size
	return buf[:read], eof, nil
}

// Write stores data at the given offset, extending the file (zero-filled by
// the underlying filesystem) when the offset is past end-of-file. Rejected
// under read-only policy before the file is opened.
func (v *VFS) Write(ctx context.Context, client string, h FileHandle, offset uint64, data []byte, sync bool) (*FileAttr, uint32, error) {
	n, err := v.resolveHandle(h)
	if err != nil {
		return nil, 0, err
	}
	if err := v.check(ctx, client, n, OpWrite); err != nil {
		return nil, 0, err
	}

	f, err := os.OpenFile(n.realPath, os.O_WRONLY, 0)
	if err != nil {
		return nil, 0, mapOSError(err, n.virtualPath)
	}
	defer f.Close()

	written, err := f.WriteAt(data, int64(offset))
	if err != nil {
		// A short write that already hit the disk is not rolled back; the
		// client learns the count written and the error for the remainder.
		logger.Error("WRITE %s failed at offset %d: %v", n.virtualPath, offset, err)
		return nil, uint32(written), mapOSError(err, n.virtualPath)
	}

	if sync {
		if err := f.Sync(); err != nil {
			return nil, uint32(written), mapOSError(err, n.virtualPath)
		}
	}

	attr, err := v.attr(n)
	if err != nil {
		return nil, uint32(written), err
	}
	return attr, uint32(written), nil
}

// Create makes a new regular file in the directory dir names. With exclusive
// set, an existing name fails with ErrExists; otherwise an existing regular
// file is truncated (NFSv3 UNCHECKED semantics).
func (v *VFS) Create(ctx context.Context, client string, dir FileHandle, name string, set *SetAttr, exclusive bool) (FileHandle, *FileAttr, error) {
	n, childV, childReal, err := v.resolveChild(ctx, client, dir, name, OpWrite)
	if err != nil {
		return nil, nil, err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if exclusive {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	mode := os.FileMode(0644)
	if set != nil && set.Mode != nil {
		mode = os.FileMode(*set.Mode)
	}

	f, err := os.OpenFile(childReal, flags, mode)
	if err != nil {
		return nil, nil, mapOSError(err, childV)
	}
	f.Close()

	if set != nil && set.Size != nil {
		if err := os.Truncate(childReal, int64(*set.Size)); err != nil {
			return nil, nil, mapOSError(err, childV)
		}
	}

	v.dirs.invalidate(n.virtualPath)
	logger.Info("CREATE %s (exclusive=%v) client=%s", childV, exclusive, client)

	child := &node{virtualPath: childV, mountIndex: n.mountIndex, entry: n.entry, realPath: childReal}
	attr, err := v.attr(child)
	if err != nil {
		return nil, nil, err
	}
	return child.handle(v), attr, nil
}

// Symlink creates a symbolic link named name in dir pointing at target.
// The link target is stored verbatim; it is resolved client-side.
func (v *VFS) Symlink(ctx context.Context, client string, dir FileHandle, name, target string) (FileHandle, *FileAttr, error) {
	n, childV, childReal, err := v.resolveChild(ctx, client, dir, name, OpWrite)
	if err != nil {
		return nil, nil, err
	}

	if err := os.Symlink(target, childReal); err != nil {
		return nil, nil, mapOSError(err, childV)
	}

	v.dirs.invalidate(n.virtualPath)
	logger.Info("SYMLINK %s -> %s client=%s", childV, target, client)

	child := &node{virtualPath: childV, mountIndex: n.mountIndex, entry: n.entry, realPath: childReal}
	attr, err := v.attr(child)
	if err != nil {
		return nil, nil, err
	}
	return child.handle(v), attr, nil
}

// Readlink returns the stored target of a symbolic link.
func (v *VFS) Readlink(ctx context.Context, client string, h FileHandle) (string, error) {
	n, err := v.resolveHandle(h)
	if err != nil {
		return "", err
	}
	if err := v.check(ctx, client, n, OpRead); err != nil {
		return "", err
	}
	if n.synthetic {
		return "", newError(ErrNotSupported, "not a symlink", n.virtualPath)
	}

	info, err := os.Lstat(n.realPath)
	if err != nil {
		return "", mapOSError(err, n.virtualPath)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return "", newError(ErrNotSupported, "not a symlink", n.virtualPath)
	}

	target, err := os.Readlink(n.realPath)
	if err != nil {
		return "", mapOSError(err, n.virtualPath)
	}
	return target, nil
}

// Link creates a hard link to the file h names inside the directory dir.
// Both ends must live on the same mount; the handle keeps naming the same
// underlying file through either path.
func (v *VFS) Link(ctx context.Context, client string, h FileHandle, dir FileHandle, name string) (*FileAttr, error) {
	fileNode, err := v.resolveHandle(h)
	if err != nil {
		return nil, err
	}
	if fileNode.synthetic {
		return nil, newError(ErrNotSupported, "cannot link a virtual directory", fileNode.virtualPath)
	}

	dirNode, childV, childReal, err := v.resolveChild(ctx, client, dir, name, OpWrite)
	if err != nil {
		return nil, err
	}
	if dirNode.mountIndex != fileNode.mountIndex {
		return nil, newError(ErrCrossMount, "hard link crosses mounts", childV)
	}

	if err := os.Link(fileNode.realPath, childReal); err != nil {
		return nil, mapOSError(err, childV)
	}

	v.dirs.invalidate(dirNode.virtualPath)
	logger.Info("LINK %s -> %s client=%s", childV, fileNode.virtualPath, client)
	return v.attr(fileNode)
}
