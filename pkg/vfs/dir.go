package vfs

import (
	"context"
	"os"
	"sort"

	"github.com/benignx/nfsmirror/internal/logger"
)

// Lookup resolves a single name inside the directory dir names and returns
// the child's handle and attributes. "." returns the directory itself, ".."
// its parent (clamped at the virtual root).
func (v *VFS) Lookup(ctx context.Context, client string, dir FileHandle, name string) (FileHandle, *FileAttr, error) {
	dn, err := v.resolveHandle(dir)
	if err != nil {
		return nil, nil, err
	}
	if err := v.check(ctx, client, dn, OpRead); err != nil {
		return nil, nil, err
	}
	if err := v.requireDirectory(dn); err != nil {
		return nil, nil, err
	}

	childV, err := JoinVirtual(dn.virtualPath, name)
	if err != nil {
		return nil, nil, err
	}

	cn, err := v.resolvePath(childV)
	if err != nil {
		return nil, nil, err
	}

	attr, err := v.attr(cn)
	if err != nil {
		// A mount target's intermediate segment has no real backing but
		// still exists in the composed namespace.
		if CodeOf(err) == ErrNotFound && v.registry.IsSyntheticDir(childV) {
			cn = &node{virtualPath: childV, mountIndex: -1, synthetic: true}
			attr, err = v.attr(cn)
		}
		if err != nil {
			return nil, nil, err
		}
	}

	return cn.handle(v), attr, nil
}

// Mkdir creates a directory named name inside dir.
func (v *VFS) Mkdir(ctx context.Context, client string, dir FileHandle, name string, set *SetAttr) (FileHandle, *FileAttr, error) {
	dn, childV, childReal, err := v.resolveChild(ctx, client, dir, name, OpWrite)
	if err != nil {
		return nil, nil, err
	}

	mode := os.FileMode(0755)
	if set != nil && set.Mode != nil {
		mode = os.FileMode(*set.Mode)
	}
	if err := os.Mkdir(childReal, mode); err != nil {
		return nil, nil, mapOSError(err, childV)
	}

	v.dirs.invalidate(dn.virtualPath)
	logger.Info("MKDIR %s client=%s", childV, client)

	child := &node{virtualPath: childV, mountIndex: dn.mountIndex, entry: dn.entry, realPath: childReal}
	attr, err := v.attr(child)
	if err != nil {
		return nil, nil, err
	}
	return child.handle(v), attr, nil
}

// Remove deletes the regular file (or symlink, device, ...) called name in
// dir and invalidates any handle previously issued for it; directories are
// rejected with ErrIsDirectory (RMDIR is the directory path).
func (v *VFS) Remove(ctx context.Context, client string, dir FileHandle, name string) error {
	dn, childV, childReal, err := v.resolveChild(ctx, client, dir, name, OpWrite)
	if err != nil {
		return err
	}

	info, err := os.Lstat(childReal)
	if err != nil {
		return mapOSError(err, childV)
	}
	if info.IsDir() {
		return newError(ErrIsDirectory, "is a directory", childV)
	}

	if err := os.Remove(childReal); err != nil {
		return mapOSError(err, childV)
	}

	v.handles.Invalidate(childV)
	v.dirs.invalidate(dn.virtualPath)
	logger.Info("REMOVE %s client=%s", childV, client)
	return nil
}

// Rmdir deletes the empty directory called name in dir. A non-empty
// directory fails with ErrNotEmpty.
func (v *VFS) Rmdir(ctx context.Context, client string, dir FileHandle, name string) error {
	dn, childV, childReal, err := v.resolveChild(ctx, client, dir, name, OpWrite)
	if err != nil {
		return err
	}

	info, err := os.Lstat(childReal)
	if err != nil {
		return mapOSError(err, childV)
	}
	if !info.IsDir() {
		return newError(ErrNotDirectory, "not a directory", childV)
	}

	if err := os.Remove(childReal); err != nil {
		return mapOSError(err, childV)
	}

	v.handles.Invalidate(childV)
	v.dirs.invalidate(childV)
	v.dirs.invalidate(dn.virtualPath)
	logger.Info("RMDIR %s client=%s", childV, client)
	return nil
}

// Rename moves srcName in srcDir to dstName in dstDir. Both ends must
// resolve to the same mount entry: the local rename cannot cross mounts and
// the handle model does not support atomic cross-mount moves, so such
// requests fail with ErrCrossMount before any filesystem call. The handle
// issued for the source keeps its value across the rename.
func (v *VFS) Rename(ctx context.Context, client string, srcDir FileHandle, srcName string, dstDir FileHandle, dstName string) error {
	sdn, srcV, srcReal, err := v.resolveChild(ctx, client, srcDir, srcName, OpWrite)
	if err != nil {
		return err
	}
	ddn, dstV, dstReal, err := v.resolveChild(ctx, client, dstDir, dstName, OpWrite)
	if err != nil {
		return err
	}

	if sdn.mountIndex != ddn.mountIndex {
		return newError(ErrCrossMount, "rename crosses mounts", srcV)
	}

	if err := os.Rename(srcReal, dstReal); err != nil {
		return mapOSError(err, srcV)
	}

	v.handles.Rename(srcV, dstV, ddn.mountIndex)
	v.dirs.invalidate(sdn.virtualPath)
	v.dirs.invalidate(ddn.virtualPath)
	logger.Info("RENAME %s -> %s client=%s", srcV, dstV, client)
	return nil
}

// DirEntry is one produced directory entry. Attr and Handle are populated
// only for READDIRPLUS.
type DirEntry struct {
	Name   string
	FileID uint64
	Cookie uint64

	Handle FileHandle
	Attr   *FileAttr
}

// ReadDirResult is a page of directory entries. Cookie continuation is
// reproducible within one snapshot, identified by Verifier.
type ReadDirResult struct {
	Entries  []DirEntry
	EOF      bool
	Verifier uint64
}

// ReadDir produces a lazy, restartable page of directory entries starting
// after cookie. A zero cookie starts a fresh listing; non-zero cookies
// continue the snapshot named by verifier, falling back to a fresh listing
// when the snapshot has been evicted. The listing merges the mount's real
// entries with synthetic segments contributed by nested mount targets.
func (v *VFS) ReadDir(ctx context.Context, client string, dir FileHandle, cookie, verifier uint64, maxEntries int, plus bool) (*ReadDirResult, error) {
	dn, err := v.resolveHandle(dir)
	if err != nil {
		return nil, err
	}
	if err := v.check(ctx, client, dn, OpRead); err != nil {
		return nil, err
	}
	if err := v.requireDirectory(dn); err != nil {
		return nil, err
	}

	snap, err := v.snapshot(dn, cookie, verifier)
	if err != nil {
		return nil, err
	}

	if maxEntries <= 0 {
		maxEntries = 1000
	}

	// Cookies are positions into the snapshot. A cookie past the end (or one
	// large enough to go negative when converted to int) never came from this
	// listing, so it is rejected rather than trusted as an index.
	if cookie > uint64(len(snap.names)) {
		return nil, newError(ErrBadCookie, "cookie beyond directory snapshot", dn.virtualPath)
	}

	result := &ReadDirResult{Verifier: snap.verifier}
	for i := int(cookie); i < len(snap.names); i++ {
		if len(result.Entries) >= maxEntries {
			return result, nil
		}

		name := snap.names[i]
		entry, err := v.dirEntry(dn, name, uint64(i+1), plus)
		if err != nil {
			// Entry vanished between listing and stat; skip it rather
			// than failing the whole page.
			logger.Debug("READDIR %s: skipping %q: %v", dn.virtualPath, name, err)
			continue
		}
		result.Entries = append(result.Entries, *entry)
	}

	result.EOF = true
	return result, nil
}

// dirEntry builds one READDIR/READDIRPLUS entry for name inside dn.
func (v *VFS) dirEntry(dn *node, name string, cookie uint64, plus bool) (*DirEntry, error) {
	childV, err := JoinVirtual(dn.virtualPath, name)
	if err != nil {
		return nil, err
	}

	cn, err := v.resolvePath(childV)
	if err != nil {
		if !v.registry.IsSyntheticDir(childV) {
			return nil, err
		}
		cn = &node{virtualPath: childV, mountIndex: -1, synthetic: true}
	}

	h := cn.handle(v)
	entry := &DirEntry{Name: name, FileID: FileID(h), Cookie: cookie}

	if plus {
		attr, err := v.attr(cn)
		if err != nil {
			if CodeOf(err) == ErrNotFound && v.registry.IsSyntheticDir(childV) {
				attr, err = v.attr(&node{virtualPath: childV, mountIndex: -1, synthetic: true})
			}
			if err != nil {
				return nil, err
			}
		}
		entry.Handle = h
		entry.Attr = attr
	}
	return entry, nil
}

// listNames produces the merged, sorted entry names of a virtual directory:
// "." and ".." first, then real filesystem entries plus synthetic segments
// from nested mount targets, deduplicated.
func (v *VFS) listNames(dn *node) ([]string, error) {
	seen := make(map[string]bool)
	var names []string

	if !dn.synthetic {
		entries, err := os.ReadDir(dn.realPath)
		if err != nil {
			return nil, mapOSError(err, dn.virtualPath)
		}
		for _, e := range entries {
			if !seen[e.Name()] {
				seen[e.Name()] = true
				names = append(names, e.Name())
			}
		}
	}

	for _, segment := range v.registry.ChildSegments(dn.virtualPath) {
		if !seen[segment] {
			seen[segment] = true
			names = append(names, segment)
		}
	}

	sort.Strings(names)
	return append([]string{".", ".."}, names...), nil
}

// requireDirectory fails with ErrNotDirectory when the node is not one.
func (v *VFS) requireDirectory(n *node) error {
	if n.synthetic {
		return nil
	}
	info, err := os.Lstat(n.realPath)
	if err != nil {
		return mapOSError(err, n.virtualPath)
	}
	if !info.IsDir() {
		return newError(ErrNotDirectory, "not a directory", n.virtualPath)
	}
	return nil
}

// resolveChild is the shared preamble for operations that act on a named
// child of a directory handle: it resolves and checks the directory, applies
// the access policy (fail fast, before any filesystem call), validates the
// name, and translates the child's real path. Mutations targeting a mount
// point or synthetic directory are refused.
func (v *VFS) resolveChild(ctx context.Context, client string, dir FileHandle, name string, class OpClass) (*node, string, string, error) {
	dn, err := v.resolveHandle(dir)
	if err != nil {
		return nil, "", "", err
	}
	if err := v.check(ctx, client, dn, class); err != nil {
		return nil, "", "", err
	}
	if err := v.requireDirectory(dn); err != nil {
		return nil, "", "", err
	}

	if class == OpWrite && (name == "." || name == "..") {
		return nil, "", "", newError(ErrInvalidPath, "invalid entry name", name)
	}
	childV, err := JoinVirtual(dn.virtualPath, name)
	if err != nil {
		return nil, "", "", err
	}

	cn, err := v.resolvePath(childV)
	if err != nil {
		return nil, "", "", err
	}
	if class == OpWrite {
		if cn.synthetic || (cn.entry != nil && cn.entry.Target == cn.virtualPath) {
			return nil, "", "", newError(ErrAccessDenied, "cannot modify a mount point", childV)
		}
		// The child may belong to a different (nested) mount than the
		// directory; its own mount's policy governs.
		if cn.entry != dn.entry {
			if err := v.policy.Evaluate(client, cn.entry, class); err != nil {
				return nil, "", "", err
			}
		}
	}

	return dn, childV, cn.realPath, nil
}
