// Package vfs implements the virtual namespace composer and file-handle
// resolution engine: it merges the configured local directories into one
// exported tree, maps opaque NFS file handles onto real paths, and dispatches
// filesystem operations while enforcing the access policy.
//
// Every operation follows the same order: resolve the incoming handle via the
// HandleTable, derive the real path via the MountRegistry, apply the
// AccessPolicy, perform the local filesystem call, then update the handle
// table and translate metadata. Policy and path-validation failures happen
// before any filesystem call, so denied operations have no side effects.
package vfs

import (
	"context"
	"os"
	"time"

	"github.com/benignx/nfsmirror/internal/logger"
)

// VFS is the operation dispatcher. The handle table is the only mutable
// state; registry and policy are immutable after startup, so a single VFS
// value is shared by all client connections.
type VFS struct {
	registry *MountRegistry
	handles  *HandleTable
	policy   *AccessPolicy
	dirs     *dirCache
	bootTime time.Time
}

// New assembles the dispatcher from its startup-built components.
func New(registry *MountRegistry, policy *AccessPolicy) *VFS {
	return &VFS{
		registry: registry,
		handles:  NewHandleTable(),
		policy:   policy,
		dirs:     newDirCache(dirCacheSize),
		bootTime: time.Now(),
	}
}

// Root returns the well-known root handle clients receive from MOUNT.
func (v *VFS) Root() FileHandle {
	return RootHandle()
}

// Registry exposes the mount registry (for the MOUNT protocol's EXPORT list).
func (v *VFS) Registry() *MountRegistry { return v.registry }

// Policy exposes the access policy (for MOUNT-time allow-list checks).
func (v *VFS) Policy() *AccessPolicy { return v.policy }

// node is a resolved virtual location: where a handle or path points right
// now. Synthetic nodes (the composed root and intermediate target segments)
// have no owning mount and no real path.
type node struct {
	virtualPath string
	mountIndex  int
	entry       *MountEntry
	realPath    string
	synthetic   bool
}

// handle returns (allocating if needed) the handle for this node's path.
func (n *node) handle(v *VFS) FileHandle {
	return v.handles.HandleFor(n.virtualPath, n.mountIndex)
}

// resolveHandle maps an incoming client handle to a node. Fails fast with
// ErrStaleHandle/ErrBadHandle before anything else happens.
func (v *VFS) resolveHandle(h FileHandle) (*node, error) {
	virtualPath, _, err := v.handles.Resolve(h)
	if err != nil {
		return nil, err
	}
	return v.resolvePath(virtualPath)
}

// resolvePath maps a virtual path to a node without touching the filesystem,
// except that synthetic fallback is decided purely from configuration.
func (v *VFS) resolvePath(virtualPath string) (*node, error) {
	idx, entry, rest, err := v.registry.Resolve(virtualPath)
	if err != nil {
		if v.registry.IsSyntheticDir(virtualPath) {
			return &node{virtualPath: virtualPath, mountIndex: -1, synthetic: true}, nil
		}
		return nil, err
	}

	real, err := v.registry.RealPath(entry, rest)
	if err != nil {
		return nil, err
	}
	return &node{virtualPath: virtualPath, mountIndex: idx, entry: entry, realPath: real}, nil
}

// attr translates the node's current local metadata. Synthetic directories
// report fixed attributes derived from the server process.
func (v *VFS) attr(n *node) (*FileAttr, error) {
	fileid := FileID(n.handle(v))
	if n.synthetic {
		return syntheticDirAttr(fileid, v.bootTime), nil
	}

	info, err := os.Lstat(n.realPath)
	if err != nil {
		return nil, mapOSError(err, n.virtualPath)
	}
	return fileAttrFromInfo(info, fileid, n.mountIndex), nil
}

// check runs the fail-fast preamble shared by every operation: context
// liveness and the access policy for the operation's class.
func (v *VFS) check(ctx context.Context, client string, n *node, class OpClass) error {
	if err := ctx.Err(); err != nil {
		return newError(ErrIO, "operation cancelled", n.virtualPath)
	}
	return v.policy.Evaluate(client, n.entry, class)
}

// GetAttr returns the current attributes of the entity a handle names.
func (v *VFS) GetAttr(ctx context.Context, client string, h FileHandle) (*FileAttr, error) {
	n, err := v.resolveHandle(h)
	if err != nil {
		return nil, err
	}
	if err := v.check(ctx, client, n, OpRead); err != nil {
		return nil, err
	}
	return v.attr(n)
}

// SetAttr applies the requested attribute changes. Any change to size, mode,
// ownership or timestamps is a mutating operation and is rejected under
// read-only policy before touching the filesystem.
func (v *VFS) SetAttr(ctx context.Context, client string, h FileHandle, set *SetAttr) (*FileAttr, error) {
	n, err := v.resolveHandle(h)
	if err != nil {
		return nil, err
	}

	class := OpWrite
	if set.Empty() {
		class = OpRead
	}
	if err := v.check(ctx, client, n, class); err != nil {
		return nil, err
	}
	if n.synthetic {
		return nil, newError(ErrNotSupported, "cannot set attributes on virtual directory", n.virtualPath)
	}

	if set.Size != nil {
		if err := os.Truncate(n.realPath, int64(*set.Size)); err != nil {
			return nil, mapOSError(err, n.virtualPath)
		}
	}
	if set.Mode != nil {
		if err := os.Chmod(n.realPath, os.FileMode(*set.Mode)); err != nil {
			return nil, mapOSError(err, n.virtualPath)
		}
	}
	if set.UID != nil || set.GID != nil {
		uid, gid := -1, -1
		if set.UID != nil {
			uid = int(*set.UID)
		}
		if set.GID != nil {
			gid = int(*set.GID)
		}
		if err := os.Chown(n.realPath, uid, gid); err != nil {
			return nil, mapOSError(err, n.virtualPath)
		}
	}
	if set.Atime != nil || set.Mtime != nil {
		atime, mtime, err := v.timesFor(n, set)
		if err != nil {
			return nil, err
		}
		if err := os.Chtimes(n.realPath, atime, mtime); err != nil {
			return nil, mapOSError(err, n.virtualPath)
		}
	}

	logger.Debug("SETATTR %s: size=%v mode=%v", n.virtualPath, set.Size, set.Mode)
	return v.attr(n)
}

// timesFor fills in the unmodified side of a partial atime/mtime update from
// the file's current values, since os.Chtimes sets both.
func (v *VFS) timesFor(n *node, set *SetAttr) (time.Time, time.Time, error) {
	cur, err := v.attr(n)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	atime, mtime := cur.Atime, cur.Mtime
	if set.Atime != nil {
		atime = *set.Atime
	}
	if set.Mtime != nil {
		mtime = *set.Mtime
	}
	return atime, mtime, nil
}

// Access request bits, matching the NFSv3 ACCESS3 mask.
const (
	AccessRead    = 0x0001
	AccessLookup  = 0x0002
	AccessModify  = 0x0004
	AccessExtend  = 0x0008
	AccessDelete  = 0x0010
	AccessExecute = 0x0020
)

// Access folds the access policy into the client's requested operation
// classes and returns the granted subset plus current attributes.
func (v *VFS) Access(ctx context.Context, client string, h FileHandle, requested uint32) (uint32, *FileAttr, error) {
	n, err := v.resolveHandle(h)
	if err != nil {
		return 0, nil, err
	}
	if err := v.check(ctx, client, n, OpRead); err != nil {
		return 0, nil, err
	}

	attr, err := v.attr(n)
	if err != nil {
		return 0, nil, err
	}

	granted := requested & (AccessRead | AccessLookup | AccessExecute)
	if v.policy.Evaluate(client, n.entry, OpWrite) == nil {
		granted |= requested & (AccessModify | AccessExtend | AccessDelete)
	}
	return granted, attr, nil
}

// Commit flushes buffered writes for the handle's file to stable storage.
// The dispatcher writes through the OS page cache, so COMMIT maps to fsync.
func (v *VFS) Commit(ctx context.Context, client string, h FileHandle) (*FileAttr, error) {
	n, err := v.resolveHandle(h)
	if err != nil {
		return nil, err
	}
	if err := v.check(ctx, client, n, OpRead); err != nil {
		return nil, err
	}
	if n.synthetic {
		return v.attr(n)
	}

	f, err := os.Open(n.realPath)
	if err != nil {
		return nil, mapOSError(err, n.virtualPath)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return nil, mapOSError(err, n.virtualPath)
	}
	return v.attr(n)
}

// Locate resolves a virtual path to a directory handle. MOUNT requests name
// exports by path rather than by handle, so this is the entry point the
// MOUNT program uses; everything after the mount travels by handle.
func (v *VFS) Locate(ctx context.Context, client, virtualPath string) (FileHandle, *FileAttr, error) {
	normalized, err := NormalizeVirtual(virtualPath)
	if err != nil {
		return nil, nil, err
	}

	n, err := v.resolvePath(normalized)
	if err != nil {
		return nil, nil, err
	}
	if err := v.check(ctx, client, n, OpRead); err != nil {
		return nil, nil, err
	}
	if err := v.requireDirectory(n); err != nil {
		return nil, nil, err
	}

	attr, err := v.attr(n)
	if err != nil {
		return nil, nil, err
	}
	return n.handle(v), attr, nil
}
