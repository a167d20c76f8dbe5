package nfs

import "github.com/benignx/nfsmirror/pkg/vfs"

// StatusOf translates a dispatcher error into its NFSv3 status code. Every
// error code in the vfs taxonomy has a mapping; anything unrecognized is
// reported as an I/O error without leaking detail to the client.
func StatusOf(err error) uint32 {
	if err == nil {
		return NFS3OK
	}
	switch vfs.CodeOf(err) {
	case vfs.ErrNotFound:
		return NFS3ErrNoEnt
	case vfs.ErrNotDirectory:
		return NFS3ErrNotDir
	case vfs.ErrIsDirectory:
		return NFS3ErrIsDir
	case vfs.ErrExists:
		return NFS3ErrExist
	case vfs.ErrNotEmpty:
		return NFS3ErrNotEmpty
	case vfs.ErrStaleHandle:
		return NFS3ErrStale
	case vfs.ErrBadHandle:
		return NFS3ErrBadHandle
	case vfs.ErrAccessDenied:
		return NFS3ErrAcces
	case vfs.ErrReadOnly:
		return NFS3ErrRofs
	case vfs.ErrInvalidPath:
		return NFS3ErrInval
	case vfs.ErrCrossMount:
		return NFS3ErrXDev
	case vfs.ErrBadCookie:
		return NFS3ErrBadCookie
	case vfs.ErrNoSpace:
		return NFS3ErrNoSpc
	case vfs.ErrNotSupported:
		return NFS3ErrNotSupp
	default:
		return NFS3ErrIO
	}
}
