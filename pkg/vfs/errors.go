package vfs

import (
	"errors"
	"io/fs"
	"os"
	"syscall"
)

// Error represents a domain error from virtual filesystem operations.
//
// These are business errors (file not found, stale handle, policy denial) as
// opposed to infrastructure failures. The protocol layer translates the Code
// into NFSv3 status codes; the Path field is for server-side logging only and
// never crosses the wire.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the virtual or real path related to the error, if any
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a vfs error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested entry does not exist
	ErrNotFound ErrorCode = iota

	// ErrNotDirectory indicates the operation expected a directory
	ErrNotDirectory

	// ErrIsDirectory indicates the operation expected a regular file
	ErrIsDirectory

	// ErrExists indicates the target name already exists
	ErrExists

	// ErrNotEmpty indicates a directory cannot be removed because it has children
	ErrNotEmpty

	// ErrStaleHandle indicates a handle whose entity was removed or invalidated
	ErrStaleHandle

	// ErrBadHandle indicates a handle that was never issued by this server run
	ErrBadHandle

	// ErrAccessDenied indicates the client failed the access policy
	ErrAccessDenied

	// ErrReadOnly indicates a mutating operation against read-only configuration
	ErrReadOnly

	// ErrInvalidPath indicates a path that would escape its mount after
	// normalization (traversal attempt) or is otherwise malformed
	ErrInvalidPath

	// ErrCrossMount indicates a rename or link spanning two mount entries
	ErrCrossMount

	// ErrBadCookie indicates a READDIR cookie that does not belong to the
	// directory snapshot it was presented against
	ErrBadCookie

	// ErrNoSpace indicates the underlying filesystem is out of space
	ErrNoSpace

	// ErrNotSupported indicates the operation is not supported on the entity
	ErrNotSupported

	// ErrIO is an opaque local filesystem failure; logged with context
	// server-side, surfaced generically to clients, never fatal to the server
	ErrIO
)

func newError(code ErrorCode, message, path string) *Error {
	return &Error{Code: code, Message: message, Path: path}
}

// CodeOf extracts the ErrorCode from an error returned by this package.
// Unknown errors report ErrIO so callers always have a protocol mapping.
func CodeOf(err error) ErrorCode {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Code
	}
	return ErrIO
}

// mapOSError converts a local filesystem error into the vfs taxonomy.
// Errno checks come first: fs.ErrPermission etc. cover the portable cases, the
// syscall constants cover the ones the stdlib has no sentinel for.
func mapOSError(err error, path string) *Error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOENT:
			return newError(ErrNotFound, "no such file or directory", path)
		case syscall.ENOTDIR:
			return newError(ErrNotDirectory, "not a directory", path)
		case syscall.EISDIR:
			return newError(ErrIsDirectory, "is a directory", path)
		case syscall.EEXIST:
			return newError(ErrExists, "already exists", path)
		case syscall.ENOTEMPTY:
			return newError(ErrNotEmpty, "directory not empty", path)
		case syscall.EACCES, syscall.EPERM:
			return newError(ErrAccessDenied, "permission denied", path)
		case syscall.EROFS:
			return newError(ErrReadOnly, "read-only file system", path)
		case syscall.EXDEV:
			return newError(ErrCrossMount, "cross-device operation", path)
		case syscall.ENOSPC, syscall.EDQUOT:
			return newError(ErrNoSpace, "no space left on device", path)
		case syscall.ENAMETOOLONG:
			return newError(ErrInvalidPath, "name too long", path)
		}
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return newError(ErrNotFound, "no such file or directory", path)
	case errors.Is(err, fs.ErrExist):
		return newError(ErrExists, "already exists", path)
	case errors.Is(err, fs.ErrPermission):
		return newError(ErrAccessDenied, "permission denied", path)
	case errors.Is(err, os.ErrInvalid):
		return newError(ErrInvalidPath, "invalid argument", path)
	}

	return newError(ErrIO, err.Error(), path)
}
