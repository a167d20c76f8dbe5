package nfs

// NFSv3 procedure numbers (RFC 1813 Section 3.3).
const (
	ProcNull        = 0
	ProcGetAttr     = 1
	ProcSetAttr     = 2
	ProcLookup      = 3
	ProcAccess      = 4
	ProcReadLink    = 5
	ProcRead        = 6
	ProcWrite       = 7
	ProcCreate      = 8
	ProcMkdir       = 9
	ProcSymlink     = 10
	ProcMknod       = 11
	ProcRemove      = 12
	ProcRmdir       = 13
	ProcRename      = 14
	ProcLink        = 15
	ProcReadDir     = 16
	ProcReadDirPlus = 17
	ProcFsStat      = 18
	ProcFsInfo      = 19
	ProcPathConf    = 20
	ProcCommit      = 21
)

// NFSv3 status codes (RFC 1813 Section 2.6).
const (
	// NFS3OK - Success
	NFS3OK = 0

	// NFS3ErrPerm - Not owner
	NFS3ErrPerm = 1

	// NFS3ErrNoEnt - No such file or directory
	NFS3ErrNoEnt = 2

	// NFS3ErrIO - I/O error
	NFS3ErrIO = 5

	// NFS3ErrAcces - Permission denied
	NFS3ErrAcces = 13

	// NFS3ErrExist - File exists
	NFS3ErrExist = 17

	// NFS3ErrXDev - Attempt to cross a filesystem boundary
	NFS3ErrXDev = 18

	// NFS3ErrNotDir - Not a directory
	NFS3ErrNotDir = 20

	// NFS3ErrIsDir - Is a directory
	NFS3ErrIsDir = 21

	// NFS3ErrInval - Invalid argument
	NFS3ErrInval = 22

	// NFS3ErrFBig - File too large
	NFS3ErrFBig = 27

	// NFS3ErrNoSpc - No space left on device
	NFS3ErrNoSpc = 28

	// NFS3ErrRofs - Read-only file system
	NFS3ErrRofs = 30

	// NFS3ErrNameTooLong - Filename too long
	NFS3ErrNameTooLong = 63

	// NFS3ErrNotEmpty - Directory not empty
	NFS3ErrNotEmpty = 66

	// NFS3ErrStale - Stale file handle
	NFS3ErrStale = 70

	// NFS3ErrBadHandle - Handle was never issued by this server
	NFS3ErrBadHandle = 10001

	// NFS3ErrNotSync - SETATTR guard mismatch
	NFS3ErrNotSync = 10002

	// NFS3ErrBadCookie - READDIR cookie is no longer valid
	NFS3ErrBadCookie = 10003

	// NFS3ErrNotSupp - Operation not supported
	NFS3ErrNotSupp = 10004

	// NFS3ErrServerFault - Undefined server failure
	NFS3ErrServerFault = 10006
)

// FSINFO property flags (RFC 1813 Section 3.3.19).
const (
	FSFLink        = 0x0001
	FSFSymlink     = 0x0002
	FSFHomogeneous = 0x0008
	FSFCanSetTime  = 0x0010
)

// Write stability modes (RFC 1813 Section 3.3.7).
const (
	// WriteUnstable lets the server reply before flushing to stable storage
	WriteUnstable = 0

	// WriteDataSync requires file data to be flushed before replying
	WriteDataSync = 1

	// WriteFileSync requires data and metadata to be flushed before replying
	WriteFileSync = 2
)

// CREATE modes (RFC 1813 Section 3.3.8).
const (
	// CreateUnchecked truncates an existing file of the same name
	CreateUnchecked = 0

	// CreateGuarded fails with NFS3ERR_EXIST on an existing name
	CreateGuarded = 1

	// CreateExclusive uses the verifier-based exclusive create protocol
	CreateExclusive = 2
)

// SETATTR/time union discriminants (RFC 1813 Section 3.3.2).
const (
	timeDontChange      = 0
	timeSetToServerTime = 1
	timeSetToClientTime = 2
)
