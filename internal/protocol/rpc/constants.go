package rpc

// RPC program numbers served by this process (RFC 1813).
const (
	// ProgramNFS is the NFS version 3 program number
	ProgramNFS = 100003

	// ProgramMount is the Mount protocol program number (RFC 1813 Appendix I)
	ProgramMount = 100005
)

// RPCVersion is the ONC RPC protocol version (RFC 5531); always 2.
const RPCVersion = 2

// RPC message types
const (
	// MsgCall indicates an RPC call message
	MsgCall = 0

	// MsgReply indicates an RPC reply message
	MsgReply = 1
)

// RPC reply states
const (
	// MsgAccepted indicates the RPC call was accepted
	MsgAccepted = 0

	// MsgDenied indicates the RPC call was denied
	MsgDenied = 1
)

// RPC accept status (for MsgAccepted replies)
const (
	// AcceptSuccess indicates successful RPC execution
	AcceptSuccess = 0

	// AcceptProgUnavail indicates the program is not served here
	AcceptProgUnavail = 1

	// AcceptProgMismatch indicates an unsupported program version
	AcceptProgMismatch = 2

	// AcceptProcUnavail indicates the procedure is unavailable
	AcceptProcUnavail = 3

	// AcceptGarbageArgs indicates the arguments could not be decoded
	AcceptGarbageArgs = 4

	// AcceptSystemErr indicates an internal failure before dispatch
	AcceptSystemErr = 5
)

// RPC reject status (for MsgDenied replies)
const (
	// RejectRPCMismatch indicates an unsupported RPC protocol version
	RejectRPCMismatch = 0

	// RejectAuthError indicates the credentials were refused
	RejectAuthError = 1
)

// Authentication status codes used with RejectAuthError
const (
	// AuthBadCred indicates malformed credentials
	AuthBadCred = 1

	// AuthTooWeak indicates the credentials were rejected by policy
	AuthTooWeak = 5
)

// Authentication flavors
const (
	// AuthNone carries no credentials
	AuthNone = 0

	// AuthSys carries traditional UNIX uid/gid credentials
	AuthSys = 1
)
