package rpc

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// CallMessage is the fixed header of an ONC RPC call record.
type CallMessage struct {
	XID        uint32
	MsgType    uint32
	RPCVersion uint32
	Program    uint32
	Version    uint32
	Procedure  uint32
	Cred       OpaqueAuth
	Verf       OpaqueAuth
}

// ReplyMessage is the header of an accepted RPC reply; the procedure's
// result bytes follow it on the wire.
type ReplyMessage struct {
	XID        uint32
	MsgType    uint32 // MsgReply
	ReplyState uint32 // MsgAccepted
	Verf       OpaqueAuth
	AcceptStat uint32
}

// DeniedReplyMessage is the header of a rejected RPC reply.
type DeniedReplyMessage struct {
	XID        uint32
	MsgType    uint32 // MsgReply
	ReplyState uint32 // MsgDenied
	RejectStat uint32
	AuthStat   uint32
}

// OpaqueAuth is the flavor-tagged credential blob carried on every call.
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte `xdr:"opaque"`
}

// AuthSysCred is the decoded body of an AUTH_SYS credential (RFC 5531
// appendix A): the classic UNIX identity the client claims.
type AuthSysCred struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

// AuthSys decodes the call's credential body as AUTH_SYS. Calls carrying
// AUTH_NONE (or any other flavor) return nil without error; the server
// accepts them and treats the client as anonymous.
func (c *CallMessage) AuthSys() (*AuthSysCred, error) {
	if c.Cred.Flavor != AuthSys {
		return nil, nil
	}
	cred := &AuthSysCred{}
	if _, err := xdr.Unmarshal(bytes.NewReader(c.Cred.Body), cred); err != nil {
		return nil, fmt.Errorf("unmarshal AUTH_SYS credential: %w", err)
	}
	return cred, nil
}
