package rpc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// ReadCall parses the RPC call header at the start of a record.
func ReadCall(data []byte) (*CallMessage, error) {
	call := &CallMessage{}
	if _, err := xdr.Unmarshal(bytes.NewReader(data), call); err != nil {
		return nil, fmt.Errorf("unmarshal RPC call: %w", err)
	}

	if call.MsgType != MsgCall {
		return nil, fmt.Errorf("expected CALL (%d), got %d", MsgCall, call.MsgType)
	}

	return call, nil
}

// ReadData returns the procedure arguments that follow the RPC call header:
// the six fixed words, then the variable-length credential and verifier.
func ReadData(message []byte, call *CallMessage) ([]byte, error) {
	// XID, MsgType, RPCVersion, Program, Version, Procedure
	offset := 24

	offset, err := skipOpaqueAuth(message, offset)
	if err != nil {
		return nil, fmt.Errorf("skip credential: %w", err)
	}
	offset, err = skipOpaqueAuth(message, offset)
	if err != nil {
		return nil, fmt.Errorf("skip verifier: %w", err)
	}

	if offset >= len(message) {
		return []byte{}, nil
	}
	return message[offset:], nil
}

// skipOpaqueAuth advances past a flavor word plus the opaque body with its
// XDR padding, bounds-checking as it goes so a truncated record cannot
// panic the parser.
func skipOpaqueAuth(message []byte, offset int) (int, error) {
	if offset+8 > len(message) {
		return 0, fmt.Errorf("truncated at offset %d", offset)
	}
	bodyLen := binary.BigEndian.Uint32(message[offset+4 : offset+8])
	padded := (bodyLen + 3) &^ 3

	next := offset + 8 + int(padded)
	if bodyLen > uint32(len(message)) || next > len(message) {
		return 0, fmt.Errorf("auth body of %d bytes exceeds record", bodyLen)
	}
	return next, nil
}

// MakeSuccessReply frames an accepted SUCCESS reply around the procedure's
// result bytes, prepending the record-marking fragment header.
func MakeSuccessReply(xid uint32, data []byte) ([]byte, error) {
	reply := ReplyMessage{
		XID:        xid,
		MsgType:    MsgReply,
		ReplyState: MsgAccepted,
		Verf: OpaqueAuth{
			Flavor: AuthNone,
			Body:   []byte{},
		},
		AcceptStat: AcceptSuccess,
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &reply); err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}
	buf.Write(data)

	return frame(buf.Bytes()), nil
}

// MakeAcceptErrorReply frames an accepted reply with a non-success status
// (PROG_UNAVAIL, PROC_UNAVAIL, GARBAGE_ARGS, SYSTEM_ERR).
func MakeAcceptErrorReply(xid, acceptStat uint32) ([]byte, error) {
	reply := ReplyMessage{
		XID:        xid,
		MsgType:    MsgReply,
		ReplyState: MsgAccepted,
		Verf: OpaqueAuth{
			Flavor: AuthNone,
			Body:   []byte{},
		},
		AcceptStat: acceptStat,
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &reply); err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}
	return frame(buf.Bytes()), nil
}

// MakeProgMismatchReply frames a PROG_MISMATCH reply advertising the
// supported version range.
func MakeProgMismatchReply(xid, low, high uint32) ([]byte, error) {
	reply := struct {
		ReplyMessage
		Low  uint32
		High uint32
	}{
		ReplyMessage: ReplyMessage{
			XID:        xid,
			MsgType:    MsgReply,
			ReplyState: MsgAccepted,
			Verf:       OpaqueAuth{Flavor: AuthNone, Body: []byte{}},
			AcceptStat: AcceptProgMismatch,
		},
		Low:  low,
		High: high,
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &reply); err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}
	return frame(buf.Bytes()), nil
}

// MakeAuthErrorReply frames a MSG_DENIED/AUTH_ERROR reply for refused
// credentials.
func MakeAuthErrorReply(xid, authStat uint32) ([]byte, error) {
	reply := DeniedReplyMessage{
		XID:        xid,
		MsgType:    MsgReply,
		ReplyState: MsgDenied,
		RejectStat: RejectAuthError,
		AuthStat:   authStat,
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &reply); err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}
	return frame(buf.Bytes()), nil
}

// MakeRPCMismatchReply frames a MSG_DENIED/RPC_MISMATCH reply advertising
// the only RPC protocol version this server speaks.
func MakeRPCMismatchReply(xid uint32) ([]byte, error) {
	reply := struct {
		XID        uint32
		MsgType    uint32
		ReplyState uint32
		RejectStat uint32
		Low        uint32
		High       uint32
	}{xid, MsgReply, MsgDenied, RejectRPCMismatch, RPCVersion, RPCVersion}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &reply); err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}
	return frame(buf.Bytes()), nil
}

// frame prepends the TCP record-marking header: high bit marks the last
// fragment, the rest is the fragment length.
func frame(record []byte) []byte {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, 0x80000000|uint32(len(record)))
	return append(header, record...)
}
