package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/rpc"
)

// maxRecordSize caps a reassembled RPC record. The largest legitimate
// request is a full-size WRITE plus headers, so anything bigger is a broken
// or hostile client.
const maxRecordSize = 2 << 20

type conn struct {
	server *Server
	conn   net.Conn

	// client is the remote address, passed to the access policy.
	client string
}

type fragmentHeader struct {
	isLast bool
	length uint32
}

func (s *Server) newConn(tcpConn net.Conn) *conn {
	return &conn{
		server: s,
		conn:   tcpConn,
		client: tcpConn.RemoteAddr().String(),
	}
}

func (c *conn) serve(ctx context.Context) {
	defer c.conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.handleRequest(ctx); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Debug("Connection %s: %v", c.client, err)
			}
			return
		}
	}
}

func (c *conn) handleRequest(ctx context.Context) error {
	record, err := c.readRecord()
	if err != nil {
		return err
	}

	call, err := rpc.ReadCall(record)
	if err != nil {
		// Not a call we can frame a reply for; drop the connection.
		return fmt.Errorf("parse RPC call: %w", err)
	}

	logger.Trace("RPC call: XID=0x%x program=%d version=%d procedure=%d client=%s",
		call.XID, call.Program, call.Version, call.Procedure, c.client)

	reply, err := c.dispatch(ctx, call, record)
	if err != nil {
		return err
	}
	return c.sendReply(reply)
}

// readRecord reassembles one RPC record, which may span several fragments.
// The first byte may arrive after a long idle gap, so the idle timeout
// applies until the header is in and the read timeout applies after.
func (c *conn) readRecord() ([]byte, error) {
	if c.server.config.IdleTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.server.config.IdleTimeout)); err != nil {
			return nil, err
		}
	}

	var record []byte
	first := true
	for {
		header, err := c.readFragmentHeader()
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if c.server.config.ReadTimeout > 0 {
				if err := c.conn.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout)); err != nil {
					return nil, err
				}
			}
		}

		if uint64(len(record))+uint64(header.length) > maxRecordSize {
			return nil, fmt.Errorf("RPC record exceeds %d bytes", maxRecordSize)
		}

		fragment := make([]byte, header.length)
		if _, err := io.ReadFull(c.conn, fragment); err != nil {
			return nil, fmt.Errorf("read fragment: %w", err)
		}
		record = append(record, fragment...)

		if header.isLast {
			return record, nil
		}
	}
}

func (c *conn) readFragmentHeader() (*fragmentHeader, error) {
	var buf [4]byte
	if _, err := io.ReadFull(c.conn, buf[:]); err != nil {
		return nil, err
	}

	header := binary.BigEndian.Uint32(buf[:])
	return &fragmentHeader{
		isLast: header&0x80000000 != 0,
		length: header & 0x7FFFFFFF,
	}, nil
}

// dispatch routes a parsed call to the right program handler and builds the
// framed reply. Protocol-level failures (wrong program, wrong version, bad
// auth, undecodable arguments) become RPC error replies rather than closed
// connections.
func (c *conn) dispatch(ctx context.Context, call *rpc.CallMessage, record []byte) ([]byte, error) {
	if call.RPCVersion != rpc.RPCVersion {
		logger.Debug("RPC version %d from %s rejected", call.RPCVersion, c.client)
		return rpc.MakeRPCMismatchReply(call.XID)
	}

	if call.Cred.Flavor != rpc.AuthNone && call.Cred.Flavor != rpc.AuthSys {
		logger.Debug("Auth flavor %d from %s rejected", call.Cred.Flavor, c.client)
		return rpc.MakeAuthErrorReply(call.XID, rpc.AuthTooWeak)
	}

	if call.Program != rpc.ProgramNFS && call.Program != rpc.ProgramMount {
		logger.Debug("Unknown program %d from %s", call.Program, c.client)
		return rpc.MakeAcceptErrorReply(call.XID, rpc.AcceptProgUnavail)
	}

	// Both served programs are version 3 only.
	if call.Version != 3 {
		logger.Debug("Program %d version %d from %s rejected", call.Program, call.Version, c.client)
		return rpc.MakeProgMismatchReply(call.XID, 3, 3)
	}

	data, err := rpc.ReadData(record, call)
	if err != nil {
		return rpc.MakeAcceptErrorReply(call.XID, rpc.AcceptGarbageArgs)
	}

	var replyData []byte
	switch call.Program {
	case rpc.ProgramNFS:
		replyData, err = c.handleNFSProcedure(ctx, call.Procedure, data)
	case rpc.ProgramMount:
		replyData, err = c.handleMountProcedure(ctx, call.Procedure, data)
	}

	switch {
	case errors.Is(err, errProcUnavail):
		return rpc.MakeAcceptErrorReply(call.XID, rpc.AcceptProcUnavail)
	case errors.Is(err, errGarbageArgs):
		return rpc.MakeAcceptErrorReply(call.XID, rpc.AcceptGarbageArgs)
	case err != nil:
		logger.Error("Procedure %d/%d failed: %v", call.Program, call.Procedure, err)
		return rpc.MakeAcceptErrorReply(call.XID, rpc.AcceptSystemErr)
	}

	return rpc.MakeSuccessReply(call.XID, replyData)
}

func (c *conn) sendReply(reply []byte) error {
	if c.server.config.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout)); err != nil {
			return err
		}
	}
	if _, err := c.conn.Write(reply); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}
