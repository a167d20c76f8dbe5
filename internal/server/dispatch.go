package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/protocol/mount"
	"github.com/benignx/nfsmirror/internal/protocol/nfs"
)

var (
	// errProcUnavail marks a procedure number the program does not serve.
	errProcUnavail = errors.New("procedure not available")

	// errGarbageArgs marks arguments that did not decode.
	errGarbageArgs = errors.New("malformed procedure arguments")
)

type rpcResponse interface {
	Encode() ([]byte, error)
}

// handleRequest is the decode/handle/encode pipeline shared by every
// procedure of both programs. Decode failures surface as errGarbageArgs so
// the connection layer can send the matching RPC accept status.
func handleRequest[Req any, Resp rpcResponse](
	data []byte,
	decode func([]byte) (Req, error),
	handle func(Req) (Resp, error),
) ([]byte, error) {
	req, err := decode(data)
	if err != nil {
		logger.Debug("Decode error: %v", err)
		return nil, fmt.Errorf("%w: %v", errGarbageArgs, err)
	}

	resp, err := handle(req)
	if err != nil {
		return nil, err
	}
	return resp.Encode()
}

func (c *conn) handleNFSProcedure(ctx context.Context, procedure uint32, data []byte) ([]byte, error) {
	handler := c.server.nfsHandler
	client := c.client

	switch procedure {
	case nfs.ProcNull:
		return handler.Null()
	case nfs.ProcGetAttr:
		return handleRequest(data, nfs.DecodeGetAttrRequest,
			func(req *nfs.GetAttrRequest) (*nfs.GetAttrResponse, error) {
				return handler.GetAttr(ctx, client, req)
			})
	case nfs.ProcSetAttr:
		return handleRequest(data, nfs.DecodeSetAttrRequest,
			func(req *nfs.SetAttrRequest) (*nfs.SetAttrResponse, error) {
				return handler.SetAttr(ctx, client, req)
			})
	case nfs.ProcLookup:
		return handleRequest(data, nfs.DecodeLookupRequest,
			func(req *nfs.LookupRequest) (*nfs.LookupResponse, error) {
				return handler.Lookup(ctx, client, req)
			})
	case nfs.ProcAccess:
		return handleRequest(data, nfs.DecodeAccessRequest,
			func(req *nfs.AccessRequest) (*nfs.AccessResponse, error) {
				return handler.Access(ctx, client, req)
			})
	case nfs.ProcReadLink:
		return handleRequest(data, nfs.DecodeReadLinkRequest,
			func(req *nfs.ReadLinkRequest) (*nfs.ReadLinkResponse, error) {
				return handler.ReadLink(ctx, client, req)
			})
	case nfs.ProcRead:
		return handleRequest(data, nfs.DecodeReadRequest,
			func(req *nfs.ReadRequest) (*nfs.ReadResponse, error) {
				return handler.Read(ctx, client, req)
			})
	case nfs.ProcWrite:
		return handleRequest(data, nfs.DecodeWriteRequest,
			func(req *nfs.WriteRequest) (*nfs.WriteResponse, error) {
				return handler.Write(ctx, client, req)
			})
	case nfs.ProcCreate:
		return handleRequest(data, nfs.DecodeCreateRequest,
			func(req *nfs.CreateRequest) (*nfs.CreateResponse, error) {
				return handler.Create(ctx, client, req)
			})
	case nfs.ProcMkdir:
		return handleRequest(data, nfs.DecodeMkdirRequest,
			func(req *nfs.MkdirRequest) (*nfs.MkdirResponse, error) {
				return handler.Mkdir(ctx, client, req)
			})
	case nfs.ProcSymlink:
		return handleRequest(data, nfs.DecodeSymlinkRequest,
			func(req *nfs.SymlinkRequest) (*nfs.SymlinkResponse, error) {
				return handler.Symlink(ctx, client, req)
			})
	case nfs.ProcMknod:
		// Device nodes are not exposed through the mirror.
		return nil, errProcUnavail
	case nfs.ProcRemove:
		return handleRequest(data, nfs.DecodeRemoveRequest,
			func(req *nfs.RemoveRequest) (*nfs.RemoveResponse, error) {
				return handler.Remove(ctx, client, req)
			})
	case nfs.ProcRmdir:
		return handleRequest(data, nfs.DecodeRmdirRequest,
			func(req *nfs.RmdirRequest) (*nfs.RmdirResponse, error) {
				return handler.Rmdir(ctx, client, req)
			})
	case nfs.ProcRename:
		return handleRequest(data, nfs.DecodeRenameRequest,
			func(req *nfs.RenameRequest) (*nfs.RenameResponse, error) {
				return handler.Rename(ctx, client, req)
			})
	case nfs.ProcLink:
		return handleRequest(data, nfs.DecodeLinkRequest,
			func(req *nfs.LinkRequest) (*nfs.LinkResponse, error) {
				return handler.Link(ctx, client, req)
			})
	case nfs.ProcReadDir:
		return handleRequest(data, nfs.DecodeReadDirRequest,
			func(req *nfs.ReadDirRequest) (*nfs.ReadDirResponse, error) {
				return handler.ReadDir(ctx, client, req)
			})
	case nfs.ProcReadDirPlus:
		return handleRequest(data, nfs.DecodeReadDirPlusRequest,
			func(req *nfs.ReadDirPlusRequest) (*nfs.ReadDirPlusResponse, error) {
				return handler.ReadDirPlus(ctx, client, req)
			})
	case nfs.ProcFsStat:
		return handleRequest(data, nfs.DecodeFsStatRequest,
			func(req *nfs.FsStatRequest) (*nfs.FsStatResponse, error) {
				return handler.FsStat(ctx, client, req)
			})
	case nfs.ProcFsInfo:
		return handleRequest(data, nfs.DecodeFsInfoRequest,
			func(req *nfs.FsInfoRequest) (*nfs.FsInfoResponse, error) {
				return handler.FsInfo(ctx, client, req)
			})
	case nfs.ProcPathConf:
		return handleRequest(data, nfs.DecodePathConfRequest,
			func(req *nfs.PathConfRequest) (*nfs.PathConfResponse, error) {
				return handler.PathConf(ctx, client, req)
			})
	case nfs.ProcCommit:
		return handleRequest(data, nfs.DecodeCommitRequest,
			func(req *nfs.CommitRequest) (*nfs.CommitResponse, error) {
				return handler.Commit(ctx, client, req)
			})
	default:
		logger.Debug("Unknown NFS procedure %d from %s", procedure, client)
		return nil, errProcUnavail
	}
}

func (c *conn) handleMountProcedure(ctx context.Context, procedure uint32, data []byte) ([]byte, error) {
	handler := c.server.mountHandler
	client := c.client

	switch procedure {
	case mount.MountProcNull:
		return handler.Null()
	case mount.MountProcMnt:
		return handleRequest(data, mount.DecodeMntRequest,
			func(req *mount.MntRequest) (*mount.MntResponse, error) {
				return handler.Mnt(ctx, client, req)
			})
	case mount.MountProcDump:
		return handleRequest(data, mount.DecodeDumpRequest,
			func(req *mount.DumpRequest) (*mount.DumpResponse, error) {
				return handler.Dump(client, req)
			})
	case mount.MountProcUmnt:
		return handleRequest(data, mount.DecodeUmntRequest,
			func(req *mount.UmntRequest) (*mount.UmntResponse, error) {
				return handler.Umnt(client, req)
			})
	case mount.MountProcUmntAll:
		return handleRequest(data, mount.DecodeUmntAllRequest,
			func(req *mount.UmntAllRequest) (*mount.UmntAllResponse, error) {
				return handler.UmntAll(client, req)
			})
	case mount.MountProcExport:
		return handleRequest(data, mount.DecodeExportRequest,
			func(req *mount.ExportRequest) (*mount.ExportResponse, error) {
				return handler.Export(client, req)
			})
	default:
		logger.Debug("Unknown MOUNT procedure %d from %s", procedure, client)
		return nil, errProcUnavail
	}
}
