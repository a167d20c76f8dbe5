package nfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benignx/nfsmirror/internal/protocol/nfs/types"
	"github.com/benignx/nfsmirror/pkg/vfs"
)

const testClient = "127.0.0.1:1023"

// newTestHandler serves one writable mount at /data backed by a temp dir.
func newTestHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	source := t.TempDir()

	registry, err := vfs.NewMountRegistry([]vfs.MountEntry{
		{Source: source, Target: "/data"},
	})
	require.NoError(t, err)
	policy, err := vfs.NewAccessPolicy(false, nil)
	require.NoError(t, err)

	return NewHandler(vfs.New(registry, policy)), source
}

func lookupHandle(t *testing.T, h *Handler, dir []byte, name string) []byte {
	t.Helper()
	resp, err := h.Lookup(context.Background(), testClient, &LookupRequest{DirHandle: dir, Name: name})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), resp.Status)
	return resp.Handle
}

func dataDirHandle(t *testing.T, h *Handler) []byte {
	t.Helper()
	return lookupHandle(t, h, h.vfs.Root(), "data")
}

func TestNullReturnsEmptyReply(t *testing.T) {
	h, _ := newTestHandler(t)
	data, err := h.Null()
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestGetAttrRootIsDirectory(t *testing.T) {
	h, _ := newTestHandler(t)

	resp, err := h.GetAttr(context.Background(), testClient, &GetAttrRequest{Handle: h.vfs.Root()})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), resp.Status)
	assert.Equal(t, uint32(vfs.FileTypeDirectory), resp.Attr.Type)
}

func TestGetAttrUnknownHandle(t *testing.T) {
	h, _ := newTestHandler(t)

	resp, err := h.GetAttr(context.Background(), testClient, &GetAttrRequest{Handle: []byte("not a real handle!")})
	require.NoError(t, err)
	assert.Equal(t, uint32(NFS3ErrBadHandle), resp.Status)
	assert.Nil(t, resp.Attr)
}

func TestLookupMissingReturnsNoEntWithDirAttributes(t *testing.T) {
	h, _ := newTestHandler(t)
	dir := dataDirHandle(t, h)

	resp, err := h.Lookup(context.Background(), testClient, &LookupRequest{DirHandle: dir, Name: "ghost"})
	require.NoError(t, err)
	assert.Equal(t, uint32(NFS3ErrNoEnt), resp.Status)
	assert.Nil(t, resp.Handle)
	require.NotNil(t, resp.DirAttr, "failed lookups still carry directory post-op attributes")
}

func TestReadWholeFile(t *testing.T) {
	h, source := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(source, "hello.txt"), []byte("hello world"), 0644))

	handle := lookupHandle(t, h, dataDirHandle(t, h), "hello.txt")
	resp, err := h.Read(context.Background(), testClient, &ReadRequest{Handle: handle, Offset: 0, Count: 64})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), resp.Status)
	assert.Equal(t, []byte("hello world"), resp.Data)
	assert.True(t, resp.EOF)
}

func TestWriteFileSyncLevels(t *testing.T) {
	h, source := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(source, "out.bin"), nil, 0644))
	handle := lookupHandle(t, h, dataDirHandle(t, h), "out.bin")

	payload := []byte("payload")
	resp, err := h.Write(context.Background(), testClient, &WriteRequest{
		Handle: handle,
		Offset: 0,
		Count:  uint32(len(payload)),
		Stable: WriteFileSync,
		Data:   payload,
	})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), resp.Status)
	assert.Equal(t, uint32(len(payload)), resp.Count)
	assert.Equal(t, uint32(WriteFileSync), resp.Committed)

	unstable, err := h.Write(context.Background(), testClient, &WriteRequest{
		Handle: handle,
		Offset: uint64(len(payload)),
		Count:  uint32(len(payload)),
		Stable: WriteUnstable,
		Data:   payload,
	})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), unstable.Status)
	assert.Equal(t, uint32(WriteUnstable), unstable.Committed)
	assert.Equal(t, resp.Verf, unstable.Verf, "write verifier is stable for the process lifetime")

	commit, err := h.Commit(context.Background(), testClient, &CommitRequest{Handle: handle})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), commit.Status)
	assert.Equal(t, resp.Verf, commit.Verf)

	onDisk, err := os.ReadFile(filepath.Join(source, "out.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payloadpayload"), onDisk)
}

func TestWriteTruncatesDataToCount(t *testing.T) {
	h, source := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(source, "f"), nil, 0644))
	handle := lookupHandle(t, h, dataDirHandle(t, h), "f")

	resp, err := h.Write(context.Background(), testClient, &WriteRequest{
		Handle: handle,
		Count:  4,
		Stable: WriteFileSync,
		Data:   []byte("123456789"),
	})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), resp.Status)
	assert.Equal(t, uint32(4), resp.Count)
}

func TestCreateGuardedFailsOnExisting(t *testing.T) {
	h, source := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(source, "taken"), []byte("x"), 0644))
	dir := dataDirHandle(t, h)

	resp, err := h.Create(context.Background(), testClient, &CreateRequest{
		DirHandle: dir,
		Name:      "taken",
		Mode:      CreateGuarded,
		Set:       &vfs.SetAttr{},
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(NFS3ErrExist), resp.Status)
}

func TestCreateUncheckedTruncatesExisting(t *testing.T) {
	h, source := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(source, "taken"), []byte("old content"), 0644))
	dir := dataDirHandle(t, h)

	resp, err := h.Create(context.Background(), testClient, &CreateRequest{
		DirHandle: dir,
		Name:      "taken",
		Mode:      CreateUnchecked,
		Set:       &vfs.SetAttr{},
	})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), resp.Status)
	assert.Equal(t, uint64(0), resp.Attr.Size)
}

func TestSetAttrGuardMismatchReturnsNotSync(t *testing.T) {
	h, source := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(source, "g"), []byte("x"), 0644))
	handle := lookupHandle(t, h, dataDirHandle(t, h), "g")

	size := uint64(0)
	resp, err := h.SetAttr(context.Background(), testClient, &SetAttrRequest{
		Handle: handle,
		Set:    &vfs.SetAttr{Size: &size},
		Guard:  &types.TimeVal{Seconds: 1, Nseconds: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(NFS3ErrNotSync), resp.Status)

	data, err := os.ReadFile(filepath.Join(source, "g"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data, "guarded setattr must not apply on mismatch")
}

func TestRemoveThenGetAttrIsStale(t *testing.T) {
	h, source := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(source, "gone"), []byte("x"), 0644))
	dir := dataDirHandle(t, h)
	handle := lookupHandle(t, h, dir, "gone")

	rm, err := h.Remove(context.Background(), testClient, &RemoveRequest{DirHandle: dir, Name: "gone"})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), rm.Status)

	resp, err := h.GetAttr(context.Background(), testClient, &GetAttrRequest{Handle: handle})
	require.NoError(t, err)
	assert.Equal(t, uint32(NFS3ErrStale), resp.Status)
}

func TestReadDirPaginates(t *testing.T) {
	h, source := newTestHandler(t)
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(source, name), []byte("x"), 0644))
	}
	dir := dataDirHandle(t, h)

	// Count of 256 with the 32-byte estimate yields pages of 8 entries.
	first, err := h.ReadDir(context.Background(), testClient, &ReadDirRequest{DirHandle: dir, Count: 256})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), first.Status)
	require.Len(t, first.Entries, 8)
	assert.False(t, first.EOF)
	assert.Equal(t, ".", first.Entries[0].Name)
	assert.Equal(t, "..", first.Entries[1].Name)

	last := first.Entries[len(first.Entries)-1]
	second, err := h.ReadDir(context.Background(), testClient, &ReadDirRequest{
		DirHandle:  dir,
		Cookie:     last.Cookie,
		CookieVerf: first.CookieVerf,
		Count:      256,
	})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), second.Status)
	assert.True(t, second.EOF)

	var collected []string
	for _, e := range append(first.Entries, second.Entries...) {
		collected = append(collected, e.Name)
	}
	assert.Equal(t, append([]string{".", ".."}, names...), collected)
}

func TestReadDirPlusCarriesHandlesAndAttributes(t *testing.T) {
	h, source := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(source, "file"), []byte("abc"), 0644))
	dir := dataDirHandle(t, h)

	resp, err := h.ReadDirPlus(context.Background(), testClient, &ReadDirPlusRequest{DirHandle: dir, DirCount: 4096, MaxCount: 32768})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), resp.Status)

	var found bool
	for _, e := range resp.Entries {
		if e.Name == "file" {
			found = true
			assert.NotEmpty(t, e.Handle)
			require.NotNil(t, e.Attr)
			assert.Equal(t, uint64(3), e.Attr.Size)
		}
	}
	assert.True(t, found)
}

func TestAccessOnReadOnlyServer(t *testing.T) {
	source := t.TempDir()
	registry, err := vfs.NewMountRegistry([]vfs.MountEntry{{Source: source, Target: "/data"}})
	require.NoError(t, err)
	policy, err := vfs.NewAccessPolicy(true, nil)
	require.NoError(t, err)
	h := NewHandler(vfs.New(registry, policy))

	all := uint32(vfs.AccessRead | vfs.AccessLookup | vfs.AccessModify | vfs.AccessExtend | vfs.AccessDelete | vfs.AccessExecute)
	resp, err := h.Access(context.Background(), testClient, &AccessRequest{Handle: h.vfs.Root(), Access: all})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), resp.Status)
	assert.Zero(t, resp.Access&(vfs.AccessModify|vfs.AccessExtend|vfs.AccessDelete))
	assert.NotZero(t, resp.Access&vfs.AccessRead)
}

func TestFsInfoAdvertisesCapabilities(t *testing.T) {
	h, _ := newTestHandler(t)

	resp, err := h.FsInfo(context.Background(), testClient, &FsInfoRequest{Handle: h.vfs.Root()})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), resp.Status)
	assert.NotZero(t, resp.RtMax)
	assert.NotZero(t, resp.WtMax)
	assert.NotZero(t, resp.Properties&FSFSymlink)
	assert.NotZero(t, resp.Properties&FSFHomogeneous)
}

func TestSymlinkReadLinkRoundTrip(t *testing.T) {
	h, _ := newTestHandler(t)
	dir := dataDirHandle(t, h)

	created, err := h.Symlink(context.Background(), testClient, &SymlinkRequest{
		DirHandle: dir,
		Name:      "link",
		Target:    "/elsewhere",
		Set:       &vfs.SetAttr{},
	})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), created.Status)

	resp, err := h.ReadLink(context.Background(), testClient, &ReadLinkRequest{Handle: created.Handle})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), resp.Status)
	assert.Equal(t, "/elsewhere", resp.Target)
}

func TestRenameAcrossDirectories(t *testing.T) {
	h, source := newTestHandler(t)
	require.NoError(t, os.Mkdir(filepath.Join(source, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "file"), []byte("x"), 0644))

	dir := dataDirHandle(t, h)
	sub := lookupHandle(t, h, dir, "sub")

	resp, err := h.Rename(context.Background(), testClient, &RenameRequest{
		FromDirHandle: dir,
		FromName:      "file",
		ToDirHandle:   sub,
		ToName:        "moved",
	})
	require.NoError(t, err)
	require.Equal(t, uint32(NFS3OK), resp.Status)

	lookupHandle(t, h, sub, "moved")
	assert.NoFileExists(t, filepath.Join(source, "file"))
}

func TestStatusOfMapsEveryCode(t *testing.T) {
	cases := map[vfs.ErrorCode]uint32{
		vfs.ErrNotFound:     NFS3ErrNoEnt,
		vfs.ErrNotDirectory: NFS3ErrNotDir,
		vfs.ErrIsDirectory:  NFS3ErrIsDir,
		vfs.ErrExists:       NFS3ErrExist,
		vfs.ErrNotEmpty:     NFS3ErrNotEmpty,
		vfs.ErrStaleHandle:  NFS3ErrStale,
		vfs.ErrBadHandle:    NFS3ErrBadHandle,
		vfs.ErrAccessDenied: NFS3ErrAcces,
		vfs.ErrReadOnly:     NFS3ErrRofs,
		vfs.ErrInvalidPath:  NFS3ErrInval,
		vfs.ErrCrossMount:   NFS3ErrXDev,
		vfs.ErrBadCookie:    NFS3ErrBadCookie,
		vfs.ErrNoSpace:      NFS3ErrNoSpc,
		vfs.ErrNotSupported: NFS3ErrNotSupp,
		vfs.ErrIO:           NFS3ErrIO,
	}
	for code, want := range cases {
		err := &vfs.Error{Code: code, Message: "test", Path: "/p"}
		assert.Equal(t, want, StatusOf(err), "code %d", code)
	}
}
