package vfs

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClient = "127.0.0.1:1023"

func newTestVFS(t *testing.T, entries ...MountEntry) *VFS {
	t.Helper()
	reg, err := NewMountRegistry(entries)
	require.NoError(t, err)
	policy, err := NewAccessPolicy(false, nil)
	require.NoError(t, err)
	return New(reg, policy)
}

// lookupPath walks a name chain from the root and fails the test on any
// missing component.
func lookupPath(t *testing.T, v *VFS, names ...string) FileHandle {
	t.Helper()
	ctx := context.Background()
	h := v.Root()
	for _, name := range names {
		var err error
		h, _, err = v.Lookup(ctx, testClient, h, name)
		require.NoError(t, err, "lookup %q", name)
	}
	return h
}

func entryNames(result *ReadDirResult) []string {
	names := make([]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		names = append(names, e.Name)
	}
	return names
}

func TestLookupAndReadFile(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "hello.txt"), []byte("Hello NFS World"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	ctx := context.Background()

	h := lookupPath(t, v, "data", "hello.txt")

	data, eof, err := v.Read(ctx, testClient, h, 0, 16)
	require.NoError(t, err)
	assert.Equal(t, "Hello NFS World", string(data))
	assert.True(t, eof)

	attr, err := v.GetAttr(ctx, testClient, h)
	require.NoError(t, err)
	assert.Equal(t, FileTypeRegular, attr.Type)
	assert.Equal(t, uint64(15), attr.Size)
}

func TestReadOffsets(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("0123456789"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	ctx := context.Background()
	h := lookupPath(t, v, "data", "f")

	data, eof, err := v.Read(ctx, testClient, h, 4, 3)
	require.NoError(t, err)
	assert.Equal(t, "456", string(data))
	assert.False(t, eof)

	data, eof, err = v.Read(ctx, testClient, h, 8, 100)
	require.NoError(t, err)
	assert.Equal(t, "89", string(data))
	assert.True(t, eof)

	data, eof, err = v.Read(ctx, testClient, h, 10, 4)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.True(t, eof)
}

func TestReadHugeCountIsClamped(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "tiny"), []byte("x"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	h := lookupPath(t, v, "data", "tiny")

	data, eof, err := v.Read(context.Background(), testClient, h, 0, math.MaxUint32)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
	assert.True(t, eof)

	// The buffer is sized by what the file can still yield, never by the
	// client's count.
	assert.Equal(t, 1, cap(data))
}

func TestCreateWriteReadBack(t *testing.T) {
	src := t.TempDir()
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	ctx := context.Background()
	dir := lookupPath(t, v, "data")

	h, attr, err := v.Create(ctx, testClient, dir, "new.txt", nil, false)
	require.NoError(t, err)
	assert.Equal(t, FileTypeRegular, attr.Type)

	_, written, err := v.Write(ctx, testClient, h, 0, []byte("payload"), true)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), written)

	data, eof, err := v.Read(ctx, testClient, h, 0, 64)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.True(t, eof)

	// The file is really on the local filesystem, not just in the table.
	onDisk, err := os.ReadFile(filepath.Join(src, "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(onDisk))
}

func TestCreateExclusiveFailsOnExisting(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	dir := lookupPath(t, v, "data")

	_, _, err := v.Create(context.Background(), testClient, dir, "f", nil, true)
	assert.Equal(t, ErrExists, CodeOf(err))
}

func TestRemoveInvalidatesHandle(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	ctx := context.Background()

	dir := lookupPath(t, v, "data")
	h := lookupPath(t, v, "data", "f")

	require.NoError(t, v.Remove(ctx, testClient, dir, "f"))

	_, err := v.GetAttr(ctx, testClient, h)
	assert.Equal(t, ErrStaleHandle, CodeOf(err))

	_, _, err = v.Lookup(ctx, testClient, dir, "f")
	assert.Equal(t, ErrNotFound, CodeOf(err))
}

func TestRemoveDirectoryNeedsRmdir(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(src, "sub"), 0755))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	ctx := context.Background()
	dir := lookupPath(t, v, "data")

	err := v.Remove(ctx, testClient, dir, "sub")
	assert.Equal(t, ErrIsDirectory, CodeOf(err))

	require.NoError(t, v.Rmdir(ctx, testClient, dir, "sub"))
}

func TestRmdirNotEmpty(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "f"), []byte("x"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	dir := lookupPath(t, v, "data")

	err := v.Rmdir(context.Background(), testClient, dir, "sub")
	assert.Equal(t, ErrNotEmpty, CodeOf(err))
}

func TestRenameKeepsHandleValue(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "old.txt"), []byte("x"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	ctx := context.Background()

	dir := lookupPath(t, v, "data")
	h := lookupPath(t, v, "data", "old.txt")

	require.NoError(t, v.Rename(ctx, testClient, dir, "old.txt", dir, "new.txt"))

	// The old handle keeps working and now names the new location.
	_, err := v.GetAttr(ctx, testClient, h)
	require.NoError(t, err)

	h2 := lookupPath(t, v, "data", "new.txt")
	assert.Equal(t, h, h2)

	_, _, err = v.Lookup(ctx, testClient, dir, "old.txt")
	assert.Equal(t, ErrNotFound, CodeOf(err))
}

func TestRenameAcrossMountsFails(t *testing.T) {
	src1, src2 := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src1, "f"), []byte("x"), 0644))
	v := newTestVFS(t,
		MountEntry{Source: src1, Target: "/a"},
		MountEntry{Source: src2, Target: "/b"},
	)
	ctx := context.Background()

	dirA := lookupPath(t, v, "a")
	dirB := lookupPath(t, v, "b")

	err := v.Rename(ctx, testClient, dirA, "f", dirB, "f")
	assert.Equal(t, ErrCrossMount, CodeOf(err))

	// Nothing moved.
	_, err = os.Stat(filepath.Join(src1, "f"))
	assert.NoError(t, err)
}

func TestReadOnlyMountRejectsMutations(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("content"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data", ReadOnly: true})
	ctx := context.Background()

	dir := lookupPath(t, v, "data")
	h := lookupPath(t, v, "data", "f")

	_, _, err := v.Create(ctx, testClient, dir, "new", nil, false)
	assert.Equal(t, ErrReadOnly, CodeOf(err))

	_, _, err = v.Write(ctx, testClient, h, 0, []byte("x"), false)
	assert.Equal(t, ErrReadOnly, CodeOf(err))

	assert.Equal(t, ErrReadOnly, CodeOf(v.Remove(ctx, testClient, dir, "f")))
	_, _, err = v.Mkdir(ctx, testClient, dir, "sub", nil)
	assert.Equal(t, ErrReadOnly, CodeOf(err))

	size := uint64(0)
	_, err = v.SetAttr(ctx, testClient, h, &SetAttr{Size: &size})
	assert.Equal(t, ErrReadOnly, CodeOf(err))

	// Reads still work, and the denied operations had no side effects.
	data, _, err := v.Read(ctx, testClient, h, 0, 64)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestGlobalReadOnlyOverridesMountFlag(t *testing.T) {
	src := t.TempDir()
	reg, err := NewMountRegistry([]MountEntry{{Source: src, Target: "/data"}})
	require.NoError(t, err)
	policy, err := NewAccessPolicy(true, nil)
	require.NoError(t, err)
	v := New(reg, policy)

	dir := lookupPath(t, v, "data")
	_, _, err = v.Create(context.Background(), testClient, dir, "f", nil, false)
	assert.Equal(t, ErrReadOnly, CodeOf(err))
}

func TestSyntheticRootIsReadOnlyDirectory(t *testing.T) {
	v := newTestVFS(t,
		MountEntry{Source: t.TempDir(), Target: "/a"},
		MountEntry{Source: t.TempDir(), Target: "/b"},
	)
	ctx := context.Background()

	attr, err := v.GetAttr(ctx, testClient, v.Root())
	require.NoError(t, err)
	assert.Equal(t, FileTypeDirectory, attr.Type)
	assert.Equal(t, uint32(0555), attr.Mode)

	_, _, err = v.Create(ctx, testClient, v.Root(), "f", nil, false)
	assert.Equal(t, ErrReadOnly, CodeOf(err))

	result, err := v.ReadDir(ctx, testClient, v.Root(), 0, 0, 0, false)
	require.NoError(t, err)
	assert.Equal(t, []string{".", "..", "a", "b"}, entryNames(result))
	assert.True(t, result.EOF)
}

func TestNestedMountShadowsOuterDirectory(t *testing.T) {
	outer, inner := t.TempDir(), t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(outer, "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(outer, "b", "shadowed"), []byte("outer"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(inner, "visible"), []byte("inner"), 0644))

	v := newTestVFS(t,
		MountEntry{Source: outer, Target: "/a"},
		MountEntry{Source: inner, Target: "/a/b"},
	)
	ctx := context.Background()

	// "/a/b" resolves to the inner mount (longest prefix), hiding the
	// outer directory of the same name.
	h := lookupPath(t, v, "a", "b", "visible")
	data, _, err := v.Read(ctx, testClient, h, 0, 64)
	require.NoError(t, err)
	assert.Equal(t, "inner", string(data))

	dirB := lookupPath(t, v, "a", "b")
	_, _, err = v.Lookup(ctx, testClient, dirB, "shadowed")
	assert.Equal(t, ErrNotFound, CodeOf(err))
}

func TestReadDirMergesSyntheticEntries(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "real.txt"), []byte("x"), 0644))
	v := newTestVFS(t,
		MountEntry{Source: src, Target: "/a"},
		MountEntry{Source: t.TempDir(), Target: "/a/nested"},
	)

	dirA := lookupPath(t, v, "a")
	result, err := v.ReadDir(context.Background(), testClient, dirA, 0, 0, 0, false)
	require.NoError(t, err)
	assert.Equal(t, []string{".", "..", "nested", "real.txt"}, entryNames(result))
}

func TestReadDirPagination(t *testing.T) {
	src := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte("x"), 0644))
	}
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	ctx := context.Background()
	dir := lookupPath(t, v, "data")

	var names []string
	var cookie, verifier uint64
	for {
		result, err := v.ReadDir(ctx, testClient, dir, cookie, verifier, 2, false)
		require.NoError(t, err)
		verifier = result.Verifier
		for _, e := range result.Entries {
			names = append(names, e.Name)
			cookie = e.Cookie
		}
		if result.EOF {
			break
		}
		require.NotEmpty(t, result.Entries, "pagination must make progress")
	}
	assert.Equal(t, []string{".", "..", "a", "b", "c", "d"}, names)
}

func TestReadDirRejectsCookieBeyondSnapshot(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	ctx := context.Background()
	dir := lookupPath(t, v, "data")

	first, err := v.ReadDir(ctx, testClient, dir, 0, 0, 0, false)
	require.NoError(t, err)
	total := uint64(len(first.Entries))

	// A cookie that would go negative when converted to an index must be
	// refused, not used.
	_, err = v.ReadDir(ctx, testClient, dir, math.MaxUint64, first.Verifier, 0, false)
	require.Error(t, err)
	assert.Equal(t, ErrBadCookie, CodeOf(err))

	_, err = v.ReadDir(ctx, testClient, dir, total+1, first.Verifier, 0, false)
	require.Error(t, err)
	assert.Equal(t, ErrBadCookie, CodeOf(err))

	// A cookie exactly at the end is a valid empty final page.
	result, err := v.ReadDir(ctx, testClient, dir, total, first.Verifier, 0, false)
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	assert.True(t, result.EOF)
}

func TestReadDirPlusCarriesAttributes(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("hello"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	dir := lookupPath(t, v, "data")

	result, err := v.ReadDir(context.Background(), testClient, dir, 0, 0, 0, true)
	require.NoError(t, err)
	for _, e := range result.Entries {
		require.NotNil(t, e.Attr, "entry %q", e.Name)
		require.NotEmpty(t, e.Handle, "entry %q", e.Name)
		assert.Equal(t, FileID(e.Handle), e.FileID, "entry %q", e.Name)
		if e.Name == "f" {
			assert.Equal(t, uint64(5), e.Attr.Size)
		}
	}
}

func TestAccessMaskOnReadOnlyMount(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data", ReadOnly: true})
	h := lookupPath(t, v, "data", "f")

	requested := uint32(AccessRead | AccessModify | AccessExtend | AccessDelete)
	granted, _, err := v.Access(context.Background(), testClient, h, requested)
	require.NoError(t, err)
	assert.Equal(t, uint32(AccessRead), granted)
}

func TestSymlinkRoundTrip(t *testing.T) {
	src := t.TempDir()
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	ctx := context.Background()
	dir := lookupPath(t, v, "data")

	h, attr, err := v.Symlink(ctx, testClient, dir, "ln", "target/elsewhere")
	require.NoError(t, err)
	assert.Equal(t, FileTypeSymlink, attr.Type)

	target, err := v.Readlink(ctx, testClient, h)
	require.NoError(t, err)
	assert.Equal(t, "target/elsewhere", target)
}

func TestReadlinkOnRegularFileFails(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	h := lookupPath(t, v, "data", "f")

	_, err := v.Readlink(context.Background(), testClient, h)
	assert.Equal(t, ErrNotSupported, CodeOf(err))
}

func TestHardLinkSameMount(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	ctx := context.Background()

	dir := lookupPath(t, v, "data")
	h := lookupPath(t, v, "data", "f")

	attr, err := v.Link(ctx, testClient, h, dir, "hard")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), attr.Nlink)
}

func TestHardLinkAcrossMountsFails(t *testing.T) {
	src1, src2 := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src1, "f"), []byte("x"), 0644))
	v := newTestVFS(t,
		MountEntry{Source: src1, Target: "/a"},
		MountEntry{Source: src2, Target: "/b"},
	)
	ctx := context.Background()

	h := lookupPath(t, v, "a", "f")
	dirB := lookupPath(t, v, "b")

	_, err := v.Link(ctx, testClient, h, dirB, "f")
	assert.Equal(t, ErrCrossMount, CodeOf(err))
}

func TestMutatingMountPointIsDenied(t *testing.T) {
	v := newTestVFS(t, MountEntry{Source: t.TempDir(), Target: "/data"})
	ctx := context.Background()

	err := v.Rmdir(ctx, testClient, v.Root(), "data")
	assert.Equal(t, ErrReadOnly, CodeOf(err))
}

func TestClientOutsideAllowListIsDenied(t *testing.T) {
	src := t.TempDir()
	reg, err := NewMountRegistry([]MountEntry{{Source: src, Target: "/data"}})
	require.NoError(t, err)
	policy, err := NewAccessPolicy(false, []string{"10.0.0.0/8"})
	require.NoError(t, err)
	v := New(reg, policy)

	_, err = v.GetAttr(context.Background(), "192.168.1.5:1023", v.Root())
	assert.Equal(t, ErrAccessDenied, CodeOf(err))
}

func TestSetAttrTruncateAndMode(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("0123456789"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	ctx := context.Background()
	h := lookupPath(t, v, "data", "f")

	size := uint64(4)
	mode := uint32(0600)
	attr, err := v.SetAttr(ctx, testClient, h, &SetAttr{Size: &size, Mode: &mode})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), attr.Size)
	assert.Equal(t, uint32(0600), attr.Mode&0777)
}

func TestStatFSReportsUsage(t *testing.T) {
	v := newTestVFS(t, MountEntry{Source: t.TempDir(), Target: "/data"})
	ctx := context.Background()

	stat, attr, err := v.StatFS(ctx, testClient, v.Root())
	require.NoError(t, err)
	require.NotNil(t, attr)
	assert.NotZero(t, stat.TotalBytes)

	info, _, err := v.Info(ctx, testClient, v.Root())
	require.NoError(t, err)
	assert.NotZero(t, info.ReadMax)
	assert.NotZero(t, info.WriteMax)

	conf, _, err := v.Conf(ctx, testClient, v.Root())
	require.NoError(t, err)
	assert.NotZero(t, conf.NameMax)
}

func TestCommitSyncsFile(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0644))
	v := newTestVFS(t, MountEntry{Source: src, Target: "/data"})
	h := lookupPath(t, v, "data", "f")

	attr, err := v.Commit(context.Background(), testClient, h)
	require.NoError(t, err)
	assert.Equal(t, FileTypeRegular, attr.Type)
}
