package fsstore

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/poiesic/chrisql/core"
	"github.com/poiesic/chrisql/storage"
	"github.com/poiesic/chrisql/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStoreContract_OS(t *testing.T) {
	storagetest.RunRecordStoreTests(t, func(t *testing.T) storage.RecordStore {
		s, err := Open(filepath.Join(t.TempDir(), "db"))
		require.NoError(t, err)
		return s
	})
}

func TestRecordStoreContract_Memory(t *testing.T) {
	storagetest.RunRecordStoreTests(t, func(t *testing.T) storage.RecordStore {
		fsys, err := mem.NewFS()
		require.NoError(t, err)
		s, err := New(fsys, "db")
		require.NoError(t, err)
		return s
	})
}

func TestOpen_CreatesMissingAncestors(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a", "b", "db")

	s, err := Open(root)
	require.NoError(t, err)
	assert.Equal(t, root, s.Root())

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpen_RelativePath(t *testing.T) {
	base := t.TempDir()
	t.Chdir(base)

	s, err := Open("data")
	require.NoError(t, err)
	assert.Equal(t, "data", s.Root())

	require.NoError(t, s.Write(context.Background(), "users", []byte("alice,bob")))

	content, err := os.ReadFile(filepath.Join(base, "data", "users"))
	require.NoError(t, err)
	assert.Equal(t, "alice,bob", string(content))
}

func TestOpen_ExistingDirectory(t *testing.T) {
	root := t.TempDir()

	_, err := Open(root)
	require.NoError(t, err)
	_, err = Open(root)
	require.NoError(t, err)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, storage.ErrDirectoryUnavailable)

	_, err = Open("   ")
	assert.ErrorIs(t, err, storage.ErrDirectoryUnavailable)
}

func TestOpen_PathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("not a directory"), 0o644))

	_, err := Open(file)
	assert.ErrorIs(t, err, storage.ErrDirectoryUnavailable)

	_, err = Open(filepath.Join(file, "nested"))
	assert.ErrorIs(t, err, storage.ErrDirectoryUnavailable)
}

func TestNew_InvalidPath(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)

	_, err = New(fsys, "/absolute")
	assert.ErrorIs(t, err, storage.ErrDirectoryUnavailable)

	_, err = New(fsys, "../outside")
	assert.ErrorIs(t, err, storage.ErrDirectoryUnavailable)
}

func TestScenario_WriteThenReadFreshDirectory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "D"))
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "users", []byte("alice,bob")))

	got, err := s.Read(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, "alice,bob", string(got))
}

func TestScenario_ReadExistingRecordWithoutWrite(t *testing.T) {
	root := filepath.Join(t.TempDir(), "D")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "orders"), []byte("42"), 0o644))

	s, err := Open(root)
	require.NoError(t, err)

	got, err := s.Read(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "42", string(got))
}

func TestWrite_FileLayoutIsRawContent(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), "users", []byte("alice,bob")))

	content, err := os.ReadFile(filepath.Join(root, "users"))
	require.NoError(t, err)
	assert.Equal(t, []byte("alice,bob"), content, "file content must be the record bytes with no wrapper")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files may remain after a write")
	assert.Equal(t, "users", entries[0].Name())
}

func TestPathTraversal_NoFileOutsideRoot(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s, err := Open(filepath.Join(base, "a", "db"))
	require.NoError(t, err)

	_, err = s.Create(ctx, "../escape")
	assert.ErrorIs(t, err, core.ErrInvalidRecordName)

	err = s.Write(ctx, "../../escape", []byte("pwned"))
	assert.ErrorIs(t, err, core.ErrInvalidRecordName)

	_, err = s.Create(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, storage.ErrRecordAccess)

	assert.NoFileExists(t, filepath.Join(base, "a", "escape"))
	assert.NoFileExists(t, filepath.Join(base, "escape"))
	assert.NoDirExists(t, filepath.Join(base, "etc"))
}

func TestDirectoryEntryIsNotARecord(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	s, err := Open(root)
	require.NoError(t, err)

	_, err = s.Read(ctx, "sub")
	assert.ErrorIs(t, err, storage.ErrRecordAccess)

	_, err = s.Stat(ctx, "sub")
	assert.ErrorIs(t, err, storage.ErrRecordAccess)

	err = s.Delete(ctx, "sub")
	assert.ErrorIs(t, err, storage.ErrRecordAccess)

	err = s.Write(ctx, "sub", []byte("x"))
	assert.ErrorIs(t, err, storage.ErrRecordAccess)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.DirExists(t, filepath.Join(root, "sub"))
}

func TestList_SkipsForeignEntries(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "orders"), []byte("42"), 0o644))

	s, err := Open(root)
	require.NoError(t, err)

	names, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, names)
	assert.FileExists(t, filepath.Join(root, ".hidden"), "only temporary files are swept")
}

func TestOpen_SweepsStaleTemporaryFiles(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, tempPrefix+"0f8fad5b-d9cb-469f-a165-70867728950e"+tempSuffix)
	require.NoError(t, os.WriteFile(stale, []byte("half-writ"), 0o644))
	old := time.Now().Add(-2 * staleTempAge)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.WriteFile(filepath.Join(root, "users"), []byte("alice,bob"), 0o644))

	s, err := Open(root)
	require.NoError(t, err)

	assert.NoFileExists(t, stale)

	got, err := s.Read(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "alice,bob", string(got))
}

func TestOpen_KeepsRecentTemporaryFiles(t *testing.T) {
	root := t.TempDir()
	inFlight := filepath.Join(root, tempPrefix+"7c9e6679-7425-40de-944b-e07fc1f90ae7"+tempSuffix)
	require.NoError(t, os.WriteFile(inFlight, []byte("alice,b"), 0o644))

	// A second store on the same root must not remove another writer's temp file.
	s, err := Open(root)
	require.NoError(t, err)
	assert.FileExists(t, inFlight)

	names, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestWrite_KeepsExistingPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	root := t.TempDir()
	record := filepath.Join(root, "secrets")
	require.NoError(t, os.WriteFile(record, []byte("v1"), 0o600))
	require.NoError(t, os.Chmod(record, 0o600))

	s, err := Open(root)
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), "secrets", []byte("v2")))

	info, err := os.Stat(record)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := s.Read(context.Background(), "secrets")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	require.NoError(t, s.Write(context.Background(), "fresh", []byte("x")))
	info, err = os.Stat(filepath.Join(root, "fresh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWrite_KeepsExistingPermissionsInMemory(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	s, err := New(fsys, "db", WithFileMode(0o640))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "users", []byte("alice")))
	require.NoError(t, hackpadfs.Chmod(fsys, "db/users", 0o600))
	require.NoError(t, s.Write(ctx, "users", []byte("alice,bob")))

	info, err := hackpadfs.Stat(fsys, "db/users")
	require.NoError(t, err)
	assert.Equal(t, hackpadfs.FileMode(0o600), info.Mode().Perm())
}

func TestWithFileMode(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root, WithFileMode(0o600))
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), "secrets", []byte("x")))

	info, err := os.Stat(filepath.Join(root, "secrets"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestToFSPath(t *testing.T) {
	if filepath.Separator != '/' {
		t.Skip("unix paths only")
	}
	assert.Equal(t, "tmp/db", toFSPath("/tmp/db"))
	assert.Equal(t, ".", toFSPath("/"))
	assert.True(t, hackpadfs.ValidPath(toFSPath("/var/lib/chrisql/")))
}
