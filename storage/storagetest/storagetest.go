// Package storagetest provides a contract test-suite for storage.RecordStore
// implementations. Every backend runs the same suite so they stay
// interchangeable.
package storagetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/poiesic/chrisql/core"
	"github.com/poiesic/chrisql/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a new, empty store. The suite closes it when the test ends.
type Factory func(t *testing.T) storage.RecordStore

// UnsafeNames are names every store must reject without touching storage.
var UnsafeNames = []string{
	"",
	".",
	"..",
	"../../etc/passwd",
	"../escape",
	"a/b",
	"/absolute",
	"dir\\file",
	"nul\x00byte",
	".hidden",
}

// RunRecordStoreTests runs the full RecordStore contract against stores
// produced by newStore.
func RunRecordStoreTests(t *testing.T, newStore Factory) {
	t.Helper()

	open := func(t *testing.T) storage.RecordStore {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("WriteThenRead", func(t *testing.T) { testWriteThenRead(t, open(t)) })
	t.Run("WriteThenReadBinary", func(t *testing.T) { testWriteThenReadBinary(t, open(t)) })
	t.Run("OverwriteShorter", func(t *testing.T) { testOverwriteShorter(t, open(t)) })
	t.Run("ReadNeverWritten", func(t *testing.T) { testReadNeverWritten(t, open(t)) })
	t.Run("CreateIdempotent", func(t *testing.T) { testCreateIdempotent(t, open(t)) })
	t.Run("CreateThenHandleWrite", func(t *testing.T) { testCreateThenHandleWrite(t, open(t)) })
	t.Run("HandleOverwritesInPlace", func(t *testing.T) { testHandleOverwritesInPlace(t, open(t)) })
	t.Run("UnsafeNamesRejected", func(t *testing.T) { testUnsafeNamesRejected(t, open(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, open(t)) })
	t.Run("ListSorted", func(t *testing.T) { testListSorted(t, open(t)) })
	t.Run("Stat", func(t *testing.T) { testStat(t, open(t)) })
	t.Run("CanceledContext", func(t *testing.T) { testCanceledContext(t, open(t)) })
	t.Run("ConcurrentDistinctNames", func(t *testing.T) { testConcurrentDistinctNames(t, open(t)) })
}

func testWriteThenRead(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "users", []byte("alice,bob")))

	got, err := s.Read(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []byte("alice,bob"), got)
}

func testWriteThenReadBinary(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()

	contents := map[string][]byte{
		"empty":  {},
		"binary": {0x00, 0xff, 0xc3, 0x28, 0x00, 0x0a},
		"large":  bytes.Repeat([]byte("0123456789abcdef"), 8192),
	}

	for name, content := range contents {
		require.NoError(t, s.Write(ctx, name, content))
		got, err := s.Read(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, len(content), len(got), "record %q length", name)
		assert.True(t, bytes.Equal(content, got), "record %q content", name)
	}
}

func testOverwriteShorter(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "orders", []byte("a much longer first value")))
	require.NoError(t, s.Write(ctx, "orders", []byte("42")))

	got, err := s.Read(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), got)
}

func testReadNeverWritten(t *testing.T, s storage.RecordStore) {
	_, err := s.Read(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
	assert.NotErrorIs(t, err, storage.ErrRecordAccess)
}

func testCreateIdempotent(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()

	h, err := s.Create(ctx, "catalog")
	require.NoError(t, err)
	assert.Equal(t, "catalog", h.Name())
	require.NoError(t, h.Close())

	got, err := s.Read(ctx, "catalog")
	require.NoError(t, err)
	assert.Empty(t, got, "create makes an empty record")

	require.NoError(t, s.Write(ctx, "catalog", []byte("alice,bob")))

	h, err = s.Create(ctx, "catalog")
	require.NoError(t, err)
	existing, err := io.ReadAll(h)
	require.NoError(t, err)
	assert.Equal(t, []byte("alice,bob"), existing)
	require.NoError(t, h.Close())

	h, err = s.Create(ctx, "catalog")
	require.NoError(t, err)
	require.NoError(t, h.Close())

	got, err = s.Read(ctx, "catalog")
	require.NoError(t, err)
	assert.Equal(t, []byte("alice,bob"), got, "create must not alter content")
}

func testCreateThenHandleWrite(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()

	h, err := s.Create(ctx, "notes")
	require.NoError(t, err)
	n, err := h.Write([]byte("hello, me!"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	require.NoError(t, h.Close())

	got, err := s.Read(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello, me!"), got)
}

func testHandleOverwritesInPlace(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "users", []byte("alice,bob")))

	h, err := s.Create(ctx, "users")
	require.NoError(t, err)
	_, err = h.Write([]byte("XY"))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	got, err := s.Read(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []byte("XYice,bob"), got)
}

func testUnsafeNamesRejected(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()

	for _, name := range UnsafeNames {
		_, err := s.Create(ctx, name)
		assert.ErrorIs(t, err, storage.ErrRecordAccess, "create %q", name)
		assert.ErrorIs(t, err, core.ErrInvalidRecordName, "create %q", name)

		err = s.Write(ctx, name, []byte("x"))
		assert.ErrorIs(t, err, core.ErrInvalidRecordName, "write %q", name)

		_, err = s.Read(ctx, name)
		assert.ErrorIs(t, err, core.ErrInvalidRecordName, "read %q", name)

		err = s.Delete(ctx, name)
		assert.ErrorIs(t, err, core.ErrInvalidRecordName, "delete %q", name)

		_, err = s.Stat(ctx, name)
		assert.ErrorIs(t, err, core.ErrInvalidRecordName, "stat %q", name)
	}

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names, "rejected names must not create records")
}

func testDelete(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "orders", []byte("42")))
	require.NoError(t, s.Delete(ctx, "orders"))

	_, err := s.Read(ctx, "orders")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	err = s.Delete(ctx, "orders")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	require.NoError(t, s.Write(ctx, "orders", []byte("43")))
	got, err := s.Read(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []byte("43"), got)
}

func testListSorted(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, name := range []string{"users", "orders", "accounts"} {
		require.NoError(t, s.Write(ctx, name, []byte(name)))
	}
	h, err := s.Create(ctx, "created")
	require.NoError(t, err)
	require.NoError(t, h.Close())

	names, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts", "created", "orders", "users"}, names)
}

func testStat(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()

	_, err := s.Stat(ctx, "users")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	require.NoError(t, s.Write(ctx, "users", []byte("alice,bob")))

	info, err := s.Stat(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, "users", info.Name)
	assert.Equal(t, int64(9), info.Size)
	assert.False(t, info.ModTime.IsZero())
}

func testCanceledContext(t *testing.T, s storage.RecordStore) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Write(ctx, "users", []byte("alice,bob"))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.Read(context.Background(), "users")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound, "canceled write must not persist")
}

func testConcurrentDistinctNames(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()
	const workers = 16

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("table_%02d", i)
			errs <- s.Write(ctx, name, []byte(name))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("table_%02d", i)
		got, err := s.Read(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, []byte(name), got)
	}

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, names, workers)
}
