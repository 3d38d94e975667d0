package chrisql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/chrisql/config"
	"github.com/poiesic/chrisql/importer"
	"github.com/poiesic/chrisql/storage"
	"github.com/poiesic/chrisql/storage/cache"
	"github.com/poiesic/chrisql/storage/fsstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "nested", "test_db")
		db, err := NewDatabase(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.Store())
		assert.IsType(t, &fsstore.Store{}, db.Store())
		assert.Equal(t, config.BackendFS, db.Backend())
		assert.Equal(t, tmpDir, db.Path())
		assert.DirExists(t, tmpDir)
	})

	t.Run("badger backend", func(t *testing.T) {
		db, err := NewDatabase(t.TempDir(), WithBackend(config.BackendBadger))
		require.NoError(t, err)
		defer db.Close()

		ctx := context.Background()
		require.NoError(t, db.Store().Write(ctx, "users", []byte("alice,bob")))
		got, err := db.Store().Read(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, []byte("alice,bob"), got)
	})

	t.Run("cached store", func(t *testing.T) {
		db, err := NewDatabase(t.TempDir(), WithCacheSize(1<<20))
		require.NoError(t, err)
		defer db.Close()

		assert.IsType(t, &cache.Store{}, db.Store())
	})

	t.Run("settings from config", func(t *testing.T) {
		cfg := config.NewConfig(config.WithBackend(config.BackendBadger), config.WithCacheSize(1<<20))
		db, err := NewDatabase(t.TempDir(), WithConfig(cfg))
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, config.BackendBadger, db.Backend())
		assert.IsType(t, &cache.Store{}, db.Store())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		for _, backend := range config.ValidBackends {
			db, err := NewDatabase(tmpFile, WithBackend(backend))
			assert.ErrorIs(t, err, storage.ErrDirectoryUnavailable, backend)
			assert.Nil(t, db)
		}
	})

	t.Run("error with empty path", func(t *testing.T) {
		_, err := NewDatabase("")
		assert.ErrorIs(t, err, storage.ErrDirectoryUnavailable)
	})

	t.Run("error with unknown backend", func(t *testing.T) {
		_, err := NewDatabase(t.TempDir(), WithBackend("sqlite"))
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}

func TestDatabase_Close(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := NewDatabase(tmpDir, WithBackend(config.BackendBadger))
	require.NoError(t, err)
	require.NotNil(t, db)

	err = db.Close()
	assert.NoError(t, err)

	_, err = db.Store().Read(context.Background(), "users")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestDatabase_Reopen(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	db, err := NewDatabase(tmpDir)
	require.NoError(t, err)
	require.NoError(t, db.Store().Write(ctx, "orders", []byte("1,2,3")))
	require.NoError(t, db.Close())

	db, err = NewDatabase(tmpDir)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.Store().Read(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []byte("1,2,3"), got)
}

func TestDatabase_FactoryMethods(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := NewDatabase(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	t.Run("can create importer", func(t *testing.T) {
		src := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(src, "users"), []byte("alice"), 0o644))

		imp, err := db.NewImporter(importer.WithPoolSize(2))
		require.NoError(t, err)
		defer imp.Release()

		summary, err := imp.ImportDir(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Imported)
	})

	t.Run("can create session", func(t *testing.T) {
		var out bytes.Buffer
		err := db.NewSession().Run(context.Background(), strings.NewReader("exit\n"), &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "goodbye!")
	})
}

type closeFailingStore struct {
	storage.RecordStore
}

func (closeFailingStore) Close() error {
	return errors.New("disk detached")
}

func TestCloseAfterFailedOpen_LogsCloseError(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, nil))

	closeAfterFailedOpen(closeFailingStore{}, logger)

	assert.Contains(t, out.String(), "error closing record store after failed open")
	assert.Contains(t, out.String(), "disk detached")
}

func TestNewDatabase_BadgerUsesGivenLogger(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	db, err := NewDatabase(t.TempDir(), WithBackend(config.BackendBadger), WithLogger(logger))
	require.NoError(t, err)

	require.NoError(t, db.Store().Write(context.Background(), "users", []byte("alice")))
	require.NoError(t, db.Close())

	assert.Contains(t, out.String(), "record written")
	assert.Contains(t, out.String(), "backend=badger")
}
