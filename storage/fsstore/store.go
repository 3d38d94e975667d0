package fsstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hack-pad/hackpadfs"
	hackos "github.com/hack-pad/hackpadfs/os"
	"github.com/poiesic/chrisql/core"
	"github.com/poiesic/chrisql/storage"
)

const (
	defaultFileMode hackpadfs.FileMode = 0o644
	defaultDirMode  hackpadfs.FileMode = 0o755

	tempPrefix = ".chrisql-"
	tempSuffix = ".tmp"

	// staleTempAge is how old a temporary file must be before Open removes it.
	// Younger files may belong to a write still in progress in another process.
	staleTempAge = time.Minute
)

// Store is a file-per-record RecordStore rooted at a directory.
type Store struct {
	fs       hackpadfs.FS
	dir      string // root directory as an io/fs path within fs
	rootPath string // root directory as given by the caller
	fileMode hackpadfs.FileMode
	logger   *slog.Logger
}

var _ storage.RecordStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// WithFileMode sets the permission bits for newly created record files.
// Default is 0644.
func WithFileMode(mode hackpadfs.FileMode) Option {
	return func(s *Store) {
		s.fileMode = mode.Perm()
	}
}

// Open opens a store rooted at rootPath on the operating system filesystem.
// rootPath may be relative or absolute; it and any missing ancestors are created.
// Returns storage.ErrDirectoryUnavailable if the directory cannot be used.
func Open(rootPath string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(rootPath) == "" {
		return nil, fmt.Errorf("%w: path is empty", storage.ErrDirectoryUnavailable)
	}

	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrDirectoryUnavailable, rootPath, err)
	}

	s, err := New(hackos.NewFS(), toFSPath(abs), opts...)
	if err != nil {
		return nil, err
	}
	s.rootPath = rootPath
	return s, nil
}

// New opens a store rooted at dir within fsys.
// dir is a slash-separated io/fs path; it and any missing ancestors are created.
// Returns storage.ErrDirectoryUnavailable if the directory cannot be used.
func New(fsys hackpadfs.FS, dir string, opts ...Option) (*Store, error) {
	if !hackpadfs.ValidPath(dir) {
		return nil, fmt.Errorf("%w: invalid path %q", storage.ErrDirectoryUnavailable, dir)
	}

	s := &Store{
		fs:       fsys,
		dir:      dir,
		rootPath: dir,
		fileMode: defaultFileMode,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := hackpadfs.MkdirAll(fsys, dir, defaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrDirectoryUnavailable, dir, err)
	}

	info, err := hackpadfs.Stat(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrDirectoryUnavailable, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", storage.ErrDirectoryUnavailable, dir)
	}

	s.sweepTemporaryFiles()
	return s, nil
}

// Root returns the root directory the store was opened with.
func (s *Store) Root() string {
	return s.rootPath
}

// Close is a no-op; file handles are released per operation.
func (s *Store) Close() error {
	return nil
}

// Create opens the record read-write, creating an empty file if absent.
// Existing content is left untouched.
func (s *Store) Create(ctx context.Context, name string) (storage.Handle, error) {
	if err := checkContext(ctx, "create", name); err != nil {
		return nil, err
	}
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}

	f, err := hackpadfs.OpenFile(s.fs, s.recordPath(name), hackpadfs.FlagReadWrite|hackpadfs.FlagCreate, s.fileMode)
	if err != nil {
		return nil, storage.AccessError("create", name, err)
	}
	return &fileHandle{name: name, file: f}, nil
}

// Write replaces the record's content.
// The content is written to a temporary sibling, synced and renamed over the
// record. On failure the temporary file is removed and the record is unchanged.
// An existing record keeps its permission bits; new records get the store's file mode.
func (s *Store) Write(ctx context.Context, name string, content []byte) error {
	if err := checkContext(ctx, "write", name); err != nil {
		return err
	}
	if err := storage.ValidateName(name); err != nil {
		return err
	}

	mode := s.fileMode
	if info, err := hackpadfs.Stat(s.fs, s.recordPath(name)); err == nil && info.Mode().IsRegular() {
		mode = info.Mode().Perm()
	}

	tmp := s.tempPath()
	if err := s.writeTemp(tmp, content, mode); err != nil {
		s.removeTemp(tmp)
		return storage.AccessError("write", name, err)
	}

	if err := hackpadfs.Rename(s.fs, tmp, s.recordPath(name)); err != nil {
		s.removeTemp(tmp)
		return storage.AccessError("write", name, err)
	}

	s.syncDir()
	s.logger.Debug("record written", "name", name, "bytes", len(content))
	return nil
}

// Read returns the full content of the record.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	if err := checkContext(ctx, "read", name); err != nil {
		return nil, err
	}
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}

	data, err := hackpadfs.ReadFile(s.fs, s.recordPath(name))
	if err != nil {
		if errors.Is(err, hackpadfs.ErrNotExist) {
			return nil, storage.NotFoundError(name)
		}
		return nil, storage.AccessError("read", name, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Delete removes the record's file.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := checkContext(ctx, "delete", name); err != nil {
		return err
	}
	if _, err := s.stat(name); err != nil {
		return err
	}

	if err := hackpadfs.Remove(s.fs, s.recordPath(name)); err != nil {
		if errors.Is(err, hackpadfs.ErrNotExist) {
			return storage.NotFoundError(name)
		}
		return storage.AccessError("delete", name, err)
	}

	s.syncDir()
	s.logger.Debug("record deleted", "name", name)
	return nil
}

// List returns the sorted names of all records.
// Directories, temporary files and entries whose names are not valid
// record names are skipped.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := checkContext(ctx, "list", s.dir); err != nil {
		return nil, err
	}

	entries, err := hackpadfs.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, storage.AccessError("list", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !core.IsValidRecordName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names, nil
}

// Stat returns the size and modification time of the record.
func (s *Store) Stat(ctx context.Context, name string) (*core.RecordInfo, error) {
	if err := checkContext(ctx, "stat", name); err != nil {
		return nil, err
	}
	return s.stat(name)
}

func (s *Store) stat(name string) (*core.RecordInfo, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}

	info, err := hackpadfs.Stat(s.fs, s.recordPath(name))
	if err != nil {
		if errors.Is(err, hackpadfs.ErrNotExist) {
			return nil, storage.NotFoundError(name)
		}
		return nil, storage.AccessError("stat", name, err)
	}
	if !info.Mode().IsRegular() {
		return nil, storage.AccessError("stat", name, hackpadfs.ErrIsDir)
	}

	return &core.RecordInfo{
		Name:    name,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// recordPath maps a validated record name to its file path.
func (s *Store) recordPath(name string) string {
	return path.Join(s.dir, name)
}

// tempPath returns a fresh temporary file path in the root directory.
// Dot-prefixed names are never valid record names, so the two cannot collide.
func (s *Store) tempPath() string {
	return path.Join(s.dir, tempPrefix+uuid.NewString()+tempSuffix)
}

func (s *Store) writeTemp(tmp string, content []byte, mode hackpadfs.FileMode) (err error) {
	f, err := hackpadfs.OpenFile(s.fs, tmp, hackpadfs.FlagWriteOnly|hackpadfs.FlagCreate|hackpadfs.FlagExclusive, mode)
	if err != nil {
		return err
	}
	// The umask applies at creation; set the exact bits the record should carry.
	if err := hackpadfs.Chmod(s.fs, tmp, mode); err != nil && !errors.Is(err, hackpadfs.ErrNotImplemented) {
		f.Close()
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	if _, err = hackpadfs.WriteFile(f, content); err != nil {
		return err
	}
	return syncFile(f)
}

func (s *Store) removeTemp(tmp string) {
	err := hackpadfs.Remove(s.fs, tmp)
	if err != nil && !errors.Is(err, hackpadfs.ErrNotExist) {
		s.logger.Warn("failed to remove temporary file", "path", tmp, "err", err)
	}
}

// syncDir flushes the root directory entry so a completed rename survives a crash.
// Filesystems without directory sync are tolerated.
func (s *Store) syncDir() {
	d, err := s.fs.Open(s.dir)
	if err != nil {
		s.logger.Debug("directory sync skipped", "dir", s.dir, "err", err)
		return
	}
	defer d.Close()

	if err := syncFile(d); err != nil {
		s.logger.Debug("directory sync failed", "dir", s.dir, "err", err)
	}
}

// sweepTemporaryFiles removes temporary files left by interrupted writes.
// Files modified within staleTempAge are kept, so opening a root that another
// process is writing to does not pull a temporary file out from under it.
func (s *Store) sweepTemporaryFiles() {
	entries, err := hackpadfs.ReadDir(s.fs, s.dir)
	if err != nil {
		s.logger.Warn("failed to scan for temporary files", "dir", s.dir, "err", err)
		return
	}

	cutoff := time.Now().Add(-staleTempAge)
	for _, entry := range entries {
		if !isTempName(entry.Name()) || !entry.Type().IsRegular() {
			continue
		}
		tmp := path.Join(s.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("failed to stat temporary file", "path", tmp, "err", err)
			continue
		}
		if info.ModTime().After(cutoff) {
			s.logger.Debug("keeping recent temporary file", "path", tmp)
			continue
		}
		if err := hackpadfs.Remove(s.fs, tmp); err != nil {
			s.logger.Warn("failed to remove stale temporary file", "path", tmp, "err", err)
			continue
		}
		s.logger.Info("removed stale temporary file", "path", tmp)
	}
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, tempSuffix)
}

func syncFile(f hackpadfs.File) error {
	err := hackpadfs.SyncFile(f)
	if errors.Is(err, hackpadfs.ErrNotImplemented) {
		return nil
	}
	return err
}

func checkContext(ctx context.Context, op, name string) error {
	if err := ctx.Err(); err != nil {
		return storage.AccessError(op, name, err)
	}
	return nil
}

// toFSPath converts an absolute OS path to the io/fs form used by hackpadfs.
func toFSPath(abs string) string {
	p := filepath.ToSlash(strings.TrimPrefix(abs, filepath.VolumeName(abs)))
	p = strings.Trim(p, "/")
	if p == "" {
		return "."
	}
	return p
}
