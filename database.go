// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package chrisql

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/chrisql/config"
	"github.com/poiesic/chrisql/importer"
	"github.com/poiesic/chrisql/repl"
	"github.com/poiesic/chrisql/storage"
	"github.com/poiesic/chrisql/storage/badger"
	"github.com/poiesic/chrisql/storage/cache"
	"github.com/poiesic/chrisql/storage/fsstore"
)

type Database struct {
	path    string
	backend string
	store   storage.RecordStore
	logger  *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	backend   string
	cacheSize int64
	logger    *slog.Logger
}

// WithBackend selects the record store backend, config.BackendFS or config.BackendBadger.
func WithBackend(backend string) DatabaseOption {
	return func(o *databaseOptions) {
		o.backend = backend
	}
}

// WithCacheSize wraps the store in a read cache of size bytes. Zero disables it.
func WithCacheSize(size int64) DatabaseOption {
	return func(o *databaseOptions) {
		o.cacheSize = size
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithConfig applies backend and cache settings from cfg.
func WithConfig(cfg *config.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.backend = cfg.Backend
		o.cacheSize = cfg.CacheSize
	}
}

// NewDatabase opens the database rooted at filePath, creating the directory
// if needed. Failure to open the store is returned as
// storage.ErrDirectoryUnavailable and there is no degraded mode.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		backend: config.BackendFS,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	var (
		store storage.RecordStore
		err   error
	)
	switch options.backend {
	case config.BackendFS:
		store, err = fsstore.Open(filePath, fsstore.WithLogger(options.logger))
	case config.BackendBadger:
		store, err = badger.OpenRecordStore(filePath, false, badger.WithLogger(options.logger))
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalidConfig, options.backend)
	}
	if err != nil {
		return nil, err
	}

	if options.cacheSize > 0 {
		cached, err := cache.New(store, cache.WithMaxCost(options.cacheSize), cache.WithLogger(options.logger))
		if err != nil {
			closeAfterFailedOpen(store, options.logger)
			return nil, err
		}
		store = cached
	}

	options.logger.Debug("database opened", "path", filePath, "backend", options.backend, "cacheSize", options.cacheSize)

	return &Database{
		path:    filePath,
		backend: options.backend,
		store:   store,
		logger:  options.logger,
	}, nil
}

// closeAfterFailedOpen releases a store whose setup did not complete.
// The setup error is what the caller reports, so a close error is only logged.
func closeAfterFailedOpen(store storage.RecordStore, logger *slog.Logger) {
	if err := store.Close(); err != nil {
		logger.Error("error closing record store after failed open", "err", err)
	}
}

func (db *Database) Close() error {
	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing record store", "err", err)
		return err
	}
	return nil
}

// Path returns the directory the database was opened at.
func (db *Database) Path() string {
	return db.path
}

// Backend returns the name of the backend in use.
func (db *Database) Backend() string {
	return db.backend
}

// Store returns the database's record store.
func (db *Database) Store() storage.RecordStore {
	return db.store
}

// NewImporter creates an importer writing into this database.
// The caller must Release it.
func (db *Database) NewImporter(opts ...importer.Option) (*importer.Importer, error) {
	return importer.New(db.store, append([]importer.Option{importer.WithLogger(db.logger)}, opts...)...)
}

// NewSession creates an interactive session over this database.
func (db *Database) NewSession(opts ...repl.Option) *repl.Session {
	return repl.NewSession(db.store, append([]repl.Option{repl.WithLogger(db.logger)}, opts...)...)
}
