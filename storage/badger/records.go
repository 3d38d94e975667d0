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


package badger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/chrisql/core"
	"github.com/poiesic/chrisql/storage"
)

// RecordRepository implements storage.RecordStore for BadgerDB.
// Each record is stored as a serialized storage.Envelope under its own key,
// and every write commits in a single transaction.
type RecordRepository struct {
	backend           *Backend
	ownsBackend       bool
	compressThreshold int
	logger            *slog.Logger
}

var _ storage.RecordStore = (*RecordRepository)(nil)

// Option configures a RecordRepository.
type Option func(*RecordRepository)

// WithCompressThreshold sets the content size above which payloads are
// snappy-compressed. Zero or less disables compression.
// Default is storage.DefaultCompressThreshold.
func WithCompressThreshold(threshold int) Option {
	return func(r *RecordRepository) {
		r.compressThreshold = threshold
	}
}

// WithLogger sets a custom logger.
// Default is the backend's logger. OpenRecordStore also hands it to the backend.
func WithLogger(logger *slog.Logger) Option {
	return func(r *RecordRepository) {
		r.logger = logger
	}
}

// NewRecordRepository creates a RecordRepository on an open backend.
// The caller keeps ownership of the backend.
func NewRecordRepository(backend *Backend, opts ...Option) *RecordRepository {
	r := newRecordRepository(opts...)
	r.backend = backend
	if r.logger == nil {
		r.logger = backend.logger
	}
	return r
}

func newRecordRepository(opts ...Option) *RecordRepository {
	r := &RecordRepository{
		compressThreshold: storage.DefaultCompressThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OpenRecordStore opens a backend and returns a RecordRepository that closes it.
func OpenRecordStore(filePath string, inMemory bool, opts ...Option) (*RecordRepository, error) {
	r := newRecordRepository(opts...)
	backend, err := OpenBackend(filePath, inMemory, WithBackendLogger(r.logger))
	if err != nil {
		return nil, err
	}
	r.backend = backend
	r.ownsBackend = true
	if r.logger == nil {
		r.logger = backend.logger
	}
	return r, nil
}

// Close closes the backend if the repository opened it.
func (r *RecordRepository) Close() error {
	if !r.ownsBackend || r.backend.IsClosed() {
		return nil
	}
	return r.backend.Close()
}

// Create ensures the record exists, storing empty content if absent,
// and returns a handle over its current content.
// Writes through the handle are persisted when it is closed.
func (r *RecordRepository) Create(ctx context.Context, name string) (storage.Handle, error) {
	if err := checkContext(ctx, "create", name); err != nil {
		return nil, err
	}
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}

	var content []byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(name)
		item, err := tx.Get(key)
		if err == nil {
			content, _, err = readItem(item)
			return err
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := tx.Set(key, storage.MarshalRecord(nil, time.Now().UTC(), r.compressThreshold)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, storage.AccessError("create", name, err)
	}

	return &recordHandle{
		ctx:  context.WithoutCancel(ctx),
		repo: r,
		name: name,
		data: content,
	}, nil
}

// Write replaces the record's content in a single transaction.
func (r *RecordRepository) Write(ctx context.Context, name string, content []byte) error {
	if err := checkContext(ctx, "write", name); err != nil {
		return err
	}
	if err := storage.ValidateName(name); err != nil {
		return err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		value := storage.MarshalRecord(content, time.Now().UTC(), r.compressThreshold)
		if err := tx.Set(makeRecordKey(name), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return storage.AccessError("write", name, err)
	}

	r.logger.Debug("record written", "name", name, "bytes", len(content))
	return nil
}

// Read returns the full content of the record.
func (r *RecordRepository) Read(ctx context.Context, name string) ([]byte, error) {
	if err := checkContext(ctx, "read", name); err != nil {
		return nil, err
	}
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}

	var content []byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRecordKey(name))
		if err != nil {
			return err
		}
		content, _, err = readItem(item)
		return err
	}, false)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.NotFoundError(name)
		}
		return nil, storage.AccessError("read", name, err)
	}
	return content, nil
}

// Delete removes the record.
func (r *RecordRepository) Delete(ctx context.Context, name string) error {
	if err := checkContext(ctx, "delete", name); err != nil {
		return err
	}
	if err := storage.ValidateName(name); err != nil {
		return err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(name)
		if _, err := tx.Get(key); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.NotFoundError(name)
		}
		return storage.AccessError("delete", name, err)
	}
	return nil
}

// List returns the sorted names of all records.
// Badger iterates keys in byte order, so names come out sorted.
func (r *RecordRepository) List(ctx context.Context) ([]string, error) {
	if err := checkContext(ctx, "list", recordPrefix); err != nil {
		return nil, err
	}

	names := []string{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			names = append(names, recordNameFromKey(iter.Item().Key()))
		}
		return nil
	}, false)
	if err != nil {
		return nil, storage.AccessError("list", recordPrefix, err)
	}
	return names, nil
}

// Stat returns the content size and last update time of the record.
func (r *RecordRepository) Stat(ctx context.Context, name string) (*core.RecordInfo, error) {
	if err := checkContext(ctx, "stat", name); err != nil {
		return nil, err
	}
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}

	var info *core.RecordInfo
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRecordKey(name))
		if err != nil {
			return err
		}
		content, updatedAt, err := readItem(item)
		if err != nil {
			return err
		}
		info = &core.RecordInfo{
			Name:    name,
			Size:    int64(len(content)),
			ModTime: updatedAt,
		}
		return nil
	}, false)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.NotFoundError(name)
		}
		return nil, storage.AccessError("stat", name, err)
	}
	return info, nil
}

// readItem decodes and verifies a record envelope.
// The value is copied out so it stays valid after the transaction ends.
func readItem(item *badger.Item) ([]byte, time.Time, error) {
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, time.Time{}, err
	}
	content, updatedAt, err := storage.UnmarshalRecord(val)
	if err != nil {
		return nil, time.Time{}, err
	}
	if content == nil {
		content = []byte{}
	}
	return content, updatedAt, nil
}

func checkContext(ctx context.Context, op, name string) error {
	if err := ctx.Err(); err != nil {
		return storage.AccessError(op, name, err)
	}
	return nil
}
