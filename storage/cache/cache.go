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


// Package cache provides a read-through cache decorator for storage.RecordStore.
//
// Cached content is keyed by record name. Write and Delete evict the entry
// before touching the inner store and Read repopulates it on a miss, so the
// cache never serves content older than the last completed write made
// through it. Callers receive copies and may mutate them freely.
package cache

import (
	"context"
	"log/slog"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/poiesic/chrisql/core"
	"github.com/poiesic/chrisql/storage"
)

const (
	// DefaultMaxCost is the default cache capacity in bytes of content.
	DefaultMaxCost = 64 << 20
)

// Store wraps a RecordStore with a ristretto cache.
type Store struct {
	inner  storage.RecordStore
	cache  *ristretto.Cache[string, []byte]
	logger *slog.Logger
}

var _ storage.RecordStore = (*Store)(nil)

// Option configures a Store.
type Option func(*options)

type options struct {
	maxCost int64
	logger  *slog.Logger
}

// WithMaxCost sets the cache capacity in bytes of record content.
// Default is DefaultMaxCost.
func WithMaxCost(maxCost int64) Option {
	return func(o *options) {
		if maxCost > 0 {
			o.maxCost = maxCost
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New wraps inner with a read-through cache. Closing the Store closes inner.
func New(inner storage.RecordStore, opts ...Option) (*Store, error) {
	o := &options{
		maxCost: DefaultMaxCost,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		// Roughly 10x the number of records expected to fit
		NumCounters: max(o.maxCost/100, 1000),
		MaxCost:     o.maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Store{
		inner:  inner,
		cache:  c,
		logger: o.logger,
	}, nil
}

// Create evicts the record and delegates to the inner store.
// Handle writes bypass the cache, so the entry is evicted again on Close.
func (s *Store) Create(ctx context.Context, name string) (storage.Handle, error) {
	s.cache.Del(name)
	h, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &evictingHandle{Handle: h, cache: s.cache}, nil
}

// Write evicts the record and writes through to the inner store.
func (s *Store) Write(ctx context.Context, name string, content []byte) error {
	s.cache.Del(name)
	if err := s.inner.Write(ctx, name, content); err != nil {
		return err
	}
	s.put(name, content)
	return nil
}

// Read serves the record from cache, falling back to the inner store.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	if content, ok := s.cache.Get(name); ok {
		s.logger.Debug("record cache hit", "name", name)
		return clone(content), nil
	}

	content, err := s.inner.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	s.put(name, content)
	return content, nil
}

// Delete evicts the record and deletes it from the inner store.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.cache.Del(name)
	return s.inner.Delete(ctx, name)
}

// List delegates to the inner store.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return s.inner.List(ctx)
}

// Stat delegates to the inner store.
func (s *Store) Stat(ctx context.Context, name string) (*core.RecordInfo, error) {
	return s.inner.Stat(ctx, name)
}

// Close releases the cache and closes the inner store.
func (s *Store) Close() error {
	s.cache.Close()
	return s.inner.Close()
}

// put caches a private copy of content and waits for it to be admitted
// so a following Read observes it.
func (s *Store) put(name string, content []byte) {
	cp := clone(content)
	cost := int64(len(cp))
	if cost == 0 {
		cost = 1
	}
	if s.cache.Set(name, cp, cost) {
		s.cache.Wait()
	}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

type evictingHandle struct {
	storage.Handle
	cache *ristretto.Cache[string, []byte]
}

func (h *evictingHandle) Close() error {
	err := h.Handle.Close()
	h.cache.Del(h.Name())
	return err
}
