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


package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"runtime"
	"sync"
	"time"

	"github.com/hack-pad/hackpadfs"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/chrisql/core"
	"github.com/poiesic/chrisql/storage"
)

// Summary reports the outcome of an import.
type Summary struct {
	Imported int
	Skipped  int
	Failed   int
	Elapsed  time.Duration
}

// Importer copies files into a record store on a bounded worker pool.
type Importer struct {
	store          storage.RecordStore
	pool           *ants.Pool
	poolSize       int
	maxRetries     int
	retryDelay     time.Duration
	reportInterval int
	progress       io.Writer
	logger         *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer) error

// WithPoolSize sets the number of concurrent writers.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(im *Importer) error {
		if size < 1 {
			size = 1
		}
		im.poolSize = size
		return nil
	}
}

// WithRetries sets the maximum attempts per record and the base backoff delay.
func WithRetries(maxAttempts int, baseDelay time.Duration) Option {
	return func(im *Importer) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		im.maxRetries = maxAttempts
		im.retryDelay = baseDelay
		return nil
	}
}

// WithReportInterval sets how many records pass between progress reports.
func WithReportInterval(n int) Option {
	return func(im *Importer) error {
		im.reportInterval = n
		return nil
	}
}

// WithProgress sets where progress is written. Default is io.Discard.
func WithProgress(w io.Writer) Option {
	return func(im *Importer) error {
		if w == nil {
			w = io.Discard
		}
		im.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) error {
		if logger == nil {
			logger = slog.Default()
		}
		im.logger = logger
		return nil
	}
}

// New creates an importer writing into store.
// Call Release when done to free the worker pool.
func New(store storage.RecordStore, opts ...Option) (*Importer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	im := &Importer{
		store:          store,
		poolSize:       poolSize,
		maxRetries:     3,
		retryDelay:     1 * time.Second,
		reportInterval: 100,
		progress:       io.Discard,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(im); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(im.poolSize)
	if err != nil {
		return nil, err
	}
	im.pool = pool

	return im, nil
}

// Release frees the worker pool.
func (im *Importer) Release() {
	if im.pool != nil {
		im.pool.Release()
	}
}

// ImportDir imports the files of a directory on the local filesystem.
func (im *Importer) ImportDir(ctx context.Context, dir string) (Summary, error) {
	return im.ImportFS(ctx, os.DirFS(dir), ".")
}

// ImportFS imports the files of dir within src.
// Subdirectories, non-regular files and files whose name is not a valid
// record name are skipped. Per-file failures do not stop the import; they
// are counted and returned joined together.
func (im *Importer) ImportFS(ctx context.Context, src hackpadfs.FS, dir string) (Summary, error) {
	entries, err := hackpadfs.ReadDir(src, dir)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, dir, err)
	}

	var summary Summary
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			im.logger.Debug("skipping non-regular entry", "name", entry.Name())
			summary.Skipped++
			continue
		}
		if !core.IsValidRecordName(entry.Name()) {
			im.logger.Debug("skipping file with invalid record name", "name", entry.Name())
			summary.Skipped++
			continue
		}
		names = append(names, entry.Name())
	}

	if len(names) == 0 {
		fmt.Fprintf(im.progress, "No files to import in %s (%d skipped)\n", dir, summary.Skipped)
		return summary, nil
	}

	fmt.Fprintf(im.progress, "Importing %d files (pool size: %d)\n", len(names), im.poolSize)

	tracker := NewProgressTracker(im.progress, len(names), im.reportInterval)
	tracker.Start()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(name string, err error) {
		mu.Lock()
		errs = append(errs, fmt.Errorf("import %s: %w", name, err))
		summary.Failed++
		mu.Unlock()
		tracker.Record(false)
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}

		wg.Add(1)
		submitErr := im.pool.Submit(func() {
			defer wg.Done()
			if err := im.importFile(ctx, src, path.Join(dir, name), name); err != nil {
				im.logger.Warn("import failed", "name", name, "error", err)
				fail(name, err)
				return
			}
			mu.Lock()
			summary.Imported++
			mu.Unlock()
			tracker.Record(true)
		})
		if submitErr != nil {
			wg.Done()
			fail(name, submitErr)
		}
	}

	wg.Wait()
	tracker.Finish()

	summary.Elapsed = tracker.Elapsed()
	fmt.Fprintf(im.progress, "Import complete. %d imported, %d skipped, %d failed in %v\n",
		summary.Imported, summary.Skipped, summary.Failed, summary.Elapsed.Round(time.Millisecond))

	return summary, errors.Join(errs...)
}

func (im *Importer) importFile(ctx context.Context, src fs.FS, filePath, name string) error {
	content, err := hackpadfs.ReadFile(src, filePath)
	if err != nil {
		return err
	}
	return RetryWithBackoff(ctx, im.logger, func() error {
		return im.store.Write(ctx, name, content)
	}, im.maxRetries, im.retryDelay)
}
