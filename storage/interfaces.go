package storage

import (
	"context"
	"io"

	"github.com/poiesic/chrisql/core"
)

// Handle is an open record returned by RecordStore.Create.
// Reads and writes start at offset zero; writes overwrite in place
// and are not crash-atomic. Use RecordStore.Write for durable replacement.
type Handle interface {
	io.Reader
	io.Writer
	io.Closer

	// Name returns the record name the handle was opened for.
	Name() string
}

// RecordStore maps record names to opaque byte content.
//
// Implementations perform no per-record locking: concurrent writers to the
// same name race, while operations on different names are independent.
// Every name is validated with core.ValidateRecordName before use.
type RecordStore interface {
	// Create opens the record for reading and writing, creating it empty if absent.
	// Existing content is never truncated, so Create is idempotent.
	// Returns ErrRecordAccess on an invalid name or I/O failure.
	Create(ctx context.Context, name string) (Handle, error)

	// Write replaces the record's content with content.
	// On success a subsequent Read returns exactly content.
	// On failure the previous content (or absence) of the record is intact.
	Write(ctx context.Context, name string, content []byte) error

	// Read returns the full current content of the record.
	// Returns ErrRecordNotFound if the record doesn't exist.
	Read(ctx context.Context, name string) ([]byte, error)

	// Delete removes the record.
	// Returns ErrRecordNotFound if the record doesn't exist.
	Delete(ctx context.Context, name string) error

	// List returns the names of all records, sorted.
	List(ctx context.Context) ([]string, error)

	// Stat returns size and modification time of the record.
	// Returns ErrRecordNotFound if the record doesn't exist.
	Stat(ctx context.Context, name string) (*core.RecordInfo, error)

	// Close releases backend resources.
	Close() error
}
