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


// Package storage provides the record storage abstraction layer for chrisql.
//
// A record is a named, opaque byte blob. The RecordStore interface maps
// record names to content and decouples callers from the backend:
//
//   - fsstore: one file per record under a root directory (the default)
//   - badger: records as values in an embedded BadgerDB
//   - cache: a read-through cache decorator over any RecordStore
//
// # Record Names
//
// Names are validated with core.ValidateRecordName before any path or key is
// built from them. Empty names, path separators, NUL bytes and dot-prefixed
// names are rejected, so a crafted name can never escape the root directory.
//
// # Error Taxonomy
//
//   - ErrDirectoryUnavailable: the root directory cannot be used; fatal at open
//   - ErrRecordAccess: recoverable I/O or validation failure on one record
//   - ErrRecordNotFound: the record does not exist
//
// Errors wrap their underlying cause, so errors.Is works for both the
// taxonomy sentinel and the cause (for example core.ErrInvalidRecordName).
//
// # Durability
//
// Write is a full replace. The file backend writes a temporary sibling,
// syncs it and renames it over the record, so a crash mid-write never
// leaves a half-written record. The badger backend commits each write in a
// single transaction.
//
// # Thread Safety
//
// Stores perform no per-record locking. Concurrent access to different
// names is safe; concurrent writers to the same name must be serialized by
// the caller.
package storage
