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


package storage

import (
	"errors"
	"fmt"

	"github.com/poiesic/chrisql/core"
)

var (
	// ErrDirectoryUnavailable indicates the store's root directory could not be
	// created or is not a directory. It is fatal for the store.
	ErrDirectoryUnavailable = errors.New("database directory unavailable")

	// ErrRecordAccess indicates a recoverable failure while creating, writing,
	// reading or deleting a record, including an invalid record name.
	ErrRecordAccess = errors.New("record access failed")

	// ErrRecordNotFound indicates that no record exists for the requested name.
	ErrRecordNotFound = errors.New("record not found")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrChecksumMismatch indicates stored content does not match its checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// ValidateName checks a record name and reports failures as ErrRecordAccess.
// The returned error also matches core.ErrInvalidRecordName.
func ValidateName(name string) error {
	if err := core.ValidateRecordName(name); err != nil {
		return fmt.Errorf("%w: %w", ErrRecordAccess, err)
	}
	return nil
}

// AccessError wraps cause as an ErrRecordAccess for operation op on record name.
func AccessError(op, name string, cause error) error {
	return fmt.Errorf("%w: %s %q: %w", ErrRecordAccess, op, name, cause)
}

// NotFoundError reports that record name does not exist.
func NotFoundError(name string) error {
	return fmt.Errorf("%w: %q", ErrRecordNotFound, name)
}
