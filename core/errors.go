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


package core

import "errors"

// Record validation errors
var (
	// ErrInvalidRecordName indicates a record name failed validation.
	ErrInvalidRecordName = errors.New("invalid record name")

	// ErrEmptyRecordName indicates the record name is empty.
	ErrEmptyRecordName = errors.New("record name cannot be empty")

	// ErrRecordNameTooLong indicates the record name exceeds MaxRecordNameLength bytes.
	ErrRecordNameTooLong = errors.New("record name too long")

	// ErrRecordNameSeparator indicates the record name contains a path separator or NUL byte.
	ErrRecordNameSeparator = errors.New("record name cannot contain path separators")

	// ErrReservedRecordName indicates the record name is ".", ".." or starts with a dot.
	ErrReservedRecordName = errors.New("record name is reserved")

	// ErrInvalidEncoding indicates record content is not valid UTF-8 text.
	ErrInvalidEncoding = errors.New("content is not valid UTF-8")
)
