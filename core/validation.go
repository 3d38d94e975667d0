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

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxRecordNameLength is the longest record name accepted, in bytes.
// It matches the file name limit of common filesystems.
const MaxRecordNameLength = 255

// ValidateRecordName validates a record name before any path is built from it.
//
// Validation rules:
//   - Name must not be empty
//   - Name must be at most MaxRecordNameLength bytes
//   - Name must not contain '/', '\' or NUL
//   - Name must not be "." or ".." and must not start with a dot
//
// Dot-prefixed names are reserved for temporary files written by stores,
// so a record can never collide with an in-flight write.
func ValidateRecordName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecordName, ErrEmptyRecordName)
	}

	if len(name) > MaxRecordNameLength {
		return fmt.Errorf("%w: %w: %d bytes", ErrInvalidRecordName, ErrRecordNameTooLong, len(name))
	}

	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %w: %q", ErrInvalidRecordName, ErrRecordNameSeparator, name)
	}

	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %w: %q", ErrInvalidRecordName, ErrReservedRecordName, name)
	}

	return nil
}

// IsValidRecordName reports whether name passes ValidateRecordName.
func IsValidRecordName(name string) bool {
	return ValidateRecordName(name) == nil
}

// DecodeText returns content as a string if it is valid UTF-8.
// Stores are byte-oriented; callers that need text decode at the call site.
func DecodeText(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", ErrInvalidEncoding
	}
	return string(content), nil
}
