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
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/chrisql/core"
)

// Envelope flags
const (
	// FlagSnappy marks a payload compressed with snappy.
	FlagSnappy uint64 = 1 << iota
)

// DefaultCompressThreshold is the content size above which payloads are compressed.
const DefaultCompressThreshold = 4096

// Envelope is the value format used by backends that store records
// as values rather than as plain files.
type Envelope struct {
	Flags     uint64
	Checksum  core.Checksum // Checksum of the uncompressed content
	UpdatedAt int64         // Unix microseconds
	Payload   []byte
}

// EnvelopeMUS serializes an Envelope with the mus format.
var EnvelopeMUS = envelopeMUS{}

var _ mus.Serializer[Envelope] = envelopeMUS{}

type envelopeMUS struct{}

func (envelopeMUS) Marshal(v Envelope, bs []byte) (n int) {
	n = varint.Uint64.Marshal(v.Flags, bs)
	n += varint.Uint64.Marshal(uint64(v.Checksum), bs[n:])
	n += varint.Int64.Marshal(v.UpdatedAt, bs[n:])
	return n + ord.ByteSlice.Marshal(v.Payload, bs[n:])
}

func (envelopeMUS) Unmarshal(bs []byte) (v Envelope, n int, err error) {
	v.Flags, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		checksum uint64
		n1       int
	)
	checksum, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Checksum = core.Checksum(checksum)
	v.UpdatedAt, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Payload, n1, err = ord.ByteSlice.Unmarshal(bs[n:])
	n += n1
	return
}

func (envelopeMUS) Size(v Envelope) (size int) {
	size = varint.Uint64.Size(v.Flags)
	size += varint.Uint64.Size(uint64(v.Checksum))
	size += varint.Int64.Size(v.UpdatedAt)
	return size + ord.ByteSlice.Size(v.Payload)
}

func (envelopeMUS) Skip(bs []byte) (n int, err error) {
	n, err = varint.Uint64.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = varint.Uint64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.ByteSlice.Skip(bs[n:])
	n += n1
	return
}

// MarshalRecord wraps content in an Envelope and serializes it.
// Content larger than compressThreshold bytes is snappy-compressed;
// a threshold <= 0 disables compression.
func MarshalRecord(content []byte, updatedAt time.Time, compressThreshold int) []byte {
	env := Envelope{
		Checksum:  core.ChecksumOf(content),
		UpdatedAt: updatedAt.UnixMicro(),
		Payload:   content,
	}
	if compressThreshold > 0 && len(content) > compressThreshold {
		env.Flags |= FlagSnappy
		env.Payload = snappy.Encode(nil, content)
	}
	buf := make([]byte, EnvelopeMUS.Size(env))
	EnvelopeMUS.Marshal(env, buf)
	return buf
}

// UnmarshalRecord deserializes an Envelope and returns the verified content
// and its update time.
func UnmarshalRecord(data []byte) ([]byte, time.Time, error) {
	env, _, err := EnvelopeMUS.Unmarshal(data)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	content := env.Payload
	if env.Flags&FlagSnappy != 0 {
		content, err = snappy.Decode(nil, env.Payload)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
	}

	if core.ChecksumOf(content) != env.Checksum {
		return nil, time.Time{}, ErrChecksumMismatch
	}

	return content, time.UnixMicro(env.UpdatedAt).UTC(), nil
}
