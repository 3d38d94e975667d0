package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Checksum is a 64-bit content digest stored alongside record payloads
// by backends that wrap content in an envelope.
type Checksum uint64

// ChecksumOf computes a deterministic checksum of content using BLAKE2b hashing.
// Identical content always produces identical checksums.
func ChecksumOf(content []byte) Checksum {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write(content)
	sum := h.Sum(nil)
	return Checksum(binary.LittleEndian.Uint64(sum))
}

// Record is a named, opaque byte blob persisted by a record store.
type Record struct {
	Name    string
	Content []byte
}

// Text decodes the record content as UTF-8 text.
func (r *Record) Text() (string, error) {
	return DecodeText(r.Content)
}

// RecordInfo describes a stored record without loading its content.
type RecordInfo struct {
	Name    string
	Size    int64
	ModTime time.Time // When the record was last replaced
}
