package badger

import "strings"

// Key prefixes for different data types
const (
	recordPrefix = "rec:"
)

// makeRecordKey generates a key for a record by name.
// Format: prefix:name
func makeRecordKey(name string) []byte {
	buf := make([]byte, len(recordPrefix)+len(name))
	offset := copy(buf, recordPrefix)
	copy(buf[offset:], name)
	return buf
}

// recordNameFromKey extracts the record name from a record key.
func recordNameFromKey(key []byte) string {
	return strings.TrimPrefix(string(key), recordPrefix)
}
