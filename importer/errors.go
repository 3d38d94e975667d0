package importer

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrStoreRequired is returned when no record store is given
	ErrStoreRequired = errors.New("record store is required")

	// ErrSourceUnavailable is returned when the source directory cannot be listed
	ErrSourceUnavailable = errors.New("import source unavailable")
)
