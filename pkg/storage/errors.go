package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when an alert does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("directory unavailable")
)
