package storage

import "errors"

// Storage errors for the append-only event journal.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. The journal does not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: append-only journal does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
