package storage

import "errors"

// Storage errors shared by all record store backends.
var (
	// ErrNotFound is returned when a requested run or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
