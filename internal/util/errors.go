package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrInvalidIdentifier indicates a chapter token that does not parse as a number
	ErrInvalidIdentifier = errors.New("invalid chapter identifier")

	// ErrSourceEmpty indicates the source returned no chapters at all
	ErrSourceEmpty = errors.New("source returned no chapters")

	// ErrFetch indicates a network or parse failure for a single chapter
	ErrFetch = errors.New("fetch failed")

	// ErrPersistence indicates a database write failure
	ErrPersistence = errors.New("persistence failed")

	// ErrInvalidConfig indicates missing or invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotFound indicates a required record was not found
	ErrNotFound = errors.New("not found")
)
