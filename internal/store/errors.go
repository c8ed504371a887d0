package store

import "errors"

// ErrIOFailure indicates a problem or solution file could not be read or
// written. Wrapped around the underlying filesystem error.
var ErrIOFailure = errors.New("io failure")

// ErrBadFormat indicates a problem or solution file did not match the
// expected text format
var ErrBadFormat = errors.New("malformed file")
