package feed

import "errors"

var (
	// ErrSourceUnavailable indicates the content source could not be reached
	// or answered with a failure status.
	ErrSourceUnavailable = errors.New("content source unavailable")

	// ErrMalformedPage indicates a fetched page does not have the expected
	// shape, or a cursor could not be interpreted.
	ErrMalformedPage = errors.New("malformed feed page")

	// ErrNotFound indicates the requested post does not exist.
	ErrNotFound = errors.New("post not found")
)
