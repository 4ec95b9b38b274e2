package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrStaleRotation indicates a rotation compare-and-set matched no row:
	// the presented refresh hash no longer equals the stored current hash,
	// or the session is no longer active.
	ErrStaleRotation = errors.New("repository: stale rotation")
)
