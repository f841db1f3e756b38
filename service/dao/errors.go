package dao

import "errors"

// Sentinel errors shared by every store implementation, detect them with
// errors.Is.
var (
	// ErrNotFound is returned when the requested entity does not exist
	ErrNotFound = errors.New("dao: not found")

	// ErrInvalidID indicates that the supplied key is empty
	ErrInvalidID = errors.New("dao: invalid id")

	// ErrNilEntity is returned when the caller attempts to persist a nil pointer
	ErrNilEntity = errors.New("dao: nil entity")
)
