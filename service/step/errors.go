package step

import "errors"

var (
	ErrEmptyName    = errors.New("step name is empty")
	ErrDuplicate    = errors.New("step already registered")
	ErrClosed       = errors.New("step registry is closed")
	ErrStepNotFound = errors.New("step not found")
)
