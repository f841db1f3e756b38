package compensation

import "errors"

var (
	// ErrCompensation wraps every failed compensation attempt
	ErrCompensation = errors.New("compensation failure")

	// ErrNoResourceClient is returned when a generic inverse cannot be
	// executed because no resource client was configured.
	ErrNoResourceClient = errors.New("resource client not configured")

	// ErrNoIdentifier is returned when a created resource has no inverse
	// because its identifier could not be derived from the response.
	ErrNoIdentifier = errors.New("no identifier for created resource")
)
