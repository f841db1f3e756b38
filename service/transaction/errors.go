package transaction

import "errors"

var (
	// ErrNotFound is returned for unknown or already finished transactions
	ErrNotFound = errors.New("transaction not found")

	// ErrTerminal is returned when a finished transaction is modified
	ErrTerminal = errors.New("transaction is in a terminal state")

	// ErrOrphaned is returned when an operation completed after its
	// transaction finished; its side effect is not compensated.
	ErrOrphaned = errors.New("operation completed after transaction finished")

	// ErrInvalidTransition is returned for a disallowed status change
	ErrInvalidTransition = errors.New("invalid transaction status transition")

	// ErrEmptyName is returned for operations without a name
	ErrEmptyName = errors.New("operation name is empty")
)
