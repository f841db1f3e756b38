package step

import (
	"github.com/viant/sagaflow/model/types"
	"github.com/viant/sagaflow/service/compensation"
)

// Step is a named executor with optional ledger metadata
type Step struct {
	Name        string
	Description string
	Executor    types.Executor
	// Operation, when set, makes the step a ledger operation whenever a
	// transaction is active.
	Operation *Operation
}

// Operation describes how a step is recorded in the transaction ledger
type Operation struct {
	Type         compensation.OperationType
	Target       string
	Compensation compensation.Func
}

// Option customises a registered step
type Option func(s *Step)

// WithDescription sets the step description
func WithDescription(description string) Option {
	return func(s *Step) {
		s.Description = description
	}
}

// WithOperation marks the step as a ledger operation of the given type
func WithOperation(operationType compensation.OperationType, target string) Option {
	return func(s *Step) {
		if s.Operation == nil {
			s.Operation = &Operation{}
		}
		s.Operation.Type = operationType
		s.Operation.Target = target
	}
}

// WithCompensation sets a custom compensation overriding generic derivation
func WithCompensation(fn compensation.Func) Option {
	return func(s *Step) {
		if s.Operation == nil {
			s.Operation = &Operation{Type: compensation.OperationCustom}
		}
		s.Operation.Compensation = fn
	}
}
