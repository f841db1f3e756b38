package transaction

import (
	"context"

	"github.com/viant/sagaflow/model/types"
	"github.com/viant/sagaflow/runtime/execution"
	"github.com/viant/sagaflow/service/compensation"
)

// Spec describes how a decorated step is recorded
type Spec struct {
	Name         string
	Type         compensation.OperationType
	Target       string
	Compensation compensation.Func
}

// Executor routes a step through Manager.AddOperation whenever a
// transaction is present in the context, and calls the step directly
// otherwise.
type Executor struct {
	manager  *Manager
	spec     Spec
	delegate types.Executor
}

// Execute executes the step
func (e *Executor) Execute(ctx context.Context, input interface{}, wfCtx *execution.Context) (interface{}, error) {
	tx, ok := FromContext(ctx)
	if !ok || e.manager == nil {
		return e.delegate.Execute(ctx, input, wfCtx)
	}
	return e.manager.AddOperation(ctx, tx.ID, &Request{
		Name:         e.spec.Name,
		Type:         e.spec.Type,
		Target:       e.spec.Target,
		Payload:      input,
		Compensation: e.spec.Compensation,
	}, func(ctx context.Context) (interface{}, error) {
		return e.delegate.Execute(ctx, input, wfCtx)
	})
}

// Decorate wraps delegate as a ledger operation
func Decorate(manager *Manager, spec Spec, delegate types.Executor) *Executor {
	return &Executor{manager: manager, spec: spec, delegate: delegate}
}

var _ types.Executor = (*Executor)(nil)
