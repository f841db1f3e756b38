package recovery

import (
	"context"

	"github.com/viant/sagaflow/runtime/execution"
)

// HandlerFunc recovers from err; returning nil marks the failure handled
type HandlerFunc func(ctx context.Context, err error, wfCtx *execution.Context) error

// RollbackFunc undoes side effects of a failed step
type RollbackFunc func(ctx context.Context, err error, wfCtx *execution.Context) error

// Strategy is a recovery strategy registered for a step
type Strategy interface {
	Name() string
}

type retryStrategy struct {
	step string
}

func (r *retryStrategy) Name() string { return "retry:" + r.step }

type handleStrategy struct {
	fn HandlerFunc
}

func (h *handleStrategy) Name() string { return "handle" }

// Retry re-executes step with the failed step's last known result
func Retry(step string) Strategy {
	return &retryStrategy{step: step}
}

// Handle invokes fn with the original error
func Handle(fn HandlerFunc) Strategy {
	return &handleStrategy{fn: fn}
}
