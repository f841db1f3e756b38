package recovery

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/viant/sagaflow/model/types"
	"github.com/viant/sagaflow/policy"
	"github.com/viant/sagaflow/runtime/execution"
)

// Runner executes a named step with input, recording its result
type Runner func(ctx context.Context, step string, input interface{}) (interface{}, error)

// Failure describes a failed sequential step
type Failure struct {
	Step  string
	Input interface{}
	Err   *types.FlowError
}

// Coordinator applies recovery strategies
type Coordinator struct {
	handlers  map[string]Strategy
	rollbacks map[string]RollbackFunc
	policy    *policy.Policy
	logger    logrus.FieldLogger
}

// Option customises a coordinator
type Option func(c *Coordinator)

// WithHandlers sets step recovery strategies
func WithHandlers(handlers map[string]Strategy) Option {
	return func(c *Coordinator) {
		for name, strategy := range handlers {
			c.handlers[name] = strategy
		}
	}
}

// WithRollbacks sets step rollback handlers
func WithRollbacks(rollbacks map[string]RollbackFunc) Option {
	return func(c *Coordinator) {
		for name, fn := range rollbacks {
			c.rollbacks[name] = fn
		}
	}
}

// WithPolicy sets the continuation policy
func WithPolicy(p *policy.Policy) Option {
	return func(c *Coordinator) {
		c.policy = p
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a coordinator
func New(options ...Option) *Coordinator {
	ret := &Coordinator{
		handlers:  map[string]Strategy{},
		rollbacks: map[string]RollbackFunc{},
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Recover handles failure. It returns the output the flow resumes with, or
// the failure to propagate.
func (c *Coordinator) Recover(ctx context.Context, failure *Failure, wfCtx *execution.Context, runner Runner) (interface{}, error) {
	logger := c.logger.WithField("step", failure.Step)
	switch strategy := c.handlers[failure.Step].(type) {
	case *retryStrategy:
		input, ok := wfCtx.Result(failure.Step)
		if !ok {
			input = failure.Input
		}
		logger.WithField("retry", strategy.step).Debug("recovering by step")
		return runner(ctx, strategy.step, input)
	case *handleStrategy:
		handlerErr := c.handle(ctx, strategy.fn, failure, wfCtx)
		if handlerErr == nil {
			p := policy.FromContext(ctx)
			if p == nil {
				p = c.policy
			}
			if p.Aborts(failure.Step) {
				failure.Err.Handled = true
				return nil, failure.Err
			}
			result, _ := wfCtx.Result(failure.Step)
			logger.Debug("failure handled, continuing with last result")
			return result, nil
		}
		logger.WithError(handlerErr).Warn("recovery handler failed")
		c.Rollback(ctx, failure, wfCtx)
		var cause *multierror.Error
		cause = multierror.Append(cause, handlerErr, failure.Err)
		cause.ErrorFormat = types.JoinErrors
		ret := types.NewFlowError(types.KindRecoveryFailed, failure.Step, cause)
		ret.Snapshot = failure.Err.Snapshot
		ret.RollbackAttempted = true
		return nil, ret
	}
	c.Rollback(ctx, failure, wfCtx)
	failure.Err.RollbackAttempted = true
	return nil, failure.Err
}

// Rollback runs the rollback handler registered for the failed step. Handler
// failures are logged and returned but never replace the step failure.
func (c *Coordinator) Rollback(ctx context.Context, failure *Failure, wfCtx *execution.Context) *types.FlowError {
	fn, ok := c.rollbacks[failure.Step]
	if !ok {
		return nil
	}
	err := safely(func() error { return fn(ctx, failure.Err, wfCtx) })
	if err == nil {
		return nil
	}
	ret := types.NewFlowError(types.KindRollbackHandler, failure.Step, err)
	c.logger.WithField("step", failure.Step).WithError(ret).Warn("rollback handler failed")
	return ret
}

func (c *Coordinator) handle(ctx context.Context, fn HandlerFunc, failure *Failure, wfCtx *execution.Context) error {
	if fn == nil {
		return fmt.Errorf("recovery handler for %v is nil", failure.Step)
	}
	return safely(func() error { return fn(ctx, failure.Err, wfCtx) })
}

func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
