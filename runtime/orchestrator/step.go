package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/viant/sagaflow/metrics"
	"github.com/viant/sagaflow/model/types"
	"github.com/viant/sagaflow/progress"
	"github.com/viant/sagaflow/runtime/execution"
	"github.com/viant/sagaflow/service/step"
	"github.com/viant/sagaflow/service/transaction"
	"github.com/viant/sagaflow/tracing"
)

var (
	deltaStarted   = progress.Delta{Started: 1, Running: 1}
	deltaCompleted = progress.Delta{Completed: 1, Running: -1}
	deltaFailed    = progress.Delta{Failed: 1, Running: -1}
	deltaRetried   = progress.Delta{Retried: 1}
	deltaRecovered = progress.Delta{Recovered: 1}
)

func (o *Orchestrator) track(ctx context.Context, delta progress.Delta) {
	progress.UpdateCtx(ctx, delta)
}

// resolve returns the executor for name: the mock harness when attached,
// otherwise the registered step, decorated as a ledger operation when the
// step declares one and a transaction manager is attached.
func (o *Orchestrator) resolve(name string) (types.Executor, bool) {
	registered, ok := o.steps.Lookup(name)
	var executor types.Executor
	switch {
	case o.harness != nil:
		executor = o.harness.Executor(name)
	case ok:
		executor = registered.Executor
	default:
		return nil, false
	}
	if ok && o.manager != nil && registered.Operation != nil {
		executor = transaction.Decorate(o.manager, transaction.Spec{
			Name:         name,
			Type:         registered.Operation.Type,
			Target:       registered.Operation.Target,
			Compensation: registered.Operation.Compensation,
		}, executor)
	}
	return executor, true
}

// invoke executes a single step with retries and records its result
func (o *Orchestrator) invoke(ctx context.Context, name string, input interface{}, wfCtx *execution.Context) (interface{}, error) {
	wfCtx.SetCurrent(name)
	executor, ok := o.resolve(name)
	if !ok {
		return nil, o.failure(types.KindStepNotFound, name, fmt.Errorf("%w: %v", step.ErrStepNotFound, name), wfCtx)
	}
	ctx, span := tracing.StartSpan(ctx, "step:"+name, "INTERNAL")
	span.WithAttributes(map[string]string{"step": name})
	o.track(ctx, deltaStarted)
	o.recorder.Inc(metrics.Steps, 1)

	var output interface{}
	attempt := func() error {
		var err error
		output, err = o.call(ctx, name, executor, input, wfCtx)
		if err != nil && types.IsKind(err, types.KindExecutorPanic) {
			return backoff.Permanent(err)
		}
		return err
	}
	var err error
	if o.options.Retries > 0 {
		exponential := backoff.NewExponentialBackOff()
		exponential.InitialInterval = o.options.RetryDelay
		exponential.MaxElapsedTime = 0
		exponential.Reset()
		retryPolicy := backoff.WithContext(backoff.WithMaxRetries(exponential, uint64(o.options.Retries)), ctx)
		err = backoff.RetryNotify(attempt, retryPolicy, func(err error, delay time.Duration) {
			o.track(ctx, deltaRetried)
			o.logger.WithFields(logrus.Fields{"step": name, "delay": delay}).WithError(err).Debug("retrying step")
		})
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
	} else {
		err = attempt()
	}
	if err != nil {
		o.track(ctx, deltaFailed)
		tracing.EndSpan(span, err)
		flowErr, ok := types.AsFlowError(err)
		if !ok {
			flowErr = o.failure(types.KindStepFailed, name, err, wfCtx)
		}
		return nil, flowErr
	}
	wfCtx.SetResult(name, output)
	o.track(ctx, deltaCompleted)
	tracing.EndSpan(span, nil)
	return output, nil
}

// call executes the executor once; panics become KindExecutorPanic failures
func (o *Orchestrator) call(ctx context.Context, name string, executor types.Executor, input interface{}, wfCtx *execution.Context) (output interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = o.failure(types.KindExecutorPanic, name, fmt.Errorf("panic: %v", r), wfCtx)
		}
	}()
	output, err = executor.Execute(ctx, input, wfCtx)
	if err != nil {
		if _, ok := types.AsFlowError(err); ok {
			return nil, err
		}
		return nil, o.failure(types.KindStepFailed, name, err, wfCtx)
	}
	return output, nil
}
