package orchestrator

import (
	"context"
	"fmt"

	"github.com/viant/sagaflow/model/flow"
	"github.com/viant/sagaflow/model/types"
	"github.com/viant/sagaflow/runtime/evaluator"
	"github.com/viant/sagaflow/runtime/execution"
	"github.com/viant/sagaflow/service/recovery"
	"golang.org/x/sync/errgroup"
)

// run executes elements in order threading outputs. Sequential failures go
// through the recovery coordinator only when recoverable is set; loop bodies
// propagate failures as they are.
func (o *Orchestrator) run(ctx context.Context, elements []*flow.Element, input interface{}, wfCtx *execution.Context, recoverable bool) (interface{}, error) {
	var err error
	for _, element := range elements {
		if input, err = o.element(ctx, element, input, wfCtx, recoverable); err != nil {
			return nil, err
		}
	}
	return input, nil
}

func (o *Orchestrator) element(ctx context.Context, element *flow.Element, input interface{}, wfCtx *execution.Context, recoverable bool) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, o.failure(types.KindTimeout, wfCtx.Current(), err, wfCtx)
	}
	if element == nil {
		return nil, o.failure(types.KindUnknownElement, "", fmt.Errorf("%w: nil", flow.ErrUnknownElement), wfCtx)
	}
	switch element.Kind {
	case flow.KindSequential:
		return o.sequential(ctx, element.Step, input, wfCtx, recoverable)
	case flow.KindParallel:
		return o.parallel(ctx, element.Steps, input, wfCtx)
	case flow.KindConditional:
		return o.conditional(ctx, element, input, wfCtx, recoverable)
	case flow.KindLoop:
		return o.loop(ctx, element, input, wfCtx)
	}
	return nil, o.failure(types.KindUnknownElement, "", fmt.Errorf("%w: %q", flow.ErrUnknownElement, element.Kind), wfCtx)
}

func (o *Orchestrator) sequential(ctx context.Context, name string, input interface{}, wfCtx *execution.Context, recoverable bool) (interface{}, error) {
	output, err := o.invoke(ctx, name, input, wfCtx)
	if err == nil || !recoverable {
		return output, err
	}
	flowErr, ok := types.AsFlowError(err)
	if !ok {
		flowErr = o.failure(types.KindStepFailed, name, err, wfCtx)
	}
	runner := func(ctx context.Context, stepName string, input interface{}) (interface{}, error) {
		return o.invoke(ctx, stepName, input, wfCtx)
	}
	output, err = o.coordinator.Recover(ctx, &recovery.Failure{Step: name, Input: input, Err: flowErr}, wfCtx, runner)
	if err == nil {
		o.track(ctx, deltaRecovered)
	}
	return output, err
}

// parallel runs every member against the same input and waits for all of
// them. Successful outputs keep declaration order.
func (o *Orchestrator) parallel(ctx context.Context, names []string, input interface{}, wfCtx *execution.Context) (interface{}, error) {
	outputs := make([]interface{}, len(names))
	failures := make([]*types.FlowError, len(names))
	var group errgroup.Group
	if o.options.Parallelism > 0 {
		group.SetLimit(o.options.Parallelism)
	}
	for i, name := range names {
		i, name := i, name
		group.Go(func() error {
			output, err := o.invoke(ctx, name, input, wfCtx)
			if err != nil {
				flowErr, ok := types.AsFlowError(err)
				if !ok {
					flowErr = o.failure(types.KindStepFailed, name, err, wfCtx)
				}
				failures[i] = flowErr
				return nil
			}
			outputs[i] = output
			return nil
		})
	}
	_ = group.Wait()

	var failed []*types.FlowError
	succeeded := make([]interface{}, 0, len(names))
	for i := range names {
		if failures[i] != nil {
			failed = append(failed, failures[i])
			continue
		}
		succeeded = append(succeeded, outputs[i])
	}
	if len(failed) > 0 {
		ret := types.NewParallelError(failed, len(succeeded))
		ret.Snapshot = wfCtx.Snapshot()
		return nil, ret
	}
	return succeeded, nil
}

func (o *Orchestrator) conditional(ctx context.Context, element *flow.Element, input interface{}, wfCtx *execution.Context, recoverable bool) (interface{}, error) {
	ok, err := o.evaluate(ctx, element.If, wfCtx, map[string]interface{}{"input": input})
	if err != nil {
		return nil, o.failure(types.KindConditionEvaluation, wfCtx.Current(), err, wfCtx)
	}
	branch := element.Then
	if !ok {
		branch = element.Else
	}
	if branch == nil {
		return input, nil
	}
	return o.element(ctx, branch, input, wfCtx, recoverable)
}

// loop repeats the body exactly Times times or while the condition holds,
// never running more than the effective iteration cap.
func (o *Orchestrator) loop(ctx context.Context, element *flow.Element, input interface{}, wfCtx *execution.Context) (interface{}, error) {
	limit := element.MaxIterations
	if limit <= 0 {
		limit = o.options.MaxIterations
	}
	if limit <= 0 {
		limit = flow.DefaultMaxIterations
	}
	var err error
	if element.Times > 0 {
		if element.Times > limit {
			cause := fmt.Errorf("times %d exceeds maxIterations %d", element.Times, limit)
			return nil, o.failure(types.KindLoopLimitExceeded, wfCtx.Current(), cause, wfCtx)
		}
		for i := 0; i < element.Times; i++ {
			if input, err = o.run(withIteration(ctx, i), element.Body, input, wfCtx, false); err != nil {
				return nil, err
			}
		}
		return input, nil
	}
	for i := 0; ; i++ {
		iterationCtx := withIteration(ctx, i)
		holds, err := o.evaluate(iterationCtx, element.While, wfCtx, map[string]interface{}{"iteration": i, "input": input})
		if err != nil {
			return nil, o.failure(types.KindConditionEvaluation, wfCtx.Current(), err, wfCtx)
		}
		if !holds {
			return input, nil
		}
		if i >= limit {
			cause := fmt.Errorf("condition still holds after %d iterations", limit)
			return nil, o.failure(types.KindLoopLimitExceeded, wfCtx.Current(), cause, wfCtx)
		}
		if input, err = o.run(iterationCtx, element.Body, input, wfCtx, false); err != nil {
			return nil, err
		}
	}
}

func (o *Orchestrator) evaluate(ctx context.Context, condition *flow.Condition, wfCtx *execution.Context, extra map[string]interface{}) (ret bool, err error) {
	if condition.IsZero() {
		return false, fmt.Errorf("condition is empty")
	}
	if condition.Func != nil {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("predicate panic: %v", r)
			}
		}()
		return condition.Func(ctx, wfCtx)
	}
	if iteration, ok := Iteration(ctx); ok {
		if _, set := extra["iteration"]; !set {
			extra["iteration"] = iteration
		}
	}
	return evaluator.Bool(condition.Expr, wfCtx.Variables(extra))
}
