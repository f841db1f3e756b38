package types

import (
	"context"

	"github.com/viant/sagaflow/runtime/execution"
)

// Executor is the single capability every workflow step exposes: given an
// input and the shared workflow context it produces an output or a failure.
type Executor interface {
	Execute(ctx context.Context, input interface{}, wfCtx *execution.Context) (interface{}, error)
}

// Func adapts a plain function to Executor
type Func func(ctx context.Context, input interface{}, wfCtx *execution.Context) (interface{}, error)

// Execute calls f
func (f Func) Execute(ctx context.Context, input interface{}, wfCtx *execution.Context) (interface{}, error) {
	return f(ctx, input, wfCtx)
}

// Pipeline is a callable chain that transforms its input without access to
// the workflow context.
type Pipeline interface {
	Process(ctx context.Context, input interface{}) (interface{}, error)
}

// Stage is one transformation of a Stages pipeline
type Stage func(ctx context.Context, input interface{}) (interface{}, error)

// Stages is a Pipeline threading each stage output into the next stage
type Stages []Stage

// Process runs stages in order, stopping at the first error
func (s Stages) Process(ctx context.Context, input interface{}) (interface{}, error) {
	var err error
	for _, stage := range s {
		if input, err = stage(ctx, input); err != nil {
			return nil, err
		}
	}
	return input, nil
}

type pipelineExecutor struct {
	pipeline Pipeline
}

func (p *pipelineExecutor) Execute(ctx context.Context, input interface{}, _ *execution.Context) (interface{}, error) {
	return p.pipeline.Process(ctx, input)
}

// NewExecutor resolves a supported candidate into an Executor. Resolution
// happens once so that callers never inspect the concrete variant per call.
func NewExecutor(candidate interface{}) (Executor, error) {
	switch actual := candidate.(type) {
	case nil:
		return nil, NewUnsupportedExecutorError(candidate)
	case Executor:
		return actual, nil
	case func(ctx context.Context, input interface{}, wfCtx *execution.Context) (interface{}, error):
		return Func(actual), nil
	case func(ctx context.Context, input interface{}) (interface{}, error):
		return Func(func(ctx context.Context, input interface{}, _ *execution.Context) (interface{}, error) {
			return actual(ctx, input)
		}), nil
	case Pipeline:
		return &pipelineExecutor{pipeline: actual}, nil
	case []Stage:
		return &pipelineExecutor{pipeline: Stages(actual)}, nil
	}
	return nil, NewUnsupportedExecutorError(candidate)
}
