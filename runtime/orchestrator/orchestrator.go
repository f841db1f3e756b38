package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
	"github.com/viant/sagaflow/internal/clock"
	"github.com/viant/sagaflow/metrics"
	"github.com/viant/sagaflow/model/flow"
	"github.com/viant/sagaflow/model/types"
	"github.com/viant/sagaflow/policy"
	"github.com/viant/sagaflow/progress"
	"github.com/viant/sagaflow/runtime/execution"
	"github.com/viant/sagaflow/service/mock"
	"github.com/viant/sagaflow/service/recovery"
	"github.com/viant/sagaflow/service/step"
	"github.com/viant/sagaflow/service/transaction"
	"github.com/viant/sagaflow/tracing"
)

// ErrNilDefinition is returned when an orchestrator is created without a flow
var ErrNilDefinition = errors.New("flow definition is nil")

// Result is the outcome of an execution. It is returned alongside a failure
// too, so that callers can inspect partial state.
type Result struct {
	Output        interface{}
	Context       *execution.Context
	Progress      progress.Counters
	TransactionID string
	Duration      time.Duration
}

// Orchestrator executes a flow definition
type Orchestrator struct {
	definition  *flow.Definition
	steps       *step.Registry
	options     Options
	coordinator *recovery.Coordinator
	manager     *transaction.Manager
	harness     *mock.Harness
	registry    gometrics.Registry
	recorder    *metrics.Recorder
	onProgress  func(progress.Counters)
	logger      logrus.FieldLogger
}

// New creates an orchestrator for definition resolving steps in registry.
// An invalid definition is a programming error and is reported immediately.
func New(definition *flow.Definition, registry *step.Registry, options ...Option) (*Orchestrator, error) {
	if definition == nil {
		return nil, ErrNilDefinition
	}
	ret := &Orchestrator{
		definition: definition,
		steps:      registry,
		logger:     logrus.StandardLogger(),
	}
	if ret.steps == nil {
		ret.steps = step.New()
	}
	for _, opt := range options {
		opt(ret)
	}
	if issues := definition.Validate(); len(issues) > 0 {
		var merged *multierror.Error
		for _, issue := range issues {
			if errors.Is(issue, flow.ErrUnknownElement) {
				return nil, types.NewFlowError(types.KindUnknownElement, "", issue)
			}
			merged = multierror.Append(merged, issue)
		}
		merged.ErrorFormat = types.JoinErrors
		return nil, fmt.Errorf("invalid flow %v: %w", definition.Name, merged)
	}
	if err := (&policy.Config{Mode: ret.options.Continuation}).Validate(); err != nil {
		return nil, err
	}
	if ret.options.Metrics.Enabled {
		ret.recorder = metrics.New(ret.registry, ret.options.Metrics.Tracked...)
	}
	ret.coordinator = recovery.New(
		recovery.WithHandlers(ret.options.OnError),
		recovery.WithRollbacks(ret.options.Rollback),
		recovery.WithPolicy(&policy.Policy{Mode: policy.Normalize(ret.options.Continuation)}),
		recovery.WithLogger(ret.logger),
	)
	return ret, nil
}

// Definition returns the flow definition
func (o *Orchestrator) Definition() *flow.Definition {
	return o.definition
}

// Metrics returns the metrics recorder, nil when metrics are disabled
func (o *Orchestrator) Metrics() *metrics.Recorder {
	return o.recorder
}

// Execute runs the flow with input. The returned error, when not nil, is a
// *types.FlowError.
func (o *Orchestrator) Execute(ctx context.Context, input interface{}, options ...execution.Option) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	started := clock.Now()
	wfCtx := execution.NewContext(options...)
	ctx = execution.WithContext(ctx, wfCtx)
	ctx, tracker := progress.WithNewTracker(ctx, wfCtx.ID, o.definition.Name, o.onProgress)
	ctx, span := tracing.StartSpan(ctx, "flow:"+o.definition.Name, "INTERNAL")
	span.WithAttributes(map[string]string{"execution.id": wfCtx.ID})
	logger := o.logger.WithFields(logrus.Fields{"flow": o.definition.Name, "execution": wfCtx.ID})
	result := &Result{Context: wfCtx}
	o.recorder.Inc(metrics.Executions, 1)

	var tx *transaction.Transaction
	if o.manager != nil {
		var err error
		if tx, err = o.manager.Begin(ctx, transaction.WithMetadata("execution", wfCtx.ID)); err != nil {
			flowErr := o.failure(types.KindStepFailed, "", err, wfCtx)
			tracing.EndSpan(span, flowErr)
			return result, flowErr
		}
		result.TransactionID = tx.ID
		ctx = transaction.WithTransaction(ctx, tx)
	}

	output, err := o.race(ctx, input, wfCtx)
	if err != nil {
		flowErr, ok := types.AsFlowError(err)
		if !ok {
			flowErr = o.failure(types.KindStepFailed, wfCtx.Current(), err, wfCtx)
		}
		if flowErr.Snapshot == nil {
			flowErr.Snapshot = wfCtx.Snapshot()
		}
		if tx != nil {
			o.rollback(context.WithoutCancel(ctx), tx, flowErr, tracker)
		}
		o.recorder.Inc(metrics.Failures, 1)
		logger.WithError(flowErr).Warn("flow failed")
		o.finish(result, tracker, started)
		tracing.EndSpan(span, flowErr)
		return result, flowErr
	}
	if tx != nil {
		if err = o.manager.Commit(ctx, tx.ID); err != nil {
			flowErr := o.failure(types.KindStepFailed, "", err, wfCtx)
			o.finish(result, tracker, started)
			tracing.EndSpan(span, flowErr)
			return result, flowErr
		}
	}
	result.Output = output
	o.finish(result, tracker, started)
	logger.WithField("duration", result.Duration).Debug("flow completed")
	tracing.EndSpan(span, nil)
	return result, nil
}

func (o *Orchestrator) finish(result *Result, tracker *progress.Progress, started time.Time) {
	result.Duration = clock.Since(started)
	result.Progress = tracker.Snapshot()
	o.recorder.Time(metrics.Duration, result.Duration)
}

// race runs the flow, bounded by the configured timeout. Steps already in
// flight when the timeout fires keep running; their outcome is discarded.
func (o *Orchestrator) race(ctx context.Context, input interface{}, wfCtx *execution.Context) (interface{}, error) {
	if o.options.Timeout <= 0 {
		return o.run(ctx, o.definition.Elements, input, wfCtx, true)
	}
	runCtx, cancel := context.WithTimeout(ctx, o.options.Timeout)
	defer cancel()
	type outcome struct {
		output interface{}
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		output, err := o.run(runCtx, o.definition.Elements, input, wfCtx, true)
		done <- outcome{output: output, err: err}
	}()
	select {
	case ret := <-done:
		return ret.output, ret.err
	case <-runCtx.Done():
		cause := fmt.Errorf("flow %v exceeded %v: %w", o.definition.Name, o.options.Timeout, runCtx.Err())
		return nil, o.failure(types.KindTimeout, wfCtx.Current(), cause, wfCtx)
	}
}

func (o *Orchestrator) rollback(ctx context.Context, tx *transaction.Transaction, flowErr *types.FlowError, tracker *progress.Progress) {
	report, err := o.manager.Rollback(ctx, tx.ID)
	flowErr.RollbackAttempted = true
	flowErr.Compensation = report
	o.recorder.Inc(metrics.Rollbacks, 1)
	if report != nil {
		tracker.Update(progress.Delta{Compensated: len(report.Compensated)})
		o.recorder.Inc(metrics.Compensations, int64(len(report.Compensated)))
		if report.HasFailures() {
			o.logger.WithField("transaction", tx.ID).WithError(report.Err()).Warn("operations left uncompensated")
		}
	}
	if err != nil {
		o.logger.WithField("transaction", tx.ID).WithError(err).Warn("transaction rollback failed")
	}
}

func (o *Orchestrator) failure(kind types.Kind, stepName string, cause error, wfCtx *execution.Context) *types.FlowError {
	ret := types.NewFlowError(kind, stepName, cause)
	ret.Snapshot = wfCtx.Snapshot()
	return ret
}
