package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/viant/sagaflow/runtime/execution"
	"github.com/viant/sagaflow/service/compensation"
)

// ErrUnsupportedExecutor is returned when a step cannot be resolved to Executor
var ErrUnsupportedExecutor = errors.New("unsupported executor")

func NewUnsupportedExecutorError(candidate interface{}) error {
	return fmt.Errorf("%w: %T", ErrUnsupportedExecutor, candidate)
}

// Kind classifies flow failures
type Kind string

const (
	KindStepNotFound        Kind = "stepNotFound"
	KindUnknownElement      Kind = "unknownFlowElementType"
	KindConditionEvaluation Kind = "conditionEvaluationFailure"
	KindLoopLimitExceeded   Kind = "loopIterationLimitExceeded"
	KindParallelAggregate   Kind = "parallelAggregateFailure"
	KindExecutorPanic       Kind = "executorPanic"
	KindStepFailed          Kind = "stepFailed"
	KindTimeout             Kind = "timeoutExceeded"
	KindRecoveryFailed      Kind = "recoveryFailed"
	KindRollbackHandler     Kind = "rollbackHandlerFailure"
	KindCompensation        Kind = "compensationFailure"
)

// FlowError is the failure value returned by the orchestrator. It carries the
// offending step, the root cause, a snapshot of the workflow context and
// whether a rollback was attempted.
type FlowError struct {
	Kind              Kind
	Step              string
	Cause             error
	Snapshot          *execution.Snapshot
	RollbackAttempted bool
	// Handled is set when a recovery handler succeeded but the continuation
	// policy aborted the flow.
	Handled bool
	// Failures lists member failures of a parallel group
	Failures  []*FlowError
	Succeeded int
	Failed    int
	// Compensation reports the transaction rollback, when one ran
	Compensation *compensation.Report
}

func (e *FlowError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Step != "" {
		b.WriteString(" at ")
		b.WriteString(e.Step)
	}
	if e.Kind == KindParallelAggregate {
		b.WriteString(fmt.Sprintf(": %d of %d failed", e.Failed, e.Failed+e.Succeeded))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *FlowError) Unwrap() error {
	return e.Cause
}

// NewFlowError creates a flow error
func NewFlowError(kind Kind, step string, cause error) *FlowError {
	return &FlowError{Kind: kind, Step: step, Cause: cause}
}

// NewParallelError aggregates member failures of a parallel group
func NewParallelError(failures []*FlowError, succeeded int) *FlowError {
	var merged *multierror.Error
	for _, failure := range failures {
		merged = multierror.Append(merged, failure)
	}
	if merged != nil {
		merged.ErrorFormat = JoinErrors
	}
	return &FlowError{
		Kind:      KindParallelAggregate,
		Cause:     merged.ErrorOrNil(),
		Failures:  failures,
		Succeeded: succeeded,
		Failed:    len(failures),
	}
}

// JoinErrors formats aggregated errors on a single line
func JoinErrors(errs []error) string {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// AsFlowError extracts a FlowError from err
func AsFlowError(err error) (*FlowError, bool) {
	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		return flowErr, true
	}
	return nil, false
}

// IsKind reports whether err is a FlowError of the given kind
func IsKind(err error, kind Kind) bool {
	if flowErr, ok := AsFlowError(err); ok {
		return flowErr.Kind == kind
	}
	return false
}
