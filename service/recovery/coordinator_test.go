package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/sagaflow/model/types"
	"github.com/viant/sagaflow/policy"
	"github.com/viant/sagaflow/runtime/execution"
)

func newFailure(step string, input interface{}) *Failure {
	return &Failure{Step: step, Input: input, Err: types.NewFlowError(types.KindStepFailed, step, errors.New("declined"))}
}

func TestCoordinator_Recover(t *testing.T) {
	type outcome struct {
		output            interface{}
		kind              types.Kind
		rollbackAttempted bool
		handled           bool
		rollbackCalls     int
		runnerInput       interface{}
	}
	testCases := []struct {
		description string
		handlers    map[string]Strategy
		policy      *policy.Policy
		recorded    interface{}
		expect      outcome
	}{
		{
			description: "no handler rolls back",
			expect:      outcome{kind: types.KindStepFailed, rollbackAttempted: true, rollbackCalls: 1},
		},
		{
			description: "retry by name uses step input without recorded result",
			handlers:    map[string]Strategy{"charge": Retry("chargeBackup")},
			expect:      outcome{output: "backup:order", runnerInput: "order"},
		},
		{
			description: "retry by name uses recorded result",
			handlers:    map[string]Strategy{"charge": Retry("chargeBackup")},
			recorded:    "previous",
			expect:      outcome{output: "backup:previous", runnerInput: "previous"},
		},
		{
			description: "handled continues with last result",
			handlers:    map[string]Strategy{"charge": Handle(func(ctx context.Context, err error, wfCtx *execution.Context) error { return nil })},
			recorded:    "previous",
			expect:      outcome{output: "previous"},
		},
		{
			description: "handled continues with nil",
			handlers:    map[string]Strategy{"charge": Handle(func(ctx context.Context, err error, wfCtx *execution.Context) error { return nil })},
			expect:      outcome{output: nil},
		},
		{
			description: "handled aborts by policy",
			handlers:    map[string]Strategy{"charge": Handle(func(ctx context.Context, err error, wfCtx *execution.Context) error { return nil })},
			policy:      &policy.Policy{Mode: policy.AbortAfterHandled},
			expect:      outcome{kind: types.KindStepFailed, handled: true},
		},
		{
			description: "handler error",
			handlers: map[string]Strategy{"charge": Handle(func(ctx context.Context, err error, wfCtx *execution.Context) error {
				return errors.New("handler down")
			})},
			expect: outcome{kind: types.KindRecoveryFailed, rollbackAttempted: true, rollbackCalls: 1},
		},
		{
			description: "handler panic",
			handlers: map[string]Strategy{"charge": Handle(func(ctx context.Context, err error, wfCtx *execution.Context) error {
				panic("boom")
			})},
			expect: outcome{kind: types.KindRecoveryFailed, rollbackAttempted: true, rollbackCalls: 1},
		},
	}

	for _, testCase := range testCases {
		rollbackCalls := 0
		var runnerInput interface{}
		coordinator := New(
			WithHandlers(testCase.handlers),
			WithPolicy(testCase.policy),
			WithRollbacks(map[string]RollbackFunc{"charge": func(ctx context.Context, err error, wfCtx *execution.Context) error {
				rollbackCalls++
				return errors.New("rollback failed")
			}}),
		)
		wfCtx := execution.NewContext()
		if testCase.recorded != nil {
			wfCtx.SetResult("charge", testCase.recorded)
		}
		runner := func(ctx context.Context, step string, input interface{}) (interface{}, error) {
			runnerInput = input
			return "backup:" + input.(string), nil
		}

		output, err := coordinator.Recover(context.Background(), newFailure("charge", "order"), wfCtx, runner)
		assert.Equal(t, testCase.expect.rollbackCalls, rollbackCalls, testCase.description)
		assert.Equal(t, testCase.expect.runnerInput, runnerInput, testCase.description)
		if testCase.expect.kind == "" {
			require.NoError(t, err, testCase.description)
			assert.Equal(t, testCase.expect.output, output, testCase.description)
			continue
		}
		flowErr, ok := types.AsFlowError(err)
		require.True(t, ok, testCase.description)
		assert.Equal(t, testCase.expect.kind, flowErr.Kind, testCase.description)
		assert.Equal(t, "charge", flowErr.Step, testCase.description)
		assert.Equal(t, testCase.expect.rollbackAttempted, flowErr.RollbackAttempted, testCase.description)
		assert.Equal(t, testCase.expect.handled, flowErr.Handled, testCase.description)
	}
}

func TestCoordinator_PolicyFromContext(t *testing.T) {
	coordinator := New(WithHandlers(map[string]Strategy{
		"charge": Handle(func(ctx context.Context, err error, wfCtx *execution.Context) error { return nil }),
	}))
	ctx := policy.WithPolicy(context.Background(), &policy.Policy{Steps: map[string]string{"charge": policy.AbortAfterHandled}})
	_, err := coordinator.Recover(ctx, newFailure("charge", nil), execution.NewContext(), nil)
	flowErr, ok := types.AsFlowError(err)
	require.True(t, ok)
	assert.True(t, flowErr.Handled)
}

func TestCoordinator_RecoveryFailedCause(t *testing.T) {
	coordinator := New(WithHandlers(map[string]Strategy{
		"charge": Handle(func(ctx context.Context, err error, wfCtx *execution.Context) error { return errors.New("handler down") }),
	}))
	_, err := coordinator.Recover(context.Background(), newFailure("charge", nil), execution.NewContext(), nil)
	assert.EqualError(t, err, "recoveryFailed at charge: handler down; stepFailed at charge: declined")
	var merged *multierror.Error
	require.True(t, errors.As(err, &merged))
	assert.Len(t, merged.Errors, 2)
	assert.True(t, types.IsKind(merged.Errors[1], types.KindStepFailed))
}
