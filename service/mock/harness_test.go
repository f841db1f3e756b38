package mock

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/sagaflow/runtime/execution"
)

func TestHarness_Execute(t *testing.T) {
	declined := errors.New("card declined")
	testCases := []struct {
		description string
		behavior    *Behavior
		input       interface{}
		expect      interface{}
		expectErr   error
	}{
		{description: "pass through", input: 1, expect: 1},
		{description: "success value", behavior: &Behavior{Success: "ok"}, input: 1, expect: "ok"},
		{description: "success without value", behavior: &Behavior{}, input: 2, expect: 2},
		{description: "failure", behavior: &Behavior{Failure: declined, Probability: Probability(0)}, expectErr: declined},
		{description: "generic failure", behavior: &Behavior{Probability: Probability(0)}, expectErr: ErrMockFailure},
		{description: "failure ignored with full probability", behavior: &Behavior{Success: "ok", Failure: declined}, expect: "ok"},
	}
	for _, testCase := range testCases {
		config := Config{}
		if testCase.behavior != nil {
			config["step"] = testCase.behavior
		}
		harness := New(config, WithSeed(1))
		output, err := harness.Executor("step").Execute(context.Background(), testCase.input, execution.NewContext())
		if testCase.expectErr != nil {
			assert.ErrorIs(t, err, testCase.expectErr, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expect, output, testCase.description)
		assert.Equal(t, 1, harness.Calls("step"), testCase.description)
	}
}

func TestHarness_Seeded(t *testing.T) {
	config := Config{"flaky": {Success: "ok", Probability: Probability(0.5)}}
	outcomes := func() []bool {
		harness := New(config, WithSeed(42))
		var ret []bool
		for i := 0; i < 20; i++ {
			_, err := harness.Execute(context.Background(), "flaky", nil)
			ret = append(ret, err == nil)
		}
		return ret
	}
	assert.Equal(t, outcomes(), outcomes())
}

func TestHarness_Delay(t *testing.T) {
	harness := New(Config{"slow": {Delay: time.Second}})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := harness.Execute(ctx, "slow", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	harness = New(Config{"quick": {Delay: time.Millisecond, Success: 1}})
	started := time.Now()
	output, err := harness.Execute(context.Background(), "quick", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, output)
	assert.GreaterOrEqual(t, time.Since(started), time.Millisecond)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	URL := "mem://localhost/sagaflow/mocks.yaml"
	require.NoError(t, fs.Upload(ctx, URL, file.DefaultFileOsMode, strings.NewReader(`
charge:
  failure: card declined
  probability: 0
ship:
  delay: 50ms
  success:
    trackingId: T1
notify:
  delay: 5
`)))
	config, err := Load(ctx, fs, URL)
	require.NoError(t, err)
	require.Len(t, config, 3)
	assert.EqualError(t, config["charge"].Failure, "card declined")
	assert.Equal(t, 0.0, config["charge"].SuccessProbability())
	assert.Equal(t, 50*time.Millisecond, config["ship"].Delay)
	assert.Equal(t, map[string]interface{}{"trackingId": "T1"}, config["ship"].Success)
	assert.Equal(t, 5*time.Millisecond, config["notify"].Delay)

	_, err = Parse([]byte("charge:\n  probability: 2\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("charge:\n  delay: soon\n"))
	assert.Error(t, err)
}
