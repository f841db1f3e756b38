package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_ModeFor(t *testing.T) {
	testCases := []struct {
		description string
		policy      *Policy
		step        string
		expect      string
	}{
		{description: "nil policy", step: "charge", expect: ContinueWithLastResult},
		{description: "empty mode", policy: &Policy{}, step: "charge", expect: ContinueWithLastResult},
		{description: "abort", policy: &Policy{Mode: AbortAfterHandled}, step: "charge", expect: AbortAfterHandled},
		{description: "alias", policy: &Policy{Mode: "abort"}, step: "charge", expect: AbortAfterHandled},
		{description: "step override", policy: &Policy{Mode: AbortAfterHandled, Steps: map[string]string{"charge": "continue"}}, step: "charge", expect: ContinueWithLastResult},
		{description: "other step", policy: &Policy{Mode: AbortAfterHandled, Steps: map[string]string{"charge": "continue"}}, step: "ship", expect: AbortAfterHandled},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, testCase.policy.ModeFor(testCase.step), testCase.description)
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, (&Config{Mode: "continue"}).Validate())
	assert.NoError(t, (*Config)(nil).Validate())
	assert.Error(t, (&Config{Mode: "skip"}).Validate())
	assert.Error(t, (&Config{Steps: map[string]string{"a": "retry"}}).Validate())

	p := FromConfig(&Config{Mode: "Abort", Steps: map[string]string{"a": "continue"}})
	assert.True(t, p.Aborts("b"))
	assert.False(t, p.Aborts("a"))
	assert.Equal(t, &Config{Mode: AbortAfterHandled, Steps: map[string]string{"a": ContinueWithLastResult}}, ToConfig(p))
}

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	p := &Policy{Mode: AbortAfterHandled}
	assert.Same(t, p, FromContext(WithPolicy(context.Background(), p)))
}
