package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	testCases := []struct {
		description string
		env         map[string]string
		input       string
		expect      string
	}{
		{description: "plain text", input: "just a plain string", expect: "just a plain string"},
		{description: "single reference", env: map[string]string{"SF_FOO": "bar"}, input: "value is ${env.SF_FOO}", expect: "value is bar"},
		{description: "repeated references", env: map[string]string{"SF_A": "1", "SF_B": "2"}, input: "${env.SF_A}-${env.SF_B}-${env.SF_A}", expect: "1-2-1"},
		{description: "unset variable", input: "unset=${env.SF_NOT_SET}-end", expect: "unset=-end"},
		{description: "invalid key keeps prefix", env: map[string]string{"SF_Y": "y"}, input: "start ${env.X and ${env.SF_Y} end", expect: "start ${env.X and y end"},
		{description: "missing brace", input: "tail ${env.SF_OPEN", expect: "tail ${env.SF_OPEN"},
		{description: "empty key", input: "oops ${env.} done", expect: "oops  done"},
	}
	for _, testCase := range testCases {
		for k, v := range testCase.env {
			t.Setenv(k, v)
		}
		assert.Equal(t, testCase.expect, expandEnv(testCase.input), testCase.description)
	}
}
