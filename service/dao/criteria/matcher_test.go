package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/sagaflow/service/dao"
)

func TestMatch(t *testing.T) {
	testCases := []struct {
		description string
		value       string
		parameters  []*dao.Parameter
		expect      bool
	}{
		{description: "no parameters", value: "active", expect: true},
		{description: "other parameter", value: "active", parameters: []*dao.Parameter{dao.NewParameter("Name", "x")}, expect: true},
		{description: "single match", value: "active", parameters: []*dao.Parameter{dao.NewParameter("Status", "active")}, expect: true},
		{description: "single mismatch", value: "failed", parameters: []*dao.Parameter{dao.NewParameter("Status", "active")}, expect: false},
		{description: "set match", value: "failed", parameters: []*dao.Parameter{dao.NewParameter("Status", "rolledBack", "failed")}, expect: true},
		{description: "set mismatch", value: "active", parameters: []*dao.Parameter{dao.NewParameter("Status", "rolledBack", "failed")}, expect: false},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, Match("Status", testCase.value, testCase.parameters), testCase.description)
	}
}
