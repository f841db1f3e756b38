package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	type customer struct {
		Name string `json:"name"`
		Tier int
	}
	variables := map[string]interface{}{
		"iteration": 2,
		"metadata":  map[string]interface{}{"vip": true, "region": "us"},
		"results": map[string]interface{}{
			"count":    float64(4),
			"items":    []interface{}{"a", "b"},
			"customer": &customer{Name: "ann", Tier: 3},
		},
	}
	testCases := []struct {
		description string
		expr        string
		expect      interface{}
		expectErr   bool
	}{
		{description: "selector", expr: "${metadata.vip}", expect: true},
		{description: "missing selector", expr: "${metadata.missing}", expect: nil},
		{description: "comparison", expr: "${iteration < 3}", expect: true},
		{description: "mixed wrappers", expr: "${results.count} >= 4 && ${metadata.region} == \"us\"", expect: true},
		{description: "arithmetic", expr: "${iteration * 2 + 1}", expect: float64(5)},
		{description: "len", expr: "${len(results.items) == 2}", expect: true},
		{description: "index", expr: "${results.items[1]}", expect: "b"},
		{description: "string key", expr: `${metadata["region"]}`, expect: "us"},
		{description: "struct json tag", expr: "${results.customer.name}", expect: "ann"},
		{description: "struct field", expr: "${results.customer.Tier > 2}", expect: true},
		{description: "negation", expr: "${!metadata.vip}", expect: false},
		{description: "or short circuit", expr: "${metadata.vip || 1/0}", expect: true},
		{description: "string concat", expr: `${"id-" + metadata.region}`, expect: "id-us"},
		{description: "syntax error", expr: "${iteration <}", expectErr: true},
		{description: "empty", expr: "", expectErr: true},
		{description: "division by zero", expr: "${1 / 0}", expectErr: true},
	}
	for _, testCase := range testCases {
		actual, err := Evaluate(testCase.expr, variables)
		if testCase.expectErr {
			assert.ErrorIs(t, err, ErrInvalidExpression, testCase.description)
			continue
		}
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.EqualValues(t, testCase.expect, actual, testCase.description)
	}
}

func TestTruthy(t *testing.T) {
	testCases := []struct {
		value  interface{}
		expect bool
	}{
		{value: nil, expect: false},
		{value: true, expect: true},
		{value: 0, expect: false},
		{value: 1.5, expect: true},
		{value: "", expect: false},
		{value: "false", expect: false},
		{value: "yes", expect: true},
		{value: []int{}, expect: false},
		{value: map[string]int{"a": 1}, expect: true},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, Truthy(testCase.value), "%v", testCase.value)
	}
}
