package diagram

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/sagaflow/model/flow"
	"github.com/viant/sagaflow/runtime/execution"
)

func orderFlow() *flow.Definition {
	return flow.New("order",
		flow.Step("validate"),
		flow.Parallel("emailA", "emailB"),
		flow.IfExpr("${metadata.vip}", flow.Step("expressShip")).Otherwise(flow.Step("standardShip")),
		flow.Times(3, flow.Step("tick")),
		flow.WhileExpr("${iteration < 2}", flow.Step("poll"), flow.Parallel("audit", "archive")).WithMaxIterations(5),
	)
}

func TestExport_Golden(t *testing.T) {
	diagram := Export(orderFlow())
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	encoded, err := diagram.JSON()
	require.NoError(t, err)
	g.Assert(t, "order_json", encoded)
	g.Assert(t, "order_text", []byte(diagram.Text()))
}

func TestExport(t *testing.T) {
	always := func(ctx context.Context, wfCtx *execution.Context) (bool, error) { return true, nil }
	testCases := []struct {
		description  string
		definition   *flow.Definition
		expectFlow   string
		expectSteps  []*Step
		expectDepend []*Dependency
	}{
		{
			description: "sequence",
			definition:  flow.New("seq", flow.Step("validate"), flow.Step("charge"), flow.Step("ship")),
			expectFlow:  "validate -> charge -> ship",
			expectSteps: []*Step{
				{Name: "validate", Kind: flow.KindSequential},
				{Name: "charge", Kind: flow.KindSequential},
				{Name: "ship", Kind: flow.KindSequential},
			},
			expectDepend: []*Dependency{
				{Step: "validate"},
				{Step: "charge", DependsOn: []string{"validate"}},
				{Step: "ship", DependsOn: []string{"charge"}},
			},
		},
		{
			description: "repeated step listed once",
			definition:  flow.New("again", flow.Step("a"), flow.Step("b"), flow.Step("a")),
			expectFlow:  "a -> b -> a",
			expectSteps: []*Step{
				{Name: "a", Kind: flow.KindSequential},
				{Name: "b", Kind: flow.KindSequential},
			},
			expectDepend: []*Dependency{
				{Step: "a"},
				{Step: "b", DependsOn: []string{"a"}},
			},
		},
		{
			description: "predicate condition without else",
			definition:  flow.New("cond", flow.If(always, flow.Step("a"))),
			expectFlow:  "if(func) {a}",
			expectSteps: []*Step{{Name: "a", Kind: flow.KindConditional}},
			expectDepend: []*Dependency{
				{Step: "a"},
			},
		},
		{
			description:  "empty definition",
			definition:   flow.New("empty"),
			expectSteps:  []*Step{},
			expectDepend: []*Dependency{},
		},
	}
	for _, testCase := range testCases {
		diagram := Export(testCase.definition)
		assert.Equal(t, testCase.definition.Name, diagram.Name, testCase.description)
		assert.Equal(t, testCase.expectFlow, diagram.Flow, testCase.description)
		assert.Equal(t, testCase.expectSteps, diagram.Steps, testCase.description)
		assert.Equal(t, testCase.expectDepend, diagram.Dependencies, testCase.description)
	}
	assert.Equal(t, &Diagram{Steps: []*Step{}, Dependencies: []*Dependency{}}, Export(nil))
}
