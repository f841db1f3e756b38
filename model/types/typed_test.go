package types

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/sagaflow/runtime/execution"
)

type order struct {
	ID     string
	Amount int
}

func TestTyped(t *testing.T) {
	executor := Typed(func(ctx context.Context, input order, wfCtx *execution.Context) (int, error) {
		return input.Amount * 2, nil
	})

	actual, err := executor.Execute(context.Background(), order{ID: "1", Amount: 3}, execution.NewContext())
	assert.Nil(t, err)
	assert.Equal(t, 6, actual)

	actual, err = executor.Execute(context.Background(), map[string]interface{}{"ID": "2", "Amount": 5}, execution.NewContext())
	assert.Nil(t, err)
	assert.Equal(t, 10, actual)
}
