package fs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/sagaflow/internal/idgen"
	"github.com/viant/sagaflow/runtime/execution"
	"github.com/viant/sagaflow/service/compensation"
	"github.com/viant/sagaflow/service/transaction"
)

func TestClient_CRUD(t *testing.T) {
	ctx := context.Background()
	client := New("mem://localhost/crud/"+idgen.New(), WithFS(afs.New()))

	created, err := client.Create(ctx, "/orders", map[string]interface{}{"id": "42", "sku": "a"})
	require.NoError(t, err)
	assert.Equal(t, Document{"id": "42", "sku": "a"}, created)

	_, err = client.Create(ctx, "/orders", map[string]interface{}{"id": "42"})
	assert.ErrorIs(t, err, ErrExists)

	generated, err := client.Create(ctx, "/orders", struct {
		SKU string `json:"sku"`
	}{SKU: "b"})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.(Document).ID())

	_, err = client.Update(ctx, "/orders/42", map[string]interface{}{"id": "42", "sku": "c"})
	require.NoError(t, err)
	doc, err := client.Get(ctx, "/orders/42")
	require.NoError(t, err)
	assert.Equal(t, "c", doc["sku"])

	require.NoError(t, client.Delete(ctx, "/orders/42"))
	_, err = client.Get(ctx, "/orders/42")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, client.Delete(ctx, "/orders/42"), ErrNotFound)
	_, err = client.Update(ctx, "/orders/42", map[string]interface{}{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.Create(ctx, "/orders", "scalar")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestClient_Compensation(t *testing.T) {
	testCases := []struct {
		description string
		operation   compensation.OperationType
		target      string
		seed        map[string]interface{}
		run         func(client *Client) func(ctx context.Context) (interface{}, error)
		verify      func(t *testing.T, client *Client)
	}{
		{
			description: "created document is deleted",
			operation:   compensation.OperationCreate,
			target:      "/orders",
			run: func(client *Client) func(ctx context.Context) (interface{}, error) {
				return func(ctx context.Context) (interface{}, error) {
					return client.Creator("/orders").Execute(ctx, map[string]interface{}{"id": "7", "sku": "a"}, execution.NewContext())
				}
			},
			verify: func(t *testing.T, client *Client) {
				_, err := client.Get(context.Background(), "/orders/7")
				assert.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			description: "deleted document is recreated",
			operation:   compensation.OperationDelete,
			target:      "/orders/{id}",
			seed:        map[string]interface{}{"id": "9", "sku": "z"},
			run: func(client *Client) func(ctx context.Context) (interface{}, error) {
				return func(ctx context.Context) (interface{}, error) {
					return client.Deleter("/orders").Execute(ctx, "9", execution.NewContext())
				}
			},
			verify: func(t *testing.T, client *Client) {
				doc, err := client.Get(context.Background(), "/orders/9")
				require.NoError(t, err)
				assert.Equal(t, "z", doc["sku"])
			},
		},
	}
	for _, testCase := range testCases {
		ctx := context.Background()
		client := New("mem://localhost/saga/"+idgen.New(), WithFS(afs.New()))
		if testCase.seed != nil {
			_, err := client.Create(ctx, "/orders", testCase.seed)
			require.NoError(t, err, testCase.description)
		}
		manager := transaction.New(transaction.WithResourceClient(client))
		tx, err := manager.Begin(ctx)
		require.NoError(t, err, testCase.description)
		_, err = manager.AddOperation(ctx, tx.ID, &transaction.Request{
			Name:    "op",
			Type:    testCase.operation,
			Target:  testCase.target,
			Payload: testCase.description,
		}, testCase.run(client))
		require.NoError(t, err, testCase.description)

		report, err := manager.Rollback(ctx, tx.ID)
		require.NoError(t, err, testCase.description)
		assert.Len(t, report.Compensated, 1, testCase.description)
		assert.False(t, report.HasFailures(), testCase.description)
		testCase.verify(t, client)
	}
}
