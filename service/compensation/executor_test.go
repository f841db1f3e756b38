package compensation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type call struct {
	method  string
	target  string
	payload interface{}
}

type recordingClient struct {
	mux   sync.Mutex
	calls []call
	fail  map[string]error
}

func (c *recordingClient) record(method, target string, payload interface{}) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.calls = append(c.calls, call{method: method, target: target, payload: payload})
	return c.fail[target]
}

func (c *recordingClient) Create(ctx context.Context, target string, payload interface{}) (interface{}, error) {
	return payload, c.record("create", target, payload)
}

func (c *recordingClient) Update(ctx context.Context, target string, payload interface{}) (interface{}, error) {
	return payload, c.record("update", target, payload)
}

func (c *recordingClient) Delete(ctx context.Context, target string) error {
	return c.record("delete", target, nil)
}

func TestExecutor_Rollback(t *testing.T) {
	generator := NewGenerator()
	var order []string
	custom := func(name string, err error) Func {
		return func(ctx context.Context, request, response interface{}) error {
			order = append(order, name)
			return err
		}
	}
	client := &recordingClient{fail: map[string]error{"/payments/p1": errors.New("gateway down")}}
	entries := []*Entry{
		{OperationID: "1", Name: "createOrder", Descriptor: generator.Derive(&Source{Name: "createOrder", Type: OperationCreate, Target: "/orders", Response: map[string]interface{}{"id": "o1"}}, nil)},
		{OperationID: "2", Name: "reserve", Descriptor: generator.Derive(&Source{Name: "reserve", Type: OperationCustom}, custom("reserve", nil))},
		{OperationID: "3", Name: "readStock"},
		{OperationID: "4", Name: "charge", Descriptor: generator.Derive(&Source{Name: "charge", Type: OperationCreate, Target: "/payments", Response: map[string]interface{}{"id": "p1"}}, nil)},
		{OperationID: "5", Name: "notify", Descriptor: generator.Derive(&Source{Name: "notify", Type: OperationCustom}, custom("notify", errors.New("smtp")))},
	}

	executor := NewExecutor(WithResourceClient(client))
	report := executor.Rollback(context.Background(), "tx1", entries)

	assert.Equal(t, "tx1", report.TransactionID)
	assert.Equal(t, []string{"2", "1"}, report.Compensated)
	assert.Equal(t, []string{"3"}, report.Skipped)
	assert.Equal(t, []string{"5", "4"}, report.Uncompensated())
	assert.Equal(t, []string{"notify", "reserve"}, order)
	assert.Equal(t, []call{{method: "delete", target: "/payments/p1"}, {method: "delete", target: "/orders/o1"}}, client.calls)
	require.Error(t, report.Err())
	assert.True(t, errors.Is(report.Failures[0].Err, ErrCompensation))
}

func TestExecutor_RollbackCreateWithoutIdentifier(t *testing.T) {
	generator := NewGenerator()
	client := &recordingClient{}
	entries := []*Entry{
		{OperationID: "1", Name: "createOrder", Descriptor: generator.Derive(&Source{Name: "createOrder", Type: OperationCreate, Target: "/orders", Response: "o1"}, nil)},
		{OperationID: "2", Name: "createPayment", Descriptor: generator.Derive(&Source{Name: "createPayment", Type: OperationCreate, Target: "/payments"}, nil)},
	}
	report := NewExecutor(WithResourceClient(client)).Rollback(context.Background(), "tx1", entries)

	assert.Equal(t, []string{"1"}, report.Compensated)
	assert.Equal(t, []string{"2"}, report.Uncompensated())
	assert.ErrorIs(t, report.Failures[0].Err, ErrNoIdentifier)
	assert.Equal(t, []call{{method: "delete", target: "/orders/o1"}}, client.calls)
}

func TestExecutor_Compensate(t *testing.T) {
	testCases := []struct {
		description string
		client      ResourceClient
		entry       *Entry
		expectErr   error
	}{
		{
			description: "generic inverse without client",
			entry:       &Entry{Name: "createOrder", Descriptor: &Descriptor{Strategy: StrategyGenericInverse, Inverse: &Action{Method: MethodDelete, Target: "/orders/1"}}},
			expectErr:   ErrNoResourceClient,
		},
		{
			description: "create without identifier",
			client:      &recordingClient{},
			entry:       &Entry{Name: "createPayment", Descriptor: &Descriptor{Strategy: StrategyGenericInverse, Target: "/payments"}},
			expectErr:   ErrNoIdentifier,
		},
		{
			description: "panicking custom compensation",
			entry: &Entry{Name: "boom", Descriptor: &Descriptor{Strategy: StrategyCustom, Custom: func(ctx context.Context, request, response interface{}) error {
				panic("boom")
			}}},
			expectErr: ErrCompensation,
		},
		{
			description: "update inverse",
			client:      &recordingClient{},
			entry:       &Entry{Name: "updateOrder", Descriptor: &Descriptor{Strategy: StrategyGenericInverse, Inverse: &Action{Method: MethodUpdate, Target: "/orders/1", Payload: "v1"}}},
		},
	}
	for _, testCase := range testCases {
		executor := NewExecutor(WithResourceClient(testCase.client))
		err := executor.Compensate(context.Background(), testCase.entry)
		if testCase.expectErr == nil {
			assert.NoError(t, err, testCase.description)
			continue
		}
		assert.ErrorIs(t, err, testCase.expectErr, testCase.description)
	}
}

func TestExecutor_RollbackReverseOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, 20).Draw(t, "count")
		var replayed []string
		var entries []*Entry
		var failing []string
		for i := 0; i < count; i++ {
			id := fmt.Sprintf("op-%d", i)
			var err error
			if rapid.Bool().Draw(t, "fail-"+id) {
				err = errors.New("failed " + id)
				failing = append([]string{id}, failing...)
			}
			opErr := err
			entries = append(entries, &Entry{OperationID: id, Name: id, Descriptor: &Descriptor{
				Strategy: StrategyCustom,
				Custom: func(ctx context.Context, request, response interface{}) error {
					replayed = append(replayed, id)
					return opErr
				},
			}})
		}
		report := NewExecutor().Rollback(context.Background(), "tx", entries)
		if len(replayed) != count {
			t.Fatalf("expected %d compensations, got %d", count, len(replayed))
		}
		for i, id := range replayed {
			if expect := fmt.Sprintf("op-%d", count-1-i); id != expect {
				t.Fatalf("position %d: expected %s, got %s", i, expect, id)
			}
		}
		if len(report.Compensated)+len(report.Failures) != count {
			t.Fatalf("report does not account for every operation")
		}
		uncompensated := report.Uncompensated()
		if len(uncompensated) != len(failing) {
			t.Fatalf("expected %d failures, got %d", len(failing), len(uncompensated))
		}
		for i := range failing {
			if uncompensated[i] != failing[i] {
				t.Fatalf("failure %d: expected %s, got %s", i, failing[i], uncompensated[i])
			}
		}
	})
}
