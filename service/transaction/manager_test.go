package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/sagaflow/service/compensation"
	"github.com/viant/sagaflow/service/event"
	"github.com/viant/sagaflow/service/messaging"
)

type fakeClient struct {
	mux     sync.Mutex
	deletes []string
	creates []string
	updates []string
	fail    error
}

func (c *fakeClient) Create(ctx context.Context, target string, payload interface{}) (interface{}, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.creates = append(c.creates, target)
	return payload, c.fail
}

func (c *fakeClient) Update(ctx context.Context, target string, payload interface{}) (interface{}, error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.updates = append(c.updates, target)
	return payload, c.fail
}

func (c *fakeClient) Delete(ctx context.Context, target string) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.deletes = append(c.deletes, target)
	return c.fail
}

type recordingSink struct {
	mux    sync.Mutex
	events []*event.Event[Notification]
}

func (s *recordingSink) Publish(ctx context.Context, e *event.Event[Notification]) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.events = append(s.events, e)
	return nil
}

func respond(value interface{}) Invoke {
	return func(ctx context.Context) (interface{}, error) { return value, nil }
}

func TestManager_BeginCommit(t *testing.T) {
	ctx := context.Background()
	manager := New()
	tx, err := manager.Begin(ctx, WithID("tx-1"), WithLevel(Serializable), WithMetadata("user", "ann"))
	require.NoError(t, err)
	assert.Equal(t, StatusActive, tx.CurrentStatus())
	assert.Equal(t, Serializable, tx.Isolation)
	assert.Equal(t, "ann", tx.Metadata["user"])

	active, err := manager.List(ctx, StatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, manager.Commit(ctx, "tx-1"))
	assert.Equal(t, StatusCommitted, tx.CurrentStatus())
	assert.NotNil(t, tx.EndedAt)

	_, err = manager.Get(ctx, "tx-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, manager.Commit(ctx, "tx-1"), ErrNotFound)
	assert.ErrorIs(t, tx.transition(StatusActive), ErrTerminal)
}

func TestManager_AddOperation(t *testing.T) {
	ctx := context.Background()
	manager := New()
	tx, err := manager.Begin(ctx)
	require.NoError(t, err)

	calls := 0
	invoke := func(ctx context.Context) (interface{}, error) {
		calls++
		_, ok := FromContext(ctx)
		assert.True(t, ok)
		return map[string]interface{}{"id": "42"}, nil
	}
	request := &Request{Name: "createOrder", Type: compensation.OperationCreate, Target: "/orders", Payload: map[string]interface{}{"sku": "a"}}

	first, err := manager.AddOperation(ctx, tx.ID, request, invoke)
	require.NoError(t, err)
	second, err := manager.AddOperation(ctx, tx.ID, &Request{Name: "createOrder", Type: compensation.OperationCreate, Target: "/orders", Payload: map[string]interface{}{"sku": "a"}}, invoke)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Len(t, tx.Ops(), 1)

	_, err = manager.AddOperation(ctx, tx.ID, &Request{Name: "charge", Payload: 10}, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("declined")
	})
	assert.EqualError(t, err, "declined")
	assert.Len(t, tx.Ops(), 1)

	_, err = manager.AddOperation(ctx, tx.ID, &Request{Name: "getOrder", Type: compensation.OperationRead, Payload: 1}, respond("order"))
	require.NoError(t, err)

	ops := tx.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, DefaultKey("createOrder", map[string]interface{}{"sku": "a"}), ops[0].IdempotencyKey)
	require.NotNil(t, ops[0].Compensation)
	assert.Equal(t, "/orders/42", ops[0].Compensation.Inverse.Target)
	assert.Nil(t, ops[1].Compensation)

	_, err = manager.AddOperation(ctx, tx.ID, &Request{}, respond(nil))
	assert.ErrorIs(t, err, ErrEmptyName)
	_, err = manager.AddOperation(ctx, "missing", request, invoke)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_Rollback(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	manager := New(WithResourceClient(client))
	tx, err := manager.Begin(ctx)
	require.NoError(t, err)

	var custom []string
	require.NoError(t, manager.RegisterCompensation(ctx, tx.ID, "reserve", func(ctx context.Context, request, response interface{}) error {
		custom = append(custom, request.(string))
		return nil
	}))

	_, err = manager.AddOperation(ctx, tx.ID, &Request{Name: "createOrder", Type: compensation.OperationCreate, Target: "/orders/{id}"}, respond(map[string]interface{}{"id": "42"}))
	require.NoError(t, err)
	_, err = manager.AddOperation(ctx, tx.ID, &Request{Name: "reserve", Payload: "sku-1"}, respond(true))
	require.NoError(t, err)
	_, err = manager.AddOperation(ctx, tx.ID, &Request{Name: "updateStock", Type: compensation.OperationUpdate, Target: "/stock/1", Payload: map[string]interface{}{"qty": 5}}, respond(nil))
	require.NoError(t, err)
	_, err = manager.AddOperation(ctx, tx.ID, &Request{Name: "notify", Payload: "x"}, respond(nil))
	require.NoError(t, err)

	report, err := manager.Rollback(ctx, tx.ID)
	require.NoError(t, err)
	ops := tx.Ops()
	assert.Equal(t, []string{ops[2].ID, ops[1].ID, ops[0].ID}, report.Compensated)
	assert.Equal(t, []string{ops[3].ID}, report.Skipped)
	assert.False(t, report.HasFailures())
	assert.Equal(t, []string{"/orders/42"}, client.deletes)
	assert.Equal(t, []string{"/stock/1"}, client.updates)
	assert.Equal(t, []string{"sku-1"}, custom)
	assert.Equal(t, StatusRolledBack, tx.CurrentStatus())

	_, err = manager.Rollback(ctx, tx.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_RollbackFailures(t *testing.T) {
	ctx := context.Background()
	manager := New(WithResourceClient(&fakeClient{fail: errors.New("unavailable")}))
	manager.RegisterOverride("audit", func(ctx context.Context, request, response interface{}) error { return nil })
	tx, err := manager.Begin(ctx)
	require.NoError(t, err)

	_, err = manager.AddOperation(ctx, tx.ID, &Request{Name: "createOrder", Type: compensation.OperationCreate, Target: "/orders"}, respond("o-1"))
	require.NoError(t, err)
	_, err = manager.AddOperation(ctx, tx.ID, &Request{Name: "audit"}, respond(nil))
	require.NoError(t, err)

	report, err := manager.Rollback(ctx, tx.ID)
	require.NoError(t, err)
	assert.Len(t, report.Compensated, 1)
	assert.Equal(t, []string{tx.Ops()[0].ID}, report.Uncompensated())
	assert.Equal(t, StatusFailed, tx.CurrentStatus())
	_, err = manager.Get(ctx, tx.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_Notifications(t *testing.T) {
	ctx := context.Background()
	srv, err := event.New(messaging.VendorMemory)
	require.NoError(t, err)
	defer srv.Close()
	publisher, err := event.PublisherOf[Notification](srv)
	require.NoError(t, err)

	received := make(chan Notification, 4)
	require.NoError(t, event.SetListenerOf[Notification](srv, func(e *event.Event[Notification]) {
		received <- e.Data
	}))

	manager := New(WithSink(publisher))
	tx, err := manager.Begin(ctx)
	require.NoError(t, err)
	_, err = manager.Rollback(ctx, tx.ID)
	require.NoError(t, err)

	var actual []NotificationType
	for len(actual) < 2 {
		select {
		case n := <-received:
			assert.Equal(t, tx.ID, n.TransactionID)
			actual = append(actual, n.Type)
		case <-time.After(time.Second):
			t.Fatal("notification not received")
		}
	}
	assert.Equal(t, []NotificationType{NotificationStarted, NotificationRolledBack}, actual)
}

func TestManager_OperationAfterRollback(t *testing.T) {
	ctx := context.Background()
	logger, hook := test.NewNullLogger()
	sink := &recordingSink{}
	client := &fakeClient{}
	manager := New(WithLogger(logger), WithSink(sink), WithResourceClient(client))
	tx, err := manager.Begin(ctx)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	type outcome struct {
		response interface{}
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		response, err := manager.AddOperation(ctx, tx.ID, &Request{Name: "createPayment", Type: compensation.OperationCreate, Target: "/payments"},
			func(ctx context.Context) (interface{}, error) {
				close(started)
				<-release
				return map[string]interface{}{"id": "p1"}, nil
			})
		done <- outcome{response: response, err: err}
	}()
	<-started
	report, err := manager.Rollback(ctx, tx.ID)
	require.NoError(t, err)
	assert.Empty(t, report.Compensated)
	close(release)

	actual := <-done
	assert.Nil(t, actual.response)
	assert.ErrorIs(t, actual.err, ErrOrphaned)
	assert.ErrorIs(t, actual.err, ErrTerminal)
	assert.Empty(t, client.deletes)
	assert.Empty(t, tx.Ops())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "createPayment", entry.Data["name"])

	sink.mux.Lock()
	defer sink.mux.Unlock()
	require.Len(t, sink.events, 3)
	orphaned := sink.events[2].Data
	assert.Equal(t, NotificationOrphaned, orphaned.Type)
	require.NotNil(t, orphaned.Report)
	require.Len(t, orphaned.Report.Failures, 1)
	assert.Equal(t, "createPayment", orphaned.Report.Failures[0].Name)
}

func TestStatus_CanTransition(t *testing.T) {
	testCases := []struct {
		from   Status
		to     Status
		expect bool
	}{
		{from: StatusPending, to: StatusActive, expect: true},
		{from: StatusActive, to: StatusCommitted, expect: true},
		{from: StatusActive, to: StatusRolledBack, expect: true},
		{from: StatusActive, to: StatusFailed, expect: true},
		{from: StatusActive, to: StatusPending, expect: false},
		{from: StatusCommitted, to: StatusRolledBack, expect: false},
		{from: StatusRolledBack, to: StatusActive, expect: false},
		{from: StatusFailed, to: StatusCommitted, expect: false},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, testCase.from.CanTransition(testCase.to), "%v -> %v", testCase.from, testCase.to)
	}
}

func TestDefaultKey(t *testing.T) {
	assert.Equal(t, DefaultKey("charge", map[string]int{"amount": 10}), DefaultKey("charge", map[string]int{"amount": 10}))
	assert.NotEqual(t, DefaultKey("charge", 10), DefaultKey("refund", 10))
	assert.NotEqual(t, DefaultKey("charge", 10), DefaultKey("charge", 11))
	assert.Regexp(t, `^charge:[0-9a-f]{64}$`, DefaultKey("charge", nil))
}
