package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/viant/sagaflow/internal/clock"
	"github.com/viant/sagaflow/internal/idgen"
	"github.com/viant/sagaflow/service/compensation"
	"github.com/viant/sagaflow/service/dao"
	"github.com/viant/sagaflow/service/dao/criteria"
	"github.com/viant/sagaflow/service/dao/memory"
	"github.com/viant/sagaflow/service/event"
)

// Request describes an operation submitted to AddOperation
type Request struct {
	Name    string
	Type    compensation.OperationType
	Target  string
	Payload interface{}
	// IdempotencyKey overrides the derived key when set
	IdempotencyKey string
	// Compensation overrides generic derivation for this operation
	Compensation compensation.Func
}

// Invoke performs the operation
type Invoke func(ctx context.Context) (interface{}, error)

// Manager manages saga transactions
type Manager struct {
	store     dao.Service[string, Transaction]
	generator *compensation.Generator
	client    compensation.ResourceClient
	executor  *compensation.Executor
	sink      Sink
	keyFunc   KeyFunc
	isolation IsolationLevel
	logger    logrus.FieldLogger
}

// New creates a manager backed by an in-memory store unless WithStore is used
func New(options ...Option) *Manager {
	ret := &Manager{
		keyFunc:   DefaultKey,
		isolation: ReadCommitted,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.store == nil {
		ret.store = NewMemoryStore()
	}
	if ret.generator == nil {
		ret.generator = compensation.NewGenerator()
	}
	ret.executor = compensation.NewExecutor(
		compensation.WithResourceClient(ret.client),
		compensation.WithLogger(ret.logger),
	)
	return ret
}

// NewMemoryStore returns an in-memory ledger store filterable by Status
func NewMemoryStore() *memory.Store[string, Transaction] {
	return memory.New[string, Transaction](
		func(t *Transaction) string { return t.ID },
		memory.WithFilter[string, Transaction](func(t *Transaction, parameters []*dao.Parameter) bool {
			return criteria.Match("Status", string(t.CurrentStatus()), parameters)
		}),
	)
}

// Generator returns the compensation generator
func (m *Manager) Generator() *compensation.Generator {
	return m.generator
}

// Begin starts an active transaction
func (m *Manager) Begin(ctx context.Context, options ...BeginOption) (*Transaction, error) {
	tx := &Transaction{
		ID:        idgen.Sortable(),
		Isolation: m.isolation,
		StartedAt: clock.Now(),
		Status:    StatusPending,
		Metadata:  map[string]interface{}{},
		overrides: map[string]compensation.Func{},
		keys:      map[string]*Operation{},
	}
	for _, opt := range options {
		opt(tx)
	}
	if err := tx.transition(StatusActive); err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	m.logger.WithField("transaction", tx.ID).Debug("transaction started")
	m.notify(ctx, tx, NotificationStarted, nil)
	return tx, nil
}

// Get returns an unfinished transaction
func (m *Manager) Get(ctx context.Context, id string) (*Transaction, error) {
	tx, err := m.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, id)
		}
		return nil, err
	}
	return tx, nil
}

// List returns unfinished transactions, optionally filtered by status
func (m *Manager) List(ctx context.Context, statuses ...Status) ([]*Transaction, error) {
	var parameters []*dao.Parameter
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, status := range statuses {
			values[i] = string(status)
		}
		parameters = append(parameters, &dao.Parameter{Name: "Status", Value: values})
	}
	return m.store.List(ctx, parameters...)
}

// AddOperation executes invoke and records it in the ledger. A request
// whose idempotency key was already recorded in the transaction returns the
// cached response without calling invoke. Failed invocations are not
// recorded.
func (m *Manager) AddOperation(ctx context.Context, txID string, request *Request, invoke Invoke) (interface{}, error) {
	if request == nil || request.Name == "" {
		return nil, ErrEmptyName
	}
	tx, err := m.Get(ctx, txID)
	if err != nil {
		return nil, err
	}
	if status := tx.CurrentStatus(); status.IsTerminal() {
		return nil, fmt.Errorf("%w: %v is %v", ErrTerminal, txID, status)
	}
	key := request.IdempotencyKey
	if key == "" {
		key = m.keyFunc(request.Name, request.Payload)
	}
	if cached, ok := tx.cached(key); ok {
		m.logger.WithFields(logrus.Fields{"transaction": txID, "operation": cached.ID, "name": request.Name}).
			Debug("idempotent operation replayed from ledger")
		return cached.Response, nil
	}
	response, err := invoke(WithTransaction(ctx, tx))
	if err != nil {
		return nil, err
	}
	operationType := request.Type
	if operationType == "" {
		operationType = compensation.OperationCustom
	}
	override := request.Compensation
	if override == nil {
		override = tx.Override(request.Name)
	}
	op := &Operation{
		ID:             idgen.Sortable(),
		Type:           operationType,
		Name:           request.Name,
		Target:         request.Target,
		Request:        request.Payload,
		Response:       response,
		Timestamp:      clock.Now(),
		IdempotencyKey: key,
	}
	op.Compensation = m.generator.Derive(&compensation.Source{
		Name:     op.Name,
		Type:     op.Type,
		Target:   op.Target,
		Request:  op.Request,
		Response: op.Response,
	}, override)
	if err = tx.append(op); err != nil {
		return nil, m.orphaned(ctx, tx, op, err)
	}
	return response, nil
}

// orphaned reports an operation whose side effect happened after the
// transaction reached a terminal state, e.g. a step still in flight when a
// timeout rolled the transaction back.
func (m *Manager) orphaned(ctx context.Context, tx *Transaction, op *Operation, cause error) error {
	err := fmt.Errorf("%w: %v (%v): %w", ErrOrphaned, op.Name, op.ID, cause)
	m.logger.WithFields(logrus.Fields{
		"transaction": tx.ID,
		"operation":   op.ID,
		"name":        op.Name,
		"target":      op.Target,
	}).Warn("operation completed after transaction finished, not compensated")
	m.notify(ctx, tx, NotificationOrphaned, &compensation.Report{
		TransactionID: tx.ID,
		Failures: []*compensation.Failure{{
			OperationID: op.ID,
			Name:        op.Name,
			Err:         err,
			Message:     err.Error(),
		}},
	})
	return err
}

// RegisterCompensation registers a compensation used for subsequent
// operations named operationName within the transaction.
func (m *Manager) RegisterCompensation(ctx context.Context, txID, operationName string, fn compensation.Func) error {
	if operationName == "" {
		return ErrEmptyName
	}
	tx, err := m.Get(ctx, txID)
	if err != nil {
		return err
	}
	return tx.setOverride(operationName, fn)
}

// RegisterOverride registers a compensation for every transaction
func (m *Manager) RegisterOverride(operationName string, fn compensation.Func) {
	m.generator.Register(operationName, fn)
}

// Commit commits and clears the transaction
func (m *Manager) Commit(ctx context.Context, txID string) error {
	tx, err := m.Get(ctx, txID)
	if err != nil {
		return err
	}
	if err = tx.transition(StatusCommitted); err != nil {
		return err
	}
	if err = m.store.Delete(ctx, txID); err != nil {
		return err
	}
	m.logger.WithField("transaction", txID).Debug("transaction committed")
	m.notify(ctx, tx, NotificationCommitted, nil)
	return nil
}

// Rollback compensates recorded operations in reverse order and clears the
// transaction regardless of individual compensation outcomes. The status is
// rolledBack when every compensation succeeded, failed otherwise; the
// report lists what could not be compensated.
func (m *Manager) Rollback(ctx context.Context, txID string) (*compensation.Report, error) {
	tx, err := m.Get(ctx, txID)
	if err != nil {
		return nil, err
	}
	if status := tx.CurrentStatus(); status.IsTerminal() {
		return nil, fmt.Errorf("%w: %v is %v", ErrTerminal, txID, status)
	}
	ops := tx.Ops()
	entries := make([]*compensation.Entry, 0, len(ops))
	for _, op := range ops {
		entries = append(entries, &compensation.Entry{
			OperationID: op.ID,
			Name:        op.Name,
			Request:     op.Request,
			Response:    op.Response,
			Descriptor:  op.Compensation,
		})
	}
	report := m.executor.Rollback(ctx, txID, entries)
	next, notification := StatusRolledBack, NotificationRolledBack
	if report.HasFailures() {
		next, notification = StatusFailed, NotificationFailed
	}
	transitionErr := tx.transition(next)
	if err = m.store.Delete(ctx, txID); err != nil {
		return report, err
	}
	if transitionErr != nil {
		return report, transitionErr
	}
	m.logger.WithFields(logrus.Fields{
		"transaction":   txID,
		"compensated":   len(report.Compensated),
		"uncompensated": len(report.Failures),
	}).Info("transaction rolled back")
	m.notify(ctx, tx, notification, report)
	return report, nil
}

func (m *Manager) notify(ctx context.Context, tx *Transaction, notificationType NotificationType, report *compensation.Report) {
	if m.sink == nil {
		return
	}
	anEvent := event.NewEvent(string(notificationType), Notification{
		Type:          notificationType,
		TransactionID: tx.ID,
		Status:        tx.CurrentStatus(),
		Operations:    len(tx.Ops()),
		Report:        report,
	})
	anEvent.Source = "transaction"
	if err := m.sink.Publish(ctx, anEvent); err != nil {
		m.logger.WithField("transaction", tx.ID).WithError(err).Warn("failed to publish transaction notification")
	}
}
