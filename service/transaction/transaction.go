package transaction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/sagaflow/internal/clock"
	"github.com/viant/sagaflow/service/compensation"
)

// Operation is an append-only ledger entry
type Operation struct {
	ID             string                     `json:"id"`
	Type           compensation.OperationType `json:"type"`
	Name           string                     `json:"name"`
	Target         string                     `json:"target,omitempty"`
	Request        interface{}                `json:"request,omitempty"`
	Response       interface{}                `json:"response,omitempty"`
	Timestamp      time.Time                  `json:"timestamp"`
	IdempotencyKey string                     `json:"idempotencyKey"`
	Compensation   *compensation.Descriptor   `json:"compensation,omitempty"`
}

// Transaction is a saga ledger
type Transaction struct {
	ID         string                 `json:"id"`
	Isolation  IsolationLevel         `json:"isolation"`
	StartedAt  time.Time              `json:"startedAt"`
	EndedAt    *time.Time             `json:"endedAt,omitempty"`
	Status     Status                 `json:"status"`
	Operations []*Operation           `json:"operations,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`

	overrides map[string]compensation.Func
	keys      map[string]*Operation
	mux       sync.RWMutex
}

// CurrentStatus returns the status
func (t *Transaction) CurrentStatus() Status {
	t.mux.RLock()
	defer t.mux.RUnlock()
	return t.Status
}

// Ops returns a copy of the recorded operations in execution order
func (t *Transaction) Ops() []*Operation {
	t.mux.RLock()
	defer t.mux.RUnlock()
	return append([]*Operation{}, t.Operations...)
}

// Override returns a compensation registered on this transaction
func (t *Transaction) Override(name string) compensation.Func {
	t.mux.RLock()
	defer t.mux.RUnlock()
	return t.overrides[name]
}

func (t *Transaction) cached(key string) (*Operation, bool) {
	t.mux.RLock()
	defer t.mux.RUnlock()
	op, ok := t.keys[key]
	return op, ok
}

func (t *Transaction) append(op *Operation) error {
	t.mux.Lock()
	defer t.mux.Unlock()
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: %v is %v", ErrTerminal, t.ID, t.Status)
	}
	t.Operations = append(t.Operations, op)
	t.keys[op.IdempotencyKey] = op
	return nil
}

func (t *Transaction) setOverride(name string, fn compensation.Func) error {
	t.mux.Lock()
	defer t.mux.Unlock()
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: %v is %v", ErrTerminal, t.ID, t.Status)
	}
	t.overrides[name] = fn
	return nil
}

func (t *Transaction) transition(next Status) error {
	t.mux.Lock()
	defer t.mux.Unlock()
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: %v is %v", ErrTerminal, t.ID, t.Status)
	}
	if !t.Status.CanTransition(next) {
		return fmt.Errorf("%w: %v -> %v", ErrInvalidTransition, t.Status, next)
	}
	t.Status = next
	if next.IsTerminal() {
		now := clock.Now()
		t.EndedAt = &now
	}
	return nil
}

type contextKey struct{}

// WithTransaction returns a context carrying tx
func WithTransaction(ctx context.Context, tx *Transaction) context.Context {
	return context.WithValue(ctx, contextKey{}, tx)
}

// FromContext returns the transaction carried by ctx
func FromContext(ctx context.Context) (*Transaction, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(contextKey{}).(*Transaction)
	return tx, ok && tx != nil
}
