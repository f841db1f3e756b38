package transaction

import (
	"github.com/sirupsen/logrus"
	"github.com/viant/sagaflow/service/compensation"
	"github.com/viant/sagaflow/service/dao"
)

// Option customises a Manager
type Option func(m *Manager)

// WithStore sets the ledger store
func WithStore(store dao.Service[string, Transaction]) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithResourceClient sets the client used to execute generic inverses
func WithResourceClient(client compensation.ResourceClient) Option {
	return func(m *Manager) {
		m.client = client
	}
}

// WithGenerator sets the compensation generator
func WithGenerator(generator *compensation.Generator) Option {
	return func(m *Manager) {
		m.generator = generator
	}
}

// WithSink sets the lifecycle notification sink
func WithSink(sink Sink) Option {
	return func(m *Manager) {
		m.sink = sink
	}
}

// WithKeyFunc overrides idempotency key derivation
func WithKeyFunc(fn KeyFunc) Option {
	return func(m *Manager) {
		m.keyFunc = fn
	}
}

// WithIsolation sets the default isolation level
func WithIsolation(level IsolationLevel) Option {
	return func(m *Manager) {
		m.isolation = level
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// BeginOption customises a new transaction
type BeginOption func(t *Transaction)

// WithID sets the transaction id
func WithID(id string) BeginOption {
	return func(t *Transaction) {
		t.ID = id
	}
}

// WithMetadata sets a metadata entry
func WithMetadata(key string, value interface{}) BeginOption {
	return func(t *Transaction) {
		t.Metadata[key] = value
	}
}

// WithLevel sets the transaction isolation level
func WithLevel(level IsolationLevel) BeginOption {
	return func(t *Transaction) {
		t.Isolation = level
	}
}
