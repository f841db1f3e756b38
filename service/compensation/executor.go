package compensation

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/viant/sagaflow/tracing"
)

// ResourceClient performs resource calls used by generic inverses. It is the
// boundary to the remote/resource layer.
type ResourceClient interface {
	Create(ctx context.Context, target string, payload interface{}) (interface{}, error)
	Update(ctx context.Context, target string, payload interface{}) (interface{}, error)
	Delete(ctx context.Context, target string) error
}

// Entry is one ledger operation handed to the rollback executor
type Entry struct {
	OperationID string
	Name        string
	Request     interface{}
	Response    interface{}
	Descriptor  *Descriptor
}

// Executor replays compensations
type Executor struct {
	client ResourceClient
	logger logrus.FieldLogger
}

// Option customises the executor
type Option func(e *Executor)

// WithResourceClient sets the client used for generic inverses
func WithResourceClient(client ResourceClient) Option {
	return func(e *Executor) {
		e.client = client
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor creates a rollback executor
func NewExecutor(options ...Option) *Executor {
	ret := &Executor{logger: logrus.StandardLogger()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Rollback compensates entries in strict reverse order. Failures are logged,
// collected in the report and never stop the remaining compensations.
func (e *Executor) Rollback(ctx context.Context, transactionID string, entries []*Entry) *Report {
	report := &Report{TransactionID: transactionID}
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry == nil {
			continue
		}
		if entry.Descriptor == nil {
			report.Skipped = append(report.Skipped, entry.OperationID)
			continue
		}
		if err := e.Compensate(ctx, entry); err != nil {
			e.logger.WithFields(logrus.Fields{
				"transaction": transactionID,
				"operation":   entry.OperationID,
				"name":        entry.Name,
			}).WithError(err).Warn("compensation failed")
			report.Failures = append(report.Failures, &Failure{
				OperationID: entry.OperationID,
				Name:        entry.Name,
				Err:         err,
				Message:     err.Error(),
			})
			continue
		}
		report.Compensated = append(report.Compensated, entry.OperationID)
	}
	return report
}

// Compensate executes a single descriptor
func (e *Executor) Compensate(ctx context.Context, entry *Entry) (err error) {
	ctx, span := tracing.StartSpan(ctx, "compensate:"+entry.Name, "INTERNAL")
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrCompensation, entry.Name, r)
		}
		tracing.EndSpan(span, err)
	}()
	if err = e.compensate(ctx, entry); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCompensation, entry.Name, err)
	}
	return nil
}

func (e *Executor) compensate(ctx context.Context, entry *Entry) error {
	descriptor := entry.Descriptor
	switch descriptor.Strategy {
	case StrategyCustom:
		if descriptor.Custom == nil {
			return fmt.Errorf("custom compensation function is nil")
		}
		return descriptor.Custom(ctx, entry.Request, entry.Response)
	case StrategyGenericInverse:
		action := descriptor.Inverse
		if action == nil {
			return fmt.Errorf("%w: %v", ErrNoIdentifier, descriptor.Target)
		}
		if e.client == nil {
			return ErrNoResourceClient
		}
		switch action.Method {
		case MethodCreate:
			_, err := e.client.Create(ctx, action.Target, action.Payload)
			return err
		case MethodUpdate:
			_, err := e.client.Update(ctx, action.Target, action.Payload)
			return err
		case MethodDelete:
			return e.client.Delete(ctx, action.Target)
		}
		return fmt.Errorf("unsupported inverse method: %s", action.Method)
	}
	return fmt.Errorf("unsupported compensation strategy: %s", descriptor.Strategy)
}
