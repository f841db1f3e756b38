package orchestrator

import (
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
	"github.com/viant/sagaflow/progress"
	"github.com/viant/sagaflow/service/mock"
	"github.com/viant/sagaflow/service/recovery"
	"github.com/viant/sagaflow/service/transaction"
)

// Metrics selects aggregate metrics
type Metrics struct {
	Enabled bool
	// Tracked lists recorded metric names, all when empty
	Tracked []string
}

// Options are workflow options
type Options struct {
	// Timeout bounds a whole execution; zero disables it
	Timeout time.Duration
	// Retries re-invokes a failing step before recovery is consulted
	Retries int
	// RetryDelay is the initial exponential backoff interval
	RetryDelay time.Duration
	// OnError maps step name to recovery strategy
	OnError map[string]recovery.Strategy
	// Rollback maps step name to rollback handler
	Rollback map[string]recovery.RollbackFunc
	Metrics  Metrics
	// MaxIterations caps loops without their own maximum
	MaxIterations int
	// Parallelism bounds concurrently running parallel members, 0 is unbounded
	Parallelism int
	// Continuation is the continuation mode after a handled failure
	Continuation string
}

// Option customises an orchestrator
type Option func(o *Orchestrator)

// WithOptions sets workflow options
func WithOptions(options Options) Option {
	return func(o *Orchestrator) {
		o.options = options
	}
}

// WithTimeout sets the execution timeout
func WithTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		o.options.Timeout = timeout
	}
}

// WithRetries sets step retries and the initial backoff interval
func WithRetries(retries int, delay time.Duration) Option {
	return func(o *Orchestrator) {
		o.options.Retries = retries
		o.options.RetryDelay = delay
	}
}

// WithOnError registers a recovery strategy for a step
func WithOnError(step string, strategy recovery.Strategy) Option {
	return func(o *Orchestrator) {
		if o.options.OnError == nil {
			o.options.OnError = map[string]recovery.Strategy{}
		}
		o.options.OnError[step] = strategy
	}
}

// WithRollback registers a rollback handler for a step
func WithRollback(step string, fn recovery.RollbackFunc) Option {
	return func(o *Orchestrator) {
		if o.options.Rollback == nil {
			o.options.Rollback = map[string]recovery.RollbackFunc{}
		}
		o.options.Rollback[step] = fn
	}
}

// WithTransactionManager runs every execution inside a saga transaction
func WithTransactionManager(manager *transaction.Manager) Option {
	return func(o *Orchestrator) {
		o.manager = manager
	}
}

// WithHarness resolves every step through a mock harness
func WithHarness(harness *mock.Harness) Option {
	return func(o *Orchestrator) {
		o.harness = harness
	}
}

// WithMetricsRegistry records metrics in registry
func WithMetricsRegistry(registry gometrics.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithProgressListener receives progress counters on every change
func WithProgressListener(fn func(progress.Counters)) Option {
	return func(o *Orchestrator) {
		o.onProgress = fn
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}
