package sagaflow

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/sagaflow/metrics"
	"github.com/viant/sagaflow/model/flow"
	"github.com/viant/sagaflow/model/types"
	"github.com/viant/sagaflow/policy"
	"github.com/viant/sagaflow/runtime/orchestrator"
	"github.com/viant/sagaflow/service/meta"
	"github.com/viant/sagaflow/service/transaction"
)

// Config is a serialisable representation of the engine configuration. It
// can be loaded from YAML or JSON; the zero value of a nested section keeps
// the component defaults.
type Config struct {
	Workflow    WorkflowConfig    `json:"workflow" yaml:"workflow"`
	Transaction TransactionConfig `json:"transaction" yaml:"transaction"`
	Events      EventsConfig      `json:"events" yaml:"events"`
	Resources   ResourcesConfig   `json:"resources" yaml:"resources"`
	Tracing     TracingConfig     `json:"tracing" yaml:"tracing"`
}

// WorkflowConfig holds the workflow options applied to every execution
type WorkflowConfig struct {
	Timeout       time.Duration  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retries       int            `json:"retries,omitempty" yaml:"retries,omitempty"`
	RetryDelay    time.Duration  `json:"retryDelay,omitempty" yaml:"retryDelay,omitempty"`
	MaxIterations int            `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty"`
	Parallelism   int            `json:"parallelism,omitempty" yaml:"parallelism,omitempty"`
	Continuation  *policy.Config `json:"continuation,omitempty" yaml:"continuation,omitempty"`
	Metrics       MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// MetricsConfig selects recorded metrics
type MetricsConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Tracked []string `json:"tracked,omitempty" yaml:"tracked,omitempty"`
}

// TransactionConfig controls the transaction ledger
type TransactionConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Isolation string `json:"isolation,omitempty" yaml:"isolation,omitempty"`
}

// EventsConfig controls lifecycle notifications
type EventsConfig struct {
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	QueueBuffer int           `json:"queueBuffer,omitempty" yaml:"queueBuffer,omitempty"`
	MaxRetries  int           `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	RetryDelay  time.Duration `json:"retryDelay,omitempty" yaml:"retryDelay,omitempty"`
}

// ResourcesConfig configures the document resource client used by generic
// compensations; it is disabled when BaseURL is empty.
type ResourcesConfig struct {
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing
type TracingConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Service    string `json:"service,omitempty" yaml:"service,omitempty"`
	Version    string `json:"version,omitempty" yaml:"version,omitempty"`
	OutputFile string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

// DefaultConfig returns the default configuration. Callers may modify the
// returned struct before passing it to New.
func DefaultConfig() *Config {
	return &Config{
		Workflow: WorkflowConfig{
			RetryDelay:    100 * time.Millisecond,
			MaxIterations: flow.DefaultMaxIterations,
			Continuation:  &policy.Config{Mode: policy.ContinueWithLastResult},
		},
		Transaction: TransactionConfig{
			Enabled:   true,
			Isolation: string(transaction.ReadCommitted),
		},
		Events: EventsConfig{
			Enabled:     true,
			QueueBuffer: 100,
			MaxRetries:  3,
			RetryDelay:  100 * time.Millisecond,
		},
		Tracing: TracingConfig{Service: "sagaflow", Version: "dev"},
	}
}

// Validate returns an aggregated error describing invalid settings or nil
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs *multierror.Error
	w := &c.Workflow
	if w.Timeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("workflow.timeout must be >= 0"))
	}
	if w.Retries < 0 {
		errs = multierror.Append(errs, fmt.Errorf("workflow.retries must be >= 0"))
	}
	if w.Retries > 0 && w.RetryDelay <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("workflow.retryDelay must be > 0 when retries are set"))
	}
	if w.MaxIterations < 0 {
		errs = multierror.Append(errs, fmt.Errorf("workflow.maxIterations must be >= 0"))
	}
	if w.Parallelism < 0 {
		errs = multierror.Append(errs, fmt.Errorf("workflow.parallelism must be >= 0"))
	}
	if err := w.Continuation.Validate(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("workflow.continuation: %w", err))
	}
	for _, name := range w.Metrics.Tracked {
		if !isMetric(name) {
			errs = multierror.Append(errs, fmt.Errorf("workflow.metrics: unknown metric %q", name))
		}
	}
	switch transaction.IsolationLevel(c.Transaction.Isolation) {
	case "", transaction.ReadUncommitted, transaction.ReadCommitted, transaction.RepeatableRead, transaction.Serializable:
	default:
		errs = multierror.Append(errs, fmt.Errorf("transaction.isolation: unsupported level %q", c.Transaction.Isolation))
	}
	if c.Events.QueueBuffer < 0 {
		errs = multierror.Append(errs, fmt.Errorf("events.queueBuffer must be >= 0"))
	}
	if errs == nil {
		return nil
	}
	errs.ErrorFormat = types.JoinErrors
	return errs
}

// Options converts the workflow config into orchestrator options
func (w *WorkflowConfig) Options() orchestrator.Options {
	ret := orchestrator.Options{
		Timeout:       w.Timeout,
		Retries:       w.Retries,
		RetryDelay:    w.RetryDelay,
		MaxIterations: w.MaxIterations,
		Parallelism:   w.Parallelism,
		Metrics:       orchestrator.Metrics{Enabled: w.Metrics.Enabled, Tracked: w.Metrics.Tracked},
	}
	if w.Continuation != nil {
		ret.Continuation = policy.Normalize(w.Continuation.Mode)
	}
	return ret
}

// LoadConfig reads a YAML or JSON configuration through afs on top of
// DefaultConfig; ${env.KEY} references are expanded.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	ret := DefaultConfig()
	if err := meta.New(afs.New(), "", options...).Load(ctx, URL, ret); err != nil {
		return nil, err
	}
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}

func isMetric(name string) bool {
	for _, candidate := range metrics.Names {
		if candidate == name {
			return true
		}
	}
	return false
}
