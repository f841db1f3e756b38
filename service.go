package sagaflow

import (
	"context"
	"fmt"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/sagaflow/diagram"
	"github.com/viant/sagaflow/model/flow"
	"github.com/viant/sagaflow/policy"
	"github.com/viant/sagaflow/progress"
	"github.com/viant/sagaflow/runtime/execution"
	"github.com/viant/sagaflow/runtime/orchestrator"
	"github.com/viant/sagaflow/service/compensation"
	dflow "github.com/viant/sagaflow/service/dao/flow"
	"github.com/viant/sagaflow/service/event"
	"github.com/viant/sagaflow/service/messaging"
	mmemory "github.com/viant/sagaflow/service/messaging/memory"
	"github.com/viant/sagaflow/service/meta"
	"github.com/viant/sagaflow/service/mock"
	"github.com/viant/sagaflow/service/recovery"
	resourcefs "github.com/viant/sagaflow/service/resource/fs"
	"github.com/viant/sagaflow/service/step"
	"github.com/viant/sagaflow/service/transaction"
	"github.com/viant/sagaflow/tracing"
)

// Service wires the step registry, transaction ledger, lifecycle events and
// flow loader behind a single façade.
type Service struct {
	config         *Config
	steps          *step.Registry
	manager        *transaction.Manager
	events         *event.Service
	metaService    *meta.Service
	flows          *dflow.Service
	resources      compensation.ResourceClient
	harness        *mock.Harness
	registry       gometrics.Registry
	onError        map[string]recovery.Strategy
	rollback       map[string]recovery.RollbackFunc
	onNotification func(*event.Event[transaction.Notification])
	onProgress     func(progress.Counters)
	logger         logrus.FieldLogger
}

// Config returns the engine configuration
func (s *Service) Config() *Config {
	return s.config
}

// Steps returns the step registry
func (s *Service) Steps() *step.Registry {
	return s.steps
}

// Transactions returns the transaction manager, nil when disabled
func (s *Service) Transactions() *transaction.Manager {
	return s.manager
}

// Events returns the event service, nil when disabled
func (s *Service) Events() *event.Service {
	return s.events
}

// Metrics returns the metrics registry
func (s *Service) Metrics() gometrics.Registry {
	return s.registry
}

// Register registers a step
func (s *Service) Register(name string, candidate interface{}, options ...step.Option) error {
	return s.steps.Register(name, candidate, options...)
}

// LoadFlow loads (and caches) a YAML flow definition
func (s *Service) LoadFlow(ctx context.Context, location string) (*flow.Definition, error) {
	return s.flows.Load(ctx, location)
}

// DecodeFlow decodes a YAML flow definition
func (s *Service) DecodeFlow(data []byte) (*flow.Definition, error) {
	return s.flows.DecodeYAML(data)
}

// RefreshFlow discards the cached definition at location; the next
// LoadFlow call reloads it.
func (s *Service) RefreshFlow(location string) {
	s.flows.Refresh(location)
}

// UpsertFlow decodes data and caches it under location. A nil data falls
// back to RefreshFlow.
func (s *Service) UpsertFlow(location string, data []byte) error {
	if data == nil {
		s.RefreshFlow(location)
		return nil
	}
	definition, err := s.flows.DecodeYAML(data)
	if err != nil {
		return fmt.Errorf("failed to decode flow %v: %w", location, err)
	}
	s.flows.Upsert(location, definition)
	return nil
}

// NewOrchestrator creates an orchestrator for definition with the service
// configuration, handlers and collaborators; options are applied last.
func (s *Service) NewOrchestrator(definition *flow.Definition, options ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	workflowOptions := s.config.Workflow.Options()
	workflowOptions.OnError = make(map[string]recovery.Strategy, len(s.onError))
	for name, strategy := range s.onError {
		workflowOptions.OnError[name] = strategy
	}
	workflowOptions.Rollback = make(map[string]recovery.RollbackFunc, len(s.rollback))
	for name, fn := range s.rollback {
		workflowOptions.Rollback[name] = fn
	}
	all := []orchestrator.Option{
		orchestrator.WithOptions(workflowOptions),
		orchestrator.WithMetricsRegistry(s.registry),
		orchestrator.WithLogger(s.logger),
	}
	if s.manager != nil {
		all = append(all, orchestrator.WithTransactionManager(s.manager))
	}
	if s.harness != nil {
		all = append(all, orchestrator.WithHarness(s.harness))
	}
	if s.onProgress != nil {
		all = append(all, orchestrator.WithProgressListener(s.onProgress))
	}
	return orchestrator.New(definition, s.steps, append(all, options...)...)
}

// Execute runs definition with input. Per step continuation modes of the
// configuration apply through the context.
func (s *Service) Execute(ctx context.Context, definition *flow.Definition, input interface{}, options ...execution.Option) (*orchestrator.Result, error) {
	runner, err := s.NewOrchestrator(definition)
	if err != nil {
		return nil, err
	}
	if continuation := s.config.Workflow.Continuation; continuation != nil && policy.FromContext(ctx) == nil {
		ctx = policy.WithPolicy(ctx, policy.FromConfig(continuation))
	}
	return runner.Execute(ctx, input, options...)
}

// RunStepOnce executes a single registered step with the service
// configuration, for ad-hoc jobs and debugging.
func (s *Service) RunStepOnce(ctx context.Context, name string, input interface{}) (interface{}, error) {
	result, err := s.Execute(ctx, flow.New(name, flow.Step(name)), input)
	if err != nil {
		return nil, err
	}
	return result.Output, nil
}

// Diagram describes definition
func (s *Service) Diagram(definition *flow.Definition) *diagram.Diagram {
	return diagram.Export(definition)
}

// Close stops event listeners and, when the configuration enabled tracing,
// flushes the trace provider.
func (s *Service) Close() {
	if s.events != nil {
		s.events.Close()
	}
	if s.config.Tracing.Enabled {
		if err := tracing.Shutdown(context.Background()); err != nil {
			s.logger.WithError(err).Warn("failed to shut down tracing")
		}
	}
}

func (s *Service) notify(anEvent *event.Event[transaction.Notification]) {
	s.logger.WithFields(logrus.Fields{
		"transaction": anEvent.Data.TransactionID,
		"status":      anEvent.Data.Status,
	}).Debug(anEvent.Type)
	if s.onNotification != nil {
		s.onNotification(anEvent)
	}
}

func (s *Service) ensureBaseSetup() error {
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	if s.steps == nil {
		s.steps = step.New()
	}
	if s.metaService == nil {
		s.metaService = meta.New(afs.New(), "")
	}
	s.flows = dflow.New(dflow.WithMetaService(s.metaService))
	if s.registry == nil {
		s.registry = gometrics.NewRegistry()
	}
	if cfg := s.config.Tracing; cfg.Enabled {
		if err := tracing.Init(cfg.Service, cfg.Version, cfg.OutputFile); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	if s.resources == nil && s.config.Resources.BaseURL != "" {
		s.resources = resourcefs.New(s.config.Resources.BaseURL,
			resourcefs.WithFS(s.metaService.FS()),
			resourcefs.WithLogger(s.logger))
	}
	var sink transaction.Sink
	if s.events == nil && s.config.Events.Enabled {
		cfg := s.config.Events
		var err error
		s.events, err = event.New(messaging.VendorMemory,
			event.WithLogger(s.logger),
			event.WithNewMemoryQueueConfig(func(string) mmemory.Config {
				return mmemory.Config{
					MaxRetries:  cfg.MaxRetries,
					RetryDelay:  cfg.RetryDelay,
					DeadLetter:  true,
					QueueBuffer: cfg.QueueBuffer,
				}
			}))
		if err != nil {
			return err
		}
	}
	if s.events != nil {
		publisher, err := event.PublisherOf[transaction.Notification](s.events)
		if err != nil {
			return err
		}
		sink = publisher
		// both queues are bounded, so they are always drained
		s.events.SetListener(func(anEvent *event.Event[any]) {
			s.logger.WithField("source", anEvent.Source).Trace(anEvent.Type)
		})
		if err = event.SetListenerOf[transaction.Notification](s.events, s.notify); err != nil {
			return err
		}
	}
	if s.manager == nil && s.config.Transaction.Enabled {
		options := []transaction.Option{transaction.WithLogger(s.logger)}
		if level := s.config.Transaction.Isolation; level != "" {
			options = append(options, transaction.WithIsolation(transaction.IsolationLevel(level)))
		}
		if s.resources != nil {
			options = append(options, transaction.WithResourceClient(s.resources))
		}
		if sink != nil {
			options = append(options, transaction.WithSink(sink))
		}
		s.manager = transaction.New(options...)
	}
	return nil
}

// New creates a service
func New(options ...Option) (*Service, error) {
	ret := &Service{
		onError:  map[string]recovery.Strategy{},
		rollback: map[string]recovery.RollbackFunc{},
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.config == nil {
		ret.config = DefaultConfig()
	}
	if err := ret.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := ret.ensureBaseSetup(); err != nil {
		return nil, err
	}
	return ret, nil
}
