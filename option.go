package sagaflow

import (
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
	"github.com/viant/sagaflow/progress"
	"github.com/viant/sagaflow/service/compensation"
	"github.com/viant/sagaflow/service/event"
	"github.com/viant/sagaflow/service/meta"
	"github.com/viant/sagaflow/service/mock"
	"github.com/viant/sagaflow/service/recovery"
	"github.com/viant/sagaflow/service/step"
	"github.com/viant/sagaflow/service/transaction"
	"github.com/viant/sagaflow/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the service
type Option func(s *Service)

// WithConfig sets the engine configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithLogger sets the logger shared by every component
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithStepRegistry sets the step registry
func WithStepRegistry(registry *step.Registry) Option {
	return func(s *Service) {
		s.steps = registry
	}
}

// WithTransactionManager sets the transaction manager, overriding the
// transaction config
func WithTransactionManager(manager *transaction.Manager) Option {
	return func(s *Service) {
		s.manager = manager
	}
}

// WithEventService sets the event service, overriding the events config
func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.events = service
	}
}

// WithNotificationHandler receives transaction lifecycle notifications
func WithNotificationHandler(handler func(*event.Event[transaction.Notification])) Option {
	return func(s *Service) {
		s.onNotification = handler
	}
}

// WithResourceClient sets the client replaying generic compensations
func WithResourceClient(client compensation.ResourceClient) Option {
	return func(s *Service) {
		s.resources = client
	}
}

// WithMetaService sets the asset loader
func WithMetaService(service *meta.Service) Option {
	return func(s *Service) {
		s.metaService = service
	}
}

// WithHarness resolves every step through a mock harness
func WithHarness(harness *mock.Harness) Option {
	return func(s *Service) {
		s.harness = harness
	}
}

// WithMetricsRegistry sets the metrics registry
func WithMetricsRegistry(registry gometrics.Registry) Option {
	return func(s *Service) {
		s.registry = registry
	}
}

// WithProgressListener receives progress counters of every execution
func WithProgressListener(fn func(progress.Counters)) Option {
	return func(s *Service) {
		s.onProgress = fn
	}
}

// WithOnError registers a recovery strategy applied by every execution
func WithOnError(stepName string, strategy recovery.Strategy) Option {
	return func(s *Service) {
		s.onError[stepName] = strategy
	}
}

// WithRollback registers a rollback handler applied by every execution
func WithRollback(stepName string, fn recovery.RollbackFunc) Option {
	return func(s *Service) {
		s.rollback[stepName] = fn
	}
}

// WithTracing configures OpenTelemetry tracing. If outputFile is empty the
// stdout exporter is used; the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing with a custom
// exporter; the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
