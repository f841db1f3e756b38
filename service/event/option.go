package event

import (
	"github.com/sirupsen/logrus"
	"github.com/viant/sagaflow/service/messaging/memory"
)

// Option customises the event service
type Option func(s *Service)

// WithNewMemoryQueueConfig sets the per-queue memory configuration
func WithNewMemoryQueueConfig(newConfig func(name string) memory.Config) Option {
	return func(s *Service) {
		s.memNewQueueConfig = newConfig
	}
}

// WithLogger sets the listener logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
