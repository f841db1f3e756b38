package flow

import "github.com/viant/sagaflow/service/meta"

// Option customises a flow loader
type Option func(*Service)

// WithMetaService sets the asset loader
func WithMetaService(meta *meta.Service) Option {
	return func(s *Service) {
		s.metaService = meta
	}
}
