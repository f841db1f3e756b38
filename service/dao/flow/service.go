package flow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/viant/sagaflow/internal/yml"
	model "github.com/viant/sagaflow/model/flow"
	"github.com/viant/sagaflow/model/types"
	"github.com/viant/sagaflow/service/meta"
	"gopkg.in/yaml.v3"
)

// Service loads flow definitions from YAML documents and caches them by URL
type Service struct {
	metaService *meta.Service
	cache       map[string]*model.Definition
	mux         sync.RWMutex
}

// Refresh discards the cached definition of URL
func (s *Service) Refresh(URL string) {
	s.mux.Lock()
	delete(s.cache, normalize(URL))
	s.mux.Unlock()
}

// Upsert caches definition under URL
func (s *Service) Upsert(URL string, definition *model.Definition) {
	s.mux.Lock()
	s.cache[normalize(URL)] = definition
	s.mux.Unlock()
}

// DecodeYAML decodes a flow definition from YAML
func (s *Service) DecodeYAML(encoded []byte) (*model.Definition, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(encoded, &node); err != nil {
		return nil, err
	}
	return s.Parse("", &node)
}

// Load returns the flow definition at URL, loading and caching it on first
// use; .yaml is assumed without extension.
func (s *Service) Load(ctx context.Context, URL string) (*model.Definition, error) {
	URL = normalize(URL)
	s.mux.RLock()
	cached, ok := s.cache[URL]
	s.mux.RUnlock()
	if ok {
		return cached, nil
	}
	var node yaml.Node
	if err := s.metaService.Load(ctx, URL, &node); err != nil {
		return nil, fmt.Errorf("failed to load flow from %s: %w", URL, err)
	}
	definition, err := s.Parse(URL, &node)
	if err != nil {
		return nil, err
	}
	s.Upsert(URL, definition)
	return definition, nil
}

func normalize(URL string) string {
	if filepath.Ext(URL) == "" {
		return URL + ".yaml"
	}
	return URL
}

// Parse converts a YAML node into a validated definition. The definition
// name defaults to the URL file name.
func (s *Service) Parse(URL string, node *yaml.Node) (*model.Definition, error) {
	definition := &model.Definition{Name: nameFromURL(URL)}
	root := (*yml.Node)(node).Root()
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse flow %v: expected mapping, got %v", URL, kindName(root.Kind))
	}
	err := root.Pairs(func(key string, value *yml.Node) error {
		switch strings.ToLower(key) {
		case "name":
			definition.Name = value.Value
		case "description":
			definition.Description = value.Value
		case "flow", "elements":
			elements, err := parseElements(key, value)
			if err != nil {
				return err
			}
			definition.Elements = append(definition.Elements, elements...)
		default:
			return unknownElement(key, "root")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if issues := definition.Validate(); len(issues) > 0 {
		var merged *multierror.Error
		for _, issue := range issues {
			merged = multierror.Append(merged, issue)
		}
		merged.ErrorFormat = types.JoinErrors
		return nil, fmt.Errorf("invalid flow %v: %w", definition.Name, merged)
	}
	return definition, nil
}

func nameFromURL(URL string) string {
	if URL == "" {
		return ""
	}
	base := filepath.Base(URL)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// New creates a flow loader
func New(options ...Option) *Service {
	ret := &Service{cache: map[string]*model.Definition{}}
	for _, opt := range options {
		opt(ret)
	}
	if ret.metaService == nil {
		ret.metaService = meta.New(nil, "")
	}
	return ret
}
