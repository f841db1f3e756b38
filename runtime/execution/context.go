package execution

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/viant/sagaflow/internal/clock"
	"github.com/viant/sagaflow/internal/idgen"
)

// Context is the execution-scoped workflow state. It holds the last recorded
// result of every step, the currently executing step, a unique execution id,
// the start time and free-form metadata. A Context is created for a single
// orchestrator run and must not be shared across runs.
type Context struct {
	ID        string
	StartedAt time.Time
	results   map[string]interface{}
	metadata  map[string]interface{}
	current   string
	mu        sync.RWMutex
}

// ContextKey is used to carry *Context inside context.Context.
var ContextKey = KeyOf[*Context]()

// NewContext creates a workflow context
func NewContext(options ...Option) *Context {
	ret := &Context{
		ID:        idgen.New(),
		StartedAt: clock.Now(),
		results:   make(map[string]interface{}),
		metadata:  make(map[string]interface{}),
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// SetResult records the last result of a step
func (c *Context) SetResult(step string, value interface{}) {
	c.mu.Lock()
	c.results[step] = value
	c.mu.Unlock()
}

// Result returns the last recorded result of a step
func (c *Context) Result(step string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.results[step]
	return value, ok
}

// Results returns a copy of all recorded step results
func (c *Context) Results() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ret := make(map[string]interface{}, len(c.results))
	for k, v := range c.results {
		ret[k] = v
	}
	return ret
}

// SetCurrent marks the step being executed
func (c *Context) SetCurrent(step string) {
	c.mu.Lock()
	c.current = step
	c.mu.Unlock()
}

// Current returns the step being executed
func (c *Context) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// SetMetadata adds or replaces a metadata entry
func (c *Context) SetMetadata(key string, value interface{}) {
	c.mu.Lock()
	c.metadata[key] = value
	c.mu.Unlock()
}

// Metadata returns a metadata entry
func (c *Context) Metadata(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.metadata[key]
	return value, ok
}

// Snapshot returns a point-in-time copy of the context state, suitable for
// error reporting and expression evaluation.
func (c *Context) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ret := &Snapshot{
		ExecutionID: c.ID,
		StartedAt:   c.StartedAt,
		Current:     c.current,
		Results:     make(map[string]interface{}, len(c.results)),
		Metadata:    make(map[string]interface{}, len(c.metadata)),
	}
	for k, v := range c.results {
		ret.Results[k] = v
	}
	for k, v := range c.metadata {
		ret.Metadata[k] = v
	}
	return ret
}

// Variables exposes the context state to expression predicates
func (c *Context) Variables(extra map[string]interface{}) map[string]interface{} {
	snapshot := c.Snapshot()
	ret := map[string]interface{}{
		"executionId": snapshot.ExecutionID,
		"current":     snapshot.Current,
		"results":     snapshot.Results,
		"metadata":    snapshot.Metadata,
	}
	for k, v := range extra {
		ret[k] = v
	}
	return ret
}

// Snapshot is an immutable copy of a Context
type Snapshot struct {
	ExecutionID string                 `json:"executionId"`
	StartedAt   time.Time              `json:"startedAt"`
	Current     string                 `json:"current,omitempty"`
	Results     map[string]interface{} `json:"results,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// WithContext embeds the workflow context in ctx
func WithContext(ctx context.Context, wfCtx *Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ContextKey, wfCtx)
}

// ContextValue returns the value of the provided type from the context
func ContextValue[T any](ctx context.Context) T {
	key := KeyOf[T]()
	if value := ctx.Value(key); value != nil {
		return value.(T)
	}
	var t T
	return t
}

// KeyOf returns the reflect.Type of the provided type
func KeyOf[T any]() reflect.Type {
	var a T
	return reflect.TypeOf(a)
}
