package mock

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/viant/sagaflow/model/types"
	"github.com/viant/sagaflow/runtime/execution"
)

// Harness executes steps according to a Config
type Harness struct {
	config Config
	rnd    *rand.Rand
	calls  map[string]int
	mux    sync.Mutex
}

// Option customises a harness
type Option func(h *Harness)

// WithSeed makes probability draws reproducible
func WithSeed(seed int64) Option {
	return func(h *Harness) {
		h.rnd = rand.New(rand.NewSource(seed))
	}
}

// New creates a harness
func New(config Config, options ...Option) *Harness {
	ret := &Harness{config: config, calls: map[string]int{}}
	for _, opt := range options {
		opt(ret)
	}
	if ret.rnd == nil {
		ret.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if ret.config == nil {
		ret.config = Config{}
	}
	return ret
}

// Execute resolves step: it waits the delay, draws against the probability
// and returns the configured outcome.
func (h *Harness) Execute(ctx context.Context, step string, input interface{}) (interface{}, error) {
	behavior, draw := h.begin(step)
	if behavior == nil {
		return input, nil
	}
	if behavior.Delay > 0 {
		timer := time.NewTimer(behavior.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
	if draw < behavior.SuccessProbability() {
		if behavior.Success == nil {
			return input, nil
		}
		return behavior.Success, nil
	}
	if behavior.Failure == nil {
		return nil, ErrMockFailure
	}
	return nil, behavior.Failure
}

func (h *Harness) begin(step string) (*Behavior, float64) {
	h.mux.Lock()
	defer h.mux.Unlock()
	h.calls[step]++
	behavior := h.config[step]
	if behavior == nil {
		return nil, 0
	}
	return behavior, h.rnd.Float64()
}

// Executor returns an executor resolving step through the harness
func (h *Harness) Executor(step string) types.Executor {
	return types.Func(func(ctx context.Context, input interface{}, _ *execution.Context) (interface{}, error) {
		return h.Execute(ctx, step, input)
	})
}

// Calls returns how many times step was executed
func (h *Harness) Calls(step string) int {
	h.mux.Lock()
	defer h.mux.Unlock()
	return h.calls[step]
}
