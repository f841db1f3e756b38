package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/sagaflow/internal/clock"
)

// Delta is an incremental counter change; fields may be negative
type Delta struct {
	Started     int
	Completed   int
	Failed      int
	Skipped     int
	Retried     int
	Recovered   int
	Running     int
	Compensated int
}

// Counters is a point in time copy of tracker counters
type Counters struct {
	ExecutionID string        `json:"executionId"`
	Flow        string        `json:"flow"`
	StartedAt   time.Time     `json:"startedAt"`
	Elapsed     time.Duration `json:"elapsed"`
	Started     int           `json:"started"`
	Completed   int           `json:"completed"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Retried     int           `json:"retried"`
	Recovered   int           `json:"recovered"`
	Running     int           `json:"running"`
	Compensated int           `json:"compensated"`
}

// Progress tracks step counters of one execution; it is safe for concurrent use
type Progress struct {
	counters Counters
	onChange func(Counters)
	mux      sync.Mutex
}

// New creates a tracker
func New(executionID, flow string, onChange func(Counters)) *Progress {
	return &Progress{
		counters: Counters{ExecutionID: executionID, Flow: flow, StartedAt: clock.Now()},
		onChange: onChange,
	}
}

// Update applies d. The onChange callback receives a copy outside the lock.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mux.Lock()
	c := &p.counters
	c.Started += d.Started
	c.Completed += d.Completed
	c.Failed += d.Failed
	c.Skipped += d.Skipped
	c.Retried += d.Retried
	c.Recovered += d.Recovered
	c.Running += d.Running
	c.Compensated += d.Compensated
	snapshot := p.snapshot()
	cb := p.onChange
	p.mux.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters
func (p *Progress) Snapshot() Counters {
	if p == nil {
		return Counters{}
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.snapshot()
}

func (p *Progress) snapshot() Counters {
	ret := p.counters
	ret.Elapsed = clock.Since(ret.StartedAt)
	return ret
}

// OnChange replaces the change callback; nil disables it
func (p *Progress) OnChange(cb func(Counters)) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.onChange = cb
	p.mux.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a tracker and embeds it in a derived context
func WithNewTracker(ctx context.Context, executionID, flow string, onChange func(Counters)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := New(executionID, flow, onChange)
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext returns the tracker carried by ctx
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx applies d to the tracker in ctx, if any
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
