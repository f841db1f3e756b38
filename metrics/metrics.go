// Package metrics records aggregate orchestration metrics in a go-metrics
// registry. Only enabled, tracked names are recorded.
package metrics

import (
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Tracked metric names
const (
	Executions    = "executions"
	Failures      = "failures"
	Steps         = "steps"
	Duration      = "duration"
	Rollbacks     = "rollbacks"
	Compensations = "compensations"
)

// Names lists every supported metric
var Names = []string{Executions, Failures, Steps, Duration, Rollbacks, Compensations}

// Recorder records metrics; a nil recorder ignores every call
type Recorder struct {
	registry gometrics.Registry
	tracked  map[string]bool
}

// New creates a recorder tracking names (all when empty) in registry
// (a new one when nil).
func New(registry gometrics.Registry, names ...string) *Recorder {
	if registry == nil {
		registry = gometrics.NewRegistry()
	}
	if len(names) == 0 {
		names = Names
	}
	ret := &Recorder{registry: registry, tracked: map[string]bool{}}
	for _, name := range names {
		ret.tracked[name] = true
	}
	return ret
}

// Tracks reports whether name is recorded
func (r *Recorder) Tracks(name string) bool {
	return r != nil && r.tracked[name]
}

// Inc increments counter name by n
func (r *Recorder) Inc(name string, n int64) {
	if !r.Tracks(name) {
		return
	}
	gometrics.GetOrRegisterCounter(name, r.registry).Inc(n)
}

// Time records d in timer name
func (r *Recorder) Time(name string, d time.Duration) {
	if !r.Tracks(name) {
		return
	}
	gometrics.GetOrRegisterTimer(name, r.registry).Update(d)
}

// Registry returns the underlying registry
func (r *Recorder) Registry() gometrics.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Snapshot returns counter values and timer counts by name
func (r *Recorder) Snapshot() map[string]int64 {
	ret := map[string]int64{}
	if r == nil {
		return ret
	}
	r.registry.Each(func(name string, metric interface{}) {
		switch actual := metric.(type) {
		case gometrics.Counter:
			ret[name] = actual.Count()
		case gometrics.Timer:
			ret[name] = actual.Count()
		}
	})
	return ret
}
