package mock

import (
	"errors"
	"time"
)

// ErrMockFailure is returned by a failing behavior without an explicit error
var ErrMockFailure = errors.New("mock failure")

// Behavior overrides a step outcome
type Behavior struct {
	Success interface{}
	Failure error
	Delay   time.Duration
	// Probability of success in [0,1]; nil means 1.0
	Probability *float64
}

// SuccessProbability returns the effective probability
func (b *Behavior) SuccessProbability() float64 {
	if b == nil || b.Probability == nil {
		return 1.0
	}
	return *b.Probability
}

// Probability returns a pointer to p, for Behavior literals
func Probability(p float64) *float64 {
	return &p
}

// Config maps step name to behavior
type Config map[string]*Behavior
