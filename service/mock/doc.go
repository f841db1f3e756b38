// Package mock provides a deterministic stand-in for step executors. Each
// step may carry a Behavior (delay, success value, failure, probability);
// steps without one pass their input through.
package mock
