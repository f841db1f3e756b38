// Package recovery decides what happens after a sequential step fails.
//
// The Coordinator consults a map from step name to Strategy. Without a
// strategy the step's rollback handler runs and the failure is returned with
// RollbackAttempted set. Retry re-runs a named step; Handle calls a recovery
// function and continues according to the continuation policy.
package recovery
