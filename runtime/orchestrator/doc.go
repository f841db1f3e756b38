// Package orchestrator implements the flow interpreter. An Orchestrator walks
// an immutable flow definition left to right, threading each element output
// into the next input, and routes sequential step failures through the
// recovery coordinator. With a transaction manager attached every execution
// runs inside a saga transaction that is committed on success and rolled back
// on any unrecoverable failure.
package orchestrator
