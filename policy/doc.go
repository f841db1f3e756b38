// Package policy decides how a flow continues after a recovery handler
// succeeded. The policy can be set per orchestrator or carried in a context
// for a single execution.
package policy
