// Package tracing wraps OpenTelemetry so that orchestration code can open
// spans for executions, steps and compensations without importing the
// upstream packages directly.
package tracing
