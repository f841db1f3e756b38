// Package step provides the step registry: an explicit, instance scoped
// mapping from step name to executor. Executors are resolved once at
// registration. A registry is created with New, populated with Register and
// released with Close; it can travel through context.Context with
// WithRegistry when a caller prefers implicit propagation.
package step
