// Package progress keeps per-execution step counters. A tracker travels in
// the execution context so that every component handling a step can update
// it without a global registry.
package progress
