// Package idgen wraps identifier generators so that they can be stubbed in
// tests. Executions use random UUIDs, ledger entries use K-sortable ids so
// that lexical order follows creation order. Callers should treat both as
// opaque strings.
package idgen
