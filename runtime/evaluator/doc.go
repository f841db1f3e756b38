// Package evaluator evaluates predicate expressions such as
// `${metadata.vip}` or `${results.count > 3 && iteration < 10}` against a
// variable map. Expressions are parsed with go/parser, so operator
// precedence follows Go.
package evaluator
